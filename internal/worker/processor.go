package worker

import (
	"context"
	"time"

	"github.com/fhiba/2025Q2-G4/internal/config"
	"github.com/fhiba/2025Q2-G4/internal/domain/invoiceModel"
	"github.com/fhiba/2025Q2-G4/internal/extract"
	"github.com/fhiba/2025Q2-G4/internal/metrics"
	"github.com/fhiba/2025Q2-G4/pkg/logger_i"
)

type DocumentReader interface {
	Read(ctx context.Context, ref invoiceModel.DocumentRef) (invoiceModel.Document, error)
}

// ItemProcessor turns one uploaded object into a stored record.
type ItemProcessor interface {
	Process(ctx context.Context, ref invoiceModel.DocumentRef) (invoiceModel.InvoiceRecord, error)
}

type Processor struct {
	reader DocumentReader
	store  invoiceModel.RecordStore
	logger *logger_i.Logger
}

func NewProcessor(reader DocumentReader, store invoiceModel.RecordStore) *Processor {
	return &Processor{
		reader: reader,
		store:  store,
		logger: logger_i.NewLogger("Processor"),
	}
}

// Process reads ref, extracts its fields and upserts the record. Errors are
// *invoiceModel.ProcessError.
func (p *Processor) Process(ctx context.Context, ref invoiceModel.DocumentRef) (invoiceModel.InvoiceRecord, error) {
	traceId, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	log := p.logger.With("traceId", traceId, "storageKey", ref.Key)

	start := time.Now()
	doc, err := p.reader.Read(ctx, ref)
	metrics.CaptureExecutionMetrics("document_read", time.Since(start))
	if err != nil {
		log.Warn("document could not be read", "error", err)
		return invoiceModel.InvoiceRecord{}, &invoiceModel.ProcessError{Kind: invoiceModel.UnreadableDocument, Key: ref.Key, Err: err}
	}

	record := BuildRecord(ref, doc, extract.Typed(extract.Extract(doc.Text)))

	start = time.Now()
	err = p.store.Upsert(ctx, record)
	metrics.CaptureExecutionMetrics("record_upsert", time.Since(start))
	if err != nil {
		log.Error("record upsert failed", "error", err)
		return invoiceModel.InvoiceRecord{}, &invoiceModel.ProcessError{Kind: invoiceModel.StoreFailure, Key: ref.Key, Err: err}
	}

	log.Info("record stored", "fields", len(record.ExtractedFields), "textLength", record.TextLength)
	return record, nil
}

func BuildRecord(ref invoiceModel.DocumentRef, doc invoiceModel.Document, fields map[string]invoiceModel.FieldValue) invoiceModel.InvoiceRecord {
	if fields == nil {
		fields = map[string]invoiceModel.FieldValue{}
	}
	return invoiceModel.InvoiceRecord{
		StorageKey:      ref.Key,
		OwnerID:         ref.OwnerID,
		GroupKey:        invoiceModel.DefaultGroupKey,
		ExtractedFields: fields,
		FileSizeBytes:   doc.FileSizeBytes,
		TextLength:      doc.TextLength,
	}
}
