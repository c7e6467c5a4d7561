package adapter

import (
	"sort"

	"github.com/fhiba/2025Q2-G4/internal/api"
	"github.com/fhiba/2025Q2-G4/internal/domain/invoiceModel"
	"github.com/fhiba/2025Q2-G4/internal/trigger"
)

func ToInvoiceResponse(record invoiceModel.InvoiceRecord) api.InvoiceResponse {
	fields := record.ExtractedFields
	if fields == nil {
		fields = map[string]invoiceModel.FieldValue{}
	}
	return api.InvoiceResponse{
		StorageKey:      record.StorageKey,
		OwnerID:         record.OwnerID,
		GroupKey:        record.GroupKey,
		ExtractedFields: fields,
		FileSizeBytes:   record.FileSizeBytes,
		TextLength:      record.TextLength,
	}
}

// ToReport lists the records of owner ordered by storage key.
func ToReport(owner string, records []invoiceModel.InvoiceRecord) api.ReportResponse {
	rows := make([]api.ReportRow, 0, len(records))
	for _, r := range SortedByKey(records) {
		rows = append(rows, api.ReportRow{
			StorageKey:    r.StorageKey,
			Date:          fieldOrNil(r, invoiceModel.FieldDate),
			Total:         fieldOrNil(r, invoiceModel.FieldTotal),
			Vendor:        fieldOrNil(r, invoiceModel.FieldVendor),
			TaxID:         fieldOrNil(r, invoiceModel.FieldTaxID),
			TextLength:    r.TextLength,
			FileSizeBytes: r.FileSizeBytes,
		})
	}
	return api.ReportResponse{Owner: owner, Invoices: rows}
}

func ToNotifications(records []api.UploadRecord) []trigger.Notification {
	out := make([]trigger.Notification, 0, len(records))
	for _, r := range records {
		out = append(out, trigger.Notification{Bucket: r.Bucket, Key: r.Key})
	}
	return out
}

func ToBatchResponse(res trigger.BatchResult) api.BatchResponse {
	out := api.BatchResponse{Enqueued: res.Enqueued}
	for _, f := range res.Failed {
		out.Failed = append(out.Failed, api.FailedNotification{Key: f.Key, Error: f.Error})
	}
	return out
}

func ErrorBody(code int, message, traceId string) api.ErrorResponse {
	return api.ErrorResponse{Code: code, Message: message, TraceId: traceId}
}

func SortedByKey(records []invoiceModel.InvoiceRecord) []invoiceModel.InvoiceRecord {
	out := make([]invoiceModel.InvoiceRecord, len(records))
	copy(out, records)
	sort.Slice(out, func(i, j int) bool { return out[i].StorageKey < out[j].StorageKey })
	return out
}

func fieldOrNil(r invoiceModel.InvoiceRecord, name string) *invoiceModel.FieldValue {
	v, ok := r.ExtractedFields[name]
	if !ok {
		return nil
	}
	return &v
}

func fieldText(r invoiceModel.InvoiceRecord, name string) string {
	v, ok := r.ExtractedFields[name]
	if !ok {
		return ""
	}
	return v.String()
}
