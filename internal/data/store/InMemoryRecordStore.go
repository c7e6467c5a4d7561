package store

import (
	"context"
	"sync"

	"github.com/fhiba/2025Q2-G4/internal/domain/invoiceModel"
	"github.com/fhiba/2025Q2-G4/pkg/logger_i"
)

type InMemoryRecordStore struct {
	recordMutex *sync.RWMutex
	recordMap   map[string]invoiceModel.InvoiceRecord
	logger      *logger_i.Logger
}

func InitInMemoryRecordStore() *InMemoryRecordStore {
	return &InMemoryRecordStore{
		recordMutex: new(sync.RWMutex),
		recordMap:   make(map[string]invoiceModel.InvoiceRecord),
		logger:      logger_i.NewLogger("InMem RecordStore"),
	}
}

func (store *InMemoryRecordStore) Upsert(ctx context.Context, record invoiceModel.InvoiceRecord) error {
	record.ExtractedFields = mergeFields(nil, record.ExtractedFields)

	store.recordMutex.Lock()
	defer store.recordMutex.Unlock()
	store.recordMap[record.StorageKey] = record
	store.logger.Debug("saved record", "storageKey", record.StorageKey)
	return nil
}

func (store *InMemoryRecordStore) QueryByOwner(ctx context.Context, ownerID string) ([]invoiceModel.InvoiceRecord, error) {
	records := []invoiceModel.InvoiceRecord{}
	if ownerID == "" {
		return records, nil
	}
	store.recordMutex.RLock()
	defer store.recordMutex.RUnlock()
	for _, rec := range store.recordMap {
		if rec.OwnerID == ownerID {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (store *InMemoryRecordStore) GetRecord(ctx context.Context, storageKey string) (invoiceModel.InvoiceRecord, error) {
	store.recordMutex.RLock()
	defer store.recordMutex.RUnlock()
	rec, found := store.recordMap[storageKey]
	if !found {
		return rec, invoiceModel.ErrRecordNotFound
	}
	return rec, nil
}

func (store *InMemoryRecordStore) PatchFields(ctx context.Context, storageKey string, fields map[string]invoiceModel.FieldValue) (invoiceModel.InvoiceRecord, error) {
	store.recordMutex.Lock()
	defer store.recordMutex.Unlock()
	rec, found := store.recordMap[storageKey]
	if !found {
		return rec, invoiceModel.ErrRecordNotFound
	}
	rec.ExtractedFields = mergeFields(rec.ExtractedFields, fields)
	store.recordMap[storageKey] = rec
	return rec, nil
}
