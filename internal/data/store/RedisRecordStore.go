package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/fhiba/2025Q2-G4/internal/config"
	"github.com/fhiba/2025Q2-G4/internal/data/redisStore"
	"github.com/fhiba/2025Q2-G4/internal/domain/invoiceModel"
	"github.com/fhiba/2025Q2-G4/pkg/logger_i"
)

const maxPatchAttempts = 5

// RedisRecordStore keeps each record as a hash keyed by storage key, with
// the sort key as the hash field, and a set per owner as the owner index.
type RedisRecordStore struct {
	store  *redisStore.Store
	prefix string
	logger *logger_i.Logger
}

func NewRedisRecordStore(store *redisStore.Store) *RedisRecordStore {
	return &RedisRecordStore{
		store:  store,
		prefix: config.RecordPrefix,
		logger: logger_i.NewLogger("RecordStore"),
	}
}

func (s *RedisRecordStore) recordKey(storageKey string) string {
	return s.prefix + ":" + storageKey
}

func (s *RedisRecordStore) ownerKey(ownerID string) string {
	return s.prefix + ":owner:" + ownerID
}

// Upsert overwrites the whole record. Concurrent writers race and the last
// EXEC wins; the hash field is replaced in one command so fields never mix.
func (s *RedisRecordStore) Upsert(ctx context.Context, record invoiceModel.InvoiceRecord) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "storageKey", record.StorageKey)
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", record.StorageKey, err)
	}

	err = s.store.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.recordKey(record.StorageKey), invoiceModel.MetadataSortKey, data)
		if record.OwnerID != "" {
			pipe.SAdd(ctx, s.ownerKey(record.OwnerID), record.StorageKey)
		}
		return nil
	})
	if err != nil {
		log.Error("upsert failed", "error", err)
		return invoiceModel.NewStoreError("upsert", record.StorageKey, err)
	}
	log.Debug("record saved")
	return nil
}

func (s *RedisRecordStore) QueryByOwner(ctx context.Context, ownerID string) ([]invoiceModel.InvoiceRecord, error) {
	if ownerID == "" {
		return []invoiceModel.InvoiceRecord{}, nil
	}
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "ownerId", ownerID)

	keys, err := s.store.SetMembers(ctx, s.ownerKey(ownerID))
	if err != nil {
		return nil, invoiceModel.NewStoreError("query", ownerID, err)
	}
	if len(keys) == 0 {
		return []invoiceModel.InvoiceRecord{}, nil
	}

	hashKeys := make([]string, len(keys))
	for i, k := range keys {
		hashKeys[i] = s.recordKey(k)
	}
	values, err := s.store.HashGetMany(ctx, hashKeys, invoiceModel.MetadataSortKey)
	if err != nil {
		return nil, invoiceModel.NewStoreError("query", ownerID, err)
	}

	records := make([]invoiceModel.InvoiceRecord, 0, len(values))
	var stale []interface{}
	for i, raw := range values {
		if raw == "" {
			stale = append(stale, keys[i])
			continue
		}
		var rec invoiceModel.InvoiceRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			log.Warn("skipping undecodable record", "storageKey", keys[i], "error", err)
			continue
		}
		// the record moved to another owner after this index entry was written
		if rec.OwnerID != ownerID {
			stale = append(stale, keys[i])
			continue
		}
		records = append(records, rec)
	}

	if len(stale) > 0 {
		if err := s.store.SetRemove(ctx, s.ownerKey(ownerID), stale...); err != nil {
			log.Warn("could not prune owner index", "error", err)
		}
	}
	log.Debug("owner query", "records", len(records))
	return records, nil
}

func (s *RedisRecordStore) GetRecord(ctx context.Context, storageKey string) (invoiceModel.InvoiceRecord, error) {
	var rec invoiceModel.InvoiceRecord
	raw, err := s.store.HashGet(ctx, s.recordKey(storageKey), invoiceModel.MetadataSortKey)
	if s.store.IsNil(err) {
		return rec, invoiceModel.ErrRecordNotFound
	}
	if err != nil {
		return rec, invoiceModel.NewStoreError("get", storageKey, err)
	}
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return rec, fmt.Errorf("decode record %s: %w", storageKey, err)
	}
	return rec, nil
}

// PatchFields merges fields into an existing record. The read and the write
// are tied with WATCH so a concurrent upsert is never half-overwritten.
func (s *RedisRecordStore) PatchFields(ctx context.Context, storageKey string, fields map[string]invoiceModel.FieldValue) (invoiceModel.InvoiceRecord, error) {
	key := s.recordKey(storageKey)
	var updated invoiceModel.InvoiceRecord

	txf := func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, key, invoiceModel.MetadataSortKey).Result()
		if s.store.IsNil(err) {
			return invoiceModel.ErrRecordNotFound
		}
		if err != nil {
			return err
		}
		var rec invoiceModel.InvoiceRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return fmt.Errorf("decode record %s: %w", storageKey, err)
		}
		rec.ExtractedFields = mergeFields(rec.ExtractedFields, fields)
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, invoiceModel.MetadataSortKey, data)
			return nil
		})
		if err == nil {
			updated = rec
		}
		return err
	}

	var err error
	for attempt := 0; attempt < maxPatchAttempts; attempt++ {
		err = s.store.Watch(ctx, txf, key)
		if !s.store.IsTxFailed(err) {
			break
		}
		s.logger.Debug("patch conflict, retrying", "storageKey", storageKey, "attempt", attempt+1)
	}
	switch {
	case err == nil:
		return updated, nil
	case errors.Is(err, invoiceModel.ErrRecordNotFound):
		return updated, err
	default:
		return updated, invoiceModel.NewStoreError("patch", storageKey, err)
	}
}

func mergeFields(current, patch map[string]invoiceModel.FieldValue) map[string]invoiceModel.FieldValue {
	out := make(map[string]invoiceModel.FieldValue, len(current)+len(patch))
	for k, v := range current {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}
