package store

import (
	"context"
	"fmt"

	"github.com/fhiba/2025Q2-G4/internal/config"
	"github.com/fhiba/2025Q2-G4/internal/data/redisStore"
	"github.com/fhiba/2025Q2-G4/internal/domain/invoiceModel"
	"github.com/fhiba/2025Q2-G4/pkg/logger_i"
)

// RecordBackend is what every backend implements: the core store contract
// plus the read and patch side used by the HTTP collaborators.
type RecordBackend interface {
	invoiceModel.RecordStore
	invoiceModel.RecordPatcher
}

var (
	_ RecordBackend = (*RedisRecordStore)(nil)
	_ RecordBackend = (*FirestoreRecordStore)(nil)
	_ RecordBackend = (*InMemoryRecordStore)(nil)
)

// Open builds the configured backend. The returned close func releases the
// backend's client.
func Open(ctx context.Context, cfg *config.Config) (RecordBackend, func() error, error) {
	logger := logger_i.NewLogger("RecordStore")

	switch cfg.Store.Backend {
	case config.StoreBackendMemory:
		logger.Info("using in-memory record store")
		return InitInMemoryRecordStore(), noopClose, nil

	case config.StoreBackendFirestore:
		client, err := NewFirestoreClient(ctx, cfg.GCP.ProjectID)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using firestore record store", "project", cfg.GCP.ProjectID, "collection", cfg.Store.FirestoreCollection)
		return NewFirestoreRecordStore(client, cfg.Store.FirestoreCollection), client.Close, nil

	case config.StoreBackendRedis:
		rs, err := redisStore.Connect(ctx, redisStore.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.RecordDB,
		})
		if err != nil {
			if cfg.Store.FallbackToMemory {
				logger.Warn("redis unavailable, falling back to in-memory record store", "error", err)
				return InitInMemoryRecordStore(), noopClose, nil
			}
			return nil, nil, err
		}
		return NewRedisRecordStore(rs), rs.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

func noopClose() error { return nil }
