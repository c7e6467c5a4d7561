package redisStore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fhiba/2025Q2-G4/pkg/logger_i"
)

type Options struct {
	Addr     string
	Password string
	DB       int
}

// Store is one redis logical database. The process entry point owns it and
// closes it on shutdown.
type Store struct {
	client *redis.Client
	Type   int
	logger *logger_i.Logger
}

func Connect(ctx context.Context, opts Options) (*Store, error) {
	newClient := redis.NewClient(&redis.Options{
		Addr:                  opts.Addr,
		Password:              opts.Password,
		DB:                    opts.DB,
		ContextTimeoutEnabled: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})
	logger := logger_i.NewLogger("Redis Store").With("db", strconv.Itoa(opts.DB))

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := newClient.Ping(pingCtx).Err(); err != nil {
		logger.Error("Redis is offline", "addr", opts.Addr, "error", err)
		_ = newClient.Close()
		return nil, fmt.Errorf("redis %s db %d unreachable: %w", opts.Addr, opts.DB, err)
	}

	logger.Info("Redis store init successfully", "addr", opts.Addr)
	return &Store{client: newClient, Type: opts.DB, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func NewTestStore(client *redis.Client) *Store {
	return &Store{
		client: client,
		Type:   client.Options().DB,
		logger: logger_i.NewLogger("Redis Store"),
	}
}
