package store_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhiba/2025Q2-G4/internal/config"
	"github.com/fhiba/2025Q2-G4/internal/data/redisStore"
	"github.com/fhiba/2025Q2-G4/internal/data/store"
	"github.com/fhiba/2025Q2-G4/internal/domain/invoiceModel"
)

func newRedisBackend(t *testing.T) (*store.RedisRecordStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return store.NewRedisRecordStore(redisStore.NewTestStore(client)), mr
}

// newFirestoreBackend runs against a cleared emulator database, or returns
// nil when FIRESTORE_EMULATOR_HOST is not set.
func newFirestoreBackend(t *testing.T) *store.FirestoreRecordStore {
	host := os.Getenv("FIRESTORE_EMULATOR_HOST")
	if host == "" {
		return nil
	}
	const project = "demo-invoices"

	wipe, err := http.NewRequest(http.MethodDelete,
		"http://"+host+"/emulator/v1/projects/"+project+"/databases/(default)/documents", nil)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(wipe)
	require.NoError(t, err)
	_ = res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	client, err := store.NewFirestoreClient(context.Background(), project)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return store.NewFirestoreRecordStore(client, "invoices-test")
}

func backends(t *testing.T) map[string]store.RecordBackend {
	rs, _ := newRedisBackend(t)
	out := map[string]store.RecordBackend{
		"redis":  rs,
		"memory": store.InitInMemoryRecordStore(),
	}
	if fs := newFirestoreBackend(t); fs != nil {
		out["firestore"] = fs
	}
	return out
}

func record(key, owner string, fields map[string]string) invoiceModel.InvoiceRecord {
	typed := make(map[string]invoiceModel.FieldValue, len(fields))
	for k, v := range fields {
		if k == invoiceModel.FieldTotal {
			typed[k] = invoiceModel.ParseNumeric(v)
			continue
		}
		typed[k] = invoiceModel.TextValue(v)
	}
	return invoiceModel.InvoiceRecord{
		StorageKey:      key,
		OwnerID:         owner,
		GroupKey:        invoiceModel.DefaultGroupKey,
		ExtractedFields: typed,
		FileSizeBytes:   2048,
		TextLength:      120,
	}
}

func keysOf(records []invoiceModel.InvoiceRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.StorageKey)
	}
	return out
}

func TestRecordBackends(t *testing.T) {
	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")

	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("upsert is idempotent", func(t *testing.T) {
				rec := record("alice/doc1.pdf", "alice", map[string]string{"total": "1500.00", "vendor": "ACME"})
				require.NoError(t, backend.Upsert(ctx, rec))
				require.NoError(t, backend.Upsert(ctx, rec))

				got, err := backend.QueryByOwner(ctx, "alice")
				require.NoError(t, err)
				require.Len(t, got, 1)
				assert.True(t, invoiceModel.FieldsEqual(rec.ExtractedFields, got[0].ExtractedFields))
				assert.Equal(t, rec.FileSizeBytes, got[0].FileSizeBytes)
				assert.Equal(t, invoiceModel.DefaultGroupKey, got[0].GroupKey)
			})

			t.Run("owners are isolated", func(t *testing.T) {
				require.NoError(t, backend.Upsert(ctx, record("alice/doc2.pdf", "alice", nil)))
				require.NoError(t, backend.Upsert(ctx, record("bob/doc1.pdf", "bob", nil)))

				alice, err := backend.QueryByOwner(ctx, "alice")
				require.NoError(t, err)
				assert.ElementsMatch(t, []string{"alice/doc1.pdf", "alice/doc2.pdf"}, keysOf(alice))

				bob, err := backend.QueryByOwner(ctx, "bob")
				require.NoError(t, err)
				assert.Equal(t, []string{"bob/doc1.pdf"}, keysOf(bob))
			})

			t.Run("owner-less records are stored but never queried", func(t *testing.T) {
				require.NoError(t, backend.Upsert(ctx, record("doc1.pdf", "", map[string]string{"date": "01/02/2025"})))

				got, err := backend.GetRecord(ctx, "doc1.pdf")
				require.NoError(t, err)
				assert.Equal(t, "01/02/2025", got.ExtractedFields["date"].String())

				for _, owner := range []string{"", "doc1.pdf"} {
					res, err := backend.QueryByOwner(ctx, owner)
					require.NoError(t, err)
					assert.Empty(t, res, "owner %q", owner)
				}
			})

			t.Run("overwrite replaces fields", func(t *testing.T) {
				require.NoError(t, backend.Upsert(ctx, record("carol/a.pdf", "carol", map[string]string{"total": "10", "vendor": "X"})))
				require.NoError(t, backend.Upsert(ctx, record("carol/a.pdf", "carol", map[string]string{"date": "1/1/24"})))

				got, err := backend.GetRecord(ctx, "carol/a.pdf")
				require.NoError(t, err)
				assert.Len(t, got.ExtractedFields, 1)
				assert.Equal(t, "1/1/24", got.ExtractedFields["date"].String())
			})

			t.Run("patch merges fields", func(t *testing.T) {
				require.NoError(t, backend.Upsert(ctx, record("dave/a.pdf", "dave", map[string]string{"total": "1.234.56", "vendor": "OLD"})))

				patched, err := backend.PatchFields(ctx, "dave/a.pdf", map[string]invoiceModel.FieldValue{
					"total": invoiceModel.ParseNumeric("1234.56"),
				})
				require.NoError(t, err)
				assert.True(t, patched.ExtractedFields["total"].IsDecimal())
				assert.Equal(t, "OLD", patched.ExtractedFields["vendor"].String())

				got, err := backend.GetRecord(ctx, "dave/a.pdf")
				require.NoError(t, err)
				assert.True(t, invoiceModel.FieldsEqual(patched.ExtractedFields, got.ExtractedFields))
			})

			t.Run("patch of missing record", func(t *testing.T) {
				_, err := backend.PatchFields(ctx, "nobody/missing.pdf", map[string]invoiceModel.FieldValue{"total": invoiceModel.TextValue("1")})
				assert.True(t, errors.Is(err, invoiceModel.ErrRecordNotFound))

				_, err = backend.GetRecord(ctx, "nobody/missing.pdf")
				assert.True(t, errors.Is(err, invoiceModel.ErrRecordNotFound))
			})
		})
	}
}

func TestRedisConcurrentUpsertsLastWriterWins(t *testing.T) {
	rs, _ := newRedisBackend(t)
	ctx := context.Background()

	payloads := make([]invoiceModel.InvoiceRecord, 8)
	for i := range payloads {
		payloads[i] = record("erin/race.pdf", "erin", map[string]string{
			fmt.Sprintf("field%d", i): fmt.Sprintf("value%d", i),
			"total":                   fmt.Sprintf("%d.00", i),
		})
	}

	var wg sync.WaitGroup
	for i := range payloads {
		wg.Add(1)
		go func(rec invoiceModel.InvoiceRecord) {
			defer wg.Done()
			assert.NoError(t, rs.Upsert(ctx, rec))
		}(payloads[i])
	}
	wg.Wait()

	got, err := rs.GetRecord(ctx, "erin/race.pdf")
	require.NoError(t, err)

	matches := 0
	for _, p := range payloads {
		if invoiceModel.FieldsEqual(p.ExtractedFields, got.ExtractedFields) {
			matches++
		}
	}
	assert.Equal(t, 1, matches, "stored fields must equal exactly one payload, got %v", got.ExtractedFields)
}

func TestRedisOwnerChangePrunesIndex(t *testing.T) {
	rs, mr := newRedisBackend(t)
	ctx := context.Background()

	require.NoError(t, rs.Upsert(ctx, record("shared/a.pdf", "alice", nil)))
	require.NoError(t, rs.Upsert(ctx, record("shared/a.pdf", "bob", nil)))

	alice, err := rs.QueryByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, alice)

	members, err := mr.Members(config.RecordPrefix + ":owner:alice")
	if err == nil {
		assert.Empty(t, members)
	}

	bob, err := rs.QueryByOwner(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"shared/a.pdf"}, keysOf(bob))
}

func TestRedisStoreUnavailable(t *testing.T) {
	rs, mr := newRedisBackend(t)
	ctx := context.Background()
	require.NoError(t, rs.Upsert(ctx, record("alice/a.pdf", "alice", nil)))

	mr.SetError("ERR injected failure")
	defer mr.SetError("")

	err := rs.Upsert(ctx, record("alice/b.pdf", "alice", nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, invoiceModel.ErrStoreUnavailable))
	var se *invoiceModel.StoreError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "upsert", se.Op)

	_, err = rs.QueryByOwner(ctx, "alice")
	assert.True(t, errors.Is(err, invoiceModel.ErrStoreUnavailable))
}

func TestOpenMemoryBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = config.StoreBackendMemory

	backend, closeFn, err := store.Open(context.Background(), cfg)
	require.NoError(t, err)
	defer closeFn()
	_, ok := backend.(*store.InMemoryRecordStore)
	assert.True(t, ok)
}

func TestOpenRedisFallsBackToMemory(t *testing.T) {
	cfg := config.Default()
	cfg.Redis.Addr = "127.0.0.1:1"
	cfg.Store.FallbackToMemory = true

	backend, closeFn, err := store.Open(context.Background(), cfg)
	require.NoError(t, err)
	defer closeFn()
	_, ok := backend.(*store.InMemoryRecordStore)
	assert.True(t, ok)

	cfg.Store.FallbackToMemory = false
	_, _, err = store.Open(context.Background(), cfg)
	assert.Error(t, err)
}
