package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhiba/2025Q2-G4/internal/data/store"
	"github.com/fhiba/2025Q2-G4/internal/domain/invoiceModel"
)

type MockReader struct {
	OnRead func(ctx context.Context, ref invoiceModel.DocumentRef) (invoiceModel.Document, error)
}

func (m *MockReader) Read(ctx context.Context, ref invoiceModel.DocumentRef) (invoiceModel.Document, error) {
	return m.OnRead(ctx, ref)
}

type MockRecordStore struct {
	OnUpsert func(ctx context.Context, record invoiceModel.InvoiceRecord) error
}

func (m *MockRecordStore) Upsert(ctx context.Context, record invoiceModel.InvoiceRecord) error {
	return m.OnUpsert(ctx, record)
}

func (m *MockRecordStore) QueryByOwner(ctx context.Context, ownerID string) ([]invoiceModel.InvoiceRecord, error) {
	return nil, nil
}

func textDoc(text string) invoiceModel.Document {
	return invoiceModel.Document{Text: text, FileSizeBytes: 2048, TextLength: int64(len([]rune(text))), Pages: 1}
}

func TestProcessStoresExtractedRecord(t *testing.T) {
	text := "Factura B\nTotal: $ 1500,00\nFecha: 05/03/2024\nCUIT 20-12345678-9\nRazón social: ACME SA"
	reader := &MockReader{OnRead: func(ctx context.Context, ref invoiceModel.DocumentRef) (invoiceModel.Document, error) {
		return textDoc(text), nil
	}}
	records := store.InitInMemoryRecordStore()
	p := NewProcessor(reader, records)
	ctx := context.Background()

	ref := invoiceModel.DocumentRef{Bucket: "invoices", Key: "alice/doc1.pdf", OwnerID: "alice"}
	rec, err := p.Process(ctx, ref)
	require.NoError(t, err)

	assert.Equal(t, "alice/doc1.pdf", rec.StorageKey)
	assert.Equal(t, "alice", rec.OwnerID)
	assert.Equal(t, invoiceModel.DefaultGroupKey, rec.GroupKey)
	assert.Equal(t, int64(2048), rec.FileSizeBytes)
	assert.Equal(t, int64(len([]rune(text))), rec.TextLength)

	total := rec.ExtractedFields[invoiceModel.FieldTotal]
	assert.True(t, total.IsDecimal())
	assert.Equal(t, "1500.00", total.String())
	assert.Equal(t, "05/03/2024", rec.ExtractedFields[invoiceModel.FieldDate].String())
	assert.Equal(t, "20-12345678-9", rec.ExtractedFields[invoiceModel.FieldTaxID].String())

	got, err := records.QueryByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, invoiceModel.FieldsEqual(rec.ExtractedFields, got[0].ExtractedFields))
}

func TestProcessTwiceKeepsOneRecord(t *testing.T) {
	reader := &MockReader{OnRead: func(ctx context.Context, ref invoiceModel.DocumentRef) (invoiceModel.Document, error) {
		return textDoc("Total 99,90"), nil
	}}
	records := store.InitInMemoryRecordStore()
	p := NewProcessor(reader, records)
	ctx := context.Background()
	ref := invoiceModel.DocumentRef{Bucket: "b", Key: "bob/x.pdf", OwnerID: "bob"}

	first, err := p.Process(ctx, ref)
	require.NoError(t, err)
	second, err := p.Process(ctx, ref)
	require.NoError(t, err)
	assert.True(t, invoiceModel.FieldsEqual(first.ExtractedFields, second.ExtractedFields))

	got, err := records.QueryByOwner(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestProcessWithoutOwnerOrFields(t *testing.T) {
	reader := &MockReader{OnRead: func(ctx context.Context, ref invoiceModel.DocumentRef) (invoiceModel.Document, error) {
		return textDoc("nothing useful here"), nil
	}}
	p := NewProcessor(reader, store.InitInMemoryRecordStore())

	rec, err := p.Process(context.Background(), invoiceModel.DocumentRef{Bucket: "b", Key: "loose.pdf"})
	require.NoError(t, err)
	assert.Empty(t, rec.OwnerID)
	assert.NotNil(t, rec.ExtractedFields)
	assert.Empty(t, rec.ExtractedFields)
}

func TestProcessUnreadableDocument(t *testing.T) {
	reader := &MockReader{OnRead: func(ctx context.Context, ref invoiceModel.DocumentRef) (invoiceModel.Document, error) {
		return invoiceModel.Document{}, &invoiceModel.ReadError{Kind: invoiceModel.TooSmall, Key: ref.Key, Size: 50}
	}}
	upserts := 0
	p := NewProcessor(reader, &MockRecordStore{OnUpsert: func(ctx context.Context, r invoiceModel.InvoiceRecord) error {
		upserts++
		return nil
	}})

	_, err := p.Process(context.Background(), invoiceModel.DocumentRef{Bucket: "b", Key: "alice/tiny.pdf", OwnerID: "alice"})
	require.Error(t, err)

	var pe *invoiceModel.ProcessError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, invoiceModel.UnreadableDocument, pe.Kind)
	assert.True(t, pe.Permanent())
	assert.True(t, errors.Is(err, invoiceModel.ErrTooSmall))
	assert.Zero(t, upserts, "nothing is stored for an unreadable document")
}

func TestProcessUnavailableDocumentIsTransient(t *testing.T) {
	reader := &MockReader{OnRead: func(ctx context.Context, ref invoiceModel.DocumentRef) (invoiceModel.Document, error) {
		return invoiceModel.Document{}, &invoiceModel.ReadError{Kind: invoiceModel.Unavailable, Key: ref.Key, Cause: errors.New("503")}
	}}
	p := NewProcessor(reader, store.InitInMemoryRecordStore())

	_, err := p.Process(context.Background(), invoiceModel.DocumentRef{Bucket: "b", Key: "a/b.pdf"})
	var pe *invoiceModel.ProcessError
	require.True(t, errors.As(err, &pe))
	assert.False(t, pe.Permanent())
}

func TestProcessStoreFailure(t *testing.T) {
	reader := &MockReader{OnRead: func(ctx context.Context, ref invoiceModel.DocumentRef) (invoiceModel.Document, error) {
		return textDoc("Total 10,00"), nil
	}}
	p := NewProcessor(reader, &MockRecordStore{OnUpsert: func(ctx context.Context, r invoiceModel.InvoiceRecord) error {
		return invoiceModel.NewStoreError("upsert", r.StorageKey, errors.New("connection refused"))
	}})

	_, err := p.Process(context.Background(), invoiceModel.DocumentRef{Bucket: "b", Key: "a/b.pdf", OwnerID: "a"})
	var pe *invoiceModel.ProcessError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, invoiceModel.StoreFailure, pe.Kind)
	assert.False(t, pe.Permanent())
	assert.True(t, errors.Is(err, invoiceModel.ErrStoreUnavailable))
}
