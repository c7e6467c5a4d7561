package trigger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhiba/2025Q2-G4/internal/domain/invoiceModel"
)

type mockEnqueuer struct {
	mu        sync.Mutex
	items     []invoiceModel.WorkItem
	OnEnqueue func(item invoiceModel.WorkItem) error
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, item invoiceModel.WorkItem) error {
	if m.OnEnqueue != nil {
		if err := m.OnEnqueue(item); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, item)
	return nil
}

func (m *mockEnqueuer) byKey() map[string]invoiceModel.WorkItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]invoiceModel.WorkItem{}
	for _, it := range m.items {
		out[it.Ref.Key] = it
	}
	return out
}

func TestOwnerFromKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"alice/doc1.pdf", "alice"},
		{"alice/2025/03/doc1.pdf", "alice"},
		{"doc1.pdf", ""},
		{"/doc1.pdf", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := OwnerFromKey(tt.key); got != tt.want {
			t.Errorf("OwnerFromKey(%q) = %q; want %q", tt.key, got, tt.want)
		}
	}
}

func TestOneWorkItemPerNotification(t *testing.T) {
	q := &mockEnqueuer{}
	tr := New(q, 2)

	res := tr.OnUploadNotification(context.Background(), []Notification{
		{Bucket: "invoices", Key: "alice/doc1.pdf"},
		{Bucket: "invoices", Key: "bob/doc2.pdf"},
		{Bucket: "invoices", Key: "doc3.pdf"},
	})
	assert.Equal(t, 3, res.Enqueued)
	assert.Empty(t, res.Failed)

	items := q.byKey()
	require.Len(t, items, 3)
	assert.Equal(t, "alice", items["alice/doc1.pdf"].Ref.OwnerID)
	assert.Equal(t, "bob", items["bob/doc2.pdf"].Ref.OwnerID)
	assert.False(t, items["doc3.pdf"].Ref.HasOwner())
	assert.Equal(t, "invoices", items["doc3.pdf"].Ref.Bucket)
	assert.NotEqual(t, items["alice/doc1.pdf"].Id, items["bob/doc2.pdf"].Id)
	assert.Zero(t, items["alice/doc1.pdf"].Attempt)
}

func TestFailedEnqueueDoesNotBlockSiblings(t *testing.T) {
	q := &mockEnqueuer{OnEnqueue: func(item invoiceModel.WorkItem) error {
		if item.Ref.Key == "bob/broken.pdf" {
			return errors.New("queue unavailable")
		}
		return nil
	}}
	tr := New(q, 1)

	res := tr.OnUploadNotification(context.Background(), []Notification{
		{Bucket: "b", Key: "alice/a.pdf"},
		{Bucket: "b", Key: "bob/broken.pdf"},
		{Bucket: "b", Key: "carol/c.pdf"},
	})
	assert.Equal(t, 2, res.Enqueued)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "bob/broken.pdf", res.Failed[0].Key)
	assert.Contains(t, res.Failed[0].Error, "queue unavailable")

	items := q.byKey()
	assert.Contains(t, items, "alice/a.pdf")
	assert.Contains(t, items, "carol/c.pdf")
}

func TestEmptyBatch(t *testing.T) {
	res := New(&mockEnqueuer{}, 0).OnUploadNotification(context.Background(), nil)
	assert.Equal(t, BatchResult{}, res)
}
