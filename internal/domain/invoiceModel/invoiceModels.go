package invoiceModel

import (
	"context"
	"time"
)

const (
	// MetadataSortKey is the only sort key a record is written under.
	MetadataSortKey = "META#1"
	// DefaultGroupKey is written on every record until grouping exists.
	DefaultGroupKey = "group_key"

	FieldTotal  = "total"
	FieldDate   = "date"
	FieldTaxID  = "taxId"
	FieldVendor = "vendor"
)

// DocumentRef points at one uploaded object. OwnerID is empty when the key
// carries no owner prefix.
type DocumentRef struct {
	Bucket  string `json:"bucket"`
	Key     string `json:"key"`
	OwnerID string `json:"ownerId,omitempty"`
}

func (r DocumentRef) HasOwner() bool {
	return r.OwnerID != ""
}

type InvoiceRecord struct {
	StorageKey      string                `json:"storageKey"`
	OwnerID         string                `json:"ownerId,omitempty"`
	GroupKey        string                `json:"groupKey"`
	ExtractedFields map[string]FieldValue `json:"extractedFields"`
	FileSizeBytes   int64                 `json:"fileSizeBytes"`
	TextLength      int64                 `json:"textLength"`
}

// Document is the decoded content of one object.
type Document struct {
	Text          string
	FileSizeBytes int64
	TextLength    int64
	Pages         int
}

// WorkItem is what travels through the durable queue. Attempt counts
// deliveries already made, starting at zero.
type WorkItem struct {
	Id         string      `json:"id"`
	Ref        DocumentRef `json:"ref"`
	Attempt    int         `json:"attempt"`
	EnqueuedAt time.Time   `json:"enqueuedAt"`
	TraceId    string      `json:"traceId,omitempty"`
}

type DeadLetter struct {
	Item     WorkItem  `json:"item"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failedAt"`
}

type RecordStore interface {
	Upsert(ctx context.Context, record InvoiceRecord) error
	QueryByOwner(ctx context.Context, ownerID string) ([]InvoiceRecord, error)
}

// RecordPatcher backs the field patch contract. The record must already
// exist; fields are merged into ExtractedFields.
type RecordPatcher interface {
	GetRecord(ctx context.Context, storageKey string) (InvoiceRecord, error)
	PatchFields(ctx context.Context, storageKey string, fields map[string]FieldValue) (InvoiceRecord, error)
}
