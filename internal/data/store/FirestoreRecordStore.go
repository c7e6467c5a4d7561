package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fhiba/2025Q2-G4/internal/config"
	"github.com/fhiba/2025Q2-G4/internal/domain/invoiceModel"
	"github.com/fhiba/2025Q2-G4/pkg/logger_i"
)

const recordsSubcollection = "records"

// FirestoreRecordStore lays records out as
// <collection>/<escaped storage key>/records/META#1 and answers owner
// queries with a collection group query on ownerId.
type FirestoreRecordStore struct {
	client     *firestore.Client
	collection string
	logger     *logger_i.Logger
}

type firestoreRecord struct {
	StorageKey    string            `firestore:"storageKey"`
	SortKey       string            `firestore:"sk"`
	OwnerID       string            `firestore:"ownerId,omitempty"`
	GroupKey      string            `firestore:"groupKey"`
	Fields        map[string]string `firestore:"extractedFields"`
	DecimalFields []string          `firestore:"decimalFields"`
	FileSizeBytes int64             `firestore:"fileSizeBytes"`
	TextLength    int64             `firestore:"textLength"`
}

// NewFirestoreClient creates a client for projectID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return client, nil
}

func NewFirestoreRecordStore(client *firestore.Client, collection string) *FirestoreRecordStore {
	if collection == "" {
		collection = config.FirestoreCollection
	}
	return &FirestoreRecordStore{
		client:     client,
		collection: collection,
		logger:     logger_i.NewLogger("Firestore RecordStore"),
	}
}

func (s *FirestoreRecordStore) docRef(storageKey string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).
		Doc(url.PathEscape(storageKey)).
		Collection(recordsSubcollection).
		Doc(invoiceModel.MetadataSortKey)
}

func (s *FirestoreRecordStore) Upsert(ctx context.Context, record invoiceModel.InvoiceRecord) error {
	if _, err := s.docRef(record.StorageKey).Set(ctx, toFirestore(record)); err != nil {
		s.logger.Error("upsert failed", "storageKey", record.StorageKey, "error", err)
		return invoiceModel.NewStoreError("upsert", record.StorageKey, err)
	}
	return nil
}

func (s *FirestoreRecordStore) QueryByOwner(ctx context.Context, ownerID string) ([]invoiceModel.InvoiceRecord, error) {
	records := []invoiceModel.InvoiceRecord{}
	if ownerID == "" {
		return records, nil
	}
	iter := s.client.CollectionGroup(recordsSubcollection).Where("ownerId", "==", ownerID).Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, invoiceModel.NewStoreError("query", ownerID, err)
		}
		var doc firestoreRecord
		if err := snap.DataTo(&doc); err != nil {
			s.logger.Warn("skipping undecodable record", "path", snap.Ref.Path, "error", err)
			continue
		}
		records = append(records, fromFirestore(doc))
	}
	return records, nil
}

func (s *FirestoreRecordStore) GetRecord(ctx context.Context, storageKey string) (invoiceModel.InvoiceRecord, error) {
	snap, err := s.docRef(storageKey).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return invoiceModel.InvoiceRecord{}, invoiceModel.ErrRecordNotFound
	}
	if err != nil {
		return invoiceModel.InvoiceRecord{}, invoiceModel.NewStoreError("get", storageKey, err)
	}
	var doc firestoreRecord
	if err := snap.DataTo(&doc); err != nil {
		return invoiceModel.InvoiceRecord{}, fmt.Errorf("decode record %s: %w", storageKey, err)
	}
	return fromFirestore(doc), nil
}

func (s *FirestoreRecordStore) PatchFields(ctx context.Context, storageKey string, fields map[string]invoiceModel.FieldValue) (invoiceModel.InvoiceRecord, error) {
	ref := s.docRef(storageKey)
	var updated invoiceModel.InvoiceRecord
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return invoiceModel.ErrRecordNotFound
		}
		if err != nil {
			return err
		}
		var doc firestoreRecord
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode record %s: %w", storageKey, err)
		}
		rec := fromFirestore(doc)
		rec.ExtractedFields = mergeFields(rec.ExtractedFields, fields)
		if err := tx.Set(ref, toFirestore(rec)); err != nil {
			return err
		}
		updated = rec
		return nil
	})
	switch {
	case err == nil:
		return updated, nil
	case errors.Is(err, invoiceModel.ErrRecordNotFound):
		return invoiceModel.InvoiceRecord{}, err
	default:
		return invoiceModel.InvoiceRecord{}, invoiceModel.NewStoreError("patch", storageKey, err)
	}
}

// Firestore has no exact decimal type, so decimals are stored as text and
// listed in decimalFields.
func toFirestore(r invoiceModel.InvoiceRecord) firestoreRecord {
	doc := firestoreRecord{
		StorageKey:    r.StorageKey,
		SortKey:       invoiceModel.MetadataSortKey,
		OwnerID:       r.OwnerID,
		GroupKey:      r.GroupKey,
		Fields:        make(map[string]string, len(r.ExtractedFields)),
		DecimalFields: []string{},
		FileSizeBytes: r.FileSizeBytes,
		TextLength:    r.TextLength,
	}
	for k, v := range r.ExtractedFields {
		doc.Fields[k] = v.String()
		if v.IsDecimal() {
			doc.DecimalFields = append(doc.DecimalFields, k)
		}
	}
	sort.Strings(doc.DecimalFields)
	return doc
}

func fromFirestore(doc firestoreRecord) invoiceModel.InvoiceRecord {
	decimals := make(map[string]bool, len(doc.DecimalFields))
	for _, k := range doc.DecimalFields {
		decimals[k] = true
	}
	fields := make(map[string]invoiceModel.FieldValue, len(doc.Fields))
	for k, v := range doc.Fields {
		if decimals[k] {
			fields[k] = invoiceModel.ParseNumeric(v)
			continue
		}
		fields[k] = invoiceModel.TextValue(v)
	}
	return invoiceModel.InvoiceRecord{
		StorageKey:      doc.StorageKey,
		OwnerID:         doc.OwnerID,
		GroupKey:        doc.GroupKey,
		ExtractedFields: fields,
		FileSizeBytes:   doc.FileSizeBytes,
		TextLength:      doc.TextLength,
	}
}
