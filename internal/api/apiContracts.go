package api

import "github.com/fhiba/2025Q2-G4/internal/domain/invoiceModel"

type ErrorResponse struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"key is required"`
	TraceId string `json:"trace_id,omitempty" example:"8f0c2f9e-5f3a-4c1e-9d43-0d2f3b7e6a11"`
}

// requests---------------------

type UploadRecord struct {
	Bucket string `json:"bucket" example:"invoices-upload"`
	Key    string `json:"key" example:"alice/2025/factura-0001.pdf"`
}

type UploadNotificationRequest struct {
	Records []UploadRecord `json:"records"`
}

// StorageObjectData is the payload of a storage "object finalized" CloudEvent.
type StorageObjectData struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
	Size   string `json:"size,omitempty"`
}

// ProcessRequest invokes the extraction directly. OwnerID defaults to the
// first segment of Key.
type ProcessRequest struct {
	Bucket  string `json:"bucket" validate:"required"`
	Key     string `json:"key" validate:"required"`
	OwnerID string `json:"ownerId,omitempty"`
}

type PatchFieldsRequest struct {
	Updates map[string]invoiceModel.FieldValue `json:"updates" swaggertype:"object"`
}

// responses--------------------

type FailedNotification struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

type BatchResponse struct {
	Enqueued int                  `json:"enqueued" example:"3"`
	Failed   []FailedNotification `json:"failed,omitempty"`
}

type InvoiceResponse struct {
	StorageKey      string                             `json:"storageKey" example:"alice/2025/factura-0001.pdf"`
	OwnerID         string                             `json:"ownerId,omitempty" example:"alice"`
	GroupKey        string                             `json:"groupKey" example:"group_key"`
	ExtractedFields map[string]invoiceModel.FieldValue `json:"extractedFields" swaggertype:"object"`
	FileSizeBytes   int64                              `json:"fileSizeBytes" example:"48213"`
	TextLength      int64                              `json:"textLength" example:"1532"`
}

// ReportRow carries the reporting fields of one invoice. Missing fields are null.
type ReportRow struct {
	StorageKey    string                   `json:"storageKey"`
	Date          *invoiceModel.FieldValue `json:"date" swaggertype:"string"`
	Total         *invoiceModel.FieldValue `json:"total" swaggertype:"string"`
	Vendor        *invoiceModel.FieldValue `json:"vendor" swaggertype:"string"`
	TaxID         *invoiceModel.FieldValue `json:"taxId" swaggertype:"string"`
	TextLength    int64                    `json:"textLength"`
	FileSizeBytes int64                    `json:"fileSizeBytes"`
}

type ReportResponse struct {
	Owner    string      `json:"owner" example:"alice"`
	Invoices []ReportRow `json:"invoices"`
}

type PatchFieldsResponse struct {
	Message string          `json:"message" example:"invoice updated"`
	Record  InvoiceResponse `json:"record"`
}

type HealthResponse struct {
	Status string            `json:"status" example:"ok"`
	Checks map[string]string `json:"checks,omitempty"`
}
