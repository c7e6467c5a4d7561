package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/fhiba/2025Q2-G4/internal/adapter"
	"github.com/fhiba/2025Q2-G4/internal/api"
	"github.com/fhiba/2025Q2-G4/internal/config"
	"github.com/fhiba/2025Q2-G4/internal/domain/invoiceModel"
	"github.com/fhiba/2025Q2-G4/internal/trigger"
	"github.com/fhiba/2025Q2-G4/pkg/logger_i"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type BatchTrigger interface {
	OnUploadNotification(ctx context.Context, batch []trigger.Notification) trigger.BatchResult
}

type Processor interface {
	Process(ctx context.Context, ref invoiceModel.DocumentRef) (invoiceModel.InvoiceRecord, error)
}

type Records interface {
	invoiceModel.RecordStore
	invoiceModel.RecordPatcher
}

type HealthCheck func(ctx context.Context) error

type Dependencies struct {
	Trigger      BatchTrigger
	Processor    Processor
	Records      Records
	HealthChecks map[string]HealthCheck
}

type Handler struct {
	trigger      BatchTrigger
	processor    Processor
	records      Records
	checks       map[string]HealthCheck
	uploadSchema *jsonschema.Schema
	logger       *logger_i.Logger
}

func NewHandler(deps Dependencies) (*Handler, error) {
	schema, err := compileUploadSchema()
	if err != nil {
		return nil, fmt.Errorf("compile upload schema: %w", err)
	}
	return &Handler{
		trigger:      deps.Trigger,
		processor:    deps.Processor,
		records:      deps.Records,
		checks:       deps.HealthChecks,
		uploadSchema: schema,
		logger:       logger_i.NewLogger("RequestHandler"),
	}, nil
}

// GetHealth godoc
// @Summary      Liveness and dependency check
// @Tags         Health
// @Produce      json
// @Success      200  {object}  api.HealthResponse
// @Failure      503  {object}  api.HealthResponse
// @Router       /healthz [get]
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	res := api.HealthResponse{Status: "ok"}
	status := http.StatusOK
	for name, check := range h.checks {
		if res.Checks == nil {
			res.Checks = map[string]string{}
		}
		if err := check(r.Context()); err != nil {
			h.logger.Warn("health check failed", "check", name, "error", err)
			res.Checks[name] = err.Error()
			res.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		res.Checks[name] = "ok"
	}
	writeJsonResponse(w, status, res)
}

// PostUploadNotifications godoc
// @Summary      Enqueue uploaded objects
// @Description  Accepts a batch of upload-complete notifications and queues one work item per object. Nothing is read or stored synchronously.
// @Tags         Ingestion
// @Accept       json
// @Produce      json
// @Param        request  body      api.UploadNotificationRequest  true  "Uploaded objects"
// @Success      202      {object}  api.BatchResponse   "Items queued, failures listed per key"
// @Failure      400      {object}  api.ErrorResponse   "Batch does not match the schema"
// @Failure      503      {object}  api.BatchResponse   "No item could be queued"
// @Router       /notifications/uploads [post]
func (h *Handler) PostUploadNotifications(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, config.MaxRequestBytes))
	if err != nil {
		WriteErrorResponse(w, r, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	if err := validateAgainst(h.uploadSchema, body); err != nil {
		h.logger.Warn("rejected upload batch", "traceId", traceFrom(r.Context()), "error", err)
		WriteErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req api.UploadNotificationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		WriteErrorResponse(w, r, http.StatusBadRequest, "Bad Request")
		return
	}

	res := h.trigger.OnUploadNotification(r.Context(), adapter.ToNotifications(req.Records))
	status := http.StatusAccepted
	if res.Enqueued == 0 && len(res.Failed) > 0 {
		status = http.StatusServiceUnavailable
	}
	writeJsonResponse(w, status, adapter.ToBatchResponse(res))
}

// PostCloudEvent godoc
// @Summary      Enqueue an uploaded object from a storage CloudEvent
// @Description  Binary or structured CloudEvent whose data is a storage object with bucket and name.
// @Tags         Ingestion
// @Accept       json
// @Produce      json
// @Success      202  {object}  api.BatchResponse
// @Failure      400  {object}  api.ErrorResponse  "Not a CloudEvent or no object in the data"
// @Failure      503  {object}  api.BatchResponse  "Item could not be queued"
// @Router       /notifications/cloudevents [post]
func (h *Handler) PostCloudEvent(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxRequestBytes)
	event, err := cloudevents.NewEventFromHTTPRequest(r)
	if err != nil {
		WriteErrorResponse(w, r, http.StatusBadRequest, "not a cloudevent: "+err.Error())
		return
	}
	var data api.StorageObjectData
	if err := event.DataAs(&data); err != nil || data.Bucket == "" || data.Name == "" {
		h.logger.Warn("cloudevent without storage object", "traceId", traceFrom(r.Context()), "eventId", event.ID(), "type", event.Type())
		WriteErrorResponse(w, r, http.StatusBadRequest, "event data must carry bucket and name")
		return
	}

	res := h.trigger.OnUploadNotification(r.Context(), []trigger.Notification{{Bucket: data.Bucket, Key: data.Name}})
	status := http.StatusAccepted
	if len(res.Failed) > 0 {
		status = http.StatusServiceUnavailable
	}
	writeJsonResponse(w, status, adapter.ToBatchResponse(res))
}

// PostProcess godoc
// @Summary      Process one document synchronously
// @Description  Reads the object, extracts its fields and upserts the record, returning it.
// @Tags         Ingestion
// @Accept       json
// @Produce      json
// @Param        request  body      api.ProcessRequest     true  "Object to process"
// @Success      200      {object}  api.InvoiceResponse
// @Failure      400      {object}  api.ErrorResponse  "Missing bucket or key"
// @Failure      422      {object}  api.ErrorResponse  "Document too small or malformed"
// @Failure      502      {object}  api.ErrorResponse  "Object could not be fetched"
// @Failure      503      {object}  api.ErrorResponse  "Record store unavailable"
// @Router       /invoices/process [post]
func (h *Handler) PostProcess(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	var req api.ProcessRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, config.MaxRequestBytes)).Decode(&req); err != nil || req.Bucket == "" || req.Key == "" {
		WriteErrorResponse(w, r, http.StatusBadRequest, "bucket and key are required")
		return
	}

	ref := trigger.RefFor(req.Bucket, req.Key)
	if req.OwnerID != "" {
		ref.OwnerID = req.OwnerID
	}
	record, err := h.processor.Process(r.Context(), ref)
	if err != nil {
		WriteErrorResponse(w, r, statusForProcessError(err), err.Error())
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToInvoiceResponse(record))
}

// GetInvoices godoc
// @Summary      Report of the caller's invoices
// @Description  The owner comes from the token claims, or the username parameter when no token is sent.
// @Tags         Invoices
// @Produce      json
// @Param        username  query     string  false  "Owner when no token is present"
// @Success      200       {object}  api.ReportResponse
// @Failure      400       {object}  api.ErrorResponse
// @Failure      503       {object}  api.ErrorResponse
// @Router       /invoices [get]
func (h *Handler) GetInvoices(w http.ResponseWriter, r *http.Request) {
	owner, records, ok := h.ownerRecords(w, r)
	if !ok {
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToReport(owner, records))
}

// GetExportCSV godoc
// @Summary      CSV export of the caller's invoices
// @Tags         Invoices
// @Produce      text/csv
// @Param        username  query     string  false  "Owner when no token is present"
// @Success      200       {file}    file
// @Failure      400       {object}  api.ErrorResponse
// @Router       /invoices/export.csv [get]
func (h *Handler) GetExportCSV(w http.ResponseWriter, r *http.Request) {
	owner, records, ok := h.ownerRecords(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := adapter.WriteCSV(&buf, records); err != nil {
		h.logger.Error("csv export failed", "ownerId", owner, "error", err)
		WriteErrorResponse(w, r, http.StatusInternalServerError, "export failed")
		return
	}
	writeAttachment(w, "text/csv", fmt.Sprintf("export_%s.csv", owner), buf.Bytes())
}

// GetExportXLSX godoc
// @Summary      Spreadsheet export of the caller's invoices
// @Tags         Invoices
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        username  query     string  false  "Owner when no token is present"
// @Success      200       {file}    file
// @Failure      400       {object}  api.ErrorResponse
// @Router       /invoices/export.xlsx [get]
func (h *Handler) GetExportXLSX(w http.ResponseWriter, r *http.Request) {
	owner, records, ok := h.ownerRecords(w, r)
	if !ok {
		return
	}
	data, err := adapter.BuildXLSX(records)
	if err != nil {
		h.logger.Error("xlsx export failed", "ownerId", owner, "error", err)
		WriteErrorResponse(w, r, http.StatusInternalServerError, "export failed")
		return
	}
	writeAttachment(w, xlsxContentType, fmt.Sprintf("export_%s.xlsx", owner), data)
}

// PatchFields godoc
// @Summary      Update extracted fields of one invoice
// @Description  Merges the given fields into extractedFields. Only the owner of the record may patch it.
// @Tags         Invoices
// @Accept       json
// @Produce      json
// @Param        key      query     string                  true  "Storage key of the invoice"
// @Param        request  body      api.PatchFieldsRequest  true  "Fields to set"
// @Success      200      {object}  api.PatchFieldsResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      503      {object}  api.ErrorResponse
// @Router       /invoices/fields [patch]
func (h *Handler) PatchFields(w http.ResponseWriter, r *http.Request) {
	if !h.validateContext(r.Context()) {
		return
	}
	key := r.URL.Query().Get("key")
	if key == "" {
		WriteErrorResponse(w, r, http.StatusBadRequest, "key is required")
		return
	}
	owner := ownerFrom(r.Context())
	if owner == "" {
		WriteErrorResponse(w, r, http.StatusBadRequest, "missing username parameter or JWT claim")
		return
	}
	var req api.PatchFieldsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, config.MaxRequestBytes)).Decode(&req); err != nil || len(req.Updates) == 0 {
		WriteErrorResponse(w, r, http.StatusBadRequest, "updates are required")
		return
	}
	for name := range req.Updates {
		if name == "" {
			WriteErrorResponse(w, r, http.StatusBadRequest, "field names must not be empty")
			return
		}
	}

	existing, err := h.records.GetRecord(r.Context(), key)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	if existing.OwnerID != owner {
		// same answer as a missing record
		WriteErrorResponse(w, r, http.StatusNotFound, invoiceModel.ErrRecordNotFound.Error())
		return
	}

	updated, err := h.records.PatchFields(r.Context(), key, req.Updates)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.logger.Info("invoice fields patched", "traceId", traceFrom(r.Context()), "storageKey", key, "fields", len(req.Updates))
	writeJsonResponse(w, http.StatusOK, api.PatchFieldsResponse{Message: "invoice updated", Record: adapter.ToInvoiceResponse(updated)})
}

func (h *Handler) ownerRecords(w http.ResponseWriter, r *http.Request) (string, []invoiceModel.InvoiceRecord, bool) {
	if !h.validateContext(r.Context()) {
		return "", nil, false
	}
	owner := ownerFrom(r.Context())
	if owner == "" {
		WriteErrorResponse(w, r, http.StatusBadRequest, "missing username parameter or JWT claim")
		return "", nil, false
	}
	records, err := h.records.QueryByOwner(r.Context(), owner)
	if err != nil {
		h.writeStoreError(w, r, err)
		return "", nil, false
	}
	return owner, records, true
}

func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, invoiceModel.ErrRecordNotFound) {
		WriteErrorResponse(w, r, http.StatusNotFound, err.Error())
		return
	}
	h.logger.Error("record store failure", "traceId", traceFrom(r.Context()), "error", err)
	WriteErrorResponse(w, r, http.StatusServiceUnavailable, "record store unavailable")
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
