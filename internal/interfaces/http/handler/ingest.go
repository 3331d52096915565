package handler

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appingest "github.com/forecast/ingestion/internal/application/ingest"
	"github.com/forecast/ingestion/internal/domain/ingest"
	"github.com/forecast/ingestion/internal/infrastructure/crypto"
	"github.com/forecast/ingestion/internal/infrastructure/logger"
	"github.com/forecast/ingestion/internal/interfaces/http/dto"
)

// Ingestor runs one batch end to end
type Ingestor interface {
	Ingest(ctx context.Context, dataType string, records []ingest.RawRecord) (*appingest.BatchResult, error)
}

// IngestHandler receives agent batches. When an envelope is configured, the
// batch must arrive sealed; clear-text bodies are accepted only when no
// encryption key is set.
type IngestHandler struct {
	BaseHandler
	service  Ingestor
	envelope *crypto.Envelope
}

// NewIngestHandler creates a new IngestHandler. envelope may be nil.
func NewIngestHandler(service Ingestor, envelope *crypto.Envelope) *IngestHandler {
	return &IngestHandler{
		service:  service,
		envelope: envelope,
	}
}

// Ingest handles POST /api/v1/ingest
func (h *IngestHandler) Ingest(c *gin.Context) {
	var req dto.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, dto.GetHTTPStatus(dto.ErrCodeInvalidJSON), dto.ErrCodeInvalidJSON, "Invalid JSON in request body")
		return
	}

	dataType, records, ok := h.unwrap(c, &req)
	if !ok {
		return
	}

	result, err := h.service.Ingest(c.Request.Context(), dataType, records)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// unwrap extracts data type and records from either the sealed envelope or
// the clear-text body. On failure the error response has been written.
func (h *IngestHandler) unwrap(c *gin.Context, req *dto.IngestRequest) (string, []ingest.RawRecord, bool) {
	log := logger.FromContext(c.Request.Context())

	if req.EncryptedPayload != "" {
		if h.envelope == nil {
			h.ErrorWithCode(c, dto.ErrCodeInvalidPayload, "Encrypted payloads are not accepted, no encryption key configured")
			return "", nil, false
		}
		plaintext, err := h.envelope.Open(req.EncryptedPayload)
		if err != nil {
			log.Warn("Rejected payload that failed authentication")
			h.ErrorWithCode(c, dto.ErrCodeInvalidPayload, "Payload could not be authenticated")
			return "", nil, false
		}
		var payload dto.IngestPayload
		if err := json.Unmarshal(plaintext, &payload); err != nil {
			h.ErrorWithCode(c, dto.ErrCodeInvalidPayload, "Decrypted payload is not valid JSON")
			return "", nil, false
		}
		return payload.DataType, toRawRecords(payload.Records), true
	}

	if h.envelope != nil {
		log.Warn("Rejected clear-text batch, encryption is required",
			zap.String("data_type", req.DataType))
		h.ErrorWithCode(c, dto.ErrCodeInvalidPayload, "Batches must be sent as an encrypted payload")
		return "", nil, false
	}
	if req.DataType == "" {
		h.BadRequest(c, "data_type is required")
		return "", nil, false
	}
	return req.DataType, toRawRecords(req.Records), true
}

func toRawRecords(records []map[string]any) []ingest.RawRecord {
	raw := make([]ingest.RawRecord, len(records))
	for i, r := range records {
		raw[i] = ingest.RawRecord(r)
	}
	return raw
}
