package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/vehicle-ingest/internal/ingest"
	"github.com/ukydev/vehicle-ingest/internal/logging"
	"github.com/ukydev/vehicle-ingest/internal/models"
	"github.com/ukydev/vehicle-ingest/internal/schema"
)

// MaxBodyBytes bounds a single request body.
const MaxBodyBytes = 10 << 20

// ServiceName is reported by the health endpoint.
const ServiceName = "Vehicle Data API"

// Ingester is what the handlers need from the ingestion service.
type Ingester interface {
	Ingest(ctx context.Context, e schema.Entity, rec models.Payload) (*ingest.Ack, error)
}

// IngestHandler serves the add_* endpoints.
type IngestHandler struct {
	svc Ingester
	log log.FieldLogger
}

// NewIngestHandler creates a new ingestion handler
func NewIngestHandler(svc Ingester, logger log.FieldLogger) *IngestHandler {
	return &IngestHandler{svc: svc, log: logger}
}

// Path returns the endpoint path of e.
func Path(e schema.Entity) string {
	return "/add_" + string(e)
}

// Register mounts the health endpoint and one POST endpoint per entity.
func (h *IngestHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Health)
	for _, e := range schema.Entities() {
		mux.HandleFunc("POST "+Path(e), h.Add(e))
	}
}

// Health reports liveness and lists the ingestion endpoints.
func (h *IngestHandler) Health(w http.ResponseWriter, r *http.Request) {
	entities := schema.Entities()
	endpoints := make([]string, len(entities))
	for i, e := range entities {
		endpoints[i] = Path(e)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"service":   ServiceName,
		"endpoints": endpoints,
	})
}

// Add returns the handler ingesting one record of entity e.
func (h *IngestHandler) Add(e schema.Entity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := logging.FromContext(r.Context(), h.log).WithField("entity", e)

		rec, err := models.DecodePayload(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			switch {
			case errors.As(err, &tooLarge):
				writeDetail(w, http.StatusRequestEntityTooLarge, "Request body too large")
			case errors.Is(err, models.ErrNotObject):
				writeDetail(w, http.StatusUnprocessableEntity, err.Error())
			default:
				writeDetail(w, http.StatusBadRequest, "Invalid JSON")
			}
			return
		}

		ack, err := h.svc.Ingest(r.Context(), e, rec)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		resp := make(map[string]any, len(ack.Key)+1)
		for k, v := range ack.Key {
			resp[k] = v
		}
		resp["message"] = ack.Message
		writeJSON(w, http.StatusOK, resp)
	}
}

// writeError maps ingestion errors to status codes. Store failures are
// logged with their cause and reported opaquely.
func writeError(w http.ResponseWriter, logger log.FieldLogger, err error) {
	var (
		cie *ingest.ClientInputError
		dup *ingest.DuplicateError
	)
	switch {
	case errors.As(err, &cie):
		logger.WithError(err).Warn("record rejected")
		writeDetail(w, http.StatusUnprocessableEntity, cie.Error())
	case errors.As(err, &dup):
		logger.WithError(err).Warn("duplicate record")
		writeDetail(w, http.StatusConflict, dup.Error())
	default:
		logger.WithError(err).Error("ingestion failed")
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
