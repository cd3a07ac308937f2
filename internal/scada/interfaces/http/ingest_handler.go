package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"wellpulse/internal/observability/metrics"
	scadaapp "wellpulse/internal/scada/application"
	scada "wellpulse/internal/scada/domain"
)

// IngestHandler accepts readings and status reports from the external OPC-UA
// ingestion client. The HMAC ingest middleware authenticates these routes, so
// the tenant rides in the payload rather than a JWT.
type IngestHandler struct {
	connections  *scadaapp.ConnectionService
	tags         *scadaapp.TagMappingService
	maxBatchSize int
}

// NewIngestHandler constructs an ingest handler.
func NewIngestHandler(connections *scadaapp.ConnectionService, tags *scadaapp.TagMappingService, maxBatchSize int) (*IngestHandler, error) {
	if connections == nil {
		return nil, errors.New("ingest handler: nil connection service")
	}
	if tags == nil {
		return nil, errors.New("ingest handler: nil tag mapping service")
	}
	if maxBatchSize <= 0 {
		maxBatchSize = 100
	}
	return &IngestHandler{connections: connections, tags: tags, maxBatchSize: maxBatchSize}, nil
}

// ServeHTTP handles /ingest/scada/readings and /ingest/scada/status.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch r.URL.Path {
	case "/ingest/scada/readings":
		h.handleReadings(w, r)
	case "/ingest/scada/status":
		h.handleStatus(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type ingestReading struct {
	NodeID    string `json:"nodeId"`
	Value     any    `json:"value"`
	Quality   string `json:"quality"`
	Timestamp string `json:"timestamp"`
}

type readingsRequest struct {
	TenantID     string          `json:"tenantId"`
	ConnectionID string          `json:"connectionId"`
	Readings     []ingestReading `json:"readings"`
}

func (h *IngestHandler) handleReadings(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req readingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.IncIngestError("bad_json")
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.TenantID == "" || req.ConnectionID == "" {
		metrics.IncIngestError("missing_identity")
		http.Error(w, "tenantId and connectionId are required", http.StatusBadRequest)
		return
	}
	if len(req.Readings) == 0 {
		metrics.IncIngestError("empty_batch")
		http.Error(w, "readings are required", http.StatusBadRequest)
		return
	}
	if len(req.Readings) > h.maxBatchSize {
		metrics.IncIngestError("batch_too_large")
		http.Error(w, fmt.Sprintf("batch exceeds %d readings", h.maxBatchSize), http.StatusBadRequest)
		return
	}

	inputs := make([]scadaapp.ReadingInput, 0, len(req.Readings))
	for _, reading := range req.Readings {
		value, err := parseTagValue(reading.Value)
		if err != nil {
			metrics.IncIngestError("bad_value")
			http.Error(w, fmt.Sprintf("node %s: %v", reading.NodeID, err), http.StatusBadRequest)
			return
		}
		at, err := parseIngestTimestamp(reading.Timestamp)
		if err != nil {
			metrics.IncIngestError("bad_timestamp")
			http.Error(w, fmt.Sprintf("node %s: %v", reading.NodeID, err), http.StatusBadRequest)
			return
		}
		inputs = append(inputs, scadaapp.ReadingInput{
			NodeID:  reading.NodeID,
			Value:   value,
			Quality: reading.Quality,
			At:      at,
		})
	}

	result, err := h.tags.RecordReadings(r.Context(), req.TenantID, req.ConnectionID, inputs)
	if err != nil {
		if errors.Is(err, scada.ErrConnectionNotFound) {
			metrics.ObserveIngest(metrics.ResultError, time.Since(start))
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		metrics.ObserveIngest(metrics.ResultError, time.Since(start))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	metrics.ObserveIngest(metrics.ResultSuccess, time.Since(start))
	respondJSON(w, http.StatusOK, result)
}

type statusRequest struct {
	TenantID     string `json:"tenantId"`
	ConnectionID string `json:"connectionId"`
	State        string `json:"state"`
	Message      string `json:"message"`
}

func (h *IngestHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.IncIngestError("bad_json")
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.TenantID == "" || req.ConnectionID == "" || req.State == "" {
		metrics.IncIngestError("missing_identity")
		http.Error(w, "tenantId, connectionId and state are required", http.StatusBadRequest)
		return
	}

	view, err := h.connections.ReportStatus(r.Context(), scadaapp.ReportStatusInput{
		TenantID:     req.TenantID,
		ConnectionID: req.ConnectionID,
		State:        req.State,
		Message:      req.Message,
	})
	if err != nil {
		switch {
		case errors.Is(err, scada.ErrConnectionNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, scada.ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// parseTagValue maps a JSON scalar onto a tag value. JSON numbers arrive as
// float64; anything else is rejected.
func parseTagValue(raw any) (scada.TagValue, error) {
	switch v := raw.(type) {
	case float64:
		return scada.NumericValue(v), nil
	case string:
		return scada.StringValue(v), nil
	case bool:
		return scada.BoolValue(v), nil
	case nil:
		return scada.TagValue{}, errors.New("value is required")
	default:
		return scada.TagValue{}, fmt.Errorf("unsupported value type %T", raw)
	}
}

func parseIngestTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, errors.New("timestamp must be RFC3339")
	}
	return parsed.UTC(), nil
}
