package http

import (
	"errors"
	"net/http"
	"time"

	"wellpulse/internal/auth"
	"wellpulse/internal/observability/metrics"
	scadaapp "wellpulse/internal/scada/application"
)

// ExportHandler serves the connection inventory as CSV, XLSX or PDF.
type ExportHandler struct {
	connections *scadaapp.ConnectionService
	tags        *scadaapp.TagMappingService
}

// NewExportHandler constructs an export handler.
func NewExportHandler(connections *scadaapp.ConnectionService, tags *scadaapp.TagMappingService) (*ExportHandler, error) {
	if connections == nil {
		return nil, errors.New("export handler: nil connection service")
	}
	if tags == nil {
		return nil, errors.New("export handler: nil tag mapping service")
	}
	return &ExportHandler{connections: connections, tags: tags}, nil
}

// ServeHTTP handles /api/v1/exports/connections.{csv,xlsx,pdf}.
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var format string
	switch r.URL.Path {
	case "/api/v1/exports/connections.csv":
		format = "csv"
	case "/api/v1/exports/connections.xlsx":
		format = "xlsx"
	case "/api/v1/exports/connections.pdf":
		format = "pdf"
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}

	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	start := time.Now()

	connections, err := h.connections.ListConnections(r.Context(), tenantID)
	if err != nil {
		metrics.ObserveExport(format, metrics.ResultError, time.Since(start))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var payload []byte
	var contentType, filename string
	switch format {
	case "csv":
		payload, err = BuildInventoryCSV(connections)
		contentType = "text/csv"
		filename = "connections.csv"
	case "xlsx":
		mappings := make(map[string][]scadaapp.TagMappingView, len(connections))
		for _, conn := range connections {
			views, tagErr := h.tags.ListTagMappings(r.Context(), tenantID, conn.ID)
			if tagErr != nil {
				err = tagErr
				break
			}
			mappings[conn.ID] = views
		}
		if err == nil {
			payload, err = BuildInventoryXLSX(connections, mappings)
		}
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		filename = "connections.xlsx"
	case "pdf":
		payload, err = BuildInventoryPDF(connections)
		contentType = "application/pdf"
		filename = "connections.pdf"
	}
	if err != nil {
		metrics.ObserveExport(format, metrics.ResultError, time.Since(start))
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	metrics.ObserveExport(format, metrics.ResultSuccess, time.Since(start))
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}
