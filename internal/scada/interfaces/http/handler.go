package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"wellpulse/internal/audit"
	"wellpulse/internal/auth"
	scadaapp "wellpulse/internal/scada/application"
	scada "wellpulse/internal/scada/domain"
)

const connectionsBasePath = "/api/v1/scada/connections"

// Handler provides SCADA connection and tag mapping HTTP endpoints.
type Handler struct {
	connections *scadaapp.ConnectionService
	tags        *scadaapp.TagMappingService
	auditor     audit.Logger
}

// NewHandler constructs a handler. The audit logger may be nil.
func NewHandler(connections *scadaapp.ConnectionService, tags *scadaapp.TagMappingService, auditor audit.Logger) (*Handler, error) {
	if connections == nil {
		return nil, errors.New("scada handler: nil connection service")
	}
	if tags == nil {
		return nil, errors.New("scada handler: nil tag mapping service")
	}
	return &Handler{connections: connections, tags: tags, auditor: auditor}, nil
}

// ServeHTTP handles /api/v1/scada/connections and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if r.URL.Path == connectionsBasePath {
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r, tenantID)
		case http.MethodPost:
			h.handleCreate(w, r, tenantID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, connectionsBasePath+"/")
	if rest == r.URL.Path {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 1:
		h.handleConnection(w, r, tenantID, parts[0])
	case len(parts) == 2 && (parts[1] == "enable" || parts[1] == "disable"):
		h.handleConnectionToggle(w, r, tenantID, parts[0], parts[1])
	case len(parts) == 2 && parts[1] == "tags":
		h.handleTags(w, r, tenantID, parts[0])
	case len(parts) == 4 && parts[1] == "tags" && (parts[3] == "enable" || parts[3] == "disable"):
		h.handleTagToggle(w, r, tenantID, parts[0], parts[2], parts[3])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request, tenantID string) {
	views, err := h.connections.ListConnections(r.Context(), tenantID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, views)
}

type endpointRequest struct {
	URL            string `json:"endpointUrl"`
	SecurityMode   string `json:"securityMode"`
	SecurityPolicy string `json:"securityPolicy"`
	Username       string `json:"username"`
	Password       string `json:"password"`
}

type createConnectionRequest struct {
	WellID              string `json:"wellId"`
	Name                string `json:"name"`
	Description         string `json:"description"`
	PollIntervalSeconds *int   `json:"pollIntervalSeconds"`
	endpointRequest
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request, tenantID string) {
	var req createConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	actor := auth.SubjectFromContext(r.Context())

	view, err := h.connections.CreateConnection(r.Context(), scadaapp.CreateConnectionInput{
		TenantID:            tenantID,
		WellID:              req.WellID,
		Name:                req.Name,
		Description:         req.Description,
		EndpointURL:         req.URL,
		SecurityMode:        req.SecurityMode,
		SecurityPolicy:      req.SecurityPolicy,
		Username:            req.Username,
		Password:            req.Password,
		PollIntervalSeconds: req.PollIntervalSeconds,
		Actor:               actor,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	h.logAudit(r, tenantID, "connection.create", audit.ResourceConnection, view.ID, view.WellID)
	respondJSON(w, http.StatusCreated, view)
}

type updateConnectionRequest struct {
	Name                *string          `json:"name"`
	Description         *string          `json:"description"`
	PollIntervalSeconds *int             `json:"pollIntervalSeconds"`
	Enabled             *bool            `json:"enabled"`
	Endpoint            *endpointRequest `json:"endpoint"`
}

func (h *Handler) handleConnection(w http.ResponseWriter, r *http.Request, tenantID, id string) {
	switch r.Method {
	case http.MethodGet:
		view, err := h.connections.GetConnection(r.Context(), tenantID, id)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, view)
	case http.MethodPatch:
		var req updateConnectionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		input := scadaapp.UpdateConnectionInput{
			Name:                req.Name,
			Description:         req.Description,
			PollIntervalSeconds: req.PollIntervalSeconds,
			Enabled:             req.Enabled,
			Actor:               auth.SubjectFromContext(r.Context()),
		}
		if req.Endpoint != nil {
			input.Endpoint = &scadaapp.EndpointInput{
				URL:            req.Endpoint.URL,
				SecurityMode:   req.Endpoint.SecurityMode,
				SecurityPolicy: req.Endpoint.SecurityPolicy,
				Username:       req.Endpoint.Username,
				Password:       req.Endpoint.Password,
			}
		}
		view, err := h.connections.UpdateConnection(r.Context(), tenantID, id, input)
		if err != nil {
			respondError(w, err)
			return
		}
		h.logAudit(r, tenantID, "connection.update", audit.ResourceConnection, id, view.WellID)
		respondJSON(w, http.StatusOK, view)
	case http.MethodDelete:
		if err := h.connections.DeleteConnection(r.Context(), tenantID, id); err != nil {
			respondError(w, err)
			return
		}
		h.logAudit(r, tenantID, "connection.delete", audit.ResourceConnection, id, "")
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleConnectionToggle(w http.ResponseWriter, r *http.Request, tenantID, id, action string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	actor := auth.SubjectFromContext(r.Context())
	var (
		view *scadaapp.ConnectionView
		err  error
	)
	if action == "enable" {
		view, err = h.connections.EnableConnection(r.Context(), tenantID, id, actor)
	} else {
		view, err = h.connections.DisableConnection(r.Context(), tenantID, id, actor)
	}
	if err != nil {
		respondError(w, err)
		return
	}
	h.logAudit(r, tenantID, "connection."+action, audit.ResourceConnection, id, view.WellID)
	respondJSON(w, http.StatusOK, view)
}

type tagMappingRequest struct {
	NodeID             string   `json:"nodeId"`
	TagName            string   `json:"tagName"`
	FieldEntryProperty string   `json:"fieldEntryProperty"`
	DataType           string   `json:"dataType"`
	Unit               string   `json:"unit"`
	ScalingFactor      *float64 `json:"scalingFactor"`
	Deadband           *float64 `json:"deadband"`
}

type tagBatchRequest struct {
	Tags []tagMappingRequest `json:"tags"`
}

func (h *Handler) handleTags(w http.ResponseWriter, r *http.Request, tenantID, connectionID string) {
	switch r.Method {
	case http.MethodGet:
		views, err := h.tags.ListTagMappings(r.Context(), tenantID, connectionID)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, views)
	case http.MethodPost:
		var req tagBatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		specs := make([]scadaapp.TagMappingSpec, 0, len(req.Tags))
		for _, tag := range req.Tags {
			specs = append(specs, scadaapp.TagMappingSpec{
				NodeID:        tag.NodeID,
				TagName:       tag.TagName,
				FieldProperty: tag.FieldEntryProperty,
				DataType:      tag.DataType,
				Unit:          tag.Unit,
				ScalingFactor: tag.ScalingFactor,
				Deadband:      tag.Deadband,
			})
		}
		actor := auth.SubjectFromContext(r.Context())
		batch, err := h.tags.CreateTagMappings(r.Context(), tenantID, connectionID, actor, specs)
		if err != nil {
			respondError(w, err)
			return
		}
		h.logAudit(r, tenantID, "tag_mapping.create", audit.ResourceTagMapping, connectionID, "")
		respondJSON(w, http.StatusCreated, batch)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleTagToggle(w http.ResponseWriter, r *http.Request, tenantID, connectionID, tagID, action string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	actor := auth.SubjectFromContext(r.Context())
	var (
		view *scadaapp.TagMappingView
		err  error
	)
	if action == "enable" {
		view, err = h.tags.EnableTagMapping(r.Context(), tenantID, connectionID, tagID, actor)
	} else {
		view, err = h.tags.DisableTagMapping(r.Context(), tenantID, connectionID, tagID, actor)
	}
	if err != nil {
		respondError(w, err)
		return
	}
	h.logAudit(r, tenantID, "tag_mapping."+action, audit.ResourceTagMapping, tagID, "")
	respondJSON(w, http.StatusOK, view)
}

func (h *Handler) logAudit(r *http.Request, tenantID, action, resourceType, resourceID, wellID string) {
	if h.auditor == nil {
		return
	}
	_ = h.auditor.Log(r.Context(), audit.Entry{
		TenantID:     tenantID,
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		WellID:       wellID,
		IP:           r.RemoteAddr,
		UserAgent:    r.UserAgent(),
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scada.ErrWellNotFound),
		errors.Is(err, scada.ErrConnectionNotFound),
		errors.Is(err, scada.ErrTagMappingNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, scada.ErrDuplicateWellConnection),
		errors.Is(err, scada.ErrDuplicateConnectionName),
		errors.Is(err, scada.ErrDuplicateInRequest),
		errors.Is(err, scada.ErrDuplicateInConnection),
		errors.Is(err, scada.ErrAlreadyInState),
		errors.Is(err, scada.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, scada.ErrInvalidEndpointConfig),
		errors.Is(err, scada.ErrInvalidConnectionConfig),
		errors.Is(err, scada.ErrInvalidTagConfig):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
