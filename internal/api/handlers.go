// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nollvik/sidetrackd/internal/ble"
	"github.com/nollvik/sidetrackd/internal/config"
	"github.com/nollvik/sidetrackd/internal/logging"
	"github.com/nollvik/sidetrackd/internal/registry"
	"github.com/nollvik/sidetrackd/internal/remote"
	"github.com/nollvik/sidetrackd/internal/tracker"
	"github.com/nollvik/sidetrackd/internal/validation"
	ws "github.com/nollvik/sidetrackd/internal/websocket"
)

const apiVersion = "1.0.0"

// readinessTimeout bounds the store probe in the readiness check.
const readinessTimeout = 2 * time.Second

// HandlerDeps collects the daemon components the control API fronts. Nil
// members degrade the matching endpoints instead of crashing them, which
// keeps partial wiring (tests, early startup) serviceable.
type HandlerDeps struct {
	Config  *config.Config
	Link    *ble.Manager
	Engine  *tracker.Engine
	Store   *registry.Store
	Hub     *ws.Hub
	Prober  *remote.Prober
	Breaker *remote.CircuitBreakerClient
}

// Handler implements the control API endpoints.
type Handler struct {
	cfg       *config.Config
	link      *ble.Manager
	engine    *tracker.Engine
	store     *registry.Store
	hub       *ws.Hub
	prober    *remote.Prober
	breaker   *remote.CircuitBreakerClient
	startTime time.Time
}

// NewHandler creates the endpoint handler.
func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		cfg:       deps.Config,
		link:      deps.Link,
		engine:    deps.Engine,
		store:     deps.Store,
		hub:       deps.Hub,
		prober:    deps.Prober,
		breaker:   deps.Breaker,
		startTime: time.Now(),
	}
}

// healthPayload answers /healthz.
type healthPayload struct {
	Status  string  `json:"status"`
	Version string  `json:"version"`
	Uptime  float64 `json:"uptime_seconds"`
}

// Health reports liveness. The process answering is the signal; component
// health belongs to /readyz and /api/v1/status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, healthPayload{
		Status:  "healthy",
		Version: apiVersion,
		Uptime:  time.Since(h.startTime).Seconds(),
	})
}

// Ready reports readiness: the registry answers and the core components
// are wired. Not-ready responses carry the failing component.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	components := map[string]bool{
		"registry":       false,
		"link_manager":   h.link != nil,
		"session_engine": h.engine != nil,
	}

	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if _, err := h.store.AuditCount(ctx); err == nil {
			components["registry"] = true
		}
	}

	ready := true
	for _, ok := range components {
		if !ok {
			ready = false
			break
		}
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	respondSuccess(w, r, status, map[string]any{
		"ready":      ready,
		"components": components,
	})
}

// remoteStatus is the remote service slice of the status payload.
type remoteStatus struct {
	Reachable bool   `json:"reachable"`
	Breaker   string `json:"breaker,omitempty"`
}

// statusPayload answers /api/v1/status.
type statusPayload struct {
	Version  string         `json:"version"`
	Uptime   float64        `json:"uptime_seconds"`
	Link     ble.Status     `json:"link"`
	Tracking tracker.Status `json:"tracking"`
	Remote   remoteStatus   `json:"remote"`
}

// statusSnapshot assembles the daemon-wide snapshot: link state machine,
// session engine and remote reachability in one shot. Shared by the
// status endpoint and the feed's initial frame.
func (h *Handler) statusSnapshot() statusPayload {
	payload := statusPayload{
		Version: apiVersion,
		Uptime:  time.Since(h.startTime).Seconds(),
		Remote:  remoteStatus{Reachable: true},
	}
	if h.link != nil {
		payload.Link = h.link.Status()
	}
	if h.engine != nil {
		payload.Tracking = h.engine.Status()
		payload.Remote.Reachable = payload.Tracking.Reachable
	}
	if h.prober != nil {
		payload.Remote.Reachable = h.prober.Reachable()
	}
	if h.breaker != nil {
		payload.Remote.Breaker = h.breaker.State()
	}
	return payload
}

// Status returns the daemon-wide snapshot.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, h.statusSnapshot())
}

// Discover runs one manual discovery window and returns the candidates
// seen. The call blocks for the configured window, ten seconds by
// default, so clients should use a generous timeout.
func (h *Handler) Discover(w http.ResponseWriter, r *http.Request) {
	if h.link == nil {
		respondError(w, r, http.StatusServiceUnavailable, "LINK_ERROR", "Link manager not available", nil)
		return
	}

	found, err := h.link.Discover(r.Context())
	if err != nil {
		h.respondLinkError(w, r, err)
		return
	}
	if found == nil {
		found = []ble.Discovered{}
	}

	respondSuccess(w, r, http.StatusOK, map[string]any{
		"devices": found,
		"count":   len(found),
	})
}

// pairRequest is the POST /device/pair body.
type pairRequest struct {
	Address string `json:"address" validate:"required,mac"`
	Name    string `json:"name" validate:"omitempty,max=64"`
}

// Pair remembers a die and starts connecting to it. Pairing replaces any
// previously remembered die.
func (h *Handler) Pair(w http.ResponseWriter, r *http.Request) {
	if h.link == nil {
		respondError(w, r, http.StatusServiceUnavailable, "LINK_ERROR", "Link manager not available", nil)
		return
	}

	var req pairRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, r, apiErr)
		return
	}

	if err := h.link.Pair(r.Context(), req.Address, req.Name); err != nil {
		h.respondLinkError(w, r, err)
		return
	}

	logging.CtxInfo(r.Context()).Str("address", req.Address).Msg("Die paired via API")
	respondSuccess(w, r, http.StatusOK, map[string]any{
		"address": req.Address,
		"name":    req.Name,
	})
}

// Forget drops the remembered die, disconnects it and returns the link to
// idle. Forgetting with nothing remembered is not an error.
func (h *Handler) Forget(w http.ResponseWriter, r *http.Request) {
	if h.link == nil {
		respondError(w, r, http.StatusServiceUnavailable, "LINK_ERROR", "Link manager not available", nil)
		return
	}

	if err := h.link.Forget(r.Context()); err != nil {
		h.respondLinkError(w, r, err)
		return
	}

	logging.CtxInfo(r.Context()).Msg("Die forgotten via API")
	respondSuccess(w, r, http.StatusOK, map[string]any{"forgotten": true})
}

// Tracking returns the open session, if any.
func (h *Handler) Tracking(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		respondError(w, r, http.StatusServiceUnavailable, "INTERNAL_ERROR", "Session engine not available", nil)
		return
	}

	st := h.engine.Status()
	respondSuccess(w, r, http.StatusOK, map[string]any{
		"tracking": st.Tracking,
		"session":  st.Session,
	})
}

// TrackingStop closes the open session as if the die had been set flat.
// The response reports how the close resolved against the remote service.
func (h *Handler) TrackingStop(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		respondError(w, r, http.StatusServiceUnavailable, "INTERNAL_ERROR", "Session engine not available", nil)
		return
	}

	outcome, err := h.engine.Stop(r.Context())
	switch {
	case errors.Is(err, tracker.ErrNoSession):
		respondError(w, r, http.StatusNotFound, "NO_SESSION", "No session is open", nil)
		return
	case errors.Is(err, tracker.ErrNotRunning):
		respondError(w, r, http.StatusServiceUnavailable, "INTERNAL_ERROR", "Session engine not running", nil)
		return
	case err != nil:
		respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Stop failed", err)
		return
	}

	respondSuccess(w, r, http.StatusOK, map[string]any{"outcome": outcome})
}

// Mappings returns the face mapping currently in effect, including
// runtime updates, keyed by face number.
func (h *Handler) Mappings(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		respondError(w, r, http.StatusServiceUnavailable, "INTERNAL_ERROR", "Session engine not available", nil)
		return
	}

	mappings := h.engine.Mappings()
	if mappings == nil {
		mappings = map[uint8]string{}
	}
	respondSuccess(w, r, http.StatusOK, map[string]any{
		"mappings": mappings,
		"count":    len(mappings),
	})
}

// Buffer returns the undelivered entries awaiting the next drain, oldest
// first.
func (h *Handler) Buffer(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		respondError(w, r, http.StatusServiceUnavailable, "INTERNAL_ERROR", "Session engine not available", nil)
		return
	}

	entries := h.engine.BufferedEntries()
	if entries == nil {
		entries = []remote.TimeEntry{}
	}
	respondSuccess(w, r, http.StatusOK, map[string]any{
		"entries": entries,
		"depth":   len(entries),
	})
}

// historyRequest validates the /history query parameters.
type historyRequest struct {
	Limit int `validate:"min=1,max=1000"`
}

// History returns recent submission audit records, newest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, r, http.StatusServiceUnavailable, "STORE_ERROR", "Registry not available", nil)
		return
	}

	req := historyRequest{Limit: getIntParam(r, "limit", 50)}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, r, apiErr)
		return
	}

	records, err := h.store.RecentAudits(r.Context(), req.Limit)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "STORE_ERROR", "Audit query failed", err)
		return
	}
	if records == nil {
		records = []registry.AuditRecord{}
	}

	respondSuccess(w, r, http.StatusOK, map[string]any{
		"records": records,
		"count":   len(records),
	})
}

// respondLinkError maps link manager errors onto HTTP statuses.
func (h *Handler) respondLinkError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ble.ErrLinkUnavailable):
		respondError(w, r, http.StatusServiceUnavailable, "LINK_ERROR", "Bluetooth adapter unavailable", err)
	case errors.Is(err, ble.ErrNotRunning):
		respondError(w, r, http.StatusServiceUnavailable, "LINK_ERROR", "Link manager not running", err)
	case errors.Is(err, ble.ErrNoDevicePaired):
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "No die is paired", nil)
	case errors.Is(err, ble.ErrConnectFailed):
		respondError(w, r, http.StatusBadGateway, "LINK_ERROR", "Connect attempt failed", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(w, r, http.StatusRequestTimeout, "LINK_ERROR", "Request canceled", nil)
	default:
		respondError(w, r, http.StatusInternalServerError, "LINK_ERROR", "Link operation failed", err)
	}
}

// getIntParam extracts an integer query parameter with a default value.
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// validateRequest runs struct validation and converts failures to the API
// error shape.
func validateRequest(v any) *APIError {
	validationErr := validation.ValidateStruct(v)
	if validationErr == nil {
		return nil
	}
	apiErr := validationErr.ToAPIError()
	return &APIError{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	}
}

// isLoopbackOrigin reports whether a browser origin points at this
// machine.
func isLoopbackOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
