package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"wdms/delivery-service/internal/models"
	"wdms/delivery-service/internal/session"
	"wdms/delivery-service/internal/store"

	"github.com/google/uuid"
)

var pinPattern = regexp.MustCompile(`^\d{6}$`)

type Handler struct {
	store        store.Store
	codec        *session.Codec
	cookieSecure bool
}

type Options struct {
	CookieSecure bool
}

func NewHandler(store store.Store, codec *session.Codec, options Options) *Handler {
	return &Handler{
		store:        store,
		codec:        codec,
		cookieSecure: options.CookieSecure,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/auth/manager/login", h.handleLogin)
	mux.HandleFunc("/auth/manager/logout", h.handleLogout)
	mux.HandleFunc("/auth/manager/session", h.handleSession)
	mux.HandleFunc("/drivers", h.handleDrivers)
	mux.HandleFunc("/entries", h.handleEntries)
	mux.HandleFunc("/managers", h.handleManagers)
	mux.HandleFunc(loginPath, h.handleLoginPage)
	mux.HandleFunc(dashboardPath, h.handleDashboardPage)
	return mux
}

type loginRequest struct {
	Username string `json:"username"`
	PIN      string `json:"pin"`
}

type errorResponse struct {
	Error responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.PIN = strings.TrimSpace(req.PIN)
	if req.Username == "" || req.PIN == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "username and pin are required")
		return
	}

	// A malformed PIN can never match; skip the lookup and answer with the
	// same generic message as a failed match.
	if !pinPattern.MatchString(req.PIN) {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or PIN")
		return
	}

	manager, err := h.store.VerifyManagerPIN(r.Context(), req.Username, req.PIN)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	token, err := h.codec.Issue(session.Identity{
		ID:       manager.ID,
		PlantID:  manager.PlantID,
		Role:     manager.Role,
		Username: manager.Username,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	h.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, messageResponse{Message: "login successful"})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	expireSessionCookie(w)
	writeJSON(w, http.StatusOK, messageResponse{Message: "logout successful"})
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	identity, ok := h.requireManager(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, identity)
}

func (h *Handler) handleDrivers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		identity, ok := h.requireManager(w, r)
		if !ok {
			return
		}
		drivers, err := h.store.ListActiveDrivers(r.Context(), identity.PlantID)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		if drivers == nil {
			drivers = []models.Driver{}
		}
		writeJSON(w, http.StatusOK, drivers)
	case http.MethodPost:
		owner, ok := h.requireOwner(w, r)
		if !ok {
			return
		}
		var req struct {
			Name string `json:"name"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
			return
		}
		driver, err := h.store.CreateDriver(r.Context(), store.CreateDriverInput{
			PlantID: owner.PlantID,
			Name:    req.Name,
		})
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusCreated, driver)
	case http.MethodDelete:
		owner, ok := h.requireOwner(w, r)
		if !ok {
			return
		}
		driverID := strings.TrimSpace(r.URL.Query().Get("id"))
		if !isValidUUID(driverID) {
			writeError(w, http.StatusBadRequest, "invalid_request", "id must be a UUID")
			return
		}
		if err := h.store.DeactivateDriver(r.Context(), owner.PlantID, driverID); err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "driver deactivated", ID: driverID})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type createEntryRequest struct {
	DriverID    string          `json:"driver_id"`
	BottleCount json.RawMessage `json:"bottle_count"`
}

type updateEntryRequest struct {
	EntryID     string          `json:"entry_id"`
	BottleCount json.RawMessage `json:"bottle_count"`
}

func (h *Handler) handleEntries(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleCreateEntry(w, r)
	case http.MethodGet:
		h.handleLastEntry(w, r)
	case http.MethodPut:
		h.handleUpdateEntry(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireManager(w, r)
	if !ok {
		return
	}

	var req createEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.DriverID = strings.TrimSpace(req.DriverID)
	if req.DriverID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "driver_id is required")
		return
	}
	if !isValidUUID(req.DriverID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "driver_id must be a UUID")
		return
	}
	count, ok := parseBottleCount(req.BottleCount)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "bottle_count must be a positive integer")
		return
	}

	entry, err := h.store.SubmitEntry(r.Context(), store.SubmitEntryInput{
		ManagerID:   identity.ID,
		PlantID:     identity.PlantID,
		DriverID:    req.DriverID,
		BottleCount: count,
		EntryDate:   time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *Handler) handleLastEntry(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireManager(w, r)
	if !ok {
		return
	}

	driverID := strings.TrimSpace(r.URL.Query().Get("driver_id"))
	if driverID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "driver_id is required")
		return
	}
	if !isValidUUID(driverID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "driver_id must be a UUID")
		return
	}

	entry, err := h.store.LastEntryForDay(r.Context(), identity.ID, driverID, time.Now().UTC())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireManager(w, r)
	if !ok {
		return
	}

	var req updateEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.EntryID = strings.TrimSpace(req.EntryID)
	if req.EntryID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "entry_id is required")
		return
	}
	if !isValidUUID(req.EntryID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "entry_id must be a UUID")
		return
	}
	count, ok := parseBottleCount(req.BottleCount)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "bottle_count must be a positive integer")
		return
	}

	entry, err := h.store.UpdateEntry(r.Context(), store.UpdateEntryInput{
		ManagerID:   identity.ID,
		EntryID:     req.EntryID,
		BottleCount: count,
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

type createManagerRequest struct {
	Username string `json:"username"`
	PIN      string `json:"pin"`
}

type updateManagerRequest struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	PIN      string `json:"pin"`
}

func (h *Handler) handleManagers(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		managers, err := h.store.ListManagers(r.Context(), owner.PlantID)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		if managers == nil {
			managers = []models.Manager{}
		}
		writeJSON(w, http.StatusOK, managers)
	case http.MethodPost:
		var req createManagerRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		req.PIN = strings.TrimSpace(req.PIN)
		if req.Username == "" || req.PIN == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "username and pin are required")
			return
		}
		if !pinPattern.MatchString(req.PIN) {
			writeError(w, http.StatusBadRequest, "invalid_request", "pin must be a 6-digit string")
			return
		}
		manager, err := h.store.CreateManager(r.Context(), store.CreateManagerInput{
			PlantID:  owner.PlantID,
			Username: req.Username,
			PIN:      req.PIN,
		})
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusCreated, manager)
	case http.MethodPut:
		var req updateManagerRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		req.ID = strings.TrimSpace(req.ID)
		req.Username = strings.TrimSpace(req.Username)
		req.PIN = strings.TrimSpace(req.PIN)
		if !isValidUUID(req.ID) {
			writeError(w, http.StatusBadRequest, "invalid_request", "id must be a UUID")
			return
		}
		if req.Username == "" && req.PIN == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "username or pin is required")
			return
		}
		if req.PIN != "" && !pinPattern.MatchString(req.PIN) {
			writeError(w, http.StatusBadRequest, "invalid_request", "pin must be a 6-digit string")
			return
		}
		manager, err := h.store.UpdateManager(r.Context(), store.UpdateManagerInput{
			PlantID:   owner.PlantID,
			ManagerID: req.ID,
			Username:  req.Username,
			PIN:       req.PIN,
		})
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, manager)
	case http.MethodDelete:
		managerID := strings.TrimSpace(r.URL.Query().Get("id"))
		if !isValidUUID(managerID) {
			writeError(w, http.StatusBadRequest, "invalid_request", "id must be a UUID")
			return
		}
		if err := h.store.DeleteManager(r.Context(), owner.PlantID, managerID); err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "manager deleted", ID: managerID})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<!doctype html><title>Manager Login</title><h1>Manager Login</h1>")
}

func (h *Handler) handleDashboardPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	identity, ok := identityFromContext(r.Context())
	if !ok {
		// Reachable only when the gate is not mounted, e.g. in tests.
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!doctype html><title>Dashboard</title><h1>Dashboard</h1><p>Signed in as %s</p>", identity.Username)
}

func (h *Handler) requireManager(w http.ResponseWriter, r *http.Request) (session.Identity, bool) {
	if identity, ok := identityFromContext(r.Context()); ok {
		return identity, true
	}
	cookie, err := r.Cookie(session.CookieName)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return session.Identity{}, false
	}
	identity, err := h.codec.Verify(cookie.Value)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired session")
		return session.Identity{}, false
	}
	return identity, true
}

func (h *Handler) requireOwner(w http.ResponseWriter, r *http.Request) (models.Owner, bool) {
	token := bearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing owner token")
		return models.Owner{}, false
	}
	owner, err := h.store.GetOwnerSession(r.Context(), token)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return models.Owner{}, false
	}
	return owner, true
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(session.TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// parseBottleCount accepts the count as either a JSON number or a numeric
// string. The client caps input at 4 digits, but nothing here trusts that;
// only "positive integer" is enforced.
func parseBottleCount(raw json.RawMessage) (int, bool) {
	value := strings.TrimSpace(string(raw))
	value = strings.Trim(value, `"`)
	if value == "" {
		return 0, false
	}
	count, err := strconv.Atoi(value)
	if err != nil || count <= 0 {
		return 0, false
	}
	return count, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	return true
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, store.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "invalid username or PIN"
	case errors.Is(err, store.ErrOwnerSessionNotFound):
		return http.StatusUnauthorized, "unauthorized", "invalid or expired owner session"
	case errors.Is(err, store.ErrDriverNotFound):
		return http.StatusNotFound, "driver_not_found", "driver not found"
	case errors.Is(err, store.ErrEntryNotFound):
		return http.StatusNotFound, "entry_not_found", "entry not found"
	case errors.Is(err, store.ErrEntryForbidden):
		return http.StatusForbidden, "access_denied", "not allowed to edit this entry"
	case errors.Is(err, store.ErrManagerNotFound):
		return http.StatusNotFound, "manager_not_found", "manager not found"
	case errors.Is(err, store.ErrUsernameTaken):
		return http.StatusConflict, "username_taken", "this username is already taken"
	default:
		log.Printf("internal error: %v", err)
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: responseError{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func isValidUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}
