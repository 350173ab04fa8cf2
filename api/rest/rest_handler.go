package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/educloud/notes/cache"
	"github.com/educloud/notes/models"
	"github.com/educloud/notes/service"
	"github.com/educloud/notes/store"
	"github.com/educloud/notes/validation"
)

const maxBodyBytes = 2 << 20

type Handler struct {
	Service     *service.Service
	authLimiter *ipLimiter
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Service:     svc,
		authLimiter: newIPLimiter(authRequestsPerSecond, authBurstLimit),
	}
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields validation.Errors `json:"fields,omitempty"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Provider string `json:"provider"`
	Code     string `json:"code"`
}

type noteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type shareResponse struct {
	URL string `json:"url"`
}

type userResponse struct {
	Id        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Provider  string `json:"provider"`
	NoteCount int    `json:"noteCount"`
}

func (h *Handler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !h.authLimiter.allow(r) {
		h.sendError(w, http.StatusTooManyRequests, "Too many requests")
		return
	}

	var req signUpRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	_, session, err := h.Service.SignUp(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendStatus(w, http.StatusCreated, session)
}

func (h *Handler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !h.authLimiter.allow(r) {
		h.sendError(w, http.StatusTooManyRequests, "Too many requests")
		return
	}

	var req signInRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	_, session, err := h.Service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendResponse(w, session)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := h.Service.Logout(r.Context(), h.getTokenFromAuthHeader(r)); err != nil {
		h.sendError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	h.sendResponse(w, successResponse{Success: true})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !h.authLimiter.allow(r) {
		h.sendError(w, http.StatusTooManyRequests, "Too many requests")
		return
	}

	var req loginRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	_, session, err := h.Service.Login(r.Context(), req.Provider, req.Code)
	if err != nil {
		log.Warn().Err(err).Str("provider", req.Provider).Msg("login failed")
		h.sendError(w, http.StatusUnauthorized, "login failed")
		return
	}
	h.sendResponse(w, session)
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.sendResponse(w, userResponse{
			Id:        user.Id,
			Name:      user.Name,
			Email:     user.Email,
			Provider:  user.Provider,
			NoteCount: user.NoteCount,
		})

	case http.MethodDelete:
		if err := h.Service.DeleteUser(r.Context(), user); err != nil {
			log.Error().Err(err).Str("userId", user.Id).Msg("delete user failed")
			h.sendError(w, http.StatusInternalServerError, "failed to delete user")
			return
		}
		h.sendResponse(w, successResponse{Success: true})

	default:
		h.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *Handler) HandleNotes(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		list, err := h.Service.ListNotes(r.Context(), user)
		if err != nil {
			h.sendServiceError(w, err)
			return
		}
		if list == nil {
			list = []models.Note{}
		}
		h.sendResponse(w, list)

	case http.MethodPost:
		var req noteRequest
		if !h.decodeBody(w, r, &req) {
			return
		}
		note, err := h.Service.CreateNote(r.Context(), user, req.Title, req.Content)
		if err != nil {
			h.sendServiceError(w, err)
			return
		}
		h.sendStatus(w, http.StatusCreated, note)

	default:
		h.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *Handler) HandleNote(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	noteId := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		note, err := h.Service.GetNote(r.Context(), user, noteId)
		if err != nil {
			h.sendServiceError(w, err)
			return
		}
		h.sendResponse(w, note)

	case http.MethodPut:
		var req noteRequest
		if !h.decodeBody(w, r, &req) {
			return
		}
		note, err := h.Service.UpdateNote(r.Context(), user, noteId, req.Title, req.Content)
		if err != nil {
			h.sendServiceError(w, err)
			return
		}
		h.sendResponse(w, note)

	case http.MethodDelete:
		if err := h.Service.DeleteNote(r.Context(), user, noteId); err != nil {
			h.sendServiceError(w, err)
			return
		}
		h.sendResponse(w, successResponse{Success: true})

	default:
		h.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *Handler) HandleShareNote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	url, err := h.Service.ShareNote(r.Context(), user, r.PathValue("id"))
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendResponse(w, shareResponse{URL: url})
}

func (h *Handler) HandleExportNote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	job, err := h.Service.RequestExport(r.Context(), user, r.PathValue("id"))
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendStatus(w, http.StatusAccepted, job)
}

func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	job, err := h.Service.GetExport(r.Context(), user, r.PathValue("id"))
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendResponse(w, job)
}

// HandleShared serves a shared note to anyone holding the link.
func (h *Handler) HandleShared(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	note, err := h.Service.ResolveShare(r.Context(), r.PathValue("token"))
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	h.sendResponse(w, note)
}

func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, err := h.Service.AuthenticateToken(r.Context(), h.getTokenFromAuthHeader(r))
	if err != nil {
		h.sendError(w, http.StatusUnauthorized, "invalid token")
		return models.User{}, false
	}
	return user, true
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// statusFor maps service errors onto HTTP statuses. The message of a
// mapped error is safe to show to the user.
func statusFor(err error) (int, bool) {
	var vErr *validation.Error
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest, true
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, true
	case errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict, true
	case errors.Is(err, service.ErrNoteQuotaExceeded):
		return http.StatusForbidden, true
	case errors.Is(err, store.ErrItemNotFound),
		errors.Is(err, cache.ErrExportNotFound),
		errors.Is(err, service.ErrInvalidShareLink):
		return http.StatusNotFound, true
	default:
		return http.StatusInternalServerError, false
	}
}

func (h *Handler) sendServiceError(w http.ResponseWriter, err error) {
	status, known := statusFor(err)
	if !known {
		log.Error().Err(err).Msg("request failed")
		h.sendError(w, status, "internal server error")
		return
	}

	resp := errorResponse{Error: err.Error()}
	var vErr *validation.Error
	if errors.As(err, &vErr) {
		fields := vErr.Fields.Fields()
		resp.Error = vErr.Fields.First(fields[0])
		resp.Fields = vErr.Fields
	}
	if errors.Is(err, store.ErrItemNotFound) || errors.Is(err, cache.ErrExportNotFound) {
		resp.Error = "not found"
	}
	h.sendStatus(w, status, resp)
}

func (h *Handler) sendError(w http.ResponseWriter, status int, msg string) {
	h.sendStatus(w, status, errorResponse{Error: msg})
}

func (h *Handler) sendResponse(w http.ResponseWriter, resp any) {
	h.sendStatus(w, http.StatusOK, resp)
}

func (h *Handler) sendStatus(w http.ResponseWriter, status int, resp any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}

func (h *Handler) getTokenFromAuthHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return ""
	}
	return strings.TrimPrefix(authHeader, prefix)
}

// RegisterRoutes mounts every REST endpoint on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/auth/signup", h.HandleSignUp)
	mux.HandleFunc("/auth/signin", h.HandleSignIn)
	mux.HandleFunc("/auth/logout", h.HandleLogout)
	mux.HandleFunc("/login", h.HandleLogin)
	mux.HandleFunc("/me", h.HandleMe)
	mux.HandleFunc("/notes", h.HandleNotes)
	mux.HandleFunc("/notes/{id}", h.HandleNote)
	mux.HandleFunc("/notes/{id}/share", h.HandleShareNote)
	mux.HandleFunc("/notes/{id}/export", h.HandleExportNote)
	mux.HandleFunc("/exports/{id}", h.HandleExport)
	mux.HandleFunc("/shared/{token}", h.HandleShared)
}
