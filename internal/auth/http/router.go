package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/imelapp/auth-server/internal/auth/service"
	"github.com/imelapp/auth-server/internal/common/config"
	commonhttp "github.com/imelapp/auth-server/internal/common/http"
	"github.com/imelapp/auth-server/internal/common/jwtverify"
	"github.com/imelapp/auth-server/internal/common/logger"
	"github.com/imelapp/auth-server/internal/common/validate"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email,max=50"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	IsActive bool   `json:"is_active"`
	Role     int    `json:"role"`
}

type editUserRequest struct {
	Username string `json:"username" validate:"omitempty,max=50"`
	Email    string `json:"email" validate:"omitempty,email,max=50"`
	Password string `json:"password" validate:"omitempty,min=6,max=72"`
	IsActive *bool  `json:"is_active"`
	Role     *int   `json:"role"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type Handler struct {
	auth           *service.AuthService
	users          *service.UserService
	errs           *commonhttp.ErrorHandler
	log            *logger.Logger
	requestTimeout time.Duration
}

func NewHandler(
	auth *service.AuthService,
	users *service.UserService,
	cfg config.AuthConfig,
	log *logger.Logger,
) http.Handler {
	h := &Handler{
		auth:           auth,
		users:          users,
		errs:           commonhttp.NewErrorHandler(log),
		log:            log,
		requestTimeout: cfg.RequestTimeout,
	}

	authenticated := jwtverify.Middleware(cfg.JWTSecret, log)
	adminOnly := jwtverify.RequireRole("Admin", log)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", commonhttp.HealthHandler(log))
	mux.HandleFunc("/api/auth/login", h.login)
	mux.HandleFunc("/api/auth/register", h.register)
	mux.Handle("/api/auth/logout", authenticated(http.HandlerFunc(h.logout)))
	mux.Handle("/api/auth/user", authenticated(http.HandlerFunc(h.profile)))
	mux.Handle("/api/auth/username", authenticated(http.HandlerFunc(h.username)))
	mux.Handle("/api/auth/users", authenticated(adminOnly(http.HandlerFunc(h.listUsers))))
	mux.Handle("/api/auth/edit/", authenticated(adminOnly(http.HandlerFunc(h.editUser))))
	mux.Handle("/api/auth/delete/", authenticated(adminOnly(http.HandlerFunc(h.deleteUser))))
	return mux
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		commonhttp.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req loginRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.log.Warnf("login failed: invalid json: %v", err)
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeInvalidJSON, "invalid json", nil, "")
		return
	}

	if err := validate.Struct(req); err != nil {
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeValidationFailed, err.Error(), nil, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	result, err := h.auth.Login(ctx, service.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.errs.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, tokenResponse{Token: result.Token})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		commonhttp.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req registerRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.log.Warnf("register failed: invalid json: %v", err)
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeInvalidJSON, "invalid json", nil, "")
		return
	}

	if err := validate.Struct(req); err != nil {
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeValidationFailed, err.Error(), nil, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	if _, err := h.users.Register(ctx, service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		IsActive: req.IsActive,
		Role:     req.Role,
	}); err != nil {
		h.errs.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, messageResponse{Message: "user registered successfully"})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		commonhttp.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	claims, _ := jwtverify.FromContext(r.Context())
	h.auth.Logout(r.Context(), claims.Username)

	commonhttp.WriteJSON(w, http.StatusOK, messageResponse{Message: "logged out successfully"})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		commonhttp.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	profiles, err := h.users.List(ctx)
	if err != nil {
		h.errs.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, profiles)
}

func (h *Handler) editUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		commonhttp.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id, ok := userIDFromPath(r.URL.Path, "/api/auth/edit/")
	if !ok {
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeInvalidUserIDFormat, "invalid user id", nil, "")
		return
	}

	var req editUserRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.log.Warnf("edit failed: invalid json: %v", err)
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeInvalidJSON, "invalid json", nil, "")
		return
	}

	if err := validate.Struct(req); err != nil {
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeValidationFailed, err.Error(), nil, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	if err := h.users.Edit(ctx, id, service.EditInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		IsActive: req.IsActive,
		Role:     req.Role,
	}); err != nil {
		h.errs.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, messageResponse{Message: "user updated successfully"})
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		commonhttp.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id, ok := userIDFromPath(r.URL.Path, "/api/auth/delete/")
	if !ok {
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeInvalidUserIDFormat, "invalid user id", nil, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	if err := h.users.Delete(ctx, id); err != nil {
		h.errs.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, messageResponse{Message: "user deleted successfully"})
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		commonhttp.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	claims, ok := jwtverify.FromContext(r.Context())
	if !ok {
		commonhttp.WriteErrorEnvelope(w, http.StatusUnauthorized, commonhttp.CodeMissingAuthorization, "not authenticated", nil, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	profile, err := h.users.GetProfile(ctx, claims.UserID)
	if err != nil {
		h.errs.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) username(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		commonhttp.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	claims, ok := jwtverify.FromContext(r.Context())
	if !ok {
		commonhttp.WriteErrorEnvelope(w, http.StatusUnauthorized, commonhttp.CodeMissingAuthorization, "not authenticated", nil, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	username, err := h.users.GetUsername(ctx, claims.UserID)
	if err != nil {
		h.errs.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, map[string]string{"username": username})
}

func userIDFromPath(path, prefix string) (int64, bool) {
	raw := strings.TrimPrefix(path, prefix)
	if raw == "" || strings.Contains(raw, "/") {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
