package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-rbac/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

// Handler wires HTTP endpoints for authentication and invitation flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers public auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/set-password", h.handleSetPassword)
	r.Post("/decline-invitation", h.handleDecline)
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type setPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type declineRequest struct {
	Token string `json:"token" validate:"required"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.Bind(w, r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	session, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		// Unknown usernames get the same answer as a wrong password.
		if errors.Is(err, shared.ErrNotFound) {
			err = shared.ErrInvalidCredentials
		}
		h.fail(w, "login", err)
		return
	}
	httpx.JSON(w, http.StatusOK, session)
}

func (h *Handler) handleSetPassword(w http.ResponseWriter, r *http.Request) {
	var req setPasswordRequest
	if err := httpx.Bind(w, r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.RedeemInvitation(r.Context(), req.Token, req.Password); err != nil {
		h.fail(w, "redeem invitation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "password set, you can now log in"})
}

func (h *Handler) handleDecline(w http.ResponseWriter, r *http.Request) {
	var req declineRequest
	if err := httpx.Bind(w, r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeclineInvitation(r.Context(), req.Token); err != nil {
		h.fail(w, "decline invitation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "invitation declined"})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
