package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/go-group-trip-planner/app/middleware"
	"github.com/FACorreiaa/go-group-trip-planner/internal/api"
)

type Handler struct {
	authService Service
	logger      *slog.Logger
}

func NewAuthHandler(authService Service, logger *slog.Logger) *Handler {
	return &Handler{
		authService: authService,
		logger:      logger,
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "Register"))

	var req api.RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.authService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			api.ErrorResponse(w, r, http.StatusConflict, "username or email already in use")
			return
		}
		if errors.Is(err, ErrUnauthenticated) {
			api.ErrorResponse(w, r, http.StatusBadRequest, "username, email and password are required")
			return
		}
		l.ErrorContext(r.Context(), "Registration failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "registration failed")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, user)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "Login"))

	var req api.LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	pair, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			api.ErrorResponse(w, r, http.StatusUnauthorized, "invalid email or password")
			return
		}
		l.ErrorContext(r.Context(), "Login failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "login failed")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, api.LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		UserID:       pair.UserID,
		Message:      "login successful",
	})
}

func (h *Handler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "RefreshSession"))

	var req api.RefreshTokenRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	pair, err := h.authService.RefreshSession(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			api.ErrorResponse(w, r, http.StatusUnauthorized, "invalid or expired refresh token")
			return
		}
		l.ErrorContext(r.Context(), "Refresh failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "refresh failed")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, api.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "Logout"))

	var req api.LogoutRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authService.Logout(r.Context(), req.RefreshToken); err != nil {
		l.ErrorContext(r.Context(), "Logout failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "logout failed")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, api.Response{Success: true, Message: "logged out"})
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "ChangePassword"))

	userID, ok := appMiddleware.GetUserIDFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req api.ChangePasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.NewPassword == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "new password must not be empty")
		return
	}

	err := h.authService.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			api.ErrorResponse(w, r, http.StatusUnauthorized, "invalid old password")
			return
		}
		if errors.Is(err, ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "user not found")
			return
		}
		l.ErrorContext(r.Context(), "Change password failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "change password failed")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, api.Response{Success: true, Message: "password changed"})
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := appMiddleware.GetUserIDFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := h.authService.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "user not found")
			return
		}
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to load session")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, user)
}
