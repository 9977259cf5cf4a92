package suggestions

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/go-group-trip-planner/app/middleware"
	"github.com/FACorreiaa/go-group-trip-planner/internal/api"
	"github.com/FACorreiaa/go-group-trip-planner/internal/api/groups"
	"github.com/FACorreiaa/go-group-trip-planner/internal/types"
)

type Handler struct {
	suggestionsService Service
	logger             *slog.Logger
}

func NewSuggestionsHandler(suggestionsService Service, logger *slog.Logger) *Handler {
	return &Handler{
		suggestionsService: suggestionsService,
		logger:             logger,
	}
}

func (h *Handler) parseIDs(w http.ResponseWriter, r *http.Request) (groupID, userID uuid.UUID, ok bool) {
	raw, found := appMiddleware.GetUserIDFromContext(r.Context())
	if !found {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "authentication required")
		return uuid.Nil, uuid.Nil, false
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "invalid user identity")
		return uuid.Nil, uuid.Nil, false
	}
	groupID, err = uuid.Parse(chi.URLParam(r, "groupID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid group id")
		return uuid.Nil, uuid.Nil, false
	}
	return groupID, userID, true
}

func (h *Handler) GenerateSuggestions(w http.ResponseWriter, r *http.Request) {
	groupID, userID, ok := h.parseIDs(w, r)
	if !ok {
		return
	}

	var req SuggestionRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	set, err := h.suggestionsService.GenerateSuggestions(r.Context(), groupID, userID, req)
	if err != nil {
		switch {
		case errors.Is(err, groups.ErrNotMember):
			api.ErrorResponse(w, r, http.StatusForbidden, "not a member of this group")
		case errors.Is(err, ErrBadAIResponse):
			api.ErrorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, ErrAIUnavailable):
			api.ErrorResponse(w, r, http.StatusBadGateway, "suggestion provider unavailable")
		default:
			h.logger.ErrorContext(r.Context(), "Suggestion generation failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "suggestion generation failed")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, set)
}

func (h *Handler) ListInteractions(w http.ResponseWriter, r *http.Request) {
	groupID, userID, ok := h.parseIDs(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	interactions, err := h.suggestionsService.ListInteractions(r.Context(), groupID, userID, limit)
	if err != nil {
		if errors.Is(err, groups.ErrNotMember) {
			api.ErrorResponse(w, r, http.StatusForbidden, "not a member of this group")
			return
		}
		h.logger.ErrorContext(r.Context(), "Failed to list interactions", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "failed to list interactions")
		return
	}
	if interactions == nil {
		interactions = []types.AIInteraction{}
	}

	api.WriteJSONResponse(w, r, http.StatusOK, interactions)
}
