package planning

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
	"github.com/FACorreiaa/go-group-trip-planner/internal/planner"
	"github.com/FACorreiaa/go-group-trip-planner/internal/types"
)

type Handler struct {
	planningService Service
	logger          *slog.Logger
}

func NewPlanningHandler(planningService Service, logger *slog.Logger) *Handler {
	return &Handler{
		planningService: planningService,
		logger:          logger,
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

func recIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	recID, err := strconv.Atoi(chi.URLParam(r, "recID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid recommendation id")
		return 0, false
	}
	return recID, true
}

func (h *Handler) writePlanningError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, groups.ErrNotMember):
		api.ErrorResponse(w, r, http.StatusForbidden, "not a member of this group")
	case errors.Is(err, ErrAdminOnly):
		api.ErrorResponse(w, r, http.StatusForbidden, "operation restricted to group admins")
	case api.StatusForPlannerError(err) != http.StatusInternalServerError:
		api.ErrorResponse(w, r, api.StatusForPlannerError(err), err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "Unhandled planning error", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "internal error")
	}
}

// GetView returns the group's full render-ready planning state.
func (h *Handler) GetView(w http.ResponseWriter, r *http.Request) {
	groupID, userID, ok := h.parseIDs(w, r)
	if !ok {
		return
	}

	view, err := h.planningService.GetView(r.Context(), groupID, userID)
	if err != nil {
		h.writePlanningError(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, view)
}

func (h *Handler) AddRecommendation(w http.ResponseWriter, r *http.Request) {
	groupID, userID, ok := h.parseIDs(w, r)
	if !ok {
		return
	}

	var req types.AddRecommendationRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	rec, view, err := h.planningService.AddRecommendation(r.Context(), groupID, userID, req)
	if err != nil {
		h.writePlanningError(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, map[string]interface{}{
		"recommendation": rec,
		"view":           view,
	})
}

func (h *Handler) RemoveRecommendation(w http.ResponseWriter, r *http.Request) {
	groupID, userID, ok := h.parseIDs(w, r)
	if !ok {
		return
	}
	recID, ok := recIDParam(w, r)
	if !ok {
		return
	}

	view, err := h.planningService.RemoveRecommendation(r.Context(), groupID, userID, recID)
	if err != nil {
		h.writePlanningError(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, view)
}

func (h *Handler) Vote(w http.ResponseWriter, r *http.Request) {
	groupID, userID, ok := h.parseIDs(w, r)
	if !ok {
		return
	}
	recID, ok := recIDParam(w, r)
	if !ok {
		return
	}

	rec, view, err := h.planningService.Vote(r.Context(), groupID, userID, recID)
	if err != nil {
		h.writePlanningError(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"recommendation": rec,
		"view":           view,
	})
}

func (h *Handler) Unvote(w http.ResponseWriter, r *http.Request) {
	groupID, userID, ok := h.parseIDs(w, r)
	if !ok {
		return
	}
	recID, ok := recIDParam(w, r)
	if !ok {
		return
	}

	rec, view, err := h.planningService.Unvote(r.Context(), groupID, userID, recID)
	if err != nil {
		h.writePlanningError(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"recommendation": rec,
		"view":           view,
	})
}

// Promote answers 200 even when the subject was already in the cart; the
// response carries the surviving item and flags the outcome.
func (h *Handler) Promote(w http.ResponseWriter, r *http.Request) {
	groupID, userID, ok := h.parseIDs(w, r)
	if !ok {
		return
	}
	recID, ok := recIDParam(w, r)
	if !ok {
		return
	}

	item, view, alreadyInCart, err := h.planningService.Promote(r.Context(), groupID, userID, recID)
	if err != nil {
		h.writePlanningError(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"item":            item,
		"already_in_cart": alreadyInCart,
		"view":            view,
	})
}

func (h *Handler) AddActivity(w http.ResponseWriter, r *http.Request) {
	groupID, userID, ok := h.parseIDs(w, r)
	if !ok {
		return
	}

	var req types.AddActivityRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	item, view, err := h.planningService.AddActivity(r.Context(), groupID, userID, req)
	if err != nil {
		h.writePlanningError(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, map[string]interface{}{
		"item": item,
		"view": view,
	})
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	groupID, userID, ok := h.parseIDs(w, r)
	if !ok {
		return
	}

	var req types.RemoveCartItemRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.planningService.RemoveCartItem(r.Context(), groupID, userID, req)
	if err != nil {
		h.writePlanningError(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, view)
}

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	groupID, userID, ok := h.parseIDs(w, r)
	if !ok {
		return
	}

	var req types.UpdateSettingsRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	settings, view, err := h.planningService.UpdateSettings(r.Context(), groupID, userID, req)
	if err != nil {
		h.writePlanningError(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"settings": settings,
		"view":     view,
	})
}

func (h *Handler) GenerateItinerary(w http.ResponseWriter, r *http.Request) {
	groupID, userID, ok := h.parseIDs(w, r)
	if !ok {
		return
	}

	it, view, err := h.planningService.GenerateItinerary(r.Context(), groupID, userID)
	if err != nil {
		h.writePlanningError(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, map[string]interface{}{
		"itinerary": it,
		"view":      view,
	})
}

func (h *Handler) ListItineraries(w http.ResponseWriter, r *http.Request) {
	groupID, userID, ok := h.parseIDs(w, r)
	if !ok {
		return
	}

	itineraries, err := h.planningService.ListItineraries(r.Context(), groupID, userID)
	if err != nil {
		h.writePlanningError(w, r, err)
		return
	}
	if itineraries == nil {
		itineraries = []planner.Itinerary{}
	}

	api.WriteJSONResponse(w, r, http.StatusOK, itineraries)
}
