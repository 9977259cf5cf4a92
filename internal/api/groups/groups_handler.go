package groups

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/go-group-trip-planner/app/middleware"
	"github.com/FACorreiaa/go-group-trip-planner/internal/api"
	"github.com/FACorreiaa/go-group-trip-planner/internal/types"
)

type Handler struct {
	groupsService Service
	logger        *slog.Logger
}

func NewGroupsHandler(groupsService Service, logger *slog.Logger) *Handler {
	return &Handler{
		groupsService: groupsService,
		logger:        logger,
	}
}

func authedUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw, ok := appMiddleware.GetUserIDFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "authentication required")
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "invalid user identity")
		return uuid.Nil, false
	}
	return userID, true
}

func groupIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	groupID, err := uuid.Parse(chi.URLParam(r, "groupID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid group id")
		return uuid.Nil, false
	}
	return groupID, true
}

func (h *Handler) writeGroupsError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, "group not found")
	case errors.Is(err, ErrNotMember):
		api.ErrorResponse(w, r, http.StatusForbidden, "not a member of this group")
	case errors.Is(err, ErrForbidden):
		api.ErrorResponse(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrConflict):
		api.ErrorResponse(w, r, http.StatusConflict, "already a member")
	case errors.Is(err, ErrMessageBlocked):
		api.ErrorResponse(w, r, http.StatusUnprocessableEntity, "message rejected by moderation")
	default:
		h.logger.ErrorContext(r.Context(), "Unhandled groups error", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	var req types.CreateGroupRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	group, err := h.groupsService.CreateGroup(r.Context(), req, userID)
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			api.ErrorResponse(w, r, http.StatusBadRequest, "group name and city are required")
			return
		}
		h.writeGroupsError(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, group)
}

func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	if _, ok := authedUserID(w, r); !ok {
		return
	}

	city := r.URL.Query().Get("city")
	if city == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "city query parameter is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	groups, err := h.groupsService.ListGroupsByCity(r.Context(), city, limit, offset)
	if err != nil {
		h.writeGroupsError(w, r, err)
		return
	}
	if groups == nil {
		groups = []types.TravelGroup{}
	}

	api.WriteJSONResponse(w, r, http.StatusOK, groups)
}

func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	if _, ok := authedUserID(w, r); !ok {
		return
	}
	groupID, ok := groupIDParam(w, r)
	if !ok {
		return
	}

	detail, err := h.groupsService.GetGroup(r.Context(), groupID)
	if err != nil {
		h.writeGroupsError(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, detail)
}

func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := groupIDParam(w, r)
	if !ok {
		return
	}

	if err := h.groupsService.DeleteGroup(r.Context(), groupID, userID); err != nil {
		h.writeGroupsError(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

func (h *Handler) JoinGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := groupIDParam(w, r)
	if !ok {
		return
	}

	if err := h.groupsService.JoinGroup(r.Context(), groupID, userID); err != nil {
		h.writeGroupsError(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, api.Response{Success: true, Message: "joined group"})
}

func (h *Handler) LeaveGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := groupIDParam(w, r)
	if !ok {
		return
	}

	if err := h.groupsService.LeaveGroup(r.Context(), groupID, userID); err != nil {
		h.writeGroupsError(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, api.Response{Success: true, Message: "left group"})
}

func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := groupIDParam(w, r)
	if !ok {
		return
	}

	var req types.PostMessageRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.groupsService.PostMessage(r.Context(), groupID, userID, req.Content)
	if err != nil {
		h.writeGroupsError(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, msg)
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}
	groupID, ok := groupIDParam(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	page, err := h.groupsService.ListMessages(r.Context(), groupID, userID, limit, offset)
	if err != nil {
		h.writeGroupsError(w, r, err)
		return
	}
	if page.Messages == nil {
		page.Messages = []types.ChatMessage{}
	}

	api.WriteJSONResponse(w, r, http.StatusOK, page)
}
