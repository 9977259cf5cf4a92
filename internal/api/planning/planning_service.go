package planning

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/FACorreiaa/go-group-trip-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-group-trip-planner/internal/planner"
	"github.com/FACorreiaa/go-group-trip-planner/internal/types"
)

// Membership gates planning operations to group members. Privileged
// operations (remove, promote, settings, generate) additionally require the
// admin role.
type Membership interface {
	RequireMember(ctx context.Context, groupID, userID uuid.UUID) (string, error)
}

var ErrAdminOnly = fmt.Errorf("operation restricted to group admins")

type Service interface {
	GetView(ctx context.Context, groupID, userID uuid.UUID) (planner.View, error)
	AddRecommendation(ctx context.Context, groupID, userID uuid.UUID, req types.AddRecommendationRequest) (planner.Recommendation, planner.View, error)
	RemoveRecommendation(ctx context.Context, groupID, userID uuid.UUID, recID int) (planner.View, error)
	Vote(ctx context.Context, groupID, userID uuid.UUID, recID int) (planner.Recommendation, planner.View, error)
	Unvote(ctx context.Context, groupID, userID uuid.UUID, recID int) (planner.Recommendation, planner.View, error)
	Promote(ctx context.Context, groupID, userID uuid.UUID, recID int) (planner.CartItem, planner.View, bool, error)
	AddActivity(ctx context.Context, groupID, userID uuid.UUID, req types.AddActivityRequest) (planner.CartItem, planner.View, error)
	RemoveCartItem(ctx context.Context, groupID, userID uuid.UUID, req types.RemoveCartItemRequest) (planner.View, error)
	UpdateSettings(ctx context.Context, groupID, userID uuid.UUID, req types.UpdateSettingsRequest) (planner.CartSettings, planner.View, error)
	GenerateItinerary(ctx context.Context, groupID, userID uuid.UUID) (planner.Itinerary, planner.View, error)
	ListItineraries(ctx context.Context, groupID, userID uuid.UUID) ([]planner.Itinerary, error)
	CartItems(ctx context.Context, groupID uuid.UUID) ([]planner.CartItem, error)
	ForgetGroup(ctx context.Context, groupID uuid.UUID) error
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	logger     *slog.Logger
	repo       Repository
	membership Membership
	manager    *planner.Manager
	metrics    *metrics.AppMetrics

	// loadGroup collapses concurrent first-touch loads of the same group.
	loadGroup singleflight.Group
	loadedMu  sync.Mutex
	loaded    map[uuid.UUID]bool
}

func NewPlanningService(repo Repository, membership Membership, appMetrics *metrics.AppMetrics, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:     logger,
		repo:       repo,
		membership: membership,
		manager:    planner.NewManager(),
		metrics:    appMetrics,
		loaded:     make(map[uuid.UUID]bool),
	}
}

func (s *ServiceImpl) requireAdmin(ctx context.Context, groupID, userID uuid.UUID) error {
	role, err := s.membership.RequireMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if role != types.GroupRoleAdmin {
		return ErrAdminOnly
	}
	return nil
}

// groupPlanner returns the in-memory planner for the group, hydrating it
// from storage exactly once per process lifetime.
func (s *ServiceImpl) groupPlanner(ctx context.Context, groupID uuid.UUID) (*planner.GroupPlanner, error) {
	s.loadedMu.Lock()
	already := s.loaded[groupID]
	s.loadedMu.Unlock()
	if already {
		return s.manager.Get(groupID), nil
	}

	_, err, _ := s.loadGroup.Do(groupID.String(), func() (interface{}, error) {
		s.loadedMu.Lock()
		already := s.loaded[groupID]
		s.loadedMu.Unlock()
		if already {
			return nil, nil
		}

		state, err := s.repo.LoadState(ctx, groupID)
		if err != nil {
			return nil, err
		}
		p := s.manager.Get(groupID)
		p.Restore(state)

		s.loadedMu.Lock()
		s.loaded[groupID] = true
		s.loadedMu.Unlock()
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return s.manager.Get(groupID), nil
}

func (s *ServiceImpl) persist(ctx context.Context, p *planner.GroupPlanner, l *slog.Logger) error {
	if err := s.repo.SaveState(ctx, p.State()); err != nil {
		l.ErrorContext(ctx, "Failed to persist planning state", slog.Any("error", err))
		return fmt.Errorf("failed to persist planning state: %w", err)
	}
	return nil
}

func (s *ServiceImpl) GetView(ctx context.Context, groupID, userID uuid.UUID) (planner.View, error) {
	ctx, span := otel.Tracer("PlanningService").Start(ctx, "GetView")
	defer span.End()

	if _, err := s.membership.RequireMember(ctx, groupID, userID); err != nil {
		span.SetStatus(codes.Error, "membership check failed")
		return planner.View{}, err
	}
	p, err := s.groupPlanner(ctx, groupID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "state load failed")
		return planner.View{}, err
	}
	span.SetStatus(codes.Ok, "view fetched")
	return p.View(), nil
}

func (s *ServiceImpl) AddRecommendation(ctx context.Context, groupID, userID uuid.UUID, req types.AddRecommendationRequest) (planner.Recommendation, planner.View, error) {
	ctx, span := otel.Tracer("PlanningService").Start(ctx, "AddRecommendation")
	defer span.End()
	l := s.logger.With(slog.String("method", "AddRecommendation"), slog.String("group_id", groupID.String()))

	if _, err := s.membership.RequireMember(ctx, groupID, userID); err != nil {
		span.SetStatus(codes.Error, "membership check failed")
		return planner.Recommendation{}, planner.View{}, err
	}

	kind, err := planner.ParseKind(req.Kind)
	if err != nil {
		span.SetStatus(codes.Error, "invalid kind")
		return planner.Recommendation{}, planner.View{}, err
	}
	payload, err := planner.NormalizeCandidate(req.Candidate)
	if err != nil {
		span.SetStatus(codes.Error, "invalid candidate")
		return planner.Recommendation{}, planner.View{}, err
	}

	p, err := s.groupPlanner(ctx, groupID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "state load failed")
		return planner.Recommendation{}, planner.View{}, err
	}

	rec, view, err := p.AddRecommendation(kind, payload, userID.String())
	if err != nil {
		span.SetStatus(codes.Error, "add rejected")
		return planner.Recommendation{}, planner.View{}, err
	}
	if err := s.persist(ctx, p, l); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return planner.Recommendation{}, planner.View{}, err
	}

	if s.metrics != nil {
		s.metrics.RecommendationsAddedTotal.Add(ctx, 1)
	}
	l.InfoContext(ctx, "Recommendation added", slog.Int("rec_id", rec.ID))
	span.SetStatus(codes.Ok, "recommendation added")
	return rec, view, nil
}

func (s *ServiceImpl) RemoveRecommendation(ctx context.Context, groupID, userID uuid.UUID, recID int) (planner.View, error) {
	ctx, span := otel.Tracer("PlanningService").Start(ctx, "RemoveRecommendation")
	defer span.End()
	l := s.logger.With(slog.String("method", "RemoveRecommendation"), slog.String("group_id", groupID.String()))

	if err := s.requireAdmin(ctx, groupID, userID); err != nil {
		span.SetStatus(codes.Error, "admin check failed")
		return planner.View{}, err
	}
	p, err := s.groupPlanner(ctx, groupID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "state load failed")
		return planner.View{}, err
	}

	view, err := p.RemoveRecommendation(recID)
	if err != nil {
		span.SetStatus(codes.Error, "remove rejected")
		return planner.View{}, err
	}
	if err := s.persist(ctx, p, l); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return planner.View{}, err
	}

	span.SetStatus(codes.Ok, "recommendation removed")
	return view, nil
}

func (s *ServiceImpl) Vote(ctx context.Context, groupID, userID uuid.UUID, recID int) (planner.Recommendation, planner.View, error) {
	ctx, span := otel.Tracer("PlanningService").Start(ctx, "Vote")
	defer span.End()
	l := s.logger.With(slog.String("method", "Vote"), slog.String("group_id", groupID.String()))

	if _, err := s.membership.RequireMember(ctx, groupID, userID); err != nil {
		span.SetStatus(codes.Error, "membership check failed")
		return planner.Recommendation{}, planner.View{}, err
	}
	p, err := s.groupPlanner(ctx, groupID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "state load failed")
		return planner.Recommendation{}, planner.View{}, err
	}

	rec, view, err := p.Vote(recID, userID.String())
	if err != nil {
		span.SetStatus(codes.Error, "vote rejected")
		return planner.Recommendation{}, planner.View{}, err
	}
	if err := s.persist(ctx, p, l); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return planner.Recommendation{}, planner.View{}, err
	}

	if s.metrics != nil {
		s.metrics.VotesCastTotal.Add(ctx, 1)
	}
	span.SetStatus(codes.Ok, "vote recorded")
	return rec, view, nil
}

func (s *ServiceImpl) Unvote(ctx context.Context, groupID, userID uuid.UUID, recID int) (planner.Recommendation, planner.View, error) {
	ctx, span := otel.Tracer("PlanningService").Start(ctx, "Unvote")
	defer span.End()
	l := s.logger.With(slog.String("method", "Unvote"), slog.String("group_id", groupID.String()))

	if _, err := s.membership.RequireMember(ctx, groupID, userID); err != nil {
		span.SetStatus(codes.Error, "membership check failed")
		return planner.Recommendation{}, planner.View{}, err
	}
	p, err := s.groupPlanner(ctx, groupID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "state load failed")
		return planner.Recommendation{}, planner.View{}, err
	}

	rec, view, err := p.Unvote(recID, userID.String())
	if err != nil {
		span.SetStatus(codes.Error, "unvote rejected")
		return planner.Recommendation{}, planner.View{}, err
	}
	if err := s.persist(ctx, p, l); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return planner.Recommendation{}, planner.View{}, err
	}

	span.SetStatus(codes.Ok, "vote withdrawn")
	return rec, view, nil
}

// Promote moves a recommendation into the cart. The bool reports an
// already-in-cart outcome, which still removes the source recommendation and
// is not an error to the caller.
func (s *ServiceImpl) Promote(ctx context.Context, groupID, userID uuid.UUID, recID int) (planner.CartItem, planner.View, bool, error) {
	ctx, span := otel.Tracer("PlanningService").Start(ctx, "Promote")
	defer span.End()
	l := s.logger.With(slog.String("method", "Promote"), slog.String("group_id", groupID.String()))

	if err := s.requireAdmin(ctx, groupID, userID); err != nil {
		span.SetStatus(codes.Error, "admin check failed")
		return planner.CartItem{}, planner.View{}, false, err
	}
	p, err := s.groupPlanner(ctx, groupID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "state load failed")
		return planner.CartItem{}, planner.View{}, false, err
	}

	item, view, err := p.Promote(recID, userID.String())
	alreadyInCart := false
	if err != nil {
		if !planner.IsAlreadyInCart(err) {
			span.SetStatus(codes.Error, "promote rejected")
			return planner.CartItem{}, planner.View{}, false, err
		}
		alreadyInCart = true
	}
	// Even the already-in-cart path mutates state: the source is removed
	if err := s.persist(ctx, p, l); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return planner.CartItem{}, planner.View{}, false, err
	}

	if s.metrics != nil {
		s.metrics.CartPromotionsTotal.Add(ctx, 1)
	}
	l.InfoContext(ctx, "Recommendation promoted",
		slog.Int("rec_id", recID), slog.Bool("already_in_cart", alreadyInCart))
	span.SetStatus(codes.Ok, "promoted")
	return item, view, alreadyInCart, nil
}

func (s *ServiceImpl) AddActivity(ctx context.Context, groupID, userID uuid.UUID, req types.AddActivityRequest) (planner.CartItem, planner.View, error) {
	ctx, span := otel.Tracer("PlanningService").Start(ctx, "AddActivity")
	defer span.End()
	l := s.logger.With(slog.String("method", "AddActivity"), slog.String("group_id", groupID.String()))

	if _, err := s.membership.RequireMember(ctx, groupID, userID); err != nil {
		span.SetStatus(codes.Error, "membership check failed")
		return planner.CartItem{}, planner.View{}, err
	}

	payload, err := planner.NormalizeCandidate(req.Candidate)
	if err != nil {
		span.SetStatus(codes.Error, "invalid candidate")
		return planner.CartItem{}, planner.View{}, err
	}

	p, err := s.groupPlanner(ctx, groupID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "state load failed")
		return planner.CartItem{}, planner.View{}, err
	}

	item, view, err := p.AddActivity(payload, userID.String())
	if err != nil {
		span.SetStatus(codes.Error, "add rejected")
		return planner.CartItem{}, planner.View{}, err
	}
	if err := s.persist(ctx, p, l); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return planner.CartItem{}, planner.View{}, err
	}

	span.SetStatus(codes.Ok, "activity added")
	return item, view, nil
}

func (s *ServiceImpl) RemoveCartItem(ctx context.Context, groupID, userID uuid.UUID, req types.RemoveCartItemRequest) (planner.View, error) {
	ctx, span := otel.Tracer("PlanningService").Start(ctx, "RemoveCartItem")
	defer span.End()
	l := s.logger.With(slog.String("method", "RemoveCartItem"), slog.String("group_id", groupID.String()))

	if _, err := s.membership.RequireMember(ctx, groupID, userID); err != nil {
		span.SetStatus(codes.Error, "membership check failed")
		return planner.View{}, err
	}

	kind, err := planner.ParseKind(req.Kind)
	if err != nil {
		span.SetStatus(codes.Error, "invalid kind")
		return planner.View{}, err
	}

	p, err := s.groupPlanner(ctx, groupID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "state load failed")
		return planner.View{}, err
	}

	view, err := p.RemoveCartItem(kind, req.SubjectKey)
	if err != nil {
		span.SetStatus(codes.Error, "remove rejected")
		return planner.View{}, err
	}
	if err := s.persist(ctx, p, l); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return planner.View{}, err
	}

	span.SetStatus(codes.Ok, "cart item removed")
	return view, nil
}

// UpdateSettings is admin-gated: trip shape changes invalidate everyone's
// mental model of the plan, so only admins may change them.
func (s *ServiceImpl) UpdateSettings(ctx context.Context, groupID, userID uuid.UUID, req types.UpdateSettingsRequest) (planner.CartSettings, planner.View, error) {
	ctx, span := otel.Tracer("PlanningService").Start(ctx, "UpdateSettings")
	defer span.End()
	l := s.logger.With(slog.String("method", "UpdateSettings"), slog.String("group_id", groupID.String()))

	if err := s.requireAdmin(ctx, groupID, userID); err != nil {
		span.SetStatus(codes.Error, "admin check failed")
		return planner.CartSettings{}, planner.View{}, err
	}

	p, err := s.groupPlanner(ctx, groupID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "state load failed")
		return planner.CartSettings{}, planner.View{}, err
	}

	settings, view, err := p.UpdateSettings(req.TripDays, req.PartySize)
	if err != nil {
		span.SetStatus(codes.Error, "settings rejected")
		return planner.CartSettings{}, planner.View{}, err
	}
	if err := s.persist(ctx, p, l); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return planner.CartSettings{}, planner.View{}, err
	}

	l.InfoContext(ctx, "Settings updated",
		slog.Int("trip_days", settings.TripDays), slog.Int("party_size", settings.PartySize))
	span.SetStatus(codes.Ok, "settings updated")
	return settings, view, nil
}

func (s *ServiceImpl) GenerateItinerary(ctx context.Context, groupID, userID uuid.UUID) (planner.Itinerary, planner.View, error) {
	ctx, span := otel.Tracer("PlanningService").Start(ctx, "GenerateItinerary")
	defer span.End()
	l := s.logger.With(slog.String("method", "GenerateItinerary"), slog.String("group_id", groupID.String()))

	if err := s.requireAdmin(ctx, groupID, userID); err != nil {
		span.SetStatus(codes.Error, "admin check failed")
		return planner.Itinerary{}, planner.View{}, err
	}
	p, err := s.groupPlanner(ctx, groupID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "state load failed")
		return planner.Itinerary{}, planner.View{}, err
	}

	it, view, err := p.Generate()
	if err != nil {
		span.SetStatus(codes.Error, "generation rejected")
		return planner.Itinerary{}, planner.View{}, err
	}
	if err := s.persist(ctx, p, l); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return planner.Itinerary{}, planner.View{}, err
	}

	if s.metrics != nil {
		s.metrics.ItinerariesGeneratedTotal.Add(ctx, 1)
	}
	l.InfoContext(ctx, "Itinerary generated", slog.String("itinerary_id", it.ID.String()))
	span.SetStatus(codes.Ok, "itinerary generated")
	return it, view, nil
}

func (s *ServiceImpl) ListItineraries(ctx context.Context, groupID, userID uuid.UUID) ([]planner.Itinerary, error) {
	ctx, span := otel.Tracer("PlanningService").Start(ctx, "ListItineraries")
	defer span.End()

	if _, err := s.membership.RequireMember(ctx, groupID, userID); err != nil {
		span.SetStatus(codes.Error, "membership check failed")
		return nil, err
	}
	p, err := s.groupPlanner(ctx, groupID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "state load failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "itineraries listed")
	return p.History(), nil
}

// CartItems implements the suggestion service's CartReader. No membership
// check here; the caller is expected to have gated already.
func (s *ServiceImpl) CartItems(ctx context.Context, groupID uuid.UUID) ([]planner.CartItem, error) {
	p, err := s.groupPlanner(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return p.View().Cart.Items, nil
}

// ForgetGroup drops the in-memory planner and stored state, used when a
// group is deleted.
func (s *ServiceImpl) ForgetGroup(ctx context.Context, groupID uuid.UUID) error {
	s.manager.Forget(groupID)
	s.loadedMu.Lock()
	delete(s.loaded, groupID)
	s.loadedMu.Unlock()
	return s.repo.DeleteState(ctx, groupID)
}
