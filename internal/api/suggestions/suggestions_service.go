package suggestions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-group-trip-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-group-trip-planner/config"
	"github.com/FACorreiaa/go-group-trip-planner/internal/planner"
	"github.com/FACorreiaa/go-group-trip-planner/internal/types"
)

// Membership gates suggestion runs to group members.
type Membership interface {
	RequireMember(ctx context.Context, groupID, userID uuid.UUID) (string, error)
}

// CartReader exposes the group's current cart so suggestions already promoted
// can be filtered out before they reach the client.
type CartReader interface {
	CartItems(ctx context.Context, groupID uuid.UUID) ([]planner.CartItem, error)
}

type Service interface {
	GenerateSuggestions(ctx context.Context, groupID, userID uuid.UUID, req SuggestionRequest) (*SuggestionSet, error)
	ListInteractions(ctx context.Context, groupID, userID uuid.UUID, limit int) ([]types.AIInteraction, error)
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	logger     *slog.Logger
	ai         AIProvider
	repo       Repository
	membership Membership
	carts      CartReader
	cache      *cache.Cache
	cfg        *config.Config
	metrics    *metrics.AppMetrics
}

func NewSuggestionsService(
	ai AIProvider,
	repo Repository,
	membership Membership,
	carts CartReader,
	cfg *config.Config,
	appMetrics *metrics.AppMetrics,
	logger *slog.Logger,
) *ServiceImpl {
	ttl := cfg.Gemini.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &ServiceImpl{
		logger:     logger,
		ai:         ai,
		repo:       repo,
		membership: membership,
		carts:      carts,
		cache:      cache.New(ttl, 10*time.Minute),
		cfg:        cfg,
		metrics:    appMetrics,
	}
}

func suggestionCacheKey(groupID uuid.UUID, req SuggestionRequest) string {
	return fmt.Sprintf("suggestions:%s:%s:%s:%d:%d:%s",
		groupID, strings.ToLower(req.City), req.Budget,
		req.TripDays, req.PartySize, strings.ToLower(strings.Join(req.Interests, ",")))
}

// GenerateSuggestions asks the model for hotels and activities concurrently,
// parses both lists into normalized payloads and drops anything the group
// already has in its cart. Results are cached per request shape.
func (s *ServiceImpl) GenerateSuggestions(ctx context.Context, groupID, userID uuid.UUID, req SuggestionRequest) (*SuggestionSet, error) {
	ctx, span := otel.Tracer("SuggestionsService").Start(ctx, "GenerateSuggestions")
	defer span.End()
	l := s.logger.With(slog.String("method", "GenerateSuggestions"),
		slog.String("group_id", groupID.String()), slog.String("city", req.City))

	if _, err := s.membership.RequireMember(ctx, groupID, userID); err != nil {
		span.SetStatus(codes.Error, "membership check failed")
		return nil, err
	}

	req.City = strings.TrimSpace(req.City)
	if req.City == "" {
		span.SetStatus(codes.Error, "city missing")
		return nil, fmt.Errorf("city is required: %w", ErrBadAIResponse)
	}
	if req.TripDays < 1 {
		req.TripDays = 1
	}
	if req.PartySize < 1 {
		req.PartySize = 1
	}

	key := suggestionCacheKey(groupID, req)
	if cached, found := s.cache.Get(key); found {
		set := cached.(*SuggestionSet)
		filtered, err := s.filterAgainstCart(ctx, groupID, set)
		if err != nil {
			return nil, err
		}
		filtered.FromCache = true
		l.InfoContext(ctx, "Served suggestions from cache")
		span.SetStatus(codes.Ok, "cache hit")
		return filtered, nil
	}

	var hotels, activities []planner.Payload
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		hotels, err = s.fetchCandidates(gctx, groupID, userID, buildHotelPrompt(req))
		return err
	})
	g.Go(func() error {
		var err error
		activities, err = s.fetchCandidates(gctx, groupID, userID, buildActivityPrompt(req))
		return err
	})
	if err := g.Wait(); err != nil {
		l.ErrorContext(ctx, "Suggestion generation failed", slog.Any("error", err))
		if s.metrics != nil {
			s.metrics.AISuggestionErrorsTotal.Add(ctx, 1)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return nil, err
	}

	set := &SuggestionSet{
		City:       req.City,
		Hotels:     dedupeWithin(hotels),
		Activities: dedupeWithin(activities),
	}
	s.cache.Set(key, set, cache.DefaultExpiration)

	filtered, err := s.filterAgainstCart(ctx, groupID, set)
	if err != nil {
		return nil, err
	}

	l.InfoContext(ctx, "Suggestions generated",
		slog.Int("hotels", len(filtered.Hotels)), slog.Int("activities", len(filtered.Activities)))
	span.SetStatus(codes.Ok, "suggestions generated")
	return filtered, nil
}

func (s *ServiceImpl) fetchCandidates(ctx context.Context, groupID, userID uuid.UUID, prompt string) ([]planner.Payload, error) {
	start := time.Now()
	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](s.cfg.Gemini.Temperature),
	}

	text, err := s.ai.GenerateContent(ctx, prompt, genConfig)
	latency := time.Since(start)
	if s.metrics != nil {
		s.metrics.AISuggestionDurationSecs.Record(ctx, latency.Seconds())
	}

	// The audit row is written even for failed calls
	if auditErr := s.repo.SaveInteraction(ctx, types.AIInteraction{
		GroupID:      groupID,
		UserID:       userID,
		Prompt:       prompt,
		ResponseText: text,
		ModelUsed:    s.cfg.Gemini.Model,
		LatencyMs:    int(latency.Milliseconds()),
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "Failed to save AI interaction", slog.Any("error", auditErr))
	}

	if err != nil {
		return nil, err
	}

	return parseCandidates(text)
}

// parseCandidates turns the model's JSON array into normalized payloads.
// Malformed elements are skipped rather than failing the whole batch.
func parseCandidates(text string) ([]planner.Payload, error) {
	cleanTxt := cleanJSONResponse(text)

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(cleanTxt), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadAIResponse, err)
	}

	payloads := make([]planner.Payload, 0, len(raw))
	for _, candidate := range raw {
		p, err := planner.NormalizeCandidate(candidate)
		if err != nil {
			continue
		}
		payloads = append(payloads, p)
	}
	if len(payloads) == 0 {
		return nil, fmt.Errorf("%w: no usable candidates", ErrBadAIResponse)
	}
	return payloads, nil
}

// dedupeWithin drops later candidates that share a subject with an earlier one.
func dedupeWithin(payloads []planner.Payload) []planner.Payload {
	out := make([]planner.Payload, 0, len(payloads))
	for _, p := range payloads {
		dup := false
		for _, kept := range out {
			if planner.SameSubject(kept, p) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	return out
}

func (s *ServiceImpl) filterAgainstCart(ctx context.Context, groupID uuid.UUID, set *SuggestionSet) (*SuggestionSet, error) {
	items, err := s.carts.CartItems(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart for filtering: %w", err)
	}

	filter := func(kind planner.Kind, payloads []planner.Payload) []planner.Payload {
		out := make([]planner.Payload, 0, len(payloads))
		for _, p := range payloads {
			covered := false
			for _, item := range items {
				if item.Kind == kind && planner.SameSubject(item.Payload, p) {
					covered = true
					break
				}
			}
			if !covered {
				out = append(out, p)
			}
		}
		return out
	}

	return &SuggestionSet{
		City:       set.City,
		Hotels:     filter(planner.KindHotel, set.Hotels),
		Activities: filter(planner.KindActivity, set.Activities),
		FromCache:  set.FromCache,
	}, nil
}

func (s *ServiceImpl) ListInteractions(ctx context.Context, groupID, userID uuid.UUID, limit int) ([]types.AIInteraction, error) {
	ctx, span := otel.Tracer("SuggestionsService").Start(ctx, "ListInteractions")
	defer span.End()

	if _, err := s.membership.RequireMember(ctx, groupID, userID); err != nil {
		span.SetStatus(codes.Error, "membership check failed")
		return nil, err
	}

	interactions, err := s.repo.ListInteractionsByGroup(ctx, groupID, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "listing failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "interactions listed")
	return interactions, nil
}
