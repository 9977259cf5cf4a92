package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"google.golang.org/genai"

	appMiddleware "github.com/FACorreiaa/go-group-trip-planner/app/middleware"
	"github.com/FACorreiaa/go-group-trip-planner/config"
	"github.com/FACorreiaa/go-group-trip-planner/internal/api/auth"
	"github.com/FACorreiaa/go-group-trip-planner/internal/api/groups"
	"github.com/FACorreiaa/go-group-trip-planner/internal/api/planning"
	"github.com/FACorreiaa/go-group-trip-planner/internal/api/suggestions"
	"github.com/FACorreiaa/go-group-trip-planner/internal/planner"
	"github.com/FACorreiaa/go-group-trip-planner/internal/router"
	"github.com/FACorreiaa/go-group-trip-planner/internal/types"
)

// The suite runs the real router, middleware and services against in-memory
// repositories, so a full user workflow is exercised without a database or a
// live suggestion provider.

type memAuthRepo struct {
	mu      sync.Mutex
	users   map[string]*types.UserAuth
	byEmail map[string]string
	tokens  map[string]*auth.RefreshTokenRecord
}

func newMemAuthRepo() *memAuthRepo {
	return &memAuthRepo{
		users:   make(map[string]*types.UserAuth),
		byEmail: make(map[string]string),
		tokens:  make(map[string]*auth.RefreshTokenRecord),
	}
}

func (r *memAuthRepo) CreateUser(_ context.Context, username, email, passwordHash, role string) (*types.UserAuth, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[email]; exists {
		return nil, fmt.Errorf("user already exists: %w", auth.ErrConflict)
	}
	for _, u := range r.users {
		if u.Username == username {
			return nil, fmt.Errorf("user already exists: %w", auth.ErrConflict)
		}
	}
	now := time.Now()
	user := &types.UserAuth{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		Password:  passwordHash,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.users[user.ID] = user
	r.byEmail[email] = user.ID
	out := *user
	return &out, nil
}

func (r *memAuthRepo) GetUserByEmail(_ context.Context, email string) (*types.UserAuth, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, auth.ErrNotFound
	}
	out := *r.users[id]
	return &out, nil
}

func (r *memAuthRepo) GetUserByID(_ context.Context, userID string) (*types.UserAuth, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return nil, auth.ErrNotFound
	}
	out := *user
	return &out, nil
}

func (r *memAuthRepo) UpdatePasswordHash(_ context.Context, userID, newPasswordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return auth.ErrNotFound
	}
	user.Password = newPasswordHash
	user.UpdatedAt = time.Now()
	return nil
}

func (r *memAuthRepo) StoreRefreshToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[tokenHash] = &auth.RefreshTokenRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	return nil
}

func (r *memAuthRepo) GetRefreshToken(_ context.Context, tokenHash string) (*auth.RefreshTokenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.tokens[tokenHash]
	if !ok {
		return nil, auth.ErrNotFound
	}
	out := *rec
	return &out, nil
}

func (r *memAuthRepo) RevokeRefreshToken(_ context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.tokens[tokenHash]; ok && rec.RevokedAt == nil {
		now := time.Now()
		rec.RevokedAt = &now
	}
	return nil
}

func (r *memAuthRepo) RevokeAllUserRefreshTokens(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, rec := range r.tokens {
		if rec.UserID == userID && rec.RevokedAt == nil {
			rec.RevokedAt = &now
		}
	}
	return nil
}

func (r *memAuthRepo) usernameOf(userID uuid.UUID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[userID.String()]; ok {
		return user.Username
	}
	return ""
}

type memGroupsRepo struct {
	mu       sync.Mutex
	auth     *memAuthRepo
	groups   map[uuid.UUID]*types.TravelGroup
	members  map[uuid.UUID][]types.GroupMember
	messages map[uuid.UUID][]types.ChatMessage
}

func newMemGroupsRepo(authRepo *memAuthRepo) *memGroupsRepo {
	return &memGroupsRepo{
		auth:     authRepo,
		groups:   make(map[uuid.UUID]*types.TravelGroup),
		members:  make(map[uuid.UUID][]types.GroupMember),
		messages: make(map[uuid.UUID][]types.ChatMessage),
	}
}

func (r *memGroupsRepo) CreateGroup(_ context.Context, name, city, country, description string, createdBy uuid.UUID) (*types.TravelGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	g := &types.TravelGroup{
		ID:          uuid.New(),
		Name:        name,
		City:        city,
		Country:     country,
		Description: description,
		CreatedBy:   createdBy,
		MemberCount: 1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.groups[g.ID] = g
	r.members[g.ID] = []types.GroupMember{{
		GroupID: g.ID, UserID: createdBy, Role: types.GroupRoleAdmin, JoinedAt: now,
	}}
	out := *g
	return &out, nil
}

func (r *memGroupsRepo) GetGroup(_ context.Context, groupID uuid.UUID) (*types.TravelGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[groupID]
	if !ok {
		return nil, groups.ErrNotFound
	}
	out := *g
	out.MemberCount = len(r.members[groupID])
	return &out, nil
}

func (r *memGroupsRepo) ListGroupsByCity(_ context.Context, city string, limit, offset int) ([]types.TravelGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []types.TravelGroup
	for _, g := range r.groups {
		if strings.EqualFold(g.City, city) {
			out := *g
			out.MemberCount = len(r.members[g.ID])
			matched = append(matched, out)
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *memGroupsRepo) DeleteGroup(_ context.Context, groupID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.groups[groupID]; !ok {
		return groups.ErrNotFound
	}
	delete(r.groups, groupID)
	delete(r.members, groupID)
	delete(r.messages, groupID)
	return nil
}

func (r *memGroupsRepo) AddMember(_ context.Context, groupID, userID uuid.UUID, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members[groupID] {
		if m.UserID == userID {
			return groups.ErrConflict
		}
	}
	r.members[groupID] = append(r.members[groupID], types.GroupMember{
		GroupID: groupID, UserID: userID, Role: role, JoinedAt: time.Now(),
	})
	return nil
}

func (r *memGroupsRepo) RemoveMember(_ context.Context, groupID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	members := r.members[groupID]
	for i, m := range members {
		if m.UserID == userID {
			r.members[groupID] = append(members[:i], members[i+1:]...)
			return nil
		}
	}
	return groups.ErrNotMember
}

func (r *memGroupsRepo) GetMemberRole(_ context.Context, groupID, userID uuid.UUID) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members[groupID] {
		if m.UserID == userID {
			return m.Role, nil
		}
	}
	return "", groups.ErrNotMember
}

func (r *memGroupsRepo) ListMembers(_ context.Context, groupID uuid.UUID) ([]types.GroupMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.GroupMember, 0, len(r.members[groupID]))
	for _, m := range r.members[groupID] {
		m.Username = r.auth.usernameOf(m.UserID)
		out = append(out, m)
	}
	return out, nil
}

func (r *memGroupsRepo) CountAdmins(_ context.Context, groupID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, m := range r.members[groupID] {
		if m.Role == types.GroupRoleAdmin {
			count++
		}
	}
	return count, nil
}

func (r *memGroupsRepo) InsertMessage(_ context.Context, groupID, userID uuid.UUID, content string) (*types.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg := types.ChatMessage{
		ID:        uuid.New(),
		GroupID:   groupID,
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	r.messages[groupID] = append(r.messages[groupID], msg)
	out := msg
	return &out, nil
}

func (r *memGroupsRepo) ListMessages(_ context.Context, groupID uuid.UUID, limit, offset int) ([]types.ChatMessage, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.messages[groupID]
	total := len(all)

	// Newest first
	reversed := make([]types.ChatMessage, 0, total)
	for i := total - 1; i >= 0; i-- {
		m := all[i]
		m.Username = r.auth.usernameOf(m.UserID)
		reversed = append(reversed, m)
	}
	if offset >= len(reversed) {
		return nil, total, nil
	}
	reversed = reversed[offset:]
	if limit < len(reversed) {
		reversed = reversed[:limit]
	}
	return reversed, total, nil
}

type memPlanningRepo struct {
	mu     sync.Mutex
	states map[uuid.UUID]planner.State
}

func newMemPlanningRepo() *memPlanningRepo {
	return &memPlanningRepo{states: make(map[uuid.UUID]planner.State)}
}

func (r *memPlanningRepo) LoadState(_ context.Context, groupID uuid.UUID) (planner.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if state, ok := r.states[groupID]; ok {
		return state, nil
	}
	return planner.State{
		GroupID: groupID,
		Cart:    planner.CartSnapshot{Settings: planner.CartSettings{TripDays: 1, PartySize: 1}},
	}, nil
}

func (r *memPlanningRepo) SaveState(_ context.Context, state planner.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[state.GroupID] = state
	return nil
}

func (r *memPlanningRepo) DeleteState(_ context.Context, groupID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, groupID)
	return nil
}

type memSuggestionsRepo struct {
	mu           sync.Mutex
	interactions []types.AIInteraction
}

func (r *memSuggestionsRepo) SaveInteraction(_ context.Context, interaction types.AIInteraction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	interaction.ID = uuid.New()
	interaction.CreatedAt = time.Now()
	r.interactions = append(r.interactions, interaction)
	return nil
}

func (r *memSuggestionsRepo) ListInteractionsByGroup(_ context.Context, groupID uuid.UUID, limit int) ([]types.AIInteraction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []types.AIInteraction
	for i := len(r.interactions) - 1; i >= 0; i-- {
		if r.interactions[i].GroupID == groupID {
			out = append(out, r.interactions[i])
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// cannedAI answers hotel prompts and activity prompts with fixed JSON arrays.
type cannedAI struct{}

func (cannedAI) GenerateContent(_ context.Context, prompt string, _ *genai.GenerateContentConfig) (string, error) {
	if strings.Contains(prompt, "hotels") {
		return `[
  {"name": "Hotel Mundial", "provider_code": "LIS-HM", "region": "Baixa", "price_level": "mid", "check_in_day": 1, "check_out_day": 2},
  {"name": "Memmo Alfama", "provider_code": "LIS-MA", "region": "Alfama", "price_level": "luxury", "check_in_day": 1, "check_out_day": 2}
]`, nil
	}
	return "```json\n" + `[
  {"name": "Tram 28 Ride", "region": "Graca", "duration_hint": "1h"},
  {"name": "Oceanario Visit", "region": "Parque das Nacoes", "duration_hint": "3h"},
  {"name": "Fado Night", "region": "Alfama", "duration_hint": "2h"}
]` + "\n```", nil
}

type APITestSuite struct {
	suite.Suite
	server *httptest.Server
	client *http.Client

	planningRepo *memPlanningRepo

	aliceToken string
	bobToken   string
	aliceID    string
	bobID      string
}

func (s *APITestSuite) SetupSuite() {
	logger := slog.New(slog.NewTextHandler(discardWriter{}, nil))

	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "e2e-secret"
	cfg.Auth.AccessTokenTTL = 15 * time.Minute
	cfg.Auth.RefreshTokenTTL = 24 * time.Hour
	cfg.Auth.Issuer = "tripcrew-test"
	cfg.Gemini.Model = "canned-model"
	cfg.Gemini.Temperature = 0.5
	cfg.Gemini.CacheTTL = time.Minute

	authRepo := newMemAuthRepo()
	authService := auth.NewAuthService(authRepo, cfg, logger)
	authHandler := auth.NewAuthHandler(authService, logger)

	groupsRepo := newMemGroupsRepo(authRepo)
	groupsService := groups.NewGroupsService(groupsRepo, logger)
	groupsHandler := groups.NewGroupsHandler(groupsService, logger)

	s.planningRepo = newMemPlanningRepo()
	planningService := planning.NewPlanningService(s.planningRepo, groupsService, nil, logger)
	planningHandler := planning.NewPlanningHandler(planningService, logger)
	groupsService.SetPlanCleanup(planningService)

	suggestionsService := suggestions.NewSuggestionsService(
		cannedAI{}, &memSuggestionsRepo{}, groupsService, planningService, cfg, nil, logger)
	suggestionsHandler := suggestions.NewSuggestionsHandler(suggestionsService, logger)

	apiRouter := router.SetupRouter(&router.Config{
		AuthHandler:            authHandler,
		GroupsHandler:          groupsHandler,
		PlanningHandler:        planningHandler,
		SuggestionsHandler:     suggestionsHandler,
		AuthenticateMiddleware: appMiddleware.Authenticate([]byte(cfg.Auth.JWTSecret)),
	})

	s.server = httptest.NewServer(apiRouter)
	s.client = &http.Client{Timeout: 10 * time.Second}
}

func (s *APITestSuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func (s *APITestSuite) request(method, path string, body interface{}, token string) *http.Response {
	s.T().Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.T(), err)
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, s.server.URL+path, reqBody)
	require.NoError(s.T(), err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	require.NoError(s.T(), err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (s *APITestSuite) registerAndLogin(username, email, password string) (token, userID string) {
	t := s.T()

	resp := s.request(http.MethodPost, "/api/v1/auth/register",
		map[string]string{"username": username, "email": email, "password": password}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = s.request(http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email": email, "password": password}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)

	token, _ = body["access_token"].(string)
	userID, _ = body["user_id"].(string)
	require.NotEmpty(t, token)
	require.NotEmpty(t, userID)
	return token, userID
}

func (s *APITestSuite) TestGroupPlanningWorkflow() {
	t := s.T()

	s.aliceToken, s.aliceID = s.registerAndLogin("alice", "alice@example.com", "password-one")
	s.bobToken, s.bobID = s.registerAndLogin("bob", "bob@example.com", "password-two")

	// Alice creates a Lisbon group and becomes its admin
	resp := s.request(http.MethodPost, "/api/v1/groups",
		map[string]string{"name": "Lisbon Crew", "city": "Lisbon", "country": "Portugal"}, s.aliceToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	group := decodeBody(t, resp)
	groupID, _ := group["id"].(string)
	require.NotEmpty(t, groupID)
	base := "/api/v1/groups/" + groupID

	// The group shows up when browsing the city
	resp = s.request(http.MethodGet, "/api/v1/groups?city=lisbon", nil, s.bobToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	resp.Body.Close()
	require.Len(t, listed, 1)
	assert.Equal(t, "Lisbon Crew", listed[0]["name"])

	// Bob joins; joining twice conflicts
	resp = s.request(http.MethodPost, base+"/join", nil, s.bobToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp = s.request(http.MethodPost, base+"/join", nil, s.bobToken)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Chat: a normal message lands, one with contact details is blocked
	resp = s.request(http.MethodPost, base+"/messages",
		map[string]string{"content": "When is everyone arriving?"}, s.bobToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = s.request(http.MethodPost, base+"/messages",
		map[string]string{"content": "email me at bob@spam.example"}, s.bobToken)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	resp = s.request(http.MethodGet, base+"/messages", nil, s.aliceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decodeBody(t, resp)
	assert.Equal(t, float64(1), page["total"])

	// AI suggestions come back parsed and grouped
	resp = s.request(http.MethodPost, base+"/suggestions",
		map[string]interface{}{"city": "Lisbon", "trip_days": 2, "party_size": 2}, s.aliceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	set := decodeBody(t, resp)
	assert.Len(t, set["hotels"], 2)
	assert.Len(t, set["activities"], 3)

	// Alice puts a suggested hotel on the board
	resp = s.request(http.MethodPost, base+"/planning/recommendations",
		map[string]interface{}{
			"kind":      "hotel",
			"candidate": map[string]string{"name": "Hotel Mundial", "provider_code": "LIS-HM"},
		}, s.aliceToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	added := decodeBody(t, resp)
	rec := added["recommendation"].(map[string]interface{})
	recID := int(rec["id"].(float64))

	// Bob votes for it
	votePath := fmt.Sprintf("%s/planning/recommendations/%d/vote", base, recID)
	resp = s.request(http.MethodPost, votePath, nil, s.bobToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	voted := decodeBody(t, resp)
	votedRec := voted["recommendation"].(map[string]interface{})
	assert.Len(t, votedRec["votes"], 1)

	// Alice promotes it into the shared cart
	promotePath := fmt.Sprintf("%s/planning/recommendations/%d/promote", base, recID)
	resp = s.request(http.MethodPost, promotePath, nil, s.aliceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	promoted := decodeBody(t, resp)
	assert.Equal(t, false, promoted["already_in_cart"])

	// Bob drops an activity straight into the cart
	resp = s.request(http.MethodPost, base+"/planning/cart/activities",
		map[string]interface{}{"candidate": map[string]string{"name": "Tram 28 Ride"}}, s.bobToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Only the admin can reshape the trip
	resp = s.request(http.MethodPut, base+"/planning/settings",
		map[string]int{"trip_days": 2, "party_size": 2}, s.bobToken)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = s.request(http.MethodPut, base+"/planning/settings",
		map[string]int{"trip_days": 2, "party_size": 2}, s.aliceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Generate an itinerary from the cart
	resp = s.request(http.MethodPost, base+"/planning/itineraries", nil, s.aliceToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	generated := decodeBody(t, resp)
	itinerary := generated["itinerary"].(map[string]interface{})
	assert.Equal(t, float64(2), itinerary["trip_days"])
	assert.NotEmpty(t, itinerary["days"])

	resp = s.request(http.MethodGet, base+"/planning/itineraries", nil, s.bobToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	resp.Body.Close()
	assert.Len(t, history, 1)

	// Full view: one hotel and one activity in the cart, board is clear
	resp = s.request(http.MethodGet, base+"/planning", nil, s.aliceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decodeBody(t, resp)
	cart := view["cart"].(map[string]interface{})
	assert.Len(t, cart["items"], 2)

	// Planning state survived through the repository
	parsedGroupID, err := uuid.Parse(groupID)
	require.NoError(t, err)
	s.planningRepo.mu.Lock()
	saved, ok := s.planningRepo.states[parsedGroupID]
	s.planningRepo.mu.Unlock()
	require.True(t, ok)
	assert.Len(t, saved.Cart.Items, 2)
	assert.Len(t, saved.Itineraries, 1)
}

func (s *APITestSuite) TestAccessControl() {
	t := s.T()

	token, _ := s.registerAndLogin("carol", "carol@example.com", "password-three")

	// Carol's own group
	resp := s.request(http.MethodPost, "/api/v1/groups",
		map[string]string{"name": "Porto Crew", "city": "Porto"}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	group := decodeBody(t, resp)
	groupID := group["id"].(string)
	base := "/api/v1/groups/" + groupID

	// No token at all
	resp = s.request(http.MethodGet, "/api/v1/groups?city=porto", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// An outsider cannot touch the group's planning surface
	outsiderToken, _ := s.registerAndLogin("dave", "dave@example.com", "password-four")
	resp = s.request(http.MethodGet, base+"/planning", nil, outsiderToken)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = s.request(http.MethodPost, base+"/messages",
		map[string]string{"content": "hello"}, outsiderToken)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Wrong credentials stay out
	resp = s.request(http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email": "carol@example.com", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func (s *APITestSuite) TestTokenRefreshRotation() {
	t := s.T()

	resp := s.request(http.MethodPost, "/api/v1/auth/register",
		map[string]string{"username": "erin", "email": "erin@example.com", "password": "password-five"}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = s.request(http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email": "erin@example.com", "password": "password-five"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login := decodeBody(t, resp)
	refreshToken := login["refresh_token"].(string)

	// First refresh succeeds and rotates the token
	resp = s.request(http.MethodPost, "/api/v1/auth/refresh",
		map[string]string{"refresh_token": refreshToken}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	refreshed := decodeBody(t, resp)
	assert.NotEmpty(t, refreshed["access_token"])
	assert.NotEqual(t, refreshToken, refreshed["refresh_token"])

	// The presented token was revoked by the rotation
	resp = s.request(http.MethodPost, "/api/v1/auth/refresh",
		map[string]string{"refresh_token": refreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestAPISuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping API suite in short mode")
	}
	suite.Run(t, new(APITestSuite))
}
