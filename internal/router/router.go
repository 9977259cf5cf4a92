package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/FACorreiaa/go-group-trip-planner/internal/api/auth"
	"github.com/FACorreiaa/go-group-trip-planner/internal/api/groups"
	"github.com/FACorreiaa/go-group-trip-planner/internal/api/planning"
	"github.com/FACorreiaa/go-group-trip-planner/internal/api/suggestions"
)

// Config carries the handlers and middleware the router mounts. Server-wide
// middleware (request id, logger, recoverer) is applied in main.go before
// this router is mounted.
type Config struct {
	AuthHandler            *auth.Handler
	GroupsHandler          *groups.Handler
	PlanningHandler        *planning.Handler
	SuggestionsHandler     *suggestions.Handler
	AuthenticateMiddleware func(http.Handler) http.Handler
}

// SetupRouter builds the versioned API route tree.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public auth routes
		r.Group(func(r chi.Router) {
			r.Post("/auth/register", cfg.AuthHandler.Register)
			r.Post("/auth/login", cfg.AuthHandler.Login)
			r.Post("/auth/refresh", cfg.AuthHandler.RefreshSession)
			r.Post("/auth/logout", cfg.AuthHandler.Logout)
		})

		// Everything below requires a valid access token
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)

			r.Get("/auth/session", cfg.AuthHandler.GetSession)
			r.Put("/auth/password", cfg.AuthHandler.ChangePassword)

			r.Route("/groups", func(r chi.Router) {
				r.Post("/", cfg.GroupsHandler.CreateGroup)
				r.Get("/", cfg.GroupsHandler.ListGroups)

				r.Route("/{groupID}", func(r chi.Router) {
					r.Get("/", cfg.GroupsHandler.GetGroup)
					r.Delete("/", cfg.GroupsHandler.DeleteGroup)
					r.Post("/join", cfg.GroupsHandler.JoinGroup)
					r.Post("/leave", cfg.GroupsHandler.LeaveGroup)

					r.Get("/messages", cfg.GroupsHandler.ListMessages)
					r.Post("/messages", cfg.GroupsHandler.PostMessage)

					r.Post("/suggestions", cfg.SuggestionsHandler.GenerateSuggestions)
					r.Get("/suggestions/interactions", cfg.SuggestionsHandler.ListInteractions)

					r.Route("/planning", func(r chi.Router) {
						r.Get("/", cfg.PlanningHandler.GetView)

						r.Post("/recommendations", cfg.PlanningHandler.AddRecommendation)
						r.Delete("/recommendations/{recID}", cfg.PlanningHandler.RemoveRecommendation)
						r.Post("/recommendations/{recID}/vote", cfg.PlanningHandler.Vote)
						r.Delete("/recommendations/{recID}/vote", cfg.PlanningHandler.Unvote)
						r.Post("/recommendations/{recID}/promote", cfg.PlanningHandler.Promote)

						r.Post("/cart/activities", cfg.PlanningHandler.AddActivity)
						r.Delete("/cart/items", cfg.PlanningHandler.RemoveCartItem)
						r.Put("/settings", cfg.PlanningHandler.UpdateSettings)

						r.Post("/itineraries", cfg.PlanningHandler.GenerateItinerary)
						r.Get("/itineraries", cfg.PlanningHandler.ListItineraries)
					})
				})
			})
		})
	})

	return r
}
