package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	VotesCastTotal            metric.Int64Counter
	ItinerariesGeneratedTotal metric.Int64Counter
	AISuggestionDurationSecs  metric.Float64Histogram
	AISuggestionErrorsTotal   metric.Int64Counter
	DbQueryDurationSeconds    metric.Float64Histogram
	DbQueryErrorsTotal        metric.Int64Counter
	RecommendationsAddedTotal metric.Int64Counter
	CartPromotionsTotal       metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("TripCrew")
		var err error
		m := &AppMetrics{}

		m.VotesCastTotal, err = meter.Int64Counter(
			"votes_cast_total",
			metric.WithDescription("Total number of recommendation votes cast"),
			metric.WithUnit("{vote}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create votes_cast_total: %v", err)
		}

		m.ItinerariesGeneratedTotal, err = meter.Int64Counter(
			"itineraries_generated_total",
			metric.WithDescription("Total number of itineraries generated from group carts"),
			metric.WithUnit("{itinerary}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create itineraries_generated_total: %v", err)
		}

		m.AISuggestionDurationSecs, err = meter.Float64Histogram(
			"ai_suggestion_duration_seconds",
			metric.WithDescription("Duration of AI suggestion generation in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create ai_suggestion_duration_seconds: %v", err)
		}

		m.AISuggestionErrorsTotal, err = meter.Int64Counter(
			"ai_suggestion_errors_total",
			metric.WithDescription("Total number of failed AI suggestion calls"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create ai_suggestion_errors_total: %v", err)
		}

		m.DbQueryDurationSeconds, err = meter.Float64Histogram(
			"db_query_duration_seconds",
			metric.WithDescription("Duration of database queries in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_duration_seconds: %v", err)
		}

		m.DbQueryErrorsTotal, err = meter.Int64Counter(
			"db_query_errors_total",
			metric.WithDescription("Total number of database query errors"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_errors_total: %v", err)
		}

		m.RecommendationsAddedTotal, err = meter.Int64Counter(
			"recommendations_added_total",
			metric.WithDescription("Total number of recommendations added to group boards"),
			metric.WithUnit("{recommendation}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create recommendations_added_total: %v", err)
		}

		m.CartPromotionsTotal, err = meter.Int64Counter(
			"cart_promotions_total",
			metric.WithDescription("Total number of recommendations promoted into group carts"),
			metric.WithUnit("{promotion}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create cart_promotions_total: %v", err)
		}

		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance.
// Panics if InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}
