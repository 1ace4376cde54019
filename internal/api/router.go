// v1
// internal/api/router.go
package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"modelmarket/internal/market"
	"modelmarket/internal/metrics"
)

// NewRouter wires every marketplace route and the shared middleware.
func NewRouter(m *market.Marketplace, logger *slog.Logger) http.Handler {
	logger = logger.With(slog.String("component", "http"))
	h := &Handlers{Market: m, Log: logger}
	r := mux.NewRouter()

	route := func(method, path, name string, fn http.HandlerFunc) {
		r.Handle(path, metrics.WrapHandler(name, fn)).Methods(method)
	}

	route(http.MethodGet, "/health", "health", h.Health)
	route(http.MethodGet, "/chain/verify", "chain_verify", h.VerifyChain)
	route(http.MethodGet, "/transactions", "transactions_list", h.ListTransactions)
	route(http.MethodPost, "/transactions", "transactions_add", h.AddTransaction)
	route(http.MethodPost, "/collaborations", "collaborations_add", h.AddCollaboration)
	route(http.MethodPost, "/contributions", "contributions_add", h.AddContribution)
	route(http.MethodPost, "/models", "models_create", h.CreateModel)

	route(http.MethodPost, "/models/{modelId}/votes", "votes_add", h.AddVote)
	route(http.MethodGet, "/models/{modelId}/rating", "rating_get", h.ModelRating)
	route(http.MethodGet, "/models/{modelId}/price", "price_get", h.FairPrice)
	route(http.MethodGet, "/models/{modelId}/availability", "availability_get", h.Availability)
	route(http.MethodGet, "/models/{modelId}/rentals/{userId}", "rental_get", h.Rental)
	route(http.MethodPost, "/models/{modelId}/rewards", "rewards_distribute", h.DistributeRewards)
	route(http.MethodPut, "/models/{modelId}/rewards/shares", "rewards_shares", h.UpdateRewardShares)
	route(http.MethodGet, "/models/{modelId}/rewards/{userId}", "rewards_user", h.UserReward)

	route(http.MethodPost, "/models/{modelId}/docs", "docs_add", h.AddDocumentation)
	route(http.MethodGet, "/models/{modelId}/docs", "docs_list", h.ModelDocs)
	route(http.MethodPost, "/models/{modelId}/docs/upvotes", "docs_upvote", h.UpvoteDocumentation)
	route(http.MethodPost, "/models/{modelId}/docs/comments", "docs_comment", h.AddDocComment)
	route(http.MethodPut, "/models/{modelId}/quality", "quality_update", h.UpdateQuality)
	route(http.MethodGet, "/models/{modelId}/quality", "quality_get", h.ModelQuality)
	route(http.MethodPost, "/models/{modelId}/validations", "quality_validate", h.ValidateModel)
	route(http.MethodPost, "/models/{modelId}/usage", "usage_track", h.TrackUsage)
	route(http.MethodGet, "/models/{modelId}/usage", "usage_get", h.ResourceMetrics)
	route(http.MethodPost, "/models/{modelId}/usage/optimize", "usage_optimize", h.OptimizeUsage)
	route(http.MethodPost, "/models/{modelId}/versions", "versions_add", h.AddVersion)
	route(http.MethodGet, "/models/{modelId}/versions", "versions_list", h.VersionHistory)
	route(http.MethodPost, "/models/{modelId}/rollback", "versions_rollback", h.Rollback)

	route(http.MethodGet, "/users/{userId}/reputation", "reputation_get", h.UserReputation)
	route(http.MethodGet, "/leaderboard", "leaderboard", h.Leaderboard)

	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return wrap(logger, r)
}
