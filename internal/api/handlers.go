// v1
// internal/api/handlers.go
package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"modelmarket/internal/chain"
	"modelmarket/internal/market"
	"modelmarket/internal/models"
)

const defaultPageSize = 50

// Handlers serves the marketplace over HTTP.
type Handlers struct {
	Market *market.Marketplace
	Log    *slog.Logger
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	report := h.Market.VerifyChain()
	if !report.Valid {
		writeJSON(w, http.StatusOK, map[string]any{"status": "degraded", "records": report.Records, "failure": report.Failure})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "records": report.Records})
}

func (h *Handlers) VerifyChain(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Market.VerifyChain())
}

func (h *Handlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var kind models.Kind
	if raw := strings.TrimSpace(q.Get("kind")); raw != "" {
		k, err := models.ParseKind(raw)
		if err != nil {
			writeFailure(w, err)
			return
		}
		kind = k
	}
	size := atoi(q.Get("size"))
	if size <= 0 {
		size = defaultPageSize
	}
	page := max1(atoi(q.Get("page")))
	items, total := h.Market.Records(chain.Filter{ModelID: q.Get("modelId"), Kind: kind, Page: page, Size: size})
	writeJSON(w, http.StatusOK, map[string]any{"total": total, "page": page, "size": size, "items": items})
}

type transactionRequest struct {
	Kind          string  `json:"kind" validate:"required"`
	ModelID       string  `json:"modelId" validate:"required"`
	From          string  `json:"from"`
	To            string  `json:"to"`
	Amount        float64 `json:"amount" validate:"gte=0"`
	RentalSeconds int64   `json:"rentalSeconds" validate:"gte=0,lte=9223372036"`
}

func (h *Handlers) AddTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	kind, err := models.ParseKind(req.Kind)
	if err != nil {
		writeFailure(w, err)
		return
	}
	rental, err := models.RentalDuration(req.RentalSeconds)
	if err != nil {
		writeFailure(w, err)
		return
	}
	tx, err := h.Market.AddTransaction(kind, req.ModelID, req.From, req.To, req.Amount, rental)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

type createModelRequest struct {
	ModelID   string  `json:"modelId"`
	CreatorID string  `json:"creatorId" validate:"required"`
	Price     float64 `json:"price" validate:"gte=0"`
}

func (h *Handlers) CreateModel(w http.ResponseWriter, r *http.Request) {
	var req createModelRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.ModelID) == "" {
		req.ModelID = uuid.NewString()
	}
	tx, err := h.Market.CreateModel(req.ModelID, req.CreatorID, req.Price)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

type collaborationRequest struct {
	ModelID       string    `json:"modelId" validate:"required"`
	Contributors  []string  `json:"contributors" validate:"required,min=1,dive,required"`
	Contributions []float64 `json:"contributions" validate:"required,min=1"`
}

func (h *Handlers) AddCollaboration(w http.ResponseWriter, r *http.Request) {
	var req collaborationRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tx, err := h.Market.AddCollaborativeTransaction(req.ModelID, req.Contributors, req.Contributions)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

type contributionRequest struct {
	ModelID string  `json:"modelId" validate:"required"`
	UserID  string  `json:"userId" validate:"required"`
	Hours   float64 `json:"hours" validate:"gt=0"`
}

func (h *Handlers) AddContribution(w http.ResponseWriter, r *http.Request) {
	var req contributionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tx, err := h.Market.AddResourceContribution(req.ModelID, req.UserID, req.Hours)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

type voteRequest struct {
	VoterID string `json:"voterId" validate:"required"`
	Rating  int    `json:"rating" validate:"min=1,max=5"`
	Review  string `json:"review"`
}

func (h *Handlers) AddVote(w http.ResponseWriter, r *http.Request) {
	modelID := mux.Vars(r)["modelId"]
	var req voteRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Market.AddVote(modelID, req.VoterID, req.Rating, req.Review); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"modelId": modelID, "rating": h.Market.ModelRating(modelID)})
}

func (h *Handlers) ModelRating(w http.ResponseWriter, r *http.Request) {
	modelID := mux.Vars(r)["modelId"]
	writeJSON(w, http.StatusOK, map[string]any{
		"modelId": modelID,
		"rating":  h.Market.ModelRating(modelID),
		"votes":   h.Market.ModelVotes(modelID),
	})
}

func (h *Handlers) FairPrice(w http.ResponseWriter, r *http.Request) {
	modelID := mux.Vars(r)["modelId"]
	writeJSON(w, http.StatusOK, map[string]any{"modelId": modelID, "price": h.Market.FairPrice(modelID)})
}

// at reads the optional unix-seconds "at" query parameter, defaulting to now.
func (h *Handlers) at(r *http.Request) (time.Time, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("at"))
	if raw == "" {
		return h.Market.Now(), true
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(secs, 0), true
}

func (h *Handlers) Availability(w http.ResponseWriter, r *http.Request) {
	modelID := mux.Vars(r)["modelId"]
	now, ok := h.at(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid at; use unix seconds")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"modelId": modelID, "available": h.Market.IsModelAvailableForRent(modelID, now)})
}

func (h *Handlers) Rental(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	now, ok := h.at(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid at; use unix seconds")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"modelId": vars["modelId"],
		"userId":  vars["userId"],
		"rented":  h.Market.IsModelRentedBy(vars["modelId"], vars["userId"], now),
	})
}

type rewardRequest struct {
	Total float64 `json:"total" validate:"gt=0"`
}

func (h *Handlers) DistributeRewards(w http.ResponseWriter, r *http.Request) {
	modelID := mux.Vars(r)["modelId"]
	var req rewardRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tx, err := h.Market.DistributeRewards(modelID, req.Total)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

type rewardSharesRequest struct {
	Shares map[string]float64 `json:"shares" validate:"required,min=1"`
}

func (h *Handlers) UpdateRewardShares(w http.ResponseWriter, r *http.Request) {
	modelID := mux.Vars(r)["modelId"]
	var req rewardSharesRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tx, err := h.Market.UpdateRewardShares(modelID, req.Shares)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *Handlers) UserReward(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"modelId": vars["modelId"],
		"userId":  vars["userId"],
		"reward":  h.Market.UserReward(vars["userId"], vars["modelId"]),
	})
}

func (h *Handlers) UserReputation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Market.UserReputation(mux.Vars(r)["userId"]))
}

func (h *Handlers) Leaderboard(w http.ResponseWriter, r *http.Request) {
	ids := h.Market.TopContributors(atoi(r.URL.Query().Get("n")))
	entries := make([]models.UserReputation, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, h.Market.UserReputation(id))
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": entries})
}
