// v0
// internal/rewards/engine.go

// Package rewards splits token rewards among the contributors of a model.
package rewards

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"modelmarket/internal/metrics"
	"modelmarket/internal/models"
	"modelmarket/internal/reputation"
)

// Ledger is the part of the record log the engine reads and appends to.
type Ledger interface {
	Each(visit func(index int, tx models.Transaction) bool)
	AddReward(modelID string, total float64, payouts map[string]float64) (models.Transaction, error)
	AddRewardUpdate(modelID string, shares map[string]float64) (models.Transaction, error)
}

// Reputation supplies weights and receives payout bumps.
type Reputation interface {
	Score(userID string) float64
	UpdateScore(userID string, delta float64) error
}

// Engine computes and records reward distributions.
type Engine struct {
	ledger Ledger
	rep    Reputation
	log    *slog.Logger
}

func NewEngine(ledger Ledger, rep Reputation, logger *slog.Logger) (*Engine, error) {
	if ledger == nil {
		return nil, errors.New("ledger must not be nil")
	}
	if rep == nil {
		return nil, errors.New("reputation must not be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{ledger: ledger, rep: rep, log: logger.With(slog.String("component", "rewards"))}, nil
}

// Preview computes the payouts DistributeRewards would record without
// appending anything.
func (e *Engine) Preview(modelID string, totalReward float64) (map[string]float64, error) {
	if strings.TrimSpace(modelID) == "" {
		return nil, models.Invalid("modelId must not be empty")
	}
	if !models.Finite(totalReward) || totalReward <= 0 {
		return nil, models.Invalid("total reward must be a finite positive number, got %v", totalReward)
	}

	weights := make(map[string]float64)
	e.ledger.Each(func(_ int, tx models.Transaction) bool {
		if tx.ModelID != modelID || !tx.IsCollaborative() {
			return true
		}
		for _, id := range tx.Contributors {
			contribution := tx.RewardShares[id] * tx.ResourceContribution
			weights[id] += e.rep.Score(id) * contribution
		}
		return true
	})

	var totalWeight float64
	for _, id := range models.SortedShareIDs(weights) {
		totalWeight += weights[id]
	}
	if !(totalWeight > 0) {
		return nil, fmt.Errorf("%w: model %s", models.ErrNoContributors, modelID)
	}

	payouts := make(map[string]float64, len(weights))
	for id, w := range weights {
		if w <= 0 {
			continue
		}
		payouts[id] = w / totalWeight * totalReward
	}
	return payouts, nil
}

// DistributeRewards records a REWARD for the model and bumps each paid
// contributor's reputation once the record is committed.
func (e *Engine) DistributeRewards(modelID string, totalReward float64) (models.Transaction, error) {
	payouts, err := e.Preview(modelID, totalReward)
	if err != nil {
		metrics.ObserveReward(resultLabel(err), 0)
		return models.Transaction{}, err
	}
	tx, err := e.ledger.AddReward(modelID, totalReward, payouts)
	if err != nil {
		metrics.ObserveReward(resultLabel(err), 0)
		return models.Transaction{}, err
	}
	for _, id := range models.SortedShareIDs(payouts) {
		if err := e.rep.UpdateScore(id, reputation.PayoutDelta(payouts[id])); err != nil {
			e.log.Warn("rewards_reputation_update_failed", slog.String("user_id", id), slog.Any("err", err))
		}
	}
	metrics.ObserveReward("committed", totalReward)
	e.log.Info("rewards_distributed",
		slog.String("model_id", modelID),
		slog.Float64("total", totalReward),
		slog.Int("recipients", len(payouts)),
	)
	return tx, nil
}

// CalculateUserReward sums what the user was paid through the model's REWARD records.
func (e *Engine) CalculateUserReward(userID, modelID string) float64 {
	var total float64
	e.ledger.Each(func(_ int, tx models.Transaction) bool {
		if tx.Kind == models.KindReward && tx.ModelID == modelID {
			total += tx.RewardShares[userID]
		}
		return true
	})
	return total
}

// UpdateRewardShares records a revised allocation of absolute amounts.
func (e *Engine) UpdateRewardShares(modelID string, shares map[string]float64) (models.Transaction, error) {
	return e.ledger.AddRewardUpdate(modelID, shares)
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, models.ErrNoContributors):
		return "no_contributors"
	case errors.Is(err, models.ErrChainIntegrity):
		return "integrity"
	default:
		return "error"
	}
}
