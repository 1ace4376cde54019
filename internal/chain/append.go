// v0
// internal/chain/append.go
package chain

import (
	"math"
	"strconv"
	"strings"
	"time"

	"modelmarket/internal/models"
)

// AddTransaction appends a plain record. Rental durations are only accepted
// for RENT records and set the record's expiry.
func (l *Ledger) AddTransaction(kind models.Kind, modelID, from, to string, amount float64, rental time.Duration) (models.Transaction, error) {
	parsed, err := models.ParseKind(string(kind))
	if err != nil {
		return models.Transaction{}, l.invalid(kind, modelID, err)
	}
	kind = parsed
	if kind == models.KindCollaborative {
		return models.Transaction{}, l.invalid(kind, modelID, models.Invalid("collaborative records need contributors"))
	}
	if err := requireID("modelId", modelID); err != nil {
		return models.Transaction{}, l.invalid(kind, modelID, err)
	}
	if !models.Finite(amount) || amount < 0 {
		return models.Transaction{}, l.invalid(kind, modelID, models.Invalid("amount must be a finite non-negative number, got %v", amount))
	}
	if rental < 0 {
		return models.Transaction{}, l.invalid(kind, modelID, models.Invalid("rental duration must not be negative"))
	}
	if rental > 0 && kind != models.KindRent {
		return models.Transaction{}, l.invalid(kind, modelID, models.Invalid("rental duration is only valid for %s", models.KindRent))
	}

	now := l.clock().Unix()
	tx := models.Transaction{
		Kind:      kind,
		ModelID:   modelID,
		From:      from,
		To:        to,
		Amount:    amount,
		CreatedAt: now,
	}
	if rental > 0 {
		tx.ExpiresAt = now + int64(math.Ceil(rental.Seconds()))
	}
	return l.commit(tx)
}

// AddCollaborativeTransaction records a jointly built model. Each contributor's
// share is its contribution divided by the total.
func (l *Ledger) AddCollaborativeTransaction(modelID string, contributors []string, contributions []float64) (models.Transaction, error) {
	kind := models.KindCollaborative
	if err := requireID("modelId", modelID); err != nil {
		return models.Transaction{}, l.invalid(kind, modelID, err)
	}
	if len(contributors) == 0 || len(contributors) != len(contributions) {
		return models.Transaction{}, l.invalid(kind, modelID, models.Invalid("contributors and contributions must be non-empty and of equal length"))
	}
	seen := make(map[string]struct{}, len(contributors))
	var total float64
	for i, id := range contributors {
		if err := requireID("contributor", id); err != nil {
			return models.Transaction{}, l.invalid(kind, modelID, err)
		}
		if _, dup := seen[id]; dup {
			return models.Transaction{}, l.invalid(kind, modelID, models.Invalid("duplicate contributor %q", id))
		}
		seen[id] = struct{}{}
		c := contributions[i]
		if !models.Finite(c) || c < 0 {
			return models.Transaction{}, l.invalid(kind, modelID, models.Invalid("contribution of %q must be finite and non-negative", id))
		}
		total += c
	}
	if !(total > 0) || !models.Finite(total) {
		return models.Transaction{}, l.invalid(kind, modelID, models.Invalid("total contribution must be positive"))
	}

	shares := make(map[string]float64, len(contributors))
	for i, id := range contributors {
		shares[id] = contributions[i] / total
	}
	tx := models.Transaction{
		Kind:                 kind,
		ModelID:              modelID,
		CreatedAt:            l.clock().Unix(),
		Contributors:         append([]string(nil), contributors...),
		ResourceContribution: total,
		RewardShares:         shares,
	}
	return l.commit(tx)
}

// AddResourceContribution records hours of compute donated to a model.
func (l *Ledger) AddResourceContribution(modelID, userID string, hours float64) (models.Transaction, error) {
	kind := models.KindResourceContribution
	if err := requireID("modelId", modelID); err != nil {
		return models.Transaction{}, l.invalid(kind, modelID, err)
	}
	if err := requireID("userId", userID); err != nil {
		return models.Transaction{}, l.invalid(kind, modelID, err)
	}
	if !models.Finite(hours) || hours <= 0 {
		return models.Transaction{}, l.invalid(kind, modelID, models.Invalid("hours must be a finite positive number, got %v", hours))
	}
	tx := models.Transaction{
		Kind:                 kind,
		ModelID:              modelID,
		From:                 userID,
		CreatedAt:            l.clock().Unix(),
		ResourceContribution: hours,
	}
	return l.commit(tx)
}

// AddReward records a payout split with absolute per-user amounts.
func (l *Ledger) AddReward(modelID string, total float64, payouts map[string]float64) (models.Transaction, error) {
	kind := models.KindReward
	if err := requireID("modelId", modelID); err != nil {
		return models.Transaction{}, l.invalid(kind, modelID, err)
	}
	if !models.Finite(total) || total <= 0 {
		return models.Transaction{}, l.invalid(kind, modelID, models.Invalid("reward total must be a finite positive number"))
	}
	if err := validateAmounts(payouts); err != nil {
		return models.Transaction{}, l.invalid(kind, modelID, err)
	}
	tx := models.Transaction{
		Kind:         kind,
		ModelID:      modelID,
		From:         models.SystemAccount,
		Amount:       total,
		CreatedAt:    l.clock().Unix(),
		RewardShares: copyAmounts(payouts),
	}
	return l.commit(tx)
}

// AddRewardUpdate records a revised reward allocation for a model.
func (l *Ledger) AddRewardUpdate(modelID string, shares map[string]float64) (models.Transaction, error) {
	kind := models.KindRewardUpdate
	if err := requireID("modelId", modelID); err != nil {
		return models.Transaction{}, l.invalid(kind, modelID, err)
	}
	if err := validateAmounts(shares); err != nil {
		return models.Transaction{}, l.invalid(kind, modelID, err)
	}
	tx := models.Transaction{
		Kind:         kind,
		ModelID:      modelID,
		From:         models.SystemAccount,
		CreatedAt:    l.clock().Unix(),
		RewardShares: copyAmounts(shares),
	}
	return l.commit(tx)
}

// AddRollback records that a model was reverted to version target.
func (l *Ledger) AddRollback(modelID string, target int) (models.Transaction, error) {
	kind := models.KindRollback
	if err := requireID("modelId", modelID); err != nil {
		return models.Transaction{}, l.invalid(kind, modelID, err)
	}
	if target < 1 {
		return models.Transaction{}, l.invalid(kind, modelID, models.Invalid("rollback target must be a positive version"))
	}
	tx := models.Transaction{
		Kind:      kind,
		ModelID:   modelID,
		From:      models.SystemAccount,
		To:        "v" + strconv.Itoa(target),
		CreatedAt: l.clock().Unix(),
	}
	return l.commit(tx)
}

func requireID(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return models.Invalid("%s must not be empty", field)
	}
	return nil
}

func validateAmounts(amounts map[string]float64) error {
	if len(amounts) == 0 {
		return models.Invalid("shares must not be empty")
	}
	for id, v := range amounts {
		if err := requireID("share recipient", id); err != nil {
			return err
		}
		if !models.Finite(v) || v < 0 {
			return models.Invalid("share of %q must be finite and non-negative", id)
		}
	}
	return nil
}

func copyAmounts(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
