// v0
// internal/market/market.go

// Package market is the single entry point for marketplace operations. It
// wires the ledger to the tables and engines derived from it.
package market

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"modelmarket/internal/catalog"
	"modelmarket/internal/chain"
	"modelmarket/internal/models"
	"modelmarket/internal/pricing"
	"modelmarket/internal/reputation"
	"modelmarket/internal/rewards"
)

// Options configures a Marketplace.
type Options struct {
	Ledger    *chain.Ledger
	Logger    *slog.Logger
	Clock     func() time.Time
	BasePrice float64
}

// Marketplace exposes ledger, reputation, reward, pricing and catalog
// operations. It is safe for concurrent use.
type Marketplace struct {
	ledger     *chain.Ledger
	reputation *reputation.Store
	rewards    *rewards.Engine
	pricing    *pricing.Engine
	catalog    *catalog.Catalog
	clock      func() time.Time
	log        *slog.Logger
}

// New wires a marketplace around an existing ledger. Reputation derived from
// records already on the ledger is rebuilt before New returns.
func New(opts Options) (*Marketplace, error) {
	if opts.Ledger == nil {
		return nil, errors.New("ledger must not be nil")
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	rep := reputation.NewStore(opts.Ledger, opts.Logger, opts.Clock)
	engine, err := rewards.NewEngine(opts.Ledger, rep, opts.Logger)
	if err != nil {
		return nil, err
	}
	m := &Marketplace{
		ledger:     opts.Ledger,
		reputation: rep,
		rewards:    engine,
		pricing:    pricing.NewEngine(opts.Ledger, rep, opts.BasePrice),
		catalog:    catalog.New(opts.Clock),
		clock:      opts.Clock,
		log:        opts.Logger.With(slog.String("component", "market")),
	}
	m.rebuild()
	opts.Ledger.AddHook(chain.CommitHookFunc(m.onCommit))
	return m, nil
}

// onCommit keeps ledger-derived reputation current. Reward payouts are
// applied by the reward engine itself.
func (m *Marketplace) onCommit(_ int, tx models.Transaction) {
	m.applyDerived(tx, false)
}

func (m *Marketplace) rebuild() {
	var n int
	m.ledger.Each(func(_ int, tx models.Transaction) bool {
		m.applyDerived(tx, true)
		n++
		return true
	})
	if n > 0 {
		m.log.Info("market_reputation_rebuilt", slog.Int("records", n))
	}
}

func (m *Marketplace) applyDerived(tx models.Transaction, replay bool) {
	switch tx.Kind {
	case models.KindCreate:
		m.reputation.RecordModelShared(tx.From)
	case models.KindResourceContribution:
		m.bump(tx.From, reputation.ContributionDelta(tx.ResourceContribution))
	case models.KindReward:
		if !replay {
			return
		}
		for _, id := range models.SortedShareIDs(tx.RewardShares) {
			m.bump(id, reputation.PayoutDelta(tx.RewardShares[id]))
		}
	}
}

func (m *Marketplace) bump(userID string, delta float64) {
	if err := m.reputation.UpdateScore(userID, delta); err != nil {
		m.log.Warn("market_reputation_update_failed", slog.String("user_id", userID), slog.Any("err", err))
	}
}

func (m *Marketplace) Ledger() *chain.Ledger { return m.ledger }

// Now returns the marketplace clock reading used for rental checks.
func (m *Marketplace) Now() time.Time { return m.clock() }

func (m *Marketplace) AddTransaction(kind models.Kind, modelID, from, to string, amount float64, rental time.Duration) (models.Transaction, error) {
	return m.ledger.AddTransaction(kind, modelID, from, to, amount, rental)
}

// CreateModel records a CREATE for creatorID listing the model at price.
func (m *Marketplace) CreateModel(modelID, creatorID string, price float64) (models.Transaction, error) {
	if err := requireUser(creatorID); err != nil {
		return models.Transaction{}, err
	}
	return m.ledger.AddTransaction(models.KindCreate, modelID, creatorID, "", price, 0)
}

func (m *Marketplace) AddCollaborativeTransaction(modelID string, contributors []string, contributions []float64) (models.Transaction, error) {
	return m.ledger.AddCollaborativeTransaction(modelID, contributors, contributions)
}

// AddResourceContribution records donated hours; the contributor's reputation
// grows once the record commits.
func (m *Marketplace) AddResourceContribution(modelID, userID string, hours float64) (models.Transaction, error) {
	return m.ledger.AddResourceContribution(modelID, userID, hours)
}

func (m *Marketplace) VerifyChain() chain.VerifyReport {
	return m.ledger.VerifyChain()
}

func (m *Marketplace) Records(f chain.Filter) ([]models.Transaction, int) {
	return m.ledger.Records(f)
}

func (m *Marketplace) IsModelAvailableForRent(modelID string, now time.Time) bool {
	return m.ledger.IsModelAvailableForRent(modelID, now)
}

func (m *Marketplace) IsModelRentedBy(modelID, user string, now time.Time) bool {
	return m.ledger.IsModelRentedBy(modelID, user, now)
}

func (m *Marketplace) AddVote(modelID, voterID string, rating int, review string) error {
	return m.reputation.AddVote(modelID, voterID, rating, review)
}

func (m *Marketplace) ModelRating(modelID string) float64 {
	return m.reputation.ModelRating(modelID)
}

func (m *Marketplace) ModelVotes(modelID string) []models.Vote {
	return m.reputation.ModelVotes(modelID)
}

func (m *Marketplace) UserReputation(userID string) models.UserReputation {
	return m.reputation.UserReputation(userID)
}

func (m *Marketplace) TopContributors(n int) []string {
	return m.reputation.TopContributors(n)
}

func (m *Marketplace) FairPrice(modelID string) float64 {
	return m.pricing.FairPrice(modelID)
}

func (m *Marketplace) DistributeRewards(modelID string, total float64) (models.Transaction, error) {
	return m.rewards.DistributeRewards(modelID, total)
}

func (m *Marketplace) UserReward(userID, modelID string) float64 {
	return m.rewards.CalculateUserReward(userID, modelID)
}

func (m *Marketplace) UpdateRewardShares(modelID string, shares map[string]float64) (models.Transaction, error) {
	return m.rewards.UpdateRewardShares(modelID, shares)
}

func requireUser(id string) error {
	if id == "" {
		return models.Invalid("user id must not be empty")
	}
	return nil
}
