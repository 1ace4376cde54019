// v0
// internal/reputation/store.go

// Package reputation keeps per-user trust scores and per-model votes.
package reputation

import (
	"io"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"modelmarket/internal/models"
)

// Score adjustments applied by the marketplace.
const (
	DocAuthoredDelta   = 0.2
	DocUpvotedDelta    = 0.05
	DocCommentDelta    = 0.02
	ValidationDelta    = 0.1
	voteDeltaPerStar   = 0.1
	neutralRating      = 3
	defaultLeaderboard = 10
)

// VoteDelta is the creator's adjustment for a rating.
func VoteDelta(rating int) float64 {
	return float64(rating-neutralRating) * voteDeltaPerStar
}

// ContributionDelta grows logarithmically with donated hours.
func ContributionDelta(hours float64) float64 {
	return math.Log10(1+hours) * 0.1
}

// PayoutDelta is the adjustment for receiving amount tokens.
func PayoutDelta(amount float64) float64 {
	return amount * 0.01
}

// CreatorLookup resolves who created a model.
type CreatorLookup interface {
	ModelCreator(modelID string) (string, bool)
}

// Store owns reputation and vote state. It is safe for concurrent use.
type Store struct {
	creators CreatorLookup
	clock    func() time.Time
	log      *slog.Logger

	mu    sync.RWMutex
	users map[string]*models.UserReputation
	order []string
	votes map[string][]models.Vote
}

// NewStore builds an empty store. creators may be nil, in which case votes
// never move a score.
func NewStore(creators CreatorLookup, logger *slog.Logger, clock func() time.Time) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		creators: creators,
		clock:    clock,
		log:      logger.With(slog.String("component", "reputation")),
		users:    make(map[string]*models.UserReputation),
		votes:    make(map[string][]models.Vote),
	}
}

func (s *Store) userLocked(userID string) *models.UserReputation {
	u, ok := s.users[userID]
	if !ok {
		u = &models.UserReputation{UserID: userID}
		s.users[userID] = u
		s.order = append(s.order, userID)
	}
	return u
}

// UpdateScore applies delta, clamping at zero, and counts one scoring event.
func (s *Store) UpdateScore(userID string, delta float64) error {
	if strings.TrimSpace(userID) == "" {
		return models.Invalid("userId must not be empty")
	}
	if !models.Finite(delta) {
		return models.Invalid("score delta must be finite")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(userID, delta)
	return nil
}

func (s *Store) applyLocked(userID string, delta float64) {
	u := s.userLocked(userID)
	u.Score = math.Max(0, u.Score+delta)
	u.TotalVotes++
	s.log.Debug("reputation_score_updated",
		slog.String("user_id", userID),
		slog.Float64("delta", delta),
		slog.Float64("score", u.Score),
	)
}

// AddVote stores a rating and moves the model creator's score.
func (s *Store) AddVote(modelID, voterID string, rating int, review string) error {
	if strings.TrimSpace(modelID) == "" || strings.TrimSpace(voterID) == "" {
		return models.Invalid("modelId and voterId must not be empty")
	}
	if rating < models.MinRating || rating > models.MaxRating {
		return models.Invalid("rating must be between %d and %d, got %d", models.MinRating, models.MaxRating, rating)
	}
	var (
		creator string
		found   bool
	)
	if s.creators != nil {
		creator, found = s.creators.ModelCreator(modelID)
	}
	now := s.clock().Unix()
	vote := models.Vote{ModelID: modelID, VoterID: voterID, Rating: rating, Review: review, Timestamp: now}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.votes[modelID] = append(s.votes[modelID], vote)
	if !found {
		s.log.Info("reputation_vote_without_creator", slog.String("model_id", modelID), slog.String("voter_id", voterID))
		return nil
	}
	s.applyLocked(creator, VoteDelta(rating))
	if review != "" {
		u := s.userLocked(creator)
		u.Reviews = append(u.Reviews, models.Review{
			ModelID:   modelID,
			VoterID:   voterID,
			Rating:    rating,
			Text:      review,
			Timestamp: now,
		})
	}
	return nil
}

// RecordModelShared counts a model published by userID.
func (s *Store) RecordModelShared(userID string) {
	if strings.TrimSpace(userID) == "" {
		return
	}
	s.mu.Lock()
	s.userLocked(userID).ModelsShared++
	s.mu.Unlock()
}

// ModelRating is the mean rating of a model, or 0 without votes.
func (s *Store) ModelRating(modelID string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	votes := s.votes[modelID]
	if len(votes) == 0 {
		return 0
	}
	var sum int
	for _, v := range votes {
		sum += v.Rating
	}
	return float64(sum) / float64(len(votes))
}

// ModelVotes returns a copy of the votes cast on a model.
func (s *Store) ModelVotes(modelID string) []models.Vote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Vote(nil), s.votes[modelID]...)
}

// UserReputation returns a snapshot; unknown users yield a zero record.
func (s *Store) UserReputation(userID string) models.UserReputation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return models.UserReputation{UserID: userID, Reviews: []models.Review{}}
	}
	return u.Clone()
}

// Score returns the user's current score.
func (s *Store) Score(userID string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[userID]; ok {
		return u.Score
	}
	return 0
}

// TopContributors ranks users by score. Ties keep first-seen order.
func (s *Store) TopContributors(n int) []string {
	if n <= 0 {
		n = defaultLeaderboard
	}
	s.mu.RLock()
	ranked := append([]string(nil), s.order...)
	scores := make(map[string]float64, len(s.users))
	for id, u := range s.users {
		scores[id] = u.Score
	}
	s.mu.RUnlock()

	sort.SliceStable(ranked, func(i, j int) bool {
		return scores[ranked[i]] > scores[ranked[j]]
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
