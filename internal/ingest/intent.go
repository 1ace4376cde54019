// v0
// internal/ingest/intent.go
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"modelmarket/internal/metrics"
	"modelmarket/internal/models"
)

// Intent types accepted on the intent topic.
const (
	IntentTransaction   = "transaction"
	IntentCollaborative = "collaborative"
	IntentContribution  = "contribution"
	IntentVote          = "vote"
	IntentReward        = "reward"
)

// Intent is a request to mutate the marketplace, delivered as JSON.
// Only the fields relevant to Type are read.
type Intent struct {
	Type          string    `json:"type" validate:"required,oneof=transaction collaborative contribution vote reward"`
	ModelID       string    `json:"modelId" validate:"required"`
	Kind          string    `json:"kind,omitempty"`
	From          string    `json:"from,omitempty"`
	To            string    `json:"to,omitempty"`
	Amount        float64   `json:"amount,omitempty"`
	RentalSeconds int64     `json:"rentalSeconds,omitempty" validate:"gte=0,lte=9223372036"`
	Contributors  []string  `json:"contributors,omitempty"`
	Contributions []float64 `json:"contributions,omitempty"`
	UserID        string    `json:"userId,omitempty"`
	Hours         float64   `json:"hours,omitempty"`
	Rating        int       `json:"rating,omitempty"`
	Review        string    `json:"review,omitempty"`
	Total         float64   `json:"total,omitempty"`
}

const (
	resultApplied      = "applied"
	resultMalformed    = "malformed"
	resultRejected     = "rejected"
	unknownIntentLabel = "unknown"
)

var validate = validator.New()

// DecodeIntent parses and structurally validates a message value.
func DecodeIntent(value []byte) (Intent, error) {
	var in Intent
	if err := json.Unmarshal(value, &in); err != nil {
		return Intent{}, fmt.Errorf("decode intent: %w", err)
	}
	if err := validate.Struct(in); err != nil {
		return Intent{}, models.Invalid("intent: %v", err)
	}
	return in, nil
}

// Submitter is the subset of the marketplace that intents are applied to.
type Submitter interface {
	AddTransaction(kind models.Kind, modelID, from, to string, amount float64, rental time.Duration) (models.Transaction, error)
	AddCollaborativeTransaction(modelID string, contributors []string, contributions []float64) (models.Transaction, error)
	AddResourceContribution(modelID, userID string, hours float64) (models.Transaction, error)
	AddVote(modelID, voterID string, rating int, review string) error
	DistributeRewards(modelID string, total float64) (models.Transaction, error)
}

// Apply executes the intent against sub.
func Apply(sub Submitter, in Intent) error {
	var err error
	switch in.Type {
	case IntentTransaction:
		kind, kerr := models.ParseKind(in.Kind)
		if kerr != nil {
			return kerr
		}
		rental, rerr := models.RentalDuration(in.RentalSeconds)
		if rerr != nil {
			return rerr
		}
		_, err = sub.AddTransaction(kind, in.ModelID, in.From, in.To, in.Amount, rental)
	case IntentCollaborative:
		_, err = sub.AddCollaborativeTransaction(in.ModelID, in.Contributors, in.Contributions)
	case IntentContribution:
		_, err = sub.AddResourceContribution(in.ModelID, in.UserID, in.Hours)
	case IntentVote:
		err = sub.AddVote(in.ModelID, in.UserID, in.Rating, in.Review)
	case IntentReward:
		_, err = sub.DistributeRewards(in.ModelID, in.Total)
	default:
		err = models.Invalid("unknown intent type %q", in.Type)
	}
	return err
}

// handle decodes and applies one payload, returning the outcome label. attrs
// locate the payload in its transport for logging.
func handle(sub Submitter, log *slog.Logger, value []byte, attrs ...slog.Attr) string {
	in, err := DecodeIntent(value)
	if err != nil {
		metrics.IncIntent(unknownIntentLabel, resultMalformed)
		log.LogAttrs(context.Background(), slog.LevelWarn, "intent_malformed", append(attrs, slog.Any("err", err))...)
		return resultMalformed
	}
	if err := Apply(sub, in); err != nil {
		metrics.IncIntent(in.Type, resultRejected)
		log.LogAttrs(context.Background(), slog.LevelWarn, "intent_rejected",
			append(attrs, slog.String("type", in.Type), slog.String("model_id", in.ModelID), slog.Any("err", err))...)
		return resultRejected
	}
	metrics.IncIntent(in.Type, resultApplied)
	log.LogAttrs(context.Background(), slog.LevelInfo, "intent_applied",
		append(attrs, slog.String("type", in.Type), slog.String("model_id", in.ModelID))...)
	return resultApplied
}
