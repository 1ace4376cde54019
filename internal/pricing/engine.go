// v0
// internal/pricing/engine.go
package pricing

import (
	"math"

	"modelmarket/internal/models"
)

// DefaultBasePrice is used when no base price is configured.
const DefaultBasePrice = 100.0

type RecordSource interface {
	Each(visit func(index int, tx models.Transaction) bool)
}

type RatingSource interface {
	ModelRating(modelID string) float64
}

// Engine derives a model's fair price from its rating and invested compute.
type Engine struct {
	records   RecordSource
	ratings   RatingSource
	basePrice float64
}

// NewEngine falls back to DefaultBasePrice for non-positive or non-finite values.
func NewEngine(records RecordSource, ratings RatingSource, basePrice float64) *Engine {
	if !models.Finite(basePrice) || basePrice <= 0 {
		basePrice = DefaultBasePrice
	}
	return &Engine{records: records, ratings: ratings, basePrice: basePrice}
}

func (e *Engine) BasePrice() float64 { return e.basePrice }

// TotalResourceHours sums contributed hours from RESOURCE_CONTRIBUTION and COLLABORATIVE records.
func (e *Engine) TotalResourceHours(modelID string) float64 {
	var hours float64
	e.records.Each(func(_ int, tx models.Transaction) bool {
		if tx.ModelID != modelID {
			return true
		}
		if tx.Kind == models.KindResourceContribution || tx.IsCollaborative() {
			hours += tx.ResourceContribution
		}
		return true
	})
	return hours
}

// FairPrice is basePrice × (0.5 + rating/10) × log10(1 + hours).
func (e *Engine) FairPrice(modelID string) float64 {
	rating := e.ratings.ModelRating(modelID)
	hours := e.TotalResourceHours(modelID)
	return e.basePrice * (0.5 + rating/10.0) * math.Log10(1+hours)
}
