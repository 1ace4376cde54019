// v0
// internal/pricing/engine_test.go
package pricing

import (
	"math"
	"testing"

	"modelmarket/internal/models"
)

type fakeRecords []models.Transaction

func (f fakeRecords) Each(visit func(int, models.Transaction) bool) {
	for i, tx := range f {
		if !visit(i, tx) {
			return
		}
	}
}

type fakeRatings map[string]float64

func (f fakeRatings) ModelRating(modelID string) float64 { return f[modelID] }

func TestFairPriceWithoutActivityIsZero(t *testing.T) {
	e := NewEngine(fakeRecords{}, fakeRatings{}, 0)
	if got := e.FairPrice("m1"); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
	if e.BasePrice() != DefaultBasePrice {
		t.Fatalf("expected default base price")
	}
}

func TestFairPriceFormula(t *testing.T) {
	records := fakeRecords{
		{Kind: models.KindResourceContribution, ModelID: "m1", ResourceContribution: 4},
		{Kind: models.KindCollaborative, ModelID: "m1", ResourceContribution: 5},
		{Kind: models.KindResourceContribution, ModelID: "m2", ResourceContribution: 100},
		{Kind: models.KindRent, ModelID: "m1", Amount: 50},
	}
	e := NewEngine(records, fakeRatings{"m1": 4}, 200)
	if got := e.TotalResourceHours("m1"); got != 9 {
		t.Fatalf("expected 9 hours, got %v", got)
	}
	want := 200 * (0.5 + 0.4) * 1.0
	if got := e.FairPrice("m1"); math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
