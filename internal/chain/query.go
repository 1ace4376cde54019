// v0
// internal/chain/query.go
package chain

import (
	"time"

	"modelmarket/internal/models"
)

// Filter narrows Records. Zero values match everything.
type Filter struct {
	ModelID string
	Kind    models.Kind
	Page    int
	Size    int
}

// Records returns one page of matching records and the total match count.
// Page is 1-based; Size defaults to 50.
func (l *Ledger) Records(f Filter) ([]models.Transaction, int) {
	records := l.snapshot()
	filtered := make([]models.Transaction, 0, len(records))
	for _, tx := range records {
		if f.ModelID != "" && tx.ModelID != f.ModelID {
			continue
		}
		if f.Kind != "" && tx.Kind != f.Kind {
			continue
		}
		filtered = append(filtered, tx.Clone())
	}
	total := len(filtered)
	size := f.Size
	if size <= 0 {
		size = 50
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * size
	if start >= total {
		return []models.Transaction{}, total
	}
	end := start + size
	if end > total {
		end = total
	}
	return filtered[start:end], total
}

// Each visits committed records in order until visit returns false. The
// record passed to visit shares its slices and maps with the ledger and must
// not be modified.
func (l *Ledger) Each(visit func(index int, tx models.Transaction) bool) {
	for i, tx := range l.snapshot() {
		if !visit(i, *tx) {
			return
		}
	}
}

// ModelCreator returns the sender of the model's first CREATE record.
func (l *Ledger) ModelCreator(modelID string) (string, bool) {
	for _, tx := range l.snapshot() {
		if tx.Kind == models.KindCreate && tx.ModelID == modelID {
			return tx.From, true
		}
	}
	return "", false
}

// IsModelAvailableForRent is true when no RENT record for the model is active at now.
func (l *Ledger) IsModelAvailableForRent(modelID string, now time.Time) bool {
	ts := now.Unix()
	for _, tx := range l.snapshot() {
		if tx.ModelID == modelID && tx.RentalActiveAt(ts) {
			return false
		}
	}
	return true
}

// IsModelRentedBy is true when user holds an active rental of the model at now.
// The renter is the record's sender.
func (l *Ledger) IsModelRentedBy(modelID, user string, now time.Time) bool {
	ts := now.Unix()
	for _, tx := range l.snapshot() {
		if tx.ModelID == modelID && tx.From == user && tx.RentalActiveAt(ts) {
			return true
		}
	}
	return false
}
