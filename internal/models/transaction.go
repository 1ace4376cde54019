// v0
// internal/models/transaction.go
package models

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"modelmarket/internal/hashing"
)

// Kind enumerates ledger record types.
type Kind string

const (
	KindCreate               Kind = "CREATE"
	KindRent                 Kind = "RENT"
	KindResourceContribution Kind = "RESOURCE_CONTRIBUTION"
	KindReward               Kind = "REWARD"
	KindRewardUpdate         Kind = "REWARD_UPDATE"
	KindRollback             Kind = "ROLLBACK"
	KindCollaborative        Kind = "COLLABORATIVE"
)

// SystemAccount is the sender of records the marketplace issues on its own behalf.
const SystemAccount = "system"

// ShareTolerance bounds how far collaborative shares may drift from 1.0.
const ShareTolerance = 1e-6

var allKinds = []Kind{
	KindCreate,
	KindRent,
	KindResourceContribution,
	KindReward,
	KindRewardUpdate,
	KindRollback,
	KindCollaborative,
}

// Kinds lists every record kind in declaration order.
func Kinds() []Kind {
	return append([]Kind(nil), allKinds...)
}

// ParseKind accepts a case-insensitive kind name.
func ParseKind(s string) (Kind, error) {
	candidate := Kind(strings.ToUpper(strings.TrimSpace(s)))
	for _, k := range allKinds {
		if k == candidate {
			return k, nil
		}
	}
	return "", Invalid("unknown transaction kind %q", s)
}

// Transaction is a single ledger record. Once committed it is never modified.
type Transaction struct {
	Kind                 Kind               `json:"kind"`
	ModelID              string             `json:"modelId"`
	From                 string             `json:"from"`
	To                   string             `json:"to"`
	Amount               float64            `json:"amount"`
	CreatedAt            int64              `json:"createdAt"`
	ExpiresAt            int64              `json:"expiresAt"`
	PreviousHash         string             `json:"previousHash"`
	Signature            string             `json:"signature"`
	Contributors         []string           `json:"contributors,omitempty"`
	ResourceContribution float64            `json:"resourceContribution,omitempty"`
	RewardShares         map[string]float64 `json:"rewardShares,omitempty"`
}

// IsCollaborative reports whether the record is a multi-contributor record.
func (t *Transaction) IsCollaborative() bool {
	return t.Kind == KindCollaborative
}

// CalculateHash digests every field except the signature. Contributors and
// shares are encoded in sorted order so the result does not depend on the
// order they were supplied in.
func (t *Transaction) CalculateHash(h hashing.Func) string {
	var b strings.Builder
	b.WriteString(string(t.Kind))
	b.WriteString(t.ModelID)
	b.WriteString(t.From)
	b.WriteString(t.To)
	b.WriteString(FormatAmount(t.Amount))
	b.WriteString(strconv.FormatInt(t.CreatedAt, 10))
	b.WriteString(strconv.FormatInt(t.ExpiresAt, 10))
	b.WriteString(t.PreviousHash)
	switch {
	case t.IsCollaborative():
		b.WriteString("collaborative")
		t.writeExtension(&b)
	case t.ResourceContribution != 0 || len(t.RewardShares) > 0 || len(t.Contributors) > 0:
		b.WriteString("extension")
		t.writeExtension(&b)
	}
	return hashing.HexString(h, b.String())
}

func (t *Transaction) writeExtension(b *strings.Builder) {
	contributors := append([]string(nil), t.Contributors...)
	sort.Strings(contributors)
	for _, c := range contributors {
		b.WriteString(c)
	}
	b.WriteString(FormatAmount(t.ResourceContribution))
	for _, id := range SortedShareIDs(t.RewardShares) {
		b.WriteString(id)
		b.WriteString(FormatAmount(t.RewardShares[id]))
	}
}

// Signer is the subset of a signing key the record needs.
type Signer interface {
	Sign(payload []byte) (string, error)
	Verify(payload []byte, signature string) bool
}

// Sign seals the record's current hash.
func (t *Transaction) Sign(s Signer, h hashing.Func) error {
	sig, err := s.Sign([]byte(t.CalculateHash(h)))
	if err != nil {
		return fmt.Errorf("sign transaction: %w", err)
	}
	t.Signature = sig
	return nil
}

// VerifySignature is false when the record is unsigned or the signer rejects it.
func (t *Transaction) VerifySignature(s Signer, h hashing.Func) bool {
	if t.Signature == "" {
		return false
	}
	return s.Verify([]byte(t.CalculateHash(h)), t.Signature)
}

// RentalActiveAt reports whether a RENT record still holds at now (unix seconds).
func (t *Transaction) RentalActiveAt(now int64) bool {
	if t.Kind != KindRent {
		return false
	}
	return t.ExpiresAt == 0 || t.ExpiresAt > now
}

// ShareSum totals the reward shares.
func (t *Transaction) ShareSum() float64 {
	var sum float64
	for _, id := range SortedShareIDs(t.RewardShares) {
		sum += t.RewardShares[id]
	}
	return sum
}

// Clone returns a deep copy.
func (t *Transaction) Clone() Transaction {
	cp := *t
	if t.Contributors != nil {
		cp.Contributors = append([]string(nil), t.Contributors...)
	}
	if t.RewardShares != nil {
		cp.RewardShares = make(map[string]float64, len(t.RewardShares))
		for k, v := range t.RewardShares {
			cp.RewardShares[k] = v
		}
	}
	return cp
}

// FormatAmount renders a value with six fractional digits.
func FormatAmount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', 6, 64)
	}
	return decimal.NewFromFloat(v).StringFixed(6)
}

// SortedShareIDs returns the share keys in lexical order.
func SortedShareIDs(shares map[string]float64) []string {
	ids := make([]string, 0, len(shares))
	for id := range shares {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// MaxRentalSeconds is the longest rental a time.Duration can represent.
const MaxRentalSeconds = int64(math.MaxInt64 / int64(time.Second))

// RentalDuration converts a rental length in seconds, rejecting values that
// are negative or would overflow a time.Duration.
func RentalDuration(seconds int64) (time.Duration, error) {
	if seconds < 0 || seconds > MaxRentalSeconds {
		return 0, Invalid("rental seconds must be between 0 and %d, got %d", MaxRentalSeconds, seconds)
	}
	return time.Duration(seconds) * time.Second, nil
}
