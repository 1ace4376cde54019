// v0
// internal/chain/verify.go
package chain

import (
	"log/slog"
	"math"
	"time"

	"modelmarket/internal/hashing"
	"modelmarket/internal/metrics"
	"modelmarket/internal/models"
)

// Failure reasons reported by VerifyChain.
const (
	ReasonGenesisMismatch   = "genesis_mismatch"
	ReasonInvalidSignature  = "invalid_signature"
	ReasonLinkMismatch      = "link_mismatch"
	ReasonEmptyContributors = "empty_contributors"
	ReasonShareSum          = "share_sum_mismatch"
)

// FailureDetail locates the first record that broke the chain.
type FailureDetail struct {
	Index    int         `json:"index"`
	Kind     models.Kind `json:"kind"`
	Reason   string      `json:"reason"`
	Expected string      `json:"expected,omitempty"`
	Actual   string      `json:"actual,omitempty"`
}

// VerifyReport is the outcome of a full scan.
type VerifyReport struct {
	Valid   bool           `json:"valid"`
	Records int            `json:"records"`
	Failure *FailureDetail `json:"failure,omitempty"`
}

// VerifyChain scans the committed records and stops at the first failure.
func (l *Ledger) VerifyChain() VerifyReport {
	start := time.Now()
	records := l.snapshot()
	report := verify(len(records), func(i int) *models.Transaction { return records[i] }, l.hash, l.signer)
	metrics.ObserveVerify(time.Since(start), report.Valid)
	if !report.Valid {
		l.log.Warn("ledger_verify_failed",
			slog.Int("index", report.Failure.Index),
			slog.String("kind", string(report.Failure.Kind)),
			slog.String("reason", report.Failure.Reason),
		)
	}
	return report
}

// VerifyRecords checks an arbitrary record sequence with the given primitives.
func VerifyRecords(records []models.Transaction, h hashing.Func, s models.Signer) VerifyReport {
	return verify(len(records), func(i int) *models.Transaction { return &records[i] }, h, s)
}

func verify(n int, at func(int) *models.Transaction, h hashing.Func, s models.Signer) VerifyReport {
	report := VerifyReport{Valid: true, Records: n}
	if n == 0 {
		return report
	}
	fail := func(i int, tx *models.Transaction, reason, expected, actual string) VerifyReport {
		report.Valid = false
		report.Failure = &FailureDetail{Index: i, Kind: tx.Kind, Reason: reason, Expected: expected, Actual: actual}
		return report
	}

	expected := hashing.Genesis(h)
	for i := 0; i < n; i++ {
		tx := at(i)
		if tx.PreviousHash != expected {
			reason := ReasonLinkMismatch
			if i == 0 {
				reason = ReasonGenesisMismatch
			}
			return fail(i, tx, reason, expected, tx.PreviousHash)
		}
		if !tx.VerifySignature(s, h) {
			return fail(i, tx, ReasonInvalidSignature, "", "")
		}
		if tx.IsCollaborative() {
			if len(tx.Contributors) == 0 {
				return fail(i, tx, ReasonEmptyContributors, "", "")
			}
			if math.Abs(tx.ShareSum()-1.0) > models.ShareTolerance {
				return fail(i, tx, ReasonShareSum, "1.000000", models.FormatAmount(tx.ShareSum()))
			}
		}
		expected = tx.CalculateHash(h)
	}
	return report
}
