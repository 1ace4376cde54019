// v0
// internal/models/transaction_test.go
package models

import (
	"errors"
	"testing"
	"time"

	"modelmarket/internal/hashing"
	"modelmarket/internal/signing"
)

func collaborative(contributors []string, shares map[string]float64) Transaction {
	return Transaction{
		Kind:                 KindCollaborative,
		ModelID:              "m1",
		From:                 "alice",
		To:                   "",
		CreatedAt:            1700000000,
		PreviousHash:         hashing.Genesis(hashing.SHA256),
		Contributors:         contributors,
		ResourceContribution: 34.0,
		RewardShares:         shares,
	}
}

func TestCalculateHashIgnoresContributorOrder(t *testing.T) {
	shares := map[string]float64{"alice": 10.5 / 34.0, "bob": 8.3 / 34.0, "carol": 15.2 / 34.0}
	a := collaborative([]string{"alice", "bob", "carol"}, shares)
	b := collaborative([]string{"carol", "alice", "bob"}, shares)
	if a.CalculateHash(hashing.SHA256) != b.CalculateHash(hashing.SHA256) {
		t.Fatalf("expected identical hashes regardless of contributor order")
	}
}

func TestCalculateHashCoversEveryFieldButSignature(t *testing.T) {
	base := Transaction{Kind: KindRent, ModelID: "m1", From: "dave", To: "alice", Amount: 10, CreatedAt: 100, ExpiresAt: 86500, PreviousHash: "abc"}
	ref := base.CalculateHash(hashing.SHA256)

	cases := []struct {
		name   string
		mutate func(*Transaction)
	}{
		{"kind", func(tx *Transaction) { tx.Kind = KindCreate }},
		{"model", func(tx *Transaction) { tx.ModelID = "m2" }},
		{"from", func(tx *Transaction) { tx.From = "eve" }},
		{"to", func(tx *Transaction) { tx.To = "bob" }},
		{"amount", func(tx *Transaction) { tx.Amount = 10.000001 }},
		{"createdAt", func(tx *Transaction) { tx.CreatedAt = 101 }},
		{"expiresAt", func(tx *Transaction) { tx.ExpiresAt = 0 }},
		{"previousHash", func(tx *Transaction) { tx.PreviousHash = "abd" }},
		{"resource", func(tx *Transaction) { tx.ResourceContribution = 1 }},
		{"shares", func(tx *Transaction) { tx.RewardShares = map[string]float64{"dave": 1} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cp := base.Clone()
			tc.mutate(&cp)
			if cp.CalculateHash(hashing.SHA256) == ref {
				t.Fatalf("hash did not change when %s changed", tc.name)
			}
		})
	}

	signed := base.Clone()
	signed.Signature = "deadbeef"
	if signed.CalculateHash(hashing.SHA256) != ref {
		t.Fatalf("signature must not affect the hash")
	}
}

func TestSignAndVerify(t *testing.T) {
	signer, err := signing.NewSharedSecret("mock_private_key", hashing.SHA256)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	tx := Transaction{Kind: KindCreate, ModelID: "m1", From: "alice", CreatedAt: 1}
	if tx.VerifySignature(signer, hashing.SHA256) {
		t.Fatalf("unsigned record must not verify")
	}
	if err := tx.Sign(signer, hashing.SHA256); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !tx.VerifySignature(signer, hashing.SHA256) {
		t.Fatalf("expected signature to verify")
	}
	tx.Amount = 5
	if tx.VerifySignature(signer, hashing.SHA256) {
		t.Fatalf("tampered record must not verify")
	}
}

func TestFormatAmountUsesSixDigits(t *testing.T) {
	cases := map[float64]string{
		0:         "0.000000",
		10:        "10.000000",
		10.5:      "10.500000",
		0.1234567: "0.123457",
	}
	for in, want := range cases {
		if got := FormatAmount(in); got != want {
			t.Fatalf("FormatAmount(%v) = %s, want %s", in, got, want)
		}
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" rent ")
	if err != nil || k != KindRent {
		t.Fatalf("expected RENT, got %q err=%v", k, err)
	}
	if _, err := ParseKind("MINT"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestRentalActiveAt(t *testing.T) {
	tx := Transaction{Kind: KindRent, CreatedAt: 0, ExpiresAt: 86400}
	if !tx.RentalActiveAt(3600) {
		t.Fatalf("expected active rental before expiry")
	}
	if tx.RentalActiveAt(86400) {
		t.Fatalf("expected rental to lapse at expiry")
	}
	open := Transaction{Kind: KindRent}
	if !open.RentalActiveAt(1 << 40) {
		t.Fatalf("open-ended rental must stay active")
	}
	other := Transaction{Kind: KindCreate}
	if other.RentalActiveAt(0) {
		t.Fatalf("non-rent record is never an active rental")
	}
}

func TestRentalDurationBounds(t *testing.T) {
	d, err := RentalDuration(86400)
	if err != nil || d != 24*time.Hour {
		t.Fatalf("expected 24h, got %v err=%v", d, err)
	}
	if d, err := RentalDuration(MaxRentalSeconds); err != nil || d <= 0 {
		t.Fatalf("expected the largest rental to stay positive, got %v err=%v", d, err)
	}
	for _, secs := range []int64{-1, MaxRentalSeconds + 1, 10_000_000_000} {
		if _, err := RentalDuration(secs); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("RentalDuration(%d): expected invalid input, got %v", secs, err)
		}
	}
}

func TestIntegrityErrorUnwraps(t *testing.T) {
	err := error(&IntegrityError{Stage: "link", Expected: "a", Actual: "b"})
	if !errors.Is(err, ErrChainIntegrity) {
		t.Fatalf("expected integrity error to match sentinel")
	}
}

func TestCloneIsDeep(t *testing.T) {
	tx := collaborative([]string{"a"}, map[string]float64{"a": 1})
	cp := tx.Clone()
	cp.Contributors[0] = "z"
	cp.RewardShares["a"] = 0
	if tx.Contributors[0] != "a" || tx.RewardShares["a"] != 1 {
		t.Fatalf("clone shares state with the original")
	}
}
