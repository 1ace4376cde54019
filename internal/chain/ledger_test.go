// v0
// internal/chain/ledger_test.go
package chain

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"modelmarket/internal/hashing"
	"modelmarket/internal/models"
	"modelmarket/internal/signing"
)

var baseTime = time.Unix(1700000000, 0)

func newTestLedger(t *testing.T, opts Options) *Ledger {
	t.Helper()
	if opts.Signer == nil {
		s, err := signing.NewSharedSecret("mock_private_key", hashing.SHA256)
		if err != nil {
			t.Fatalf("signer: %v", err)
		}
		opts.Signer = s
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return baseTime }
	}
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	l, err := New(opts)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	return l
}

func mustValid(t *testing.T, l *Ledger) {
	t.Helper()
	if r := l.VerifyChain(); !r.Valid {
		t.Fatalf("expected valid chain, got failure %+v", r.Failure)
	}
}

func TestEmptyLedgerVerifies(t *testing.T) {
	l := newTestLedger(t, Options{})
	r := l.VerifyChain()
	if !r.Valid || r.Records != 0 {
		t.Fatalf("expected empty valid report, got %+v", r)
	}
	if l.TailHash() != hashing.Genesis(hashing.SHA256) {
		t.Fatalf("expected genesis tail on empty ledger")
	}
}

func TestChainStaysValidAfterEveryAppend(t *testing.T) {
	l := newTestLedger(t, Options{})
	steps := []func() (models.Transaction, error){
		func() (models.Transaction, error) {
			return l.AddTransaction(models.KindCreate, "m1", "alice", "", 0, 0)
		},
		func() (models.Transaction, error) {
			return l.AddTransaction(models.KindRent, "m1", "dave", "alice", 10, 24*time.Hour)
		},
		func() (models.Transaction, error) {
			return l.AddCollaborativeTransaction("m1", []string{"alice", "bob"}, []float64{2, 1})
		},
		func() (models.Transaction, error) { return l.AddResourceContribution("m1", "bob", 3.5) },
		func() (models.Transaction, error) {
			return l.AddReward("m1", 30, map[string]float64{"alice": 20, "bob": 10})
		},
		func() (models.Transaction, error) {
			return l.AddRewardUpdate("m1", map[string]float64{"alice": 15, "bob": 15})
		},
		func() (models.Transaction, error) { return l.AddRollback("m1", 1) },
	}
	prev := hashing.Genesis(hashing.SHA256)
	for i, step := range steps {
		tx, err := step()
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if tx.PreviousHash != prev {
			t.Fatalf("step %d: expected link %s, got %s", i, prev, tx.PreviousHash)
		}
		if tx.Signature == "" {
			t.Fatalf("step %d: expected signed record", i)
		}
		prev = tx.CalculateHash(hashing.SHA256)
		mustValid(t, l)
	}
	if l.Len() != len(steps) {
		t.Fatalf("expected %d records, got %d", len(steps), l.Len())
	}
}

func TestCollaborativeSharesAreProportional(t *testing.T) {
	l := newTestLedger(t, Options{})
	contributions := []float64{10.5, 8.3, 15.2}
	tx, err := l.AddCollaborativeTransaction("m1", []string{"alice", "bob", "carol"}, contributions)
	if err != nil {
		t.Fatalf("add collaborative: %v", err)
	}
	if math.Abs(tx.ShareSum()-1) > models.ShareTolerance {
		t.Fatalf("shares sum to %v", tx.ShareSum())
	}
	for i, id := range []string{"alice", "bob", "carol"} {
		want := contributions[i] / 34.0
		if math.Abs(tx.RewardShares[id]-want) > 1e-9 {
			t.Fatalf("share of %s = %v, want %v", id, tx.RewardShares[id], want)
		}
	}
	if tx.ResourceContribution != 34.0 {
		t.Fatalf("expected total contribution 34, got %v", tx.ResourceContribution)
	}
}

func TestCollaborativeHashIndependentOfInputOrder(t *testing.T) {
	a := newTestLedger(t, Options{})
	b := newTestLedger(t, Options{})
	txA, err := a.AddCollaborativeTransaction("m1", []string{"alice", "bob", "carol"}, []float64{10.5, 8.3, 15.2})
	if err != nil {
		t.Fatalf("a: %v", err)
	}
	txB, err := b.AddCollaborativeTransaction("m1", []string{"carol", "alice", "bob"}, []float64{15.2, 10.5, 8.3})
	if err != nil {
		t.Fatalf("b: %v", err)
	}
	if txA.CalculateHash(hashing.SHA256) != txB.CalculateHash(hashing.SHA256) {
		t.Fatalf("expected order-independent hashes")
	}
}

func TestTamperedRecordFailsAtItsIndex(t *testing.T) {
	l := newTestLedger(t, Options{})
	for i := 0; i < 4; i++ {
		if _, err := l.AddTransaction(models.KindRent, "m1", "dave", "alice", 10, time.Hour); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	l.records[2].Amount = 99

	r := l.VerifyChain()
	if r.Valid {
		t.Fatalf("expected tampering to be detected")
	}
	if r.Failure.Index != 2 || r.Failure.Reason != ReasonInvalidSignature {
		t.Fatalf("expected signature failure at 2, got %+v", r.Failure)
	}
}

func TestVerifyDetectsBrokenLinkAndGenesis(t *testing.T) {
	l := newTestLedger(t, Options{})
	for i := 0; i < 3; i++ {
		if _, err := l.AddTransaction(models.KindCreate, "m1", "alice", "", 0, 0); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	records := make([]models.Transaction, 0, 3)
	l.Each(func(_ int, tx models.Transaction) bool {
		records = append(records, tx.Clone())
		return true
	})
	signer, _ := signing.NewSharedSecret("mock_private_key", hashing.SHA256)

	relinked := append([]models.Transaction(nil), records...)
	relinked[1].PreviousHash = "bogus"
	r := VerifyRecords(relinked, hashing.SHA256, signer)
	if r.Valid || r.Failure.Index != 1 || r.Failure.Reason != ReasonLinkMismatch {
		t.Fatalf("expected link failure at 1, got %+v", r.Failure)
	}

	genesis := append([]models.Transaction(nil), records...)
	genesis[0].PreviousHash = "bogus"
	r = VerifyRecords(genesis, hashing.SHA256, signer)
	if r.Valid || r.Failure.Index != 0 || r.Failure.Reason != ReasonGenesisMismatch {
		t.Fatalf("expected genesis failure, got %+v", r.Failure)
	}
}

func TestVerifyRejectsBadCollaborativeShares(t *testing.T) {
	signer, _ := signing.NewSharedSecret("mock_private_key", hashing.SHA256)
	tx := models.Transaction{
		Kind:                 models.KindCollaborative,
		ModelID:              "m1",
		CreatedAt:            1,
		PreviousHash:         hashing.Genesis(hashing.SHA256),
		Contributors:         []string{"alice", "bob"},
		ResourceContribution: 2,
		RewardShares:         map[string]float64{"alice": 0.5, "bob": 0.4},
	}
	if err := tx.Sign(signer, hashing.SHA256); err != nil {
		t.Fatalf("sign: %v", err)
	}
	r := VerifyRecords([]models.Transaction{tx}, hashing.SHA256, signer)
	if r.Valid || r.Failure.Reason != ReasonShareSum {
		t.Fatalf("expected share sum failure, got %+v", r)
	}

	tx.Contributors = nil
	tx.RewardShares = map[string]float64{"alice": 1}
	if err := tx.Sign(signer, hashing.SHA256); err != nil {
		t.Fatalf("sign: %v", err)
	}
	r = VerifyRecords([]models.Transaction{tx}, hashing.SHA256, signer)
	if r.Valid || r.Failure.Reason != ReasonEmptyContributors {
		t.Fatalf("expected empty contributors failure, got %+v", r)
	}
}

func TestRentalWindow(t *testing.T) {
	l := newTestLedger(t, Options{})
	if _, err := l.AddTransaction(models.KindRent, "m1", "dave", "alice", 10.0, 86400*time.Second); err != nil {
		t.Fatalf("rent: %v", err)
	}
	if !l.IsModelRentedBy("m1", "dave", baseTime.Add(time.Hour)) {
		t.Fatalf("expected dave to hold the rental after 1h")
	}
	if l.IsModelRentedBy("m1", "dave", baseTime.Add(25*time.Hour)) {
		t.Fatalf("expected rental to lapse after 25h")
	}
	if l.IsModelRentedBy("m1", "alice", baseTime.Add(time.Hour)) {
		t.Fatalf("the owner is not the renter")
	}
	if l.IsModelAvailableForRent("m1", baseTime.Add(time.Hour)) {
		t.Fatalf("model must be unavailable during the rental")
	}
	if !l.IsModelAvailableForRent("m1", baseTime.Add(25*time.Hour)) {
		t.Fatalf("model must be available after the rental")
	}
	if !l.IsModelAvailableForRent("m2", baseTime) {
		t.Fatalf("unrented model must be available")
	}
}

func TestKindNamesAreNormalized(t *testing.T) {
	l := newTestLedger(t, Options{})
	rent, err := l.AddTransaction("rent", "m1", "dave", "alice", 10.0, 24*time.Hour)
	if err != nil {
		t.Fatalf("lowercase rent: %v", err)
	}
	if rent.Kind != models.KindRent {
		t.Fatalf("expected stored kind RENT, got %q", rent.Kind)
	}
	if !l.IsModelRentedBy("m1", "dave", baseTime.Add(time.Hour)) {
		t.Fatalf("expected dave to hold the rental")
	}
	if _, err := l.AddTransaction(" create ", "m2", "alice", "", 1, 0); err != nil {
		t.Fatalf("lowercase create: %v", err)
	}
	if creator, ok := l.ModelCreator("m2"); !ok || creator != "alice" {
		t.Fatalf("expected alice as creator, got %q found=%v", creator, ok)
	}
	if records, total := l.Records(Filter{Kind: models.KindCreate}); total != 1 || len(records) != 1 {
		t.Fatalf("expected one CREATE record, got %d", total)
	}
	mustValid(t, l)
}

func TestInvalidInputLeavesChainUnchanged(t *testing.T) {
	l := newTestLedger(t, Options{})
	if _, err := l.AddTransaction(models.KindCreate, "m1", "alice", "", 0, 0); err != nil {
		t.Fatalf("create: %v", err)
	}
	tail := l.TailHash()

	cases := []struct {
		name string
		run  func() error
	}{
		{"collaborative via plain entry", func() error {
			_, err := l.AddTransaction(models.KindCollaborative, "m1", "a", "", 0, 0)
			return err
		}},
		{"unknown kind", func() error {
			_, err := l.AddTransaction(models.Kind("MINT"), "m1", "a", "", 0, 0)
			return err
		}},
		{"negative amount", func() error {
			_, err := l.AddTransaction(models.KindRent, "m1", "a", "b", -1, 0)
			return err
		}},
		{"nan amount", func() error {
			_, err := l.AddTransaction(models.KindRent, "m1", "a", "b", math.NaN(), 0)
			return err
		}},
		{"negative duration", func() error {
			_, err := l.AddTransaction(models.KindRent, "m1", "a", "b", 1, -time.Second)
			return err
		}},
		{"duration on create", func() error {
			_, err := l.AddTransaction(models.KindCreate, "m1", "a", "", 0, time.Hour)
			return err
		}},
		{"empty model", func() error {
			_, err := l.AddTransaction(models.KindCreate, " ", "a", "", 0, 0)
			return err
		}},
		{"mismatched lengths", func() error {
			_, err := l.AddCollaborativeTransaction("m1", []string{"a", "b"}, []float64{1})
			return err
		}},
		{"no contributors", func() error {
			_, err := l.AddCollaborativeTransaction("m1", nil, nil)
			return err
		}},
		{"zero total", func() error {
			_, err := l.AddCollaborativeTransaction("m1", []string{"a", "b"}, []float64{0, 0})
			return err
		}},
		{"negative contribution", func() error {
			_, err := l.AddCollaborativeTransaction("m1", []string{"a", "b"}, []float64{2, -1})
			return err
		}},
		{"duplicate contributor", func() error {
			_, err := l.AddCollaborativeTransaction("m1", []string{"a", "a"}, []float64{1, 1})
			return err
		}},
		{"zero hours", func() error {
			_, err := l.AddResourceContribution("m1", "a", 0)
			return err
		}},
		{"empty reward shares", func() error {
			_, err := l.AddRewardUpdate("m1", nil)
			return err
		}},
		{"negative payout", func() error {
			_, err := l.AddReward("m1", 10, map[string]float64{"a": -1})
			return err
		}},
		{"rollback to zero", func() error {
			_, err := l.AddRollback("m1", 0)
			return err
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.run(); !errors.Is(err, models.ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
			if l.Len() != 1 || l.TailHash() != tail {
				t.Fatalf("chain changed after rejected input")
			}
		})
	}
}

type failingPersister struct{ err error }

func (f failingPersister) Append(int, models.Transaction) error { return f.err }

func TestPersistFailureRejectsAppend(t *testing.T) {
	boom := errors.New("disk full")
	l := newTestLedger(t, Options{Persister: failingPersister{err: boom}})
	if _, err := l.AddTransaction(models.KindCreate, "m1", "alice", "", 0, 0); !errors.Is(err, boom) {
		t.Fatalf("expected persist error, got %v", err)
	}
	if l.Len() != 0 {
		t.Fatalf("expected nothing committed")
	}
}

type rejectingSigner struct{}

func (rejectingSigner) Sign([]byte) (string, error)   { return "sig", nil }
func (rejectingSigner) Verify([]byte, string) bool  { return false }

func TestSignatureMismatchIsIntegrityError(t *testing.T) {
	l := newTestLedger(t, Options{Signer: rejectingSigner{}})
	_, err := l.AddTransaction(models.KindCreate, "m1", "alice", "", 0, 0)
	var ie *models.IntegrityError
	if !errors.As(err, &ie) || ie.Stage != "signature" {
		t.Fatalf("expected signature integrity error, got %v", err)
	}
	if !errors.Is(err, models.ErrChainIntegrity) {
		t.Fatalf("expected error to match ErrChainIntegrity")
	}
	if l.Len() != 0 {
		t.Fatalf("expected nothing committed")
	}
}

func TestCommitHooksSeeEveryRecordInOrder(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []int
	)
	l := newTestLedger(t, Options{})
	l.AddHook(CommitHookFunc(func(index int, tx models.Transaction) {
		mu.Lock()
		seen = append(seen, index)
		mu.Unlock()
	}))
	for i := 0; i < 3; i++ {
		if _, err := l.AddTransaction(models.KindCreate, "m1", "alice", "", 0, 0); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if len(seen) != 3 || seen[0] != 0 || seen[2] != 2 {
		t.Fatalf("unexpected hook indexes %v", seen)
	}
}

func TestConcurrentAppendsKeepChainValid(t *testing.T) {
	l := newTestLedger(t, Options{Clock: time.Now})
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				if _, err := l.AddResourceContribution("m1", "worker", 1); err != nil {
					t.Errorf("append: %v", err)
					return
				}
				_ = l.VerifyChain()
			}
		}()
	}
	wg.Wait()
	if l.Len() != 160 {
		t.Fatalf("expected 160 records, got %d", l.Len())
	}
	mustValid(t, l)
}

func TestRestoreAcceptsValidAndRefusesTampered(t *testing.T) {
	src := newTestLedger(t, Options{})
	if _, err := src.AddTransaction(models.KindCreate, "m1", "alice", "", 0, 0); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := src.AddResourceContribution("m1", "bob", 2); err != nil {
		t.Fatalf("contribution: %v", err)
	}
	records, _ := src.Records(Filter{})

	dst := newTestLedger(t, Options{})
	if err := dst.Restore(records); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if dst.TailHash() != src.TailHash() {
		t.Fatalf("restored tail differs")
	}
	mustValid(t, dst)
	if err := dst.Restore(records); err == nil {
		t.Fatalf("expected restore into a non-empty ledger to fail")
	}

	tampered := append([]models.Transaction(nil), records...)
	tampered[1].ResourceContribution = 200
	other := newTestLedger(t, Options{})
	if err := other.Restore(tampered); !errors.Is(err, models.ErrChainIntegrity) {
		t.Fatalf("expected integrity error, got %v", err)
	}
	if other.Len() != 0 {
		t.Fatalf("tampered records must not be loaded")
	}
}

func TestRecordsFilterAndPaging(t *testing.T) {
	l := newTestLedger(t, Options{})
	for i := 0; i < 5; i++ {
		if _, err := l.AddTransaction(models.KindCreate, "m1", "alice", "", 0, 0); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if _, err := l.AddTransaction(models.KindRent, "m2", "dave", "alice", 3, time.Hour); err != nil {
		t.Fatalf("rent: %v", err)
	}

	page, total := l.Records(Filter{ModelID: "m1", Page: 2, Size: 2})
	if total != 5 || len(page) != 2 {
		t.Fatalf("expected 2 of 5, got %d of %d", len(page), total)
	}
	rents, total := l.Records(Filter{Kind: models.KindRent})
	if total != 1 || rents[0].ModelID != "m2" {
		t.Fatalf("unexpected rent filter result %+v", rents)
	}
	empty, total := l.Records(Filter{Page: 9})
	if total != 6 || len(empty) != 0 {
		t.Fatalf("expected empty page past the end")
	}
	if creator, ok := l.ModelCreator("m1"); !ok || creator != "alice" {
		t.Fatalf("expected alice as creator, got %q", creator)
	}
	if _, ok := l.ModelCreator("m2"); ok {
		t.Fatalf("m2 has no CREATE record")
	}
}
