// v0
// internal/storage/journal_test.go
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"modelmarket/internal/chain"
	"modelmarket/internal/hashing"
	"modelmarket/internal/models"
	"modelmarket/internal/signing"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newJournaledLedger(t *testing.T, path string) (*chain.Ledger, *Journal) {
	t.Helper()
	j, err := OpenJournal(path, discard())
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	signer, err := signing.NewSharedSecret("mock_private_key", hashing.SHA256)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	l, err := chain.New(chain.Options{
		Signer:    signer,
		Clock:     func() time.Time { return time.Unix(1700000000, 0) },
		Logger:    discard(),
		Persister: j,
	})
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	records, err := j.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := l.Restore(records); err != nil {
		t.Fatalf("restore: %v", err)
	}
	return l, j
}

func TestJournalReplayRestoresIdenticalChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "ledger.jsonl")
	l, j := newJournaledLedger(t, path)
	if _, err := l.AddTransaction(models.KindCreate, "m1", "alice", "", 0, 0); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := l.AddCollaborativeTransaction("m1", []string{"alice", "bob"}, []float64{10.5, 8.3}); err != nil {
		t.Fatalf("collaborative: %v", err)
	}
	if _, err := l.AddTransaction(models.KindRent, "m1", "dave", "alice", 10, time.Hour); err != nil {
		t.Fatalf("rent: %v", err)
	}
	tail := l.TailHash()
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	replayed, j2 := newJournaledLedger(t, path)
	if replayed.Len() != 3 || replayed.TailHash() != tail {
		t.Fatalf("replayed chain differs: len=%d", replayed.Len())
	}
	if r := replayed.VerifyChain(); !r.Valid {
		t.Fatalf("replayed chain invalid: %+v", r.Failure)
	}
	if _, err := replayed.AddResourceContribution("m1", "bob", 1); err != nil {
		t.Fatalf("append after replay: %v", err)
	}
	records, err := j2.Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected 4 journaled records, got %d", len(records))
	}
}

func TestTamperedJournalIsRefused(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	l, j := newJournaledLedger(t, path)
	for i := 0; i < 3; i++ {
		if _, err := l.AddTransaction(models.KindRent, "m1", "dave", "alice", 10, time.Hour); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	j.Close()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := bytes.Split(bytes.TrimSpace(content), []byte("\n"))
	var e entry
	if err := json.Unmarshal(lines[1], &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	e.Record.Amount = 1
	tampered, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	lines[1] = tampered
	if err := os.WriteFile(path, append(bytes.Join(lines, []byte("\n")), '\n'), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	j2, err := OpenJournal(path, discard())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer j2.Close()
	records, err := j2.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	signer, _ := signing.NewSharedSecret("mock_private_key", hashing.SHA256)
	fresh, _ := chain.New(chain.Options{Signer: signer, Logger: discard()})
	err = fresh.Restore(records)
	if !errors.Is(err, models.ErrChainIntegrity) || !strings.Contains(err.Error(), "record 1") {
		t.Fatalf("expected integrity error at record 1, got %v", err)
	}
}

func TestJournalRejectsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	if err := os.WriteFile(path, []byte("{\"index\":0,\"record\":{}}\nnot-json\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := OpenJournal(path, discard()); err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected line 2 error, got %v", err)
	}

	gap := filepath.Join(t.TempDir(), "gap.jsonl")
	if err := os.WriteFile(gap, []byte("{\"index\":1,\"record\":{}}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := OpenJournal(gap, discard()); err == nil || !strings.Contains(err.Error(), "index mismatch") {
		t.Fatalf("expected index mismatch, got %v", err)
	}
}

func TestJournalAppendChecksIndexAndClose(t *testing.T) {
	j, err := OpenJournal(filepath.Join(t.TempDir(), "ledger.jsonl"), discard())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := j.Append(1, models.Transaction{Kind: models.KindCreate}); err == nil {
		t.Fatalf("expected index mismatch")
	}
	if err := j.Append(0, models.Transaction{Kind: models.KindCreate}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := j.Append(1, models.Transaction{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
