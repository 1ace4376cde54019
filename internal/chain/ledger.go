// v0
// internal/chain/ledger.go

// Package chain owns the append-only, hash-linked sequence of marketplace
// records. Every append is built, linked to the current tail, signed and
// re-verified before it becomes visible to readers.
package chain

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"modelmarket/internal/hashing"
	"modelmarket/internal/metrics"
	"modelmarket/internal/models"
)

// Persister stores a record before it is exposed. A failing Persister rejects the append.
type Persister interface {
	Append(index int, tx models.Transaction) error
}

// CommitHook observes records after they have been committed. Hooks run on the
// append path in commit order and must not block.
type CommitHook interface {
	OnCommit(index int, tx models.Transaction)
}

// CommitHookFunc adapts a function to CommitHook.
type CommitHookFunc func(index int, tx models.Transaction)

func (f CommitHookFunc) OnCommit(index int, tx models.Transaction) { f(index, tx) }

// Options configures a Ledger. Signer is required; the rest default sensibly.
type Options struct {
	Hasher    hashing.Func
	Signer    models.Signer
	Clock     func() time.Time
	Logger    *slog.Logger
	Persister Persister
	Hooks     []CommitHook
}

// Ledger is the single authoritative record log.
type Ledger struct {
	appendMu sync.Mutex
	mu       sync.RWMutex
	records  []*models.Transaction

	hash      hashing.Func
	signer    models.Signer
	clock     func() time.Time
	log       *slog.Logger
	persister Persister

	hooksMu sync.RWMutex
	hooks   []CommitHook
}

// New builds an empty ledger.
func New(opts Options) (*Ledger, error) {
	if opts.Signer == nil {
		return nil, errors.New("ledger signer must not be nil")
	}
	if opts.Hasher == nil {
		opts.Hasher = hashing.SHA256
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Ledger{
		hash:      opts.Hasher,
		signer:    opts.Signer,
		clock:     opts.Clock,
		log:       opts.Logger.With(slog.String("component", "ledger")),
		persister: opts.Persister,
		hooks:     append([]CommitHook(nil), opts.Hooks...),
	}, nil
}

// AddHook registers a commit observer for subsequent appends.
func (l *Ledger) AddHook(h CommitHook) {
	if h == nil {
		return
	}
	l.hooksMu.Lock()
	l.hooks = append(l.hooks, h)
	l.hooksMu.Unlock()
}

// Hasher exposes the digest function records are linked with.
func (l *Ledger) Hasher() hashing.Func { return l.hash }

// Len returns the number of committed records.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// TailHash returns the link the next record will carry.
func (l *Ledger) TailHash() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tailHashLocked()
}

func (l *Ledger) tailHashLocked() string {
	if len(l.records) == 0 {
		return hashing.Genesis(l.hash)
	}
	return l.records[len(l.records)-1].CalculateHash(l.hash)
}

func (l *Ledger) snapshot() []*models.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]*models.Transaction(nil), l.records...)
}

// commit runs the link, sign, verify and commit stages for a built record.
func (l *Ledger) commit(tx models.Transaction) (models.Transaction, error) {
	l.appendMu.Lock()
	defer l.appendMu.Unlock()

	tx.PreviousHash = l.TailHash()
	tx.Signature = ""
	if err := tx.Sign(l.signer, l.hash); err != nil {
		return models.Transaction{}, l.reject(tx, "sign", err)
	}
	if !tx.VerifySignature(l.signer, l.hash) {
		return models.Transaction{}, l.reject(tx, "signature", &models.IntegrityError{Stage: "signature"})
	}

	l.mu.Lock()
	current := l.tailHashLocked()
	if tx.PreviousHash != current {
		l.mu.Unlock()
		return models.Transaction{}, l.reject(tx, "link", &models.IntegrityError{Stage: "link", Expected: current, Actual: tx.PreviousHash})
	}
	index := len(l.records)
	if l.persister != nil {
		if err := l.persister.Append(index, tx.Clone()); err != nil {
			l.mu.Unlock()
			return models.Transaction{}, l.reject(tx, "persist", fmt.Errorf("persist record %d: %w", index, err))
		}
	}
	stored := tx.Clone()
	l.records = append(l.records, &stored)
	length := len(l.records)
	l.mu.Unlock()

	metrics.ObserveAppend(string(tx.Kind), "committed")
	metrics.SetChainLength(length)
	l.log.Info("ledger_append_committed",
		slog.Int("index", index),
		slog.String("kind", string(tx.Kind)),
		slog.String("model_id", tx.ModelID),
		slog.String("from", tx.From),
	)

	l.hooksMu.RLock()
	hooks := append([]CommitHook(nil), l.hooks...)
	l.hooksMu.RUnlock()
	for _, h := range hooks {
		h.OnCommit(index, stored.Clone())
	}
	return stored.Clone(), nil
}

func (l *Ledger) reject(tx models.Transaction, stage string, err error) error {
	metrics.ObserveAppend(string(tx.Kind), stage)
	l.log.Warn("ledger_append_rejected",
		slog.String("kind", string(tx.Kind)),
		slog.String("model_id", tx.ModelID),
		slog.String("stage", stage),
		slog.Any("err", err),
	)
	return err
}

func (l *Ledger) invalid(kind models.Kind, modelID string, err error) error {
	metrics.ObserveAppend(string(kind), "invalid")
	l.log.Debug("ledger_append_invalid",
		slog.String("kind", string(kind)),
		slog.String("model_id", modelID),
		slog.Any("err", err),
	)
	return err
}

// Restore loads previously committed records into an empty ledger. The
// records are verified with the ledger's hasher and signer first; a chain
// that fails verification is refused whole.
func (l *Ledger) Restore(records []models.Transaction) error {
	l.appendMu.Lock()
	defer l.appendMu.Unlock()

	report := VerifyRecords(records, l.hash, l.signer)
	if !report.Valid {
		f := report.Failure
		return fmt.Errorf("%w: record %d (%s): %s", models.ErrChainIntegrity, f.Index, f.Kind, f.Reason)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.records) > 0 {
		return errors.New("restore requires an empty ledger")
	}
	for i := range records {
		stored := records[i].Clone()
		l.records = append(l.records, &stored)
	}
	metrics.SetChainLength(len(l.records))
	l.log.Info("ledger_restored", slog.Int("records", len(l.records)))
	return nil
}
