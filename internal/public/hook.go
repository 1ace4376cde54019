// v2
// internal/public/hook.go
package public

import (
	"log/slog"

	"modelmarket/internal/hashing"
	"modelmarket/internal/models"
)

// PublisherHook adapts the publisher to the ledger's commit hook contract.
type PublisherHook struct {
	publisher *Publisher
	hash      hashing.Func
	log       *slog.Logger
}

// NewPublisherHook returns nil when p is nil or disabled.
func NewPublisherHook(p *Publisher, h hashing.Func, log *slog.Logger) *PublisherHook {
	if !p.Enabled() {
		return nil
	}
	if h == nil {
		h = hashing.SHA256
	}
	if log == nil {
		log = slog.Default()
	}
	return &PublisherHook{publisher: p, hash: h, log: log.With(slog.String("component", "public_hook"))}
}

// OnCommit queues the committed record for publication. It runs inside the
// ledger's append path, so a full queue drops the event instead of waiting.
func (h *PublisherHook) OnCommit(index int, tx models.Transaction) {
	if h == nil || h.publisher == nil {
		return
	}
	event := RecordEvent{
		Index:  index,
		Hash:   tx.CalculateHash(h.hash),
		Record: tx,
	}
	if err := h.publisher.TryPublish(event); err != nil {
		// the publisher has already logged and counted the failure
		h.log.Debug("public_publish_delegate_err", slog.Any("err", err), slog.String("model_id", tx.ModelID), slog.Int("index", index))
	}
}
