// v0
// internal/ingest/mqtt_test.go
package ingest

import (
	"io"
	"log/slog"
	"testing"

	"modelmarket/internal/models"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 7 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

func TestMQTTBridgeAppliesPayloads(t *testing.T) {
	m := newTestMarket(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := newMQTTBridge("modelmarket/intents", m, logger)

	b.onMessage(nil, fakeMessage{topic: "modelmarket/intents", payload: encode(t, Intent{
		Type: IntentTransaction, Kind: "CREATE", ModelID: "m1", From: "alice", To: models.SystemAccount, Amount: 5,
	})})
	b.onMessage(nil, fakeMessage{topic: "modelmarket/intents", payload: []byte("garbage")})
	b.onMessage(nil, fakeMessage{topic: "modelmarket/intents", payload: encode(t, Intent{
		Type: IntentContribution, ModelID: "m1", UserID: "bob", Hours: 3,
	})})

	if got := m.Ledger().Len(); got != 2 {
		t.Fatalf("expected 2 records, got %d", got)
	}
	if creator, ok := m.Ledger().ModelCreator("m1"); !ok || creator != "alice" {
		t.Fatalf("unexpected creator %q", creator)
	}
}

func TestStartMQTTDisabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b, err := StartMQTT(MQTTConfig{}, nil, logger)
	if err != nil || b != nil {
		t.Fatalf("expected nil bridge, got %v, %v", b, err)
	}
	b.Stop()
	if _, err := StartMQTT(MQTTConfig{Enabled: true, Broker: "tcp://localhost:1883"}, newTestMarket(t), logger); err == nil {
		t.Fatalf("expected missing topic error")
	}
}
