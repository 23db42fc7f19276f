// Package broadcast maintains the session_id -> outbound_queue mapping and
// fans trade events out to registered sessions (spec.md §4.8).
package broadcast

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// TradeTopic is the internal pub/sub subject trades are published to after
// persistence (spec.md §4.7/§4.8 data flow).
const TradeTopic = "tradsys.trades"

// TradeEvent is the outbound broadcast event (spec.md §6.1 "trade" event).
type TradeEvent struct {
	BidID     string `json:"bid_id"`
	AskID     string `json:"ask_id"`
	Symbol    string `json:"symbol"`
	Price     string `json:"price"`
	Quantity  string `json:"quantity"`
	Timestamp string `json:"timestamp"`
}

// Broadcaster owns session_id -> outbound_queue and offers add/remove/send
// primitives. Queues are the bounded FIFO channels the sessions register
// (256 slots each in internal/ws); a send that finds a queue full or missing
// results in implicit removal (spec.md §4.8).
type Broadcaster struct {
	mu      sync.RWMutex
	queues  map[string]chan []byte
	logger  *zap.Logger
	pub     message.Publisher
	sub     message.Subscriber
	cancel  context.CancelFunc
}

// NewBroadcaster wires a Watermill/NATS publisher+subscriber pair (grounded
// on the teacher's internal/architecture/fx event-bus adapters) that feeds
// this broadcaster's fan-out from the trade topic.
func NewBroadcaster(natsURL string, logger *zap.Logger) (*Broadcaster, error) {
	if natsURL == "" {
		natsURL = natsgo.DefaultURL
	}

	wmLogger := watermill.NewStdLogger(false, false)

	publisher, err := nats.NewPublisher(nats.PublisherConfig{
		URL:       natsURL,
		Marshaler: nats.GobMarshaler{},
	}, wmLogger)
	if err != nil {
		return nil, err
	}

	subscriber, err := nats.NewSubscriber(nats.SubscriberConfig{
		URL:         natsURL,
		Unmarshaler: nats.GobMarshaler{},
		QueueGroup:  "tradsys-broadcast",
	}, wmLogger)
	if err != nil {
		return nil, err
	}

	return &Broadcaster{
		queues: make(map[string]chan []byte),
		logger: logger,
		pub:    publisher,
		sub:    subscriber,
	}, nil
}

// Start subscribes to TradeTopic and fans every received trade out to all
// registered sessions.
func (b *Broadcaster) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	messages, err := b.sub.Subscribe(ctx, TradeTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			var evt TradeEvent
			if err := json.Unmarshal(msg.Payload, &evt); err != nil {
				b.logger.Warn("failed to decode trade event", zap.Error(err))
				msg.Ack()
				continue
			}
			b.Broadcast(map[string]interface{}{
				"type":      "trade",
				"bid_id":    evt.BidID,
				"ask_id":    evt.AskID,
				"symbol":    evt.Symbol,
				"price":     evt.Price,
				"quantity":  evt.Quantity,
				"timestamp": evt.Timestamp,
			})
			msg.Ack()
		}
	}()

	return nil
}

// Stop cancels the subscription and closes the underlying pub/sub.
func (b *Broadcaster) Stop() error {
	if b.cancel != nil {
		b.cancel()
	}
	if err := b.pub.Close(); err != nil {
		return err
	}
	return b.sub.Close()
}

// Publish hands a trade event to the internal bus (called by the matching
// service after a trade batch is durably persisted, spec.md §4.7).
func (b *Broadcaster) Publish(evt TradeEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return b.pub.Publish(TradeTopic, message.NewMessage(watermill.NewUUID(), payload))
}

// AddClient registers sessionID's outbound queue.
func (b *Broadcaster) AddClient(sessionID string, queue chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queues[sessionID] = queue
}

// RemoveClient deregisters sessionID, if present.
func (b *Broadcaster) RemoveClient(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.queues, sessionID)
}

// SendTo enqueues msg for sessionID. A full or missing queue implicitly
// removes the session (spec.md §4.8: "a slow or closed queue is detected on
// send and results in implicit remove_client").
func (b *Broadcaster) SendTo(sessionID string, msg []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	queue, ok := b.queues[sessionID]
	if !ok {
		return
	}

	select {
	case queue <- msg:
	default:
		b.logger.Warn("dropping session with full outbound queue", zap.String("session_id", sessionID))
		delete(b.queues, sessionID)
	}
}

// Broadcast marshals event and enqueues it for every registered session.
func (b *Broadcaster) Broadcast(event map[string]interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("failed to marshal broadcast event", zap.Error(err))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for sessionID, queue := range b.queues {
		select {
		case queue <- payload:
		default:
			b.logger.Warn("dropping session with full outbound queue", zap.String("session_id", sessionID))
			delete(b.queues, sessionID)
		}
	}
}
