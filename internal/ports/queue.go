package ports

import "context"

// Message is one queued outcome envelope plus the handle needed to ack it.
type Message struct {
	ID            string
	Body          []byte
	ReceiptHandle string
}

// Queue is the games queue as seen by the consumer loop. Delivery is
// at-least-once; exactly-once semantics come from the store, not from here.
type Queue interface {
	// Receive fetches up to a batch of pending messages, waiting at most the
	// configured long-poll time. An empty slice is a normal outcome.
	Receive(ctx context.Context) ([]Message, error)

	// Delete acknowledges a handled message so it is not redelivered.
	Delete(ctx context.Context, msg Message) error
}
