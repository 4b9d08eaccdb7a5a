package calls

import "context"

// queueClient is the transport between HTTP handlers and turn workers. The
// memory implementation serves development; SQS serves production.
type queueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

type jobKind string

const (
	jobKindStart jobKind = "start"
	jobKindTurn  jobKind = "turn"
	jobKindEnd   jobKind = "end"
)

type queuePayload struct {
	ID    string       `json:"id"`
	Kind  jobKind      `json:"kind"`
	Start StartRequest `json:"start,omitempty"`
	Turn  TurnRequest  `json:"turn,omitempty"`
	// EndCallID is set for end jobs.
	EndCallID string `json:"end_call_id,omitempty"`
}
