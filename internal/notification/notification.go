package notification

import (
	"context"
	"log/slog"
)

// Template kinds for completed-transaction notifications, one per operation
// the ledger exposes.
const (
	KindDeposit          = "deposit"
	KindWithdrawal       = "withdrawal"
	KindTransferSent     = "transfer_sent"
	KindTransferReceived = "transfer_received"
	KindLoanRequested    = "loan_requested"
	KindLoanApproved     = "loan_approved"
	KindLoanPaid         = "loan_paid"
)

// Message describes a notification payload. Destination is an opaque user
// reference; the delivery channel is the gateway's concern.
type Message struct {
	Kind        string
	Destination string
	Amount      int64
	Body        string
}

// Notifier delivers completed-transaction events to downstream systems.
// Dispatch is fire-and-forget: callers invoke it after commit and must not
// roll back on failure.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"kind", message.Kind,
		"destination", message.Destination,
		"amount", message.Amount,
		"body", message.Body,
	)
	return nil
}
