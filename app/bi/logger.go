package bi

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-transactions/app/factory"
)

// Event is one business-intelligence record describing the outcome of a
// transaction operation.
type Event struct {
	Type           string
	TransactionID  string
	SiteID         string
	BillerName     string
	Status         string
	Code           string
	Reason         string
	ThreeDSVersion int32
	OccurredAt     time.Time
}

// Logger writes BI events as structured log lines. Write is fire-and-forget:
// it never returns an error and must never block a business operation.
type Logger struct {
	logger logrus.FieldLogger
}

func NewLogger() *Logger {
	return &Logger{logger: factory.NewModuleLogger("bi-events")}
}

func (l *Logger) Write(event Event) {
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	l.logger.WithFields(logrus.Fields{
		"event_type":      event.Type,
		"transaction_id":  event.TransactionID,
		"site_id":         event.SiteID,
		"biller":          event.BillerName,
		"status":          event.Status,
		"code":            event.Code,
		"reason":          event.Reason,
		"threeds_version": event.ThreeDSVersion,
		"occurred_at":     occurredAt.Format(time.RFC3339),
	}).Info("bi_event")
}
