package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Notifier receives domain events that should reach a human: the advisor
// when a session is ready for pickup, accounting when an invoice settles or
// goes overdue. The log implementation is the default; a real channel
// (SMS, email) plugs in behind the same interface.
type Notifier interface {
	SessionReady(ctx context.Context, companyID int, sessionNumber string)
	InvoicePaid(ctx context.Context, companyID int, invoiceNumber string)
	InvoiceOverdue(ctx context.Context, companyID int, invoiceNumber string)
}

// LogNotifier writes every event to the structured log.
type LogNotifier struct {
	Log *logrus.Logger
}

func NewLogNotifier(log *logrus.Logger) *LogNotifier {
	return &LogNotifier{Log: log}
}

func (n *LogNotifier) SessionReady(ctx context.Context, companyID int, sessionNumber string) {
	n.Log.WithFields(logrus.Fields{
		"company_id": companyID,
		"session":    sessionNumber,
	}).Info("session ready for pickup")
}

func (n *LogNotifier) InvoicePaid(ctx context.Context, companyID int, invoiceNumber string) {
	n.Log.WithFields(logrus.Fields{
		"company_id": companyID,
		"invoice":    invoiceNumber,
	}).Info("invoice fully paid")
}

func (n *LogNotifier) InvoiceOverdue(ctx context.Context, companyID int, invoiceNumber string) {
	n.Log.WithFields(logrus.Fields{
		"company_id": companyID,
		"invoice":    invoiceNumber,
	}).Warn("invoice overdue")
}
