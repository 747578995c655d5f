package service

import (
	"context"
	"time"

	"github.com/vibast-solutions/ms-go-transactions/app/bi"
)

// RunExpirePendingBatch aborts transactions stuck in pending past the
// configured timeout, typically challenges the cardholder abandoned or
// postbacks the biller never delivered.
func (s *TransactionService) RunExpirePendingBatch(ctx context.Context) error {
	now := time.Now().UTC()
	cutoff := now.Add(-s.transactionsCfg.PendingTimeout)
	items, err := s.transactionRepo.ListStalePending(ctx, cutoff, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, transaction := range items {
		if transaction == nil {
			continue
		}
		if err := transaction.Abort(now); err != nil {
			continue
		}
		if err := s.transactionRepo.Update(ctx, transaction); err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}
		s.biLogger.Write(bi.Event{
			Type:          "transaction_expired",
			TransactionID: transaction.ID(),
			SiteID:        transaction.SiteID(),
			BillerName:    transaction.BillerName(),
			Status:        string(transaction.Status()),
		})
	}

	return firstErr
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
