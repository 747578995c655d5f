package service

import (
	"context"
	"errors"

	"github.com/vibast-solutions/ms-go-transactions/app/biller"
)

// RetrieveQrCode fetches the payment QR code for crypto billers. Card billers
// do not support the operation.
func (s *TransactionService) RetrieveQrCode(ctx context.Context, transactionID string) (*biller.QrCode, error) {
	transaction, err := s.transactionRepo.FindByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if transaction == nil {
		return nil, ErrTransactionNotFound
	}

	billerClient, err := s.billers.Get(transaction.BillerName())
	if err != nil {
		return nil, ErrInvalidBillerName
	}

	charge := transaction.ChargeInformation()
	qrCode, err := billerClient.RetrieveQrCode(ctx, &biller.QrCodeInput{
		TransactionID:    transaction.ID(),
		Amount:           charge.Amount().Value(),
		Currency:         charge.Currency().Code(),
		MerchantSettings: transaction.BillerChargeSettings(),
	})
	if err != nil {
		if errors.Is(err, biller.ErrOperationNotSupported) {
			return nil, ErrInvalidBillerName
		}
		return nil, err
	}
	return qrCode, nil
}
