package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-transactions/app/entity"
	"github.com/vibast-solutions/ms-go-transactions/app/service"
	"github.com/vibast-solutions/ms-go-transactions/app/types"
)

func TransactionToDto(item *entity.Transaction) *types.Transaction {
	if item == nil {
		return nil
	}

	charge := item.ChargeInformation()
	payment := item.PaymentInformation()

	dto := &types.Transaction{
		Id:                     item.ID(),
		Kind:                   string(item.Kind()),
		SiteId:                 item.SiteID(),
		BillerName:             item.BillerName(),
		PreviousTransactionId:  item.PreviousTransactionID(),
		Status:                 string(item.Status()),
		Amount:                 charge.Amount().Value(),
		Currency:               charge.Currency().Code(),
		PaymentType:            string(payment.Type()),
		CardNumberMasked:       payment.CardNumberMasked(),
		With3D:                 item.With3DS(),
		ThreedsVersion:         item.ThreeDSVersion(),
		BillerInteractionCount: item.Interactions().Len(),
		CreatedAt:              item.CreatedAt().Format(time.RFC3339),
		UpdatedAt:              item.UpdatedAt().Format(time.RFC3339),
	}

	if rebill := charge.Rebill(); rebill != nil {
		dto.Rebill = &types.Rebill{
			Amount:        rebill.Amount().Value(),
			FrequencyDays: rebill.FrequencyDays(),
			StartDays:     rebill.StartDays(),
		}
	}

	return dto
}

func ErrorClassificationToDto(classification *service.ErrorClassification) *types.ErrorClassification {
	if classification == nil {
		return nil
	}
	return &types.ErrorClassification{
		Groups:            classification.Groups,
		Errors:            classification.Errors,
		RecommendedAction: classification.RecommendedAction,
		MappingCriteria: types.MappingCriteria{
			BillerName: classification.MappingCriteria.BillerName,
			Code:       classification.MappingCriteria.Code,
		},
	}
}

func ResultToEnvelope(result *service.Result) *types.TransactionEnvelopeResponse {
	if result == nil {
		return nil
	}
	return &types.TransactionEnvelopeResponse{
		Transaction:         TransactionToDto(result.Transaction),
		ErrorClassification: ErrorClassificationToDto(result.ErrorClassification),
	}
}
