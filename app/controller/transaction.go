package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-transactions/app/entity"
	"github.com/vibast-solutions/ms-go-transactions/app/factory"
	"github.com/vibast-solutions/ms-go-transactions/app/mapper"
	"github.com/vibast-solutions/ms-go-transactions/app/service"
	"github.com/vibast-solutions/ms-go-transactions/app/types"
)

type TransactionController struct {
	transactionService *service.TransactionService
	healthChecker      *service.HealthChecker
	logger             logrus.FieldLogger
}

func NewTransactionController(transactionService *service.TransactionService, healthChecker *service.HealthChecker) *TransactionController {
	return &TransactionController{
		transactionService: transactionService,
		healthChecker:      healthChecker,
		logger:             factory.NewModuleLogger("transactions-controller"),
	}
}

func (c *TransactionController) Health(ctx echo.Context) error {
	status := c.healthChecker.Check()
	return ctx.JSON(http.StatusOK, &types.HealthResponse{
		Status:       status.Status,
		OpenCircuits: status.OpenCircuits,
	})
}

func (c *TransactionController) SaleNewCreditCard(ctx echo.Context) error {
	req, err := types.NewNewSaleRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.transactionService.SaleNewCreditCard(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "Sale with new credit card failed")
	}

	return ctx.JSON(http.StatusCreated, mapper.ResultToEnvelope(result))
}

func (c *TransactionController) SaleExistingCreditCard(ctx echo.Context) error {
	req, err := types.NewExistingCardSaleRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.transactionService.SaleExistingCreditCard(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "Sale with existing credit card failed")
	}

	return ctx.JSON(http.StatusCreated, mapper.ResultToEnvelope(result))
}

func (c *TransactionController) SaleOtherPayment(ctx echo.Context) error {
	req, err := types.NewOtherPaymentSaleRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.transactionService.SaleOtherPayment(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "Sale with other payment type failed")
	}

	return ctx.JSON(http.StatusCreated, mapper.ResultToEnvelope(result))
}

func (c *TransactionController) GetTransaction(ctx echo.Context) error {
	req, err := types.NewGetTransactionRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.transactionService.GetTransaction(ctx.Request().Context(), req.GetTransactionId())
	if err != nil {
		if errors.Is(err, service.ErrTransactionNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "transaction not found")
		}
		c.logger.WithError(err).Error("Get transaction failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.TransactionEnvelopeResponse{Transaction: mapper.TransactionToDto(item)})
}

func (c *TransactionController) AbortTransaction(ctx echo.Context) error {
	req, err := types.NewAbortTransactionRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.transactionService.Abort(ctx.Request().Context(), req.GetTransactionId())
	if err != nil {
		return c.writeServiceError(ctx, err, "Abort transaction failed")
	}

	return ctx.JSON(http.StatusOK, mapper.ResultToEnvelope(result))
}

func (c *TransactionController) AddBillerInteraction(ctx echo.Context) error {
	req, err := types.NewAddBillerInteractionRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.transactionService.AddBillerInteraction(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "Add biller interaction failed")
	}

	return ctx.JSON(http.StatusOK, mapper.ResultToEnvelope(result))
}

func (c *TransactionController) RebillPostback(ctx echo.Context) error {
	req, err := types.NewRebillPostbackRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.transactionService.RebillPostback(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "Rebill postback failed")
	}

	return ctx.JSON(http.StatusCreated, mapper.ResultToEnvelope(result))
}

func (c *TransactionController) CancelRebill(ctx echo.Context) error {
	req, err := types.NewCancelRebillRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.transactionService.CancelRebill(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "Cancel rebill failed")
	}

	return ctx.JSON(http.StatusCreated, mapper.ResultToEnvelope(result))
}

func (c *TransactionController) UpdateRebill(ctx echo.Context) error {
	req, err := types.NewUpdateRebillRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.transactionService.UpdateRebill(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "Update rebill failed")
	}

	return ctx.JSON(http.StatusCreated, mapper.ResultToEnvelope(result))
}

func (c *TransactionController) CompleteThreeD(ctx echo.Context) error {
	req, err := types.NewCompleteThreeDRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.transactionService.CompleteThreeD(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "Complete 3DS failed")
	}

	return ctx.JSON(http.StatusOK, mapper.ResultToEnvelope(result))
}

func (c *TransactionController) SimplifiedCompleteThreeD(ctx echo.Context) error {
	req, err := types.NewSimplifiedCompleteThreeDRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.transactionService.SimplifiedCompleteThreeD(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "Simplified complete 3DS failed")
	}

	return ctx.JSON(http.StatusOK, mapper.ResultToEnvelope(result))
}

func (c *TransactionController) Lookup(ctx echo.Context) error {
	req, err := types.NewLookupRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.transactionService.Lookup(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "3DS lookup failed")
	}

	return ctx.JSON(http.StatusOK, mapper.ResultToEnvelope(result))
}

func (c *TransactionController) RetrieveQrCode(ctx echo.Context) error {
	req, err := types.NewGetTransactionRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	qrCode, err := c.transactionService.RetrieveQrCode(ctx.Request().Context(), req.GetTransactionId())
	if err != nil {
		return c.writeServiceError(ctx, err, "Retrieve qr code failed")
	}

	return ctx.JSON(http.StatusOK, &types.QrCodeResponse{
		EncryptedPayload: qrCode.EncryptedPayload,
		ExpiresInSeconds: qrCode.ExpiresInSeconds,
	})
}

func (c *TransactionController) writeServiceError(ctx echo.Context, err error, logMessage string) error {
	switch {
	case errors.Is(err, service.ErrInvalidCommand),
		errors.Is(err, service.ErrInvalidBillerName),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrRebillNotSet),
		errors.Is(err, service.ErrPreviousTransactionShouldBeApproved),
		errors.Is(err, entity.ErrMissingChargeInformation),
		errors.Is(err, entity.ErrInvalidChargeInformation),
		errors.Is(err, entity.ErrInvalidPaymentInformation):
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrTransactionNotFound),
		errors.Is(err, service.ErrPreviousTransactionNotFound):
		return c.writeError(ctx, http.StatusNotFound, "transaction not found")
	case errors.Is(err, entity.ErrTransactionAlreadyProcessed),
		errors.Is(err, entity.ErrPostbackAlreadyProcessed),
		errors.Is(err, entity.ErrIllegalStateTransition):
		return c.writeError(ctx, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrTransactionCreation),
		errors.Is(err, service.ErrTransactionLookup):
		return c.writeError(ctx, http.StatusUnprocessableEntity, err.Error())
	default:
		c.logger.WithError(err).Error(logMessage)
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
}

func (c *TransactionController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
