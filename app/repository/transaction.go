package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-transactions/app/entity"
)

var (
	ErrTransactionNotFound      = errors.New("transaction not found")
	ErrTransactionAlreadyExists = errors.New("transaction already exists")
)

type TransactionRepository struct {
	db DBTX
}

func NewTransactionRepository(db DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Add(ctx context.Context, transaction *entity.Transaction) error {
	settingsJSON, err := serializeSettings(transaction.BillerChargeSettings())
	if err != nil {
		return err
	}

	charge := transaction.ChargeInformation()
	payment := transaction.PaymentInformation()

	var rebillAmount interface{}
	var rebillFrequency, rebillStart interface{}
	if rebill := charge.Rebill(); rebill != nil {
		rebillAmount = rebill.Amount().Value()
		rebillFrequency = rebill.FrequencyDays()
		rebillStart = rebill.StartDays()
	}

	query := `
		INSERT INTO transactions (
			id, kind, site_id, biller_name, previous_transaction_id, status,
			amount, currency, rebill_amount, rebill_frequency_days, rebill_start_days,
			payment_type, card_number_masked, expiration_month, expiration_year,
			card_hash, payment_method, account_owner,
			biller_charge_settings_json, with_threeds, threeds_version,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		transaction.ID(),
		string(transaction.Kind()),
		transaction.SiteID(),
		transaction.BillerName(),
		nullableStringValue(transaction.PreviousTransactionID()),
		string(transaction.Status()),
		charge.Amount().Value(),
		charge.Currency().Code(),
		rebillAmount,
		rebillFrequency,
		rebillStart,
		string(payment.Type()),
		nullableStringValue(payment.CardNumberMasked()),
		payment.ExpirationMonth(),
		payment.ExpirationYear(),
		nullableStringValue(payment.CardHash()),
		nullableStringValue(payment.PaymentMethod()),
		nullableStringValue(payment.AccountOwner()),
		settingsJSON,
		transaction.With3DS(),
		transaction.ThreeDSVersion(),
		transaction.CreatedAt(),
		transaction.UpdatedAt(),
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrTransactionAlreadyExists
		}
		return err
	}

	return r.appendInteractions(ctx, transaction, 0)
}

// Update persists mutable state only; identity and charge columns never
// change after Add. New interaction-log entries are appended past the count
// already stored.
func (r *TransactionRepository) Update(ctx context.Context, transaction *entity.Transaction) error {
	query := `
		UPDATE transactions SET
			status = ?,
			with_threeds = ?,
			threeds_version = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		string(transaction.Status()),
		transaction.With3DS(),
		transaction.ThreeDSVersion(),
		transaction.UpdatedAt(),
		transaction.ID(),
	)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err != nil {
		return err
	} else if affected == 0 {
		if exists, existsErr := r.exists(ctx, transaction.ID()); existsErr != nil {
			return existsErr
		} else if !exists {
			return ErrTransactionNotFound
		}
	}

	persisted, err := r.interactionCount(ctx, transaction.ID())
	if err != nil {
		return err
	}
	return r.appendInteractions(ctx, transaction, persisted)
}

func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*entity.Transaction, error) {
	query := `
		SELECT id, kind, site_id, biller_name, previous_transaction_id, status,
			amount, currency, rebill_amount, rebill_frequency_days, rebill_start_days,
			payment_type, card_number_masked, expiration_month, expiration_year,
			card_hash, payment_method, account_owner,
			biller_charge_settings_json, with_threeds, threeds_version,
			created_at, updated_at
		FROM transactions
		WHERE id = ?
	`

	row := r.db.QueryRowContext(ctx, query, id)

	var (
		txID, kind, siteID, billerName, status, currency, paymentType string
		previousID, cardNumberMasked, cardHash, paymentMethod         sql.NullString
		accountOwner, settingsJSON                                    sql.NullString
		amount                                                        float64
		rebillAmount                                                  sql.NullFloat64
		rebillFrequency, rebillStart                                  sql.NullInt32
		expirationMonth, expirationYear                               int32
		withThreeDS                                                   bool
		threeDSVersion                                                int32
		createdAt, updatedAt                                          time.Time
	)

	err := row.Scan(
		&txID, &kind, &siteID, &billerName, &previousID, &status,
		&amount, &currency, &rebillAmount, &rebillFrequency, &rebillStart,
		&paymentType, &cardNumberMasked, &expirationMonth, &expirationYear,
		&cardHash, &paymentMethod, &accountOwner,
		&settingsJSON, &withThreeDS, &threeDSVersion,
		&createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	settings, err := parseSettings(stringFromNull(settingsJSON))
	if err != nil {
		return nil, err
	}

	amountValue, err := entity.NewAmount(amount)
	if err != nil {
		return nil, err
	}
	currencyValue, err := entity.NewCurrency(currency)
	if err != nil {
		return nil, err
	}

	var rebill *entity.Rebill
	if rebillAmount.Valid && rebillFrequency.Valid {
		rebillAmountValue, err := entity.NewAmount(rebillAmount.Float64)
		if err != nil {
			return nil, err
		}
		rebillValue, err := entity.NewRebill(rebillAmountValue, rebillFrequency.Int32, rebillStart.Int32)
		if err != nil {
			return nil, err
		}
		rebill = &rebillValue
	}

	interactions, err := r.loadInteractions(ctx, txID)
	if err != nil {
		return nil, err
	}

	return entity.Rehydrate(
		txID,
		entity.TransactionKind(kind),
		siteID,
		billerName,
		stringFromNull(previousID),
		entity.Status(status),
		entity.NewChargeInformation(amountValue, currencyValue, rebill),
		entity.RehydratePaymentInformation(
			entity.PaymentType(paymentType),
			stringFromNull(cardNumberMasked),
			expirationMonth,
			expirationYear,
			stringFromNull(cardHash),
			stringFromNull(paymentMethod),
			stringFromNull(accountOwner),
		),
		settings,
		interactions,
		withThreeDS,
		threeDSVersion,
		createdAt,
		updatedAt,
	), nil
}

// ListStalePending returns transactions stuck in pending past the cutoff,
// oldest first. Used by the expire job to abort abandoned 3DS challenges.
func (r *TransactionRepository) ListStalePending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM transactions WHERE status = ? AND updated_at <= ? ORDER BY updated_at ASC LIMIT ?`,
		string(entity.StatusPending),
		cutoff,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items := make([]*entity.Transaction, 0, len(ids))
	for _, id := range ids {
		item, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if item != nil {
			items = append(items, item)
		}
	}
	return items, nil
}

func (r *TransactionRepository) exists(ctx context.Context, id string) (bool, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE id = ?`, id).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *TransactionRepository) interactionCount(ctx context.Context, transactionID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM biller_interactions WHERE transaction_id = ?`,
		transactionID,
	).Scan(&count)
	return count, err
}

func (r *TransactionRepository) appendInteractions(ctx context.Context, transaction *entity.Transaction, from int) error {
	items := transaction.Interactions().Items()
	for position := from; position < len(items); position++ {
		item := items[position]
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO biller_interactions (transaction_id, position, type, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
			transaction.ID(),
			position,
			string(item.Type()),
			item.Payload(),
			item.CreatedAt(),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *TransactionRepository) loadInteractions(ctx context.Context, transactionID string) (entity.BillerInteractionCollection, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT type, payload, created_at FROM biller_interactions WHERE transaction_id = ? ORDER BY position ASC`,
		transactionID,
	)
	if err != nil {
		return entity.BillerInteractionCollection{}, err
	}
	defer rows.Close()

	collection := entity.NewBillerInteractionCollection()
	for rows.Next() {
		var (
			interactionType string
			payload         string
			createdAt       time.Time
		)
		if err := rows.Scan(&interactionType, &payload, &createdAt); err != nil {
			return entity.BillerInteractionCollection{}, err
		}
		collection.Append(entity.NewBillerInteraction(entity.BillerInteractionType(interactionType), payload, createdAt))
	}
	return collection, rows.Err()
}
