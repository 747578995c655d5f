package repository

import (
	"context"
	"database/sql"
	"strings"
)

// MappingCriteria selects the human-readable explanation for a decline or
// abort reason code.
type MappingCriteria struct {
	BillerName string
	Code       string
}

type DeclinedExtraData struct {
	Groups            string
	Errors            string
	RecommendedAction string
}

type DeclinedBillerResponseExtraDataRepository struct {
	db DBTX
}

func NewDeclinedBillerResponseExtraDataRepository(db DBTX) *DeclinedBillerResponseExtraDataRepository {
	return &DeclinedBillerResponseExtraDataRepository{db: db}
}

// Retrieve returns nil when no mapping exists; callers fall back to the
// default classification.
func (r *DeclinedBillerResponseExtraDataRepository) Retrieve(ctx context.Context, criteria MappingCriteria) (*DeclinedExtraData, error) {
	query := `
		SELECT ` + "`groups`" + `, errors, recommended_action
		FROM declined_biller_response_extra_data
		WHERE biller_name = ? AND code = ?
	`

	var item DeclinedExtraData
	err := r.db.QueryRowContext(ctx, query,
		strings.ToLower(strings.TrimSpace(criteria.BillerName)),
		strings.TrimSpace(criteria.Code),
	).Scan(&item.Groups, &item.Errors, &item.RecommendedAction)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}
