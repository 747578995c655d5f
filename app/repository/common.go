package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func isDuplicateEntryError(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

func nullableStringValue(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}

func stringFromNull(v sql.NullString) string {
	if !v.Valid {
		return ""
	}
	return v.String
}

func serializeSettings(settings map[string]string) (string, error) {
	if settings == nil {
		settings = map[string]string{}
	}
	payload, err := json.Marshal(settings)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func parseSettings(raw string) (map[string]string, error) {
	if raw == "" {
		return map[string]string{}, nil
	}
	var settings map[string]string
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return nil, err
	}
	if settings == nil {
		settings = map[string]string{}
	}
	return settings, nil
}
