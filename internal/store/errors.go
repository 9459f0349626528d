package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"chinook-go-api/internal/apperror"
)

var ErrStaleEmployee = errors.New("employee was modified concurrently")

func mapDatabaseError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			return apperror.New(apperror.CodeConflict, "resource with the same unique attributes already exists")
		}
		if pgErr.Code == "23503" {
			return apperror.New(apperror.CodeValidation, "invalid foreign key reference")
		}
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return apperror.New(apperror.CodeConflict, "resource with the same unique attributes already exists")
		case sqlite3.ErrConstraintForeignKey:
			return apperror.New(apperror.CodeValidation, "invalid foreign key reference")
		}
	}

	return err
}
