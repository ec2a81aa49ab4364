package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

// SQLSTATE codes the repositories translate.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeNumericOutOfRange   = "22003"
	codeInvalidTextRepr     = "22P02"
)

// MapError translates driver errors into the shared taxonomy. Errors already carrying a
// taxonomy kind pass through untouched; unknown failures become ErrStorage without driver detail.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s already exists", shared.ErrConflict, constraintSubject(pgErr))
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: referenced %s does not exist", shared.ErrNotFound, constraintSubject(pgErr))
		case codeNumericOutOfRange:
			return shared.Validationf("numeric value out of range")
		case codeInvalidTextRepr:
			return shared.Validationf("invalid value representation")
		}
		return shared.ErrStorage
	}
	if shared.Kind(err) != shared.ErrStorage {
		return err
	}
	return shared.ErrStorage
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

func constraintSubject(pgErr *pgconn.PgError) string {
	if pgErr.TableName != "" {
		return pgErr.TableName + " record"
	}
	return "record"
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation
}
