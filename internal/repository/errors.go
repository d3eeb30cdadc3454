package repository

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/timmy/folio/internal/domain"
	"gorm.io/gorm"
)

// pgInsufficientPrivilege is the SQLSTATE raised by row-level security and GRANT denials.
const pgInsufficientPrivilege = "42501"

// classifyError wraps driver errors with the matching domain sentinel so callers
// can tell permission and availability failures apart.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgInsufficientPrivilege {
			return fmt.Errorf("%w: %s", domain.ErrPermissionDenied, pgErr.Message)
		}
		return err
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrPerm, sqlite3.ErrReadonly, sqlite3.ErrAuth:
			return fmt.Errorf("%w: %v", domain.ErrPermissionDenied, err)
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrCantOpen:
			return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
		}
		return err
	}

	if errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}

	return err
}
