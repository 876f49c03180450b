package storage

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/Veraticus/bloomfi/internal/common"
)

// ErrImmutableTransaction is returned when something tries to rewrite the transaction log.
var ErrImmutableTransaction = errors.New("transactions are append-only")

// mapSQLiteError translates driver errors into the application's sentinels.
// Busy and locked errors become common.ErrConflict so callers may retry.
func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}

	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}

	switch sqliteErr.Code {
	case sqlite3.ErrBusy, sqlite3.ErrLocked:
		return fmt.Errorf("%w: %v", common.ErrConflict, err)
	case sqlite3.ErrConstraint:
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %v", common.ErrDuplicateEntry, err)
		case sqlite3.ErrConstraintCheck:
			return fmt.Errorf("%w: %v", common.ErrNegativeBalance, err)
		case sqlite3.ErrConstraintTrigger:
			return fmt.Errorf("%w: %v", ErrImmutableTransaction, err)
		}
	case sqlite3.ErrCorrupt, sqlite3.ErrNotADB:
		return fmt.Errorf("%w: %v", common.ErrDatabaseCorrupted, err)
	}
	return err
}
