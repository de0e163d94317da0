package vault

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const schemaVersion = 1

var schema = []string{
	`PRAGMA busy_timeout = 5000`,
	`CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value BLOB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS entries (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE COLLATE NOCASE,
		label      TEXT NOT NULL DEFAULT '',
		issuer     TEXT NOT NULL DEFAULT '',
		secret     BLOB NOT NULL,
		period     INTEGER NOT NULL DEFAULT 0,
		digits     INTEGER NOT NULL DEFAULT 0,
		algorithm  TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate vault: %w", err)
		}
	}

	var version int
	err := db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("vault schema version %d is newer than supported %d", version, schemaVersion)
	}
	if version < schemaVersion {
		if _, err := db.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion)); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
	}

	return nil
}

// unlock derives the vault key. On first use it creates the salt and the
// sealed check value; afterwards the check value must open with the derived
// key.
func unlock(ctx context.Context, db *sql.DB, passphrase []byte) (*sealer, error) {
	salt, err := readMeta(ctx, db, "salt")
	if errors.Is(err, sql.ErrNoRows) {
		return initialize(ctx, db, passphrase)
	}
	if err != nil {
		return nil, err
	}

	s, err := newSealer(passphrase, salt)
	if err != nil {
		return nil, err
	}

	check, err := readMeta(ctx, db, "check")
	if err != nil {
		s.wipe()
		return nil, fmt.Errorf("read vault check value: %w", err)
	}

	plain, err := s.open(check, "check")
	if err != nil || string(plain) != checkPlaintext {
		s.wipe()
		return nil, ErrLocked
	}

	return s, nil
}

func initialize(ctx context.Context, db *sql.DB, passphrase []byte) (*sealer, error) {
	salt, err := newSalt()
	if err != nil {
		return nil, err
	}

	s, err := newSealer(passphrase, salt)
	if err != nil {
		return nil, err
	}

	check, err := s.seal([]byte(checkPlaintext), "check")
	if err != nil {
		s.wipe()
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		s.wipe()
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	for key, value := range map[string][]byte{"salt": salt, "check": check} {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`, key, value); err != nil {
			_ = tx.Rollback()
			s.wipe()
			return nil, fmt.Errorf("initialize vault: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		s.wipe()
		return nil, fmt.Errorf("initialize vault: %w", err)
	}

	return s, nil
}

func readMeta(ctx context.Context, db *sql.DB, key string) ([]byte, error) {
	var value []byte
	err := db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("read vault %s: %w", key, err)
	}
	return value, nil
}
