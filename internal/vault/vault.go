// Package vault keeps TOTP entries in a local SQLite database with every
// secret sealed under a passphrase-derived key.
package vault

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/otpdeck/otpdeck/internal/otpauth"
	"github.com/otpdeck/otpdeck/internal/secure"
	"github.com/otpdeck/otpdeck/internal/totp"
)

var (
	// ErrNotFound is returned when no entry has the requested name
	ErrNotFound = errors.New("vault: entry not found")
	// ErrDuplicate is returned when an entry name is already taken
	ErrDuplicate = errors.New("vault: entry already exists")
	// ErrInvalidEntry is returned when an entry fails validation
	ErrInvalidEntry = errors.New("vault: invalid entry")
	// ErrLocked is returned when the passphrase does not open the vault
	ErrLocked = errors.New("vault: wrong passphrase")
	// ErrNoPassphrase is returned when opening without a passphrase
	ErrNoPassphrase = errors.New("vault: passphrase required")
)

// checkPlaintext is sealed at creation so a wrong passphrase is detected on
// open rather than on the first entry read
const checkPlaintext = "otpdeck vault"

// Entry is a stored TOTP secret with its display metadata
type Entry struct {
	ID        string
	Name      string `validate:"required,max=100"`
	Label     string `validate:"max=255"`
	Issuer    string `validate:"max=255"`
	Secret    string `validate:"required"`
	Period    uint
	Digits    int            `validate:"omitempty,min=6,max=8"`
	Algorithm totp.Algorithm `validate:"omitempty,oneof=SHA1 SHA256 SHA512"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Options returns the generation options for the entry
func (e Entry) Options() totp.Options {
	opts := totp.DefaultOptions()
	if e.Period != 0 {
		opts.Period = e.Period
	}
	if e.Digits != 0 {
		opts.Digits = e.Digits
	}
	if e.Algorithm != "" {
		opts.Algorithm = e.Algorithm
	}
	return opts
}

// Key returns the entry as a provisioning key, for QR export and backups
func (e Entry) Key() *otpauth.Key {
	key := &otpauth.Key{
		Type:      "totp",
		Label:     e.Label,
		Secret:    e.Secret,
		Issuer:    e.Issuer,
		Algorithm: e.Algorithm,
		Digits:    e.Digits,
		Period:    e.Period,
	}
	if key.Label == "" {
		key.Label = e.Name
	}
	return key
}

// EntryFromKey builds an entry from a parsed provisioning URI. An empty name
// falls back to the URI label.
func EntryFromKey(name string, key *otpauth.Key) Entry {
	if name == "" {
		name = key.Label
	}
	return Entry{
		Name:      name,
		Label:     key.Label,
		Issuer:    key.Issuer,
		Secret:    key.Secret,
		Period:    key.Period,
		Digits:    key.Digits,
		Algorithm: key.Algorithm,
	}
}

// Vault is a sealed entry store. It is safe for concurrent use.
type Vault struct {
	db       *sql.DB
	sealer   *sealer
	validate *validator.Validate
	now      func() time.Time
}

// Open opens or creates the vault at path. A new vault is sealed with
// passphrase; an existing one must be opened with the same passphrase or
// Open fails with ErrLocked.
func Open(ctx context.Context, path string, passphrase []byte) (*Vault, error) {
	if len(passphrase) == 0 {
		return nil, ErrNoPassphrase
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}

	// SQLite serialises writers; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open vault %s: %w", path, err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s, err := unlock(ctx, db, passphrase)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	slog.DebugContext(ctx, "vault opened", "path", path)

	return &Vault{
		db:       db,
		sealer:   s,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}, nil
}

// Close wipes the derived key and closes the database
func (v *Vault) Close() error {
	if v == nil || v.db == nil {
		return nil
	}
	v.sealer.wipe()
	return v.db.Close()
}

// Add stores a new entry. The secret is normalized and must be able to
// produce a code with the entry's options.
func (v *Vault) Add(ctx context.Context, e Entry) (Entry, error) {
	e.Name = strings.TrimSpace(e.Name)
	if err := v.validate.StructCtx(ctx, e); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	secret, err := v.checkSecret(e.Secret, e.Options())
	if err != nil {
		return Entry{}, err
	}

	now := v.now().UTC().Truncate(time.Second)
	e.ID = uuid.NewString()
	e.Secret = secret
	e.CreatedAt = now
	e.UpdatedAt = now

	sealed, err := v.sealSecret(e.Secret, e.ID)
	if err != nil {
		return Entry{}, err
	}

	err = v.withTx(ctx, func(tx *sql.Tx) error {
		if err := ensureNameFree(ctx, tx, e.Name); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `INSERT INTO entries
			(id, name, label, issuer, secret, period, digits, algorithm, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.Name, e.Label, e.Issuer, sealed, e.Period, e.Digits, string(e.Algorithm),
			e.CreatedAt.Unix(), e.UpdatedAt.Unix())
		if err != nil {
			return fmt.Errorf("insert entry %q: %w", e.Name, err)
		}
		return nil
	})
	if err != nil {
		return Entry{}, err
	}

	slog.DebugContext(ctx, "vault entry added", "id", e.ID, "name", e.Name)
	return e, nil
}

// Get returns the entry with the given name, with its secret opened
func (v *Vault) Get(ctx context.Context, name string) (Entry, error) {
	row := v.db.QueryRowContext(ctx, selectEntries+` WHERE name = ?`, strings.TrimSpace(name))

	e, err := v.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

// List returns every entry ordered by name
func (v *Vault) List(ctx context.Context) ([]Entry, error) {
	rows, err := v.db.QueryContext(ctx, selectEntries+` ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := v.scan(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	return entries, nil
}

// Rename changes an entry's name
func (v *Vault) Rename(ctx context.Context, oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if err := v.validate.VarCtx(ctx, newName, "required,max=100"); err != nil {
		return fmt.Errorf("%w: name: %v", ErrInvalidEntry, err)
	}

	return v.withTx(ctx, func(tx *sql.Tx) error {
		if !strings.EqualFold(strings.TrimSpace(oldName), newName) {
			if err := ensureNameFree(ctx, tx, newName); err != nil {
				return err
			}
		}

		res, err := tx.ExecContext(ctx, `UPDATE entries SET name = ?, updated_at = ? WHERE name = ?`,
			newName, v.now().UTC().Unix(), strings.TrimSpace(oldName))
		if err != nil {
			return fmt.Errorf("rename entry %q: %w", oldName, err)
		}
		return expectOneRow(res, oldName)
	})
}

// UpdateSecret replaces an entry's secret
func (v *Vault) UpdateSecret(ctx context.Context, name, secret string) error {
	e, err := v.Get(ctx, name)
	if err != nil {
		return err
	}

	normalized, err := v.checkSecret(secret, e.Options())
	if err != nil {
		return err
	}

	sealed, err := v.sealSecret(normalized, e.ID)
	if err != nil {
		return err
	}

	res, err := v.db.ExecContext(ctx, `UPDATE entries SET secret = ?, updated_at = ? WHERE id = ?`,
		sealed, v.now().UTC().Unix(), e.ID)
	if err != nil {
		return fmt.Errorf("update secret of %q: %w", name, err)
	}
	return expectOneRow(res, name)
}

// Delete removes an entry
func (v *Vault) Delete(ctx context.Context, name string) error {
	res, err := v.db.ExecContext(ctx, `DELETE FROM entries WHERE name = ?`, strings.TrimSpace(name))
	if err != nil {
		return fmt.Errorf("delete entry %q: %w", name, err)
	}
	return expectOneRow(res, name)
}

func (v *Vault) checkSecret(secret string, opts totp.Options) (string, error) {
	normalized, err := totp.ValidateAndNormalizeSecret(secret)
	if err != nil {
		return "", err
	}

	if _, err := totp.GenerateCustom(normalized, v.now(), opts); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	return normalized, nil
}

func (v *Vault) sealSecret(secret, id string) ([]byte, error) {
	plain := []byte(secret)
	defer secure.SecureZeroBytes(plain)

	sealed, err := v.sealer.seal(plain, id)
	if err != nil {
		return nil, err
	}
	return sealed, nil
}

const selectEntries = `SELECT id, name, label, issuer, secret, period, digits, algorithm, created_at, updated_at FROM entries`

type scanner interface {
	Scan(dest ...any) error
}

func (v *Vault) scan(row scanner) (Entry, error) {
	var (
		e                Entry
		sealed           []byte
		algorithm        string
		created, updated int64
	)

	if err := row.Scan(&e.ID, &e.Name, &e.Label, &e.Issuer, &sealed, &e.Period, &e.Digits, &algorithm, &created, &updated); err != nil {
		return Entry{}, err
	}

	plain, err := v.sealer.open(sealed, e.ID)
	if err != nil {
		return Entry{}, fmt.Errorf("entry %q: %w", e.Name, err)
	}
	e.Secret = string(plain)
	secure.SecureZeroBytes(plain)

	e.Algorithm = totp.Algorithm(algorithm)
	e.CreatedAt = time.Unix(created, 0).UTC()
	e.UpdatedAt = time.Unix(updated, 0).UTC()

	return e, nil
}

func (v *Vault) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func ensureNameFree(ctx context.Context, tx *sql.Tx, name string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM entries WHERE name = ?`, name).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return fmt.Errorf("check entry name %q: %w", name, err)
	default:
		return fmt.Errorf("%w: %q", ErrDuplicate, name)
	}
}

func expectOneRow(res sql.Result, name string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return nil
}
