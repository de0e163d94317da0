package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/otpdeck/otpdeck/internal/clipboard"
	"github.com/otpdeck/otpdeck/internal/config"
	"github.com/otpdeck/otpdeck/internal/constants"
	"github.com/otpdeck/otpdeck/internal/display"
	"github.com/otpdeck/otpdeck/internal/logging"
	"github.com/otpdeck/otpdeck/internal/otpauth"
	"github.com/otpdeck/otpdeck/internal/qrcode"
	"github.com/otpdeck/otpdeck/internal/secure"
	"github.com/otpdeck/otpdeck/internal/setup"
	"github.com/otpdeck/otpdeck/internal/totp"
	"github.com/otpdeck/otpdeck/internal/vault"
)

// Store is the subset of the vault the commands use
type Store interface {
	Add(ctx context.Context, e vault.Entry) (vault.Entry, error)
	Get(ctx context.Context, name string) (vault.Entry, error)
	List(ctx context.Context) ([]vault.Entry, error)
	Rename(ctx context.Context, oldName, newName string) error
	UpdateSecret(ctx context.Context, name, secret string) error
	Delete(ctx context.Context, name string) error
	Close() error
}

// StoreOpener opens the vault at path
type StoreOpener func(ctx context.Context, path string, passphrase []byte) (Store, error)

// ExitFunc is a function type for exiting the program
type ExitFunc func(code int)

// App represents the main application
type App struct {
	Config     *config.Config
	LoadConfig func(path string) (*config.Config, error)
	OpenStore  StoreOpener
	Wizard     setup.WizardRunner
	NewTOTP    display.ProviderFunc
	Clipboard  func(text string) error
	ScanQR     func(path string) (*otpauth.Key, error)
	WriteQR    func(path string, key *otpauth.Key, size int) error

	// Interactive reports whether prompts can be shown
	Interactive func() bool
	// ClearScreen enables redrawing in watch mode
	ClearScreen bool

	Now         func() time.Time
	Exit        ExitFunc
	Stdin       io.Reader
	Stdout      io.Writer
	Stderr      io.Writer
	VersionInfo VersionInfo
}

// VersionInfo contains version information
type VersionInfo struct {
	Version string
	Commit  string
	Date    string
}

// NewDefaultApp creates a new App with default dependencies
func NewDefaultApp() *App {
	return &App{
		LoadConfig:  config.Load,
		OpenStore:   openVault,
		Wizard:      setup.NewTerminalPrompter(os.Stdin, os.Stderr),
		NewTOTP:     display.DefaultProviderFunc,
		Clipboard:   clipboard.Copy,
		ScanQR:      qrcode.ScanFile,
		WriteQR:     qrcode.WriteFile,
		Interactive: func() bool { return setup.IsTerminal(os.Stdin) },
		ClearScreen: setup.IsTerminal(os.Stdout),
		Now:         time.Now,
		Exit:        os.Exit,
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		VersionInfo: VersionInfo{
			Version: version,
			Commit:  commit,
			Date:    date,
		},
	}
}

func openVault(ctx context.Context, path string, passphrase []byte) (Store, error) {
	v, err := vault.Open(ctx, path, passphrase)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Overrides are command-line values that take precedence over the config
type Overrides struct {
	ConfigFile string
	DB         string
	LogLevel   string
}

// Configure loads the config, applies flag overrides and installs the logger
func (a *App) Configure(o Overrides) error {
	cfg, err := a.LoadConfig(o.ConfigFile)
	if err != nil {
		return err
	}

	if o.DB != "" {
		cfg.DB = o.DB
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}

	a.Config = cfg
	logging.Setup(a.Stderr, cfg.Level())
	slog.Debug("config loaded", "file", cfg.File, "db", cfg.DB, "skew", cfg.Skew)

	return nil
}

// ShowVersion displays version information
func (a *App) ShowVersion() {
	fmt.Fprintf(a.Stdout, "otpdeck version %s (%s) built on %s\n",
		a.VersionInfo.Version, a.VersionInfo.Commit, a.VersionInfo.Date)
}

// withStore opens the vault, runs fn and closes the vault again
func (a *App) withStore(ctx context.Context, fn func(s Store) error) error {
	path := a.Config.DB

	_, statErr := os.Stat(path)
	isNew := errors.Is(statErr, fs.ErrNotExist)

	passphrase, err := a.passphrase(isNew)
	if err != nil {
		return err
	}
	defer secure.SecureZeroBytes(passphrase)

	if isNew {
		if err := os.MkdirAll(filepath.Dir(path), constants.DataDirMode); err != nil {
			return fmt.Errorf("failed to create vault directory: %w", err)
		}
		slog.Info("creating new vault", "path", path)
	}

	store, err := a.OpenStore(ctx, path, passphrase)
	if err != nil {
		if errors.Is(err, vault.ErrLocked) {
			return fmt.Errorf("could not unlock %s: %w", path, err)
		}
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("failed to close vault", "err", err)
		}
	}()

	return fn(store)
}

func (a *App) passphrase(isNew bool) ([]byte, error) {
	if a.Config.Passphrase != "" {
		return []byte(a.Config.Passphrase), nil
	}

	if !a.Interactive() {
		return nil, fmt.Errorf("%w: set %s_PASSPHRASE or run from a terminal", vault.ErrNoPassphrase, constants.EnvPrefix)
	}

	if isNew {
		fmt.Fprintf(a.Stderr, "🔐 Creating a new vault at %s\n", a.Config.DB)
	}
	return a.Wizard.Passphrase(isNew)
}

// totpFor returns a provider for e with its clock fixed at now, so every
// value printed by one command comes from a single clock reading
func (a *App) totpFor(e vault.Entry, now time.Time) totp.Provider {
	opts := e.Options()
	opts.Skew = a.Config.Skew
	return a.NewTOTP(opts, func() time.Time { return now })
}
