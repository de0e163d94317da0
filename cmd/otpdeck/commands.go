package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/samber/lo"

	"github.com/otpdeck/otpdeck/internal/backup"
	"github.com/otpdeck/otpdeck/internal/constants"
	"github.com/otpdeck/otpdeck/internal/display"
	"github.com/otpdeck/otpdeck/internal/otpauth"
	"github.com/otpdeck/otpdeck/internal/qrcode"
	"github.com/otpdeck/otpdeck/internal/totp"
	"github.com/otpdeck/otpdeck/internal/vault"
)

// errCodeRejected is returned by verify when the code does not match
var errCodeRejected = errors.New("code is not valid")

// usages holds the synopsis of every subcommand
var usages = map[string]string{
	"add":        "add [NAME] [-secret S | -uri URI | -qr FILE] [-issuer I] [-digits N] [-period S] [-algorithm A]",
	"list":       "list",
	"code":       "code NAME [-clip]",
	"codes":      "codes [-watch]",
	"verify":     "verify NAME CODE",
	"rename":     "rename OLD NEW",
	"set-secret": "set-secret NAME [-secret S | -uri URI | -qr FILE]",
	"delete":     "delete NAME",
	"export":     "export FILE|-",
	"import":     "import FILE|-",
	"qr":         "qr NAME FILE|-",
}

// commands maps subcommand names to their handlers
var commands = map[string]func(a *App, ctx context.Context, args []string) error{
	"add":        (*App).cmdAdd,
	"list":       (*App).cmdList,
	"code":       (*App).cmdCode,
	"codes":      (*App).cmdCodes,
	"verify":     (*App).cmdVerify,
	"rename":     (*App).cmdRename,
	"set-secret": (*App).cmdSetSecret,
	"delete":     (*App).cmdDelete,
	"export":     (*App).cmdExport,
	"import":     (*App).cmdImport,
	"qr":         (*App).cmdQR,
}

// parseArgs parses flags that may appear before, between or after the
// positional arguments
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			return positional, nil
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

func (a *App) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.Stderr)
	return fs
}

func wantArgs(name string, got []string, n int) error {
	if len(got) != n {
		return fmt.Errorf("usage: %s %s", constants.AppName, usages[name])
	}
	return nil
}

// secretSource holds the mutually exclusive ways of supplying a secret
type secretSource struct {
	secret string
	uri    string
	qr     string
}

func (s *secretSource) register(fs *flag.FlagSet) {
	fs.StringVar(&s.secret, "secret", "", "Base32 secret")
	fs.StringVar(&s.uri, "uri", "", "otpauth:// provisioning URI")
	fs.StringVar(&s.qr, "qr", "", "Image file holding a provisioning QR code")
}

// key resolves the source to a provisioning key; ok is false when nothing
// was given
func (s *secretSource) key(a *App) (key *otpauth.Key, ok bool, err error) {
	given := lo.Compact([]string{s.secret, s.uri, s.qr})
	switch len(given) {
	case 0:
		return nil, false, nil
	case 1:
	default:
		return nil, false, errors.New("use only one of -secret, -uri or -qr")
	}

	switch {
	case s.uri != "":
		key, err = otpauth.Parse(s.uri)
	case s.qr != "":
		key, err = a.ScanQR(s.qr)
	default:
		key = &otpauth.Key{Type: "totp", Secret: s.secret}
	}
	if err != nil {
		return nil, false, err
	}
	return key, true, nil
}

func (a *App) cmdAdd(ctx context.Context, args []string) error {
	fs := a.newFlagSet("add")
	var src secretSource
	src.register(fs)
	issuer := fs.String("issuer", "", "Issuer shown next to the name")
	label := fs.String("label", "", "Label used when exporting")
	digits := fs.Int("digits", 0, "Code length (6-8)")
	period := fs.Uint("period", 0, "Time step in seconds")
	algorithm := fs.String("algorithm", "", "HMAC algorithm (SHA1, SHA256, SHA512)")

	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(positional) > 1 {
		return wantArgs("add", positional, 1)
	}
	name := strings.Join(positional, "")

	key, ok, err := src.key(a)
	if err != nil {
		return err
	}

	var entry vault.Entry
	switch {
	case ok:
		entry = vault.EntryFromKey(name, key)
	case a.Interactive():
		entry, err = a.Wizard.RunTOTP(name)
		if err != nil {
			return err
		}
	default:
		return errors.New("no secret given: use -secret, -uri or -qr")
	}

	if *issuer != "" {
		entry.Issuer = *issuer
	}
	if *label != "" {
		entry.Label = *label
	}
	if *digits != 0 {
		entry.Digits = *digits
	}
	if *period != 0 {
		entry.Period = *period
	}
	if *algorithm != "" {
		entry.Algorithm = totp.Algorithm(strings.ToUpper(*algorithm))
	}
	if strings.TrimSpace(entry.Name) == "" {
		return errors.New("entry name is required when the URI has no label")
	}

	return a.withStore(ctx, func(s Store) error {
		added, err := s.Add(ctx, entry)
		if err != nil {
			return fmt.Errorf("failed to add entry: %w", err)
		}

		now := a.Now()
		code, err := a.totpFor(added, now).Generate(added.Secret)
		if err != nil {
			return err
		}

		fmt.Fprintf(a.Stdout, "✅ Added %s\n", display.Describe(added))
		fmt.Fprintf(a.Stdout, "🔑 Current code: %s\n", code)
		return nil
	})
}

func (a *App) cmdList(ctx context.Context, args []string) error {
	if err := wantArgs("list", args, 0); err != nil {
		return err
	}

	return a.withStore(ctx, func(s Store) error {
		entries, err := s.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list entries: %w", err)
		}

		if len(entries) == 0 {
			fmt.Fprintln(a.Stdout, "No entries found")
			return nil
		}

		tw := tabwriter.NewWriter(a.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tISSUER\tTYPE\tADDED")
		for _, e := range entries {
			opts := e.Options()
			fmt.Fprintf(tw, "%s\t%s\t%s/%d/%ds\t%s\n",
				e.Name, lo.Ternary(e.Issuer == "", "-", e.Issuer),
				opts.Algorithm, opts.Digits, opts.Period,
				e.CreatedAt.Local().Format("2006-01-02"))
		}
		return tw.Flush()
	})
}

func (a *App) cmdCode(ctx context.Context, args []string) error {
	fs := a.newFlagSet("code")
	clip := fs.Bool("clip", false, "Copy the code to the clipboard")

	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if err := wantArgs("code", positional, 1); err != nil {
		return err
	}

	return a.withStore(ctx, func(s Store) error {
		e, err := s.Get(ctx, positional[0])
		if err != nil {
			return err
		}

		p := a.totpFor(e, a.Now())
		current, next, err := p.GenerateConsecutiveCodes(e.Secret)
		if err != nil {
			return fmt.Errorf("could not generate TOTP code for %s: %w", e.Name, err)
		}
		left := p.SecondsRemaining()

		if !*clip {
			fmt.Fprintln(a.Stdout, current)
			fmt.Fprintf(a.Stderr, "⏳ Next: %s in %ds\n", next, left)
			return nil
		}

		if err := a.Clipboard(current); err != nil {
			return fmt.Errorf("failed to copy to clipboard: %w", err)
		}

		fmt.Fprintln(a.Stderr, "✅ TOTP code copied to clipboard")
		fmt.Fprintln(a.Stdout, display.FormatClipboardDisplayInfo(current, next, left, "TOTP code", display.Describe(e)))
		return nil
	})
}

func (a *App) cmdCodes(ctx context.Context, args []string) error {
	fs := a.newFlagSet("codes")
	watch := fs.Bool("watch", false, "Redraw every second until interrupted")

	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if err := wantArgs("codes", positional, 0); err != nil {
		return err
	}

	board := display.NewBoard(a.Config.Workers)
	board.NewProvider = a.NewTOTP

	return a.withStore(ctx, func(s Store) error {
		if *watch {
			return a.watchCodes(ctx, s, board)
		}

		entries, err := s.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list entries: %w", err)
		}
		return board.Render(ctx, a.Stdout, entries, a.Now())
	})
}

func (a *App) cmdVerify(ctx context.Context, args []string) error {
	if err := wantArgs("verify", args, 2); err != nil {
		return err
	}
	name, code := args[0], strings.TrimSpace(args[1])

	return a.withStore(ctx, func(s Store) error {
		e, err := s.Get(ctx, name)
		if err != nil {
			return err
		}

		if !a.totpFor(e, a.Now()).Verify(code, e.Secret) {
			return fmt.Errorf("%w for %s", errCodeRejected, e.Name)
		}

		fmt.Fprintf(a.Stdout, "✅ Code is valid for %s\n", e.Name)
		return nil
	})
}

func (a *App) cmdRename(ctx context.Context, args []string) error {
	if err := wantArgs("rename", args, 2); err != nil {
		return err
	}

	return a.withStore(ctx, func(s Store) error {
		if err := s.Rename(ctx, args[0], args[1]); err != nil {
			return fmt.Errorf("failed to rename entry: %w", err)
		}
		fmt.Fprintf(a.Stdout, "✅ Renamed %s to %s\n", args[0], args[1])
		return nil
	})
}

func (a *App) cmdSetSecret(ctx context.Context, args []string) error {
	fs := a.newFlagSet("set-secret")
	var src secretSource
	src.register(fs)

	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if err := wantArgs("set-secret", positional, 1); err != nil {
		return err
	}

	key, ok, err := src.key(a)
	if err != nil {
		return err
	}

	var secret string
	switch {
	case ok:
		secret = key.Secret
	case a.Interactive():
		secret, err = a.Wizard.Secret()
		if err != nil {
			return err
		}
	default:
		return errors.New("no secret given: use -secret, -uri or -qr")
	}

	return a.withStore(ctx, func(s Store) error {
		if err := s.UpdateSecret(ctx, positional[0], secret); err != nil {
			return fmt.Errorf("failed to update secret: %w", err)
		}
		fmt.Fprintf(a.Stdout, "✅ Secret updated for %s\n", positional[0])
		return nil
	})
}

func (a *App) cmdDelete(ctx context.Context, args []string) error {
	if err := wantArgs("delete", args, 1); err != nil {
		return err
	}

	return a.withStore(ctx, func(s Store) error {
		if err := s.Delete(ctx, args[0]); err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}
		fmt.Fprintln(a.Stdout, "✅ Entry deleted successfully")
		return nil
	})
}

func (a *App) cmdExport(ctx context.Context, args []string) error {
	if err := wantArgs("export", args, 1); err != nil {
		return err
	}

	return a.withStore(ctx, func(s Store) error {
		entries, err := s.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list entries: %w", err)
		}

		w, closeFn, err := a.output(args[0])
		if err != nil {
			return err
		}
		if err := backup.Export(w, entries); err != nil {
			closeFn()
			return err
		}
		if err := closeFn(); err != nil {
			return fmt.Errorf("failed to write %s: %w", args[0], err)
		}

		fmt.Fprintf(a.Stderr, "✅ Exported %d entries\n", len(entries))
		fmt.Fprintln(a.Stderr, "⚠️  The backup is not encrypted; store it somewhere safe")
		return nil
	})
}

func (a *App) cmdImport(ctx context.Context, args []string) error {
	if err := wantArgs("import", args, 1); err != nil {
		return err
	}

	r, closeFn, err := a.input(args[0])
	if err != nil {
		return err
	}
	entries, skipped, err := backup.Import(r)
	closeFn()
	if err != nil {
		return err
	}

	for _, rec := range skipped {
		fmt.Fprintf(a.Stderr, "❌ Skipped %v\n", rec)
	}

	return a.withStore(ctx, func(s Store) error {
		imported := 0
		for _, e := range entries {
			if _, err := s.Add(ctx, e); err != nil {
				fmt.Fprintf(a.Stderr, "❌ Skipped %s: %v\n", e.Name, err)
				continue
			}
			imported++
		}

		fmt.Fprintf(a.Stdout, "✅ Imported %d of %d entries\n", imported, len(entries)+len(skipped))
		return nil
	})
}

func (a *App) cmdQR(ctx context.Context, args []string) error {
	if err := wantArgs("qr", args, 2); err != nil {
		return err
	}

	return a.withStore(ctx, func(s Store) error {
		e, err := s.Get(ctx, args[0])
		if err != nil {
			return err
		}

		if args[1] == "-" {
			out, err := qrcode.Terminal(e.Key().String())
			if err != nil {
				return err
			}
			fmt.Fprint(a.Stdout, out)
			return nil
		}

		if err := a.WriteQR(args[1], e.Key(), a.Config.QRSize); err != nil {
			return err
		}

		fmt.Fprintf(a.Stdout, "✅ QR code for %s written to %s\n", e.Name, args[1])
		return nil
	})
}

func (a *App) output(path string) (io.Writer, func() error, error) {
	if path == "-" {
		return a.Stdout, func() error { return nil }, nil
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, constants.BackupFileMode)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, f.Close, nil
}

func (a *App) input(path string) (io.Reader, func() error, error) {
	if path == "-" {
		return a.Stdin, func() error { return nil }, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, f.Close, nil
}
