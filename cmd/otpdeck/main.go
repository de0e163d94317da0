package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/samber/lo"
)

// Version information (set by ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := NewDefaultApp()
	run(ctx, app, os.Args)
}

// run is the testable entrypoint for the application
func run(ctx context.Context, app *App, args []string) {
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(app.Stderr)
	fs.Usage = func() { printUsage(app.Stderr) }

	configFile := fs.String("config", "", "Config file (default $XDG_CONFIG_HOME/otpdeck/config.yaml)")
	dbPath := fs.String("db", "", "Vault file (overrides OTPDECK_DB and the config file)")
	logLevel := fs.String("log-level", "", "Diagnostic log level: debug, info, warn, error")
	showVersion := fs.Bool("version", false, "Show version information")
	showHelp := fs.Bool("help", false, "Show usage")

	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(app.Stderr, "❌ error parsing arguments: %v\n", err)
		app.Exit(1)
		return
	}

	if *showVersion {
		app.ShowVersion()
		return
	}

	if *showHelp {
		printUsage(app.Stdout)
		return
	}

	if fs.NArg() == 0 {
		fmt.Fprintln(app.Stderr, "❌ No command specified.")
		printUsage(app.Stderr)
		app.Exit(1)
		return
	}

	name, cmdArgs := fs.Arg(0), fs.Args()[1:]
	switch name {
	case "version":
		app.ShowVersion()
		return
	case "help":
		printUsage(app.Stdout)
		return
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(app.Stderr, "❌ Unknown command %q\n", name)
		printUsage(app.Stderr)
		app.Exit(1)
		return
	}

	if err := app.Configure(Overrides{ConfigFile: *configFile, DB: *dbPath, LogLevel: *logLevel}); err != nil {
		fmt.Fprintf(app.Stderr, "❌ %v\n", err)
		app.Exit(1)
		return
	}

	if err := cmd(app, ctx, cmdArgs); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(app.Stderr, "❌ %v\n", err)
		app.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: otpdeck [options] COMMAND [args]")
	fmt.Fprintln(w, "\nOptions:")
	fmt.Fprintln(w, "  -config FILE       Config file (default $XDG_CONFIG_HOME/otpdeck/config.yaml)")
	fmt.Fprintln(w, "  -db FILE           Vault file (default $XDG_DATA_HOME/otpdeck/vault.db)")
	fmt.Fprintln(w, "  -log-level LEVEL   Diagnostic log level: debug, info, warn, error")
	fmt.Fprintln(w, "  -version           Show version information")
	fmt.Fprintln(w, "  -help              Show usage")
	fmt.Fprintln(w, "\nCommands:")
	names := lo.Keys(usages)
	slices.Sort(names)
	for _, n := range names {
		fmt.Fprintf(w, "  %s\n", usages[n])
	}
	fmt.Fprintln(w, "  version")
	fmt.Fprintln(w, "\nEnvironment:")
	fmt.Fprintln(w, "  OTPDECK_DB, OTPDECK_PASSPHRASE, OTPDECK_LOG_LEVEL, OTPDECK_SKEW, OTPDECK_WORKERS, OTPDECK_QR_SIZE")
	fmt.Fprintln(w, "\nExamples:")
	fmt.Fprintln(w, "  otpdeck add github -secret JBSWY3DPEHPK3PXP       Store a secret")
	fmt.Fprintln(w, "  otpdeck add -qr screenshot.png                   Store the secret in a QR code image")
	fmt.Fprintln(w, "  otpdeck code github -clip                        Copy the current code to the clipboard")
	fmt.Fprintln(w, "  otpdeck codes -watch                             Show every code, refreshed each second")
}
