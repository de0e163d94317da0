package main

import (
	"context"
	"errors"
	"flag"
	"strings"
	"testing"

	"github.com/otpdeck/otpdeck/internal/config"
	"github.com/otpdeck/otpdeck/internal/vault"
)

func TestRun(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantExit   int
		wantStdout string
		wantStderr string
	}{
		{
			name:       "version flag",
			args:       []string{"otpdeck", "-version"},
			wantExit:   -1,
			wantStdout: "otpdeck version test-version (test-commit) built on test-date",
		},
		{
			name:       "version command",
			args:       []string{"otpdeck", "version"},
			wantExit:   -1,
			wantStdout: "otpdeck version test-version",
		},
		{
			name:       "help",
			args:       []string{"otpdeck", "help"},
			wantExit:   -1,
			wantStdout: "set-secret NAME",
		},
		{
			name:       "no command",
			args:       []string{"otpdeck"},
			wantExit:   1,
			wantStderr: "No command specified",
		},
		{
			name:       "unknown command",
			args:       []string{"otpdeck", "frobnicate"},
			wantExit:   1,
			wantStderr: `Unknown command "frobnicate"`,
		},
		{
			name:       "bad flag",
			args:       []string{"otpdeck", "-nope", "list"},
			wantExit:   1,
			wantStderr: "error parsing arguments",
		},
		{
			name:       "command runs",
			args:       []string{"otpdeck", "code", "rfc"},
			wantExit:   -1,
			wantStdout: rfcCode,
		},
		{
			name:       "command error",
			args:       []string{"otpdeck", "code", "missing"},
			wantExit:   1,
			wantStderr: "❌ vault: entry not found",
		},
		{
			name:       "usage error",
			args:       []string{"otpdeck", "verify", "rfc"},
			wantExit:   1,
			wantStderr: "usage: otpdeck verify NAME CODE",
		},
		{
			name:     "subcommand help",
			args:     []string{"otpdeck", "code", "-h"},
			wantExit: -1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ta := mockApp(t, vault.Entry{Name: "rfc", Secret: rfcSecret})

			run(context.Background(), ta.App, tc.args)

			if ta.exitCode != tc.wantExit {
				t.Errorf("exit code = %d, want %d (stderr: %s)", ta.exitCode, tc.wantExit, ta.stderr.String())
			}
			if !strings.Contains(ta.stdout.String(), tc.wantStdout) {
				t.Errorf("stdout = %q, want it to contain %q", ta.stdout.String(), tc.wantStdout)
			}
			if !strings.Contains(ta.stderr.String(), tc.wantStderr) {
				t.Errorf("stderr = %q, want it to contain %q", ta.stderr.String(), tc.wantStderr)
			}
		})
	}
}

func TestRunGlobalOverrides(t *testing.T) {
	ta := mockApp(t, vault.Entry{Name: "rfc", Secret: rfcSecret})

	var gotFile string
	ta.LoadConfig = func(path string) (*config.Config, error) {
		gotFile = path
		return &config.Config{Passphrase: "p", QRSize: 256}, nil
	}

	var gotDB string
	ta.OpenStore = func(_ context.Context, path string, _ []byte) (Store, error) {
		gotDB = path
		return ta.store, nil
	}

	db := t.TempDir() + "/custom.db"
	run(context.Background(), ta.App, []string{"otpdeck", "-config", "my.yaml", "-db", db, "-log-level", "debug", "list"})

	if ta.exitCode != -1 {
		t.Fatalf("exit code = %d, stderr: %s", ta.exitCode, ta.stderr.String())
	}
	if gotFile != "my.yaml" {
		t.Errorf("config file = %q, want my.yaml", gotFile)
	}
	if gotDB != db {
		t.Errorf("db = %q, want %q", gotDB, db)
	}
	if ta.Config.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", ta.Config.LogLevel)
	}
}

func TestRunConfigError(t *testing.T) {
	ta := mockApp(t)
	ta.LoadConfig = func(string) (*config.Config, error) {
		return nil, errors.New("failed to read config: boom")
	}

	run(context.Background(), ta.App, []string{"otpdeck", "list"})

	if ta.exitCode != 1 {
		t.Errorf("exit code = %d, want 1", ta.exitCode)
	}
	if !strings.Contains(ta.stderr.String(), "failed to read config") {
		t.Errorf("stderr = %q", ta.stderr.String())
	}
}

func TestParseArgs(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	clip := fs.Bool("clip", false, "")
	issuer := fs.String("issuer", "", "")

	got, err := parseArgs(fs, []string{"one", "-clip", "two", "-issuer", "x", "three"})
	if err != nil {
		t.Fatalf("parseArgs() error = %v", err)
	}

	if strings.Join(got, ",") != "one,two,three" {
		t.Errorf("positional = %v", got)
	}
	if !*clip || *issuer != "x" {
		t.Errorf("clip = %v, issuer = %q", *clip, *issuer)
	}
}

func TestPrintUsageListsEveryCommand(t *testing.T) {
	var b strings.Builder
	printUsage(&b)

	for name := range commands {
		if _, ok := usages[name]; !ok {
			t.Errorf("command %q has no usage", name)
		}
		if !strings.Contains(b.String(), "  "+name) {
			t.Errorf("usage does not list %q", name)
		}
	}
}
