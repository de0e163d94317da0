package display

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/otpdeck/otpdeck/internal/totp"
	"github.com/otpdeck/otpdeck/internal/totp/mocks"
	"github.com/otpdeck/otpdeck/internal/vault"
)

// 59 seconds after the epoch: the RFC 6238 first vector, 1s left in its window
var rfcTime = time.Unix(59, 0)

func TestRowsWithRealProvider(t *testing.T) {
	entries := []vault.Entry{
		{Name: "zeta", Secret: "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ", Digits: 8},
		{Name: "Alpha", Issuer: "ACME", Secret: "not-base32-!!!"},
		{Name: "beta", Secret: "JBSWY3DPEHPK3PXP"},
	}

	rows, err := NewBoard(2).Rows(context.Background(), entries, rfcTime)
	if err != nil {
		t.Fatalf("Rows() error = %v", err)
	}

	gotNames := []string{rows[0].Name, rows[1].Name, rows[2].Name}
	if strings.Join(gotNames, ",") != "Alpha,beta,zeta" {
		t.Errorf("row order = %v, want [Alpha beta zeta]", gotNames)
	}

	if !errors.Is(rows[0].Err, totp.ErrInvalidSecret) {
		t.Errorf("Alpha Err = %v, want ErrInvalidSecret", rows[0].Err)
	}
	if rows[0].Current != "" || rows[0].Next != "" {
		t.Errorf("invalid secret produced codes %q/%q", rows[0].Current, rows[0].Next)
	}

	zeta := rows[2]
	if zeta.Err != nil {
		t.Fatalf("zeta Err = %v", zeta.Err)
	}
	if zeta.Current != "94287082" {
		t.Errorf("zeta Current = %q, want 94287082", zeta.Current)
	}
	if zeta.SecondsLeft != 1 {
		t.Errorf("zeta SecondsLeft = %d, want 1", zeta.SecondsLeft)
	}

	want, err := totp.GenerateCustom(entries[0].Secret, rfcTime.Add(30*time.Second), entries[0].Options())
	if err != nil {
		t.Fatalf("GenerateCustom() error = %v", err)
	}
	if zeta.Next != want {
		t.Errorf("zeta Next = %q, want %q", zeta.Next, want)
	}
}

func TestRowsUsesEntryOptionsAndSingleInstant(t *testing.T) {
	var calls atomic.Int32
	now := time.Unix(1700000000, 0)

	b := &Board{
		Workers: 1,
		NewProvider: func(opts totp.Options, clock func() time.Time) totp.Provider {
			calls.Add(1)
			if !clock().Equal(now) {
				t.Errorf("clock() = %v, want %v", clock(), now)
			}
			return &mocks.MockProvider{
				GenerateConsecutiveCodesFunc: func(secret string) (string, string, error) {
					if opts.Digits == 8 {
						return "12345678", "87654321", nil
					}
					return "123456", "654321", nil
				},
				SecondsRemainingFunc: func() int64 { return int64(opts.Period) },
			}
		},
	}

	entries := []vault.Entry{
		{Name: "six", Secret: "A"},
		{Name: "eight", Secret: "B", Digits: 8, Period: 60},
	}

	rows, err := b.Rows(context.Background(), entries, now)
	if err != nil {
		t.Fatalf("Rows() error = %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("provider built %d times, want 2", calls.Load())
	}

	if rows[0].Name != "eight" || rows[0].Current != "12345678" || rows[0].SecondsLeft != 60 {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	if rows[1].Name != "six" || rows[1].Current != "123456" || rows[1].SecondsLeft != 30 {
		t.Errorf("rows[1] = %+v", rows[1])
	}
}

func TestRowsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBoard(1).Rows(ctx, []vault.Entry{{Name: "a", Secret: "JBSWY3DPEHPK3PXP"}}, rfcTime)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Rows() error = %v, want context.Canceled", err)
	}
}

func TestRender(t *testing.T) {
	tests := map[string]struct {
		entries  []vault.Entry
		contains []string
		excludes []string
	}{
		"empty": {
			entries:  nil,
			contains: []string{"No entries found"},
		},
		"codes and errors": {
			entries: []vault.Entry{
				{Name: "rfc", Issuer: "IETF", Secret: "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"},
				{Name: "broken", Secret: "!!!"},
			},
			contains: []string{"NAME", "rfc", "IETF", "287082", "1s", "broken", "❌", "invalid secret"},
			excludes: []string{"------"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewBoard(0).Render(context.Background(), &buf, tc.entries, rfcTime); err != nil {
				t.Fatalf("Render() error = %v", err)
			}

			out := buf.String()
			for _, s := range tc.contains {
				if !strings.Contains(out, s) {
					t.Errorf("output missing %q:\n%s", s, out)
				}
			}
			for _, s := range tc.excludes {
				if strings.Contains(out, s) {
					t.Errorf("output contains %q:\n%s", s, out)
				}
			}
		})
	}
}

func TestFailed(t *testing.T) {
	rows := []Row{{Name: "ok"}, {Name: "bad", Err: totp.ErrInvalidSecret}}

	failed := Failed(rows)
	if len(failed) != 1 || failed[0].Name != "bad" {
		t.Errorf("Failed() = %+v", failed)
	}
}

func TestFormatClipboardDisplayInfo(t *testing.T) {
	got := FormatClipboardDisplayInfo("123456", "654321", 15, "TOTP code", "github")
	want := "Current: 123456  |  Next: 654321  |  Time left: 15s\n🔑 TOTP code for github"
	if got != want {
		t.Errorf("FormatClipboardDisplayInfo() = %q, want %q", got, want)
	}
}

func TestDescribe(t *testing.T) {
	tests := map[string]struct {
		entry vault.Entry
		want  string
	}{
		"name only":        {entry: vault.Entry{Name: "github"}, want: "github"},
		"issuer":           {entry: vault.Entry{Name: "work", Issuer: "ACME"}, want: "work (ACME)"},
		"issuer same name": {entry: vault.Entry{Name: "acme", Issuer: "ACME"}, want: "acme"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := Describe(tc.entry); got != tc.want {
				t.Errorf("Describe() = %q, want %q", got, tc.want)
			}
		})
	}
}
