// Package display renders vault entries with their current codes
package display

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/otpdeck/otpdeck/internal/totp"
	"github.com/otpdeck/otpdeck/internal/vault"
)

// ProviderFunc builds a TOTP provider for one entry's options and clock
type ProviderFunc func(opts totp.Options, now func() time.Time) totp.Provider

// DefaultProviderFunc returns the standard provider
func DefaultProviderFunc(opts totp.Options, now func() time.Time) totp.Provider {
	return totp.NewProvider(opts, now)
}

// Row is one rendered entry
type Row struct {
	Name        string
	Issuer      string
	Current     string
	Next        string
	SecondsLeft int64
	Err         error
}

// Board computes codes for a set of entries
type Board struct {
	// Workers bounds concurrent code generation; zero means GOMAXPROCS
	Workers     int
	NewProvider ProviderFunc
}

// NewBoard creates a board using the standard provider
func NewBoard(workers int) *Board {
	return &Board{Workers: workers, NewProvider: DefaultProviderFunc}
}

// Rows generates the current and next code of every entry against the
// single instant now. Entries whose secret cannot produce a code get a row
// with Err set. Rows are sorted by name, case-insensitively.
func (b *Board) Rows(ctx context.Context, entries []vault.Entry, now time.Time) ([]Row, error) {
	newProvider := b.NewProvider
	if newProvider == nil {
		newProvider = DefaultProviderFunc
	}
	workers := b.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	clock := func() time.Time { return now }
	rows := make([]Row, len(entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, e := range entries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			p := newProvider(e.Options(), clock)
			row := Row{Name: e.Name, Issuer: e.Issuer, SecondsLeft: p.SecondsRemaining()}
			row.Current, row.Next, row.Err = p.GenerateConsecutiveCodes(e.Secret)
			rows[i] = row
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(rows, func(a, b Row) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})

	return rows, nil
}

// Render writes the board as an aligned table
func (b *Board) Render(ctx context.Context, w io.Writer, entries []vault.Entry, now time.Time) error {
	rows, err := b.Rows(ctx, entries, now)
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No entries found")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tISSUER\tCODE\tNEXT\tLEFT")
	for _, r := range rows {
		if r.Err != nil {
			fmt.Fprintf(tw, "%s\t%s\t❌ %v\t\t\n", r.Name, dash(r.Issuer), r.Err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%ds\n", r.Name, dash(r.Issuer), r.Current, r.Next, r.SecondsLeft)
	}

	return tw.Flush()
}

// Failed returns the rows that could not produce a code
func Failed(rows []Row) []Row {
	return lo.Filter(rows, func(r Row, _ int) bool { return r.Err != nil })
}

// FormatClipboardDisplayInfo creates the standard clipboard-mode display format
// Example: "Current: 123456  |  Next: 789012  |  Time left: 15s\n🔑 TOTP code for github"
func FormatClipboardDisplayInfo(currentCode, nextCode string, secondsLeft int64, actionType, entryDesc string) string {
	return fmt.Sprintf("Current: %s  |  Next: %s  |  Time left: %ds\n🔑 %s for %s",
		currentCode, nextCode, secondsLeft, actionType, entryDesc)
}

// Describe returns the human-readable name of an entry
func Describe(e vault.Entry) string {
	if e.Issuer == "" || strings.EqualFold(e.Issuer, e.Name) {
		return e.Name
	}
	return fmt.Sprintf("%s (%s)", e.Name, e.Issuer)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
