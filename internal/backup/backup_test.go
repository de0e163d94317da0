package backup

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/otpdeck/otpdeck/internal/otpauth"
	"github.com/otpdeck/otpdeck/internal/totp"
	"github.com/otpdeck/otpdeck/internal/vault"
)

func TestExportImportRoundTrip(t *testing.T) {
	entries := []vault.Entry{
		{Name: "github", Label: "GitHub:jane", Issuer: "GitHub", Secret: "JBSWY3DPEHPK3PXP"},
		{Name: "aws root", Secret: "GEZDGNBVGY3TQOJQ", Digits: 8, Period: 60, Algorithm: totp.AlgorithmSHA256},
	}

	var buf bytes.Buffer
	if err := Export(&buf, entries); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if strings.Contains(buf.String(), "JBSWY3DPEHPK3PXP") {
		t.Error("export contains a raw secret; expected compressed output")
	}

	got, skipped, err := Import(&buf)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(skipped) != 0 {
		t.Fatalf("Import() skipped %v", skipped)
	}
	if len(got) != len(entries) {
		t.Fatalf("Import() returned %d entries, want %d", len(got), len(entries))
	}

	for i, want := range entries {
		g := got[i]
		if g.Name != want.Name || g.Secret != want.Secret || g.Issuer != want.Issuer ||
			g.Digits != want.Digits || g.Period != want.Period || g.Algorithm != want.Algorithm {
			t.Errorf("entry %d = %+v, want %+v", i, g, want)
		}
	}

	// Unlabelled entries export under their name
	if got[1].Label != "aws root" {
		t.Errorf("entry 1 label = %q, want %q", got[1].Label, "aws root")
	}
}

func TestExportEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, nil); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	got, skipped, err := Import(&buf)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(got) != 0 || len(skipped) != 0 {
		t.Errorf("Import() = %d entries, %d skipped, want none", len(got), len(skipped))
	}
}

func armour(json string) string {
	return base64.StdEncoding.EncodeToString([]byte(json))
}

func TestImportSkipsInvalidRecords(t *testing.T) {
	doc := `{"version":1,"entries":[
		{"name":"good","uri":"otpauth://totp/Example:alice?secret=JBSWY3DPEHPK3PXP"},
		{"name":"bad secret","uri":"otpauth://totp/x?secret=not-base32-!!!"},
		{"name":"no secret","uri":"otpauth://totp/x"},
		{"name":"wrong scheme","uri":"https://example.com/?secret=JBSWY3DPEHPK3PXP"},
		{"name":"","uri":"otpauth://totp/?secret=JBSWY3DPEHPK3PXP"},
		{"name":"bad digits","uri":"otpauth://totp/x?secret=JBSWY3DPEHPK3PXP&digits=12"},
		{"name":"","uri":"otpauth://totp/Label%20Only?secret=JBSWY3DPEHPK3PXP"}
	]}`

	got, skipped, err := Import(strings.NewReader(armour(doc)))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("Import() returned %d entries, want 2", len(got))
	}
	if got[0].Name != "good" || got[1].Name != "Label Only" {
		t.Errorf("names = %q, %q", got[0].Name, got[1].Name)
	}

	wantSkipped := map[int]error{
		1: totp.ErrInvalidSecret,
		2: otpauth.ErrMalformedURI,
		3: otpauth.ErrMalformedURI,
		4: vault.ErrInvalidEntry,
		5: totp.ErrInvalidOptions,
	}
	if len(skipped) != len(wantSkipped) {
		t.Fatalf("skipped %d records, want %d: %v", len(skipped), len(wantSkipped), skipped)
	}
	for _, rec := range skipped {
		want, ok := wantSkipped[rec.Index]
		if !ok {
			t.Errorf("unexpected skipped record %d: %v", rec.Index, rec)
			continue
		}
		if !errors.Is(rec, want) {
			t.Errorf("record %d error = %v, want %v", rec.Index, rec.Err, want)
		}
	}
}

func TestImportInvalidInput(t *testing.T) {
	tests := map[string]struct {
		input string
		want  string
	}{
		"not base64":    {input: "%%%", want: "not base64"},
		"not json":      {input: armour("hello"), want: "failed to parse"},
		"wrong version": {input: armour(`{"version":99,"entries":[]}`), want: "unsupported version"},
		"corrupt zstd":  {input: base64.StdEncoding.EncodeToString([]byte{0x28, 0xb5, 0x2f, 0xfd, 1, 2, 3}), want: "decompress"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := Import(strings.NewReader(tc.input))
			if !errors.Is(err, ErrInvalidBackup) {
				t.Fatalf("Import() error = %v, want ErrInvalidBackup", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Import() error = %q, want it to contain %q", err, tc.want)
			}
		})
	}
}
