// Package backup reads and writes portable vault exports. An export is a
// JSON list of named provisioning URIs, zstd-compressed and base64 armoured
// so it survives copy and paste.
//
// Exports are not encrypted: anyone holding the file holds the secrets.
package backup

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/otpdeck/otpdeck/internal/otpauth"
	"github.com/otpdeck/otpdeck/internal/totp"
	"github.com/otpdeck/otpdeck/internal/vault"
)

// FormatVersion is written into every export
const FormatVersion = 1

// ErrInvalidBackup is returned when the input is not a readable export
var ErrInvalidBackup = errors.New("backup: invalid backup")

var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Record is one exported entry
type Record struct {
	Name string `json:"name"`
	URI  string `json:"uri"`
}

type document struct {
	Version int      `json:"version"`
	Entries []Record `json:"entries"`
}

// RecordError describes a record that was skipped on import
type RecordError struct {
	Index int
	Name  string
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d (%q): %v", e.Index, e.Name, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Export writes entries to w
func Export(w io.Writer, entries []vault.Entry) error {
	doc := document{Version: FormatVersion, Entries: make([]Record, 0, len(entries))}
	for _, e := range entries {
		doc.Entries = append(doc.Entries, Record{Name: e.Name, URI: e.Key().String()})
	}

	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	comp := zstdEncoder.EncodeAll(jsonData, nil)

	enc := base64.NewEncoder(base64.StdEncoding, w)
	if _, err := enc.Write(comp); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}

	_, err = io.WriteString(w, "\n")
	return err
}

// Import reads an export. Every record is parsed and its secret checked;
// records that fail are returned as RecordErrors alongside the entries that
// passed. The error result is only set when the input itself is unreadable.
func Import(r io.Reader) ([]vault.Entry, []*RecordError, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read backup: %w", err)
	}

	comp, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: not base64: %v", ErrInvalidBackup, err)
	}

	// Plain JSON is accepted so hand-written imports work
	jsonData := comp
	if bytes.HasPrefix(comp, zstdMagic) {
		jsonData, err = zstdDecoder.DecodeAll(comp, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: failed to decompress: %v", ErrInvalidBackup, err)
		}
	}

	var doc document
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: failed to parse: %v", ErrInvalidBackup, err)
	}
	if doc.Version != FormatVersion {
		return nil, nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidBackup, doc.Version)
	}

	var (
		entries []vault.Entry
		skipped []*RecordError
	)
	for i, rec := range doc.Entries {
		e, err := decodeRecord(rec)
		if err != nil {
			skipped = append(skipped, &RecordError{Index: i, Name: rec.Name, Err: err})
			continue
		}
		entries = append(entries, e)
	}

	return entries, skipped, nil
}

func decodeRecord(rec Record) (vault.Entry, error) {
	key, err := otpauth.Parse(rec.URI)
	if err != nil {
		return vault.Entry{}, err
	}

	// Same check as totp.IsValidSecret, under the record's own options
	if _, err := totp.GenerateCustom(key.Secret, time.Now(), key.Options()); err != nil {
		return vault.Entry{}, err
	}

	e := vault.EntryFromKey(strings.TrimSpace(rec.Name), key)
	if e.Name == "" {
		return vault.Entry{}, fmt.Errorf("%w: no name or label", vault.ErrInvalidEntry)
	}
	return e, nil
}
