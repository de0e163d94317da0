// Package otpauth parses and builds otpauth:// provisioning URIs, the
// payload of authenticator QR codes:
//
//	otpauth://TYPE/LABEL?secret=BASE32SECRET&issuer=...&algorithm=SHA1&digits=6&period=30
//
// Only the secret parameter is required. The secret is returned as found;
// checking that it decodes is left to the totp package.
package otpauth

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/otpdeck/otpdeck/internal/totp"
)

// Scheme is the URI scheme of provisioning URIs
const Scheme = "otpauth"

// ErrMalformedURI is returned for input that is not a usable provisioning URI
var ErrMalformedURI = errors.New("otpauth: malformed provisioning URI")

// Key is the content of a provisioning URI
type Key struct {
	Type        string // "totp" or "hotp", lowercased
	Label       string // decoded path label, e.g. "Example:alice@example.com"
	Secret      string
	Issuer      string
	AccountName string
	Algorithm   totp.Algorithm // empty when absent
	Digits      int            // zero when absent
	Period      uint           // zero when absent
}

// Parse extracts the secret and label from a provisioning URI. It fails with
// ErrMalformedURI when the input does not parse as a URI, the scheme is not
// otpauth, the secret parameter is missing or empty, or the label holds
// malformed percent-encoding.
func Parse(raw string) (*Key, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedURI, err)
	}

	if !strings.EqualFold(u.Scheme, Scheme) {
		return nil, fmt.Errorf("%w: not an otpauth URL", ErrMalformedURI)
	}

	query := u.Query()
	secret := query.Get("secret")
	if secret == "" {
		return nil, fmt.Errorf("%w: no secret found", ErrMalformedURI)
	}

	typ, escapedLabel := u.Host, strings.TrimPrefix(u.EscapedPath(), "/")
	if u.Opaque != "" {
		// otpauth:totp/LABEL without the authority slashes
		typ, escapedLabel, _ = strings.Cut(strings.TrimPrefix(u.Opaque, "//"), "/")
	}

	label, err := url.PathUnescape(escapedLabel)
	if err != nil {
		return nil, fmt.Errorf("%w: bad label encoding: %v", ErrMalformedURI, err)
	}

	key := &Key{
		Type:      strings.ToLower(typ),
		Label:     label,
		Secret:    secret,
		Issuer:    query.Get("issuer"),
		Algorithm: totp.Algorithm(strings.ToUpper(query.Get("algorithm"))),
	}

	// If the label contains a colon it is in the form "issuer:account"
	key.AccountName = label
	if prefix, account, ok := strings.Cut(label, ":"); ok {
		if key.Issuer == "" {
			key.Issuer = prefix
		}
		key.AccountName = strings.TrimLeft(account, " ")
	}

	// Unparseable optional parameters are ignored rather than rejected
	if d, err := strconv.Atoi(query.Get("digits")); err == nil && d > 0 {
		key.Digits = d
	}
	if p, err := strconv.ParseUint(query.Get("period"), 10, 32); err == nil && p > 0 {
		key.Period = uint(p)
	}

	return key, nil
}

// ExtractSecret returns only the secret of a provisioning URI
func ExtractSecret(raw string) (string, error) {
	key, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return key.Secret, nil
}

// Options returns the generation options the URI asks for, falling back to
// the defaults for anything it leaves out
func (k *Key) Options() totp.Options {
	opts := totp.DefaultOptions()
	if k.Algorithm != "" {
		opts.Algorithm = k.Algorithm
	}
	if k.Digits != 0 {
		opts.Digits = k.Digits
	}
	if k.Period != 0 {
		opts.Period = k.Period
	}
	return opts
}

// String builds the provisioning URI for the key
func (k *Key) String() string {
	typ := k.Type
	if typ == "" {
		typ = "totp"
	}

	label := k.Label
	if label == "" && k.AccountName != "" {
		label = k.AccountName
		if k.Issuer != "" {
			label = k.Issuer + ":" + k.AccountName
		}
	}

	v := url.Values{}
	v.Set("secret", k.Secret)
	if k.Issuer != "" {
		v.Set("issuer", k.Issuer)
	}
	if k.Algorithm != "" {
		v.Set("algorithm", string(k.Algorithm))
	}
	if k.Digits != 0 {
		v.Set("digits", strconv.Itoa(k.Digits))
	}
	if k.Period != 0 {
		v.Set("period", strconv.FormatUint(uint64(k.Period), 10))
	}

	u := url.URL{
		Scheme:   Scheme,
		Host:     typ,
		Path:     "/" + label,
		RawPath:  "/" + url.PathEscape(label),
		RawQuery: v.Encode(),
	}
	return u.String()
}
