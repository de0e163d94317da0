package qrcode

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/otpdeck/otpdeck/internal/otpauth"
)

const testURI = "otpauth://totp/TestService:testuser@example.com?secret=JBSWY3DPEHPK3PXP&issuer=TestService"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	data, err := Encode(testURI, 256)
	if err != nil {
		t.Fatalf("Encode() unexpected error = %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode() unexpected error = %v", err)
	}
	if img.Bounds().Dx() != 256 {
		t.Errorf("Expected 256px wide image, got %d", img.Bounds().Dx())
	}

	text, err := DecodeImage(img)
	if err != nil {
		t.Fatalf("DecodeImage() unexpected error = %v", err)
	}
	if text != testURI {
		t.Errorf("DecodeImage() = %q, want %q", text, testURI)
	}
}

func TestWriteFileScanFile(t *testing.T) {
	key, err := otpauth.Parse(testURI)
	if err != nil {
		t.Fatalf("otpauth.Parse() unexpected error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "entry.png")
	if err := WriteFile(path, key, 0); err != nil {
		t.Fatalf("WriteFile() unexpected error = %v", err)
	}

	scanned, err := ScanFile(path)
	if err != nil {
		t.Fatalf("ScanFile() unexpected error = %v", err)
	}
	if *scanned != *key {
		t.Errorf("ScanFile() = %+v, want %+v", *scanned, *key)
	}
}

func TestScanFileNotProvisioningURI(t *testing.T) {
	data, err := Encode("https://example.com/not-a-secret", 200)
	if err != nil {
		t.Fatalf("Encode() unexpected error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "url.png")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile() unexpected error = %v", err)
	}

	_, err = ScanFile(path)
	if !errors.Is(err, otpauth.ErrMalformedURI) {
		t.Errorf("ScanFile() error = %v, want %v", err, otpauth.ErrMalformedURI)
	}
}

func TestDecodeFile(t *testing.T) {
	tests := map[string]struct {
		setup   func(t *testing.T) string
		wantErr bool
		errMsg  string
	}{
		"file not found": {
			setup: func(t *testing.T) string {
				return "/nonexistent/file.png"
			},
			wantErr: true,
			errMsg:  "failed to open image file",
		},
		"invalid png file": {
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "invalid.png")
				if err := os.WriteFile(path, []byte("not a png file"), 0o600); err != nil {
					t.Fatal(err)
				}
				return path
			},
			wantErr: true,
			errMsg:  "failed to decode image",
		},
		"blank image": {
			setup: func(t *testing.T) string {
				img := image.NewGray(image.Rect(0, 0, 64, 64))
				for i := range img.Pix {
					img.Pix[i] = 0xff
				}
				var buf bytes.Buffer
				if err := png.Encode(&buf, img); err != nil {
					t.Fatal(err)
				}
				path := filepath.Join(t.TempDir(), "blank.png")
				if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
					t.Fatal(err)
				}
				return path
			},
			wantErr: true,
			errMsg:  "failed to decode QR code",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeFile(tt.setup(t))

			if (err != nil) != tt.wantErr {
				t.Errorf("DecodeFile() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if tt.wantErr && tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Expected error containing %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

// createCheckerboard returns an image with a QR-like pattern that holds no code
func createCheckerboard() image.Image {
	img := image.NewGray(image.Rect(0, 0, 100, 100))

	for x := 0; x < 100; x++ {
		for y := 0; y < 100; y++ {
			if (x/10+y/10)%2 == 0 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}

	return img
}

func TestDecodeImage(t *testing.T) {
	tests := map[string]struct {
		image  image.Image
		errMsg string
	}{
		"invalid qr pattern": {
			image:  createCheckerboard(),
			errMsg: "failed to decode QR code",
		},
		"empty image": {
			image:  image.NewGray(image.Rect(0, 0, 0, 0)),
			errMsg: "dimensions",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeImage(tt.image)
			if err == nil {
				t.Fatal("DecodeImage() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Expected error containing %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	out, err := Terminal(testURI)
	if err != nil {
		t.Fatalf("Terminal() unexpected error = %v", err)
	}

	if !strings.ContainsAny(out, "█▀▄") {
		t.Error("Terminal() output has no block characters")
	}
	if lines := strings.Count(out, "\n"); lines < 10 {
		t.Errorf("Terminal() output has %d lines, want a full symbol", lines)
	}
	if strings.Contains(out, "JBSWY3DPEHPK3PXP") {
		t.Error("Terminal() output leaks the secret as text")
	}
}
