// Package qrcode reads otpauth provisioning URIs out of QR code images and
// renders entries back into QR codes for authenticator apps.
package qrcode

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoding
	_ "image/jpeg" // register JPEG decoding
	"image/png"
	"os"

	"github.com/makiuchi-d/gozxing"
	zxqrcode "github.com/makiuchi-d/gozxing/qrcode"
	goqrcode "github.com/skip2/go-qrcode"

	"github.com/otpdeck/otpdeck/internal/constants"
	"github.com/otpdeck/otpdeck/internal/otpauth"
)

// DefaultSize is the edge length in pixels of encoded QR images
const DefaultSize = 256

// DecodeFile reads an image file and returns the text of the QR code in it
func DecodeFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open image file: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	return DecodeImage(img)
}

// DecodeImage returns the text of the QR code in img
func DecodeImage(img image.Image) (string, error) {
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return "", fmt.Errorf("failed to process image for QR reading: invalid dimensions %dx%d", bounds.Dx(), bounds.Dy())
	}

	// Convert to the format required by gozxing
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("failed to process image for QR reading: %w", err)
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}

	result, err := zxqrcode.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return "", fmt.Errorf("failed to decode QR code: %w", err)
	}

	return result.GetText(), nil
}

// ScanFile decodes the QR code in an image file and parses it as a
// provisioning URI
func ScanFile(path string) (*otpauth.Key, error) {
	text, err := DecodeFile(path)
	if err != nil {
		return nil, err
	}

	key, err := otpauth.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("QR code does not hold a provisioning URI: %w", err)
	}

	return key, nil
}

// Encode renders content as a PNG QR code of size x size pixels
func Encode(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}

	qr, err := goqrcode.New(content, goqrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(size)); err != nil {
		return nil, fmt.Errorf("failed to write QR image: %w", err)
	}

	return buf.Bytes(), nil
}

// Terminal renders content as a QR code made of half-height block
// characters, small enough to scan from a terminal
func Terminal(content string) (string, error) {
	qr, err := goqrcode.New(content, goqrcode.Low)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}

	return qr.ToSmallString(false), nil
}

// WriteFile renders a key's provisioning URI into a PNG file
func WriteFile(path string, key *otpauth.Key, size int) error {
	data, err := Encode(key.String(), size)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, constants.BackupFileMode); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}
