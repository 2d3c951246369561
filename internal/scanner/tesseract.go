package scanner

import (
	"bytes"
	"context"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// minOCRHeight is the height small images are upscaled to before OCR.
const minOCRHeight = 1300

// Tesseract reads the bill locally with Tesseract OCR.
type Tesseract struct {
	language string
}

// NewTesseract creates a Tesseract scanner for English text.
func NewTesseract() *Tesseract {
	return &Tesseract{language: "eng"}
}

// Extract implements BillScanner.
func (t *Tesseract) Extract(ctx context.Context, image []byte, _ string) (*ScanResult, error) {
	prepared, err := preprocess(image)
	if err != nil {
		return nil, scanFailed(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, scanFailed(err)
	}

	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(t.language); err != nil {
		return nil, scanFailed(err)
	}
	if err := client.SetImageFromBytes(prepared); err != nil {
		return nil, scanFailed(err)
	}
	text, err := client.Text()
	if err != nil {
		return nil, scanFailed(err)
	}

	result, err := ParseText(text)
	if err != nil {
		return nil, scanFailed(err)
	}
	return result, nil
}

// preprocess converts the image to high-contrast grayscale PNG.
func preprocess(image []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(image), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	gray := imaging.Grayscale(img)
	gray = imaging.AdjustContrast(gray, 15)
	gray = imaging.Sharpen(gray, 0.7)
	if gray.Bounds().Dy() < minOCRHeight {
		gray = imaging.Resize(gray, 0, minOCRHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, gray, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
