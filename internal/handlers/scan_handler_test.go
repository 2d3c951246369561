package handlers

import (
	"bytes"
	"context"
	"image/color"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/scanner"
)

type mockScanner struct {
	extractFn func(image []byte, mimeType string) (*scanner.ScanResult, error)
}

func (m *mockScanner) Extract(_ context.Context, image []byte, mimeType string) (*scanner.ScanResult, error) {
	if m.extractFn != nil {
		return m.extractFn(image, mimeType)
	}
	return &scanner.ScanResult{}, nil
}

var _ scanner.BillScanner = (*mockScanner)(nil)

func setupScanRouter(handler *ScanHandler) *gin.Engine {
	r := gin.New()
	r.POST("/expenses/scan", injectUserID(testUserID), handler.ScanBill)
	return r
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := imaging.New(8, 8, color.White)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func doUpload(t *testing.T, r *gin.Engine, field string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if content != nil {
		part, err := w.CreateFormFile(field, "bill.png")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/expenses/scan", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestScanHandler_ScanBill(t *testing.T) {
	t.Run("returns extracted fields", func(t *testing.T) {
		s := &mockScanner{
			extractFn: func(image []byte, mimeType string) (*scanner.ScanResult, error) {
				if mimeType != "image/png" {
					t.Errorf("expected image/png, got %s", mimeType)
				}
				return &scanner.ScanResult{Amount: 1250, Merchant: "Corner Shop", Category: "Groceries"}, nil
			},
		}
		r := setupScanRouter(NewScanHandler(s, 1<<20))

		rec := doUpload(t, r, billField, pngBytes(t))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["amount"].(float64) != 1250 || result["merchant"] != "Corner Shop" || result["category"] != "Groceries" {
			t.Errorf("unexpected result %v", result)
		}
	})

	t.Run("returns 400 without a file", func(t *testing.T) {
		r := setupScanRouter(NewScanHandler(&mockScanner{}, 1<<20))

		rec := doUpload(t, r, billField, nil)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("rejects non-image content", func(t *testing.T) {
		r := setupScanRouter(NewScanHandler(&mockScanner{}, 1<<20))

		rec := doUpload(t, r, billField, []byte("just some plain text"))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("rejects oversized upload", func(t *testing.T) {
		r := setupScanRouter(NewScanHandler(&mockScanner{}, 16))

		rec := doUpload(t, r, billField, pngBytes(t))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("passes scanner errors through", func(t *testing.T) {
		s := &mockScanner{
			extractFn: func([]byte, string) (*scanner.ScanResult, error) {
				return nil, apperrors.ErrScannerDisabled
			},
		}
		r := setupScanRouter(NewScanHandler(s, 1<<20))

		rec := doUpload(t, r, billField, pngBytes(t))

		if rec.Code != apperrors.ErrScannerDisabled.StatusCode {
			t.Fatalf("expected %d, got %d", apperrors.ErrScannerDisabled.StatusCode, rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "SCANNER_DISABLED")
	})
}
