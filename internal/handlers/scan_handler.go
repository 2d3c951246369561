package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/scanner"
)

const billField = "bill"

// ScanHandler reads bills through a BillScanner.
type ScanHandler struct {
	scanner  scanner.BillScanner
	maxBytes int64
}

// NewScanHandler creates a new ScanHandler accepting uploads up to maxBytes.
func NewScanHandler(s scanner.BillScanner, maxBytes int64) *ScanHandler {
	return &ScanHandler{scanner: s, maxBytes: maxBytes}
}

// ScanBill extracts amount, merchant and category from a bill image
// @Summary     Scan a bill
// @Description Read a photographed bill. The result is a suggestion; nothing is recorded.
// @Tags        expenses
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       bill formData file true "Bill image (jpeg, png or webp)"
// @Success     200 {object} scanner.ScanResult "Extracted fields"
// @Failure     400 {object} ErrorResponse "Missing or invalid image"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     502 {object} ErrorResponse "Scanner failed"
// @Router      /expenses/scan [post]
func (h *ScanHandler) ScanBill(c *gin.Context) {
	if _, err := getUserID(c); err != nil {
		respondWithError(c, err)
		return
	}

	// Leave room for the multipart envelope around the file.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+64<<10)

	header, err := c.FormFile(billField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Image is too large"))
			return
		}
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "No image uploaded"))
		return
	}
	if header.Size > h.maxBytes {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Image is too large"))
		return
	}

	file, err := header.Open()
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	mimeType := http.DetectContentType(image)
	if !scanner.AllowedMimeTypes[mimeType] {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Unsupported image type "+mimeType))
		return
	}

	result, err := h.scanner.Extract(c.Request.Context(), image, mimeType)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
