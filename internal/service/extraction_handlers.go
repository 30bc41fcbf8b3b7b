package service

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/castlemilk/pledger/backend/internal/extraction"
	"github.com/castlemilk/pledger/backend/internal/ledger"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// uploadResponse is the reviewed-by-user candidate. It is never persisted
// here; the client posts it to /expense once confirmed.
type uploadResponse struct {
	*extraction.Candidate
	ReceiptRef string `json:"receipt_ref,omitempty"`
}

// uploadReceipt normalizes the upload, stages the raw bytes once they are
// known to be an image, and asks the extractor for a candidate expense. The
// userId query parameter is optional and only scopes the staged object.
func (s *FinanceService) uploadReceipt(c *gin.Context) {
	if s.extractor == nil || s.normalizer == nil || !s.extractor.IsEnabled() {
		writeError(c, errExtractionDisabled)
		return
	}
	userID := c.Query("userId")

	data, filename, contentType, err := s.readUpload(c)
	if err != nil {
		writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	log := zerolog.Ctx(ctx).With().Str("user_id", userID).Logger()

	img, err := s.normalizer.Normalize(data)
	if err != nil {
		writeError(c, err)
		return
	}

	var ref string
	if s.stager != nil {
		ref, err = s.stager.Stage(ctx, userID, filename, contentType, data)
		if err != nil {
			// Staging is best effort; extraction does not depend on it.
			log.Warn().Err(err).Str("filename", filename).Msg("failed to stage receipt")
			ref = ""
		}
	}

	candidate, err := s.extractor.ExtractExpense(ctx, img)
	if err != nil {
		writeError(c, err)
		return
	}

	log.Info().Str("receipt_ref", ref).Int("bytes", len(data)).Msg("receipt extracted")
	c.JSON(http.StatusOK, uploadResponse{Candidate: candidate, ReceiptRef: ref})
}

func (s *FinanceService) readUpload(c *gin.Context) (data []byte, filename, contentType string, err error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", "", &ledger.ValidationError{
				Field:   "file",
				Message: fmt.Sprintf("upload exceeds %d bytes", s.maxUpload),
			}
		}
		return nil, "", "", &ledger.ValidationError{Field: "file", Message: "Missing 'file' in upload"}
	}
	if fh.Size > s.maxUpload {
		return nil, "", "", &ledger.ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("upload exceeds %d bytes", s.maxUpload),
		}
	}

	f, err := fh.Open()
	if err != nil {
		return nil, "", "", &extraction.ImageError{Reason: "cannot open upload", Cause: err}
	}
	defer f.Close()

	data, err = io.ReadAll(f)
	if err != nil {
		return nil, "", "", &extraction.ImageError{Reason: "cannot read upload", Cause: err}
	}
	return data, fh.Filename, fh.Header.Get("Content-Type"), nil
}
