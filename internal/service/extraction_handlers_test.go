package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/castlemilk/pledger/backend/internal/blob"
	"github.com/castlemilk/pledger/backend/internal/extraction"
	"github.com/castlemilk/pledger/backend/internal/ledger"
	"github.com/castlemilk/pledger/backend/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	enabled   bool
	candidate *extraction.Candidate
	err       error
	got       []extraction.EncodedImage
}

func (f *fakeExtractor) IsEnabled() bool { return f.enabled }

func (f *fakeExtractor) ExtractExpense(_ context.Context, img extraction.EncodedImage) (*extraction.Candidate, error) {
	f.got = append(f.got, img)
	return f.candidate, f.err
}

type failingStager struct{}

func (failingStager) Stage(context.Context, string, string, string, []byte) (string, error) {
	return "", errors.New("bucket unavailable")
}

func receiptPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		for y := 0; y < 20; y++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 200, B: 200, A: 128})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func uploadRequest(t *testing.T, path, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func groceryCandidate() *extraction.Candidate {
	return &extraction.Candidate{
		Amount:      decimal.RequireFromString("23.95"),
		Name:        "Fresh Market",
		Date:        "2025-03-14",
		Description: "groceries",
		Category:    ledger.CategoryGroceries,
	}
}

func TestUploadReceipt(t *testing.T) {
	x := &fakeExtractor{enabled: true, candidate: groceryCandidate()}
	stager := blob.NewMemoryStager()
	r := newTestRouter(store.NewMemoryStore(),
		WithExtraction(extraction.NewNormalizer(800, 85), x),
		WithStager(stager),
	)

	w := serve(r, uploadRequest(t, "/upload?userId=user-123", "receipt.png", receiptPNG(t)))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, 23.95, body["amount"])
	assert.Equal(t, "Fresh Market", body["name"])
	assert.Equal(t, "2025-03-14", body["date"])
	assert.Equal(t, "Groceries", body["category"])

	ref, _ := body["receipt_ref"].(string)
	assert.True(t, strings.HasPrefix(ref, "receipts/user-123/"), ref)
	assert.True(t, strings.HasSuffix(ref, ".png"), ref)
	assert.Equal(t, 1, stager.Len())

	require.Len(t, x.got, 1)
	assert.Equal(t, "image/jpeg", x.got[0].MIMEType)
}

func TestUploadReceipt_StagingFailureDoesNotBlock(t *testing.T) {
	x := &fakeExtractor{enabled: true, candidate: groceryCandidate()}
	r := newTestRouter(store.NewMemoryStore(),
		WithExtraction(extraction.NewNormalizer(800, 85), x),
		WithStager(failingStager{}),
	)

	w := serve(r, uploadRequest(t, "/upload?userId=user-123", "receipt.png", receiptPNG(t)))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotContains(t, decodeBody(t, w), "receipt_ref")
}

func TestUploadReceipt_WithoutUserID(t *testing.T) {
	x := &fakeExtractor{enabled: true, candidate: groceryCandidate()}
	stager := blob.NewMemoryStager()
	r := newTestRouter(store.NewMemoryStore(),
		WithExtraction(extraction.NewNormalizer(800, 85), x),
		WithStager(stager),
	)

	w := serve(r, uploadRequest(t, "/upload", "receipt.png", receiptPNG(t)))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "Fresh Market", body["name"])
	ref, _ := body["receipt_ref"].(string)
	assert.True(t, strings.HasPrefix(ref, "receipts/anonymous/"), ref)
	assert.Len(t, x.got, 1)
}

func TestUploadReceipt_CorruptFileIsNotStaged(t *testing.T) {
	x := &fakeExtractor{enabled: true, candidate: groceryCandidate()}
	stager := blob.NewMemoryStager()
	r := newTestRouter(store.NewMemoryStore(),
		WithExtraction(extraction.NewNormalizer(800, 85), x),
		WithStager(stager),
	)

	w := serve(r, uploadRequest(t, "/upload?userId=user-123", "receipt.png", []byte("definitely not an image")))

	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, 0, stager.Len())
	assert.Empty(t, x.got)
}

func TestUploadReceipt_Errors(t *testing.T) {
	tests := []struct {
		name     string
		x        *fakeExtractor
		opts     []Option
		path     string
		filename string
		data     []byte
		want     int
	}{
		{
			name:     "extraction disabled",
			x:        &fakeExtractor{enabled: false},
			path:     "/upload?userId=user-123",
			filename: "r.png",
			data:     receiptPNG(t),
			want:     http.StatusServiceUnavailable,
		},
		{
			name: "missing file",
			x:    &fakeExtractor{enabled: true},
			path: "/upload?userId=user-123",
			want: http.StatusBadRequest,
		},
		{
			name:     "corrupt image",
			x:        &fakeExtractor{enabled: true},
			path:     "/upload?userId=user-123",
			filename: "r.png",
			data:     []byte("definitely not an image"),
			want:     http.StatusBadRequest,
		},
		{
			name:     "upload too large",
			x:        &fakeExtractor{enabled: true},
			opts:     []Option{WithMaxUploadBytes(64)},
			path:     "/upload?userId=user-123",
			filename: "r.png",
			data:     receiptPNG(t),
			want:     http.StatusBadRequest,
		},
		{
			name: "malformed model reply",
			x: &fakeExtractor{enabled: true, err: &extraction.ExtractionError{
				Code: extraction.ErrMalformedResponse, Message: "no JSON object in response",
			}},
			path:     "/upload?userId=user-123",
			filename: "r.png",
			data:     receiptPNG(t),
			want:     http.StatusBadGateway,
		},
		{
			name: "model timeout",
			x: &fakeExtractor{enabled: true, err: &extraction.ExtractionError{
				Code: extraction.ErrCapabilityTimeout, Message: "extraction timed out", Retryable: true,
			}},
			path:     "/upload?userId=user-123",
			filename: "r.png",
			data:     receiptPNG(t),
			want:     http.StatusGatewayTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]Option{WithExtraction(extraction.NewNormalizer(800, 85), tt.x)}, tt.opts...)
			r := newTestRouter(store.NewMemoryStore(), opts...)

			w := serve(r, uploadRequest(t, tt.path, tt.filename, tt.data))

			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.NotEmpty(t, decodeBody(t, w)["error"])
		})
	}
}
