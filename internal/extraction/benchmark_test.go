// Benchmarks for the CPU-bound parts of receipt extraction (image
// normalization, reply parsing, merchant cleanup). They use synthetic data and
// a scripted capability, so no network access is needed.
//
// Usage:
//
//	go test ./internal/extraction/... -bench=. -benchmem
//
//	# Compare two commits (requires benchstat):
//	go test ./internal/extraction/... -bench=. -count=6 -benchtime=3s | tee before.txt
//	go test ./internal/extraction/... -bench=. -count=6 -benchtime=3s | tee after.txt
//	benchstat before.txt after.txt
package extraction

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/rs/zerolog"
)

// syntheticReceipt renders a w×h receipt-like PNG with a translucent border.
func syntheticReceipt(b *testing.B, w, h int) []byte {
	b.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := uint8(255)
			if x < 8 || y < 8 {
				a = 90
			}
			shade := uint8(230 - (y%24)*4)
			img.Set(x, y, color.NRGBA{R: shade, G: shade, B: shade, A: a})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		b.Fatal(err)
	}
	return buf.Bytes()
}

// syntheticReply wraps a reply the way models often do: prose and a fence.
func syntheticReply(i int) string {
	merchants := []string{"WOOLWORTHS 1234", "SQ *CORNER CAFE", "VISA*NETFLIX.COM", "COLES SUPERMARKET", "ORIGIN ENERGY"}
	categories := []string{"Groceries", "Other", "Entertainment", "grocery", "Utilities"}
	return fmt.Sprintf("Here is the data:\n```json\n{\"amount\": \"$%d.%02d\", \"name\": %q, \"date\": \"%02d March 2025\", \"description\": \"purchase {#%d}\", \"category\": %q}\n```",
		10+i%90, i%100, merchants[i%len(merchants)], 1+i%28, i, categories[i%len(categories)])
}

func BenchmarkNormalize(b *testing.B) {
	sizes := []struct{ w, h int }{{640, 480}, {1600, 1200}, {3024, 4032}}
	n := NewNormalizer(DefaultMaxDimension, DefaultJPEGQuality)
	for _, s := range sizes {
		raw := syntheticReceipt(b, s.w, s.h)
		b.Run(fmt.Sprintf("%dx%d", s.w, s.h), func(b *testing.B) {
			b.SetBytes(int64(len(raw)))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := n.Normalize(raw); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkParseCandidate(b *testing.B) {
	replies := make([]string, 64)
	for i := range replies {
		replies[i] = syntheticReply(i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := parseCandidate(replies[i%len(replies)]); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCleanMerchantName(b *testing.B) {
	names := []string{"WOOLWORTHS 1234", "SQ *CORNER CAFE", "VISA*NETFLIX.COM", "PAYPAL *STEAM GAMES", "Fresh Market"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		CleanMerchantName(names[i%len(names)])
	}
}

func BenchmarkExtractExpense_EndToEnd(b *testing.B) {
	raw := syntheticReceipt(b, 1600, 1200)
	n := NewNormalizer(DefaultMaxDimension, DefaultJPEGQuality)
	capability := &fakeCapability{replies: []fakeReply{{text: syntheticReply(7)}}}
	svc := NewExtractionService(capability, Config{}, zerolog.Nop())
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		img, err := n.Normalize(raw)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := svc.ExtractExpense(ctx, img); err != nil {
			b.Fatal(err)
		}
	}
}
