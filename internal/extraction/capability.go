package extraction

import "context"

// Request is one call to a vision-capable model: an instruction plus the image.
type Request struct {
	Prompt string
	Image  EncodedImage
}

// Capability is an external model that reads a receipt image and answers
// with text, expected to hold a JSON object.
type Capability interface {
	Extract(ctx context.Context, req Request) (string, error)
}
