package extraction

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultGeminiModel is used when no model name is configured.
const DefaultGeminiModel = "gemini-1.5-flash"

// GeminiCapability reads receipts with a Gemini model.
type GeminiCapability struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
}

// NewGeminiCapability creates a Gemini client for modelName using apiKey.
func NewGeminiCapability(ctx context.Context, apiKey, modelName string) (*GeminiCapability, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key not configured")
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.1)
	model.SetMaxOutputTokens(1024)
	model.ResponseMIMEType = "application/json"

	return &GeminiCapability{client: client, model: model, modelName: modelName}, nil
}

// Model returns the configured model name.
func (g *GeminiCapability) Model() string {
	return g.modelName
}

// Extract sends the prompt and image and returns the model's text reply.
func (g *GeminiCapability) Extract(ctx context.Context, req Request) (string, error) {
	data, err := req.Image.Bytes()
	if err != nil {
		return "", &ImageError{Reason: "image payload is not base64", Cause: err}
	}

	resp, err := g.model.GenerateContent(ctx,
		genai.Text(req.Prompt),
		genai.Blob{MIMEType: req.Image.MIMEType, Data: data},
	)
	if err != nil {
		return "", classifyGeminiError(err)
	}
	return responseText(resp)
}

// Close releases the underlying client.
func (g *GeminiCapability) Close() error {
	return g.client.Close()
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", &ExtractionError{Code: ErrMalformedResponse, Message: "no response from Gemini"}
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", &ExtractionError{Code: ErrMalformedResponse, Message: "Gemini reply has no text"}
	}
	return b.String(), nil
}

// classifyGeminiError converts Gemini client errors to ExtractionErrors.
func classifyGeminiError(err error) *ExtractionError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ExtractionError{Code: ErrCapabilityTimeout, Message: "Gemini API timed out", Retryable: true, Cause: err}
	}

	code := 0
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		code = apiErr.Code
	}

	switch {
	case code == http.StatusTooManyRequests || status.Code(err) == codes.ResourceExhausted:
		return &ExtractionError{Code: ErrRateLimited, Message: "Gemini API rate limited", Retryable: true, Cause: err}
	case code >= 500 || status.Code(err) == codes.Unavailable:
		return &ExtractionError{Code: ErrCapabilityUnavailable, Message: "Gemini API unavailable", Retryable: true, Cause: err}
	default:
		return &ExtractionError{Code: ErrCapabilityUnavailable, Message: "Gemini API request failed", Retryable: false, Cause: err}
	}
}
