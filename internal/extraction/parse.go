package extraction

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/castlemilk/pledger/backend/internal/ledger"
	"github.com/shopspring/decimal"
)

// Candidate is an expense read off a receipt, awaiting user review. Date is
// passed through exactly as the model wrote it.
type Candidate struct {
	Amount      decimal.Decimal `json:"amount"`
	Name        string          `json:"name"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Category    ledger.Category `json:"category"`
}

// extractJSON returns the first balanced JSON object in text, skipping braces
// inside string literals. Markdown fences and prose around it are ignored.
func extractJSON(text string) (string, error) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if start != -1 {
				inString = true
			}
		case '{':
			if start == -1 {
				start = i
			}
			depth++
		case '}':
			if start == -1 {
				continue
			}
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("no JSON object found in response")
}

// parseCandidate validates a model reply into a Candidate.
func parseCandidate(text string) (*Candidate, error) {
	obj, err := extractJSON(text)
	if err != nil {
		return nil, &ExtractionError{Code: ErrMalformedResponse, Message: "model reply is not JSON", Cause: err}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		return nil, &ExtractionError{Code: ErrMalformedResponse, Message: "model reply is not a JSON object", Cause: err}
	}

	var missing []string
	for _, key := range candidateKeys {
		if _, ok := fields[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, &ExtractionError{
			Code:    ErrIncompleteResponse,
			Message: "model reply is missing " + strings.Join(missing, ", "),
		}
	}

	amount, err := coerceAmount(fields["amount"])
	if err != nil {
		return nil, &ExtractionError{Code: ErrInvalidAmount, Message: "model reply has a non-numeric amount", Cause: err}
	}

	return &Candidate{
		Amount:      amount,
		Name:        CleanMerchantName(stringField(fields["name"])),
		Date:        stringField(fields["date"]),
		Description: strings.TrimSpace(stringField(fields["description"])),
		Category:    ledger.ParseCategory(stringField(fields["category"])),
	}, nil
}

// stringField reads a JSON string, falling back to the literal text for
// numbers and the empty string for null.
func stringField(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	lit := strings.TrimSpace(string(raw))
	if lit == "null" {
		return ""
	}
	return lit
}

// coerceAmount accepts a JSON number or a numeric string such as "$1,234.50".
// The sign is dropped since receipts report spend as a positive total.
func coerceAmount(raw json.RawMessage) (decimal.Decimal, error) {
	lit := strings.TrimSpace(string(raw))
	if lit == "" || lit == "null" || lit == "true" || lit == "false" {
		return decimal.Zero, fmt.Errorf("amount is %q", lit)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		lit = cleanAmount(s)
	}
	if lit == "" {
		return decimal.Zero, fmt.Errorf("amount has no digits")
	}

	d, err := decimal.NewFromString(lit)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Abs(), nil
}

// cleanAmount strips currency symbols, spaces and thousands separators. When
// both '.' and ',' appear the later one is the decimal mark. A lone comma
// followed by one or two digits is a decimal comma, and repeated dots are
// grouping.
func cleanAmount(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}
	out := b.String()

	dot, comma := strings.LastIndex(out, "."), strings.LastIndex(out, ",")
	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			out = strings.ReplaceAll(out, ".", "")
			out = strings.Replace(out, ",", ".", 1)
		} else {
			out = strings.ReplaceAll(out, ",", "")
		}
	case comma >= 0:
		if strings.Count(out, ",") == 1 && len(out)-comma-1 <= 2 {
			out = strings.Replace(out, ",", ".", 1)
		} else {
			out = strings.ReplaceAll(out, ",", "")
		}
	case strings.Count(out, ".") > 1:
		out = strings.ReplaceAll(out, ".", "")
	}
	return strings.Trim(out, ".")
}
