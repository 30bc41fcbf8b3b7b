package extraction

import (
	"strings"

	"github.com/castlemilk/pledger/backend/internal/ledger"
)

// candidateKeys are the keys the model must return, in prompt order.
var candidateKeys = []string{"amount", "name", "date", "description", "category"}

// ReceiptPrompt is the fixed instruction sent with every receipt image.
func ReceiptPrompt() string {
	names := make([]string, 0, len(ledger.Categories))
	for _, c := range ledger.Categories {
		names = append(names, string(c))
	}

	var b strings.Builder
	b.WriteString("You are reading a photo of a bill or receipt. Extract the expense it records.\n")
	b.WriteString("Return ONLY one JSON object, with no surrounding text, with exactly these keys:\n")
	b.WriteString(`{"amount": 0.00, "name": "", "date": "", "description": "", "category": ""}` + "\n")
	b.WriteString("Rules:\n")
	b.WriteString("- amount: the total paid, as a number without currency symbols\n")
	b.WriteString("- name: the merchant or biller name\n")
	b.WriteString("- date: the calendar date of the bill as printed, e.g. 05 January 2025\n")
	b.WriteString("- description: a short description of what was bought or billed\n")
	b.WriteString("- category: exactly one of " + strings.Join(names, ", ") + "\n")
	return b.String()
}
