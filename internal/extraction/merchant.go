package extraction

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// Patterns for cleaning merchant names
	prefixPattern = regexp.MustCompile(`(?i)^(pos |eftpos |visa |mastercard |amex |paypal \*|sq \*)`)
	longNumbers   = regexp.MustCompile(`\d{6,}`)
	specialChars  = regexp.MustCompile(`[*#]+`)
)

// CleanMerchantName strips card-terminal noise from a merchant name. Names
// printed entirely in capitals are title-cased; anything else keeps its casing.
func CleanMerchantName(raw string) string {
	cleaned := prefixPattern.ReplaceAllString(strings.TrimSpace(raw), "")
	cleaned = longNumbers.ReplaceAllString(cleaned, "")
	cleaned = specialChars.ReplaceAllString(cleaned, "")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return strings.TrimSpace(raw)
	}

	if isShouting(cleaned) {
		caser := cases.Title(language.English)
		words := strings.Fields(cleaned)
		for i, word := range words {
			if len(word) > 2 {
				words[i] = caser.String(strings.ToLower(word))
			}
		}
		cleaned = strings.Join(words, " ")
	}
	return cleaned
}

func isShouting(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters > 3
}
