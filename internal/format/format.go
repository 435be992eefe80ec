// Package format renders values for Brazilian Portuguese readers.
package format

import (
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"elevadorpro/pkg/domain"
)

// Placeholder is shown for missing or unparseable values.
const Placeholder = "-"

var printer = message.NewPrinter(language.BrazilianPortuguese)

// Money formats v as whole reais, e.g. "R$ 1.500".
func Money(v float64) string {
	return "R$ " + printer.Sprint(number.Decimal(v, number.MaxFractionDigits(0)))
}

// Decimal formats v with pt-BR separators and up to two fraction digits.
func Decimal(v float64) string {
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

// Date formats an ISO-like date string as dd/mm/yyyy.
func Date(s string) string {
	t, ok := domain.ParseDate(s)
	if !ok {
		return Placeholder
	}
	return t.Format("02/01/2006")
}

// Fold lowercases s and strips diacritics so "Negociação" matches
// "negociacao".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
