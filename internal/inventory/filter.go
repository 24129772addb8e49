package inventory

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/stockpiled/stockpile/internal/domain"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldString lowercases and strips diacritics so "Crème" matches "creme".
func foldString(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Filter returns the products whose name contains text or whose stringified
// ref contains text. Matching is case- and accent-insensitive. An empty
// text returns the input unchanged.
func Filter(products []domain.Product, text string) []domain.Product {
	if text == "" {
		return products
	}

	needle := foldString(text)
	matched := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(foldString(p.Name), needle) ||
			strings.Contains(strconv.FormatInt(p.Ref, 10), text) {
			matched = append(matched, p)
		}
	}
	return matched
}
