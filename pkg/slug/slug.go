package slug

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

	accents = strings.NewReplacer(
		"à", "a", "á", "a", "â", "a", "ä", "a", "ã", "a", "å", "a",
		"è", "e", "é", "e", "ê", "e", "ë", "e",
		"ì", "i", "í", "i", "î", "i", "ï", "i",
		"ò", "o", "ó", "o", "ô", "o", "ö", "o", "õ", "o",
		"ù", "u", "ú", "u", "û", "u", "ü", "u",
		"ñ", "n", "ç", "c", "ß", "ss", "æ", "ae", "œ", "oe",
		"&", " and ", "'", "", "’", "",
	)
)

// Generate makes a URL slug from a product or category name:
//
//	"Crème Brûlée Bites" -> "creme-brulee-bites"
//	"PB & J Muffins"     -> "pb-and-j-muffins"
//	"Baker's Dozen"      -> "bakers-dozen"
func Generate(name string) string {
	s := accents.Replace(strings.ToLower(strings.TrimSpace(name)))
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// WithSuffix appends a numeric suffix used to disambiguate duplicate slugs.
func WithSuffix(slug string, n int) string {
	if n <= 1 {
		return slug
	}
	return slug + "-" + strconv.Itoa(n)
}
