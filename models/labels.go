package models

import (
	"regexp"
	"strings"
)

var (
	punctuation = regexp.MustCompile(`[(),]`)
	whitespace  = regexp.MustCompile(`[\s\v\p{Zs}\x{2028}\x{2029}\x{feff}]+`)
	wordStart   = regexp.MustCompile(`\b\w`)
)

// FormatLabel turns a machine key into a display label.
//
// Underscores and the characters "(", ")" and "," become spaces, whitespace runs collapse to a
// single space (Unicode space separators included), the result is trimmed and the first character of every word is upper-cased.
// Letters after a hyphen start a new word. The rest of each word is left as is, so
// "Tomato_Yellow_Leaf_Curl_Virus" and "Leaf_Mold" keep their capitals. FormatLabel is
// idempotent.
//
// Example:
//
//	FormatLabel("Spider_mites Two-spotted_spider_mite") // "Spider Mites Two-Spotted Spider Mite"
func FormatLabel(id string) string {
	s := strings.ReplaceAll(id, "_", " ")
	s = punctuation.ReplaceAllString(s, " ")
	s = whitespace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return wordStart.ReplaceAllStringFunc(s, strings.ToUpper)
}

// CommonName is the display name of a class: the species label followed by the disease label.
// It is also the key treatments are stored under.
func CommonName(species SpeciesID, disease DiseaseID) string {
	return FormatLabel(string(species)) + " " + FormatLabel(string(disease))
}
