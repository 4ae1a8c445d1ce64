// File: internal/claim/vocabulary.go
package claim

import "strings"

// alreadyGrantedVocabulary is the fixed, case-insensitive vocabulary marking
// a control whose benefit was previously obtained. A control carrying any of
// these before activation is never activated.
var alreadyGrantedVocabulary = []string{
	"claimed",
	"collected",
	"redeemed",
	"received",
	"already",
	"owned",
	"in library",
}

// successIndicators mark a post-activation text that confirms a grant even
// when it does not use the already-granted wording.
var successIndicators = []string{
	"success",
	"congrat",
	"thank",
	"added",
}

func containsAny(text string, vocabulary []string) bool {
	lower := strings.ToLower(text)
	for _, word := range vocabulary {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// Granted reports whether text matches the already-granted vocabulary.
func Granted(text string) bool { return containsAny(text, alreadyGrantedVocabulary) }

// successful reports whether text carries an explicit success indicator.
func successful(text string) bool { return containsAny(text, successIndicators) }
