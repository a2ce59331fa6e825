// pkg/company/normalizer.go

// Package company cleans and classifies employer names scraped from third
// party job feeds before they are stored as company records.
package company

import (
	"strings"

	"github.com/RichardHenryJames/nexhire-sub010/pkg/model"
)

// MaxNameLength bounds a sanitized name, in runes
const MaxNameLength = 100

// Normalizer sanitizes and validates company names against a rule set.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	numericPrefixes []string
	shortNames      foldSet
	brandDomains    foldSet
	alphaAllowed    foldSet
	emailDomains    []string
	genericWords    foldSet
}

// NewNormalizer builds a normalizer from the given rules
func NewNormalizer(rules Rules) *Normalizer {
	return &Normalizer{
		numericPrefixes: lowerAll(rules.NumericPrefixAllowList),
		shortNames:      newFoldSet(rules.ShortNameAllowList),
		brandDomains:    newFoldSet(rules.PersonalDomainAllowList),
		alphaAllowed:    newFoldSet(rules.AlphaAllowList),
		emailDomains:    lowerAll(rules.PersonalEmailDomains),
		genericWords:    newFoldSet(rules.GenericWords),
	}
}

// Normalize sanitizes a raw name and validates the result
func (n *Normalizer) Normalize(raw string) (string, model.Verdict) {
	sanitized := n.Sanitize(raw)
	return sanitized, n.Validate(sanitized)
}

// hasNumericAllowedPrefix reports whether s starts with a name that
// legitimately begins with a number.
func (n *Normalizer) hasNumericAllowedPrefix(s string) bool {
	lower := strings.ToLower(s)
	for _, prefix := range n.numericPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

var defaultNormalizer = NewNormalizer(DefaultRules())

// Sanitize cleans a raw name with the default rules
func Sanitize(raw string) string {
	return defaultNormalizer.Sanitize(raw)
}

// IsValid validates a sanitized name with the default rules
func IsValid(name string) model.Verdict {
	return defaultNormalizer.Validate(name)
}

// Normalize sanitizes and validates a raw name with the default rules
func Normalize(raw string) (string, model.Verdict) {
	return defaultNormalizer.Normalize(raw)
}
