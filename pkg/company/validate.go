// pkg/company/validate.go
package company

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/RichardHenryJames/nexhire-sub010/pkg/model"
)

const streetWords = `street|st|avenue|ave|road|rd|boulevard|blvd|drive|dr|lane|ln|way|court|ct|place|pl|parkway|pkwy|highway|hwy|suite|ste`

var (
	excelError     = regexp.MustCompile(`#(?:REF!|NAME\?|VALUE!|DIV/0!|N/A|NULL!|NUM!|SPILL!|CALC!)`)
	testData       = regexp.MustCompile(`(?i)\b(?:test|sample|demo|placeholder|example|abc|xyz)\s*company\b`)
	confidential   = regexp.MustCompile(`(?i)^(?:confidential|anonymous|undisclosed|not disclosed|private employer)$`)
	clientOf       = regexp.MustCompile(`(?i)^(?:a\s+)?client\s+of\s+`)
	emailSuffix    = regexp.MustCompile(`(?i)@[a-z0-9.-]+\.[a-z]{2,}$`)
	personalDomain = regexp.MustCompile(`(?i)^[a-z0-9][a-z0-9-]*\.(?:com|net|org|io|co|ai|app|dev|me|info|biz|us)$`)
	hiringFor      = regexp.MustCompile(`(?i)\bhiring\s+for\b`)
	leadingAddress = regexp.MustCompile(`(?i)^\d+\s+(?:[\w.'-]+\s+)*(?:` + streetWords + `)\.?(?:[\s,]|$)`)
	trailingNumber = regexp.MustCompile(`(?i)\b(?:` + streetWords + `)\.?\s+\d+$`)
	rawEntity      = regexp.MustCompile(`(?i)&(?:#\d+|#x[0-9a-f]+|[a-z]+);`)
)

// Validate applies the rejection rules in order and returns the first match.
// More specific rules run before generic ones, so the order is part of the
// behaviour.
func (n *Normalizer) Validate(name string) model.Verdict {
	s := strings.TrimSpace(name)

	switch {
	case s == "":
		return model.Reject(model.ReasonEmpty)
	case excelError.MatchString(s):
		return model.Reject(model.ReasonExcelError)
	case testData.MatchString(s):
		return model.Reject(model.ReasonTestData)
	case confidential.MatchString(s):
		return model.Reject(model.ReasonConfidential)
	case clientOf.MatchString(s):
		return model.Reject(model.ReasonClientOf)
	case emailSuffix.MatchString(s) || emailToken.MatchString(s):
		return model.Reject(model.ReasonEmail)
	case workAtPrefix.MatchString(s):
		// Sanitize removes this prefix; direct callers may not have sanitized.
		return model.Reject(model.ReasonWorkAt)
	case personalDomain.MatchString(s) && !n.brandDomains.contains(s):
		return model.Reject(model.ReasonPersonalDomain)
	case strings.HasPrefix(s, "*") || strings.HasPrefix(s, ".") || strings.HasSuffix(s, "."):
		return model.Reject(model.ReasonMalformed)
	case utf8.RuneCountInString(s) <= 2 && !n.shortNames.contains(s):
		return model.Reject(model.ReasonTooShort)
	case n.genericWords.contains(s):
		return model.Reject(model.ReasonGeneric)
	case hiringFor.MatchString(s):
		return model.Reject(model.ReasonHiringFor)
	case numberedPrefix.MatchString(s) && !n.hasNumericAllowedPrefix(s):
		return model.Reject(model.ReasonNumberedPrefix)
	case leadingAddress.MatchString(s) || trailingNumber.MatchString(s):
		return model.Reject(model.ReasonAddress)
	case rawEntity.MatchString(s):
		return model.Reject(model.ReasonHTMLEntity)
	case countLetters(s) < 2 && !n.alphaAllowed.contains(s):
		return model.Reject(model.ReasonTooFewAlpha)
	}

	return model.Accept()
}

func countLetters(s string) int {
	count := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			count++
		}
	}
	return count
}
