// pkg/company/sanitize.go
package company

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// entityReplacer decodes the entities scrapers leave behind. strings.Replacer
// never rescans its output, so "&amp;lt;" decodes to "&lt;" and stops there.
var entityReplacer = strings.NewReplacer(
	"&#39;", "'",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#x27;", "'",
	"&#x2F;", "/",
	"&nbsp;", " ",
)

var (
	whitespaceRun   = regexp.MustCompile(`\s+`)
	emailToken      = regexp.MustCompile(`[^\s@]+@[^\s@]+\.[A-Za-z]{2,}`)
	workAtPrefix    = regexp.MustCompile(`(?i)^work\s+at\s+`)
	feedIDPrefix    = regexp.MustCompile(`^\d{4,}-\s*`)
	numberedPrefix  = regexp.MustCompile(`^\d{1,2}\s+[A-Z]`)
	leadingNumber   = regexp.MustCompile(`^\d{1,2}\s+`)
	parentheticTail = regexp.MustCompile(`\s*\([^()]*\)$`)
)

// Sanitize converts a noisy scraped employer name into a display-safe string
// of at most MaxNameLength runes. It never fails; unusable input comes back
// as whatever is left after cleaning, possibly empty.
func (n *Normalizer) Sanitize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	s = strings.TrimSpace(entityReplacer.Replace(s))

	// Every step below only shortens the string or removes an "@", so the
	// loop reaches a fixpoint and a second Sanitize leaves the result alone.
	for {
		before := s
		s = n.stripAtNoise(s)
		s = stripBoilerplate(s, n)
		s = collapseWhitespace(s)
		s = strings.TrimSpace(truncateRunes(s, MaxNameLength))
		if s == before {
			break
		}
	}

	return s
}

// stripAtNoise removes stray "@" characters. A string carrying an email
// address anywhere is kept so validation can reject it, and so are personal
// mail domains.
func (n *Normalizer) stripAtNoise(s string) string {
	if !strings.Contains(s, "@") || emailToken.MatchString(s) {
		return s
	}

	lower := strings.ToLower(s)
	for _, domain := range n.emailDomains {
		if strings.Contains(lower, domain) {
			return s
		}
	}

	return collapseWhitespace(strings.ReplaceAll(s, "@", " "))
}

func stripBoilerplate(s string, n *Normalizer) string {
	s = strings.TrimSpace(workAtPrefix.ReplaceAllString(s, ""))
	s = keepBeforePipe(s)
	s = strings.TrimSpace(feedIDPrefix.ReplaceAllString(s, ""))

	if numberedPrefix.MatchString(s) && !n.hasNumericAllowedPrefix(s) {
		s = leadingNumber.ReplaceAllString(s, "")
	}

	if loc := parentheticTail.FindStringIndex(s); loc != nil {
		remainder := strings.TrimSpace(s[:loc[0]])
		if utf8.RuneCountInString(remainder) >= 3 {
			s = remainder
		}
	}

	return s
}

// keepBeforePipe truncates "Acme Corp | long posting blurb" to "Acme Corp".
// Short pieces on either side leave the string alone.
func keepBeforePipe(s string) string {
	head, tail, found := strings.Cut(s, "|")
	if !found {
		return s
	}

	head = strings.TrimSpace(head)
	tail = strings.TrimSpace(tail)
	if utf8.RuneCountInString(head) >= 3 && utf8.RuneCountInString(tail) > 10 {
		return head
	}
	return s
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
