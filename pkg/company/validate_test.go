package company

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RichardHenryJames/nexhire-sub010/pkg/model"
)

func TestIsValid(t *testing.T) {
	tests := []struct {
		name   string
		reason model.RejectReason // empty means valid
	}{
		{"", model.ReasonEmpty},
		{"   ", model.ReasonEmpty},
		{"#REF!", model.ReasonExcelError},
		{"Acme #N/A", model.ReasonExcelError},
		{"Test Company", model.ReasonTestData},
		{"Sample Company Inc", model.ReasonTestData},
		{"Contest Company", ""},
		{"Latest Company Ltd", ""},
		{"Confidential", model.ReasonConfidential},
		{"not disclosed", model.ReasonConfidential},
		{"A Client of TCS", model.ReasonClientOf},
		{"Client of Infosys", model.ReasonClientOf},
		{"jobs@acme.com", model.ReasonEmail},
		{"jobs@acme.com Careers", model.ReasonEmail},
		{"Work at Acme", model.ReasonWorkAt},
		{"johnsmith.com", model.ReasonPersonalDomain},
		{"*Acme", model.ReasonMalformed},
		{".NET Shop", model.ReasonMalformed},
		{"Acme Inc.", model.ReasonMalformed},
		{"QX", model.ReasonTooShort},
		{"LLC", model.ReasonGeneric},
		{"Company", model.ReasonGeneric},
		{"Hiring for Google", model.ReasonHiringFor},
		{"12 Monkeys Studio", model.ReasonNumberedPrefix},
		{"198 Baker Street", model.ReasonAddress},
		{"Main Street 42", model.ReasonAddress},
		{"Ben &amp; Jerry", model.ReasonHTMLEntity},
		{"123", model.ReasonTooFewAlpha},
		{"Google", ""},
		{"Bill.com", ""},
		{"3M", ""},
		{"HP", ""},
		{"AT&T", ""},
		{"100x", ""},
		{"8VC", ""},
		{"1Password", ""},
		{"ARC'TERYX", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := IsValid(tt.name)
			if tt.reason == "" {
				assert.True(t, verdict.Valid, "got %s", verdict)
				assert.Empty(t, verdict.Reason)
				return
			}
			assert.False(t, verdict.Valid)
			assert.Equal(t, tt.reason, verdict.Reason)
		})
	}
}

func TestSanitizeThenValidate(t *testing.T) {
	assert.Equal(t, model.Accept(), IsValid(Sanitize("Google")))
	assert.False(t, IsValid(Sanitize("james@findelitetalent.com")).Valid)
	assert.Equal(t, model.Accept(), IsValid(Sanitize("3M")))
	assert.Equal(t, model.Reject(model.ReasonConfidential), IsValid(Sanitize("Confidential")))
	assert.False(t, IsValid(Sanitize("A Client of TCS")).Valid)
	assert.Equal(t, model.Reject(model.ReasonAddress), IsValid(Sanitize("198 Baker Street")))

	for _, raw := range []string{
		"Work at james@acme.com",
		"Acme Corp jobs@acme.com",
		"james@acme.com (Remote)",
	} {
		name, verdict := Normalize(raw)
		assert.Contains(t, name, "@", "input %q", raw)
		assert.Equal(t, model.Reject(model.ReasonEmail), verdict, "input %q", raw)
	}

	name, verdict := Normalize("01 Hypertherm")
	assert.Equal(t, "Hypertherm", name)
	assert.True(t, verdict.Valid)

	name, verdict = Normalize("ARC&#39;TERYX")
	assert.Equal(t, "ARC'TERYX", name)
	assert.True(t, verdict.Valid)
}

func TestRulesMerge(t *testing.T) {
	defaults := DefaultRules()
	merged := defaults.Merge(Rules{ShortNameAllowList: []string{"hp", "XO", " "}})

	assert.Len(t, merged.ShortNameAllowList, len(defaults.ShortNameAllowList)+1)
	assert.Equal(t, "XO", merged.ShortNameAllowList[len(merged.ShortNameAllowList)-1])
	assert.Equal(t, defaults.GenericWords, merged.GenericWords)
}

func TestLoadRulesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := "numeric_prefix_allow:\n  - 7 Eleven\nshort_name_allow:\n  - XO\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	rules, err := LoadRulesFile(path)
	require.NoError(t, err)
	n := NewNormalizer(rules)

	assert.Equal(t, "7 Eleven", n.Sanitize("7 Eleven"))
	assert.True(t, n.Validate("7 Eleven").Valid)
	assert.True(t, n.Validate("XO").Valid)

	// the defaults still strip the prefix and reject the short name
	assert.Equal(t, "Eleven", Sanitize("7 Eleven"))
	assert.Equal(t, model.ReasonTooShort, IsValid("XO").Reason)
}

func TestLoadRulesFileErrors(t *testing.T) {
	_, err := LoadRulesFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("short_name_allow: [unclosed"), 0o600))
	_, err = LoadRulesFile(path)
	assert.ErrorContains(t, err, "failed to parse rules file")
}
