// pkg/company/rules.go
package company

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules holds the allow-lists and word lists the normalizer consults. The
// lists are seeds rather than exhaustive tables; extend them with a rules
// file instead of editing the matching code.
type Rules struct {
	// Names that legitimately start with a number
	NumericPrefixAllowList []string `yaml:"numeric_prefix_allow"`
	// Names of two characters or fewer that are real companies
	ShortNameAllowList []string `yaml:"short_name_allow"`
	// Single-word dot-com brands that are not personal domains
	PersonalDomainAllowList []string `yaml:"personal_domain_allow"`
	// Names with fewer than two letters that are real companies
	AlphaAllowList []string `yaml:"alpha_allow"`
	// Email domains kept verbatim by sanitization
	PersonalEmailDomains []string `yaml:"personal_email_domains"`
	// Bare business-entity words that are not company names
	GenericWords []string `yaml:"generic_words"`
}

// DefaultRules returns the built-in rule tables
func DefaultRules() Rules {
	return Rules{
		NumericPrefixAllowList: []string{
			"1-800", "1-888", "1-877", "1st", "2nd", "3rd", "21st", "100x", "10x",
			"1Password", "1mg", "3M", "8am", "8VC", "360", "365", "23andMe",
		},
		ShortNameAllowList: []string{"3M", "HP", "GE", "EA", "AT&T", "IBM", "AMD"},
		PersonalDomainAllowList: []string{
			"Bill.com", "Cars.com", "Booking.com", "Hotels.com", "Monday.com",
			"Match.com", "Realtor.com", "Ancestry.com", "Overstock.com", "Salesforce.com",
		},
		AlphaAllowList: []string{"3M", "100x", "10x", "8am", "8VC", "1mg", "1X", "H1", "R1", "S3", "N2"},
		PersonalEmailDomains: []string{"@gmail", "@yahoo", "@outlook"},
		GenericWords: []string{
			"company", "inc", "llc", "ltd", "org", "organization", "business", "enterprise", "firm",
		},
	}
}

// Merge returns r extended with the entries of other. Duplicates are dropped
// case-insensitively; r's entries keep their position.
func (r Rules) Merge(other Rules) Rules {
	return Rules{
		NumericPrefixAllowList:  mergeList(r.NumericPrefixAllowList, other.NumericPrefixAllowList),
		ShortNameAllowList:      mergeList(r.ShortNameAllowList, other.ShortNameAllowList),
		PersonalDomainAllowList: mergeList(r.PersonalDomainAllowList, other.PersonalDomainAllowList),
		AlphaAllowList:          mergeList(r.AlphaAllowList, other.AlphaAllowList),
		PersonalEmailDomains:    mergeList(r.PersonalEmailDomains, other.PersonalEmailDomains),
		GenericWords:            mergeList(r.GenericWords, other.GenericWords),
	}
}

// LoadRulesFile reads extra rule entries from a YAML file and merges them
// onto the defaults.
func LoadRulesFile(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("failed to read rules file: %w", err)
	}

	var extra Rules
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return Rules{}, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}

	return DefaultRules().Merge(extra), nil
}

func mergeList(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	merged := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, entry := range list {
			entry = strings.TrimSpace(entry)
			key := strings.ToLower(entry)
			if entry == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, entry)
		}
	}
	return merged
}

// foldSet is a case-insensitive string set
type foldSet map[string]struct{}

func newFoldSet(entries []string) foldSet {
	set := make(foldSet, len(entries))
	for _, e := range entries {
		set[strings.ToLower(e)] = struct{}{}
	}
	return set
}

func (s foldSet) contains(v string) bool {
	_, ok := s[strings.ToLower(v)]
	return ok
}

// lowerAll lowercases a list for prefix and substring checks
func lowerAll(entries []string) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = strings.ToLower(e)
	}
	return out
}
