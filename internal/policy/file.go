package policy

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ErrPolicyNotFound is returned when the policy file does not exist.
var ErrPolicyNotFound = errors.New("policy file not found")

// fileFormat is the YAML shape of a policy override file. Any table or
// weight left empty falls back to the compiled-in default, so a file can
// override a single denylist without restating the rest.
type fileFormat struct {
	Tables  tables   `yaml:",inline"`
	Weights *Weights `yaml:"weights"`
}

// FromFile builds a Policy from a YAML override file layered over the
// defaults. Returns ErrPolicyNotFound if the file does not exist.
func FromFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided policy path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPolicyNotFound
		}
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	var ff fileFormat
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}

	t := defaultTables()
	overlayTables(&t, ff.Tables)

	w := DefaultWeights()
	if ff.Weights != nil {
		w = *ff.Weights
	}

	// Validate user-supplied regexes eagerly so a bad expression fails at
	// load time with a useful error instead of panicking mid-scan.
	for _, rp := range ff.Tables.Patterns {
		if rp.Expr == "" {
			return nil, fmt.Errorf("policy pattern %q has an empty expression", rp.Name)
		}
		if _, err := regexp.Compile(rp.Expr); err != nil {
			return nil, fmt.Errorf("policy pattern %q: %w", rp.Name, err)
		}
	}

	return build(t, w), nil
}

// overlayTables replaces each default table that the file provides.
// Tables are replaced wholesale rather than merged: a file that lists
// suspicious TLDs defines the complete denylist.
func overlayTables(dst *tables, src tables) {
	if len(src.SuspiciousTLDs) > 0 {
		dst.SuspiciousTLDs = src.SuspiciousTLDs
	}
	if len(src.PhishingKeywords) > 0 {
		dst.PhishingKeywords = src.PhishingKeywords
	}
	if len(src.MalwareExtensions) > 0 {
		dst.MalwareExtensions = src.MalwareExtensions
	}
	if len(src.TrackingDomains) > 0 {
		dst.TrackingDomains = src.TrackingDomains
	}
	if len(src.CryptominerDomains) > 0 {
		dst.CryptominerDomains = src.CryptominerDomains
	}
	if len(src.Brands) > 0 {
		dst.Brands = src.Brands
	}
	if len(src.Patterns) > 0 {
		dst.Patterns = src.Patterns
	}
}
