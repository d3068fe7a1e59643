package model

import "testing"

// TestClassificationHasCategory tests category membership checks.
func TestClassificationHasCategory(t *testing.T) {
	t.Parallel()

	c := &Classification{
		Categories: []Category{CategoryCryptominer, CategoryTracking},
	}

	if !c.HasCategory(CategoryCryptominer) {
		t.Error("expected HasCategory(CategoryCryptominer) to be true")
	}
	if !c.HasCategory(CategoryTracking) {
		t.Error("expected HasCategory(CategoryTracking) to be true")
	}
	if c.HasCategory(CategoryMalformed) {
		t.Error("expected HasCategory(CategoryMalformed) to be false")
	}
}

// TestAllCategoriesUnique tests that the category list has no duplicates.
func TestAllCategoriesUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[Category]bool, len(AllCategories))
	for _, cat := range AllCategories {
		if seen[cat] {
			t.Errorf("duplicate category %q in AllCategories", cat)
		}
		seen[cat] = true
	}
}

// TestResourceTypeIsAPICall tests API call detection.
func TestResourceTypeIsAPICall(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		resourceType ResourceType
		expected     bool
	}{
		{ResourceXHR, true},
		{ResourceFetch, true},
		{ResourceScript, false},
		{ResourceImage, false},
		{ResourceDocument, false},
		{ResourceOther, false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.resourceType), func(t *testing.T) {
			t.Parallel()
			if got := tc.resourceType.IsAPICall(); got != tc.expected {
				t.Errorf("IsAPICall() = %v, expected %v", got, tc.expected)
			}
		})
	}
}

// TestNewScanResult tests scan result construction.
func TestNewScanResult(t *testing.T) {
	t.Parallel()

	result := NewScanResult("https://example.com/", "example.com")

	if result.ID == "" {
		t.Error("expected non-empty scan ID")
	}
	if result.URL != "https://example.com/" {
		t.Errorf("got URL %q, expected %q", result.URL, "https://example.com/")
	}
	if result.Domain != "example.com" {
		t.Errorf("got Domain %q, expected %q", result.Domain, "example.com")
	}
	if result.ScannedAt.IsZero() {
		t.Error("expected ScannedAt to be set")
	}

	// Two results must never share an ID.
	other := NewScanResult("https://example.com/", "example.com")
	if result.ID == other.ID {
		t.Error("expected distinct scan IDs for distinct results")
	}
}
