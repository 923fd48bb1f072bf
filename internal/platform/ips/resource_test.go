package ips

import (
	"testing"
	"time"
)

func TestStrVal(t *testing.T) {
	m := map[string]interface{}{
		"s":      "hello",
		"n":      float64(42),
		"b":      true,
		"nil":    nil,
		"object": map[string]interface{}{"x": 1},
		"array":  []interface{}{"x"},
	}
	cases := []struct {
		key  string
		want string
	}{
		{"s", "hello"},
		{"n", "42"},
		{"b", "true"},
		{"nil", ""},
		{"object", ""},
		{"array", ""},
		{"missing", ""},
	}
	for _, tc := range cases {
		if got := strVal(m, tc.key); got != tc.want {
			t.Errorf("strVal(%q) = %q, want %q", tc.key, got, tc.want)
		}
	}
}

func TestConceptText_Precedence(t *testing.T) {
	withText := map[string]interface{}{
		"code": map[string]interface{}{
			"text": "Penicillin allergy",
			"coding": []interface{}{
				map[string]interface{}{"code": "91936005", "display": "Allergy to penicillin"},
			},
		},
	}
	if got := conceptText(withText, "code"); got != "Penicillin allergy" {
		t.Errorf("text should win: got %q", got)
	}

	displayOnly := map[string]interface{}{
		"code": map[string]interface{}{
			"coding": []interface{}{
				map[string]interface{}{"code": "91936005", "display": "Allergy to penicillin"},
			},
		},
	}
	if got := conceptText(displayOnly, "code"); got != "Allergy to penicillin" {
		t.Errorf("display should win over code: got %q", got)
	}

	codeOnly := map[string]interface{}{
		"code": map[string]interface{}{
			"coding": []interface{}{map[string]interface{}{"code": "91936005"}},
		},
	}
	if got := conceptText(codeOnly, "code"); got != "91936005" {
		t.Errorf("code is the last resort: got %q", got)
	}

	if got := conceptText(map[string]interface{}{}, "code"); got != "" {
		t.Errorf("absent field: got %q", got)
	}
}

func TestConceptHasCode(t *testing.T) {
	resource := map[string]interface{}{
		"clinicalStatus": map[string]interface{}{
			"coding": []interface{}{
				map[string]interface{}{"code": "active"},
				map[string]interface{}{"code": "confirmed"},
			},
		},
	}
	if !conceptHasCode(resource, "clinicalStatus", "confirmed") {
		t.Error("later codings should be consulted")
	}
	if conceptHasCode(resource, "clinicalStatus", "resolved") {
		t.Error("absent code should not match")
	}
	if conceptHasCode(resource, "verificationStatus", "active") {
		t.Error("absent field should not match")
	}
}

func TestHumanName(t *testing.T) {
	patient := map[string]interface{}{
		"name": []interface{}{
			map[string]interface{}{
				"given":  []interface{}{"John", "Q"},
				"family": "Doe",
			},
			map[string]interface{}{"family": "Ignored"},
		},
	}
	if got := humanName(patient); got != "John Q Doe" {
		t.Errorf("humanName = %q", got)
	}
	if got := humanName(map[string]interface{}{}); got != "" {
		t.Errorf("no name: got %q", got)
	}
	familyOnly := map[string]interface{}{
		"name": []interface{}{map[string]interface{}{"family": "Doe"}},
	}
	if got := humanName(familyOnly); got != "Doe" {
		t.Errorf("family only: got %q", got)
	}
}

func TestParseFHIRDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2024-06-15T08:30:00Z", true},
		{"2024-06-15T08:30:00.123Z", true},
		{"2024-06-15T08:30:00", true},
		{"2024-06-15", true},
		{"2024-06", true},
		{"2024", true},
		{"", false},
		{"June 15th", false},
	}
	for _, tc := range cases {
		if _, ok := parseFHIRDate(tc.in); ok != tc.ok {
			t.Errorf("parseFHIRDate(%q) ok = %v, want %v", tc.in, ok, tc.ok)
		}
	}

	parsed, ok := parseFHIRDate("2024-06")
	if !ok || parsed.Year() != 2024 || parsed.Month() != time.June {
		t.Errorf("year-month precision parsed as %v", parsed)
	}
}

func TestCategoryCodeHelpers(t *testing.T) {
	resource := map[string]interface{}{
		"category": []interface{}{
			map[string]interface{}{
				"coding": []interface{}{
					map[string]interface{}{"code": "survey"},
					map[string]interface{}{"code": "vital-signs"},
				},
			},
			map[string]interface{}{
				"coding": []interface{}{map[string]interface{}{"code": "laboratory"}},
			},
		},
	}

	first := firstCategoryCodes(resource, "category")
	if len(first) != 2 || first[0] != "survey" || first[1] != "laboratory" {
		t.Errorf("firstCategoryCodes = %v", first)
	}

	// Only visible to the exhaustive scan.
	if !anyCategoryCode(resource, "category", "vital-signs") {
		t.Error("anyCategoryCode should see later codings")
	}
	if anyCategoryCode(resource, "category", "imaging") {
		t.Error("anyCategoryCode matched an absent code")
	}
	if anyCategoryCode(map[string]interface{}{}, "category", "survey") {
		t.Error("anyCategoryCode on missing field")
	}
}

func TestReferenceVal(t *testing.T) {
	resource := map[string]interface{}{
		"subject": map[string]interface{}{"reference": "Patient/p1"},
	}
	if got := referenceVal(resource, "subject"); got != "Patient/p1" {
		t.Errorf("referenceVal = %q", got)
	}
	if got := referenceVal(resource, "patient"); got != "" {
		t.Errorf("missing field: got %q", got)
	}
}
