package ips

import (
	"fmt"
	"strings"
	"time"
)

// Clinical records are carried as loosely-typed map[string]interface{} values
// throughout this package. All field access goes through the helpers below;
// a missing or differently-typed field yields a zero value, never a panic.
// Records are read-only: none of the helpers mutates its argument.

// strVal extracts a string field. Non-string scalars are formatted with %v.
func strVal(m map[string]interface{}, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// resourceKind returns the record's kind tag (FHIR resourceType).
func resourceKind(resource map[string]interface{}) string {
	kind, _ := resource["resourceType"].(string)
	return kind
}

// resourceID returns the record's id.
func resourceID(resource map[string]interface{}) string {
	id, _ := resource["id"].(string)
	return id
}

// mapVal extracts a nested object field.
func mapVal(m map[string]interface{}, key string) map[string]interface{} {
	v, _ := m[key].(map[string]interface{})
	return v
}

// sliceVal extracts an array field.
func sliceVal(m map[string]interface{}, key string) []interface{} {
	v, _ := m[key].([]interface{})
	return v
}

// conceptCodes returns every coding.code of a CodeableConcept field.
// An absent field or empty coding list yields nil.
func conceptCodes(resource map[string]interface{}, field string) []string {
	cc := mapVal(resource, field)
	if cc == nil {
		return nil
	}
	var codes []string
	for _, c := range sliceVal(cc, "coding") {
		coding, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		if code := strVal(coding, "code"); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

// conceptHasCode reports whether a CodeableConcept field carries one of the
// given codes in any of its codings.
func conceptHasCode(resource map[string]interface{}, field string, allowed ...string) bool {
	for _, code := range conceptCodes(resource, field) {
		for _, want := range allowed {
			if code == want {
				return true
			}
		}
	}
	return false
}

// conceptText returns the best human-readable text of a CodeableConcept
// field: text if present, otherwise the first coding display.
func conceptText(resource map[string]interface{}, field string) string {
	cc := mapVal(resource, field)
	if cc == nil {
		return ""
	}
	if text := strVal(cc, "text"); text != "" {
		return text
	}
	codings := sliceVal(cc, "coding")
	if len(codings) == 0 {
		return ""
	}
	first, ok := codings[0].(map[string]interface{})
	if !ok {
		return ""
	}
	if display := strVal(first, "display"); display != "" {
		return display
	}
	return strVal(first, "code")
}

// firstCategoryCode returns the first coding code of each element in a
// category-style array field (an array of CodeableConcepts).
func firstCategoryCodes(resource map[string]interface{}, field string) []string {
	var codes []string
	for _, cat := range sliceVal(resource, field) {
		catMap, ok := cat.(map[string]interface{})
		if !ok {
			continue
		}
		codings := sliceVal(catMap, "coding")
		if len(codings) == 0 {
			continue
		}
		coding, ok := codings[0].(map[string]interface{})
		if !ok {
			continue
		}
		if code := strVal(coding, "code"); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

// anyCategoryCode reports whether any category element's codings contain one
// of the given codes. Unlike firstCategoryCodes this inspects every coding of
// every category.
func anyCategoryCode(resource map[string]interface{}, field string, allowed ...string) bool {
	for _, cat := range sliceVal(resource, field) {
		catMap, ok := cat.(map[string]interface{})
		if !ok {
			continue
		}
		for _, c := range sliceVal(catMap, "coding") {
			coding, ok := c.(map[string]interface{})
			if !ok {
				continue
			}
			code := strVal(coding, "code")
			for _, want := range allowed {
				if code == want {
					return true
				}
			}
		}
	}
	return false
}

// referenceVal returns the Reference.reference string of a field.
func referenceVal(resource map[string]interface{}, field string) string {
	ref := mapVal(resource, field)
	if ref == nil {
		return ""
	}
	return strVal(ref, "reference")
}

// humanName returns "<given...> <family>" for the first entry of a name array.
func humanName(resource map[string]interface{}) string {
	names := sliceVal(resource, "name")
	if len(names) == 0 {
		return ""
	}
	name, ok := names[0].(map[string]interface{})
	if !ok {
		return ""
	}
	var parts []string
	for _, g := range sliceVal(name, "given") {
		if s, ok := g.(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	if family := strVal(name, "family"); family != "" {
		parts = append(parts, family)
	}
	return strings.Join(parts, " ")
}

// fhirDateLayouts covers the date/dateTime precisions that appear on clinical
// records, most precise first.
var fhirDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

// parseFHIRDate parses a FHIR date or dateTime string. ok is false when the
// field is empty or unparseable; callers treat that as "no date".
func parseFHIRDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range fhirDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// withinDays reports whether the date string falls within the lookback window
// ending now. Records without a parseable date cannot be excluded on recency,
// so they report true.
func withinDays(dateStr string, days int, now time.Time) bool {
	t, ok := parseFHIRDate(dateStr)
	if !ok {
		return true
	}
	return t.After(now.AddDate(0, 0, -days))
}
