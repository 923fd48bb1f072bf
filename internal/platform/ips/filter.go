package ips

import "time"

// Clinical filter engine: one filtering function per record kind, applied by
// the aggregator before records reach the builder. Each filter is a
// conjunction of status criteria, a recency window, and a significance
// heuristic. Missing fields only ever widen inclusion where the criterion is
// an exclusion (recency, verification); status allow-lists require the status
// to actually be present. Filters never mutate and never panic on sparse
// records.

// Lookback windows in days.
const (
	medicationLookbackDays   = 180
	observationLookbackDays  = 365
	reportLookbackDays       = 730
	procedureLookbackDays    = 1825
	immunizationLookbackDays = 3650
)

// Condition codes excluded from the summary regardless of status.
var excludedConditionCodes = []string{
	"162864005", // History of condition
	"248536006", // Finding context
}

var significantObservationCategories = []string{"vital-signs", "laboratory", "imaging", "clinical"}

var significantReportCategories = []string{"LAB", "RAD", "PAT"}

var significantDocumentTypes = []string{"clinical-note", "discharge-summary", "history-and-physical"}

// FilterConditions keeps active, recurring, or relapsed conditions that are
// not tagged with an excluded code.
func FilterConditions(conditions []map[string]interface{}) []map[string]interface{} {
	var out []map[string]interface{}
	for _, c := range conditions {
		if !conceptHasCode(c, "clinicalStatus", "active", "recurrence", "relapse") {
			continue
		}
		if conceptHasCode(c, "code", excludedConditionCodes...) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// FilterMedications keeps active medications that are current or were stopped
// within the last six months.
func FilterMedications(medications []map[string]interface{}) []map[string]interface{} {
	now := time.Now()
	var out []map[string]interface{}
	for _, m := range medications {
		if strVal(m, "status") != "active" {
			continue
		}
		if !medicationIsCurrent(m, now) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func medicationIsCurrent(m map[string]interface{}, now time.Time) bool {
	period := mapVal(m, "effectivePeriod")
	if period == nil {
		return true
	}
	if _, ok := parseFHIRDate(strVal(period, "start")); !ok {
		return false
	}
	end := strVal(period, "end")
	if end == "" {
		return true
	}
	return withinDays(end, medicationLookbackDays, now)
}

// FilterAllergies keeps active, confirmed allergies with a significant
// reaction. An allergy with no recorded reactions is kept: omission from a
// patient summary is a greater risk than over-inclusion.
func FilterAllergies(allergies []map[string]interface{}) []map[string]interface{} {
	var out []map[string]interface{}
	for _, a := range allergies {
		if !conceptHasCode(a, "clinicalStatus", "active") {
			continue
		}
		if mapVal(a, "verificationStatus") != nil &&
			!conceptHasCode(a, "verificationStatus", "confirmed", "validated") {
			continue
		}
		if !isSignificantAllergy(a) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func isSignificantAllergy(allergy map[string]interface{}) bool {
	reactions := sliceVal(allergy, "reaction")
	if len(reactions) == 0 {
		return true
	}
	for _, r := range reactions {
		reaction, ok := r.(map[string]interface{})
		if !ok {
			continue
		}
		switch strVal(reaction, "severity") {
		case "severe", "extreme":
			return true
		}
	}
	return false
}

// FilterImmunizations keeps completed immunizations administered within the
// last ten years. A record with no occurrence date cannot be excluded on
// recency.
func FilterImmunizations(immunizations []map[string]interface{}) []map[string]interface{} {
	now := time.Now()
	var out []map[string]interface{}
	for _, i := range immunizations {
		if strVal(i, "status") != "completed" {
			continue
		}
		if !withinDays(strVal(i, "occurrenceDateTime"), immunizationLookbackDays, now) {
			continue
		}
		out = append(out, i)
	}
	return out
}

// FilterObservations keeps final or amended observations from a significant
// category, measured within the last year.
func FilterObservations(observations []map[string]interface{}) []map[string]interface{} {
	now := time.Now()
	var out []map[string]interface{}
	for _, o := range observations {
		status := strVal(o, "status")
		if status != "final" && status != "amended" {
			continue
		}
		if !hasSignificantCategory(o, significantObservationCategories) {
			continue
		}
		if !withinDays(strVal(o, "effectiveDateTime"), observationLookbackDays, now) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// hasSignificantCategory checks the first coding of each category element
// against an allow-list. A record with no category at all fails: category is
// the only relevance signal these kinds carry.
func hasSignificantCategory(resource map[string]interface{}, allowed []string) bool {
	for _, code := range firstCategoryCodes(resource, "category") {
		for _, want := range allowed {
			if code == want {
				return true
			}
		}
	}
	return false
}

// FilterProcedures keeps completed or in-progress procedures performed within
// the last five years.
func FilterProcedures(procedures []map[string]interface{}) []map[string]interface{} {
	now := time.Now()
	var out []map[string]interface{}
	for _, p := range procedures {
		status := strVal(p, "status")
		if status != "completed" && status != "in-progress" {
			continue
		}
		if !withinDays(strVal(p, "performedDateTime"), procedureLookbackDays, now) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// FilterDeviceUse keeps active device use statements. The significance
// heuristic for devices is a deliberate always-include stub.
func FilterDeviceUse(devices []map[string]interface{}) []map[string]interface{} {
	var out []map[string]interface{}
	for _, d := range devices {
		if strVal(d, "status") != "active" {
			continue
		}
		out = append(out, d)
	}
	return out
}

// FilterFamilyHistory keeps completed or partial family member histories.
// The hereditary-significance heuristic is a deliberate always-include stub.
func FilterFamilyHistory(histories []map[string]interface{}) []map[string]interface{} {
	var out []map[string]interface{}
	for _, h := range histories {
		status := strVal(h, "status")
		if status != "completed" && status != "partial" {
			continue
		}
		out = append(out, h)
	}
	return out
}

// FilterDocumentReferences keeps current clinical summary documents from the
// last two years.
func FilterDocumentReferences(documents []map[string]interface{}) []map[string]interface{} {
	now := time.Now()
	var out []map[string]interface{}
	for _, d := range documents {
		if strVal(d, "status") != "current" {
			continue
		}
		if !conceptHasCode(d, "type", significantDocumentTypes...) {
			continue
		}
		if !withinDays(strVal(d, "date"), reportLookbackDays, now) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// FilterCarePlans keeps active or draft care plans. The significance
// heuristic for care plans is a deliberate always-include stub.
func FilterCarePlans(plans []map[string]interface{}) []map[string]interface{} {
	var out []map[string]interface{}
	for _, p := range plans {
		status := strVal(p, "status")
		if status != "active" && status != "draft" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// FilterDiagnosticReports keeps final or amended reports from a significant
// category, issued within the last two years.
func FilterDiagnosticReports(reports []map[string]interface{}) []map[string]interface{} {
	now := time.Now()
	var out []map[string]interface{}
	for _, r := range reports {
		status := strVal(r, "status")
		if status != "final" && status != "amended" {
			continue
		}
		if !hasSignificantCategory(r, significantReportCategories) {
			continue
		}
		if !withinDays(strVal(r, "effectiveDateTime"), reportLookbackDays, now) {
			continue
		}
		out = append(out, r)
	}
	return out
}
