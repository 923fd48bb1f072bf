package ips

// KindFilter narrows a list of records of one kind down to the clinically
// relevant subset. It must preserve input order.
type KindFilter func([]map[string]interface{}) []map[string]interface{}

// kindFilters is the dispatch table of the clinical filter engine, keyed by
// record kind.
var kindFilters = map[string]KindFilter{
	"Condition":           FilterConditions,
	"MedicationStatement": FilterMedications,
	"AllergyIntolerance":  FilterAllergies,
	"Immunization":        FilterImmunizations,
	"Observation":         FilterObservations,
	"Procedure":           FilterProcedures,
	"DeviceUseStatement":  FilterDeviceUse,
	"FamilyMemberHistory": FilterFamilyHistory,
	"DocumentReference":   FilterDocumentReferences,
	"CarePlan":            FilterCarePlans,
	"DiagnosticReport":    FilterDiagnosticReports,
}

// FilterForKind returns the registered clinical filter for a record kind, or
// nil when the kind has none.
func FilterForKind(kind string) KindFilter {
	return kindFilters[kind]
}

// Aggregate applies the clinical filter engine across a collection of typed
// record lists. Kinds without a registered filter pass through unchanged.
// Within each kind the input order is preserved.
func Aggregate(resourcesByKind map[string][]map[string]interface{}) map[string][]map[string]interface{} {
	filtered := make(map[string][]map[string]interface{}, len(resourcesByKind))
	for kind, resources := range resourcesByKind {
		if filter := kindFilters[kind]; filter != nil {
			filtered[kind] = filter(resources)
		} else {
			filtered[kind] = resources
		}
	}
	return filtered
}
