package ips

// Static section registry: which record kinds populate each section, plus the
// section-level inclusion predicates used on the bundle-discovery path.
// Both tables are initialized once and never mutated.

// sectionResourceKinds maps each section to the record kinds that populate it.
// Several sections draw from Observation; the predicates below tell their
// records apart by category.
var sectionResourceKinds = map[Section][]string{
	SectionPatient:        {"Patient"},
	SectionAllergies:      {"AllergyIntolerance"},
	SectionMedications:    {"MedicationRequest", "MedicationStatement"},
	SectionProblems:       {"Condition"},
	SectionImmunizations:  {"Immunization"},
	SectionVitalSigns:     {"Observation"},
	SectionMedicalDevices: {"Device"},
	// Diagnostic reports can include Observations.
	SectionDiagnosticReports:  {"DiagnosticReport", "Observation"},
	SectionProcedures:         {"Procedure"},
	SectionFamilyHistory:      {"FamilyMemberHistory"},
	SectionSocialHistory:      {"Observation"},
	SectionPregnancyHistory:   {"Observation"},
	SectionFunctionalStatus:   {"Observation"},
	SectionMedicalHistory:     {"Condition"},
	SectionCarePlan:           {"CarePlan"},
	SectionClinicalImpression: {"ClinicalImpression"},
	// Advance directives are usually stored as DocumentReference.
	SectionAdvanceDirectives: {"DocumentReference"},
}

// SectionPredicate is a section-level inclusion predicate applied to a single
// record on the bundle-discovery path. It is distinct from the kind-level
// clinical filters in filter.go: the two layers serve different entry paths
// (explicit AddSection vs. ReadBundle) and are never stacked.
type SectionPredicate func(resource map[string]interface{}) bool

var sectionPredicates = map[Section]SectionPredicate{
	SectionPatient: func(r map[string]interface{}) bool {
		return resourceKind(r) == "Patient"
	},
	SectionAllergies: func(r map[string]interface{}) bool {
		return resourceKind(r) == "AllergyIntolerance" &&
			firstConceptCode(r, "clinicalStatus") == "active"
	},
	SectionMedications: func(r map[string]interface{}) bool {
		kind := resourceKind(r)
		return (kind == "MedicationRequest" || kind == "MedicationStatement") &&
			strVal(r, "status") == "active"
	},
	SectionProblems: func(r map[string]interface{}) bool {
		return resourceKind(r) == "Condition" &&
			firstConceptCode(r, "clinicalStatus") == "active"
	},
	SectionImmunizations: func(r map[string]interface{}) bool {
		return resourceKind(r) == "Immunization" && strVal(r, "status") == "completed"
	},
	SectionVitalSigns:     observationCategoryPredicate("vital-signs"),
	SectionMedicalDevices: func(r map[string]interface{}) bool {
		return resourceKind(r) == "Device" && strVal(r, "status") == "active"
	},
	SectionDiagnosticReports: func(r map[string]interface{}) bool {
		kind := resourceKind(r)
		return (kind == "DiagnosticReport" || kind == "Observation") &&
			strVal(r, "status") == "final"
	},
	SectionProcedures: func(r map[string]interface{}) bool {
		return resourceKind(r) == "Procedure" && strVal(r, "status") == "completed"
	},
	SectionFamilyHistory: func(r map[string]interface{}) bool {
		return resourceKind(r) == "FamilyMemberHistory"
	},
	SectionSocialHistory:    observationCategoryPredicate("social-history"),
	SectionPregnancyHistory: observationCategoryPredicate("pregnancy"),
	SectionFunctionalStatus: observationCategoryPredicate("functional-status"),
	SectionMedicalHistory: func(r map[string]interface{}) bool {
		return resourceKind(r) == "Condition" &&
			firstConceptCode(r, "clinicalStatus") == "active"
	},
	SectionCarePlan: func(r map[string]interface{}) bool {
		return resourceKind(r) == "CarePlan" && strVal(r, "status") == "active"
	},
	SectionClinicalImpression: func(r map[string]interface{}) bool {
		return resourceKind(r) == "ClinicalImpression"
	},
}

// observationCategoryPredicate builds a predicate matching Observations whose
// category carries the given code in any coding.
func observationCategoryPredicate(category string) SectionPredicate {
	return func(r map[string]interface{}) bool {
		if resourceKind(r) != "Observation" {
			return false
		}
		return anyCategoryCode(r, "category", category)
	}
}

// firstConceptCode returns the first coding code of a CodeableConcept field,
// or "" when the field or its coding list is absent.
func firstConceptCode(resource map[string]interface{}, field string) string {
	codes := conceptCodes(resource, field)
	if len(codes) == 0 {
		return ""
	}
	return codes[0]
}

// ResourceKindsFor returns the record kinds registered for a section.
func ResourceKindsFor(section Section) []string {
	return sectionResourceKinds[section]
}

// PredicateFor returns the section-level inclusion predicate for a section,
// or nil when the section has none (all matching kinds pass through).
func PredicateFor(section Section) SectionPredicate {
	return sectionPredicates[section]
}
