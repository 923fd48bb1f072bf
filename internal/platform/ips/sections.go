package ips

// Section identifies one IPS section. The values follow the section names of
// the IPS implementation guide so they can appear verbatim in error messages
// and logs.
type Section string

const (
	SectionPatient Section = "Patient"

	// Mandatory sections
	SectionAllergies     Section = "AllergyIntoleranceSection"
	SectionMedications   Section = "MedicationSection"
	SectionProblems      Section = "ProblemSection"
	SectionImmunizations Section = "ImmunizationSection"

	// Optional sections
	SectionVitalSigns     Section = "VitalSignsSection"
	SectionMedicalDevices Section = "MedicalDeviceSection"

	// Additional recommended sections
	SectionDiagnosticReports  Section = "DiagnosticReportSection"
	SectionProcedures         Section = "ProcedureSection"
	SectionFamilyHistory      Section = "FamilyHistorySection"
	SectionSocialHistory      Section = "SocialHistorySection"
	SectionPregnancyHistory   Section = "PregnancyHistorySection"
	SectionFunctionalStatus   Section = "FunctionalStatusSection"
	SectionMedicalHistory     Section = "MedicalHistorySection"
	SectionCarePlan           Section = "CarePlanSection"
	SectionClinicalImpression Section = "ClinicalImpressionSection"
	SectionAdvanceDirectives  Section = "AdvanceDirectivesSection"
)

// AllSections lists every section in registry order. This order governs
// bundle discovery and the document-level narrative; section entries
// themselves keep the order in which they were added.
var AllSections = []Section{
	SectionPatient,
	SectionAllergies,
	SectionMedications,
	SectionProblems,
	SectionImmunizations,
	SectionVitalSigns,
	SectionMedicalDevices,
	SectionDiagnosticReports,
	SectionProcedures,
	SectionFamilyHistory,
	SectionSocialHistory,
	SectionPregnancyHistory,
	SectionFunctionalStatus,
	SectionMedicalHistory,
	SectionCarePlan,
	SectionClinicalImpression,
	SectionAdvanceDirectives,
}

// MandatorySections are the sections that must be present, each with at
// least one record, for Build to succeed. The Patient resource is mandatory
// too but is carried as the document subject rather than as a section.
var MandatorySections = []Section{
	SectionAllergies,
	SectionMedications,
	SectionProblems,
	SectionImmunizations,
}

// LOINCSystem is the coding system URI for all section and document codes.
const LOINCSystem = "http://loinc.org"

// DocumentTypeCode is the LOINC code for the IPS document itself.
const DocumentTypeCode = "60591-5"

// DocumentTypeDisplay is the display text for DocumentTypeCode.
const DocumentTypeDisplay = "Patient summary Document"

// DocumentTitle is the fixed Composition title.
const DocumentTitle = "International Patient Summary"

// sectionLOINCCodes maps each section to its LOINC document section code.
// https://hl7.org/fhir/R4/valueset-doc-section-codes.html
var sectionLOINCCodes = map[Section]string{
	SectionPatient:            "54126-4",
	SectionAllergies:          "48765-2",
	SectionMedications:        "10160-0",
	SectionProblems:           "11450-4",
	SectionImmunizations:      "11369-6",
	SectionVitalSigns:         "8716-3",
	SectionMedicalDevices:     "46264-8",
	SectionDiagnosticReports:  "30954-2",
	SectionProcedures:         "47519-4",
	SectionFamilyHistory:      "10157-6",
	SectionSocialHistory:      "29762-2",
	SectionPregnancyHistory:   "10162-6",
	SectionFunctionalStatus:   "47420-5",
	SectionMedicalHistory:     "11348-0",
	SectionCarePlan:           "18776-5",
	SectionClinicalImpression: "51848-0",
	SectionAdvanceDirectives:  "42348-3",
}

var sectionDisplayNames = map[Section]string{
	SectionPatient:            "Patient summary Document",
	SectionAllergies:          "Allergies and adverse reactions Document",
	SectionMedications:        "History of Medication use Narrative",
	SectionProblems:           "Problem list - Reported",
	SectionImmunizations:      "History of Immunization Narrative",
	SectionVitalSigns:         "Vital signs",
	SectionMedicalDevices:     "History of medical device use",
	SectionDiagnosticReports:  "Relevant diagnostic tests/laboratory data Narrative",
	SectionProcedures:         "History of Procedures Document",
	SectionFamilyHistory:      "History of family member diseases Narrative",
	SectionSocialHistory:      "Social history Narrative",
	SectionPregnancyHistory:   "History of pregnancies Narrative",
	SectionFunctionalStatus:   "Functional status assessment note",
	SectionMedicalHistory:     "History of Past illness NarrativeHistory and physical note Document",
	SectionCarePlan:           "Plan of care note",
	SectionClinicalImpression: "Evaluation note",
	SectionAdvanceDirectives:  "Advance directives Document",
}

// LOINCCodeFor returns the LOINC section code for a section, or "" if the
// section is unknown.
func LOINCCodeFor(section Section) string {
	return sectionLOINCCodes[section]
}

// DisplayTitleFor returns the human-readable display title for a section.
// Unknown sections fall back to the section value itself.
func DisplayTitleFor(section Section) string {
	if title, ok := sectionDisplayNames[section]; ok {
		return title
	}
	return string(section)
}

// CodedCategoryFor returns the coded category element for a section: a
// CodeableConcept with a single LOINC coding. The optional customCode
// overrides the registry code while keeping the registry display.
func CodedCategoryFor(section Section, customCode string) map[string]interface{} {
	code := sectionLOINCCodes[section]
	if customCode != "" {
		code = customCode
	}
	display := DisplayTitleFor(section)
	return map[string]interface{}{
		"coding": []interface{}{
			map[string]interface{}{
				"system":  LOINCSystem,
				"code":    code,
				"display": display,
			},
		},
		"text": display,
	}
}

// IsMandatory reports whether a section belongs to the mandatory subset
// checked at Build.
func IsMandatory(section Section) bool {
	for _, s := range MandatorySections {
		if s == section {
			return true
		}
	}
	return false
}
