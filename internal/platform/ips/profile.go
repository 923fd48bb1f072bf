package ips

import "github.com/rs/zerolog/log"

// ResourceProfile describes the IPS profile constraints for one record kind:
// which top-level fields must be present for submission, and which are
// recommended. Deep structural conformance is out of scope; this is a
// presence check consulted by callers before records enter the builder.
type ResourceProfile struct {
	ResourceType      string
	MandatoryFields   []string
	RecommendedFields []string
	LoincCode         string
	ProfileURL        string
}

// profiles holds the profiles for the mandatory sections.
var profiles = map[Section]ResourceProfile{
	SectionPatient: {
		ResourceType: "Patient",
		// FHIR R4B requires nothing beyond resourceType on Patient.
		MandatoryFields: nil,
		RecommendedFields: []string{
			"name", "gender", "birthDate", "identifier",
			"address", "telecom", "communication", "maritalStatus",
		},
		LoincCode:  "60591-5",
		ProfileURL: "http://hl7.org/fhir/uv/ips/StructureDefinition/Patient-uv-ips",
	},
	SectionAllergies: {
		ResourceType:    "AllergyIntolerance",
		MandatoryFields: []string{"patient"},
		RecommendedFields: []string{
			"clinicalStatus", "verificationStatus", "code", "reaction", "criticality",
		},
		LoincCode:  "48765-2",
		ProfileURL: "http://hl7.org/fhir/uv/ips/StructureDefinition/AllergyIntolerance-uv-ips",
	},
	SectionMedications: {
		ResourceType:    "MedicationStatement",
		MandatoryFields: []string{"status", "subject"},
		RecommendedFields: []string{
			"medicationCodeableConcept", "effectiveDateTime", "dosage", "reasonCode",
		},
		LoincCode:  "10160-0",
		ProfileURL: "http://hl7.org/fhir/uv/ips/StructureDefinition/MedicationStatement-uv-ips",
	},
	SectionProblems: {
		ResourceType:    "Condition",
		MandatoryFields: []string{"subject"},
		RecommendedFields: []string{
			"clinicalStatus", "verificationStatus", "code",
			"onsetDateTime", "recordedDate", "severity",
		},
		LoincCode:  "11450-4",
		ProfileURL: "http://hl7.org/fhir/uv/ips/StructureDefinition/Condition-uv-ips",
	},
	SectionImmunizations: {
		ResourceType:    "Immunization",
		MandatoryFields: []string{"status", "vaccineCode", "patient", "occurrenceDateTime"},
		RecommendedFields: []string{
			"lotNumber", "manufacturer", "doseQuantity",
		},
		LoincCode:  "11369-6",
		ProfileURL: "http://hl7.org/fhir/uv/ips/StructureDefinition/Immunization-uv-ips",
	},
}

// recommendedProfiles holds profiles for recommended sections.
var recommendedProfiles = map[Section]ResourceProfile{
	SectionDiagnosticReports: {
		ResourceType:    "Observation",
		MandatoryFields: []string{"status", "code", "subject", "effectiveDateTime"},
		RecommendedFields: []string{
			"category", "valueQuantity", "interpretation", "referenceRange",
		},
		LoincCode:  "26436-6",
		ProfileURL: "http://hl7.org/fhir/uv/ips/StructureDefinition/Observation-results-uv-ips",
	},
	SectionVitalSigns: {
		ResourceType:    "Observation",
		MandatoryFields: []string{"status", "code", "subject", "effectiveDateTime"},
		RecommendedFields: []string{
			"category", "valueQuantity", "component",
		},
		LoincCode:  "8716-3",
		ProfileURL: "http://hl7.org/fhir/uv/ips/StructureDefinition/Observation-vitalsigns-uv-ips",
	},
}

// ProfileFor returns the profile registered for a section.
func ProfileFor(section Section) (ResourceProfile, bool) {
	if p, ok := profiles[section]; ok {
		return p, true
	}
	p, ok := recommendedProfiles[section]
	return p, ok
}

// MissingMandatoryFields returns the profile fields a record lacks, or nil
// when the record satisfies its section's profile. The second return is false
// when no profile is registered for the section.
func MissingMandatoryFields(resource map[string]interface{}, section Section) ([]string, bool) {
	profile, ok := ProfileFor(section)
	if !ok {
		return nil, false
	}
	var missing []string
	for _, field := range profile.MandatoryFields {
		if _, present := resource[field]; !present {
			missing = append(missing, field)
		}
	}
	return missing, true
}

// ValidateResource checks a record against its section's mandatory-field
// list. Records for unknown sections are rejected.
func ValidateResource(resource map[string]interface{}, section Section) bool {
	missing, ok := MissingMandatoryFields(resource, section)
	if !ok {
		log.Debug().
			Str("resourceType", resourceKind(resource)).
			Str("section", string(section)).
			Msg("no profile registered for section")
		return false
	}
	if len(missing) > 0 {
		log.Debug().
			Str("section", string(section)).
			Strs("missing", missing).
			Msg("resource missing mandatory profile fields")
		return false
	}
	return true
}
