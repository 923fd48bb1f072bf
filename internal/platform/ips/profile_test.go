package ips

import "testing"

func TestMissingMandatoryFields(t *testing.T) {
	immunization := map[string]interface{}{
		"resourceType": "Immunization",
		"status":       "completed",
		"patient":      map[string]interface{}{"reference": "Patient/p1"},
	}

	missing, ok := MissingMandatoryFields(immunization, SectionImmunizations)
	if !ok {
		t.Fatal("expected a profile for the immunization section")
	}
	want := []string{"vaccineCode", "occurrenceDateTime"}
	if len(missing) != len(want) {
		t.Fatalf("missing = %v, want %v", missing, want)
	}
	for i := range want {
		if missing[i] != want[i] {
			t.Errorf("missing[%d] = %s, want %s", i, missing[i], want[i])
		}
	}
}

func TestMissingMandatoryFields_UnknownSection(t *testing.T) {
	if _, ok := MissingMandatoryFields(map[string]interface{}{}, SectionClinicalImpression); ok {
		t.Error("expected no profile for an unregistered section")
	}
}

func TestValidateResource(t *testing.T) {
	valid := map[string]interface{}{
		"resourceType": "AllergyIntolerance",
		"patient":      map[string]interface{}{"reference": "Patient/p1"},
	}
	if !ValidateResource(valid, SectionAllergies) {
		t.Error("allergy with patient should validate")
	}

	invalid := map[string]interface{}{"resourceType": "AllergyIntolerance"}
	if ValidateResource(invalid, SectionAllergies) {
		t.Error("allergy without patient must not validate")
	}

	// Patient has no mandatory fields beyond the kind tag.
	if !ValidateResource(map[string]interface{}{"resourceType": "Patient"}, SectionPatient) {
		t.Error("bare patient should validate")
	}

	if ValidateResource(valid, Section("NoSuchSection")) {
		t.Error("unknown sections must reject")
	}
}

func TestProfileFor_RecommendedSections(t *testing.T) {
	p, ok := ProfileFor(SectionVitalSigns)
	if !ok {
		t.Fatal("expected a vital signs profile")
	}
	if p.ResourceType != "Observation" {
		t.Errorf("resource type = %s", p.ResourceType)
	}
	if p.LoincCode != "8716-3" {
		t.Errorf("loinc code = %s", p.LoincCode)
	}

	r, ok := ProfileFor(SectionDiagnosticReports)
	if !ok {
		t.Fatal("expected a results profile")
	}
	if r.LoincCode != "26436-6" {
		t.Errorf("results loinc code = %s", r.LoincCode)
	}
}
