package ips

import "testing"

func TestResourceKindsFor(t *testing.T) {
	cases := map[Section][]string{
		SectionMedications:       {"MedicationRequest", "MedicationStatement"},
		SectionDiagnosticReports: {"DiagnosticReport", "Observation"},
		SectionVitalSigns:        {"Observation"},
		SectionAdvanceDirectives: {"DocumentReference"},
	}
	for section, want := range cases {
		got := ResourceKindsFor(section)
		if len(got) != len(want) {
			t.Errorf("%s: kinds = %v, want %v", section, got, want)
			continue
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("%s: kinds[%d] = %s, want %s", section, i, got[i], want[i])
			}
		}
	}
}

func TestPredicateFor_AdvanceDirectivesHasNone(t *testing.T) {
	// Advance directives pass through on kind alone.
	if PredicateFor(SectionAdvanceDirectives) != nil {
		t.Error("expected no predicate for advance directives")
	}
}

func TestObservationCategoryPredicates(t *testing.T) {
	vitals := map[string]interface{}{
		"resourceType": "Observation",
		"category":     categories("vital-signs"),
	}
	social := map[string]interface{}{
		"resourceType": "Observation",
		"category":     categories("social-history"),
	}

	if !PredicateFor(SectionVitalSigns)(vitals) {
		t.Error("vital-signs observation should match the vital signs section")
	}
	if PredicateFor(SectionVitalSigns)(social) {
		t.Error("social-history observation must not match the vital signs section")
	}
	if !PredicateFor(SectionSocialHistory)(social) {
		t.Error("social-history observation should match the social history section")
	}

	// A category match in any coding position counts on the discovery path.
	laterCoding := map[string]interface{}{
		"resourceType": "Observation",
		"category": []interface{}{
			map[string]interface{}{
				"coding": []interface{}{
					map[string]interface{}{"code": "survey"},
					map[string]interface{}{"code": "vital-signs"},
				},
			},
		},
	}
	if !PredicateFor(SectionVitalSigns)(laterCoding) {
		t.Error("discovery predicate should inspect every coding")
	}
}

func TestStatusPredicates(t *testing.T) {
	cases := []struct {
		name     string
		section  Section
		resource map[string]interface{}
		want     bool
	}{
		{"active allergy", SectionAllergies, activeAllergy("a1"), true},
		{"allergy without status", SectionAllergies,
			map[string]interface{}{"resourceType": "AllergyIntolerance", "id": "a2"}, false},
		{"active medication", SectionMedications, activeMedication("m1"), true},
		{"stopped medication", SectionMedications,
			map[string]interface{}{"resourceType": "MedicationStatement", "status": "stopped"}, false},
		{"active condition", SectionProblems, activeCondition("c1"), true},
		{"completed immunization", SectionImmunizations, completedImmunization("i1"), true},
		{"wrong kind", SectionImmunizations, activeCondition("c1"), false},
		{"final report", SectionDiagnosticReports,
			map[string]interface{}{"resourceType": "DiagnosticReport", "status": "final"}, true},
		{"completed procedure", SectionProcedures,
			map[string]interface{}{"resourceType": "Procedure", "status": "completed"}, true},
		{"active care plan", SectionCarePlan,
			map[string]interface{}{"resourceType": "CarePlan", "status": "active"}, true},
		{"active device", SectionMedicalDevices,
			map[string]interface{}{"resourceType": "Device", "status": "active"}, true},
		{"family history any status", SectionFamilyHistory,
			map[string]interface{}{"resourceType": "FamilyMemberHistory"}, true},
	}

	for _, tc := range cases {
		predicate := PredicateFor(tc.section)
		if predicate == nil {
			t.Errorf("%s: no predicate registered", tc.name)
			continue
		}
		if got := predicate(tc.resource); got != tc.want {
			t.Errorf("%s: predicate = %v, want %v", tc.name, got, tc.want)
		}
	}
}
