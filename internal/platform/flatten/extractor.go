// Package flatten projects individual clinical records into flat tabular
// rows for analytics. Extraction is one-to-one field copying with no
// decision logic: absent fields yield empty cells, never an error.
package flatten

import (
	"fmt"
	"strings"
)

// Row is one flattened record. Values are strings; numeric FHIR values are
// formatted with %v.
type Row map[string]string

// Extractor flattens one record kind into a row.
type Extractor func(resource map[string]interface{}) Row

// extractors is the static registry of flat-field extractors by record kind.
var extractors = map[string]Extractor{
	"Patient":             ExtractPatient,
	"AllergyIntolerance":  ExtractAllergyIntolerance,
	"Condition":           ExtractCondition,
	"MedicationRequest":   ExtractMedication,
	"MedicationStatement": ExtractMedication,
	"Immunization":        ExtractImmunization,
	"Observation":         ExtractObservation,
	"Procedure":           ExtractProcedure,
	"DiagnosticReport":    ExtractDiagnosticReport,
	"Encounter":           ExtractEncounter,
	"Organization":        ExtractOrganization,
}

// headers fixes the CSV column order per record kind.
var headers = map[string][]string{
	"Patient":             {"id", "name_given", "name_family", "birth_date", "gender", "address_line", "address_city", "address_state", "telecom_phone"},
	"AllergyIntolerance":  {"id", "patient_id", "clinical_status", "verification_status", "type", "category", "criticality", "code", "code_display", "onset_datetime"},
	"Condition":           {"id", "patient_id", "clinical_status", "verification_status", "category", "code", "code_display", "onset_datetime", "recorded_date"},
	"MedicationRequest":   {"id", "patient_id", "status", "intent", "medication_code", "medication_display", "authored_on", "dosage_text"},
	"MedicationStatement": {"id", "patient_id", "status", "intent", "medication_code", "medication_display", "authored_on", "dosage_text"},
	"Immunization":        {"id", "patient_id", "status", "vaccine_code", "vaccine_display", "occurrence_datetime", "manufacturer", "lot_number"},
	"Observation":         {"id", "patient_id", "status", "category", "code", "value_quantity", "value_string", "effective_datetime"},
	"Procedure":           {"id", "patient_id", "status", "code", "code_display", "performed_datetime"},
	"DiagnosticReport":    {"id", "patient_id", "status", "category", "code", "code_display", "effective_datetime", "conclusion"},
	"Encounter":           {"id", "patient_id", "status", "class", "type_display", "period_start", "period_end"},
	"Organization":        {"id", "name", "identifier_system", "identifier_value"},
}

// ExtractorFor returns the registered extractor for a record kind.
func ExtractorFor(kind string) (Extractor, bool) {
	e, ok := extractors[kind]
	return e, ok
}

// HeadersFor returns the fixed column order for a record kind.
func HeadersFor(kind string) []string {
	return headers[kind]
}

// RowsFromBundle extracts a row for every bundle entry of the given kind,
// preserving entry order.
func RowsFromBundle(bundle map[string]interface{}, kind string) []Row {
	extractor, ok := extractors[kind]
	if !ok {
		return nil
	}
	var rows []Row
	entries, _ := bundle["entry"].([]interface{})
	for _, e := range entries {
		entry, ok := e.(map[string]interface{})
		if !ok {
			continue
		}
		resource, ok := entry["resource"].(map[string]interface{})
		if !ok {
			continue
		}
		if rt, _ := resource["resourceType"].(string); rt != kind {
			continue
		}
		rows = append(rows, extractor(resource))
	}
	return rows
}

// ExtractPatient flattens demographic fields of a Patient.
func ExtractPatient(r map[string]interface{}) Row {
	name := firstElem(r, "name")
	address := firstElem(r, "address")
	return Row{
		"id":            str(r, "id"),
		"name_given":    firstString(name, "given"),
		"name_family":   str(name, "family"),
		"birth_date":    str(r, "birthDate"),
		"gender":        str(r, "gender"),
		"address_line":  firstString(address, "line"),
		"address_city":  str(address, "city"),
		"address_state": str(address, "state"),
		"telecom_phone": telecomValue(r, "phone"),
	}
}

// ExtractAllergyIntolerance flattens an AllergyIntolerance.
func ExtractAllergyIntolerance(r map[string]interface{}) Row {
	return Row{
		"id":                  str(r, "id"),
		"patient_id":          referenceID(r, "patient"),
		"clinical_status":     firstCodingField(r, "clinicalStatus", "code"),
		"verification_status": firstCodingField(r, "verificationStatus", "code"),
		"type":                str(r, "type"),
		"category":            firstStringOf(r, "category"),
		"criticality":         str(r, "criticality"),
		"code":                firstCodingField(r, "code", "code"),
		"code_display":        firstCodingField(r, "code", "display"),
		"onset_datetime":      str(r, "onsetDateTime"),
	}
}

// ExtractCondition flattens a Condition.
func ExtractCondition(r map[string]interface{}) Row {
	return Row{
		"id":                  str(r, "id"),
		"patient_id":          referenceID(r, "subject"),
		"clinical_status":     firstCodingField(r, "clinicalStatus", "code"),
		"verification_status": firstCodingField(r, "verificationStatus", "code"),
		"category":            firstCategoryCoding(r, "category"),
		"code":                firstCodingField(r, "code", "code"),
		"code_display":        firstCodingField(r, "code", "display"),
		"onset_datetime":      str(r, "onsetDateTime"),
		"recorded_date":       str(r, "recordedDate"),
	}
}

// ExtractMedication flattens a MedicationRequest or MedicationStatement.
func ExtractMedication(r map[string]interface{}) Row {
	display := firstCodingField(r, "medicationCodeableConcept", "display")
	if display == "" {
		if ref, ok := r["medicationReference"].(map[string]interface{}); ok {
			display = str(ref, "display")
		}
	}
	dosage := firstElem(r, "dosageInstruction")
	if dosage == nil {
		dosage = firstElem(r, "dosage")
	}
	return Row{
		"id":                 str(r, "id"),
		"patient_id":         referenceID(r, "subject"),
		"status":             str(r, "status"),
		"intent":             str(r, "intent"),
		"medication_code":    firstCodingField(r, "medicationCodeableConcept", "code"),
		"medication_display": display,
		"authored_on":        str(r, "authoredOn"),
		"dosage_text":        str(dosage, "text"),
	}
}

// ExtractImmunization flattens an Immunization.
func ExtractImmunization(r map[string]interface{}) Row {
	manufacturer := ""
	if m, ok := r["manufacturer"].(map[string]interface{}); ok {
		manufacturer = str(m, "display")
	}
	return Row{
		"id":                  str(r, "id"),
		"patient_id":          referenceID(r, "patient"),
		"status":              str(r, "status"),
		"vaccine_code":        firstCodingField(r, "vaccineCode", "code"),
		"vaccine_display":     firstCodingField(r, "vaccineCode", "display"),
		"occurrence_datetime": str(r, "occurrenceDateTime"),
		"manufacturer":        manufacturer,
		"lot_number":          str(r, "lotNumber"),
	}
}

// ExtractObservation flattens an Observation.
func ExtractObservation(r map[string]interface{}) Row {
	valueQuantity := ""
	if vq, ok := r["valueQuantity"].(map[string]interface{}); ok {
		if v, ok := vq["value"]; ok && v != nil {
			valueQuantity = fmt.Sprintf("%v", v)
		}
	}
	return Row{
		"id":                 str(r, "id"),
		"patient_id":         referenceID(r, "subject"),
		"status":             str(r, "status"),
		"category":           firstCategoryCoding(r, "category"),
		"code":               firstCodingField(r, "code", "code"),
		"value_quantity":     valueQuantity,
		"value_string":       str(r, "valueString"),
		"effective_datetime": str(r, "effectiveDateTime"),
	}
}

// ExtractProcedure flattens a Procedure.
func ExtractProcedure(r map[string]interface{}) Row {
	return Row{
		"id":                 str(r, "id"),
		"patient_id":         referenceID(r, "subject"),
		"status":             str(r, "status"),
		"code":               firstCodingField(r, "code", "code"),
		"code_display":       firstCodingField(r, "code", "display"),
		"performed_datetime": str(r, "performedDateTime"),
	}
}

// ExtractDiagnosticReport flattens a DiagnosticReport.
func ExtractDiagnosticReport(r map[string]interface{}) Row {
	return Row{
		"id":                 str(r, "id"),
		"patient_id":         referenceID(r, "subject"),
		"status":             str(r, "status"),
		"category":           firstCategoryCoding(r, "category"),
		"code":               firstCodingField(r, "code", "code"),
		"code_display":       firstCodingField(r, "code", "display"),
		"effective_datetime": str(r, "effectiveDateTime"),
		"conclusion":         str(r, "conclusion"),
	}
}

// ExtractEncounter flattens an Encounter.
func ExtractEncounter(r map[string]interface{}) Row {
	class := ""
	if cls, ok := r["class"].(map[string]interface{}); ok {
		class = str(cls, "code")
	}
	typeDisplay := ""
	if t := firstElem(r, "type"); t != nil {
		if codings, ok := t["coding"].([]interface{}); ok && len(codings) > 0 {
			if coding, ok := codings[0].(map[string]interface{}); ok {
				typeDisplay = str(coding, "display")
			}
		}
	}
	period, _ := r["period"].(map[string]interface{})
	return Row{
		"id":           str(r, "id"),
		"patient_id":   referenceID(r, "subject"),
		"status":       str(r, "status"),
		"class":        class,
		"type_display": typeDisplay,
		"period_start": str(period, "start"),
		"period_end":   str(period, "end"),
	}
}

// ExtractOrganization flattens an Organization.
func ExtractOrganization(r map[string]interface{}) Row {
	identifier := firstElem(r, "identifier")
	return Row{
		"id":                str(r, "id"),
		"name":              str(r, "name"),
		"identifier_system": str(identifier, "system"),
		"identifier_value":  str(identifier, "value"),
	}
}

// ---------------------------------------------------------------------------
// Safe field access
// ---------------------------------------------------------------------------

func str(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
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

func firstElem(m map[string]interface{}, key string) map[string]interface{} {
	if m == nil {
		return nil
	}
	arr, ok := m[key].([]interface{})
	if !ok || len(arr) == 0 {
		return nil
	}
	elem, _ := arr[0].(map[string]interface{})
	return elem
}

func firstString(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	arr, ok := m[key].([]interface{})
	if !ok || len(arr) == 0 {
		return ""
	}
	s, _ := arr[0].(string)
	return s
}

// firstStringOf returns the first element of a string array field on the
// resource itself (e.g. AllergyIntolerance.category).
func firstStringOf(m map[string]interface{}, key string) string {
	return firstString(m, key)
}

// firstCodingField returns a field of the first coding of a CodeableConcept.
func firstCodingField(m map[string]interface{}, conceptKey, codingField string) string {
	if m == nil {
		return ""
	}
	concept, ok := m[conceptKey].(map[string]interface{})
	if !ok {
		return ""
	}
	codings, ok := concept["coding"].([]interface{})
	if !ok || len(codings) == 0 {
		return ""
	}
	coding, ok := codings[0].(map[string]interface{})
	if !ok {
		return ""
	}
	return str(coding, codingField)
}

// firstCategoryCoding returns the first coding code of the first element of a
// CodeableConcept array field.
func firstCategoryCoding(m map[string]interface{}, key string) string {
	elem := firstElem(m, key)
	if elem == nil {
		return ""
	}
	codings, ok := elem["coding"].([]interface{})
	if !ok || len(codings) == 0 {
		return ""
	}
	coding, ok := codings[0].(map[string]interface{})
	if !ok {
		return ""
	}
	return str(coding, "code")
}

func referenceID(m map[string]interface{}, key string) string {
	ref, ok := m[key].(map[string]interface{})
	if !ok {
		return ""
	}
	full := str(ref, "reference")
	if full == "" {
		return ""
	}
	parts := strings.Split(full, "/")
	return parts[len(parts)-1]
}

func telecomValue(m map[string]interface{}, system string) string {
	arr, ok := m["telecom"].([]interface{})
	if !ok {
		return ""
	}
	for _, t := range arr {
		tc, ok := t.(map[string]interface{})
		if !ok {
			continue
		}
		if str(tc, "system") == system {
			return str(tc, "value")
		}
	}
	return ""
}
