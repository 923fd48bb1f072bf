package ips

// OperationOutcome is the FHIR error/result envelope returned by the HTTP
// operations.
type OperationOutcome struct {
	ResourceType string                  `json:"resourceType"`
	Issue        []OperationOutcomeIssue `json:"issue"`
}

type OperationOutcomeIssue struct {
	Severity    string   `json:"severity"`
	Code        string   `json:"code"`
	Diagnostics string   `json:"diagnostics,omitempty"`
	Expression  []string `json:"expression,omitempty"`
}

func NewOperationOutcome(severity, code, diagnostics string) *OperationOutcome {
	return &OperationOutcome{
		ResourceType: "OperationOutcome",
		Issue: []OperationOutcomeIssue{
			{Severity: severity, Code: code, Diagnostics: diagnostics},
		},
	}
}

// ErrorOutcome creates a processing-error outcome.
func ErrorOutcome(diagnostics string) *OperationOutcome {
	return NewOperationOutcome("error", "processing", diagnostics)
}

// RequiredOutcome creates an outcome for missing required data, with the
// offending fields in the expression list.
func RequiredOutcome(diagnostics string, fields []string) *OperationOutcome {
	outcome := NewOperationOutcome("error", "required", diagnostics)
	outcome.Issue[0].Expression = fields
	return outcome
}

// SuccessOutcome creates an informational outcome for affirmative results.
func SuccessOutcome(message string) *OperationOutcome {
	return NewOperationOutcome("information", "informational", message)
}
