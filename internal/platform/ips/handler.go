package ips

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// SummaryHandler exposes the IPS assembly operations over HTTP. It adapts
// requests to the builder at the core's interface boundary; the core itself
// performs no I/O.
type SummaryHandler struct {
	orgID   string
	orgName string
	baseURL string
	logger  zerolog.Logger
}

// NewSummaryHandler creates a handler with the authoring organization
// identity and the base URL used for bundle entry locators.
func NewSummaryHandler(orgID, orgName, baseURL string, logger zerolog.Logger) *SummaryHandler {
	return &SummaryHandler{orgID: orgID, orgName: orgName, baseURL: baseURL, logger: logger}
}

// RegisterRoutes registers the IPS routes on the given FHIR group.
func (h *SummaryHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/Bundle/$summarize", h.Summarize)
	g.POST("/Bundle/$sections", h.Sections)
	g.POST("/$aggregate", h.AggregateResources)
	g.POST("/$validate-ips", h.ValidateResource)
}

// Summarize handles POST /fhir/Bundle/$summarize. The body is a FHIR Bundle
// of candidate records; the response is the assembled IPS document bundle.
//
// Unlike the builder's own discovery path, the handler confirms mandatory
// sections: a discovered mandatory section with records counts toward
// completeness, so a complete input bundle yields a complete document and an
// incomplete one is rejected with 422 rather than silently emitting a
// non-conformant summary.
func (h *SummaryHandler) Summarize(c echo.Context) error {
	bundle, err := readJSONBody(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorOutcome(err.Error()))
	}

	timezone := c.QueryParam("timezone")

	builder := NewSummaryBuilder(h.logger)
	if c.QueryParam("aggressive") == "true" {
		builder.UseAggressiveMinification()
	}

	if err := h.discoverSections(builder, bundle, timezone); err != nil {
		return h.outcomeForError(c, err)
	}
	if _, err := builder.Build(); err != nil {
		return h.outcomeForError(c, err)
	}

	document, err := builder.BuildBundle(h.orgID, h.orgName, h.baseURL, timezone)
	if err != nil {
		return h.outcomeForError(c, err)
	}
	return c.JSON(http.StatusOK, document)
}

// Sections handles POST /fhir/Bundle/$sections. Same input as Summarize; the
// response carries only the validated section list.
func (h *SummaryHandler) Sections(c echo.Context) error {
	bundle, err := readJSONBody(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorOutcome(err.Error()))
	}

	builder := NewSummaryBuilder(h.logger)
	if err := h.discoverSections(builder, bundle, c.QueryParam("timezone")); err != nil {
		return h.outcomeForError(c, err)
	}
	sections, err := builder.Build()
	if err != nil {
		return h.outcomeForError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"section": sections})
}

// discoverSections partitions bundle entries into sections with the registry
// mapping and section-level predicates, then adds mandatory sections
// non-optionally and all others optionally.
func (h *SummaryHandler) discoverSections(builder *SummaryBuilder, bundle map[string]interface{}, timezone string) error {
	entries := sliceVal(bundle, "entry")

	var patient map[string]interface{}
	for _, e := range entries {
		entry, ok := e.(map[string]interface{})
		if !ok {
			continue
		}
		resource := mapVal(entry, "resource")
		if resource != nil && resourceKind(resource) == "Patient" {
			patient = resource
			break
		}
	}
	if patient == nil {
		return ErrSubjectNotFound
	}
	if _, err := builder.SetPatient(patient); err != nil {
		return err
	}

	for _, section := range AllSections {
		kinds := ResourceKindsFor(section)
		predicate := PredicateFor(section)

		var resources []map[string]interface{}
		for _, e := range entries {
			entry, ok := e.(map[string]interface{})
			if !ok {
				continue
			}
			resource := mapVal(entry, "resource")
			if resource == nil || !kindIn(resourceKind(resource), kinds) {
				continue
			}
			if predicate != nil && !predicate(resource) {
				continue
			}
			resources = append(resources, resource)
		}

		if len(resources) == 0 {
			continue
		}
		opts := &SectionOptions{IsOptional: !IsMandatory(section)}
		if _, err := builder.AddSection(section, resources, timezone, opts); err != nil {
			return err
		}
	}
	return nil
}

// AggregateResources handles POST /fhir/$aggregate. The body maps record
// kinds to record lists; the response is the same mapping narrowed by the
// clinical filter engine.
func (h *SummaryHandler) AggregateResources(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorOutcome("failed to read request body"))
	}

	var byKind map[string][]map[string]interface{}
	if err := json.Unmarshal(body, &byKind); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorOutcome("invalid JSON: "+err.Error()))
	}

	return c.JSON(http.StatusOK, Aggregate(byKind))
}

// validateRequest is the body of POST /fhir/$validate-ips.
type validateRequest struct {
	Resource map[string]interface{} `json:"resource"`
	Section  Section                `json:"section"`
}

// ValidateResource handles POST /fhir/$validate-ips: a mandatory-field
// presence check against the section's IPS profile.
func (h *SummaryHandler) ValidateResource(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorOutcome("failed to read request body"))
	}

	var req validateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorOutcome("invalid JSON: "+err.Error()))
	}
	if req.Resource == nil {
		return c.JSON(http.StatusBadRequest, ErrorOutcome("resource is required"))
	}

	missing, ok := MissingMandatoryFields(req.Resource, req.Section)
	if !ok {
		return c.JSON(http.StatusBadRequest,
			ErrorOutcome("no profile registered for section: "+string(req.Section)))
	}
	if len(missing) > 0 {
		return c.JSON(http.StatusUnprocessableEntity,
			RequiredOutcome("resource does not conform to the IPS profile", missing))
	}
	return c.JSON(http.StatusOK, SuccessOutcome("resource conforms to the IPS profile"))
}

// outcomeForError maps assembly errors to HTTP responses.
func (h *SummaryHandler) outcomeForError(c echo.Context, err error) error {
	var incomplete *IncompleteMandatorySectionsError
	var missingData *MissingMandatoryDataError
	switch {
	case errors.As(err, &incomplete), errors.As(err, &missingData):
		return c.JSON(http.StatusUnprocessableEntity, ErrorOutcome(err.Error()))
	case errors.Is(err, ErrSubjectNotFound), errors.Is(err, ErrInvalidSubject), errors.Is(err, ErrSubjectNotSet):
		return c.JSON(http.StatusBadRequest, ErrorOutcome(err.Error()))
	default:
		return c.JSON(http.StatusInternalServerError, ErrorOutcome(err.Error()))
	}
}

func readJSONBody(c echo.Context) (map[string]interface{}, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, errors.New("failed to read request body")
	}
	if len(body) == 0 {
		return nil, errors.New("request body is empty")
	}
	var m map[string]interface{}
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, errors.New("invalid JSON: " + err.Error())
	}
	return m, nil
}
