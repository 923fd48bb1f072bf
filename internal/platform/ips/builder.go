package ips

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SectionOptions configures a single AddSection call.
type SectionOptions struct {
	// IsOptional marks the section as not counting toward mandatory-section
	// completeness; with an empty record list the call becomes a no-op
	// instead of failing.
	IsOptional bool
	// CustomLoincCode overrides the registry's LOINC code for this section.
	CustomLoincCode string
}

// SummaryBuilder accumulates sections and records for one IPS assembly run.
// A builder instance represents exactly one run: create it, feed it, build,
// discard. It is not safe for concurrent use; callers must serialize access.
type SummaryBuilder struct {
	patient        map[string]interface{}
	sections       []map[string]interface{}
	mandatoryAdded map[Section]bool
	resources      []map[string]interface{}
	seenIDs        map[string]bool
	narrative      *NarrativeGenerator
	aggressive     bool
	logger         zerolog.Logger
}

// NewSummaryBuilder creates an empty builder.
func NewSummaryBuilder(logger zerolog.Logger) *SummaryBuilder {
	return &SummaryBuilder{
		mandatoryAdded: make(map[Section]bool),
		seenIDs:        make(map[string]bool),
		narrative:      NewNarrativeGenerator(logger),
		logger:         logger,
	}
}

// UseAggressiveMinification switches the document-level narrative to the
// aggressive minification profile. Section narratives always use the
// standard profile.
func (b *SummaryBuilder) UseAggressiveMinification() *SummaryBuilder {
	b.aggressive = true
	return b
}

// SetPatient sets the document subject. Not needed when ReadBundle is used,
// which locates the patient itself.
func (b *SummaryBuilder) SetPatient(patient map[string]interface{}) (*SummaryBuilder, error) {
	if patient == nil || resourceKind(patient) != "Patient" {
		return b, ErrInvalidSubject
	}
	b.patient = patient
	return b, nil
}

// AddSection adds a section populated with the given records. The records
// are deduplicated by id into the builder's record set before anything else.
// Records for the Patient section are absorbed but never produce a section
// entry; the patient is summarized only in the document-level narrative.
//
// An empty record list fails with MissingMandatoryDataError unless
// opts.IsOptional is set, in which case the call is a silent no-op.
// The timezone hint (IANA name) only affects date formatting in the
// narrative.
func (b *SummaryBuilder) AddSection(section Section, resources []map[string]interface{}, timezone string, opts *SectionOptions) (*SummaryBuilder, error) {
	if opts == nil {
		opts = &SectionOptions{}
	}

	for _, resource := range resources {
		id := resourceID(resource)
		if b.seenIDs[id] {
			continue
		}
		b.seenIDs[id] = true
		b.resources = append(b.resources, resource)
	}

	if len(resources) == 0 {
		if !opts.IsOptional {
			return b, &MissingMandatoryDataError{Section: section}
		}
		return b, nil
	}

	if section == SectionPatient {
		return b, nil
	}

	narrative := b.narrative.GenerateNarrative(section, resources, b.location(timezone), true)

	entries := make([]interface{}, 0, len(resources))
	for _, resource := range resources {
		kind := resourceKind(resource)
		if kind == "" {
			kind = "Unknown"
		}
		entries = append(entries, map[string]interface{}{
			"reference": kind + "/" + resourceID(resource),
			"display":   kind,
		})
	}

	sectionEntry := map[string]interface{}{
		"title": DisplayTitleFor(section),
		"code":  CodedCategoryFor(section, opts.CustomLoincCode),
		"text":  narrative,
		"entry": entries,
	}

	if !opts.IsOptional {
		b.mandatoryAdded[section] = true
	}

	b.sections = append(b.sections, sectionEntry)
	return b, nil
}

// ReadBundle discovers sections from a raw bundle. For every section in
// registry order it gathers the entries whose kind matches the section's
// registered kinds, applies the section-level predicate if one exists, and
// adds the remaining records with IsOptional set.
//
// Every discovered section is added optionally, including the four mandatory
// ones, so bundle discovery alone never satisfies mandatory-section
// validation at Build. Callers that trust the bundle must confirm mandatory
// sections explicitly (see the $summarize handler).
func (b *SummaryBuilder) ReadBundle(bundle map[string]interface{}, timezone string) (*SummaryBuilder, error) {
	entries := sliceVal(bundle, "entry")
	if len(entries) == 0 {
		return b, nil
	}

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
		return b, ErrSubjectNotFound
	}
	b.patient = patient

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
		if _, err := b.AddSection(section, resources, timezone, &SectionOptions{IsOptional: true}); err != nil {
			return b, err
		}
	}

	return b, nil
}

// Build validates mandatory-section completeness and returns the accumulated
// section entries in the order they were added. The builder state is not
// mutated; Build may be combined with BuildBundle on the same run.
func (b *SummaryBuilder) Build() ([]map[string]interface{}, error) {
	var missing []Section
	for _, section := range MandatorySections {
		if !b.mandatoryAdded[section] {
			missing = append(missing, section)
		}
	}
	if len(missing) > 0 {
		return nil, &IncompleteMandatorySectionsError{Missing: missing}
	}
	return b.sections, nil
}

// BuildBundle assembles the complete document bundle: the composition first,
// then the patient, then every distinct non-patient record in first-seen
// order, and the authoring organization last.
func (b *SummaryBuilder) BuildBundle(orgID, orgName, baseURL, timezone string) (map[string]interface{}, error) {
	if b.patient == nil {
		return nil, ErrSubjectNotSet
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	now := time.Now().Format(time.RFC3339)
	patientID := resourceID(b.patient)

	composition := map[string]interface{}{
		"resourceType": "Composition",
		"id":           "Composition-" + patientID,
		"status":       "final",
		"type": map[string]interface{}{
			"coding": []interface{}{
				map[string]interface{}{
					"system":  LOINCSystem,
					"code":    DocumentTypeCode,
					"display": DocumentTypeDisplay,
				},
			},
		},
		"subject": map[string]interface{}{"reference": "Patient/" + patientID},
		"author": []interface{}{
			map[string]interface{}{
				"reference": "Organization/" + orgID,
				"display":   orgName,
			},
		},
		"date":    now,
		"title":   DocumentTitle,
		"section": b.sections,
		"text":    b.documentNarrative(timezone),
	}

	entries := []interface{}{
		map[string]interface{}{
			"fullUrl":  baseURL + "/Composition/" + strVal(composition, "id"),
			"resource": composition,
		},
		map[string]interface{}{
			"fullUrl":  baseURL + "/Patient/" + patientID,
			"resource": b.patient,
		},
	}

	for _, resource := range b.resources {
		if resourceKind(resource) == "Patient" {
			continue
		}
		entries = append(entries, map[string]interface{}{
			"fullUrl":  baseURL + "/" + resourceKind(resource) + "/" + resourceID(resource),
			"resource": resource,
		})
	}

	entries = append(entries, map[string]interface{}{
		"fullUrl": baseURL + "/Organization/" + orgID,
		"resource": map[string]interface{}{
			"resourceType": "Organization",
			"id":           orgID,
			"name":         orgName,
		},
	})

	return map[string]interface{}{
		"resourceType": "Bundle",
		"type":         "document",
		"identifier": map[string]interface{}{
			"system": "urn:ietf:rfc:3986",
			"value":  "urn:uuid:" + uuid.New().String(),
		},
		"timestamp": now,
		"entry":     entries,
	}, nil
}

// documentNarrative stitches the document-level narrative from the patient
// narrative and every non-empty section's content, in registry order. The
// per-section order here is deliberately independent of the order sections
// were added in.
func (b *SummaryBuilder) documentNarrative(timezone string) map[string]interface{} {
	loc := b.location(timezone)

	var content strings.Builder
	content.WriteString(b.narrative.GenerateContent(SectionPatient,
		[]map[string]interface{}{b.patient}, loc))

	for _, section := range AllSections {
		if section == SectionPatient {
			continue
		}
		kinds := ResourceKindsFor(section)
		var resources []map[string]interface{}
		for _, r := range b.resources {
			if kindIn(resourceKind(r), kinds) {
				resources = append(resources, r)
			}
		}
		if len(resources) == 0 {
			continue
		}
		content.WriteString(b.narrative.GenerateContent(section, resources, loc))
	}

	return map[string]interface{}{
		"status": "generated",
		"div":    WrapXHTML(b.narrative.Minify(content.String(), b.aggressive)),
	}
}

// location resolves an IANA timezone name. Empty or unknown names degrade to
// the records' own zone information.
func (b *SummaryBuilder) location(timezone string) *time.Location {
	if timezone == "" {
		return nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		b.logger.Warn().Str("timezone", timezone).Msg("unknown timezone, using record zone info")
		return nil
	}
	return loc
}

func kindIn(kind string, kinds []string) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
