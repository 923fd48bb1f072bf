package ips

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// xhtmlNamespace is the namespace every finalized narrative container carries.
const xhtmlNamespace = "http://www.w3.org/1999/xhtml"

// sectionRenderer produces the inner HTML for one section's records.
type sectionRenderer func(resources []map[string]interface{}, loc *time.Location) string

// NarrativeGenerator renders section records into human-readable XHTML.
// Rendering failures are isolated per section: a failing renderer yields a
// visible inline error marker instead of aborting the assembly.
type NarrativeGenerator struct {
	renderers map[Section]sectionRenderer
	logger    zerolog.Logger
}

// NewNarrativeGenerator creates a generator pre-loaded with the built-in
// section renderers.
func NewNarrativeGenerator(logger zerolog.Logger) *NarrativeGenerator {
	g := &NarrativeGenerator{
		renderers: make(map[Section]sectionRenderer),
		logger:    logger,
	}
	g.renderers[SectionPatient] = renderPatient
	g.renderers[SectionAllergies] = renderAllergies
	g.renderers[SectionMedications] = renderMedications
	g.renderers[SectionProblems] = renderProblems
	g.renderers[SectionImmunizations] = renderImmunizations
	return g
}

// GenerateContent renders the inner HTML for a section. It returns "" when
// the record list is empty: no records means no narrative, which callers must
// treat differently from an empty string produced downstream. Sections
// without a dedicated renderer fall back to a heading plus a record count.
func (g *NarrativeGenerator) GenerateContent(section Section, resources []map[string]interface{}, loc *time.Location) (content string) {
	if len(resources) == 0 {
		return ""
	}

	defer func() {
		if r := recover(); r != nil {
			g.logger.Warn().
				Str("section", string(section)).
				Interface("panic", r).
				Msg("narrative rendering degraded")
			content = fmt.Sprintf(`<div class="error">Error generating narrative: %s</div>`,
				html.EscapeString(fmt.Sprintf("%v", r)))
		}
	}()

	renderer, ok := g.renderers[section]
	if !ok {
		renderer = genericRenderer(section)
	}
	return renderer(resources, loc)
}

// GenerateNarrative renders a section into a complete narrative element
// ({"status":"generated","div":...}), or nil when the section has no records.
func (g *NarrativeGenerator) GenerateNarrative(section Section, resources []map[string]interface{}, loc *time.Location, minify bool) map[string]interface{} {
	content := g.GenerateContent(section, resources, loc)
	if content == "" {
		return nil
	}
	return g.CreateNarrative(content, minify)
}

// CreateNarrative wraps rendered content into the namespaced narrative
// container, optionally minifying it first with the standard profile.
// A minifier failure falls back to the unminified content.
func (g *NarrativeGenerator) CreateNarrative(content string, minify bool) map[string]interface{} {
	if minify {
		content = g.Minify(content, false)
	}
	return map[string]interface{}{
		"status": "generated",
		"div":    WrapXHTML(content),
	}
}

// Minify applies the selected minification profile, logging and falling back
// to the input on failure. The error never reaches the caller.
func (g *NarrativeGenerator) Minify(markup string, aggressive bool) string {
	out, err := MinifyMarkup(markup, aggressive)
	if err != nil {
		g.logger.Warn().Err(err).Msg("markup minification degraded")
		return markup
	}
	return out
}

// WrapXHTML wraps content in the FHIR narrative container element.
func WrapXHTML(content string) string {
	return fmt.Sprintf(`<div xmlns="%s">%s</div>`, xhtmlNamespace, content)
}

// ---------------------------------------------------------------------------
// Built-in renderers
// ---------------------------------------------------------------------------

func renderPatient(resources []map[string]interface{}, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("<h2>Patient Summary</h2>")
	for _, r := range resources {
		if resourceKind(r) != "Patient" {
			continue
		}
		b.WriteString("<ul>")
		if name := humanName(r); name != "" {
			fmt.Fprintf(&b, "<li><strong>Name:</strong> %s</li>", html.EscapeString(name))
		}
		if gender := strVal(r, "gender"); gender != "" {
			fmt.Fprintf(&b, "<li><strong>Gender:</strong> %s</li>", html.EscapeString(capitalize(gender)))
		}
		if dob := strVal(r, "birthDate"); dob != "" {
			fmt.Fprintf(&b, "<li><strong>Date of Birth:</strong> %s</li>", formatDate(dob, loc))
		}
		if ids := identifierList(r); len(ids) > 0 {
			fmt.Fprintf(&b, "<li><strong>Identifier(s):</strong> %s</li>", strings.Join(ids, ", "))
		}
		b.WriteString("</ul>")
	}
	return b.String()
}

func renderAllergies(resources []map[string]interface{}, _ *time.Location) string {
	var b strings.Builder
	b.WriteString("<h3>Allergies and Adverse Reactions</h3>")
	items := 0
	b.WriteString("<ul>")
	for _, r := range resources {
		if resourceKind(r) != "AllergyIntolerance" {
			continue
		}
		text := conceptText(r, "code")
		if text == "" {
			text = "Unknown allergen"
		}
		if criticality := strVal(r, "criticality"); criticality != "" {
			text += " (" + criticality + ")"
		}
		fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(text))
		items++
	}
	b.WriteString("</ul>")
	if items == 0 {
		return "<h3>Allergies and Adverse Reactions</h3><p>No known allergies.</p>"
	}
	return b.String()
}

func renderMedications(resources []map[string]interface{}, _ *time.Location) string {
	var b strings.Builder
	b.WriteString("<h3>Medications</h3>")
	items := 0
	b.WriteString("<ul>")
	for _, r := range resources {
		kind := resourceKind(r)
		if kind != "MedicationRequest" && kind != "MedicationStatement" {
			continue
		}
		text := conceptText(r, "medicationCodeableConcept")
		if text == "" {
			if medRef := mapVal(r, "medicationReference"); medRef != nil {
				text = strVal(medRef, "display")
			}
		}
		if text == "" {
			text = "Unknown medication"
		}
		fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(text))
		items++
	}
	b.WriteString("</ul>")
	if items == 0 {
		return "<h3>Medications</h3><p>No current medications.</p>"
	}
	return b.String()
}

func renderProblems(resources []map[string]interface{}, _ *time.Location) string {
	var b strings.Builder
	b.WriteString("<h3>Problems</h3>")
	items := 0
	b.WriteString("<ul>")
	for _, r := range resources {
		if resourceKind(r) != "Condition" {
			continue
		}
		text := conceptText(r, "code")
		if text == "" {
			text = "Unknown condition"
		}
		fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(text))
		items++
	}
	b.WriteString("</ul>")
	if items == 0 {
		return "<h3>Problems</h3><p>No active problems.</p>"
	}
	return b.String()
}

func renderImmunizations(resources []map[string]interface{}, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("<h3>Immunizations</h3>")
	items := 0
	b.WriteString("<ul>")
	for _, r := range resources {
		if resourceKind(r) != "Immunization" {
			continue
		}
		text := conceptText(r, "vaccineCode")
		if text == "" {
			text = "Unknown vaccine"
		}
		line := html.EscapeString(text)
		if occurred := strVal(r, "occurrenceDateTime"); occurred != "" {
			line += " (" + formatDate(occurred, loc) + ")"
		}
		fmt.Fprintf(&b, "<li>%s</li>", line)
		items++
	}
	b.WriteString("</ul>")
	if items == 0 {
		return "<h3>Immunizations</h3><p>No recorded immunizations.</p>"
	}
	return b.String()
}

// genericRenderer emits a heading derived from the section name plus a record
// count. It serves every section without a dedicated renderer.
func genericRenderer(section Section) sectionRenderer {
	return func(resources []map[string]interface{}, _ *time.Location) string {
		title := sectionHeading(section)
		if len(resources) == 0 {
			return fmt.Sprintf("<h3>%s</h3><p>No %s information available.</p>",
				title, strings.ToLower(title))
		}
		return fmt.Sprintf("<h3>%s</h3><p>%d %s entries recorded.</p>",
			title, len(resources), strings.ToLower(title))
	}
}

// sectionHeading turns a section value like "VitalSignsSection" into
// "Vital Signs".
func sectionHeading(section Section) string {
	name := strings.TrimSuffix(string(section), "Section")
	var b strings.Builder
	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// Rendering helpers
// ---------------------------------------------------------------------------

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func identifierList(resource map[string]interface{}) []string {
	var out []string
	for _, id := range sliceVal(resource, "identifier") {
		idMap, ok := id.(map[string]interface{})
		if !ok {
			continue
		}
		value := strVal(idMap, "value")
		if value == "" {
			continue
		}
		if system := strVal(idMap, "system"); system != "" {
			out = append(out, html.EscapeString(system)+": "+html.EscapeString(value))
		} else {
			out = append(out, html.EscapeString(value))
		}
	}
	return out
}

// formatDate renders a date-bearing field for display. The time-zone hint
// only affects the rendered string, never the surrounding markup: an
// unparseable value is shown as-is.
func formatDate(s string, loc *time.Location) string {
	t, ok := parseFHIRDate(s)
	if !ok {
		return html.EscapeString(s)
	}
	if strings.Contains(s, "T") {
		if loc != nil {
			t = t.In(loc)
		}
		return t.Format("2006-01-02 15:04")
	}
	return t.Format("2006-01-02")
}
