package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"finn_scraper/models"
)

var numericRe = regexp.MustCompile(`[\d ]+`)

type compiledPatterns struct {
	field    string
	patterns []*regexp.Regexp
}

// Engine is the schema-driven field extractor. It combines pattern-based
// extraction over the full text with delimiter-based extraction scoped to
// the section after the section marker, plus the structural extractors for
// area names and images. One engine serves all listings; the field schema
// is compiled once at construction.
type Engine struct {
	spec        Spec
	topFields   []compiledPatterns
	roomsRe     *regexp.Regexp
	numeric     map[string]bool
	markerLower string
}

func NewEngine(spec Spec) (*Engine, error) {
	e := &Engine{
		spec:        spec,
		numeric:     make(map[string]bool, len(spec.NumericFields)),
		markerLower: strings.ToLower(spec.SectionMarker),
	}

	for field, cfg := range spec.TopFields {
		cp := compiledPatterns{field: field}
		patterns := []string{}
		if cfg.Pattern != "" {
			patterns = append(patterns, cfg.Pattern)
		}
		patterns = append(patterns, cfg.FallbackPatterns...)
		for _, pat := range patterns {
			re, err := regexp.Compile(`(?is)` + pat)
			if err != nil {
				return nil, fmt.Errorf("field %q: compile pattern %q: %w", field, pat, err)
			}
			cp.patterns = append(cp.patterns, re)
		}
		e.topFields = append(e.topFields, cp)
	}

	if spec.RoomsPattern != "" {
		re, err := regexp.Compile(`(?is)` + spec.RoomsPattern)
		if err != nil {
			return nil, fmt.Errorf("compile rooms pattern: %w", err)
		}
		e.roomsRe = re
	}

	for _, field := range spec.NumericFields {
		e.numeric[field] = true
	}

	return e, nil
}

// Parse extracts the full property schema from a parsed listing page.
// Fields that cannot be found are set to the missing sentinel; Parse never
// fails on missing data.
func (e *Engine) Parse(finnCode string, doc *goquery.Document) *models.PropertyRecord {
	rec := models.NewPropertyRecord(finnCode, e.spec.ImageCount)
	text := NormalizeText(doc.Text())

	set := fieldSetters(rec)

	for field, value := range e.parseTopSection(text) {
		if dst, ok := set[field]; ok {
			*dst = value
		}
	}
	for field, value := range e.parseSectionFields(text) {
		if dst, ok := set[field]; ok {
			*dst = value
		}
	}

	rec.LocalArea = extractLocalArea(doc)
	rec.AreaName = extractBreadcrumbArea(doc)
	rec.Images = extractImageURLs(doc, e.spec.ImageCount)

	return rec
}

// parseTopSection runs the pattern specs against the full text.
func (e *Engine) parseTopSection(text string) map[string]string {
	data := make(map[string]string, len(e.topFields))
	for _, cp := range e.topFields {
		var raw string
		for _, re := range cp.patterns {
			if m := re.FindStringSubmatch(text); m != nil {
				raw = strings.TrimSpace(m[1])
				break
			}
		}
		data[cp.field] = e.postProcess(cp.field, raw)
	}
	return data
}

// parseSectionFields runs the token specs against the text following the
// section marker, or the whole text when the marker is absent. The rooms
// field is extracted from the full text independently.
func (e *Engine) parseSectionFields(text string) map[string]string {
	section := text
	if idx := strings.Index(strings.ToLower(text), e.markerLower); idx >= 0 {
		section = text[idx+len(e.markerLower):]
	}

	data := make(map[string]string, len(e.spec.SectionFields)+1)
	for field, cfg := range e.spec.SectionFields {
		occurrence := cfg.Occurrence
		if occurrence < 1 {
			occurrence = 1
		}
		raw, _ := ExtractBetween(section, cfg.Start, cfg.End, occurrence, DefaultValidator)
		data[field] = e.postProcess(field, raw)
	}

	if e.roomsRe != nil {
		var raw string
		if m := e.roomsRe.FindStringSubmatch(text); m != nil {
			raw = m[1]
		}
		data["rooms"] = e.postProcess("rooms", raw)
	}

	return data
}

// postProcess cleans an extracted value. Numeric fields are reduced to a
// digit string (internal spaces removed); anything without digits becomes
// the missing sentinel, as does an empty raw value.
func (e *Engine) postProcess(field, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return models.NotFound
	}
	if e.numeric[field] {
		m := numericRe.FindString(value)
		m = strings.ReplaceAll(m, " ", "")
		if m == "" {
			return models.NotFound
		}
		return m
	}
	return value
}

func fieldSetters(rec *models.PropertyRecord) map[string]*string {
	return map[string]*string{
		"title":                &rec.Title,
		"address":              &rec.Address,
		"asking_price":         &rec.AskingPrice,
		"total_price":          &rec.TotalPrice,
		"costs":                &rec.Costs,
		"joint_debt":           &rec.JointDebt,
		"monthly_fee":          &rec.MonthlyFee,
		"property_type":        &rec.PropertyType,
		"ownership":            &rec.Ownership,
		"bedrooms":             &rec.Bedrooms,
		"internal_area":        &rec.InternalArea,
		"usable_area":          &rec.UsableArea,
		"external_usable_area": &rec.ExternalUsableArea,
		"floor":                &rec.Floor,
		"build_year":           &rec.BuildYear,
		"rooms":                &rec.Rooms,
	}
}
