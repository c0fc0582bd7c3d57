package parser

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PatternSpec extracts a field from the full normalized text. The primary
// pattern is tried first, then each fallback in order; the first match's
// captured group wins.
type PatternSpec struct {
	Pattern          string   `yaml:"pattern"`
	FallbackPatterns []string `yaml:"fallback_patterns"`
}

// TokenSpec extracts a field from the section text using start/end token
// combinations. Occurrence is the 1-based rank among valid candidates and
// defaults to 1.
type TokenSpec struct {
	Start      []string `yaml:"start"`
	End        []string `yaml:"end"`
	Occurrence int      `yaml:"occurrence"`
}

// Spec is the full extraction schema. It is loaded once before processing
// begins and treated as immutable configuration.
type Spec struct {
	// TopFields are matched against the full text.
	TopFields map[string]PatternSpec `yaml:"top_fields"`
	// SectionMarker splits free-form top copy from the key/value block.
	SectionMarker string `yaml:"section_marker"`
	// SectionFields are matched against the text after SectionMarker.
	SectionFields map[string]TokenSpec `yaml:"section_fields"`
	// RoomsPattern is applied to the full text, not the section split; its
	// token does not reliably co-locate with the marker.
	RoomsPattern string `yaml:"rooms_pattern"`
	// NumericFields get digits-only post-processing.
	NumericFields []string `yaml:"numeric_fields"`
	// ImageCount is the number of indexed gallery images to extract.
	ImageCount int `yaml:"image_count"`
}

// DefaultSpec returns the built-in finn.no extraction schema.
func DefaultSpec() Spec {
	return Spec{
		TopFields: map[string]PatternSpec{
			"title": {
				Pattern:          `^(.*?)\s*\|\s*finn eiendom`,
				FallbackPatterns: []string{`^(.*?)\s*\|`},
			},
			"address": {
				Pattern:          `kart med kartnål\s*(.*?)\s*prisantydning`,
				FallbackPatterns: []string{`(osterhaus' gate.*?\d{4}\s*oslo)`},
			},
			"asking_price": {Pattern: `prisantydning\s*([\d ]+ ?kr)`},
			"total_price":  {Pattern: `totalpris\s*([\d ]+ ?kr)`},
			"costs":        {Pattern: `omkostninger\s*([\d ]+ ?kr)`},
			"joint_debt":   {Pattern: `fellesgjeld\s*([\d ]+ ?kr)`},
			"monthly_fee":  {Pattern: `felleskost/mnd\.\s*([\d ]+ ?kr)`},
		},
		SectionMarker: "nøkkelinfo",
		SectionFields: map[string]TokenSpec{
			"property_type":        {Start: []string{"boligtype"}, End: []string{"eieform"}},
			"ownership":            {Start: []string{"eieform"}, End: []string{"soverom", "internt bruksareal"}},
			"bedrooms":             {Start: []string{"soverom"}, End: []string{"internt bruksareal"}},
			"internal_area":        {Start: []string{"internt bruksareal"}, End: []string{"bruksareal"}},
			"usable_area":          {Start: []string{"(bra-i)bruksareal"}, End: []string{"eksternt bruksareal", "balkong"}},
			"external_usable_area": {Start: []string{"eksternt bruksareal"}, End: []string{"(bra-e)"}},
			"floor":                {Start: []string{"etasje"}, End: []string{"byggeår"}},
			"build_year":           {Start: []string{"byggeår"}, End: []string{"energimerking", "rom"}},
		},
		RoomsPattern: `rom\s*(\d+)`,
		NumericFields: []string{
			"asking_price", "total_price", "costs", "joint_debt", "monthly_fee",
			"bedrooms", "internal_area", "usable_area", "external_usable_area",
			"floor", "build_year", "rooms",
		},
		ImageCount: 3,
	}
}

// LoadSpec reads a YAML spec file and merges it over the defaults. Fields
// absent from the file keep their default values. An empty path returns the
// defaults unchanged.
func LoadSpec(path string) (Spec, error) {
	spec := DefaultSpec()
	if path == "" {
		return spec, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return spec, nil
		}
		return spec, fmt.Errorf("read field spec: %w", err)
	}

	var override Spec
	if err := yaml.Unmarshal(data, &override); err != nil {
		return spec, fmt.Errorf("parse field spec: %w", err)
	}

	for name, cfg := range override.TopFields {
		spec.TopFields[name] = cfg
	}
	for name, cfg := range override.SectionFields {
		spec.SectionFields[name] = cfg
	}
	if override.SectionMarker != "" {
		spec.SectionMarker = override.SectionMarker
	}
	if override.RoomsPattern != "" {
		spec.RoomsPattern = override.RoomsPattern
	}
	if len(override.NumericFields) > 0 {
		spec.NumericFields = override.NumericFields
	}
	if override.ImageCount > 0 {
		spec.ImageCount = override.ImageCount
	}

	return spec, nil
}
