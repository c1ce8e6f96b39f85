package label

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type templateFile struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	Width       float64       `yaml:"width"`
	Height      float64       `yaml:"height"`
	Orientation string        `yaml:"orientation"`
	DPI         int           `yaml:"dpi"`
	Density     *int          `yaml:"density"`
	Gap         *float64      `yaml:"gap"`
	GapOffset   float64       `yaml:"gap_offset"`
	Language    string        `yaml:"language"`
	Copies      int           `yaml:"copies"`
	Elements    []elementFile `yaml:"elements"`
}

type elementFile struct {
	Kind       string    `yaml:"kind"`
	X          float64   `yaml:"x"`
	Y          float64   `yaml:"y"`
	Width      float64   `yaml:"width"`
	Height     float64   `yaml:"height"`
	Rotation   float64   `yaml:"rotation"`
	ZIndex     int       `yaml:"z"`
	Properties yaml.Node `yaml:"properties"`
	Binding    string    `yaml:"binding"`
	Visible    *bool     `yaml:"visible"`
}

// LoadTemplateFile reads a YAML template and its elements.
func LoadTemplateFile(path string) (Template, []Element, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Template{}, nil, fmt.Errorf("read template: %w", err)
	}
	return ParseTemplate(data)
}

// ParseTemplate decodes a YAML template document. Element properties may be
// given as a mapping or as the raw JSON string they are persisted as.
func ParseTemplate(data []byte) (Template, []Element, error) {
	var f templateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Template{}, nil, fmt.Errorf("parse template: %w", err)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return Template{}, nil, fmt.Errorf("template %q: width and height must be positive", f.Name)
	}

	t := Template{
		ID:          f.ID,
		Name:        f.Name,
		Width:       f.Width,
		Height:      f.Height,
		Orientation: ParseOrientation(f.Orientation),
		DPI:         f.DPI,
		Density:     8,
		Gap:         2,
		GapOffset:   f.GapOffset,
		Language:    Language(strings.ToLower(strings.TrimSpace(f.Language))),
		Copies:      f.Copies,
	}
	if t.Language == "" {
		t.Language = LanguageTSPL
	}
	if f.DPI == 0 {
		t.DPI = 203
	}
	if f.Density != nil {
		t.Density = *f.Density
	}
	if f.Gap != nil {
		t.Gap = *f.Gap
	}
	if t.Copies < 1 {
		t.Copies = 1
	}

	elements := make([]Element, 0, len(f.Elements))
	for i, ef := range f.Elements {
		kind, err := ParseKind(ef.Kind)
		if err != nil {
			return t, nil, fmt.Errorf("element %d: %w", i, err)
		}
		props, err := rawProperties(&ef.Properties)
		if err != nil {
			return t, nil, fmt.Errorf("element %d: %w", i, err)
		}
		visible := true
		if ef.Visible != nil {
			visible = *ef.Visible
		}
		elements = append(elements, Element{
			Kind:       kind,
			X:          ef.X,
			Y:          ef.Y,
			Width:      ef.Width,
			Height:     ef.Height,
			Rotation:   ef.Rotation,
			ZIndex:     ef.ZIndex,
			Properties: props,
			Binding:    ef.Binding,
			Visible:    visible,
		})
	}
	return t, elements, nil
}

func rawProperties(n *yaml.Node) (string, error) {
	switch n.Kind {
	case 0:
		return "", nil
	case yaml.ScalarNode:
		// persisted JSON, decoded lazily so a broken bag only affects its element
		return n.Value, nil
	}
	var m map[string]any
	if err := n.Decode(&m); err != nil {
		return "", fmt.Errorf("properties: %w", err)
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("properties: %w", err)
	}
	return string(raw), nil
}

// LoadContextFile reads a YAML (or JSON) data context.
func LoadContextFile(path string) (DataContext, error) {
	var c DataContext
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read context: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse context: %w", err)
	}
	return c, nil
}
