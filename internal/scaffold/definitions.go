package scaffold

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type yamlDefinition struct {
	Package string   `yaml:"package"`
	Model   string   `yaml:"model"`
	Fields  []string `yaml:"fields"`
}

// LoadDefinitions reads a YAML list of packages to generate:
//
//	- package: internal/magazines
//	  model: Magazine
//	  fields: [title:str, issued_on:date, url, created_at]
func LoadDefinitions(r io.Reader) ([]Definition, error) {
	var raw []yamlDefinition
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("scaffold: decode definitions: %w", err)
	}
	out := make([]Definition, 0, len(raw))
	for i, d := range raw {
		fields, err := ParseFields(d.Fields)
		if err != nil {
			return nil, fmt.Errorf("scaffold: definition %d: %w", i+1, err)
		}
		def := Definition{Package: d.Package, Model: d.Model, Fields: fields}
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("scaffold: definition %d: %w", i+1, err)
		}
		out = append(out, def)
	}
	return out, nil
}
