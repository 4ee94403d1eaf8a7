// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

// Package crew holds the catalog of response personas ("crews") that frame
// prompts, seed demand analysis and label degraded replies.
package crew

import (
	_ "embed"
	"sync"

	darcyerr "github.com/darcy-ai/darcy/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed crews.yaml
var builtinYAML []byte

// Crew describes one persona.
type Crew struct {
	ID             string   `yaml:"id" json:"id"`
	Name           string   `yaml:"name" json:"name"`
	Description    string   `yaml:"description" json:"description"`
	Specialization string   `yaml:"specialization" json:"specialization"`
	Icon           string   `yaml:"icon" json:"icon"`
	Marker         string   `yaml:"marker" json:"-"`
	Agents         []string `yaml:"agents" json:"agents"`
	Examples       []string `yaml:"examples" json:"examples"`
	SystemPrompt   string   `yaml:"system_prompt" json:"-"`
	Temperature    float32  `yaml:"temperature" json:"-"`
	MaxTokens      int      `yaml:"max_tokens" json:"-"`
	Demand         Demand   `yaml:"demand" json:"-"`
}

// Demand lists the tags every request for the crew contributes to scoring,
// regardless of what the query text matches.
type Demand struct {
	Categories []string `yaml:"categories"`
	Priorities []string `yaml:"priorities"`
}

// Catalog is an immutable, ordered set of crews with a default entry.
type Catalog struct {
	crews     map[string]Crew
	order     []string
	defaultID string
}

type catalogFile struct {
	Default string `yaml:"default"`
	Crews   []Crew `yaml:"crews"`
}

// Parse decodes a YAML catalog. The default crew must be one of the listed
// crews and IDs must be unique.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, darcyerr.Wrapf(err, darcyerr.CodeCatalogParseInvalid, "decoding crew catalog")
	}
	if len(f.Crews) == 0 {
		return nil, darcyerr.New(darcyerr.CodeCatalogParseInvalid, "crew catalog is empty")
	}

	c := &Catalog{
		crews:     make(map[string]Crew, len(f.Crews)),
		order:     make([]string, 0, len(f.Crews)),
		defaultID: f.Default,
	}
	for _, cr := range f.Crews {
		if cr.ID == "" {
			return nil, darcyerr.New(darcyerr.CodeCatalogParseInvalid, "crew without id")
		}
		if _, dup := c.crews[cr.ID]; dup {
			return nil, darcyerr.Errorf(darcyerr.CodeCatalogParseInvalid, "duplicate crew %q", cr.ID)
		}
		c.crews[cr.ID] = cr
		c.order = append(c.order, cr.ID)
	}

	if c.defaultID == "" {
		c.defaultID = c.order[0]
	}
	if _, ok := c.crews[c.defaultID]; !ok {
		return nil, darcyerr.Errorf(darcyerr.CodeCatalogParseInvalid, "default crew %q is not defined", c.defaultID)
	}
	return c, nil
}

var builtin = sync.OnceValues(func() (*Catalog, error) {
	return Parse(builtinYAML)
})

// Builtin returns the catalog embedded in the binary.
func Builtin() (*Catalog, error) {
	return builtin()
}

// Get looks up a crew by ID.
func (c *Catalog) Get(id string) (Crew, bool) {
	cr, ok := c.crews[id]
	return cr, ok
}

// Resolve returns the named crew, or the default crew when id is empty or
// unknown.
func (c *Catalog) Resolve(id string) Crew {
	if cr, ok := c.crews[id]; ok {
		return cr
	}
	return c.crews[c.defaultID]
}

// DefaultID returns the ID of the fallback crew.
func (c *Catalog) DefaultID() string { return c.defaultID }

// List returns all crews in catalog order.
func (c *Catalog) List() []Crew {
	out := make([]Crew, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.crews[id])
	}
	return out
}
