// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

// Package canned renders the templated replies returned when no provider
// could answer. Output is a pure function of the query and crew.
package canned

import (
	_ "embed"
	"hash/fnv"
	"strings"
	"text/template"

	"github.com/darcy-ai/darcy/internal/crew"
	darcyerr "github.com/darcy-ai/darcy/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var builtinYAML []byte

// ProviderName is the provider label reported for canned replies.
const ProviderName = "fallback"

// Table is the decoded template table.
type Table struct {
	Frame  string               `yaml:"frame"`
	Crews  map[string]CrewTexts `yaml:"crews"`
	Topics []Topic              `yaml:"topics"`
}

// CrewTexts holds the crew-specific pieces of a reply.
type CrewTexts struct {
	Openings []string `yaml:"openings"`
	Generic  string   `yaml:"generic"`
	Topics   []Topic  `yaml:"topics"`
}

// Topic maps query keywords to explanatory content.
type Topic struct {
	Keywords []string `yaml:"keywords"`
	Content  string   `yaml:"content"`
}

type frameData struct {
	Marker  string
	Query   string
	Opening string
	Content string
}

// Generator renders canned replies.
type Generator struct {
	crews *crew.Catalog
	table Table
	frame *template.Template
}

// New builds a Generator from the embedded template table.
func New(crews *crew.Catalog) (*Generator, error) {
	return NewFromYAML(crews, builtinYAML)
}

// NewFromYAML builds a Generator from a custom template table.
func NewFromYAML(crews *crew.Catalog, data []byte) (*Generator, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, darcyerr.Wrapf(err, darcyerr.CodeCatalogParseInvalid, "decoding canned templates")
	}
	if strings.TrimSpace(t.Frame) == "" {
		return nil, darcyerr.New(darcyerr.CodeCatalogParseInvalid, "canned templates: frame is empty")
	}

	frame, err := template.New("frame").Option("missingkey=error").Parse(t.Frame)
	if err != nil {
		return nil, darcyerr.Wrapf(err, darcyerr.CodeCatalogParseInvalid, "parsing canned frame")
	}

	for _, c := range crews.List() {
		if _, ok := t.Crews[c.ID]; !ok {
			return nil, darcyerr.New(darcyerr.CodeCatalogNotFound, "canned templates: no texts for crew",
				darcyerr.FieldCrew(c.ID))
		}
	}

	return &Generator{crews: crews, table: t, frame: frame}, nil
}

// Generate returns the degraded reply for query under the given crew. Unknown
// crews use the default crew. It never fails: a template execution error
// falls back to the bare marker and content.
func (g *Generator) Generate(query, crewID string) string {
	c := g.crews.Resolve(crewID)
	texts := g.table.Crews[c.ID]

	data := frameData{
		Marker:  c.Marker,
		Query:   strings.TrimSpace(query),
		Opening: pick(texts.Openings, query),
		Content: g.content(texts, query),
	}

	var sb strings.Builder
	if err := g.frame.Execute(&sb, data); err != nil {
		return data.Marker + " " + data.Content
	}
	return sb.String()
}

// content returns the first matching crew topic, then global topic, then the
// crew's generic text.
func (g *Generator) content(texts CrewTexts, query string) string {
	q := strings.ToLower(query)
	if t, ok := matchTopic(texts.Topics, q); ok {
		return t.Content
	}
	if t, ok := matchTopic(g.table.Topics, q); ok {
		return t.Content
	}
	return texts.Generic
}

func matchTopic(topics []Topic, lowered string) (Topic, bool) {
	for _, t := range topics {
		for _, kw := range t.Keywords {
			if kw != "" && strings.Contains(lowered, strings.ToLower(kw)) {
				return t, true
			}
		}
	}
	return Topic{}, false
}

// pick chooses a variant by hashing the query so the same query always
// yields the same text.
func pick(variants []string, query string) string {
	if len(variants) == 0 {
		return ""
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(query))
	return variants[h.Sum32()%uint32(len(variants))]
}
