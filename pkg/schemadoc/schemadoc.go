// Package schemadoc reads schema drafts from YAML and JSON documents.
//
// A document names its root type and lists named type specs in order:
//
//	root: Person
//	types:
//	  - name: Department
//	    enum: [{name: ACCOUNTING}, {name: ADMIN}, {name: DEVELOPMENT, value: 99}]
//	  - name: Person
//	    struct:
//	      - {name: id, type: uint}
//	      - {name: email, type: optional<str>}
//	      - {name: department, type: Department}
//
// A spec carries exactly one of type (a BARE type expression), struct, union
// or enum. Union tags and enum values default to one more than the previous
// entry, starting at zero.
package schemadoc

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/speakez-llc/barewire/pkg/schema"
)

var (
	ErrDocument      = errors.New("invalid schema document")
	ErrUnknownFormat = errors.New("unknown schema document format")
)

// Document is the decoded form of a schema file.
type Document struct {
	Root  string     `yaml:"root" json:"root"`
	Types []TypeSpec `yaml:"types" json:"types"`
}

// TypeSpec describes one type. Name is required for top-level types and
// struct fields and ignored elsewhere.
type TypeSpec struct {
	Name   string       `yaml:"name,omitempty" json:"name,omitempty"`
	Type   string       `yaml:"type,omitempty" json:"type,omitempty"`
	Struct []TypeSpec   `yaml:"struct,omitempty" json:"struct,omitempty"`
	Union  []CaseSpec   `yaml:"union,omitempty" json:"union,omitempty"`
	Enum   []MemberSpec `yaml:"enum,omitempty" json:"enum,omitempty"`
}

// CaseSpec is a union case; its payload is described inline.
type CaseSpec struct {
	Tag      *uint64 `yaml:"tag,omitempty" json:"tag,omitempty"`
	TypeSpec `yaml:",inline"`
}

type MemberSpec struct {
	Name  string  `yaml:"name" json:"name"`
	Value *uint64 `yaml:"value,omitempty" json:"value,omitempty"`
}

// ParseYAML decodes a YAML document into a draft. Unknown keys are rejected.
func ParseYAML(data []byte) (schema.Draft, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return schema.Draft{}, fmt.Errorf("parse yaml: %w", err)
	}
	return doc.Draft()
}

// ParseJSON decodes a JSON document into a draft. Unknown keys are rejected.
func ParseJSON(data []byte) (schema.Draft, error) {
	var doc Document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return schema.Draft{}, fmt.Errorf("parse json: %w", err)
	}
	return doc.Draft()
}

// Load reads a document from path, choosing the format by extension.
func Load(path string) (schema.Draft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return schema.Draft{}, fmt.Errorf("read schema %s: %w", path, err)
	}
	var d schema.Draft
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		d, err = ParseYAML(data)
	case ".json":
		d, err = ParseJSON(data)
	default:
		return schema.Draft{}, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	if err != nil {
		return schema.Draft{}, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// LoadSchema loads and validates the document at path.
func LoadSchema(path string) (*schema.Schema, error) {
	d, err := Load(path)
	if err != nil {
		return nil, err
	}
	s, err := schema.Validate(d)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Draft converts the document. It checks only the document shape; the
// result still has to pass schema.Validate.
func (doc *Document) Draft() (schema.Draft, error) {
	if doc.Root == "" {
		return schema.Draft{}, fmt.Errorf("%w: root is required", ErrDocument)
	}
	d := schema.Create(doc.Root)
	for i, spec := range doc.Types {
		if spec.Name == "" {
			return schema.Draft{}, fmt.Errorf("%w: types[%d] has no name", ErrDocument, i)
		}
		if _, dup := d.Lookup(spec.Name); dup {
			return schema.Draft{}, fmt.Errorf("%w: type %q defined twice", ErrDocument, spec.Name)
		}
		t, err := spec.build(spec.Name)
		if err != nil {
			return schema.Draft{}, err
		}
		d = d.AddType(spec.Name, t)
	}
	return d, nil
}

func (spec *TypeSpec) build(where string) (schema.Type, error) {
	set := 0
	for _, ok := range []bool{spec.Type != "", spec.Struct != nil, spec.Union != nil, spec.Enum != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: %s: need exactly one of type, struct, union or enum", ErrDocument, where)
	}

	switch {
	case spec.Type != "":
		t, err := schema.ParseType(spec.Type)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", where, err)
		}
		return t, nil
	case spec.Struct != nil:
		fields := make([]schema.Field, 0, len(spec.Struct))
		for i := range spec.Struct {
			f := &spec.Struct[i]
			if f.Name == "" {
				return nil, fmt.Errorf("%w: %s: field %d has no name", ErrDocument, where, i)
			}
			t, err := f.build(where + "." + f.Name)
			if err != nil {
				return nil, err
			}
			fields = append(fields, schema.F(f.Name, t))
		}
		return schema.StructOf(fields...), nil
	case spec.Union != nil:
		cases := make([]schema.UnionCase, 0, len(spec.Union))
		var next uint64
		for i := range spec.Union {
			c := &spec.Union[i]
			tag := next
			if c.Tag != nil {
				tag = *c.Tag
			}
			next = tag + 1
			t, err := c.build(fmt.Sprintf("%s|%d", where, tag))
			if err != nil {
				return nil, err
			}
			cases = append(cases, schema.Case(tag, t))
		}
		return schema.UnionOf(cases...), nil
	default:
		values := make([]schema.EnumValue, 0, len(spec.Enum))
		var next uint64
		for _, m := range spec.Enum {
			v := next
			if m.Value != nil {
				v = *m.Value
			}
			next = v + 1
			values = append(values, schema.V(m.Name, v))
		}
		return schema.EnumOf(values...), nil
	}
}
