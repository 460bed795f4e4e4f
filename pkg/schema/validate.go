package schema

import (
	"fmt"
	"strings"
)

// Schema is a validated, read-only schema. The only way to obtain one is
// Validate, so every consumer of *Schema works on checked definitions.
type Schema struct {
	types map[string]Type
	order []string
	root  string
}

// Root returns the root type name.
func (s *Schema) Root() string { return s.root }

// RootType returns the definition of the root type.
func (s *Schema) RootType() Type { return s.types[s.root] }

// Lookup returns the definition registered under name.
func (s *Schema) Lookup(name string) (Type, bool) {
	t, ok := s.types[name]
	return t, ok
}

// Names returns the type names in declaration order.
func (s *Schema) Names() []string {
	return append([]string(nil), s.order...)
}

// Resolve follows Ref chains until a structural type is reached.
func (s *Schema) Resolve(t Type) Type {
	for {
		r, ok := t.(Ref)
		if !ok {
			return t
		}
		t = s.types[r.Name]
	}
}

// Validate checks d and returns the validated Schema, or every problem found
// as ValidationErrors. No Schema is returned when any check fails.
func Validate(d Draft) (*Schema, error) {
	v := &validator{
		types:    d.types,
		state:    make(map[string]int, len(d.types)),
		reported: map[string]bool{},
	}
	if _, ok := d.types[d.root]; !ok {
		v.add(ValidationError{
			Code:    CodeUndefinedType,
			Type:    d.root,
			Message: fmt.Sprintf("root type %q is not defined", d.root),
		})
	}
	names := sortedNames(d.types)
	for _, name := range names {
		v.visit(name)
	}
	for _, name := range names {
		v.check(name, "", d.types[name], false)
	}
	if len(v.errs) > 0 {
		return nil, v.errs
	}
	return &Schema{types: d.types, order: d.Names(), root: d.root}, nil
}

const (
	unvisited = iota
	onPath
	done
)

type validator struct {
	types    map[string]Type
	state    map[string]int
	reported map[string]bool
	errs     ValidationErrors
}

func (v *validator) add(e ValidationError) {
	v.errs = append(v.errs, e)
}

func (v *validator) visit(name string) {
	switch v.state[name] {
	case onPath:
		if key := "cycle:" + name; !v.reported[key] {
			v.reported[key] = true
			v.add(ValidationError{
				Code:    CodeCyclicTypeReference,
				Type:    name,
				Message: fmt.Sprintf("type %q contains itself without an optional, list, map or union in between", name),
			})
		}
		return
	case done:
		return
	}
	v.state[name] = onPath
	v.walk(v.types[name], true)
	v.state[name] = done
}

// walk follows references out of t. Only direct edges (struct fields,
// fixed-length list elements and aliases) take part in cycle detection;
// optional, list, map and union members are indirections and are only
// checked for existence.
func (v *validator) walk(t Type, direct bool) {
	switch t := t.(type) {
	case Ref:
		if _, ok := v.types[t.Name]; !ok {
			if key := "undef:" + t.Name; !v.reported[key] {
				v.reported[key] = true
				v.add(ValidationError{
					Code:    CodeUndefinedType,
					Type:    t.Name,
					Message: fmt.Sprintf("type %q is referenced but not defined", t.Name),
				})
			}
			return
		}
		if direct {
			v.visit(t.Name)
		}
	case Struct:
		for _, f := range t.Fields {
			v.walk(f.Type, direct)
		}
	case FixedList:
		v.walk(t.Elem, direct)
	case Optional:
		v.walk(t.Elem, false)
	case List:
		v.walk(t.Elem, false)
	case Map:
		v.walk(t.Key, false)
		v.walk(t.Value, false)
	case Union:
		for _, c := range t.Cases {
			v.walk(c.Type, false)
		}
	}
}

func (v *validator) fail(owner, path, code, format string, args ...any) {
	v.add(ValidationError{Code: code, Type: owner, Path: path, Message: fmt.Sprintf(format, args...)})
}

// check enforces the per-type invariants. voidOK is true only for union case
// payloads.
func (v *validator) check(owner, path string, t Type, voidOK bool) {
	switch t := t.(type) {
	case Primitive:
		if t.Kind == KindVoid && !voidOK {
			v.fail(owner, path, CodeInvalidVoidUsage, "void is only allowed as a union case")
		}
		if t.Kind < KindUInt || t.Kind > KindVoid {
			v.fail(owner, path, CodeUndefinedType, "unknown primitive kind %d", t.Kind)
		}
	case FixedData:
		if t.Len <= 0 {
			v.fail(owner, path, CodeInvalidFixedLength, "data length must be greater than zero, got %d", t.Len)
		}
	case Enum:
		if len(t.Values) == 0 {
			v.fail(owner, path, CodeEmptyEnum, "enum must declare at least one value")
		}
		names := map[string]bool{}
		values := map[uint64]bool{}
		for _, m := range t.Values {
			if names[m.Name] {
				v.fail(owner, path, CodeDuplicateMember, "enum name %q declared twice", m.Name)
			}
			if values[m.Value] {
				v.fail(owner, path, CodeDuplicateMember, "enum value %d declared twice", m.Value)
			}
			names[m.Name] = true
			values[m.Value] = true
		}
	case Optional:
		v.check(owner, join(path, "?"), t.Elem, false)
	case List:
		v.check(owner, join(path, "[*]"), t.Elem, false)
	case FixedList:
		if t.Len <= 0 {
			v.fail(owner, path, CodeInvalidFixedLength, "list length must be greater than zero, got %d", t.Len)
		}
		v.check(owner, join(path, "[*]"), t.Elem, false)
	case Map:
		if !v.validMapKey(t.Key) {
			v.fail(owner, join(path, "{key}"), CodeInvalidMapKeyType,
				"map keys must be non-float, non-data, non-void primitives, got %s", Format(t.Key))
		}
		v.check(owner, join(path, "{key}"), t.Key, false)
		v.check(owner, join(path, "{value}"), t.Value, false)
	case Union:
		if len(t.Cases) == 0 {
			v.fail(owner, path, CodeEmptyUnion, "union must declare at least one case")
		}
		tags := map[uint64]bool{}
		for _, c := range t.Cases {
			if tags[c.Tag] {
				v.fail(owner, path, CodeDuplicateMember, "union tag %d declared twice", c.Tag)
			}
			tags[c.Tag] = true
			v.check(owner, join(path, fmt.Sprintf("|%d", c.Tag)), c.Type, true)
		}
	case Struct:
		if len(t.Fields) == 0 {
			v.fail(owner, path, CodeEmptyStruct, "struct must declare at least one field")
		}
		seen := map[string]bool{}
		for _, f := range t.Fields {
			if seen[f.Name] {
				v.fail(owner, path, CodeDuplicateMember, "field %q declared twice", f.Name)
			}
			seen[f.Name] = true
			v.check(owner, join(path, f.Name), f.Type, false)
		}
	case Ref:
		// existence and cycles are handled by visit
	case nil:
		v.fail(owner, path, CodeUndefinedType, "missing type")
	}
}

func (v *validator) validMapKey(t Type) bool {
	for hops := 0; hops <= len(v.types); hops++ {
		switch k := t.(type) {
		case Primitive:
			switch k.Kind {
			case KindF32, KindF64, KindData, KindVoid:
				return false
			}
			return true
		case Enum:
			return true
		case Ref:
			next, ok := v.types[k.Name]
			if !ok {
				// reported as undefined already
				return true
			}
			t = next
		default:
			return false
		}
	}
	// alias cycle, reported by visit
	return true
}

func join(path, seg string) string {
	if path == "" || seg == "" {
		return path + seg
	}
	if strings.ContainsAny(seg[:1], "[?{|") {
		return path + seg
	}
	return path + "." + seg
}
