package schema

import "sort"

// Draft is a schema under construction. It is never checked; every helper
// returns a new Draft and leaves the receiver untouched, so a Draft value can
// be shared and extended in several directions.
type Draft struct {
	types map[string]Type
	order []string
	root  string
}

// Create starts an empty draft whose root type will be root.
func Create(root string) Draft {
	return Draft{types: map[string]Type{}, root: root}
}

// Root returns the name of the root type.
func (d Draft) Root() string { return d.root }

// Lookup returns the type registered under name.
func (d Draft) Lookup(name string) (Type, bool) {
	t, ok := d.types[name]
	return t, ok
}

// Names returns the registered names in insertion order.
func (d Draft) Names() []string {
	return append([]string(nil), d.order...)
}

// WithRoot returns a draft with a different root name.
func (d Draft) WithRoot(root string) Draft {
	d.root = root
	return d
}

// AddType registers t under name, replacing an earlier definition.
func (d Draft) AddType(name string, t Type) Draft {
	types := make(map[string]Type, len(d.types)+1)
	for k, v := range d.types {
		types[k] = v
	}
	order := d.order
	if _, exists := d.types[name]; !exists {
		order = append(append([]string(nil), d.order...), name)
	}
	types[name] = t
	return Draft{types: types, order: order, root: d.root}
}

// AddPrimitive registers a named primitive (an alias such as "type Id u64").
func (d Draft) AddPrimitive(name string, t Type) Draft { return d.AddType(name, t) }

func (d Draft) AddStruct(name string, fields ...Field) Draft {
	return d.AddType(name, StructOf(fields...))
}

func (d Draft) AddUnion(name string, cases ...UnionCase) Draft {
	return d.AddType(name, UnionOf(cases...))
}

func (d Draft) AddEnum(name string, values ...EnumValue) Draft {
	return d.AddType(name, EnumOf(values...))
}

func (d Draft) AddList(name string, elem Type) Draft {
	return d.AddType(name, ListOf(elem))
}

func (d Draft) AddFixedList(name string, elem Type, n int) Draft {
	return d.AddType(name, FixedListOf(elem, n))
}

func (d Draft) AddMap(name string, key, value Type) Draft {
	return d.AddType(name, MapOf(key, value))
}

func (d Draft) AddOptional(name string, elem Type) Draft {
	return d.AddType(name, OptionalOf(elem))
}

func sortedNames(types map[string]Type) []string {
	names := make([]string, 0, len(types))
	for n := range types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
