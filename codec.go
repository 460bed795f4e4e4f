// Package barewire maps Go values onto BARE schemas. A Codec converts
// between Go values and wire.Value trees using reflection, and encodes them
// with the pkg/wire engine.
package barewire

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/speakez-llc/barewire/pkg/schema"
	"github.com/speakez-llc/barewire/pkg/wire"
)

var (
	ErrNotPointer  = errors.New("expected non-nil pointer")
	ErrUnsupported = errors.New("unsupported Go type for schema type")
	ErrRange       = errors.New("value out of range")
)

// MappingError reports where a Go value did not fit the schema.
type MappingError struct {
	Path string
	Err  error
}

func (e *MappingError) Error() string {
	if e.Path == "" {
		return "barewire: " + e.Err.Error()
	}
	return "barewire: " + e.Path + ": " + e.Err.Error()
}

func (e *MappingError) Unwrap() error { return e.Err }

// Union carries a union value in Go structs: the case tag and its payload.
// On decode Value holds the payload as a wire.Value unless it was preset to
// a pointer, in which case the payload is decoded into it.
type Union struct {
	Tag   uint64
	Value any
}

type Options struct {
	// UnsafeStrings lets decoded strings and byte slices alias the input;
	// the caller must keep the input alive and unmodified.
	UnsafeStrings bool
	// MaxDepth bounds nesting on decode; zero means wire.DefaultMaxDepth.
	MaxDepth int
}

// Codec maps Go values onto one validated schema. It is safe for concurrent
// use once Opts is set.
type Codec struct {
	Opts   Options
	schema *schema.Schema
	plan   map[reflect.Type]*fieldPlan
	mu     sync.RWMutex
}

func NewCodec(s *schema.Schema) *Codec {
	return &Codec{schema: s, plan: make(map[reflect.Type]*fieldPlan)}
}

func (c *Codec) Schema() *schema.Schema { return c.schema }

// Marshal encodes v as the root type of the schema.
func (c *Codec) Marshal(v any) ([]byte, error) {
	b := wire.NewBuffer(64)
	if err := c.Encode(v, b); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// Encode appends v, encoded as the root type, to b.
func (c *Codec) Encode(v any, b *wire.Buffer) error {
	val, err := c.ToValue(v)
	if err != nil {
		return err
	}
	return wire.Encode(c.schema, val, b)
}

// Unmarshal decodes data, which must hold exactly one root value, into out.
func (c *Codec) Unmarshal(data []byte, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &MappingError{Err: ErrNotPointer}
	}
	opts := wire.DecodeOptions{
		AliasData:    c.Opts.UnsafeStrings,
		AliasStrings: c.Opts.UnsafeStrings,
		MaxDepth:     c.Opts.MaxDepth,
	}
	val, err := opts.Unmarshal(c.schema, data)
	if err != nil {
		return err
	}
	return c.FromValue(val, out)
}

// ToValue converts v into a wire.Value of the root type.
func (c *Codec) ToValue(v any) (wire.Value, error) {
	return c.toValue(schema.Named(c.schema.Root()), reflect.ValueOf(v))
}

// FromValue stores val, a value of the root type, into the value out points
// to.
func (c *Codec) FromValue(val wire.Value, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &MappingError{Err: ErrNotPointer}
	}
	return c.fromValue(schema.Named(c.schema.Root()), val, rv.Elem())
}

// fieldPlan indexes the exported fields of a Go struct type by their bare
// tag and by lower-cased name.
type fieldPlan struct {
	byTag  map[string][]int
	byName map[string][]int
}

func (c *Codec) getPlan(t reflect.Type) *fieldPlan {
	c.mu.RLock()
	if plan, ok := c.plan[t]; ok {
		c.mu.RUnlock()
		return plan
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check
	if plan, ok := c.plan[t]; ok {
		return plan
	}

	plan := &fieldPlan{byTag: map[string][]int{}, byName: map[string][]int{}}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := sf.Tag.Get("bare")
		if tag == "-" {
			continue
		}
		if tag != "" {
			plan.byTag[tag] = sf.Index
			continue
		}
		name := strings.ToLower(sf.Name)
		if _, dup := plan.byName[name]; !dup {
			plan.byName[name] = sf.Index
		}
	}
	c.plan[t] = plan
	return plan
}

func (p *fieldPlan) lookup(name string) ([]int, bool) {
	if idx, ok := p.byTag[name]; ok {
		return idx, true
	}
	idx, ok := p.byName[strings.ToLower(name)]
	return idx, ok
}

var valueType = reflect.TypeOf((*wire.Value)(nil)).Elem()

func at(seg string, err error) error {
	var me *MappingError
	if errors.As(err, &me) {
		switch {
		case me.Path == "":
			me.Path = seg
		case strings.HasPrefix(me.Path, "["), strings.HasPrefix(me.Path, "{"), strings.HasPrefix(me.Path, "|"):
			me.Path = seg + me.Path
		default:
			me.Path = seg + "." + me.Path
		}
		return me
	}
	return &MappingError{Path: seg, Err: err}
}

func unsupported(t schema.Type, rv reflect.Value) error {
	if !rv.IsValid() {
		return &MappingError{Err: fmt.Errorf("%w: nil for %s", ErrUnsupported, schema.Format(t))}
	}
	return &MappingError{Err: fmt.Errorf("%w: %s for %s", ErrUnsupported, rv.Type(), schema.Format(t))}
}

func (c *Codec) toValue(t schema.Type, rv reflect.Value) (wire.Value, error) {
	t = c.schema.Resolve(t)
	if rv.IsValid() && rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	if rv.IsValid() && rv.Type().Implements(valueType) {
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return nil, unsupported(t, rv)
		}
		return rv.Interface().(wire.Value), nil
	}
	if opt, ok := t.(schema.Optional); ok {
		if !rv.IsValid() || (nillable(rv.Kind()) && rv.IsNil()) {
			return wire.Optional{}, nil
		}
		if rv.Kind() == reflect.Pointer {
			rv = rv.Elem()
		}
		inner, err := c.toValue(opt.Elem, rv)
		if err != nil {
			return nil, err
		}
		return wire.Some(inner), nil
	}
	for rv.IsValid() && rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, unsupported(t, reflect.Value{})
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		if p, ok := t.(schema.Primitive); ok && p.Kind == schema.KindVoid {
			return wire.Void{}, nil
		}
		return nil, unsupported(t, rv)
	}

	switch t := t.(type) {
	case schema.Primitive:
		return primitiveValue(t, rv)
	case schema.FixedData:
		if b, ok := bytesOf(rv); ok {
			return wire.Data(b), nil
		}
	case schema.Enum:
		return enumValue(t, rv)
	case schema.List:
		return c.listValue(t.Elem, rv)
	case schema.FixedList:
		return c.listValue(t.Elem, rv)
	case schema.Map:
		return c.mapValue(t, rv)
	case schema.Union:
		return c.unionValue(t, rv)
	case schema.Struct:
		return c.structValue(t, rv)
	}
	return nil, unsupported(t, rv)
}

func nillable(k reflect.Kind) bool {
	switch k {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return true
	}
	return false
}

func (c *Codec) listValue(elem schema.Type, rv reflect.Value) (wire.Value, error) {
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, unsupported(schema.ListOf(elem), rv)
	}
	out := make(wire.List, rv.Len())
	for i := range out {
		v, err := c.toValue(elem, rv.Index(i))
		if err != nil {
			return nil, at(fmt.Sprintf("[%d]", i), err)
		}
		out[i] = v
	}
	return out, nil
}

func (c *Codec) mapValue(t schema.Map, rv reflect.Value) (wire.Value, error) {
	if rv.Kind() != reflect.Map {
		return nil, unsupported(t, rv)
	}
	keys := sortedKeys(rv)
	out := make(wire.Map, 0, len(keys))
	for _, k := range keys {
		kv, err := c.toValue(t.Key, k)
		if err != nil {
			return nil, at(fmt.Sprintf("[%v]", k.Interface()), err)
		}
		vv, err := c.toValue(t.Value, rv.MapIndex(k))
		if err != nil {
			return nil, at(fmt.Sprintf("[%v]", k.Interface()), err)
		}
		out = append(out, wire.MapEntry{Key: kv, Value: vv})
	}
	return out, nil
}

var unionType = reflect.TypeOf(Union{})

func (c *Codec) unionValue(t schema.Union, rv reflect.Value) (wire.Value, error) {
	if rv.Type() != unionType {
		return nil, unsupported(t, rv)
	}
	u := rv.Interface().(Union)
	uc, ok := t.CaseByTag(u.Tag)
	if !ok {
		return nil, &MappingError{Err: fmt.Errorf("%w: %d", wire.ErrUnknownTag, u.Tag)}
	}
	payload, err := c.toValue(uc.Type, reflect.ValueOf(u.Value))
	if err != nil {
		return nil, at(fmt.Sprintf("|%d", u.Tag), err)
	}
	return wire.Union{Tag: u.Tag, Value: payload}, nil
}

func (c *Codec) structValue(t schema.Struct, rv reflect.Value) (wire.Value, error) {
	if rv.Kind() != reflect.Struct {
		return nil, unsupported(t, rv)
	}
	plan := c.getPlan(rv.Type())
	out := make(wire.Struct, len(t.Fields))
	for _, f := range t.Fields {
		idx, ok := plan.lookup(f.Name)
		if !ok {
			return nil, &MappingError{Path: f.Name, Err: fmt.Errorf("%w: no Go field in %s", wire.ErrMissingField, rv.Type())}
		}
		fv, err := rv.FieldByIndexErr(idx)
		if err != nil {
			// nil embedded pointer
			fv = reflect.Value{}
		}
		v, err := c.toValue(f.Type, fv)
		if err != nil {
			return nil, at(f.Name, err)
		}
		out[f.Name] = v
	}
	return out, nil
}

func (c *Codec) fromValue(t schema.Type, val wire.Value, rv reflect.Value) error {
	t = c.schema.Resolve(t)
	if rv.Type().Implements(valueType) || rv.Kind() == reflect.Interface {
		if val == nil {
			rv.Set(reflect.Zero(rv.Type()))
			return nil
		}
		vv := reflect.ValueOf(val)
		if !vv.Type().AssignableTo(rv.Type()) {
			return unsupported(t, rv)
		}
		rv.Set(vv)
		return nil
	}
	if opt, ok := t.(schema.Optional); ok {
		o, ok := val.(wire.Optional)
		if !ok {
			return &MappingError{Err: fmt.Errorf("%w: %T", wire.ErrShapeMismatch, val)}
		}
		if o.Value == nil {
			rv.Set(reflect.Zero(rv.Type()))
			return nil
		}
		if rv.Kind() == reflect.Pointer {
			elem := reflect.New(rv.Type().Elem())
			if err := c.fromValue(opt.Elem, o.Value, elem.Elem()); err != nil {
				return err
			}
			rv.Set(elem)
			return nil
		}
		return c.fromValue(opt.Elem, o.Value, rv)
	}
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		return c.fromValue(t, val, rv.Elem())
	}

	switch t := t.(type) {
	case schema.Primitive:
		return setPrimitive(t, val, rv)
	case schema.FixedData:
		d, ok := val.(wire.Data)
		if !ok {
			break
		}
		return setBytes(d, rv, t)
	case schema.Enum:
		return setEnum(t, val, rv)
	case schema.List:
		return c.setList(t.Elem, val, rv)
	case schema.FixedList:
		return c.setList(t.Elem, val, rv)
	case schema.Map:
		return c.setMap(t, val, rv)
	case schema.Union:
		return c.setUnion(t, val, rv)
	case schema.Struct:
		return c.setStruct(t, val, rv)
	}
	return unsupported(t, rv)
}

func (c *Codec) setList(elem schema.Type, val wire.Value, rv reflect.Value) error {
	items, ok := val.(wire.List)
	if !ok {
		return &MappingError{Err: fmt.Errorf("%w: %T", wire.ErrShapeMismatch, val)}
	}
	switch rv.Kind() {
	case reflect.Slice:
		rv.Set(reflect.MakeSlice(rv.Type(), len(items), len(items)))
	case reflect.Array:
		if rv.Len() != len(items) {
			return &MappingError{Err: fmt.Errorf("%w: %d elements into %s", wire.ErrFixedLength, len(items), rv.Type())}
		}
	default:
		return unsupported(schema.ListOf(elem), rv)
	}
	for i, it := range items {
		if err := c.fromValue(elem, it, rv.Index(i)); err != nil {
			return at(fmt.Sprintf("[%d]", i), err)
		}
	}
	return nil
}

func (c *Codec) setMap(t schema.Map, val wire.Value, rv reflect.Value) error {
	m, ok := val.(wire.Map)
	if !ok {
		return &MappingError{Err: fmt.Errorf("%w: %T", wire.ErrShapeMismatch, val)}
	}
	if rv.Kind() != reflect.Map {
		return unsupported(t, rv)
	}
	out := reflect.MakeMapWithSize(rv.Type(), len(m))
	for i, e := range m {
		k := reflect.New(rv.Type().Key()).Elem()
		if err := c.fromValue(t.Key, e.Key, k); err != nil {
			return at(fmt.Sprintf("{%d}", i), err)
		}
		v := reflect.New(rv.Type().Elem()).Elem()
		if err := c.fromValue(t.Value, e.Value, v); err != nil {
			return at(fmt.Sprintf("[%v]", k.Interface()), err)
		}
		out.SetMapIndex(k, v)
	}
	rv.Set(out)
	return nil
}

func (c *Codec) setUnion(t schema.Union, val wire.Value, rv reflect.Value) error {
	u, ok := val.(wire.Union)
	if !ok {
		return &MappingError{Err: fmt.Errorf("%w: %T", wire.ErrShapeMismatch, val)}
	}
	if rv.Type() != unionType {
		return unsupported(t, rv)
	}
	uc, ok := t.CaseByTag(u.Tag)
	if !ok {
		return &MappingError{Err: fmt.Errorf("%w: %d", wire.ErrUnknownTag, u.Tag)}
	}
	cur := rv.Interface().(Union)
	if target := reflect.ValueOf(cur.Value); target.Kind() == reflect.Pointer && !target.IsNil() {
		if err := c.fromValue(uc.Type, u.Value, target.Elem()); err != nil {
			return at(fmt.Sprintf("|%d", u.Tag), err)
		}
		rv.Set(reflect.ValueOf(Union{Tag: u.Tag, Value: cur.Value}))
		return nil
	}
	rv.Set(reflect.ValueOf(Union{Tag: u.Tag, Value: u.Value}))
	return nil
}

func (c *Codec) setStruct(t schema.Struct, val wire.Value, rv reflect.Value) error {
	sv, ok := val.(wire.Struct)
	if !ok {
		return &MappingError{Err: fmt.Errorf("%w: %T", wire.ErrShapeMismatch, val)}
	}
	if rv.Kind() != reflect.Struct {
		return unsupported(t, rv)
	}
	plan := c.getPlan(rv.Type())
	for _, f := range t.Fields {
		idx, ok := plan.lookup(f.Name)
		if !ok {
			continue // no Go field to receive it
		}
		fv, err := rv.FieldByIndexErr(idx)
		if err != nil {
			continue
		}
		if err := c.fromValue(f.Type, sv[f.Name], fv); err != nil {
			return at(f.Name, err)
		}
	}
	return nil
}
