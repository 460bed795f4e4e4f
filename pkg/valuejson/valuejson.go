// Package valuejson converts wire.Values to and from JSON, guided by the
// schema type so that every value has exactly one JSON form.
//
// Integers are written as exact JSON numbers, data as standard base64, void
// as null, enums by member name, optionals as null or the value, maps with
// str keys as objects and other maps as arrays of {"key","value"} objects,
// unions as {"tag","value"} and structs as objects in field order.
package valuejson

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/speakez-llc/barewire/pkg/schema"
	"github.com/speakez-llc/barewire/pkg/wire"
)

var ErrMismatch = errors.New("value does not match schema type")

func mismatch(path, format string, args ...any) error {
	if path == "" {
		path = "$"
	}
	return fmt.Errorf("%w: %s: %s", ErrMismatch, path, fmt.Sprintf(format, args...))
}

// Marshal renders v, a value of type t, as JSON.
func Marshal(s *schema.Schema, t schema.Type, v wire.Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := write(&buf, s, t, v, ""); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

func write(buf *bytes.Buffer, s *schema.Schema, t schema.Type, v wire.Value, path string) error {
	t = s.Resolve(t)
	switch t := t.(type) {
	case schema.Primitive:
		return writePrimitive(buf, t, v, path)
	case schema.FixedData:
		d, ok := v.(wire.Data)
		if !ok {
			return mismatch(path, "want data, got %T", v)
		}
		return writeJSON(buf, base64.StdEncoding.EncodeToString(d))
	case schema.Enum:
		e, ok := v.(wire.Enum)
		if !ok {
			return mismatch(path, "want enum, got %T", v)
		}
		m, ok := t.ByValue(uint64(e))
		if !ok {
			return fmt.Errorf("%s: %w: %d", path, wire.ErrInvalidEnum, uint64(e))
		}
		return writeJSON(buf, m.Name)
	case schema.Optional:
		o, ok := v.(wire.Optional)
		if !ok {
			return mismatch(path, "want optional, got %T", v)
		}
		if o.Value == nil {
			buf.WriteString("null")
			return nil
		}
		return write(buf, s, t.Elem, o.Value, path)
	case schema.List:
		return writeList(buf, s, t.Elem, v, path)
	case schema.FixedList:
		return writeList(buf, s, t.Elem, v, path)
	case schema.Map:
		return writeMap(buf, s, t, v, path)
	case schema.Union:
		u, ok := v.(wire.Union)
		if !ok {
			return mismatch(path, "want union, got %T", v)
		}
		c, ok := t.CaseByTag(u.Tag)
		if !ok {
			return fmt.Errorf("%s: %w: %d", path, wire.ErrUnknownTag, u.Tag)
		}
		fmt.Fprintf(buf, `{"tag":%d,"value":`, u.Tag)
		if err := write(buf, s, c.Type, u.Value, path+"|"+strconv.FormatUint(u.Tag, 10)); err != nil {
			return err
		}
		buf.WriteByte('}')
		return nil
	case schema.Struct:
		sv, ok := v.(wire.Struct)
		if !ok {
			return mismatch(path, "want struct, got %T", v)
		}
		buf.WriteByte('{')
		for i, f := range t.Fields {
			fv, ok := sv[f.Name]
			if !ok {
				return fmt.Errorf("%s: %w", join(path, f.Name), wire.ErrMissingField)
			}
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, f.Name); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := write(buf, s, f.Type, fv, join(path, f.Name)); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	}
	return mismatch(path, "unexpected type %T", t)
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func writeList(buf *bytes.Buffer, s *schema.Schema, elem schema.Type, v wire.Value, path string) error {
	items, ok := v.(wire.List)
	if !ok {
		return mismatch(path, "want list, got %T", v)
	}
	buf.WriteByte('[')
	for i, it := range items {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := write(buf, s, elem, it, fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

func stringKeyed(s *schema.Schema, t schema.Map) bool {
	p, ok := s.Resolve(t.Key).(schema.Primitive)
	return ok && p.Kind == schema.KindString
}

func writeMap(buf *bytes.Buffer, s *schema.Schema, t schema.Map, v wire.Value, path string) error {
	m, ok := v.(wire.Map)
	if !ok {
		return mismatch(path, "want map, got %T", v)
	}
	objects := stringKeyed(s, t)
	if objects {
		buf.WriteByte('{')
	} else {
		buf.WriteByte('[')
	}
	for i, e := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		at := fmt.Sprintf("%s{%d}", path, i)
		if objects {
			k, ok := e.Key.(wire.String)
			if !ok {
				return mismatch(at, "want str key, got %T", e.Key)
			}
			if err := writeJSON(buf, string(k)); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := write(buf, s, t.Value, e.Value, at); err != nil {
				return err
			}
			continue
		}
		buf.WriteString(`{"key":`)
		if err := write(buf, s, t.Key, e.Key, at+".key"); err != nil {
			return err
		}
		buf.WriteString(`,"value":`)
		if err := write(buf, s, t.Value, e.Value, at+".value"); err != nil {
			return err
		}
		buf.WriteByte('}')
	}
	if objects {
		buf.WriteByte('}')
	} else {
		buf.WriteByte(']')
	}
	return nil
}

func writePrimitive(buf *bytes.Buffer, t schema.Primitive, v wire.Value, path string) error {
	var ok bool
	switch t.Kind {
	case schema.KindUInt:
		var n wire.UInt
		if n, ok = v.(wire.UInt); ok {
			buf.WriteString(strconv.FormatUint(uint64(n), 10))
		}
	case schema.KindU8:
		var n wire.U8
		if n, ok = v.(wire.U8); ok {
			buf.WriteString(strconv.FormatUint(uint64(n), 10))
		}
	case schema.KindU16:
		var n wire.U16
		if n, ok = v.(wire.U16); ok {
			buf.WriteString(strconv.FormatUint(uint64(n), 10))
		}
	case schema.KindU32:
		var n wire.U32
		if n, ok = v.(wire.U32); ok {
			buf.WriteString(strconv.FormatUint(uint64(n), 10))
		}
	case schema.KindU64:
		var n wire.U64
		if n, ok = v.(wire.U64); ok {
			buf.WriteString(strconv.FormatUint(uint64(n), 10))
		}
	case schema.KindInt:
		var n wire.Int
		if n, ok = v.(wire.Int); ok {
			buf.WriteString(strconv.FormatInt(int64(n), 10))
		}
	case schema.KindI8:
		var n wire.I8
		if n, ok = v.(wire.I8); ok {
			buf.WriteString(strconv.FormatInt(int64(n), 10))
		}
	case schema.KindI16:
		var n wire.I16
		if n, ok = v.(wire.I16); ok {
			buf.WriteString(strconv.FormatInt(int64(n), 10))
		}
	case schema.KindI32:
		var n wire.I32
		if n, ok = v.(wire.I32); ok {
			buf.WriteString(strconv.FormatInt(int64(n), 10))
		}
	case schema.KindI64:
		var n wire.I64
		if n, ok = v.(wire.I64); ok {
			buf.WriteString(strconv.FormatInt(int64(n), 10))
		}
	case schema.KindF32:
		var f wire.F32
		if f, ok = v.(wire.F32); ok {
			return writeFloat(buf, float64(f), 32, path)
		}
	case schema.KindF64:
		var f wire.F64
		if f, ok = v.(wire.F64); ok {
			return writeFloat(buf, float64(f), 64, path)
		}
	case schema.KindBool:
		var b wire.Bool
		if b, ok = v.(wire.Bool); ok {
			buf.WriteString(strconv.FormatBool(bool(b)))
		}
	case schema.KindString:
		var str wire.String
		if str, ok = v.(wire.String); ok {
			return writeJSON(buf, string(str))
		}
	case schema.KindData:
		var d wire.Data
		if d, ok = v.(wire.Data); ok {
			return writeJSON(buf, base64.StdEncoding.EncodeToString(d))
		}
	case schema.KindVoid:
		if v == nil {
			ok = true
		} else {
			_, ok = v.(wire.Void)
		}
		if ok {
			buf.WriteString("null")
		}
	}
	if !ok {
		return mismatch(path, "want %s, got %T", t.Kind, v)
	}
	return nil
}

func writeFloat(buf *bytes.Buffer, f float64, bits int, path string) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return mismatch(path, "%v has no JSON form", f)
	}
	buf.WriteString(strconv.FormatFloat(f, 'g', -1, bits))
	return nil
}

// Unmarshal parses data as a JSON value of type t.
func Unmarshal(s *schema.Schema, t schema.Type, data []byte) (wire.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("parse json: %w", wire.ErrTrailingBytes)
	}
	return read(s, t, raw, "")
}

func read(s *schema.Schema, t schema.Type, raw any, path string) (wire.Value, error) {
	t = s.Resolve(t)
	switch t := t.(type) {
	case schema.Primitive:
		return readPrimitive(t, raw, path)
	case schema.FixedData:
		d, err := readData(raw, path)
		if err != nil {
			return nil, err
		}
		if len(d) != t.Len {
			return nil, fmt.Errorf("%s: %w: want %d bytes, got %d", path, wire.ErrFixedLength, t.Len, len(d))
		}
		return d, nil
	case schema.Enum:
		name, ok := raw.(string)
		if !ok {
			return nil, mismatch(path, "want enum name, got %T", raw)
		}
		m, ok := t.ByName(name)
		if !ok {
			return nil, fmt.Errorf("%s: %w: %q", path, wire.ErrInvalidEnum, name)
		}
		return wire.Enum(m.Value), nil
	case schema.Optional:
		if raw == nil {
			return wire.Optional{}, nil
		}
		v, err := read(s, t.Elem, raw, path)
		if err != nil {
			return nil, err
		}
		return wire.Some(v), nil
	case schema.List:
		return readList(s, t.Elem, -1, raw, path)
	case schema.FixedList:
		return readList(s, t.Elem, t.Len, raw, path)
	case schema.Map:
		return readMap(s, t, raw, path)
	case schema.Union:
		obj, ok := raw.(map[string]any)
		if !ok || len(obj) != 2 {
			return nil, mismatch(path, `want {"tag","value"}`)
		}
		n, ok := obj["tag"].(json.Number)
		if !ok {
			return nil, mismatch(path, "union tag must be a number")
		}
		tag, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil {
			return nil, mismatch(path, "bad union tag %s", n)
		}
		c, ok := t.CaseByTag(tag)
		if !ok {
			return nil, fmt.Errorf("%s: %w: %d", path, wire.ErrUnknownTag, tag)
		}
		payload, present := obj["value"]
		if !present {
			return nil, mismatch(path, "union value is missing")
		}
		v, err := read(s, c.Type, payload, path+"|"+n.String())
		if err != nil {
			return nil, err
		}
		return wire.Union{Tag: tag, Value: v}, nil
	case schema.Struct:
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, mismatch(path, "want object, got %T", raw)
		}
		out := make(wire.Struct, len(t.Fields))
		for _, f := range t.Fields {
			fv, present := obj[f.Name]
			if !present {
				return nil, fmt.Errorf("%s: %w", join(path, f.Name), wire.ErrMissingField)
			}
			v, err := read(s, f.Type, fv, join(path, f.Name))
			if err != nil {
				return nil, err
			}
			out[f.Name] = v
		}
		if len(obj) != len(t.Fields) {
			for k := range obj {
				if t.FieldIndex(k) < 0 {
					return nil, fmt.Errorf("%s: %w", join(path, k), wire.ErrUnknownField)
				}
			}
		}
		return out, nil
	}
	return nil, mismatch(path, "unexpected type %T", t)
}

func readList(s *schema.Schema, elem schema.Type, n int, raw any, path string) (wire.Value, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, mismatch(path, "want array, got %T", raw)
	}
	if n >= 0 && len(items) != n {
		return nil, fmt.Errorf("%s: %w: want %d elements, got %d", path, wire.ErrFixedLength, n, len(items))
	}
	out := make(wire.List, len(items))
	for i, it := range items {
		v, err := read(s, elem, it, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func readMap(s *schema.Schema, t schema.Map, raw any, path string) (wire.Value, error) {
	if stringKeyed(s, t) {
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, mismatch(path, "want object, got %T", raw)
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(wire.Map, 0, len(keys))
		for i, k := range keys {
			v, err := read(s, t.Value, obj[k], fmt.Sprintf("%s{%d}", path, i))
			if err != nil {
				return nil, err
			}
			out = append(out, wire.MapEntry{Key: wire.String(k), Value: v})
		}
		return out, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, mismatch(path, "want array of entries, got %T", raw)
	}
	out := make(wire.Map, 0, len(items))
	for i, it := range items {
		at := fmt.Sprintf("%s{%d}", path, i)
		entry, ok := it.(map[string]any)
		if !ok || len(entry) != 2 {
			return nil, mismatch(at, `want {"key","value"}`)
		}
		rk, hasKey := entry["key"]
		rv, hasValue := entry["value"]
		if !hasKey || !hasValue {
			return nil, mismatch(at, `want {"key","value"}`)
		}
		k, err := read(s, t.Key, rk, at+".key")
		if err != nil {
			return nil, err
		}
		v, err := read(s, t.Value, rv, at+".value")
		if err != nil {
			return nil, err
		}
		out = append(out, wire.MapEntry{Key: k, Value: v})
	}
	return out, nil
}

func readData(raw any, path string) (wire.Data, error) {
	str, ok := raw.(string)
	if !ok {
		return nil, mismatch(path, "want base64 string, got %T", raw)
	}
	b, err := base64.StdEncoding.DecodeString(str)
	if err != nil {
		return nil, mismatch(path, "bad base64: %v", err)
	}
	return wire.Data(b), nil
}

func readPrimitive(t schema.Primitive, raw any, path string) (wire.Value, error) {
	switch t.Kind {
	case schema.KindBool:
		if b, ok := raw.(bool); ok {
			return wire.Bool(b), nil
		}
	case schema.KindString:
		if str, ok := raw.(string); ok {
			return wire.String(str), nil
		}
	case schema.KindData:
		return readData(raw, path)
	case schema.KindVoid:
		if raw == nil {
			return wire.Void{}, nil
		}
	default:
		n, ok := raw.(json.Number)
		if !ok {
			break
		}
		v, err := number(t.Kind, n.String())
		if err != nil {
			return nil, mismatch(path, "%s does not fit %s", n, t.Kind)
		}
		return v, nil
	}
	return nil, mismatch(path, "want %s, got %T", t.Kind, raw)
}

func number(k schema.Kind, s string) (wire.Value, error) {
	switch k {
	case schema.KindUInt:
		n, err := strconv.ParseUint(s, 10, 64)
		return wire.UInt(n), err
	case schema.KindU8:
		n, err := strconv.ParseUint(s, 10, 8)
		return wire.U8(n), err
	case schema.KindU16:
		n, err := strconv.ParseUint(s, 10, 16)
		return wire.U16(n), err
	case schema.KindU32:
		n, err := strconv.ParseUint(s, 10, 32)
		return wire.U32(n), err
	case schema.KindU64:
		n, err := strconv.ParseUint(s, 10, 64)
		return wire.U64(n), err
	case schema.KindInt:
		n, err := strconv.ParseInt(s, 10, 64)
		return wire.Int(n), err
	case schema.KindI8:
		n, err := strconv.ParseInt(s, 10, 8)
		return wire.I8(n), err
	case schema.KindI16:
		n, err := strconv.ParseInt(s, 10, 16)
		return wire.I16(n), err
	case schema.KindI32:
		n, err := strconv.ParseInt(s, 10, 32)
		return wire.I32(n), err
	case schema.KindI64:
		n, err := strconv.ParseInt(s, 10, 64)
		return wire.I64(n), err
	case schema.KindF32:
		f, err := strconv.ParseFloat(s, 32)
		return wire.F32(f), err
	case schema.KindF64:
		f, err := strconv.ParseFloat(s, 64)
		return wire.F64(f), err
	}
	return nil, fmt.Errorf("kind %s is not numeric", k)
}
