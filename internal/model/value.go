package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueKind tags the scalar carried by a Value
type ValueKind int

const (
	KindAbsent ValueKind = iota // missing field or JSON null
	KindNumber
	KindString
	KindBool
	KindRaw // nested object or array, kept as compact JSON
)

// Value is a schema-free scalar read from an export document.
// The zero Value is absent.
type Value struct {
	Kind ValueKind
	text string // number literal, string contents or compact JSON
	flag bool
}

// Number builds a numeric Value from its literal text
func Number(literal string) Value { return Value{Kind: KindNumber, text: literal} }

// String builds a string Value
func String(s string) Value { return Value{Kind: KindString, text: s} }

// Bool builds a boolean Value
func Bool(b bool) Value { return Value{Kind: KindBool, flag: b} }

// Absent reports whether the value is missing or null
func (v Value) Absent() bool { return v.Kind == KindAbsent }

// Text renders the value as a table cell. Absent values render empty,
// numbers keep the literal they were written with.
func (v Value) Text() string {
	switch v.Kind {
	case KindAbsent:
		return ""
	case KindBool:
		if v.flag {
			return "true"
		}
		return "false"
	default:
		return v.text
	}
}

// Float converts the value to a finite float64. Numbers and numeric strings
// convert; everything else (including NaN and Inf) does not.
func (v Value) Float() (float64, bool) {
	var s string
	switch v.Kind {
	case KindNumber:
		s = v.text
	case KindString:
		s = strings.TrimSpace(v.text)
	default:
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// UnmarshalJSON decodes any JSON value into a tagged Value
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty JSON value")
	}

	switch data[0] {
	case 'n':
		*v = Value{}
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return err
		}
		*v = Value{Kind: KindRaw, text: buf.String()}
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = Number(n.String())
	}
	return nil
}

// MarshalJSON writes the value back in its JSON form
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindAbsent:
		return []byte("null"), nil
	case KindNumber, KindRaw:
		return []byte(v.text), nil
	case KindBool:
		return json.Marshal(v.flag)
	default:
		return json.Marshal(v.text)
	}
}
