package table

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies what a cell holds.
type Kind uint8

const (
	Missing Kind = iota
	Number
	Text
	Bool
)

// Value is a single cell of a Record.
type Value struct {
	kind Kind
	num  float64
	text string
	flag bool
}

// Null returns a missing cell.
func Null() Value { return Value{} }

// Num returns a numeric cell. NaN is stored as missing.
func Num(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{kind: Number, num: f}
}

// Str returns a text cell.
func Str(s string) Value { return Value{kind: Text, text: s} }

// Boolean returns a boolean cell.
func Boolean(b bool) Value { return Value{kind: Bool, flag: b} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsMissing() bool { return v.kind == Missing }

func (v Value) IsNumber() bool { return v.kind == Number }

// Float returns the numeric reading of the cell. Booleans read as 0/1.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case Number:
		return v.num, true
	case Bool:
		if v.flag {
			return 1, true
		}
		return 0, true
	case Text:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Truth reports the boolean reading of the cell.
func (v Value) Truth() (bool, bool) {
	switch v.kind {
	case Bool:
		return v.flag, true
	case Number:
		return v.num != 0, true
	case Text:
		switch strings.ToLower(strings.TrimSpace(v.text)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// Text returns the cell rendered as a string; missing cells render empty.
func (v Value) Text() string {
	switch v.kind {
	case Number:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case Text:
		return v.text
	case Bool:
		if v.flag {
			return "True"
		}
		return "False"
	}
	return ""
}

func (v Value) String() string { return v.Text() }

// Equal compares two cells the way the logged data is compared: missing never
// equals anything, numbers and booleans compare numerically, text compares
// exactly.
func (v Value) Equal(o Value) bool {
	if v.kind == Missing || o.kind == Missing {
		return false
	}
	if v.kind == Text || o.kind == Text {
		return v.kind == o.kind && v.text == o.text
	}
	a, _ := v.Float()
	b, _ := o.Float()
	return a == b
}

// Is reports whether the cell is the text s.
func (v Value) Is(s string) bool { return v.kind == Text && v.text == s }

var naTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// IsNAToken reports whether a raw field denotes a missing value.
func IsNAToken(s string) bool {
	_, ok := naTokens[s]
	return ok
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func parseBool(s string) (bool, bool) {
	switch s {
	case "True", "TRUE", "true":
		return true, true
	case "False", "FALSE", "false":
		return false, true
	}
	return false, false
}
