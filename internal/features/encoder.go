// Package features turns raw book records into the numeric rows the
// popularity model was trained on.
//
// Encoding happens in two steps. Encode one-hot encodes a single record and
// only knows about the categories present in it. Align then reindexes that
// sparse row against the training column schema: every schema column is
// present, in schema order, and columns the model never saw are dropped.
// Both steps are pure functions and safe for concurrent use.
package features

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RawRecord is a decoded JSON request body.
type RawRecord map[string]any

// EncodedRow maps generated column names to values.
type EncodedRow map[string]float64

type fieldKind int

const (
	numeric fieldKind = iota
	categorical
)

// Field binds a request key to the column (or column prefix) it produces.
type Field struct {
	Key    string
	Column string
	kind   fieldKind
}

// Fields lists the required record fields in validation order. Column names
// match the dataframe the model was fit on.
var Fields = []Field{
	{Key: "ano", Column: "ano", kind: numeric},
	{Key: "paginas", Column: "paginas", kind: numeric},
	{Key: "queremLer", Column: "querem_ler", kind: numeric},
	{Key: "autor", Column: "autor", kind: categorical},
	{Key: "editora", Column: "editora", kind: categorical},
	{Key: "generoPrimario", Column: "genero_primario", kind: categorical},
	{Key: "subGenero", Column: "subgenero", kind: categorical},
}

// IsCategorical reports whether the field is one-hot encoded.
func (f Field) IsCategorical() bool { return f.kind == categorical }

// FieldOf returns the field that generated column, matching numeric columns
// exactly and categorical columns by prefix.
func FieldOf(column string) (Field, bool) {
	for _, f := range Fields {
		if f.kind == numeric && column == Sanitize(f.Column) {
			return f, true
		}
		if f.kind == categorical && strings.HasPrefix(column, Sanitize(f.Column)+"_") {
			return f, true
		}
	}
	return Field{}, false
}

var sanitizer = strings.NewReplacer(
	"[", "_",
	"]", "_",
	"<", "_",
	">", "_",
	`"`, "",
	":", "_",
	",", "_",
	"{", "_",
	"}", "_",
)

// Sanitize rewrites a column name the same way the training pipeline did
// before the model serialized its feature names.
func Sanitize(name string) string {
	return sanitizer.Replace(name)
}

// CategoryColumn returns the sanitized indicator column for a field value.
func CategoryColumn(prefix, value string) string {
	return Sanitize(prefix + "_" + value)
}

// Encode validates rec and produces its sparse encoded row. Categorical
// fields emit a single indicator for the observed value; whether that
// column exists in training is decided later by Align.
func Encode(rec RawRecord) (EncodedRow, error) {
	for _, f := range Fields {
		if v, ok := rec[f.Key]; !ok || v == nil {
			return nil, MissingFieldError(f.Key)
		}
	}

	row := make(EncodedRow, len(Fields))
	for _, f := range Fields {
		raw := rec[f.Key]
		switch f.kind {
		case numeric:
			v, ok := toFloat64(raw)
			if !ok {
				return nil, InvalidValueError(f.Key, raw)
			}
			row[Sanitize(f.Column)] = v
		case categorical:
			v, ok := categoryString(raw)
			if !ok {
				return nil, InvalidValueError(f.Key, raw)
			}
			row[CategoryColumn(f.Column, v)] = 1
		}
	}
	return row, nil
}

// floater is satisfied by json.Number from both encoding/json and goccy.
type floater interface {
	Float64() (float64, error)
}

func toFloat64(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int8:
		f = float64(val)
	case int16:
		f = float64(val)
	case int32:
		f = float64(val)
	case int64:
		f = float64(val)
	case uint:
		f = float64(val)
	case uint8:
		f = float64(val)
	case uint16:
		f = float64(val)
	case uint32:
		f = float64(val)
	case uint64:
		f = float64(val)
	case bool:
		if val {
			f = 1
		}
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case floater:
		parsed, err := val.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// categoryString renders a scalar categorical value. Objects and arrays
// are rejected.
func categoryString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case floater:
		if f, err := val.Float64(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64), true
		}
		return fmt.Sprint(val), true
	case bool, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(val), true
	default:
		return "", false
	}
}
