// Package jsonpath resolves the dotted paths templates use to locate values
// inside provider responses ("choices.0.text", "data.models", ...).
//
// Paths follow gjson syntax. An empty path addresses the document root.
package jsonpath

import (
	"github.com/tidwall/gjson"
)

// Outcome classifies a lookup
type Outcome int

const (
	// Found means the path resolved to a value (possibly JSON null)
	Found Outcome = iota
	// Missing means the document is valid but nothing exists at the path
	Missing
	// Invalid means the document is not valid JSON
	Invalid
)

// String returns a short name for the outcome
func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case Missing:
		return "missing"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Lookup resolves path against doc.
func Lookup(doc, path string) (gjson.Result, Outcome) {
	if !gjson.Valid(doc) {
		return gjson.Result{}, Invalid
	}
	if path == "" {
		return gjson.Parse(doc), Found
	}
	res := gjson.Get(doc, path)
	if !res.Exists() {
		return res, Missing
	}
	return res, Found
}

// LookupResult resolves path relative to an already parsed value.
func LookupResult(v gjson.Result, path string) (gjson.Result, Outcome) {
	if path == "" {
		if !v.Exists() {
			return v, Missing
		}
		return v, Found
	}
	res := v.Get(path)
	if !res.Exists() {
		return res, Missing
	}
	return res, Found
}

// Text resolves path and returns its string form. Anything other than a
// found scalar yields "" so a bad chunk contributes nothing.
func Text(doc, path string) string {
	res, outcome := Lookup(doc, path)
	if outcome != Found {
		return ""
	}
	return Scalar(res)
}

// Scalar returns the string form of a string, number or boolean value and ""
// for anything else
func Scalar(res gjson.Result) string {
	switch res.Type {
	case gjson.String, gjson.Number, gjson.True, gjson.False:
		return res.String()
	default:
		return ""
	}
}
