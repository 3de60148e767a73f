package jsonutil

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FlexibleStringValue converts a json.RawMessage to a string, handling the
// Kaiten habit of returning ids as numbers in one endpoint and strings in
// another. Returns empty string for null/empty.
func FlexibleStringValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	var numVal json.Number
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if i, err := numVal.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return numVal.String()
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return fmt.Sprintf("%t", boolVal)
	}

	return string(raw)
}

// FlexibleFloatValue reads a number that may arrive as a JSON number, a numeric
// string, null or garbage. Anything unparseable yields 0.
func FlexibleFloatValue(raw json.RawMessage) float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return 0
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return sanitizeFloat(f)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return sanitizeFloat(f)
		}
	}

	return 0
}

func sanitizeFloat(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// ParseOptionalInt normalizes an operator-entered integer. JSON null, an empty
// or blank string, or a missing value mean "unset" and return nil. Numbers and
// numeric strings must be whole and non-negative.
func ParseOptionalInt(raw json.RawMessage) (*int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, nil
		}
	} else {
		text = strings.TrimSpace(string(raw))
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("not a number: %q", text)
	}
	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return nil, fmt.Errorf("not a non-negative integer: %q", text)
	}
	v := int(f)
	return &v, nil
}
