package kaiten

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
)

// filterNode mirrors Kaiten's card filter tree. Field order fixes the
// encoded key order: key, comparison, id, type, value.
type filterNode struct {
	Key        string      `json:"key"`
	Comparison string      `json:"comparison,omitempty"`
	ID         *int64      `json:"id,omitempty"`
	Type       string      `json:"type,omitempty"`
	Value      interface{} `json:"value"`
}

// BillingFilter builds the base64 card filter selecting cards whose select
// custom property fieldID equals valueID. Both ids must be integers.
func BillingFilter(fieldID, valueID string) (string, error) {
	field, err := strconv.ParseInt(fieldID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("billing field id %q is not an integer: %w", fieldID, err)
	}
	value, err := strconv.ParseInt(valueID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("billing field value %q is not an integer: %w", valueID, err)
	}

	condition := filterNode{
		Key:        "custom_property",
		Comparison: "eq",
		ID:         &field,
		Type:       "select",
		Value:      value,
	}
	tree := filterNode{
		Key: "and",
		Value: []filterNode{{
			Key:   "and",
			Value: []filterNode{condition},
		}},
	}

	raw, err := json.Marshal(tree)
	if err != nil {
		return "", fmt.Errorf("failed to encode card filter: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
