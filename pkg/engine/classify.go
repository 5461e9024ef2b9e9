package engine

import (
	"encoding/json"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// Message categories dispatched to listeners
const (
	CategoryTick        = "tick"
	CategoryTrade       = "trade"
	CategorySignal      = "signal"
	CategoryBalance     = "balance"
	CategoryPerformance = "performance"
	CategoryConnection  = "connection"
	CategoryUnknown     = "unknown"

	// CategoryAll is the wildcard category receiving every frame
	CategoryAll = "all"
)

var fastJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Classify parses a raw engine frame and returns its category and payload.
// A frame carrying an explicit type tag uses the tag directly. Untagged
// frames fall back to structural heuristics; the check order is fixed and
// the first match wins, so a payload matching several shapes classifies
// as the earliest one.
func Classify(raw []byte) (string, json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := fastJSON.Unmarshal(raw, &fields); err != nil {
		return "", nil, fmt.Errorf("unparseable frame: %w", err)
	}

	if tag, ok := fields["type"]; ok {
		var category string
		if err := fastJSON.Unmarshal(tag, &category); err == nil && category != "" {
			if data, ok := fields["data"]; ok {
				return category, data, nil
			}
			return category, raw, nil
		}
	}

	switch {
	case hasField(fields, "symbol") && hasField(fields, "quote"):
		return CategoryTick, raw, nil
	case hasField(fields, "balance"):
		return CategoryBalance, raw, nil
	case hasField(fields, "side"), hasField(fields, "contract_type"):
		return CategoryTrade, raw, nil
	case hasField(fields, "profit"), hasField(fields, "win_rate"):
		return CategoryPerformance, raw, nil
	case hasField(fields, "direction"):
		return CategorySignal, raw, nil
	}
	return CategoryUnknown, raw, nil
}

func hasField(fields map[string]json.RawMessage, key string) bool {
	_, ok := fields[key]
	return ok
}
