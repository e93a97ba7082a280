package utils

import (
	"encoding/json"
	"fmt"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// DecodeLenient decodes input into v, trying progressively more forgiving
// parsers. It returns the name of the strategy that succeeded.
// Order of attempts:
// 1. Standard JSON
// 2. JSON repair (trailing commas, single quotes, unclosed arrays)
// 3. Hjson (comments, unquoted keys and strings)
func DecodeLenient(input string, v interface{}) (string, error) {
	if err := json.Unmarshal([]byte(input), v); err == nil {
		return "json", nil
	}

	if repaired, err := jsonrepair.RepairJSON(input); err == nil {
		if err := json.Unmarshal([]byte(repaired), v); err == nil {
			return "json-repair", nil
		}
	}

	var generic interface{}
	if err := hjson.Unmarshal([]byte(input), &generic); err == nil {
		normalized, err := json.Marshal(generic)
		if err == nil {
			if err := json.Unmarshal(normalized, v); err == nil {
				return "hjson", nil
			}
		}
	}

	return "", fmt.Errorf("LENIENT_PARSE_FAILED: all parsing strategies failed for input")
}
