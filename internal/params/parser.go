package params

import (
	"fmt"
	"strings"
)

// ParseKeyValuePairs converts a slice of "key=value" strings into a map.
// Values may contain further '=' characters; only the first one splits.
//
// Example:
//
//	params, err := ParseKeyValuePairs([]string{"DELIMIDENT=y", "LOBCACHE=0"})
//	// Returns: map[string]string{"DELIMIDENT": "y", "LOBCACHE": "0"}
func ParseKeyValuePairs(pairs []string) (map[string]string, error) {
	result := make(map[string]string, len(pairs))

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("parameter %q is not in key=value format (example: --param DELIMIDENT=y)", pair)
		}

		if key == "" {
			return nil, fmt.Errorf("parameter has empty key: %q", pair)
		}

		result[key] = value
	}

	return result, nil
}
