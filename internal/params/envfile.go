package params

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// ParseEnvFile parses parameter file content in .env format and returns a
// map of key-value pairs.
//
// Format rules:
//   - Lines starting with # are comments
//   - Empty lines are ignored
//   - Format: KEY=VALUE
//   - Whitespace around = is trimmed
//   - Values can be quoted with single or double quotes
//   - Unquoted values are trimmed
//
// This matches godotenv behavior for simple files but does not support
// variable expansion or multiline values.
func ParseEnvFile(content []byte) (map[string]string, error) {
	result := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(content))
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		eqIndex := strings.Index(line, "=")
		if eqIndex == -1 {
			return nil, fmt.Errorf("line %d: invalid format, expected KEY=VALUE", lineNum)
		}

		key := strings.TrimSpace(line[:eqIndex])
		value := strings.TrimSpace(line[eqIndex+1:])

		if key == "" {
			return nil, fmt.Errorf("line %d: empty key", lineNum)
		}

		if len(value) >= 2 {
			if (strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"")) ||
				(strings.HasPrefix(value, "'") && strings.HasSuffix(value, "'")) {
				value = value[1 : len(value)-1]
			}
		}

		result[key] = value
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading content: %w", err)
	}

	return result, nil
}
