package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalRemoved converts removed node paths to JSON TEXT for storage.
// HTML escaping is disabled so paths like "...on Foo" stay readable.
func marshalRemoved(paths []string) (string, error) {
	if paths == nil {
		paths = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(paths); err != nil {
		return "", fmt.Errorf("marshal removed: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func unmarshalRemoved(data string) ([]string, error) {
	var paths []string
	if err := json.Unmarshal([]byte(data), &paths); err != nil {
		return nil, fmt.Errorf("unmarshal removed: %w", err)
	}
	return paths, nil
}
