package output

import "encoding/json"

// RenderJSON indents any payload the CLI prints: dashboard snapshots, raw
// backend responses and probe results alike.
func RenderJSON(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
