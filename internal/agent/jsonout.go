package agent

import (
	"encoding/json"
	"strings"
)

// decodeJSON parses model output into v. It tolerates markdown code fences
// and prose around a single JSON object.
func decodeJSON(raw string, v interface{}) error {
	s := stripFences(raw)
	err := json.Unmarshal([]byte(s), v)
	if err == nil {
		return nil
	}
	start, end := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return err
	}
	return json.Unmarshal([]byte(s[start:end+1]), v)
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	// drop the opening fence line (``` or ```json)
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
