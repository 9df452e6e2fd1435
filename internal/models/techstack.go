package models

import (
	"encoding/json"
	"strings"
)

// TechStack is the canonical tech-stack representation: an ordered list of
// trimmed, non-empty, case-insensitively unique names. Stored as jsonb.
type TechStack []string

// NormalizeTechStack accepts either a list of names or a single
// comma-delimited string and returns the canonical form. Order of first
// appearance is kept.
func NormalizeTechStack(items ...string) TechStack {
	out := make(TechStack, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			name := strings.TrimSpace(part)
			if name == "" {
				continue
			}
			key := strings.ToLower(name)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

// UnmarshalJSON lets request bodies send either ["go","pg"] or "go, pg".
func (t *TechStack) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = TechStack{}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = NormalizeTechStack(list...)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = NormalizeTechStack(s)
	return nil
}

// MarshalJSON always emits a list, never null.
func (t TechStack) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(t))
}
