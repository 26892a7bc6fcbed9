package apimodel

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jrsteele09/weeb-client/internal/errors"
)

// FieldErrors maps a request field to the messages the API (or local validation)
// reported for it, e.g. {"email": ["user with this email already exists."]}.
type FieldErrors struct {
	Fields map[string][]string
}

var _ error = (*FieldErrors)(nil)

func (fe *FieldErrors) Add(field, message string) {
	if fe.Fields == nil {
		fe.Fields = make(map[string][]string)
	}
	fe.Fields[field] = append(fe.Fields[field], message)
}

func (fe *FieldErrors) Empty() bool {
	return len(fe.Fields) == 0
}

// First returns the first message for field, or "".
func (fe *FieldErrors) First(field string) string {
	if msgs := fe.Fields[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

func (fe *FieldErrors) Error() string {
	keys := make([]string, 0, len(fe.Fields))
	for k := range fe.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(fe.Fields[k], " ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (fe *FieldErrors) Unwrap() error {
	return errors.ErrValidation
}

// ParseFieldErrors decodes a DRF-style error body. Values may be a string or a list of
// strings; anything else is ignored. It returns nil when nothing field-shaped is found.
func ParseFieldErrors(body []byte) *FieldErrors {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil
	}

	fe := &FieldErrors{}
	for field, value := range raw {
		var list []string
		if err := json.Unmarshal(value, &list); err == nil {
			for _, msg := range list {
				fe.Add(field, msg)
			}
			continue
		}
		var single string
		if err := json.Unmarshal(value, &single); err == nil {
			fe.Add(field, single)
		}
	}
	if fe.Empty() {
		return nil
	}
	return fe
}
