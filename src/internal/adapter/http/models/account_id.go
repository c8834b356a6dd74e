package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// AccountID is an opaque account identifier. Numeric ids travel as JSON
// numbers, anything else as a string; both forms are accepted on decode.
type AccountID string

func (id AccountID) String() string {
	return strings.TrimSpace(string(id))
}

func (id AccountID) MarshalJSON() ([]byte, error) {
	s := id.String()
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return []byte(s), nil
	}
	return json.Marshal(s)
}

func (id *AccountID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*id = ""
		return nil
	}

	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*id = AccountID(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	*id = AccountID(n.String())
	return nil
}
