package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ErrorCode is an error code that may arrive as a JSON string or number
type ErrorCode string

// UnmarshalJSON accepts both "InvalidCredentials" and 409 forms
func (c *ErrorCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = ErrorCode(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("error code must be a string or number: %w", err)
	}
	*c = ErrorCode(n.String())
	return nil
}
