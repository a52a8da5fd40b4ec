package main

import (
	"encoding/json"
	"fmt"
	"io"
)

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// outputJSONError writes an error as JSON for machine consumers:
//
//	{"error": "error message", "exit_code": 2}
func outputJSONError(w io.Writer, err error) {
	_ = outputJSON(w, map[string]interface{}{
		"error":     err.Error(),
		"exit_code": exitCode(err),
	})
}
