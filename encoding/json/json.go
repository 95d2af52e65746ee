// Package json wraps encoding/json and annotates unmarshal errors
// with the line and column where they happened.
package json

import (
	"encoding/json"
	"errors"
	"fmt"
)

func Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func MarshalIndent(v interface{}, prefix, indent string) ([]byte, error) {
	return json.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// FormatError takes the data given to Unmarshal and the error it returned
// and, if the error carries an offset, rewrites it with the line and column
// of the offending byte.
func FormatError(input []byte, err error) error {
	var offset int64 = -1

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	if errors.As(err, &syntaxErr) {
		offset = syntaxErr.Offset
	} else if errors.As(err, &typeErr) {
		offset = typeErr.Offset
	}

	if offset < 0 || offset > int64(len(input)) {
		return err
	}

	line, column := position(input, offset)

	if typeErr != nil {
		return fmt.Errorf("expected type '%s' for '%s' at line %d, column %d: %w", typeErr.Type.String(), typeErr.Field, line, column, err)
	}

	return fmt.Errorf("syntax error at line %d, column %d: %w", line, column, err)
}

func position(input []byte, offset int64) (line int, column int) {
	line = 1

	for i := int64(0); i < offset && i < int64(len(input)); i++ {
		column++
		if input[i] == '\n' {
			line++
			column = 0
		}
	}

	return line, column
}
