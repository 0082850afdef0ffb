package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/consigne/internal/harness"
	"github.com/roach88/consigne/internal/queryir"
)

// Error code constants - unified across all CLI commands. Query errors
// keep their own codes (UNKNOWN_FIELD, ...).
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeUnsupported  = "E002" // Unsupported request file type
	ErrCodeParseFailed  = "E003" // Request file does not parse
	ErrCodeLoadFailed   = "E004" // CUE evaluation failed
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeConfig       = "E006" // Invalid configuration
	ErrCodeWriteFailed  = "E007" // File write error
	ErrCodeOpenFailed   = "E201" // Database could not be opened
	ErrCodeInvalidInput = "E202" // Flag value out of range
)

// LoadError represents an error that occurred while loading a request file.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadRequest reads a query request from a .yaml, .yml, .json or .cue file
// and normalizes operator and conflict-policy spelling.
//
// Unknown keys are rejected. JSON and CUE numbers decode to int64 when
// integral, float64 otherwise.
func LoadRequest(path string) (queryir.Request, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return queryir.Request{}, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("request file not found: %s", path)}
	}
	if err != nil {
		return queryir.Request{}, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("read request: %v", err)}
	}

	var req queryir.Request
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		req, err = decodeYAML(data)
	case ".json":
		req, err = decodeJSON(data)
	case ".cue":
		data, err = evalCUE(path, data)
		if err != nil {
			return queryir.Request{}, err
		}
		req, err = decodeJSON(data)
	default:
		return queryir.Request{}, &LoadError{Code: ErrCodeUnsupported, Message: fmt.Sprintf("unsupported request file type %q", ext)}
	}
	if err != nil {
		return queryir.Request{}, &LoadError{Code: ErrCodeParseFailed, Message: fmt.Sprintf("%s: %v", path, err)}
	}

	return harness.NormalizeRequest(req)
}

func decodeYAML(data []byte) (queryir.Request, error) {
	var req queryir.Request
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&req); err != nil {
		return queryir.Request{}, err
	}
	return req, nil
}

func decodeJSON(data []byte) (queryir.Request, error) {
	var req queryir.Request
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return queryir.Request{}, err
	}

	for i, v := range req.Values {
		req.Values[i] = fromJSONNumber(v)
	}
	for _, row := range req.Rows {
		for i, v := range row {
			row[i] = fromJSONNumber(v)
		}
	}
	for i := range req.Conditions {
		req.Conditions[i].Value = fromJSONNumber(req.Conditions[i].Value)
	}
	for i := range req.Setters {
		req.Setters[i].Value = fromJSONNumber(req.Setters[i].Value)
	}
	return req, nil
}

// fromJSONNumber replaces json.Number values, recursively, so integers bind
// as INTEGER rather than REAL or TEXT.
func fromJSONNumber(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case []any:
		for i, e := range x {
			x[i] = fromJSONNumber(e)
		}
		return x
	case map[string]any:
		for k, e := range x {
			x[k] = fromJSONNumber(e)
		}
		return x
	}
	return v
}

// evalCUE evaluates a CUE request file to JSON. The value must be concrete.
func evalCUE(path string, data []byte) ([]byte, error) {
	v := cuecontext.New().CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, cueLoadError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(err)
	}
	out, err := v.MarshalJSON()
	if err != nil {
		return nil, cueLoadError(err)
	}
	return out, nil
}

func cueLoadError(err error) *LoadError {
	le := &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
	if errs := cueerrors.Errors(err); len(errs) > 0 {
		le.Pos = errs[0].Position()
		le.Message = errs[0].Error()
	}
	return le
}
