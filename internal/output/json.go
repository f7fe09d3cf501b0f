package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/twiced-technology-gmbh/dubboard/internal/clierr"
)

// JSON writes data as indented JSON.
func JSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// ErrorResponse is the JSON envelope for a failed command.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorOf builds the envelope for err. Errors without a code are reported
// as internal errors.
func ErrorOf(err error) ErrorResponse {
	var ce *clierr.Error
	if errors.As(err, &ce) {
		return ErrorResponse{Error: ce.Message, Code: ce.Code, Details: ce.Details}
	}
	return ErrorResponse{Error: err.Error(), Code: clierr.InternalError}
}

// JSONError writes the envelope for err. Write failures are ignored.
func JSONError(w io.Writer, err error) {
	_ = JSON(w, ErrorOf(err))
}

// BatchResult is the outcome for one id of a multi-task command.
type BatchResult struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// BatchResultOf reports id as succeeded when err is nil.
func BatchResultOf(id string, err error) BatchResult {
	if err == nil {
		return BatchResult{ID: id, OK: true}
	}
	resp := ErrorOf(err)
	if resp.Code == clierr.InternalError {
		resp.Code = ""
	}
	return BatchResult{ID: id, Error: resp.Error, Code: resp.Code}
}
