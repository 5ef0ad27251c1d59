package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/RamanArcStudios/CulturePassAU-sub003/internal/status"
	"github.com/pocketbase/pocketbase/core"
)

type errorBody struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError renders err as the API error body. Handlers return its result
// so PocketBase never wraps the failure in its own error shape.
func writeError(e *core.RequestEvent, err error) error {
	code := status.Code(err)
	httpStatus := status.HTTPStatus(err)
	message := err.Error()

	if httpStatus >= http.StatusInternalServerError {
		slog.Error("Request failed", "method", e.Request.Method, "path", e.Request.URL.Path, "code", code, "error", err)
		if code == status.CodeInternal {
			message = "internal error"
		}
	}

	return e.JSON(httpStatus, errorBody{OK: false, Error: code, Message: message})
}

// decodeBody reads a single JSON object and rejects unknown fields.
func decodeBody(e *core.RequestEvent, dst any) error {
	dec := json.NewDecoder(e.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", status.ErrInvalidInput)
		}
		return fmt.Errorf("%w: %v", status.ErrInvalidInput, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: request body must hold a single JSON object", status.ErrInvalidInput)
	}
	return nil
}
