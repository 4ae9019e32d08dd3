package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/erazemk/nabava/internal/apperr"
	"github.com/erazemk/nabava/internal/logger"
	"github.com/erazemk/nabava/internal/validate"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		// Headers are already out, nothing left to report to the client.
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeError maps err to its HTTP status and error envelope. Unclassified
// errors are logged and reported as internal.
func writeError(ctx context.Context, log *logger.Logger, w http.ResponseWriter, err error) {
	typed := apperr.As(err)
	if typed == nil {
		typed = apperr.Wrap(apperr.CodeInternal, err, "unexpected error")
	}
	meta := apperr.MetadataFor(typed.Code())

	msg := meta.PublicMessage
	switch typed.Code() {
	case apperr.CodeInternal, apperr.CodeDependency:
	default:
		if m := typed.Message(); m != "" {
			msg = m
		}
	}

	body := errorBody{Code: string(typed.Code()), Message: msg}
	if meta.DetailsAllowed {
		body.Details = typed.Details()
	}

	if log != nil {
		if meta.HTTPStatus >= http.StatusInternalServerError {
			log.Error(log.WithField(ctx, "error_code", string(typed.Code())), "request.error", err)
		} else {
			log.Debug(log.WithField(ctx, "error", err.Error()), "request.rejected")
		}
	}

	jsonResponse(w, meta.HTTPStatus, errorEnvelope{Error: body})
}

// jsonError writes an error envelope for code with message.
func jsonError(w http.ResponseWriter, code apperr.Code, message string) {
	jsonResponse(w, apperr.MetadataFor(code).HTTPStatus, errorEnvelope{
		Error: errorBody{Code: string(code), Message: message},
	})
}

// decodeJSON decodes the request body into target and validates it.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.New(apperr.CodeValidation, "request body is empty")
		}
		return apperr.Wrap(apperr.CodeValidation, err, "invalid request body")
	}
	return validate.Struct(target)
}

// pathID parses the {id} route parameter.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Newf(apperr.CodeValidation, "invalid id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}
