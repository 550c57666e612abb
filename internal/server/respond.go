package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	errs "github.com/matzehuels/skylayer/pkg/errors"
)

type errorResponse struct {
	Code    errs.Code `json:"code"`
	Message string    `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status and a JSON body. Uncoded errors are
// internal; their text is logged, not returned.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errs.GetCode(err)
	msg := errs.UserMessage(err)

	var tooLarge *http.MaxBytesError
	switch {
	case code != "":
	case errors.As(err, &tooLarge):
		code = errs.ErrCodeTooLarge
		msg = "request body too large"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = errs.ErrCodeInternal
		msg = "request canceled"
	default:
		code = errs.ErrCodeInternal
		msg = "internal error"
	}

	status := errs.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request error", "path", r.URL.Path, "code", code, "err", err)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
