package client

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jrsteele09/weeb-client/apimodel"
	"github.com/jrsteele09/weeb-client/internal/errors"
)

// StatusError is returned by Do for a non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Detail     string                // "detail" or "message" from the body, if any
	Fields     *apimodel.FieldErrors // field-level errors on a 400, if any
	Body       []byte
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Detail != "" {
		msg += ": " + e.Detail
	} else if e.Fields != nil {
		msg += ": " + e.Fields.Error()
	}
	return msg
}

// Unwrap maps the status onto the package sentinels so callers can use errors.Is.
func (e *StatusError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return errors.ErrUnauthorized
	case e.StatusCode == http.StatusForbidden:
		return errors.ErrForbidden
	case e.StatusCode == http.StatusNotFound:
		return errors.ErrNotFound
	case e.StatusCode == http.StatusBadRequest:
		return errors.ErrValidation
	case e.StatusCode >= 500:
		return errors.ErrServer
	}
	return nil
}

func newStatusError(req *Request, resp *Response) *StatusError {
	se := &StatusError{
		Method:     req.Method,
		Path:       req.Path,
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
	}

	var body struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(resp.Body, &body) == nil {
		switch {
		case body.Detail != "":
			se.Detail = body.Detail
		case body.Message != "":
			se.Detail = body.Message
		case body.Error != "":
			se.Detail = body.Error
		}
	}
	if se.Detail == "" && resp.StatusCode == http.StatusBadRequest {
		se.Fields = apimodel.ParseFieldErrors(resp.Body)
	}
	return se
}
