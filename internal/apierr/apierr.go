// Package apierr is the JSON error envelope shared by the HTTP API and its
// client: {"error": {"code": "...", "message": "..."}}. Each code maps to
// exactly one sentinel in internal/common so errors.Is works on both sides
// of the wire.
package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophshare/internal/common"
)

const (
	CodeValidation         = "validation_error"
	CodeInvalidCredentials = "invalid_credentials"
	CodeInvalidCode        = "invalid_code"
	CodeInvalidState       = "invalid_state"
	CodeMFAEnabled         = "mfa_enabled"
	CodeNotAuthenticated   = "not_authenticated"
	CodeInvalidToken       = "invalid_token"
	CodeTokenExpired       = "token_expired"
	CodeRefreshExpired     = "refresh_expired"
	CodeNotOwner           = "not_owner"
	CodeForbidden          = "forbidden"
	CodeLinkExpired        = "link_expired"
	CodeNotFound           = "not_found"
	CodeAlreadyExists      = "already_exists"
	CodeTooLarge           = "too_large"
	CodeInternal           = "internal_error"
)

type entry struct {
	err    error
	code   string
	status int
}

// table is ordered: the first sentinel matched by errors.Is wins.
var table = []entry{
	{common.ErrorValidation, CodeValidation, http.StatusBadRequest},
	{common.ErrAuth, CodeInvalidCredentials, http.StatusBadRequest},
	{common.ErrMFA, CodeInvalidCode, http.StatusBadRequest},
	{common.ErrInvalidState, CodeInvalidState, http.StatusBadRequest},
	{common.ErrMFAEnabled, CodeMFAEnabled, http.StatusConflict},
	{common.ErrorUnauthorized, CodeNotAuthenticated, http.StatusUnauthorized},
	{common.ErrTokenExpired, CodeTokenExpired, http.StatusUnauthorized},
	{common.ErrRefreshTokenExpired, CodeRefreshExpired, http.StatusUnauthorized},
	{common.ErrInvalidToken, CodeInvalidToken, http.StatusUnauthorized},
	{common.ErrNotOwner, CodeNotOwner, http.StatusForbidden},
	{common.ErrExpiredLink, CodeLinkExpired, http.StatusForbidden},
	{common.ErrForbidden, CodeForbidden, http.StatusForbidden},
	{common.ErrorNotFound, CodeNotFound, http.StatusNotFound},
	{common.ErrorAlreadyExists, CodeAlreadyExists, http.StatusConflict},
}

// Body is the wire form of an error response.
type Body struct {
	Error Detail `json:"error"`
}

type Detail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Classify returns the HTTP status and code for err. Unknown errors are
// internal.
func Classify(err error) (int, string) {
	for _, e := range table {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, CodeInternal
}

// Sentinel returns the common error for code, or nil when code is unknown.
func Sentinel(code string) error {
	for _, e := range table {
		if e.code == code {
			return e.err
		}
	}
	return nil
}

// Write writes a JSON error response.
func Write(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Body{Error: Detail{Code: code, Message: message}})
}

// WriteErr classifies err and writes it. Internal errors never expose their
// message.
func WriteErr(w http.ResponseWriter, err error) {
	status, code := Classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	Write(w, status, code, msg)
}

// Decode turns an error response into an error wrapping the matching
// sentinel. Bodies that are not envelopes fall back to the status code.
func Decode(status int, body []byte) error {
	var b Body
	if err := json.Unmarshal(body, &b); err == nil && b.Error.Code != "" {
		if s := Sentinel(b.Error.Code); s != nil {
			if b.Error.Message == "" || b.Error.Message == s.Error() {
				return s
			}
			return &Error{Status: status, Code: b.Error.Code, Message: b.Error.Message, sentinel: s}
		}
		return &Error{Status: status, Code: b.Error.Code, Message: b.Error.Message}
	}

	var s error
	switch status {
	case http.StatusUnauthorized:
		s = common.ErrorUnauthorized
	case http.StatusForbidden:
		s = common.ErrForbidden
	case http.StatusNotFound:
		s = common.ErrorNotFound
	case http.StatusConflict:
		s = common.ErrorAlreadyExists
	case http.StatusBadRequest:
		s = common.ErrorValidation
	default:
		s = common.ErrorInternal
	}
	return &Error{Status: status, Code: "", Message: http.StatusText(status), sentinel: s}
}

// Error is a decoded API error that keeps the server's message.
type Error struct {
	Status   int
	Code     string
	Message  string
	sentinel error
}

func (e *Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.sentinel }
