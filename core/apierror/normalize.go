package apierror

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	networkMessage = "Network error. Please check your internet connection and try again."
	timeoutMessage = "The request timed out. Please try again."
	unknownMessage = "An unexpected error occurred. Please try again."
)

var statusDefaults = map[int]string{
	http.StatusBadRequest:          "Invalid request. Please check your input and try again.",
	http.StatusUnauthorized:        "Your session has expired. Please log in again.",
	http.StatusForbidden:           "You do not have permission to perform this action.",
	http.StatusNotFound:            "The requested resource was not found.",
	http.StatusConflict:            "This record conflicts with an existing one.",
	http.StatusUnprocessableEntity: "Some fields are invalid. Please review them and try again.",
	http.StatusTooManyRequests:     "Too many requests. Please wait a moment and try again.",
	http.StatusInternalServerError: "Something went wrong on our side. Please try again later.",
	http.StatusBadGateway:          "The server is temporarily unreachable (bad gateway).",
	http.StatusServiceUnavailable:  "The service is temporarily unavailable. Please try again shortly.",
}

// StatusDefault returns the human readable fallback message for an HTTP status. Never empty.
func StatusDefault(status int) string {
	if msg, ok := statusDefaults[status]; ok {
		return msg
	}
	if status == 0 {
		return networkMessage
	}
	return fmt.Sprintf("Request failed with status code %d.", status)
}

// errorBody is the loose shape of an API error body.
type errorBody struct {
	Message json.RawMessage `json:"message"`
	Error   json.RawMessage `json:"error"`
	Errors  json.RawMessage `json:"errors"`
}

// FromResponse builds the normalized error of an HTTP response.
// The message precedence is: `message` field, `error` field, raw string body, status default.
func FromResponse(status int, body []byte) *Error {
	apiErr := &Error{Kind: KindForStatus(status), Status: status}

	trimmed := bytes.TrimSpace(body)
	var eb errorBody
	if len(trimmed) > 0 && trimmed[0] == '{' && json.Unmarshal(trimmed, &eb) == nil {
		apiErr.Message = firstNonEmpty(rawString(eb.Message), rawString(eb.Error))
		apiErr.Errors = parseFieldErrors(eb.Errors)
	} else {
		apiErr.Message = rawBodyMessage(trimmed)
	}

	if apiErr.Message == "" {
		apiErr.Message = StatusDefault(status)
	}
	return apiErr
}

// Network builds the normalized error of a request that got no response.
func Network(err error) *Error {
	msg := networkMessage
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		msg = timeoutMessage
	}
	return &Error{Kind: KindNetwork, Message: msg, err: err}
}

// Normalize turns any error into an *Error. It returns nil for a nil error.
func Normalize(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &Error{Kind: KindUnknown, Message: firstNonEmpty(err.Error(), unknownMessage), err: err}
}

// EmptyResult builds the synthetic error signalling an empty listing.
func EmptyResult(entity string) *Error {
	return &Error{Kind: KindEmptyResult, Status: http.StatusNotFound, Message: "No " + entity + " found"}
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// rawString extracts a message from a JSON value: a string, or an object with a message.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return strings.TrimSpace(obj.Message)
	}
	return ""
}

// rawBodyMessage uses a non-JSON-object body as message. HTML error pages are ignored.
func rawBodyMessage(body []byte) string {
	if len(body) == 0 || body[0] == '<' || body[0] == '[' {
		return ""
	}
	var s string
	if body[0] == '"' && json.Unmarshal(body, &s) == nil {
		return strings.TrimSpace(s)
	}
	return string(body)
}

// parseFieldErrors accepts {field: msg}, {field: [msg...]}, [{field|path|param, message|msg}] or [msg...].
func parseFieldErrors(raw json.RawMessage) map[string]string {
	if len(raw) == 0 {
		return nil
	}

	var flat map[string]string
	if json.Unmarshal(raw, &flat) == nil {
		return nonEmpty(flat)
	}

	var multi map[string][]string
	if json.Unmarshal(raw, &multi) == nil {
		fldErrs := make(map[string]string, len(multi))
		for fld, msgs := range multi {
			if len(msgs) > 0 {
				fldErrs[fld] = msgs[0]
			}
		}
		return nonEmpty(fldErrs)
	}

	var list []struct {
		Field   string `json:"field"`
		Path    string `json:"path"`
		Param   string `json:"param"`
		Message string `json:"message"`
		Msg     string `json:"msg"`
	}
	if json.Unmarshal(raw, &list) == nil {
		fldErrs := make(map[string]string, len(list))
		for i, item := range list {
			fld := firstNonEmpty(item.Field, item.Path, item.Param, strconv.Itoa(i))
			fldErrs[fld] = firstNonEmpty(item.Message, item.Msg)
		}
		return nonEmpty(fldErrs)
	}

	var msgs []string
	if json.Unmarshal(raw, &msgs) == nil {
		fldErrs := make(map[string]string, len(msgs))
		for i, msg := range msgs {
			fldErrs[strconv.Itoa(i)] = msg
		}
		return nonEmpty(fldErrs)
	}
	return nil
}

func nonEmpty(m map[string]string) map[string]string {
	for k, v := range m {
		if strings.TrimSpace(v) == "" {
			delete(m, k)
		}
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// Details renders the field errors as "field: message" lines, sorted by field.
func (e *Error) Details() []string {
	if len(e.Errors) == 0 {
		return nil
	}
	flds := make([]string, 0, len(e.Errors))
	for fld := range e.Errors {
		flds = append(flds, fld)
	}
	sort.Strings(flds)
	lines := make([]string, 0, len(flds))
	for _, fld := range flds {
		lines = append(lines, fld+": "+e.Errors[fld])
	}
	return lines
}
