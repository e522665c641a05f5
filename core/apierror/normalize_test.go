package apierror

import (
	"context"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromResponse_emptyBodyDefaults(t *testing.T) {
	statuses := []int{400, 401, 403, 404, 409, 422, 429, 500, 502, 503}
	seen := make(map[string]int, len(statuses))

	for _, status := range statuses {
		for _, body := range [][]byte{nil, []byte(""), []byte("   "), []byte("{}"), []byte(`{"message":""}`)} {
			apiErr := FromResponse(status, body)
			assert.NotEmpty(t, apiErr.Message, "status %d body %q", status, body)
			assert.Equal(t, status, apiErr.Status)
		}
		msg := FromResponse(status, nil).Message
		if other, ok := seen[msg]; ok {
			t.Errorf("status %d shares its default message with %d", status, other)
		}
		seen[msg] = status
	}
}

func TestFromResponse_precedence(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{name: "message wins", status: 400, body: `{"message":"Email taken","error":"Bad Request"}`, wantMsg: "Email taken"},
		{name: "error field", status: 400, body: `{"error":"Bad Request"}`, wantMsg: "Bad Request"},
		{name: "error object", status: 409, body: `{"error":{"message":"Duplicate admission number"}}`, wantMsg: "Duplicate admission number"},
		{name: "raw string body", status: 500, body: `upstream exploded`, wantMsg: "upstream exploded"},
		{name: "json string body", status: 500, body: `"upstream exploded"`, wantMsg: "upstream exploded"},
		{name: "html ignored", status: 502, body: `<html><body>Bad Gateway</body></html>`, wantMsg: StatusDefault(502)},
		{name: "unknown status", status: 418, body: ``, wantMsg: "Request failed with status code 418."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, FromResponse(tt.status, []byte(tt.body)).Message)
		})
	}
}

func TestFromResponse_kinds(t *testing.T) {
	tests := map[int]Kind{
		400: KindValidation,
		401: KindUnauthorized,
		403: KindForbidden,
		404: KindNotFound,
		409: KindConflict,
		422: KindValidation,
		429: KindRateLimited,
		500: KindServer,
		503: KindServer,
		418: KindUnknown,
	}
	for status, want := range tests {
		assert.Equal(t, want, FromResponse(status, nil).Kind, "status %d", status)
	}
}

func TestFromResponse_fieldErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want map[string]string
	}{
		{name: "flat", body: `{"errors":{"email":"is invalid"}}`, want: map[string]string{"email": "is invalid"}},
		{name: "multi", body: `{"errors":{"email":["is invalid","is taken"]}}`, want: map[string]string{"email": "is invalid"}},
		{
			name: "list", body: `{"errors":[{"field":"email","message":"is invalid"},{"path":"name","msg":"required"}]}`,
			want: map[string]string{"email": "is invalid", "name": "required"},
		},
		{name: "strings", body: `{"errors":["first","second"]}`, want: map[string]string{"0": "first", "1": "second"}},
		{name: "none", body: `{"message":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromResponse(http.StatusUnprocessableEntity, []byte(tt.body)).Errors)
		})
	}
}

func TestNetworkAndNormalize(t *testing.T) {
	netErr := Network(errors.New("dial tcp: connection refused"))
	assert.Equal(t, KindNetwork, netErr.Kind)
	assert.Equal(t, 0, netErr.Status)
	assert.Equal(t, networkMessage, netErr.Message)

	timeout := Network(errors.Wrap(context.DeadlineExceeded, "sending request"))
	assert.Equal(t, timeoutMessage, timeout.Message)
	assert.True(t, errors.Is(timeout, context.DeadlineExceeded))

	wrapped := errors.Wrap(FromResponse(403, nil), "deleting student")
	assert.True(t, IsKind(wrapped, KindForbidden))
	assert.Equal(t, 403, StatusOf(wrapped))
	require.NotNil(t, Normalize(wrapped))
	assert.Equal(t, KindForbidden, Normalize(wrapped).Kind)

	plain := Normalize(errors.New("boom"))
	assert.Equal(t, KindUnknown, plain.Kind)
	assert.Equal(t, "boom", plain.Message)
	assert.Nil(t, Normalize(nil))
}

func TestError_MentionsTenant(t *testing.T) {
	assert.True(t, FromResponse(404, []byte(`{"message":"Tenant not found"}`)).MentionsTenant())
	assert.False(t, FromResponse(404, []byte(`{"message":"No students found"}`)).MentionsTenant())
}
