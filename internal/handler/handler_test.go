package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/money-tracker/internal/auth"
	"github.com/josh-kwaku/money-tracker/internal/domain"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.True(t, env.Success, rec.Body.String())
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.False(t, env.Success)
	require.NotNil(t, env.Error)
	return env.Error.Code
}

// newRequest builds a request; a non-zero personID attaches a USER identity.
func newRequest(method, target, body string, personID int64) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if personID != 0 {
		req = req.WithContext(auth.ContextWithIdentity(req.Context(), auth.Identity{PersonID: personID, Role: domain.RoleUser}))
	}
	return req
}
