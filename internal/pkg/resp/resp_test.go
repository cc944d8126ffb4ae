package resp

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
)

func TestMain(m *testing.M) {
	logx.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func TestRespondSuccessEchoesRequestID(t *testing.T) {
	var rec *httptest.ResponseRecorder
	h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RespondSuccess(w, r, map[string]string{"token": "t"})
	}))

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	env := decode(t, rec)
	assert.Equal(t, 0, env.Code)
	assert.Equal(t, "success", env.Message)
	assert.Equal(t, "req-42", env.RequestID)
	assert.Equal(t, map[string]any{"token": "t"}, env.Data)
}

func TestRespondErrorWithoutRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, httptest.NewRequest(http.MethodGet, "/app", nil), errs.NewError(errs.ErrUnauthorized))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotContains(t, rec.Body.String(), "requestId")

	env := decode(t, rec)
	assert.Equal(t, errs.ErrUnauthorized, env.Code)
	assert.Nil(t, env.Data)
}

func TestRespondErrorDefaults(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register", nil), nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, errs.ErrUnknown, decode(t, rec).Code)
}

func TestRespondErrorServerFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	customErr := errs.Wrap(errs.ErrPersistenceFailure, errors.New("disk full"))
	RespondError(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register", nil), customErr)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, errs.ErrPersistenceFailure, env.Code)
	assert.NotContains(t, env.Message, "disk full")
}

func TestRespondJSONEncodingFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondJSON(rec, http.StatusOK, map[string]any{"bad": make(chan int)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
