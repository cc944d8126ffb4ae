/*
Package resp writes the JSON envelope used by the relay's HTTP endpoints.

Every body carries the relay's code and message, the chi request id when the
router assigned one, and an optional payload. WebSocket traffic does not use
this package.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
)

// Envelope is the body of every relay HTTP response.
type Envelope struct {
	// Code is 0 on success, otherwise an errs code.
	Code int `json:"code"`

	Message string `json:"message"`

	// RequestID echoes the X-Request-Id assigned by the router.
	RequestID string `json:"requestId,omitempty"`

	Data any `json:"data,omitempty"`
}

func newEnvelope(r *http.Request, code int, message string, data any) Envelope {
	env := Envelope{Code: code, Message: message, Data: data}
	if r != nil {
		env.RequestID = middleware.GetReqID(r.Context())
	}
	return env
}

// RespondJSON encodes payload with the given status.
func RespondJSON(w http.ResponseWriter, httpStatus int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logx.Error(err, "Error encoding JSON response", "http_status", httpStatus)
		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(httpStatus)
	_, _ = w.Write(body)
}

// RespondSuccess sends data with HTTP 200.
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	RespondJSON(w, http.StatusOK, newEnvelope(r, 0, "success", data))
}

// RespondError sends customErr with its HTTP status. A nil error is reported as ErrUnknown.
// Server-side failures are logged with their cause.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	env := newEnvelope(r, customErr.Code, customErr.Message, nil)
	if customErr.Status >= http.StatusInternalServerError {
		logx.Error(customErr, "Request failed", "code", customErr.Code, "request_id", env.RequestID)
	}
	RespondJSON(w, customErr.Status, env)
}
