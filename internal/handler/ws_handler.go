package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"relaychat/internal/configs"
	"relaychat/internal/pkg/auth/jwt"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/resp"
)

// newUpgrader builds the WebSocket upgrader. Development accepts every origin;
// otherwise the Origin header must be one of the configured origins.
func newUpgrader(cfg *configs.AppConfig) websocket.Upgrader {
	allowedOrigins := make(map[string]struct{})
	for _, origin := range cfg.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if cfg.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				// Non-browser clients send no Origin.
				return true
			}
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}
}

// HandleWebSocket creates an HTTP HandlerFunc that upgrades the request and serves
// one relay session on it. A valid session token starts the session authenticated.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := jwt.PayloadFromRequest(r, deps.Config.JWTSecret)
		if err != nil {
			logx.Warn("WebSocket request rejected: invalid session token", "error", err)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		sess := deps.Manager.NewSession(conn)

		if payload != nil {
			if err := sess.Preauthenticate(payload.Name); err != nil {
				logx.Warn("Token names an unknown user, session starts unauthenticated", "user", payload.Name)
			}
		}

		logx.Info("WebSocket connection established", "session_id", sess.ID, "user", sess.User())

		if err := deps.Manager.Serve(sess); err != nil {
			logx.Warn("WebSocket session refused", "session_id", sess.ID, "error", err)
		}
	}
}
