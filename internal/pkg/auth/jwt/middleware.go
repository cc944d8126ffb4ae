package jwt

import (
	"net/http"
	"strings"
)

// TokenQueryParam is the query parameter a WebSocket client may carry its token in.
// Browsers cannot set headers on the upgrade request.
const TokenQueryParam = "token"

// TokenFromRequest extracts a raw token from the Authorization header
// ("Bearer <token>") or, failing that, from the token query parameter.
// It returns an empty string when neither is present or well-formed.
func TokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return strings.TrimSpace(parts[1])
		}
	}

	return r.URL.Query().Get(TokenQueryParam)
}

// PayloadFromRequest extracts and validates the token on r.
// A nil payload with a nil error means the request is anonymous.
func PayloadFromRequest(r *http.Request, secretKey string) (*Payload, error) {
	raw := TokenFromRequest(r)
	if raw == "" {
		return nil, nil
	}

	return ParseToken(raw, secretKey)
}
