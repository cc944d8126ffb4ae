package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the claims of a relay session token.
// A token is issued by the REST login endpoint and lets a WebSocket session
// start already authenticated.
type Payload struct {
	// StandardClaims embeds the standard fields (exp, iat, iss) used for validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// Name is the registered user name the token was issued to.
	Name string `json:"name"`
}
