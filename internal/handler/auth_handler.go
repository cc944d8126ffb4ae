package handler

import (
	"net/http"
	"regexp"

	"relaychat/internal/pkg/auth/jwt"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/req"
	"relaychat/internal/pkg/resp"
)

var (
	// Names and secrets travel as single command tokens, so neither may contain whitespace.
	usernameRegex = regexp.MustCompile(`^\S{1,32}$`)
	passwordRegex = regexp.MustCompile(`^\S{1,72}$`)
)

// CredentialsInput is the body of both auth endpoints.
type CredentialsInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func bindCredentials(w http.ResponseWriter, r *http.Request) (*CredentialsInput, *errs.CustomError) {
	var input CredentialsInput
	if customErr := req.BindJSON(w, r, &input); customErr != nil {
		return nil, customErr
	}

	if !usernameRegex.MatchString(input.Username) {
		return nil, errs.NewError(errs.ErrInvalidUsername)
	}

	if len(input.Password) > 72 || !passwordRegex.MatchString(input.Password) {
		return nil, errs.NewError(errs.ErrInvalidPassword)
	}

	return &input, nil
}

// HandleRegister creates a user account. It runs the same registry operation as
// the reg command.
func HandleRegister(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, customErr := bindCredentials(w, r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if err := deps.Registry.Register(r.Context(), input.Username, input.Password); err != nil {
			if errs.HasCode(err, errs.ErrUserAlreadyExists) {
				logx.Warn("registration conflict: username already exists", "username", input.Username)
			} else {
				logx.Error(err, "registration failed", "username", input.Username)
			}
			resp.RespondError(w, r, errs.From(err))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"user": map[string]any{"name": input.Username},
		})
	}
}

// HandleLogin verifies credentials and issues a session token for the WebSocket endpoint.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, customErr := bindCredentials(w, r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		ok, err := deps.Registry.Authenticate(input.Username, input.Password)
		if err != nil {
			logx.Warn("login: user lookup failed", "username", input.Username)
			resp.RespondError(w, r, errs.From(err))
			return
		}
		if !ok {
			logx.Warn("login: password mismatch", "username", input.Username)
			resp.RespondError(w, r, errs.NewError(errs.ErrAuthFailure))
			return
		}

		token, err := jwt.GenerateToken(&jwt.Payload{Name: input.Username}, deps.Config.JWTSecret, jwt.SessionExpiration)
		if err != nil {
			logx.Error(err, "login: jwt generation failed")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"token": token,
			"user":  map[string]any{"name": input.Username},
		})
	}
}
