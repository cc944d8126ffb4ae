package errs

import "net/http"

// errorMap stores the template CustomError for every application error code.
var errorMap = map[int]CustomError{
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrParseMismatch:        {Code: ErrParseMismatch, Message: "Unknown command"},

	ErrNotFound:          {Code: ErrNotFound, Message: "Not found", Status: http.StatusNotFound},
	ErrUserNotFound:      {Code: ErrUserNotFound, Message: "User does not exist", Status: http.StatusNotFound},
	ErrChatNotFound:      {Code: ErrChatNotFound, Message: "Chat not found", Status: http.StatusNotFound},
	ErrRecipientOffline:  {Code: ErrRecipientOffline, Message: "User is not online"},
	ErrUserAlreadyExists: {Code: ErrUserAlreadyExists, Message: "Registration error, it is possible the username is already in use", Status: http.StatusConflict},
	ErrRejected:          {Code: ErrRejected, Message: "Request rejected"},
	ErrNotChatMember:     {Code: ErrNotChatMember, Message: "You are not in this chat"},

	ErrAuthFailure:      {Code: ErrAuthFailure, Message: "Wrong Password", Status: http.StatusUnauthorized},
	ErrNotAuthenticated: {Code: ErrNotAuthenticated, Message: "Login first", Status: http.StatusUnauthorized},
	ErrUnauthorized:     {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrInvalidUsername:  {Code: ErrInvalidUsername, Message: "Invalid username.", Status: http.StatusBadRequest},
	ErrInvalidPassword:  {Code: ErrInvalidPassword, Message: "Invalid password.", Status: http.StatusBadRequest},

	ErrUnknown:            {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrIOFailure:          {Code: ErrIOFailure, Message: "Stream failure: %v", Status: http.StatusInternalServerError},
	ErrPersistenceFailure: {Code: ErrPersistenceFailure, Message: "Registration error, could not persist the user table", Status: http.StatusInternalServerError},
}
