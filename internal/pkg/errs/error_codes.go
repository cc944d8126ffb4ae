/*
Package errs provides the relay's error type and its application-level error codes.

Codes identify a failure both in logs and in what is reported back to a client,
whether over the command protocol (one status line) or over the REST endpoints.
*/
package errs

// 1xxx: request handling errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body is not valid JSON.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing data after the JSON body.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the caller exceeded the allowed request rate.
	ErrRateLimitExceeded = 1007

	// ErrParseMismatch indicates a command line that matched no grammar.
	ErrParseMismatch = 1101
)

// 2xxx: registry errors
const (
	// ErrNotFound is the generic lookup failure.
	ErrNotFound = 2001

	// ErrUserNotFound indicates that no user record exists under the given name.
	ErrUserNotFound = 2002

	// ErrChatNotFound indicates that no chat room exists under the given name.
	ErrChatNotFound = 2003

	// ErrRecipientOffline indicates that the target user has no presence entry.
	ErrRecipientOffline = 2004

	// ErrUserAlreadyExists indicates a registration under a name that is taken.
	ErrUserAlreadyExists = 2101

	// ErrRejected is the generic refusal of a well-formed request.
	ErrRejected = 2201

	// ErrNotChatMember indicates a quit from a chat the user is not a member of.
	ErrNotChatMember = 2202
)

// 3xxx: authentication errors
const (
	// ErrAuthFailure indicates a wrong secret.
	ErrAuthFailure = 3001

	// ErrNotAuthenticated indicates a command that requires a logged-in session.
	ErrNotAuthenticated = 3002

	// ErrUnauthorized indicates a missing or invalid token on an HTTP request.
	ErrUnauthorized = 3003

	// ErrInvalidUsername indicates a name that cannot be registered.
	ErrInvalidUsername = 3004

	// ErrInvalidPassword indicates a secret that cannot be registered.
	ErrInvalidPassword = 3005
)

// 5xxx: internal errors
const (
	// ErrUnknown represents an unclassified internal error.
	ErrUnknown = 5000

	// ErrIOFailure indicates a stream read or write failure.
	ErrIOFailure = 5001

	// ErrPersistenceFailure indicates that the user table could not be saved or loaded.
	ErrPersistenceFailure = 5002
)
