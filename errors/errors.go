package errors

import "net/http"

// Error is a domain error carrying the wire code returned to clients in the
// {"error":{"code":...}} body and the HTTP status it maps to.
type Error struct {
	Code   string `json:"code"`
	Status int    `json:"-"`
}

func (e *Error) Error() string {
	return e.Code
}

func New(code string, status int) *Error {
	return &Error{Code: code, Status: status}
}

var (
	// validation errors
	ErrInvalidParams         = New("invalid-params", http.StatusBadRequest)
	ErrInvalidMessage        = New("invalid-message", http.StatusBadRequest)
	ErrInvalidConversationID = New("invalid-conversationId", http.StatusBadRequest)
	ErrInvalidParticipant    = New("invalid-participant", http.StatusBadRequest)

	// authorization errors; conversation-not-exist doubles as the
	// not-a-member answer so membership probing can't confirm existence
	ErrConversationNotExist  = New("conversation-not-exist", http.StatusForbidden)
	ErrUserHasNotPermission  = New("user-has-not-permission", http.StatusForbidden)
	ErrCannotRevoke          = New("can-not-revoke", http.StatusForbidden)
	ErrMustLeastThreeMembers = New("must-least-3-members", http.StatusForbidden)
	ErrEmptyFile             = New("empty-file", http.StatusForbidden)

	ErrUnauthenticated     = New("unauthenticated", http.StatusUnauthorized)
	ErrInternalServerError = New("something-went-wrong", http.StatusInternalServerError)
)

// Coalesce maps any error to a domain error, folding unexpected
// infrastructure failures into the generic 500.
func Coalesce(err error) *Error {
	if err == nil {
		return nil
	}
	if apiErr, ok := err.(*Error); ok {
		return apiErr
	}
	return ErrInternalServerError
}
