package errors

import (
	"encoding/json"
	"net/http"
	"testing"

	pkgerrors "github.com/pkg/errors"
)

func TestCoalesce(t *testing.T) {
	if got := Coalesce(nil); got != nil {
		t.Fatalf("nil must coalesce to nil, got %v", got)
	}
	if got := Coalesce(ErrConversationNotExist); got != ErrConversationNotExist {
		t.Fatalf("domain error must pass through, got %v", got)
	}
	wrapped := pkgerrors.Wrap(ErrConversationNotExist, "find conversation")
	if got := Coalesce(wrapped); got != ErrInternalServerError {
		t.Fatalf("wrapped infrastructure errors map to the generic 500, got %v", got)
	}
}

func TestErrorWireShape(t *testing.T) {
	b, err := json.Marshal(ErrUserHasNotPermission)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"code":"user-has-not-permission"}` {
		t.Fatalf("status must not leak into the body, got %s", b)
	}
	if ErrUserHasNotPermission.Status != http.StatusForbidden {
		t.Fatalf("unexpected status %d", ErrUserHasNotPermission.Status)
	}
	if ErrUserHasNotPermission.Error() != "user-has-not-permission" {
		t.Fatalf("unexpected message %q", ErrUserHasNotPermission.Error())
	}
}
