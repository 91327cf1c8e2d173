package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusByKind(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{NotFound("quote not found"), http.StatusNotFound},
		{Validation("bad rate"), http.StatusBadRequest},
		{Conflict("already approved"), http.StatusConflict},
		{Forbidden("nope"), http.StatusForbidden},
		{Unauthorized("login"), http.StatusUnauthorized},
		{Collaborator("geocoder down", errors.New("timeout")), http.StatusBadGateway},
		{Internal("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := tc.err.HTTPStatus(); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.err.Kind, tc.want, got)
		}
	}
}

func TestGetKindFollowsWrapping(t *testing.T) {
	base := Conflict("offer already approved")
	wrapped := fmt.Errorf("approve offer: %w", base)

	if GetKind(wrapped) != KindConflict {
		t.Fatalf("expected conflict kind through wrapping, got %s", GetKind(wrapped))
	}
	if !Is(wrapped, KindConflict) {
		t.Fatal("expected Is to match wrapped conflict")
	}
	if GetKind(errors.New("plain")) != KindUnknown {
		t.Fatal("expected unknown kind for plain error")
	}
}

func TestErrorMessageIncludesOpAndCause(t *testing.T) {
	err := Wrap(KindCollaborator, "distance lookup failed", errors.New("dial tcp")).WithOp("maps.Distance")
	if got := err.Error(); got != "maps.Distance: distance lookup failed: dial tcp" {
		t.Fatalf("unexpected message %q", got)
	}
}
