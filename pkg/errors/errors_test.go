package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"
)

func TestErrorIncludesInternal(t *testing.T) {
	internal := stdErrors.New("boom")
	err := Wrap(internal, "failed")

	if err.Error() != "failed: boom" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestWithInternalCopies(t *testing.T) {
	base := New("TEST", "test", 400)
	with := base.WithInternal(stdErrors.New("oops"))

	if with == base {
		t.Fatal("expected WithInternal to return a copy")
	}

	if base.Internal != nil {
		t.Fatal("expected original error to remain unchanged")
	}

	if with.Internal == nil {
		t.Fatal("expected internal error to be set")
	}
}

func TestWithDetailsCopies(t *testing.T) {
	err := ErrValidation.WithDetails("email must be a valid email address")

	if err == ErrValidation {
		t.Fatal("expected WithDetails to return a copy")
	}

	if len(ErrValidation.Details) != 0 {
		t.Fatal("expected shared sentinel to remain without details")
	}

	if len(err.Details) != 1 {
		t.Fatalf("expected one detail, got %d", len(err.Details))
	}
}

func TestFromError(t *testing.T) {
	appErr := ErrNotFound
	if out := FromError(appErr); out != appErr {
		t.Fatal("expected FromError to return the same AppError instance")
	}

	raw := stdErrors.New("raw")
	out := FromError(raw)
	if out.Code != ErrInternalServer.Code {
		t.Fatalf("expected internal server code, got %s", out.Code)
	}
	if out.Internal == nil {
		t.Fatal("expected internal error to be attached")
	}
}

func TestAuthTaxonomyStatusCodes(t *testing.T) {
	cases := map[*AppError]int{
		ErrValidation:                http.StatusBadRequest,
		ErrDuplicateAccount:          http.StatusBadRequest,
		ErrInvalidCredentials:        http.StatusUnauthorized,
		ErrAccountLocked:             http.StatusUnauthorized,
		ErrInvalidToken:              http.StatusBadRequest,
		ErrAuthenticationRequired:    http.StatusUnauthorized,
		ErrEmailVerificationRequired: http.StatusForbidden,
		ErrRateLimited:               http.StatusTooManyRequests,
	}

	for err, status := range cases {
		if err.StatusCode != status {
			t.Fatalf("%s: expected status %d, got %d", err.Code, status, err.StatusCode)
		}
	}
}
