package errx_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/vibevault/userservice/pkg/errx"
)

var testRegistry = errx.NewRegistry("TEST")

var codeNotFound = testRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Thing not found")

func TestRegistry_CodesArePrefixed(t *testing.T) {
	e := testRegistry.New(codeNotFound)
	if e.Code != "TEST_NOT_FOUND" {
		t.Fatalf("expected prefixed code, got %q", e.Code)
	}
	if e.HTTPStatus != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", e.HTTPStatus)
	}
}

func TestIsCode(t *testing.T) {
	e := testRegistry.New(codeNotFound).WithDetail("id", "42")
	if !errx.IsCode(e, codeNotFound) {
		t.Fatal("expected IsCode to match")
	}
	if errx.IsCode(errors.New("plain"), codeNotFound) {
		t.Fatal("plain errors must not match a code")
	}
}

func TestWrap_PreservesCode(t *testing.T) {
	inner := testRegistry.New(codeNotFound)
	wrapped := errx.Wrap(inner, "while loading the thing", errx.TypeInternal)

	if !errx.IsCode(wrapped, codeNotFound) {
		t.Fatalf("wrapping lost the code: %v", wrapped)
	}
	if wrapped.HTTPStatus != http.StatusNotFound {
		t.Fatalf("wrapping lost the status: %d", wrapped.HTTPStatus)
	}
	if !errors.Is(wrapped, inner) {
		t.Fatal("wrapped error does not unwrap to the original")
	}
}

func TestWrap_PlainError(t *testing.T) {
	wrapped := errx.Wrap(errors.New("boom"), "backend failed", errx.TypeInternal)
	if wrapped.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", wrapped.HTTPStatus)
	}
	if wrapped.Code != string(errx.TypeInternal) {
		t.Fatalf("expected generic code, got %q", wrapped.Code)
	}
}

func TestMarshalJSON_IncludesCode(t *testing.T) {
	e := testRegistry.New(codeNotFound).WithCause(errors.New("secret internals"))
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if body["code"] != "TEST_NOT_FOUND" {
		t.Fatalf("expected code in body, got %v", body)
	}
}
