package bterr

import (
	"errors"
	"testing"
)

func TestNewWithContext(t *testing.T) {
	err := New(InvalidInput, "bad bar series", "index", 3, "reason", "high below low")
	if err.Kind != InvalidInput {
		t.Errorf("Kind = %v, want %v", err.Kind, InvalidInput)
	}
	if err.Context["index"] != 3 {
		t.Errorf("Context[index] = %v, want 3", err.Context["index"])
	}
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("underlying failure")
	err := Wrap(ConfigConflict, "execution config rejected", cause)

	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to find the wrapped cause")
	}
	if err.Error() == "" {
		t.Fatal("Error() should not be empty")
	}
}

func TestIs(t *testing.T) {
	err := New(InsufficientData, "no bars")
	if !Is(err, InsufficientData) {
		t.Fatal("Is should match the error's own kind")
	}
	if Is(err, ConfigConflict) {
		t.Fatal("Is should not match a different kind")
	}
	if Is(errors.New("plain"), InsufficientData) {
		t.Fatal("Is should not match a non-*Error")
	}
}
