package errs

import (
	"errors"
	"strings"
	"testing"
)

func TestIsMatchesKind(t *testing.T) {
	err := BadConfigf("engine.New", "bad latency %d", -1)
	if !Is(err, BadConfig) {
		t.Fatal("expected BadConfig kind")
	}
	if Is(err, OutOfBounds) {
		t.Fatal("did not expect OutOfBounds kind")
	}
}

func TestWrappedErrorUnwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := New(OutOfBounds, "store.Load", "address out of range", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to find the wrapped cause")
	}
}

func TestErrorMessageIncludesOperation(t *testing.T) {
	err := BadProgramf("asm.Assemble", "unknown mnemonic %q", "FOO")
	msg := err.Error()
	if !strings.Contains(msg, "asm.Assemble") {
		t.Fatalf("error message %q does not include the operation", msg)
	}
}
