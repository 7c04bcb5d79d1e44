package perr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfUnwraps(t *testing.T) {
	base := New(KindParse, "catalog", "bad TLE checksum")
	wrapped := fmt.Errorf("loading line 42: %w", base)
	if got := KindOf(wrapped); got != KindParse {
		t.Fatalf("expected KindParse, got %v", got)
	}
}

func TestKindOfNonTyped(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != KindUnknown {
		t.Fatalf("expected KindUnknown, got %v", got)
	}
}

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := errors.New("disk full")
	e := Wrap(KindConfig, "orchestrator", "failed to write artifact", cause)
	msg := e.Error()
	if msg == "" {
		t.Fatal("expected non-empty message")
	}
	if !errors.Is(e, cause) {
		t.Fatal("expected Is to find wrapped cause")
	}
}

func TestFatalKinds(t *testing.T) {
	cases := map[Kind]bool{
		KindConfig:            true,
		KindInvariantFailure:  true,
		KindStageTimeout:      true,
		KindParse:             false,
		KindConstraintViolation: false,
	}
	for k, want := range cases {
		if got := Fatal(k); got != want {
			t.Fatalf("Fatal(%v) = %v, want %v", k, got, want)
		}
	}
}
