package core

import (
	"errors"
	"testing"
	"time"
)

func TestDomainError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("root")
	err := (&DomainError{
		Category: ErrCatConnection,
		Code:     "CODE",
		Message:  "message",
	}).WithCause(cause)

	if err.Unwrap() != cause {
		t.Fatalf("expected cause to be unwrapped")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to match cause")
	}

	match := &DomainError{Category: ErrCatConnection, Code: "CODE"}
	if !errors.Is(err, match) {
		t.Fatalf("expected errors.Is to match category and code")
	}
}

func TestDomainError_WithDetail(t *testing.T) {
	err := ErrCollection(CodeCommandFailed, "command exited non-zero")
	err.WithDetail("exit_code", 1)
	if err.Details == nil || err.Details["exit_code"] != 1 {
		t.Fatalf("expected details to be set")
	}
}

func TestErrorFactories(t *testing.T) {
	if !ErrConnection("host", "unreachable").Retryable {
		t.Fatalf("connection errors should be retryable")
	}
	if ErrCommandTimeout("sleep 99", time.Second).Retryable {
		t.Fatalf("command timeouts are not retried by the engine")
	}
	if ErrCollection(CodeParseFailed, "m").Retryable {
		t.Fatalf("collection errors should not be retryable")
	}
	if ErrInvalidArgs(CodeUnknownArgs, "m").Retryable {
		t.Fatalf("invalid args should not be retryable")
	}
	if ErrUnsupportedPlatform("dmesg", OSFamilyWindows).Retryable {
		t.Fatalf("platform errors should not be retryable")
	}
	if ErrState(CodeInvalidTransition, "m").Retryable {
		t.Fatalf("state errors should not be retryable")
	}
}

func TestErrCommandTimeout_Details(t *testing.T) {
	err := ErrCommandTimeout("dmesg", 5*time.Second)
	if err.Code != CodeCommandTimeout {
		t.Fatalf("unexpected code %s", err.Code)
	}
	if err.Details["command"] != "dmesg" {
		t.Fatalf("expected command detail")
	}
	if err.Details["timeout"] != "5s" {
		t.Fatalf("expected timeout detail, got %v", err.Details["timeout"])
	}
}

func TestErrPluginNotFound(t *testing.T) {
	err := ErrPluginNotFound("ghost")
	if err.Code != CodePluginNotFound {
		t.Fatalf("unexpected code %s", err.Code)
	}
	if !IsCategory(err, ErrCatNotFound) {
		t.Fatalf("expected not_found category")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(ErrConnection("host", "down")) {
		t.Fatalf("expected retryable error")
	}
	if IsRetryable(errors.New("plain")) {
		t.Fatalf("expected non-domain error to be non-retryable")
	}
}

func TestGetCategory(t *testing.T) {
	if GetCategory(ErrCommandTimeout("cmd", time.Second)) != ErrCatTimeout {
		t.Fatalf("expected timeout category")
	}
	if GetCategory(errors.New("plain")) != ErrCatInternal {
		t.Fatalf("expected internal category for non-domain error")
	}
	if !IsCategory(ErrCollection(CodeParseFailed, "m"), ErrCatCollection) {
		t.Fatalf("expected category match")
	}
}

func TestIsSkip(t *testing.T) {
	if !IsSkip(ErrUnsupportedPlatform("dmesg", OSFamilyWindows)) {
		t.Fatalf("expected platform error to mean skip")
	}
	if IsSkip(ErrCollection(CodeCommandFailed, "m")) {
		t.Fatalf("collection errors are failures, not skips")
	}
	if IsSkip(errors.New("plain")) {
		t.Fatalf("plain errors are not skips")
	}
}
