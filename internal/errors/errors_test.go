package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestVellumError_Error(t *testing.T) {
	err := &VellumError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "view not found: dash",
	}

	expected := "NOT_FOUND: view not found: dash"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("content is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "content is required" {
		t.Errorf("Message = %q, want %q", err.Message, "content is required")
	}
}

func TestNewInvalidName(t *testing.T) {
	err := NewInvalidName("../etc")

	if err.Code != ErrInvalidName {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidName)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Details["name"] != "../etc" {
		t.Errorf("Details[name] = %v, want %q", err.Details["name"], "../etc")
	}
}

func TestNewInvalidVersionID(t *testing.T) {
	err := NewInvalidVersionID("a/b")

	if err.Code != ErrInvalidVersionID {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidVersionID)
	}
	if err.Details["version_id"] != "a/b" {
		t.Errorf("Details[version_id] = %v, want %q", err.Details["version_id"], "a/b")
	}
}

func TestNewPathEscape(t *testing.T) {
	err := NewPathEscape("/tmp/other", "/tmp/root")

	if err.Code != ErrPathEscape {
		t.Errorf("Code = %q, want %q", err.Code, ErrPathEscape)
	}
	if err.Details["path"] != "/tmp/other" || err.Details["root"] != "/tmp/root" {
		t.Errorf("Details = %v, want path and root", err.Details)
	}
}

func TestNewForbidden(t *testing.T) {
	err := NewForbidden("cross-origin request rejected")

	if err.Code != ErrForbidden {
		t.Errorf("Code = %q, want %q", err.Code, ErrForbidden)
	}
	if err.Status != 403 {
		t.Errorf("Status = %d, want 403", err.Status)
	}
}

func TestNewVersionNotFound(t *testing.T) {
	err := NewVersionNotFound("dash", "20240115-103000")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["name"] != "dash" {
		t.Errorf("Details[name] = %v, want %q", err.Details["name"], "dash")
	}
	if err.Details["version_id"] != "20240115-103000" {
		t.Errorf("Details[version_id] = %v, want %q", err.Details["version_id"], "20240115-103000")
	}
}

func TestNewDocumentTooLarge(t *testing.T) {
	err := NewDocumentTooLarge(1024, 2048)

	if err.Code != ErrDocumentTooLarge {
		t.Errorf("Code = %q, want %q", err.Code, ErrDocumentTooLarge)
	}
	if err.Status != 413 {
		t.Errorf("Status = %d, want 413", err.Status)
	}
	if err.Details["max_bytes"] != 1024 {
		t.Errorf("Details[max_bytes] = %v, want 1024", err.Details["max_bytes"])
	}
	if err.Details["actual_bytes"] != 2048 {
		t.Errorf("Details[actual_bytes] = %v, want 2048", err.Details["actual_bytes"])
	}
}

func TestNewInvalidDocument(t *testing.T) {
	problems := []string{"missing root", "missing elements"}
	err := NewInvalidDocument(problems)

	if err.Code != ErrInvalidDocument {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidDocument)
	}
	if err.Status != 422 {
		t.Errorf("Status = %d, want 422", err.Status)
	}
	if got, ok := err.Details["problems"].([]string); !ok || len(got) != 2 {
		t.Errorf("Details[problems] = %v, want %v", err.Details["problems"], problems)
	}
}

func TestNewInternal(t *testing.T) {
	t.Run("with error", func(t *testing.T) {
		originalErr := fmt.Errorf("disk full")
		err := NewInternal(originalErr)

		if err.Code != ErrInternal {
			t.Errorf("Code = %q, want %q", err.Code, ErrInternal)
		}
		if err.Status != 500 {
			t.Errorf("Status = %d, want 500", err.Status)
		}
		if err.Message != "an internal error occurred" {
			t.Errorf("Message = %q, want %q", err.Message, "an internal error occurred")
		}
		if err.Details["internal_error"] != "disk full" {
			t.Errorf("Details[internal_error] = %q, want %q", err.Details["internal_error"], "disk full")
		}
		if !stderrors.Is(err, originalErr) {
			t.Error("NewInternal should wrap the original error")
		}
	})

	t.Run("with nil", func(t *testing.T) {
		err := NewInternal(nil)

		if err.Details == nil {
			t.Error("Details should not be nil")
		}
		if err.Unwrap() != nil {
			t.Error("Unwrap() should be nil")
		}
	})

	t.Run("wrapped fs error stays matchable", func(t *testing.T) {
		err := NewInternal(fmt.Errorf("write meta: %w", fs.ErrPermission))
		if !stderrors.Is(err, fs.ErrPermission) {
			t.Error("errors.Is(err, fs.ErrPermission) = false, want true")
		}
	})
}

func TestIs(t *testing.T) {
	t.Run("matching code", func(t *testing.T) {
		err := NewViewNotFound("dash")
		if !Is(err, ErrNotFound) {
			t.Error("Is() = false, want true")
		}
	})

	t.Run("non-matching code", func(t *testing.T) {
		err := NewViewNotFound("dash")
		if Is(err, ErrConflict) {
			t.Error("Is() = true, want false")
		}
	})

	t.Run("non-VellumError", func(t *testing.T) {
		err := fmt.Errorf("plain error")
		if Is(err, ErrNotFound) {
			t.Error("Is() = true, want false for non-VellumError")
		}
	})

	t.Run("wrapped VellumError", func(t *testing.T) {
		wrapped := fmt.Errorf("line 3: %w", NewInvalidName("-x"))
		if !Is(wrapped, ErrInvalidName) {
			t.Error("Is() = false, want true for wrapped VellumError")
		}
		vErr, ok := As(wrapped)
		if !ok || vErr.Code != ErrInvalidName {
			t.Errorf("As() = %v, %v; want INVALID_NAME", vErr, ok)
		}
	})
}
