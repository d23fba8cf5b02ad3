package refract

import (
	"testing"
	"time"
)

func TestKeyState(t *testing.T) {
	field := KeyState.Field("active")
	if field.Key().Name() != "state" {
		t.Errorf("expected key 'state', got %q", field.Key().Name())
	}
}

func TestKeyOldState(t *testing.T) {
	field := KeyOldState.Field("pending")
	if field.Key().Name() != "old_state" {
		t.Errorf("expected key 'old_state', got %q", field.Key().Name())
	}
}

func TestKeyNewState(t *testing.T) {
	field := KeyNewState.Field("active")
	if field.Key().Name() != "new_state" {
		t.Errorf("expected key 'new_state', got %q", field.Key().Name())
	}
}

func TestKeyError(t *testing.T) {
	field := KeyError.Field("something went wrong")
	if field.Key().Name() != "error" {
		t.Errorf("expected key 'error', got %q", field.Key().Name())
	}
}

func TestKeyDebounce(t *testing.T) {
	field := KeyDebounce.Field(100 * time.Millisecond)
	if field.Key().Name() != "debounce" {
		t.Errorf("expected key 'debounce', got %q", field.Key().Name())
	}
}

func TestKeyRevision(t *testing.T) {
	field := KeyRevision.Field(7)
	if field.Key().Name() != "revision" {
		t.Errorf("expected key 'revision', got %q", field.Key().Name())
	}
}

func TestKeyDeliveries(t *testing.T) {
	field := KeyDeliveries.Field(1)
	if field.Key().Name() != "deliveries" {
		t.Errorf("expected key 'deliveries', got %q", field.Key().Name())
	}
}

func TestKeyRootPath(t *testing.T) {
	field := KeyRootPath.Field("/repo")
	if field.Key().Name() != "root_path" {
		t.Errorf("expected key 'root_path', got %q", field.Key().Name())
	}
}

func TestKeyProjectPath(t *testing.T) {
	field := KeyProjectPath.Field("/repo/app")
	if field.Key().Name() != "project_path" {
		t.Errorf("expected key 'project_path', got %q", field.Key().Name())
	}
}
