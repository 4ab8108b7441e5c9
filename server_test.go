package kvtree

import (
	"testing"
)

func TestNewService_DefaultsWithoutPanicking(t *testing.T) {
	svc := NewService(Options{})
	if svc == nil {
		t.Fatal("NewService(Options{}) should not return nil")
	}
	if got := svc.String(); got == "" {
		t.Fatal("String() should not be empty")
	}
}

func TestAddTarget_RejectsNilBackend(t *testing.T) {
	svc := NewService(Options{})
	err := svc.AddTarget(TargetParams{Iface: "eth0", Major: 1, Minor: 0})
	if err == nil {
		t.Fatal("AddTarget with a nil Backend should fail")
	}
	if !IsCode(err, ErrCodeInvalid) {
		t.Fatalf("err = %v, want ErrCodeInvalid", err)
	}
}

func TestRemoveTarget_NotFound(t *testing.T) {
	svc := NewService(Options{})
	err := svc.RemoveTarget("eth0", 1, 0)
	if !IsCode(err, ErrCodeNotFound) {
		t.Fatalf("err = %v, want ErrCodeNotFound", err)
	}
}

func TestDelTarget_NotFound(t *testing.T) {
	svc := NewService(Options{})
	err := svc.DelTarget("eth0", 1, 0)
	if !IsCode(err, ErrCodeNotFound) {
		t.Fatalf("err = %v, want ErrCodeNotFound", err)
	}
}

func TestTarget_MissingReturnsNil(t *testing.T) {
	svc := NewService(Options{})
	if svc.Target("eth0", 1, 0) != nil {
		t.Fatal("Target on an empty registry should return nil")
	}
}

func TestTargets_EmptyByDefault(t *testing.T) {
	svc := NewService(Options{})
	if len(svc.Targets()) != 0 {
		t.Fatal("a freshly constructed Service should have no targets")
	}
}
