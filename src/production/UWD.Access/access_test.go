package access

import (
	"reflect"
	"testing"
)

func TestDefaultDeny(t *testing.T) {
	s := NewStore()

	if s.IsAuthorized("alice", "HR001", View) {
		t.Error("user without grants must not have View")
	}
	if s.IsAuthorized("alice", "HR001", Mutate) {
		t.Error("user without grants must not have Mutate")
	}
	if got := s.ListGranted("alice"); len(got) != 0 {
		t.Errorf("expected empty grant list, got %v", got)
	}
}

func TestGrantGivesViewAndMutate(t *testing.T) {
	s := NewStore()
	s.Grant("alice", []string{"HR001", "TEMP001"})

	for _, id := range []string{"HR001", "TEMP001"} {
		if !s.IsAuthorized("alice", id, View) {
			t.Errorf("expected View on %s", id)
		}
		if !s.IsAuthorized("alice", id, Mutate) {
			t.Errorf("expected Mutate on %s", id)
		}
	}
	if s.IsAuthorized("alice", "MOT001", View) {
		t.Error("grant must not leak to ungranted sensors")
	}
}

func TestGrantViewWithholdsMutate(t *testing.T) {
	s := NewStore()
	s.GrantView("bob", []string{"HR001"})

	if !s.IsAuthorized("bob", "HR001", View) {
		t.Error("expected View")
	}
	if s.IsAuthorized("bob", "HR001", Mutate) {
		t.Error("View-only grant must not confer Mutate")
	}
}

func TestRevoke(t *testing.T) {
	s := NewStore()
	s.Grant("alice", []string{"HR001", "TEMP001"})
	s.Revoke("alice", []string{"HR001"})

	if s.IsAuthorized("alice", "HR001", View) {
		t.Error("revoked sensor must not be viewable")
	}
	if !s.IsAuthorized("alice", "TEMP001", Mutate) {
		t.Error("revoke must not touch other grants")
	}

	// Revoking for an unknown user is a no-op.
	s.Revoke("carol", []string{"HR001"})
}

func TestGrantsAreAdditive(t *testing.T) {
	s := NewStore()
	s.Grant("alice", []string{"HR001"})
	s.Grant("alice", []string{"TEMP001"})

	want := []string{"HR001", "TEMP001"}
	if got := s.ListGranted("alice"); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestAdminBypassesSensorChecks(t *testing.T) {
	s := NewStore()
	s.MarkAdmin("root")

	if !s.IsAuthorized("root", "anything", View) {
		t.Error("admin must pass View checks")
	}
	if !s.IsAuthorized("root", "anything", Mutate) {
		t.Error("admin must pass Mutate checks")
	}
	if !s.IsAdmin("root") {
		t.Error("expected IsAdmin")
	}
	if s.IsAdmin("alice") {
		t.Error("regular users are not admins")
	}
}
