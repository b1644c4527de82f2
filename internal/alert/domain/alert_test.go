package domain

import "testing"

func TestUnresolved(t *testing.T) {
	in := []Alert{{ID: 1}, {ID: 2, Resolved: true}, {ID: 3}}
	got := Unresolved(in)
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Errorf("Unresolved = %+v, want ids [1 3]", got)
	}
}
