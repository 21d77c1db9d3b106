package featured

import (
	"encoding/json"
	"slices"
	"testing"
)

func TestToggle(t *testing.T) {
	s := New()
	if !s.Toggle(7) {
		t.Fatal("first toggle should mark")
	}
	if !s.Has(7) {
		t.Fatal("expected 7 marked")
	}
	if s.Toggle(7) {
		t.Fatal("second toggle should unmark")
	}
	if s.Has(7) || s.Len() != 0 {
		t.Fatal("expected empty set")
	}
}

func TestIDsSortedIncludingNegatives(t *testing.T) {
	s := New(5, -3, 100, 0, -100, 5)
	want := []int64{-100, -3, 0, 5, 100}
	if got := s.IDs(); !slices.Equal(got, want) {
		t.Errorf("IDs = %v, want %v", got, want)
	}
	if s.Len() != 5 {
		t.Errorf("Len = %d, want 5", s.Len())
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := New(1, 2)
	c := s.Clone()
	c.Add(3)
	s.Remove(1)
	if !slices.Equal(s.IDs(), []int64{2}) || !slices.Equal(c.IDs(), []int64{1, 2, 3}) {
		t.Errorf("clone shares state: %v %v", s.IDs(), c.IDs())
	}
}

func TestJSON(t *testing.T) {
	s := New(3, 1, 2)
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[1,2,3]" {
		t.Errorf("Marshal = %s", data)
	}

	var back Set
	if err := json.Unmarshal([]byte("[9, -1, 9]"), &back); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(back.IDs(), []int64{-1, 9}) {
		t.Errorf("Unmarshal = %v", back.IDs())
	}

	if err := json.Unmarshal([]byte(`{"nope":1}`), &back); err == nil {
		t.Error("expected error for non-array input")
	}
}
