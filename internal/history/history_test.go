// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"fmt"
	"testing"
)

func TestNew_FiltersAndCaps(t *testing.T) {
	seed := []string{"", "  "}
	for i := 0; i < 30; i++ {
		seed = append(seed, fmt.Sprintf("p%d", i))
	}
	n := New(seed)
	if got := len(n.Entries()); got != MaxEntries {
		t.Fatalf("len = %d, want %d", got, MaxEntries)
	}
	if n.Entries()[0] != "p0" {
		t.Errorf("first entry = %q, want p0", n.Entries()[0])
	}
	if n.Cursor() != -1 {
		t.Errorf("cursor = %d, want -1", n.Cursor())
	}
}

func TestRecordSubmission_MostRecentFirstAndCap(t *testing.T) {
	n := New(nil)
	for i := 0; i < 25; i++ {
		n.RecordSubmission(fmt.Sprintf("p%d", i))
	}
	e := n.Entries()
	if len(e) != MaxEntries {
		t.Fatalf("len = %d, want %d", len(e), MaxEntries)
	}
	if e[0] != "p24" || e[MaxEntries-1] != "p5" {
		t.Errorf("entries = %q..%q, want p24..p5", e[0], e[MaxEntries-1])
	}
}

func TestRecordSubmission_IgnoresBlank(t *testing.T) {
	n := New(nil)
	n.RecordSubmission("   ")
	if len(n.Entries()) != 0 {
		t.Error("blank submission recorded")
	}
}

func TestStepBackForward_Sequence(t *testing.T) {
	// History [c, b, a] with the draft "dr".
	n := New([]string{"c", "b", "a"})

	steps := []struct {
		back   bool
		want   string
		ok     bool
		cursor int
	}{
		{true, "c", true, 0},
		{true, "b", true, 1},
		{true, "a", true, 2},
		{true, "a", true, 2}, // clamps at oldest
		{false, "b", true, 1},
		{false, "c", true, 0},
		{false, "dr", true, -1},
		{false, "dr", false, -1}, // clamps at draft
	}
	for i, s := range steps {
		var got string
		var ok bool
		if s.back {
			got, ok = n.StepBack("dr")
		} else {
			got, ok = n.StepForward()
		}
		if got != s.want || ok != s.ok || n.Cursor() != s.cursor {
			t.Errorf("step %d: got (%q, %v, cursor %d), want (%q, %v, cursor %d)",
				i, got, ok, n.Cursor(), s.want, s.ok, s.cursor)
		}
	}
}

func TestStepBack_DraftCapturedOnlyFromLive(t *testing.T) {
	n := New([]string{"b", "a"})
	n.StepBack("first draft")
	n.StepBack("ignored")
	n.StepForward()
	got, _ := n.StepForward()
	if got != "first draft" {
		t.Errorf("restored draft = %q, want %q", got, "first draft")
	}
}

func TestStepBack_Empty(t *testing.T) {
	n := New(nil)
	got, ok := n.StepBack("typing")
	if ok || got != "typing" || n.Cursor() != -1 {
		t.Errorf("StepBack on empty = (%q, %v, %d)", got, ok, n.Cursor())
	}
}

func TestResetOnEdit(t *testing.T) {
	n := New([]string{"a"})
	n.StepBack("")
	n.ResetOnEdit()
	if n.Cursor() != -1 {
		t.Errorf("cursor = %d after edit, want -1", n.Cursor())
	}
}

func TestEntries_ReturnsCopy(t *testing.T) {
	n := New([]string{"a"})
	e := n.Entries()
	e[0] = "mutated"
	if n.Entries()[0] != "a" {
		t.Error("Entries leaked internal slice")
	}
}
