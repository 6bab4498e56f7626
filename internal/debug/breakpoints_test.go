package debug

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakpointRegistry_ReplaceReturnsDisplaced(t *testing.T) {
	r := NewBreakpointRegistry()

	first := []*Breakpoint{
		{ID: 1, File: "src/main.rs", Line: 10, Verified: true},
		{ID: 2, File: "src/main.rs", Line: 20, Verified: true},
	}
	displaced := r.Replace("src/main.rs", first)
	assert.Empty(t, displaced)
	assert.Len(t, r.ForFile("src/main.rs"), 2)

	second := []*Breakpoint{
		{ID: 3, File: "src/main.rs", Line: 20, Verified: true},
	}
	displaced = r.Replace("src/main.rs", second)
	require.Len(t, displaced, 2)
	assert.Equal(t, 1, displaced[0].ID)

	got := r.ForFile("src/main.rs")
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].ID)
}

func TestBreakpointRegistry_ReplaceWithEmptyClearsFile(t *testing.T) {
	r := NewBreakpointRegistry()
	r.Replace("src/lib.rs", []*Breakpoint{{ID: 1, File: "src/lib.rs", Line: 5}})

	displaced := r.Replace("src/lib.rs", nil)
	require.Len(t, displaced, 1)
	assert.Empty(t, r.ForFile("src/lib.rs"))
	assert.Empty(t, r.List())
}

func TestBreakpointRegistry_ListSpansFiles(t *testing.T) {
	r := NewBreakpointRegistry()
	r.Replace("a.rs", []*Breakpoint{{ID: 1, File: "a.rs", Line: 1}})
	r.Replace("b.rs", []*Breakpoint{{ID: 2, File: "b.rs", Line: 2}, {ID: 3, File: "b.rs", Line: 3}})

	assert.Len(t, r.List(), 3)
	assert.Len(t, r.ForFile("b.rs"), 2)
}

func TestBreakpointRegistry_Clear(t *testing.T) {
	r := NewBreakpointRegistry()
	r.Replace("a.rs", []*Breakpoint{{ID: 1, File: "a.rs", Line: 1}})
	r.Replace("b.rs", []*Breakpoint{{ID: 2, File: "b.rs", Line: 2}})

	cleared := r.Clear()
	assert.Len(t, cleared, 2)
	assert.Empty(t, r.List())
}

func TestBreakpoint_String(t *testing.T) {
	bp := &Breakpoint{ID: 7, File: "src/main.rs", Line: 42, Verified: true, Condition: "x > 3"}
	s := bp.String()
	assert.Contains(t, s, "Breakpoint 7")
	assert.Contains(t, s, "src/main.rs:42")
	assert.Contains(t, s, "verified")
	assert.Contains(t, s, "x > 3")

	unverified := &Breakpoint{ID: 8, File: "src/lib.rs", Line: 1}
	assert.Contains(t, unverified.String(), "unverified")
}
