package debug

import (
	"fmt"
	"sync"
)

// Breakpoint is one breakpoint as known to both the client and Delve.
type Breakpoint struct {
	ID        int
	File      string
	Line      int
	Condition string
	Verified  bool
}

// String returns a short description of the breakpoint.
func (bp *Breakpoint) String() string {
	verified := "unverified"
	if bp.Verified {
		verified = "verified"
	}
	condition := ""
	if bp.Condition != "" {
		condition = fmt.Sprintf(" [condition: %s]", bp.Condition)
	}
	return fmt.Sprintf("Breakpoint %d: %s:%d (%s)%s",
		bp.ID, bp.File, bp.Line, verified, condition)
}

// BreakpointRegistry tracks the breakpoints set per source file. The DAP
// setBreakpoints request replaces a file's whole set, so the registry's
// core operation is an atomic swap returning the displaced entries for
// the caller to clear in the backend.
type BreakpointRegistry struct {
	mu     sync.RWMutex
	byFile map[string][]*Breakpoint
}

// NewBreakpointRegistry creates an empty registry.
func NewBreakpointRegistry() *BreakpointRegistry {
	return &BreakpointRegistry{
		byFile: make(map[string][]*Breakpoint),
	}
}

// Replace swaps the breakpoints for a file and returns the previous set.
func (r *BreakpointRegistry) Replace(file string, bps []*Breakpoint) []*Breakpoint {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.byFile[file]
	if len(bps) == 0 {
		delete(r.byFile, file)
	} else {
		r.byFile[file] = bps
	}
	return old
}

// ForFile returns the breakpoints currently set in a file.
func (r *BreakpointRegistry) ForFile(file string) []*Breakpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bps := r.byFile[file]
	out := make([]*Breakpoint, len(bps))
	copy(out, bps)
	return out
}

// List returns all breakpoints across all files.
func (r *BreakpointRegistry) List() []*Breakpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Breakpoint
	for _, bps := range r.byFile {
		out = append(out, bps...)
	}
	return out
}

// Clear empties the registry and returns everything it held.
func (r *BreakpointRegistry) Clear() []*Breakpoint {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Breakpoint
	for _, bps := range r.byFile {
		out = append(out, bps...)
	}
	r.byFile = make(map[string][]*Breakpoint)
	return out
}
