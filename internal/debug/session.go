package debug

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/google/go-dap"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rustlens/rustlens/internal/providers"
	"github.com/rustlens/rustlens/internal/value"
)

// Session tracks one debugging session: the process facade, the provider
// dispatcher, and the table mapping DAP variable references to live
// synthetic providers. References are valid between stops; a stop event
// refreshes every live provider so stale layouts are never served.
type Session struct {
	ID string

	proc       value.Process
	dispatcher *providers.Dispatcher
	logger     *zap.Logger

	mu      sync.Mutex
	nextRef int
	refs    map[int]providers.Provider
}

// NewSession returns a session over the given process facade. A nil
// logger disables tracing.
func NewSession(proc value.Process, dispatcher *providers.Dispatcher, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		ID:         uuid.NewString(),
		proc:       proc,
		dispatcher: dispatcher,
		logger:     logger,
		nextRef:    0,
		refs:       make(map[int]providers.Provider),
	}
}

// Process returns the session's process facade.
func (s *Session) Process() value.Process {
	return s.proc
}

// Render produces the DAP view of a value: the summary text and, when
// the value has synthetic children, a variables reference resolvable via
// Children. The fallback text is shown when no special summary applies.
func (s *Session) Render(v *value.Value, fallback string) dap.Variable {
	text := s.dispatcher.Summary(v)
	if text == "" {
		text = fallback
	}
	if text == "" {
		text = renderScalar(v)
	}

	ref := 0
	provider := s.dispatcher.ProviderFor(v)
	if provider.HasChildren() {
		ref = s.addRef(provider)
	}

	return dap.Variable{
		Name:               v.Name(),
		Value:              text,
		Type:               v.Type().Name,
		VariablesReference: ref,
	}
}

// Children expands a variables reference into the provider's synthetic
// child tree, each child rendered recursively.
func (s *Session) Children(ref int) ([]dap.Variable, error) {
	s.mu.Lock()
	provider, ok := s.refs[ref]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown variables reference %d", ref)
	}

	n := provider.NumChildren()
	children := make([]dap.Variable, 0, n)
	for i := 0; i < n; i++ {
		child, err := provider.ChildAt(i)
		if err != nil {
			s.logger.Debug("child expansion failed",
				zap.Int("ref", ref), zap.Int("index", i), zap.Error(err))
			children = append(children, dap.Variable{
				Name:  fmt.Sprintf("[%d]", i),
				Value: fmt.Sprintf("<error: %v>", err),
			})
			continue
		}
		children = append(children, s.Render(child, ""))
	}
	return children, nil
}

// Refresh re-resolves every live provider after the debuggee has run.
// Providers whose layout no longer decodes fail closed on their own; the
// references stay valid so the host can re-expand the same nodes.
func (s *Session) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ref, provider := range s.refs {
		if err := provider.Update(); err != nil {
			s.logger.Debug("provider refresh failed",
				zap.Int("ref", ref), zap.Error(err))
		}
	}
}

// Reset drops all variable references, typically on disconnect.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs = make(map[int]providers.Provider)
}

// renderScalar formats base and pointer values so leaf children are
// readable without another round trip. Aggregates show their type name;
// the child tree carries the detail.
func renderScalar(v *value.Value) string {
	switch v.Type().Kind {
	case value.KindBase:
		if v.Type().Signed {
			n, err := v.Int()
			if err != nil {
				return fmt.Sprintf("<error: %v>", err)
			}
			return strconv.FormatInt(n, 10)
		}
		u, err := v.Uint()
		if err != nil {
			return fmt.Sprintf("<error: %v>", err)
		}
		return strconv.FormatUint(u, 10)
	case value.KindPointer:
		u, err := v.Uint()
		if err != nil {
			return fmt.Sprintf("<error: %v>", err)
		}
		return fmt.Sprintf("%#x", u)
	default:
		return v.Type().Name
	}
}

func (s *Session) addRef(p providers.Provider) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRef++
	ref := s.nextRef
	s.refs[ref] = p
	return ref
}
