package debug

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/google/go-dap"
	"go.uber.org/zap"

	"github.com/rustlens/rustlens/internal/providers"
	"github.com/rustlens/rustlens/internal/value"
)

// scopeRefBase offsets frame-scope variable references so they can never
// collide with the session's provider references.
const scopeRefBase = 1 << 30

// Adapter implements the Debug Adapter Protocol server side for one
// client connection. Variables flow through the provider dispatcher, so
// Rust containers show their decoded contents instead of raw fields.
type Adapter struct {
	conn        io.ReadWriteCloser
	delve       *DelveClient
	types       *TypeTable
	session     *Session
	breakpoints *BreakpointRegistry
	logger      *zap.Logger
	seq         int
	seqMutex    sync.Mutex
}

// LaunchArguments is the launch request configuration.
type LaunchArguments struct {
	Program string `json:"program"`
	// TypeManifest optionally points at a type manifest to merge into
	// the adapter's table before the program starts.
	TypeManifest string `json:"typeManifest,omitempty"`
}

// AttachArguments is the attach request configuration.
type AttachArguments struct {
	ProcessID    int    `json:"processId"`
	TypeManifest string `json:"typeManifest,omitempty"`
}

// NewAdapter creates a DAP adapter for one connection. The type table
// supplies debug-info descriptors for the debuggee's Rust types.
func NewAdapter(conn io.ReadWriteCloser, delvePath string, types *TypeTable, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if types == nil {
		types = NewTypeTable()
	}

	delve := NewDelveClient(delvePath)
	proc := NewTargetProcess(delve, types)
	session := NewSession(proc, providers.NewDispatcher(logger), logger)

	return &Adapter{
		conn:        conn,
		delve:       delve,
		types:       types,
		session:     session,
		breakpoints: NewBreakpointRegistry(),
		logger:      logger.With(zap.String("session", session.ID)),
	}
}

// Start begins processing DAP messages and blocks until the connection
// closes or a fatal protocol error occurs.
func (a *Adapter) Start() error {
	reader := bufio.NewReader(a.conn)

	for {
		msg, err := dap.ReadProtocolMessage(reader)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("failed to read message: %w", err)
		}

		if err := a.handleMessage(msg); err != nil {
			if isFatalError(err) {
				a.logger.Error("fatal error handling message", zap.Error(err))
				return fmt.Errorf("fatal protocol error: %w", err)
			}
			a.logger.Warn("error handling message", zap.Error(err))
		}
	}
}

// isFatalError determines if an error should terminate the session.
func isFatalError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) {
		return true
	}

	errStr := err.Error()
	if strings.Contains(errStr, "protocol error") ||
		strings.Contains(errStr, "connection closed") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "connection reset") {
		return true
	}
	return false
}

// handleMessage routes DAP messages to their handlers. Decoder panics
// must not cross this boundary; they are recovered and reported as
// handler errors.
func (a *Adapter) handleMessage(msg dap.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic handling %T: %v", msg, r)
		}
	}()

	switch m := msg.(type) {
	case *dap.InitializeRequest:
		return a.handleInitialize(m)
	case *dap.LaunchRequest:
		return a.handleLaunch(m)
	case *dap.AttachRequest:
		return a.handleAttach(m)
	case *dap.SetBreakpointsRequest:
		return a.handleSetBreakpoints(m)
	case *dap.ConfigurationDoneRequest:
		return a.handleConfigurationDone(m)
	case *dap.ContinueRequest:
		return a.handleContinue(m)
	case *dap.NextRequest:
		return a.handleNext(m)
	case *dap.StepInRequest:
		return a.handleStepIn(m)
	case *dap.StepOutRequest:
		return a.handleStepOut(m)
	case *dap.ThreadsRequest:
		return a.handleThreads(m)
	case *dap.StackTraceRequest:
		return a.handleStackTrace(m)
	case *dap.ScopesRequest:
		return a.handleScopes(m)
	case *dap.VariablesRequest:
		return a.handleVariables(m)
	case *dap.DisconnectRequest:
		return a.handleDisconnect(m)
	default:
		a.logger.Debug("unsupported message type", zap.String("type", fmt.Sprintf("%T", msg)))
		return nil
	}
}

// handleInitialize processes the initialize request.
func (a *Adapter) handleInitialize(request *dap.InitializeRequest) error {
	response := &dap.InitializeResponse{
		Response: a.newResponse(request.Seq, request.Command),
		Body: dap.Capabilities{
			SupportsConfigurationDoneRequest: true,
			SupportsConditionalBreakpoints:   true,
		},
	}

	if err := dap.WriteProtocolMessage(a.conn, response); err != nil {
		return err
	}

	event := &dap.InitializedEvent{
		Event: dap.Event{
			ProtocolMessage: dap.ProtocolMessage{
				Seq:  a.nextSeq(),
				Type: "event",
			},
			Event: "initialized",
		},
	}
	return dap.WriteProtocolMessage(a.conn, event)
}

// handleLaunch processes the launch request.
func (a *Adapter) handleLaunch(request *dap.LaunchRequest) error {
	var args LaunchArguments
	if err := json.Unmarshal(request.Arguments, &args); err != nil {
		return a.sendErrorResponse(request.Seq, fmt.Sprintf("Invalid launch arguments: %v", err))
	}
	if args.Program == "" {
		return a.sendErrorResponse(request.Seq, "program path not specified")
	}

	if args.TypeManifest != "" {
		loaded, err := LoadManifest(args.TypeManifest)
		if err != nil {
			return a.sendErrorResponse(request.Seq, fmt.Sprintf("Failed to load type manifest: %v", err))
		}
		a.types.Merge(loaded)
	}

	if err := a.delve.Launch(args.Program); err != nil {
		return a.sendErrorResponse(request.Seq, fmt.Sprintf("Failed to launch: %v", err))
	}

	response := &dap.LaunchResponse{
		Response: a.newResponse(request.Seq, request.Command),
	}
	return dap.WriteProtocolMessage(a.conn, response)
}

// handleAttach processes the attach request.
func (a *Adapter) handleAttach(request *dap.AttachRequest) error {
	var args AttachArguments
	if err := json.Unmarshal(request.Arguments, &args); err != nil {
		return a.sendErrorResponse(request.Seq, fmt.Sprintf("Invalid attach arguments: %v", err))
	}
	if args.ProcessID == 0 {
		return a.sendErrorResponse(request.Seq, "processId not specified")
	}

	if args.TypeManifest != "" {
		loaded, err := LoadManifest(args.TypeManifest)
		if err != nil {
			return a.sendErrorResponse(request.Seq, fmt.Sprintf("Failed to load type manifest: %v", err))
		}
		a.types.Merge(loaded)
	}

	if err := a.delve.Attach(args.ProcessID); err != nil {
		return a.sendErrorResponse(request.Seq, fmt.Sprintf("Failed to attach: %v", err))
	}

	response := &dap.AttachResponse{
		Response: a.newResponse(request.Seq, request.Command),
	}
	return dap.WriteProtocolMessage(a.conn, response)
}

// handleSetBreakpoints processes the setBreakpoints request. Per the
// protocol the request carries the complete set for the file; existing
// breakpoints not in it are cleared.
func (a *Adapter) handleSetBreakpoints(request *dap.SetBreakpointsRequest) error {
	args := request.Arguments
	sourceFile := args.Source.Path

	newBreakpoints := make([]*Breakpoint, 0, len(args.Breakpoints))
	dapBreakpoints := make([]dap.Breakpoint, 0, len(args.Breakpoints))
	for _, bp := range args.Breakpoints {
		id, err := a.delve.CreateBreakpoint(sourceFile, bp.Line, bp.Condition)
		if err != nil {
			a.logger.Warn("failed to set breakpoint",
				zap.String("file", sourceFile), zap.Int("line", bp.Line), zap.Error(err))
			dapBreakpoints = append(dapBreakpoints, dap.Breakpoint{
				Verified: false,
				Line:     bp.Line,
				Message:  fmt.Sprintf("Failed to set breakpoint: %v", err),
			})
			continue
		}
		newBreakpoints = append(newBreakpoints, &Breakpoint{
			ID:        id,
			File:      sourceFile,
			Line:      bp.Line,
			Condition: bp.Condition,
			Verified:  true,
		})
		dapBreakpoints = append(dapBreakpoints, dap.Breakpoint{
			Id:       id,
			Verified: true,
			Line:     bp.Line,
		})
	}

	for _, old := range a.breakpoints.Replace(sourceFile, newBreakpoints) {
		if err := a.delve.ClearBreakpoint(old.ID); err != nil {
			a.logger.Warn("failed to clear displaced breakpoint",
				zap.Stringer("breakpoint", old), zap.Error(err))
		}
	}

	response := &dap.SetBreakpointsResponse{
		Response: a.newResponse(request.Seq, request.Command),
		Body: dap.SetBreakpointsResponseBody{
			Breakpoints: dapBreakpoints,
		},
	}
	return dap.WriteProtocolMessage(a.conn, response)
}

// handleConfigurationDone processes the configurationDone request.
func (a *Adapter) handleConfigurationDone(request *dap.ConfigurationDoneRequest) error {
	response := &dap.ConfigurationDoneResponse{
		Response: a.newResponse(request.Seq, request.Command),
	}
	return dap.WriteProtocolMessage(a.conn, response)
}

// handleContinue processes the continue request. The session's providers
// are refreshed once the debuggee stops again.
func (a *Adapter) handleContinue(request *dap.ContinueRequest) error {
	if err := a.delve.Continue(); err != nil {
		return a.sendErrorResponse(request.Seq, fmt.Sprintf("Continue failed: %v", err))
	}
	a.session.Refresh()

	response := &dap.ContinueResponse{
		Response: a.newResponse(request.Seq, request.Command),
		Body: dap.ContinueResponseBody{
			AllThreadsContinued: true,
		},
	}
	if err := dap.WriteProtocolMessage(a.conn, response); err != nil {
		return err
	}
	return a.sendStoppedEvent("breakpoint")
}

// handleNext processes the next (step over) request.
func (a *Adapter) handleNext(request *dap.NextRequest) error {
	if err := a.delve.Next(); err != nil {
		return a.sendErrorResponse(request.Seq, fmt.Sprintf("Next failed: %v", err))
	}
	a.session.Refresh()

	response := &dap.NextResponse{
		Response: a.newResponse(request.Seq, request.Command),
	}
	if err := dap.WriteProtocolMessage(a.conn, response); err != nil {
		return err
	}
	return a.sendStoppedEvent("step")
}

// handleStepIn processes the stepIn request.
func (a *Adapter) handleStepIn(request *dap.StepInRequest) error {
	if err := a.delve.StepIn(); err != nil {
		return a.sendErrorResponse(request.Seq, fmt.Sprintf("Step in failed: %v", err))
	}
	a.session.Refresh()

	response := &dap.StepInResponse{
		Response: a.newResponse(request.Seq, request.Command),
	}
	if err := dap.WriteProtocolMessage(a.conn, response); err != nil {
		return err
	}
	return a.sendStoppedEvent("step")
}

// handleStepOut processes the stepOut request.
func (a *Adapter) handleStepOut(request *dap.StepOutRequest) error {
	if err := a.delve.StepOut(); err != nil {
		return a.sendErrorResponse(request.Seq, fmt.Sprintf("Step out failed: %v", err))
	}
	a.session.Refresh()

	response := &dap.StepOutResponse{
		Response: a.newResponse(request.Seq, request.Command),
	}
	if err := dap.WriteProtocolMessage(a.conn, response); err != nil {
		return err
	}
	return a.sendStoppedEvent("step")
}

// handleThreads processes the threads request.
func (a *Adapter) handleThreads(request *dap.ThreadsRequest) error {
	threads, err := a.delve.ListThreads()
	if err != nil {
		return a.sendErrorResponse(request.Seq, fmt.Sprintf("Failed to list threads: %v", err))
	}

	dapThreads := make([]dap.Thread, len(threads))
	for i, t := range threads {
		dapThreads[i] = dap.Thread{
			Id:   t.ID,
			Name: t.Name,
		}
	}

	response := &dap.ThreadsResponse{
		Response: a.newResponse(request.Seq, request.Command),
		Body: dap.ThreadsResponseBody{
			Threads: dapThreads,
		},
	}
	return dap.WriteProtocolMessage(a.conn, response)
}

// handleStackTrace processes the stackTrace request.
func (a *Adapter) handleStackTrace(request *dap.StackTraceRequest) error {
	stack, err := a.delve.StackTrace()
	if err != nil {
		return a.sendErrorResponse(request.Seq, fmt.Sprintf("Failed to get stack trace: %v", err))
	}

	frames := make([]dap.StackFrame, len(stack))
	for i, f := range stack {
		frames[i] = dap.StackFrame{
			Id:   f.ID,
			Name: f.Function,
			Source: &dap.Source{
				Path: f.File,
			},
			Line: f.Line,
		}
	}

	response := &dap.StackTraceResponse{
		Response: a.newResponse(request.Seq, request.Command),
		Body: dap.StackTraceResponseBody{
			StackFrames: frames,
			TotalFrames: len(frames),
		},
	}
	return dap.WriteProtocolMessage(a.conn, response)
}

// handleScopes processes the scopes request.
func (a *Adapter) handleScopes(request *dap.ScopesRequest) error {
	scopes := []dap.Scope{
		{
			Name:               "Local",
			VariablesReference: scopeRefBase + request.Arguments.FrameId,
			Expensive:          false,
		},
	}

	response := &dap.ScopesResponse{
		Response: a.newResponse(request.Seq, request.Command),
		Body: dap.ScopesResponseBody{
			Scopes: scopes,
		},
	}
	return dap.WriteProtocolMessage(a.conn, response)
}

// handleVariables processes the variables request. Frame-scope
// references list Delve locals and lift each one into a typed handle
// when its type is known; provider references expand synthetic children.
func (a *Adapter) handleVariables(request *dap.VariablesRequest) error {
	ref := request.Arguments.VariablesReference

	var variables []dap.Variable
	if ref >= scopeRefBase {
		frameVars, err := a.delve.ListLocalVariables(ref - scopeRefBase)
		if err != nil {
			return a.sendErrorResponse(request.Seq, fmt.Sprintf("Failed to list variables: %v", err))
		}
		variables = make([]dap.Variable, 0, len(frameVars))
		for _, fv := range frameVars {
			variables = append(variables, a.renderLocal(fv))
		}
	} else {
		children, err := a.session.Children(ref)
		if err != nil {
			return a.sendErrorResponse(request.Seq, fmt.Sprintf("Failed to expand variable: %v", err))
		}
		variables = children
	}

	response := &dap.VariablesResponse{
		Response: a.newResponse(request.Seq, request.Command),
		Body: dap.VariablesResponseBody{
			Variables: variables,
		},
	}
	return dap.WriteProtocolMessage(a.conn, response)
}

// renderLocal lifts one frame variable into the decoded view. Unknown
// types keep Delve's own rendering.
func (a *Adapter) renderLocal(fv FrameVariable) dap.Variable {
	typ := a.types.Lookup(fv.TypeName)
	if typ == nil || fv.Addr == 0 {
		return dap.Variable{
			Name:  fv.Name,
			Value: fv.Value,
			Type:  fv.TypeName,
		}
	}

	v := value.New(a.session.Process(), fv.Name, typ, fv.Addr)
	return a.session.Render(v, fv.Value)
}

// handleDisconnect processes the disconnect request.
func (a *Adapter) handleDisconnect(request *dap.DisconnectRequest) error {
	if err := a.delve.Detach(); err != nil {
		a.logger.Warn("error detaching from Delve", zap.Error(err))
	}
	a.session.Reset()
	a.breakpoints.Clear()

	response := &dap.DisconnectResponse{
		Response: a.newResponse(request.Seq, request.Command),
	}
	return dap.WriteProtocolMessage(a.conn, response)
}

// sendStoppedEvent notifies the client that the debuggee stopped.
func (a *Adapter) sendStoppedEvent(reason string) error {
	event := &dap.StoppedEvent{
		Event: dap.Event{
			ProtocolMessage: dap.ProtocolMessage{
				Seq:  a.nextSeq(),
				Type: "event",
			},
			Event: "stopped",
		},
		Body: dap.StoppedEventBody{
			Reason:            reason,
			AllThreadsStopped: true,
		},
	}
	return dap.WriteProtocolMessage(a.conn, event)
}

// sendErrorResponse sends an error response.
func (a *Adapter) sendErrorResponse(requestSeq int, message string) error {
	response := &dap.ErrorResponse{
		Response: dap.Response{
			ProtocolMessage: dap.ProtocolMessage{
				Seq:  a.nextSeq(),
				Type: "response",
			},
			RequestSeq: requestSeq,
			Success:    false,
			Message:    message,
		},
	}
	return dap.WriteProtocolMessage(a.conn, response)
}

// newResponse builds the success response envelope for a request.
func (a *Adapter) newResponse(requestSeq int, command string) dap.Response {
	return dap.Response{
		ProtocolMessage: dap.ProtocolMessage{
			Seq:  a.nextSeq(),
			Type: "response",
		},
		RequestSeq: requestSeq,
		Success:    true,
		Command:    command,
	}
}

// nextSeq returns the next sequence number.
func (a *Adapter) nextSeq() int {
	a.seqMutex.Lock()
	defer a.seqMutex.Unlock()
	a.seq++
	return a.seq
}

// Close closes the adapter and its Delve backend.
func (a *Adapter) Close() error {
	if a.delve != nil {
		a.delve.Close()
	}
	if a.conn != nil {
		return a.conn.Close()
	}
	return nil
}

// Server manages the DAP server lifecycle, one adapter per connection.
type Server struct {
	listener    net.Listener
	types       *TypeTable
	delvePath   string
	logger      *zap.Logger
	wg          sync.WaitGroup
	shutdown    chan struct{}
	activeConns map[net.Conn]struct{}
	connMutex   sync.Mutex
}

// NewServer creates a DAP server listening on addr. Every connection
// shares the type table.
func NewServer(addr string, types *TypeTable, delvePath string, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if types == nil {
		types = NewTypeTable()
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	return &Server{
		listener:    listener,
		types:       types,
		delvePath:   delvePath,
		logger:      logger,
		shutdown:    make(chan struct{}),
		activeConns: make(map[net.Conn]struct{}),
	}, nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve starts accepting connections and blocks until Shutdown.
func (s *Server) Serve() error {
	defer s.listener.Close()

	s.logger.Info("DAP server listening", zap.String("addr", s.Addr()))

	for {
		select {
		case <-s.shutdown:
			return nil
		default:
		}

		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return nil
			default:
				s.logger.Warn("failed to accept connection", zap.Error(err))
				continue
			}
		}

		s.connMutex.Lock()
		s.activeConns[conn] = struct{}{}
		s.connMutex.Unlock()

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// handleConnection handles a single DAP connection.
func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	defer func() {
		s.connMutex.Lock()
		delete(s.activeConns, conn)
		s.connMutex.Unlock()
	}()

	adapter := NewAdapter(conn, s.delvePath, s.types, s.logger)
	defer adapter.Close()

	if err := adapter.Start(); err != nil {
		s.logger.Warn("adapter error", zap.Error(err))
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	close(s.shutdown)
	s.listener.Close()

	s.connMutex.Lock()
	for conn := range s.activeConns {
		conn.Close()
	}
	s.connMutex.Unlock()

	s.wg.Wait()
	return nil
}
