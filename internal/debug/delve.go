package debug

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/go-delve/delve/service/api"
	"github.com/go-delve/delve/service/rpc2"
)

// DelveClient wraps a headless Delve backend. Only the surface rustlens
// needs is exposed: execution control, frame inspection, and raw memory
// reads for the container decoders.
type DelveClient struct {
	client    *rpc2.RPCClient
	serverCmd *exec.Cmd
	delvePath string
	mutex     sync.Mutex
}

// FrameVariable is a local variable as reported by Delve, carrying the
// debuggee address and declared type name needed to build a typed handle.
type FrameVariable struct {
	Name     string
	TypeName string
	Addr     uint64
	Value    string
}

// StackFrame is one frame of a thread's call stack.
type StackFrame struct {
	ID       int
	Function string
	File     string
	Line     int
}

// ThreadInfo identifies a thread in the debugged program.
type ThreadInfo struct {
	ID   int
	Name string
}

// NewDelveClient returns a client that will start Delve from the given
// binary path. An empty path means "dlv" on PATH.
func NewDelveClient(delvePath string) *DelveClient {
	if delvePath == "" {
		delvePath = "dlv"
	}
	return &DelveClient{delvePath: delvePath}
}

// Launch starts the program under a headless Delve on a random port and
// connects to it.
func (dc *DelveClient) Launch(program string) error {
	dc.mutex.Lock()
	defer dc.mutex.Unlock()

	info, err := os.Stat(program)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("program not found: %s", program)
		}
		return fmt.Errorf("failed to stat program: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("program path is a directory: %s", program)
	}
	if info.Mode()&0111 == 0 {
		return fmt.Errorf("program is not executable: %s", program)
	}

	cmd := exec.Command(dc.delvePath, "exec", program,
		"--headless", "--listen=:0", "--api-version=2", "--accept-multiclient")
	return dc.startAndConnect(cmd)
}

// Attach connects to an already-running process by pid.
func (dc *DelveClient) Attach(pid int) error {
	dc.mutex.Lock()
	defer dc.mutex.Unlock()

	cmd := exec.Command(dc.delvePath, "attach", strconv.Itoa(pid),
		"--headless", "--listen=:0", "--api-version=2", "--accept-multiclient")
	return dc.startAndConnect(cmd)
}

// startAndConnect runs the Delve server command, parses the port it
// reports, and connects the RPC client. Callers hold dc.mutex.
func (dc *DelveClient) startAndConnect(cmd *exec.Cmd) error {
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	// Tee stderr through for visibility while still parsing for the port.
	teeReader := io.TeeReader(stderrPipe, os.Stderr)
	cmd.Stdout = os.Stdout

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start Delve: %w", err)
	}
	dc.serverCmd = cmd

	port, err := parseDelvePort(teeReader, 5*time.Second)
	if err != nil {
		dc.killServerLocked(2 * time.Second)
		return fmt.Errorf("failed to get Delve port: %w", err)
	}

	dc.client = rpc2.NewClient(fmt.Sprintf("localhost:%d", port))
	return nil
}

// parseDelvePort extracts the listening port from Delve's startup output.
func parseDelvePort(pipe io.Reader, timeout time.Duration) (int, error) {
	// Delve prints: "API server listening at: 127.0.0.1:PORT"
	portRegex := regexp.MustCompile(`API server listening at: .*:(\d+)`)

	portChan := make(chan int, 1)
	errChan := make(chan error, 1)

	go func() {
		reader := bufio.NewReader(pipe)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err != io.EOF {
					errChan <- fmt.Errorf("error reading Delve output: %w", err)
				}
				return
			}
			matches := portRegex.FindStringSubmatch(line)
			if len(matches) >= 2 {
				port, err := strconv.Atoi(matches[1])
				if err != nil {
					errChan <- fmt.Errorf("invalid port number: %w", err)
					return
				}
				portChan <- port
				return
			}
		}
	}()

	select {
	case port := <-portChan:
		return port, nil
	case err := <-errChan:
		return 0, err
	case <-time.After(timeout):
		return 0, fmt.Errorf("timeout waiting for Delve to report listening port")
	}
}

// ReadMemory reads n bytes from the debuggee at addr. Short reads are
// errors; the decoders must never see zero-filled memory.
func (dc *DelveClient) ReadMemory(addr uint64, n int) ([]byte, error) {
	dc.mutex.Lock()
	defer dc.mutex.Unlock()

	if dc.client == nil {
		return nil, fmt.Errorf("not connected to Delve")
	}

	mem, _, err := dc.client.ExamineMemory(addr, n)
	if err != nil {
		return nil, fmt.Errorf("examine memory at %#x: %w", addr, err)
	}
	if len(mem) < n {
		return nil, fmt.Errorf("short read at %#x: got %d of %d bytes", addr, len(mem), n)
	}
	return mem[:n], nil
}

// Continue resumes execution until the next stop.
func (dc *DelveClient) Continue() error {
	dc.mutex.Lock()
	defer dc.mutex.Unlock()

	if dc.client == nil {
		return fmt.Errorf("not connected to Delve")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stateChan := dc.client.Continue()
	select {
	case state := <-stateChan:
		if state.Err != nil {
			return fmt.Errorf("continue failed: %w", state.Err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("continue operation timed out")
	}
}

// Next steps over to the next line.
func (dc *DelveClient) Next() error {
	return dc.step("next", func() (*api.DebuggerState, error) {
		return dc.client.Next()
	})
}

// StepIn steps into a function call.
func (dc *DelveClient) StepIn() error {
	return dc.step("step in", func() (*api.DebuggerState, error) {
		return dc.client.Step()
	})
}

// StepOut steps out of the current function.
func (dc *DelveClient) StepOut() error {
	return dc.step("step out", func() (*api.DebuggerState, error) {
		return dc.client.StepOut()
	})
}

func (dc *DelveClient) step(name string, op func() (*api.DebuggerState, error)) error {
	dc.mutex.Lock()
	defer dc.mutex.Unlock()

	if dc.client == nil {
		return fmt.Errorf("not connected to Delve")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	type result struct {
		state *api.DebuggerState
		err   error
	}
	resultChan := make(chan result, 1)

	go func() {
		state, err := op()
		resultChan <- result{state, err}
	}()

	select {
	case res := <-resultChan:
		if res.err != nil {
			return fmt.Errorf("%s failed: %w", name, res.err)
		}
		if res.state.Err != nil {
			return fmt.Errorf("%s failed: %w", name, res.state.Err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s operation timed out", name)
	}
}

// CreateBreakpoint sets a breakpoint and returns its Delve id.
func (dc *DelveClient) CreateBreakpoint(file string, line int, condition string) (int, error) {
	dc.mutex.Lock()
	defer dc.mutex.Unlock()

	if dc.client == nil {
		return 0, fmt.Errorf("not connected to Delve")
	}

	bp := &api.Breakpoint{File: file, Line: line}
	if condition != "" {
		bp.Cond = condition
	}

	created, err := dc.client.CreateBreakpoint(bp)
	if err != nil {
		return 0, fmt.Errorf("failed to create breakpoint: %w", err)
	}
	return created.ID, nil
}

// ClearBreakpoint removes a breakpoint by its Delve id.
func (dc *DelveClient) ClearBreakpoint(id int) error {
	dc.mutex.Lock()
	defer dc.mutex.Unlock()

	if dc.client == nil {
		return fmt.Errorf("not connected to Delve")
	}

	if _, err := dc.client.ClearBreakpoint(id); err != nil {
		return fmt.Errorf("failed to clear breakpoint: %w", err)
	}
	return nil
}

// ListThreads returns all threads in the debugged program.
func (dc *DelveClient) ListThreads() ([]ThreadInfo, error) {
	dc.mutex.Lock()
	defer dc.mutex.Unlock()

	if dc.client == nil {
		return nil, fmt.Errorf("not connected to Delve")
	}

	threads, err := dc.client.ListThreads()
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}

	result := make([]ThreadInfo, len(threads))
	for i, t := range threads {
		result[i] = ThreadInfo{
			ID:   t.ID,
			Name: fmt.Sprintf("Thread %d", t.ID),
		}
	}
	return result, nil
}

// StackTrace returns the call stack of the stopped goroutine.
func (dc *DelveClient) StackTrace() ([]StackFrame, error) {
	dc.mutex.Lock()
	defer dc.mutex.Unlock()

	if dc.client == nil {
		return nil, fmt.Errorf("not connected to Delve")
	}

	frames, err := dc.client.Stacktrace(-1, 50, api.StacktraceReadDefers, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get stack trace: %w", err)
	}

	result := make([]StackFrame, len(frames))
	for i, f := range frames {
		result[i] = StackFrame{
			ID:       i,
			Function: f.Function.Name(),
			File:     f.File,
			Line:     f.Line,
		}
	}
	return result, nil
}

// ListLocalVariables returns the locals of a frame with their addresses
// and declared type names. Values are loaded shallowly; rustlens decodes
// container internals itself from raw memory.
func (dc *DelveClient) ListLocalVariables(frameID int) ([]FrameVariable, error) {
	dc.mutex.Lock()
	defer dc.mutex.Unlock()

	if dc.client == nil {
		return nil, fmt.Errorf("not connected to Delve")
	}

	scope := api.EvalScope{GoroutineID: -1, Frame: frameID}
	vars, err := dc.client.ListLocalVariables(scope, api.LoadConfig{
		FollowPointers:     false,
		MaxVariableRecurse: 0,
		MaxStringLen:       64,
		MaxArrayValues:     0,
		MaxStructFields:    0,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list variables: %w", err)
	}

	result := make([]FrameVariable, len(vars))
	for i, v := range vars {
		result[i] = FrameVariable{
			Name:     v.Name,
			TypeName: v.Type,
			Addr:     v.Addr,
			Value:    v.Value,
		}
	}
	return result, nil
}

// Detach disconnects from the debuggee and stops the Delve server.
func (dc *DelveClient) Detach() error {
	dc.mutex.Lock()
	defer dc.mutex.Unlock()

	if dc.client != nil {
		if err := dc.client.Detach(true); err != nil {
			return fmt.Errorf("failed to detach: %w", err)
		}
		dc.client = nil
	}

	dc.killServerLocked(5 * time.Second)
	return nil
}

// killServerLocked terminates the Delve server process. Callers hold
// dc.mutex.
func (dc *DelveClient) killServerLocked(wait time.Duration) {
	if dc.serverCmd == nil || dc.serverCmd.Process == nil {
		return
	}

	dc.serverCmd.Process.Kill()

	done := make(chan error, 1)
	go func(cmd *exec.Cmd) {
		done <- cmd.Wait()
	}(dc.serverCmd)

	select {
	case <-done:
	case <-time.After(wait):
	}
	dc.serverCmd = nil
}

// Close closes the Delve client.
func (dc *DelveClient) Close() error {
	return dc.Detach()
}
