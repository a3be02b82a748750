// Package uapitest provides a scripted CommandExecutor for tests that talk to uapi.
package uapitest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/danilgotvyansky/cpanel-exporter/internal/utils"
)

// Response is the canned outcome of one uapi invocation.
type Response struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// Executor answers uapi invocations keyed by "Module function".
// Unknown calls fail with an error, like a missing binary would.
type Executor struct {
	mu        sync.Mutex
	responses map[string]Response
	calls     []string
	argv      map[string][]string
}

func NewExecutor() *Executor {
	return &Executor{
		responses: make(map[string]Response),
		argv:      make(map[string][]string),
	}
}

// Set registers the response for module and function.
func (e *Executor) Set(module, function string, resp Response) *Executor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.responses[module+" "+function] = resp
	return e
}

// SetData registers a successful envelope carrying data encoded as JSON.
func (e *Executor) SetData(module, function string, data any) *Executor {
	return e.Set(module, function, Response{Stdout: Envelope(1, nil, data)})
}

// SetErrors registers a status 0 envelope with the given errors and null data.
func (e *Executor) SetErrors(module, function string, errs ...string) *Executor {
	return e.Set(module, function, Response{Stdout: Envelope(0, errs, nil)})
}

// Calls returns the "Module function" keys in invocation order.
func (e *Executor) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// Args returns the full argument list of the last invocation of module and function.
func (e *Executor) Args(module, function string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.argv[module+" "+function]
}

func (e *Executor) Execute(ctx context.Context, command string, args ...string) (*utils.CommandResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var positional []string
	for _, arg := range args {
		if !strings.HasPrefix(arg, "--") {
			positional = append(positional, arg)
		}
	}
	if len(positional) < 2 {
		return nil, fmt.Errorf("uapitest: unexpected invocation %s %v", command, args)
	}
	key := positional[0] + " " + positional[1]

	e.mu.Lock()
	e.calls = append(e.calls, key)
	e.argv[key] = append([]string(nil), args...)
	resp, ok := e.responses[key]
	e.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("uapitest: no response for %q", key)
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	return &utils.CommandResult{
		Stdout:   []byte(resp.Stdout),
		Stderr:   []byte(resp.Stderr),
		ExitCode: resp.ExitCode,
	}, nil
}

var _ utils.CommandExecutor = (*Executor)(nil)

// Envelope renders a uapi JSON response.
func Envelope(status int, errs []string, data any) string {
	body, err := json.Marshal(map[string]any{
		"result": map[string]any{
			"status":   status,
			"errors":   errs,
			"messages": nil,
			"data":     data,
		},
	})
	if err != nil {
		panic(err)
	}
	return string(body)
}
