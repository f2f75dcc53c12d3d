// Package please is the call-site surface an application uses to submit a
// request into the mesh and wait for its result — the in-scope stand-in for
// spec.md's out-of-scope "macro that synthesizes a call site" (code
// generation is deferred, not the runtime function it would call).
package please

import (
	"context"
	"errors"
	"fmt"
	"time"

	"please/internal/node"
	"please/internal/requests"
)

// defaultTimeout matches spec.md §6's documented default.
const defaultTimeout = 5000 * time.Millisecond

// Options configures one MakeItSo call.
type Options struct {
	// Timeout bounds how long the caller waits for a response. Zero means
	// defaultTimeout (5000ms, spec §6).
	Timeout time.Duration
	// CallerHandle identifies the waiting caller for delivery purposes.
	// Left empty, a fresh opaque handle is generated per call.
	CallerHandle string
}

// Result is the OK branch of the call-site response envelope (spec §6).
type Result struct {
	Value         any
	ExecutingNode string
}

// ErrTimeout is returned when the receive window elapses before a response
// arrives — the only caller-visible failure besides an execution error
// (spec §7).
var ErrTimeout = errors.New("please: timeout waiting for response")

// ExecutionError wraps a remote failure delivered as an ERROR envelope
// (spec §6/§7): the executing node and a stringified cause.
type ExecutionError struct {
	ExecutingNode string
	Info          string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("please: execution error on %s: %s", e.ExecutingNode, e.Info)
}

// MakeItSo submits module.function(args) into the mesh hosted by n and
// blocks for a response or timeout, whichever comes first. It is
// synchronous from the caller's perspective, as spec.md §6 requires.
func MakeItSo(ctx context.Context, n *node.Node, module, function string, args []any, opts Options) (Result, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	callerHandle := opts.CallerHandle
	if callerHandle == "" {
		callerHandle = requests.New(n.SelfName, "", "", "", nil).ID
	}

	req := requests.New(n.SelfName, callerHandle, module, function, args)
	ch := n.Caller.Register(req.ID)
	n.Store.Add(req)

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case resp := <-ch:
		if !resp.OK {
			return Result{}, &ExecutionError{ExecutingNode: resp.ExecutingNode, Info: resp.ErrorInfo}
		}
		return Result{Value: resp.Result, ExecutingNode: resp.ExecutingNode}, nil
	case <-timeoutCtx.Done():
		n.Caller.Forget(req.ID)
		return Result{}, ErrTimeout
	}
}
