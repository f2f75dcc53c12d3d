// Package requests implements RequestStore: the per-node {pending, handling,
// baseBusyness} container and the request lifecycle operations that move
// entries between stores. See spec.md §3, §4.2.
package requests

import "github.com/google/uuid"

// Request is a deferred invocation record routed across the mesh.
type Request struct {
	ID           string `json:"id"`
	OriginNode   string `json:"origin_node"`
	CallerHandle string `json:"caller_handle"`
	Module       string `json:"module"`
	Function     string `json:"function"`
	Args         []any  `json:"args"`
}

// New creates a Request with a fresh 128-bit random ID.
func New(originNode, callerHandle, module, function string, args []any) Request {
	return Request{
		ID:           uuid.New().String(),
		OriginNode:   originNode,
		CallerHandle: callerHandle,
		Module:       module,
		Function:     function,
		Args:         args,
	}
}

// Arity is the number of positional arguments, used to resolve module.function.
func (r Request) Arity() int {
	return len(r.Args)
}
