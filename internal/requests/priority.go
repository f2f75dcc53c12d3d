package requests

// Resolver answers whether module.function/arity can run locally —
// internal/catalog satisfies this.
type Resolver interface {
	Resolvable(module, function string, arity int) bool
}

// Offsets answers the configured busyness_offsets[module][function] entry.
type Offsets interface {
	// LookupOffset returns (value, isReject, found).
	LookupOffset(module, function string) (value int64, reject bool, found bool)
}

// AcceptancePriority computes the score a node reports for a candidate
// request, evaluated against this node's own state (spec §4.2.2). Higher is
// preferred; nil means ineligible.
//
//  1. module.function/arity not resolvable locally -> nil
//  2. busyness_offsets[module][function] absent     -> -baseBusyness
//     == "reject"                                    -> nil
//     == integer offset                               -> -(baseBusyness + offset)
func AcceptancePriority(resolver Resolver, offsets Offsets, baseBusyness int64, r Request) (int64, bool) {
	if !resolver.Resolvable(r.Module, r.Function, r.Arity()) {
		return 0, false
	}

	value, reject, found := offsets.LookupOffset(r.Module, r.Function)
	if !found {
		return -baseBusyness, true
	}
	if reject {
		return 0, false
	}
	return -(baseBusyness + value), true
}
