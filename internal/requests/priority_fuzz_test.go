package requests

import "testing"

type fuzzResolver struct{ resolvable bool }

func (r fuzzResolver) Resolvable(string, string, int) bool { return r.resolvable }

type fuzzOffsets struct {
	value  int64
	reject bool
	found  bool
}

func (o fuzzOffsets) LookupOffset(string, string) (int64, bool, bool) {
	return o.value, o.reject, o.found
}

// FuzzAcceptancePriority checks the nil-iff-ineligible invariant (spec §8,
// property 4) holds across the full input space, not just hand-picked cases.
func FuzzAcceptancePriority(f *testing.F) {
	f.Add(true, int64(0), false, false, int64(0))
	f.Add(false, int64(0), false, false, int64(0))
	f.Add(true, int64(5), true, true, int64(1000))
	f.Add(true, int64(5), false, true, int64(-1000))

	f.Fuzz(func(t *testing.T, resolvable bool, offsetValue int64, offsetReject, offsetFound bool, base int64) {
		r := req("fuzz")
		resolver := fuzzResolver{resolvable: resolvable}
		offsets := fuzzOffsets{value: offsetValue, reject: offsetReject, found: offsetFound}

		priority, ok := AcceptancePriority(resolver, offsets, base, r)

		incapableOrRejected := !resolvable || (offsetFound && offsetReject)
		if ok == incapableOrRejected {
			t.Fatalf("ok=%v must be the negation of incapable-or-rejected=%v", ok, incapableOrRejected)
		}
		if ok && offsetFound && !offsetReject && priority != -(base+offsetValue) {
			t.Errorf("priority = %d, want %d", priority, -(base + offsetValue))
		}
		if ok && !offsetFound && priority != -base {
			t.Errorf("priority = %d, want %d (no offset configured)", priority, -base)
		}
	})
}
