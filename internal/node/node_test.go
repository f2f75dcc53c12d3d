package node

import (
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"please/internal/catalog"
	"please/internal/config"
	"please/internal/requests"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("allocate port: %v", err)
	}
	addr := lis.Addr().String()
	lis.Close()
	return addr
}

func fastConfig() config.Config {
	cfg := config.Default()
	cfg.PingLatencyMS = 5
	cfg.SyncLatencyMS = 5
	cfg.AssignLatencyMS = 5
	cfg.HandleLatencyMS = 5
	return cfg
}

// startMesh builds one Node per entry in cats, all pre-seeded with every
// other node's address (so AddressBook resolution never depends on
// discovery timing — that is PingTask/SyncTask's own test subject, not
// this package's), wires referrals for membership discovery, and starts
// every node under Run.
func startMesh(t *testing.T, cats map[string]*catalog.Catalog, referrals map[string][]string) (map[string]*Node, func()) {
	t.Helper()

	addrs := make(map[string]string, len(cats))
	for name := range cats {
		addrs[name] = freeAddr(t)
	}

	nodes := make(map[string]*Node, len(cats))
	ctx, cancel := context.WithCancel(context.Background())

	for name, cat := range cats {
		cfg := fastConfig()
		cfg.Referrals = referrals[name]
		book := &RegistryAddressBook{Static: addrs}
		n, err := New(name, addrs[name], cfg, cat, book)
		if err != nil {
			t.Fatalf("build node %s: %v", name, err)
		}
		book.Registry = n.Registry
		nodes[name] = n
		go n.Run(ctx)
	}

	time.Sleep(50 * time.Millisecond) // let at least one ping/sync cycle run
	return nodes, cancel
}

func TestScenarioS1SingleNodeEcho(t *testing.T) {
	cat := catalog.New()
	cat.Register("Strings", "upcase", 1, func(args []any) (any, error) {
		return strings.ToUpper(args[0].(string)), nil
	})

	nodes, cancel := startMesh(t, map[string]*catalog.Catalog{"a@h": cat}, nil)
	defer cancel()

	a := nodes["a@h"]
	req := requests.New("a@h", "caller1", "Strings", "upcase", []any{"hi"})
	ch := a.Caller.Register(req.ID)
	a.Store.Add(req)

	select {
	case resp := <-ch:
		if !resp.OK || resp.Result != "HI" || resp.ExecutingNode != "a@h" {
			t.Errorf("unexpected response: %+v", resp)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for S1 response")
	}
}

func TestScenarioS2Delegation(t *testing.T) {
	catA := catalog.New()
	catB := catalog.New()
	catB.Register("Math", "square", 1, func(args []any) (any, error) {
		n := args[0].(float64) // delegated args cross the JSON wire codec, so numbers arrive as float64
		return n * n, nil
	})

	cats := map[string]*catalog.Catalog{"a@h": catA, "b@h": catB}
	referrals := map[string][]string{"a@h": {"b@h"}, "b@h": {"a@h"}}
	nodes, cancel := startMesh(t, cats, referrals)
	defer cancel()

	a := nodes["a@h"]
	req := requests.New("a@h", "caller1", "Math", "square", []any{7})
	ch := a.Caller.Register(req.ID)
	a.Store.Add(req)

	select {
	case resp := <-ch:
		if !resp.OK || resp.Result != float64(49) || resp.ExecutingNode != "b@h" {
			t.Errorf("unexpected response: %+v", resp)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for S2 response")
	}
}

// nodeSpec describes one participant for startMeshCustom: a catalog, its
// referral list, static addresses for the peers it is allowed to dial
// directly (everything else must be learned via ping/sync gossip), and an
// optional config override hook.
type nodeSpec struct {
	Catalog   *catalog.Catalog
	Referrals []string
	Static    map[string]string
	Configure func(*config.Config)
}

// startMeshCustom is startMesh's more flexible sibling: each node gets its
// own static address subset (rather than every node knowing every address
// up front) and an optional per-node config override, for scenarios that
// need either genuine discovery propagation or a non-default busyness/offset
// setup.
func startMeshCustom(t *testing.T, specs map[string]nodeSpec) (map[string]*Node, func()) {
	t.Helper()

	nodes := make(map[string]*Node, len(specs))
	ctx, cancel := context.WithCancel(context.Background())

	for name, spec := range specs {
		cfg := fastConfig()
		cfg.Referrals = spec.Referrals
		if spec.Configure != nil {
			spec.Configure(&cfg)
		}

		addr := spec.Static[name]
		if addr == "" {
			t.Fatalf("nodeSpec for %s must include its own address in Static", name)
		}

		book := &RegistryAddressBook{Static: spec.Static}
		n, err := New(name, addr, cfg, spec.Catalog, book)
		if err != nil {
			t.Fatalf("build node %s: %v", name, err)
		}
		book.Registry = n.Registry
		nodes[name] = n
		go n.Run(ctx)
	}

	time.Sleep(50 * time.Millisecond)
	return nodes, cancel
}

func TestScenarioS3CapabilityFilter(t *testing.T) {
	catA := catalog.New()
	catA.Register("Math", "square", 1, func(args []any) (any, error) {
		t.Fatal("Math.square must never execute on a@h: it is rejected there")
		return nil, nil
	})
	catB := catalog.New()
	catB.Register("Math", "square", 1, func(args []any) (any, error) {
		n := args[0].(float64) // delegated args cross the JSON wire codec, so numbers arrive as float64
		return n * n, nil
	})

	addrA := freeAddr(t)
	addrB := freeAddr(t)
	static := map[string]string{"a@h": addrA, "b@h": addrB}

	specs := map[string]nodeSpec{
		"a@h": {
			Catalog:   catA,
			Referrals: []string{"b@h"},
			Static:    static,
			Configure: func(c *config.Config) {
				c.BusynessOffsets = config.WeightTable{
					"Math": {"square": config.WeightEntry{Reject: true}},
				}
			},
		},
		"b@h": {Catalog: catB, Referrals: []string{"a@h"}, Static: static},
	}
	nodes, cancel := startMeshCustom(t, specs)
	defer cancel()

	a := nodes["a@h"]
	req := requests.New("a@h", "caller1", "Math", "square", []any{6})
	ch := a.Caller.Register(req.ID)
	a.Store.Add(req)

	select {
	case resp := <-ch:
		if !resp.OK || resp.Result != float64(36) || resp.ExecutingNode != "b@h" {
			t.Errorf("unexpected response: %+v", resp)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for S3 response")
	}
}

func TestScenarioS4LoadPreference(t *testing.T) {
	square := func(args []any) (any, error) {
		n := args[0].(float64) // delegated args cross the JSON wire codec, so numbers arrive as float64
		return n * n, nil
	}
	catA := catalog.New()
	catA.Register("Math", "square", 1, square)
	catB := catalog.New()
	catB.Register("Math", "square", 1, square)
	catC := catalog.New() // caller node, no capability of its own

	addrA := freeAddr(t)
	addrB := freeAddr(t)
	addrC := freeAddr(t)
	static := map[string]string{"a@h": addrA, "b@h": addrB, "c@h": addrC}

	specs := map[string]nodeSpec{
		"a@h": {Catalog: catA, Referrals: []string{"b@h", "c@h"}, Static: static},
		"b@h": {Catalog: catB, Referrals: []string{"a@h", "c@h"}, Static: static},
		"c@h": {Catalog: catC, Referrals: []string{"a@h", "b@h"}, Static: static},
	}
	nodes, cancel := startMeshCustom(t, specs)
	defer cancel()

	// a@h is made strictly busier than b@h; both are equally capable, so
	// every assignment from c@h should prefer the less busy b@h.
	nodes["a@h"].Store.BaseBusynessIncrease(10_000)

	c := nodes["c@h"]
	for i := 0; i < 10; i++ {
		req := requests.New("c@h", fmt.Sprintf("caller%d", i), "Math", "square", []any{i})
		ch := c.Caller.Register(req.ID)
		c.Store.Add(req)

		select {
		case resp := <-ch:
			if !resp.OK {
				t.Fatalf("call %d: unexpected failure: %+v", i, resp)
			}
			if resp.ExecutingNode != "b@h" {
				t.Errorf("call %d: executingNode = %q, want b@h", i, resp.ExecutingNode)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("call %d: timed out waiting for response", i)
		}
	}
}

func TestScenarioS7MembershipTransitivity(t *testing.T) {
	catA, catB, catC := catalog.New(), catalog.New(), catalog.New()

	addrA := freeAddr(t)
	addrB := freeAddr(t)
	addrC := freeAddr(t)

	// Each node's Static map only covers the peer(s) it refers to directly —
	// a@h must learn c@h's existence and address purely through b@h's
	// ping/sync gossip, not through a shortcut address book.
	specs := map[string]nodeSpec{
		"a@h": {Catalog: catA, Referrals: []string{"b@h"}, Static: map[string]string{"a@h": addrA, "b@h": addrB}},
		"b@h": {Catalog: catB, Referrals: []string{"c@h"}, Static: map[string]string{"b@h": addrB, "c@h": addrC, "a@h": addrA}},
		"c@h": {Catalog: catC, Referrals: nil, Static: map[string]string{"c@h": addrC}},
	}
	nodes, cancel := startMeshCustom(t, specs)
	defer cancel()

	a := nodes["a@h"]
	deadline := time.After(2 * time.Second) // generous multiple of a ping/sync round trip at fastConfig latencies
	for {
		select {
		case <-deadline:
			t.Fatalf("a@h never learned of c@h: registry = %+v", a.Registry.Get())
		default:
		}
		if _, ok := a.Registry.GetPeer("c@h"); ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestScenarioS5TimeoutDiscardsLateResult(t *testing.T) {
	cat := catalog.New()
	cat.Register("Slow", "crawl", 0, func(args []any) (any, error) {
		time.Sleep(300 * time.Millisecond)
		return "too late", nil
	})

	nodes, cancel := startMesh(t, map[string]*catalog.Catalog{"a@h": cat}, nil)
	defer cancel()

	a := nodes["a@h"]
	req := requests.New("a@h", "caller1", "Slow", "crawl", nil)
	ch := a.Caller.Register(req.ID)
	a.Store.Add(req)

	timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer timeoutCancel()

	select {
	case resp := <-ch:
		t.Fatalf("expected a timeout, got a response instead: %+v", resp)
	case <-timeoutCtx.Done():
		a.Caller.Forget(req.ID) // mirrors pkg/please.MakeItSo's own timeout handling
	}

	// The slow handler is still running in the background. Once it finishes
	// and tries to deliver, the registry no longer has a waiter for req.ID,
	// so the result must be dropped rather than delivered anywhere.
	select {
	case resp, ok := <-ch:
		if ok {
			t.Errorf("late result was delivered after Forget: %+v", resp)
		}
	case <-time.After(500 * time.Millisecond):
		// ch never received anything and was never closed: the late delivery
		// was silently discarded, as required.
	}
}

func TestScenarioS6ExecutionError(t *testing.T) {
	cat := catalog.New()
	cat.Register("Math", "boom", 1, func(args []any) (any, error) {
		return nil, fmt.Errorf("division by zero")
	})

	nodes, cancel := startMesh(t, map[string]*catalog.Catalog{"a@h": cat}, nil)
	defer cancel()

	a := nodes["a@h"]
	req := requests.New("a@h", "caller1", "Math", "boom", []any{0})
	ch := a.Caller.Register(req.ID)
	a.Store.Add(req)

	select {
	case resp := <-ch:
		if resp.OK {
			t.Error("expected OK=false for an execution error")
		}
		if resp.ErrorInfo == "" {
			t.Error("expected a non-empty ErrorInfo")
		}
		if resp.ExecutingNode != "a@h" {
			t.Errorf("ExecutingNode = %q, want a@h", resp.ExecutingNode)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for S6 response")
	}
}
