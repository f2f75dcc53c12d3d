package registry

import "testing"

func TestNewIncludesSelf(t *testing.T) {
	r := New("a@h")
	peers := r.Get()
	if _, ok := peers["a@h"]; !ok {
		t.Fatalf("selfName must be present in keys, got %v", peers)
	}
}

func TestSetPeerMetadata(t *testing.T) {
	r := New("a@h")
	r.SetPeerMetadata("b@h", Metadata{"region": "us"})

	m, ok := r.GetPeer("b@h")
	if !ok {
		t.Fatalf("expected peer b@h to be present")
	}
	if m["region"] != "us" {
		t.Errorf("region = %v, want us", m["region"])
	}
}

func TestGetPeerAbsent(t *testing.T) {
	r := New("a@h")
	if _, ok := r.GetPeer("nope@h"); ok {
		t.Error("expected absent peer to report ok=false")
	}
}

func TestReplacePreservesSelf(t *testing.T) {
	r := New("a@h")
	r.SetSelfMetadata(Metadata{"role": "origin"})
	r.Replace(map[string]Metadata{"b@h": {"role": "peer"}})

	self, ok := r.GetPeer("a@h")
	if !ok {
		t.Fatalf("selfName must survive Replace")
	}
	if self["role"] != "origin" {
		t.Errorf("self metadata lost across Replace: %v", self)
	}
	if _, ok := r.GetPeer("b@h"); !ok {
		t.Error("expected b@h to be present after Replace")
	}
}

func TestReplaceSkipsProvidedSelfEntry(t *testing.T) {
	r := New("a@h")
	r.SetSelfMetadata(Metadata{"role": "origin"})

	r.Replace(map[string]Metadata{
		"a@h": {"role": "spoofed"},
		"c@h": {"v": 2},
	})

	self, _ := r.GetPeer("a@h")
	if self["role"] != "origin" {
		t.Errorf("Replace must not let a peer's view overwrite self metadata, got %v", self)
	}
	if _, ok := r.GetPeer("c@h"); !ok {
		t.Error("expected c@h to be present after Replace")
	}
}

func TestGetIsSnapshotCopy(t *testing.T) {
	r := New("a@h")
	snap := r.Get()
	snap["b@h"] = Metadata{"injected": true}

	if _, ok := r.GetPeer("b@h"); ok {
		t.Error("mutating a Get() snapshot must not affect the registry")
	}
}
