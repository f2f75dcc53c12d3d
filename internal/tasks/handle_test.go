package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"please/internal/caller"
	"please/internal/requests"
)

type fakeApplier struct {
	result any
	err    error
}

func (f *fakeApplier) Apply(string, string, []any) (any, error) { return f.result, f.err }

type fakeDeliverer struct {
	delivered    chan struct{}
	removedPeer  string
	removedID    string
}

func (f *fakeDeliverer) DeliverResult(_ context.Context, _, _, _ string, _ bool, _ any, _ string) error {
	close(f.delivered)
	return nil
}

func (f *fakeDeliverer) RemoveRequest(_ context.Context, peer, id string) error {
	f.removedPeer, f.removedID = peer, id
	return nil
}

func TestHandleCycleLocalOriginDeliversViaCallerRegistry(t *testing.T) {
	store := requests.NewStore(nil, nil)
	req := requests.New("a@h", "caller1", "Math", "square", []any{7})
	store.InsertHandling(req)

	callerReg := caller.New()
	ch := callerReg.Register(req.ID)

	task := NewHandleTask("a@h", store, &fakeApplier{result: 49}, &fakeDeliverer{delivered: make(chan struct{})}, callerReg, time.Second, nil)
	task.cycle(context.Background())

	select {
	case resp := <-ch:
		if !resp.OK || resp.Result != 49 {
			t.Errorf("unexpected response: %+v", resp)
		}
	case <-time.After(time.Second):
		t.Fatal("local delivery did not arrive")
	}

	waitForEmpty(t, func() int { return len(store.GetHandling()) })
}

func TestHandleCycleRemoteOriginUsesClient(t *testing.T) {
	store := requests.NewStore(nil, nil)
	req := requests.New("b@h", "caller1", "Math", "square", []any{7})
	store.InsertHandling(req)

	deliverer := &fakeDeliverer{delivered: make(chan struct{})}
	task := NewHandleTask("a@h", store, &fakeApplier{result: 49}, deliverer, caller.New(), time.Second, nil)
	task.cycle(context.Background())

	select {
	case <-deliverer.delivered:
	case <-time.After(time.Second):
		t.Fatal("DeliverResult was not called for a remote origin")
	}
}

func TestHandleCycleExecutionErrorStillDelivers(t *testing.T) {
	store := requests.NewStore(nil, nil)
	req := requests.New("a@h", "caller1", "Math", "square", []any{7})
	store.InsertHandling(req)

	callerReg := caller.New()
	ch := callerReg.Register(req.ID)

	task := NewHandleTask("a@h", store, &fakeApplier{err: errors.New("boom")}, &fakeDeliverer{delivered: make(chan struct{})}, callerReg, time.Second, nil)
	task.cycle(context.Background())

	select {
	case resp := <-ch:
		if resp.OK {
			t.Error("expected OK=false on execution error")
		}
		if resp.ErrorInfo == "" {
			t.Error("expected a non-empty ErrorInfo")
		}
	case <-time.After(time.Second):
		t.Fatal("local delivery did not arrive")
	}
}

func waitForEmpty(t *testing.T, count func() int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if count() == 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected count to reach 0, got %d", count())
}
