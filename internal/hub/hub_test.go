package hub

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hoopday/pickup-stats-backend/internal/live"
	"github.com/hoopday/pickup-stats-backend/internal/snapshot"
	"github.com/hoopday/pickup-stats-backend/internal/store/storetest"
)

var testPlayers = []string{"ana", "ben", "cal", "dee"}

func newHub(t *testing.T) (*Hub, *storetest.Memory) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	st := storetest.NewMemory()
	return NewHub(ctx, st, snapshot.NewMemory(), zap.NewNop()), st
}

func startLive(t *testing.T, h *Hub) StartReply {
	t.Helper()
	reply := make(chan StartReply, 1)
	h.Inbox() <- StartLive{Date: "2025-06-14", Players: testPlayers, Reply: reply}
	select {
	case r := <-reply:
		return r
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for start reply")
		return StartReply{} // unreachable
	}
}

func TestHub_Start_Get_SamePointer(t *testing.T) {
	h, _ := newHub(t)

	started := startLive(t, h)
	if started.Err != nil {
		t.Fatalf("start live: %v", started.Err)
	}
	if started.Loop == nil || started.Session == nil {
		t.Fatalf("start reply incomplete: %+v", started)
	}

	reply := make(chan *live.Loop, 1)
	h.Inbox() <- GetLive{SessionID: started.Session.ID, Reply: reply}
	if got := <-reply; got != started.Loop {
		t.Fatalf("expected same loop pointer")
	}
}

func TestHub_Start_ValidationErrorPropagates(t *testing.T) {
	h, _ := newHub(t)

	reply := make(chan StartReply, 1)
	h.Inbox() <- StartLive{Date: "2025-06-14", Players: []string{"ana"}, Reply: reply}
	r := <-reply
	if r.Err == nil {
		t.Fatalf("expected too-few-players rejection")
	}
	if r.Loop != nil {
		t.Fatalf("no loop should be registered on failure")
	}
}

func TestHub_Get_UnknownSessionIsNil(t *testing.T) {
	h, _ := newHub(t)

	reply := make(chan *live.Loop, 1)
	h.Inbox() <- GetLive{SessionID: "nope", Reply: reply}
	if got := <-reply; got != nil {
		t.Fatalf("expected nil loop for unknown session, got %v", got)
	}
}

func TestHub_Resume_RegistersLoop(t *testing.T) {
	h, st := newHub(t)
	started := startLive(t, h)
	if started.Err != nil {
		t.Fatalf("start live: %v", started.Err)
	}

	// Stop the in-process loop. The row stays active in the store, exactly
	// like a session left behind by a crashed process.
	started.Loop.Inbox() <- live.Shutdown{}
	waitRemoved(t, h, started.Session.ID)
	if st.Sessions[started.Session.ID].Status != "active" {
		t.Fatalf("session should still be active in the store")
	}

	reply := make(chan ResumeReply, 1)
	h.Inbox() <- ResumeLive{SessionID: started.Session.ID, Reply: reply}
	r := <-reply
	if r.Err != nil {
		t.Fatalf("resume live: %v", r.Err)
	}
	if r.Loop == nil {
		t.Fatalf("expected a running loop after resume")
	}

	// Resuming again returns the already running loop.
	h.Inbox() <- ResumeLive{SessionID: started.Session.ID, Reply: reply}
	again := <-reply
	if again.Loop != r.Loop {
		t.Fatalf("expected resume to reuse the running loop")
	}
}

func TestHub_Resume_UnknownSession(t *testing.T) {
	h, _ := newHub(t)

	reply := make(chan ResumeReply, 1)
	h.Inbox() <- ResumeLive{SessionID: "nope", Reply: reply}
	if r := <-reply; r.Err == nil {
		t.Fatalf("expected not-found error")
	}
}

func TestHub_TerminalSessionDropsRegistryEntry(t *testing.T) {
	h, _ := newHub(t)
	started := startLive(t, h)
	if started.Err != nil {
		t.Fatalf("start live: %v", started.Err)
	}

	errReply := make(chan error, 1)
	started.Loop.Inbox() <- live.FromClient{Cmd: live.Command{Type: live.CmdAbandon}, Reply: errReply}
	if err := <-errReply; err != nil {
		t.Fatalf("abandon: %v", err)
	}

	waitRemoved(t, h, started.Session.ID)
}

// waitRemoved polls until the hub registry no longer knows the session. The
// loop's onStop goes through the hub inbox, so removal is asynchronous.
func waitRemoved(t *testing.T, h *Hub, sessionID string) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		reply := make(chan *live.Loop, 1)
		h.Inbox() <- GetLive{SessionID: sessionID, Reply: reply}
		if got := <-reply; got == nil {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("loop never removed from registry")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
