// Package hub is the registry actor for running live-session loops, keyed by
// session id. The durable store is what limits the system to one active
// session; the hub just tracks whichever loops are running in this process.
package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/hoopday/pickup-stats-backend/internal/live"
	"github.com/hoopday/pickup-stats-backend/internal/session"
	"github.com/hoopday/pickup-stats-backend/internal/snapshot"
	"github.com/hoopday/pickup-stats-backend/internal/store"
)

type HubMsg interface{ isHubMsg() }

type StartReply struct {
	Loop    *live.Loop
	Session *store.LiveSession
	Err     error
}

type StartLive struct {
	Date     string
	Location string
	Players  []string
	Reply    chan StartReply
}

type ResumeReply struct {
	Loop *live.Loop
	Err  error
}

type ResumeLive struct {
	SessionID string
	Reply     chan ResumeReply
}

type GetLive struct {
	SessionID string
	Reply     chan *live.Loop
}

type RemoveLive struct{ SessionID string }

type ShutdownHub struct{}

func (StartLive) isHubMsg()   {}
func (ResumeLive) isHubMsg()  {}
func (GetLive) isHubMsg()     {}
func (RemoveLive) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox  chan HubMsg
	loops  map[string]*live.Loop
	ctx    context.Context
	cancel context.CancelFunc

	store store.Store
	snaps snapshot.Store
	log   *zap.Logger
	opts  []session.Option
}

func NewHub(parent context.Context, st store.Store, snaps snapshot.Store, log *zap.Logger, opts ...session.Option) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		loops:  make(map[string]*live.Loop),
		ctx:    ctx,
		cancel: cancel,
		store:  st,
		snaps:  snaps,
		log:    log.Named("hub"),
		opts:   opts,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case StartLive:
				ctrl := session.New(h.store, h.snaps, h.log, h.opts...)
				sess, err := ctrl.Start(h.ctx, msg.Date, msg.Location, msg.Players)
				if err != nil {
					msg.Reply <- StartReply{Err: err}
					break
				}
				lp := h.register(sess.ID, ctrl)
				msg.Reply <- StartReply{Loop: lp, Session: sess}

			case ResumeLive:
				if lp := h.loops[msg.SessionID]; lp != nil {
					msg.Reply <- ResumeReply{Loop: lp}
					break
				}
				ctrl := session.New(h.store, h.snaps, h.log, h.opts...)
				if err := ctrl.Resume(h.ctx, msg.SessionID); err != nil {
					msg.Reply <- ResumeReply{Err: err}
					break
				}
				msg.Reply <- ResumeReply{Loop: h.register(msg.SessionID, ctrl)}

			case GetLive:
				msg.Reply <- h.loops[msg.SessionID] // May be nil

			case RemoveLive:
				delete(h.loops, msg.SessionID)

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) register(sessionID string, ctrl *session.Controller) *live.Loop {
	lp := live.NewLoop(h.ctx, ctrl, func() {
		// The loop goroutine fires this; route through the inbox so only the
		// hub goroutine touches the map.
		select {
		case h.inbox <- RemoveLive{SessionID: sessionID}:
		case <-h.ctx.Done():
		}
	})
	h.loops[sessionID] = lp
	return lp
}

func (h *Hub) shutdown() {
	for _, lp := range h.loops {
		lp.Inbox() <- live.Shutdown{}
	}
	clear(h.loops)
	h.cancel()
}
