// Package live runs one active session as a single-goroutine actor: all
// operator commands funnel through an inbox, and every accepted transition is
// broadcast to subscribers as a versioned snapshot.
package live

import (
	"context"
	"errors"

	"github.com/hoopday/pickup-stats-backend/internal/roster"
	"github.com/hoopday/pickup-stats-backend/internal/session"
)

var ErrUnsupportedCommand = errors.New("unsupported command")

type Msg interface{ isLiveMsg() }

type CommandType string

const (
	CmdReportWinner    CommandType = "ReportWinner"
	CmdSelectStayers   CommandType = "SelectStayers"
	CmdSelectJoiners   CommandType = "SelectJoiners"
	CmdConfirmRotation CommandType = "ConfirmRotation"
	CmdReshoot         CommandType = "Reshoot"
	CmdSetTeams        CommandType = "SetTeams"
	CmdAddPlayer       CommandType = "AddPlayer"
	CmdUndo            CommandType = "Undo"
	CmdEnd             CommandType = "End"
	CmdAbandon         CommandType = "Abandon"
)

// Command is one operator action against the live session.
type Command struct {
	Type   CommandType
	Team   roster.Team
	Names  []string
	TeamA  []string
	TeamB  []string
	Bench  []string
	Player string
}

type FromClient struct {
	Cmd Command
	// Reply receives the command's outcome (nil on success). Buffered by the
	// sender; the loop never blocks on it.
	Reply chan error
}

func (FromClient) isLiveMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot
}

func (Join) isLiveMsg() {}

type Leave struct{ ClientID string }

func (Leave) isLiveMsg() {}

type Shutdown struct{}

func (Shutdown) isLiveMsg() {}

type GetState struct {
	Reply chan StateReply
}

func (GetState) isLiveMsg() {}

type StateReply struct {
	Version    int
	NumClients int
	View       session.View
}

// Snapshot is what subscribers receive after every accepted transition.
type Snapshot struct {
	Version int          `json:"version"`
	View    session.View `json:"view"`
}

// Loop owns one session.Controller. Only the loop goroutine touches it.
type Loop struct {
	inbox   chan Msg
	ctrl    *session.Controller
	version int
	clients map[string]chan Snapshot
	ctx     context.Context
	cancel  context.CancelFunc
	onStop  func()
}

// NewLoop starts the actor around an already started or resumed controller.
// onStop, if non-nil, fires once when the loop shuts down (the hub uses it to
// drop its registry entry).
func NewLoop(parent context.Context, ctrl *session.Controller, onStop func()) *Loop {
	ctx, cancel := context.WithCancel(parent)
	l := &Loop{
		inbox:   make(chan Msg, 64),
		ctrl:    ctrl,
		clients: make(map[string]chan Snapshot),
		ctx:     ctx,
		cancel:  cancel,
		onStop:  onStop,
	}
	go l.loop()
	return l
}

func (l *Loop) Inbox() chan<- Msg { return l.inbox }

func (l *Loop) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				l.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- Snapshot{Version: l.version, View: l.ctrl.View()}

			case Leave:
				delete(l.clients, msg.ClientID)

			case FromClient:
				terminal, err := l.apply(msg.Cmd)
				if msg.Reply != nil {
					msg.Reply <- err
				}
				if err != nil {
					break
				}
				l.version++
				l.broadcast(Snapshot{Version: l.version, View: l.ctrl.View()})
				if terminal {
					l.shutdown()
					return
				}

			case GetState:
				msg.Reply <- StateReply{
					Version:    l.version,
					NumClients: len(l.clients),
					View:       l.ctrl.View(),
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

// apply executes one command against the controller. terminal is true when
// the session reached a terminal state and the loop should stop after
// broadcasting the final snapshot.
func (l *Loop) apply(cmd Command) (terminal bool, err error) {
	switch cmd.Type {
	case CmdReportWinner:
		_, err := l.ctrl.ReportWinner(l.ctx, cmd.Team)
		return false, err
	case CmdSelectStayers:
		return false, l.ctrl.SelectStayers(cmd.Names)
	case CmdSelectJoiners:
		return false, l.ctrl.SelectJoiners(cmd.Names)
	case CmdConfirmRotation:
		return false, l.ctrl.ConfirmRotation()
	case CmdReshoot:
		return false, l.ctrl.Reshoot()
	case CmdSetTeams:
		return false, l.ctrl.SetTeams(cmd.TeamA, cmd.TeamB, cmd.Bench)
	case CmdAddPlayer:
		return false, l.ctrl.AddPlayer(l.ctx, cmd.Player)
	case CmdUndo:
		return false, l.ctrl.Undo(l.ctx)
	case CmdEnd:
		_, err := l.ctrl.End(l.ctx)
		return err == nil, err
	case CmdAbandon:
		err := l.ctrl.Abandon(l.ctx)
		return err == nil, err
	default:
		return false, ErrUnsupportedCommand
	}
}

func (l *Loop) shutdown() {
	for id, ch := range l.clients {
		close(ch)
		delete(l.clients, id)
	}
	l.cancel()
	if l.onStop != nil {
		l.onStop()
		l.onStop = nil
	}
}

func (l *Loop) broadcast(snap Snapshot) {
	for id, ch := range l.clients {
		select {
		case ch <- snap:
		default:
			// Client is slow or full - drop them.
			close(ch)
			delete(l.clients, id)
		}
	}
}
