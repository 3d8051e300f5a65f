package ws

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/hoopday/pickup-stats-backend/internal/hub"
	"github.com/hoopday/pickup-stats-backend/internal/live"
	"github.com/hoopday/pickup-stats-backend/internal/roster"
)

// ClientMessage is one operator action sent over the socket.
type ClientMessage struct {
	Type   string   `json:"type"`
	Team   string   `json:"team,omitempty"`
	Names  []string `json:"names,omitempty"`
	TeamA  []string `json:"team_a,omitempty"`
	TeamB  []string `json:"team_b,omitempty"`
	Bench  []string `json:"bench,omitempty"`
	Player string   `json:"player,omitempty"`
}

// ServerMessage is either a state snapshot broadcast or a per-command error.
type ServerMessage struct {
	Type     string         `json:"type"` // "StateSnapshot" | "Error"
	Snapshot *live.Snapshot `json:"snapshot,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Handler subscribes the client to the session's snapshot stream and forwards
// its commands into the live loop.
func Handler(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session")
		if sessionID == "" {
			http.Error(w, "missing session", http.StatusBadRequest)
			return
		}

		reply := make(chan *live.Loop, 1)
		h.Inbox() <- hub.GetLive{SessionID: sessionID, Reply: reply}
		lp := <-reply
		if lp == nil {
			http.Error(w, "live session not running", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan live.Snapshot, 8)
		clientID := randID(6)

		lp.Inbox() <- live.Join{ClientID: clientID, Outbox: out}
		defer func() { lp.Inbox() <- live.Leave{ClientID: clientID} }()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				snap := snap
				msg := ServerMessage{Type: "StateSnapshot", Snapshot: &snap}
				payload, _ := json.Marshal(msg)
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeError(r.Context(), conn, "bad json")
				continue
			}

			cmd, ok := toCommand(cm)
			if !ok {
				writeError(r.Context(), conn, "unknown type")
				continue
			}

			cmdReply := make(chan error, 1)
			lp.Inbox() <- live.FromClient{Cmd: cmd, Reply: cmdReply}
			select {
			case err := <-cmdReply:
				if err != nil {
					writeError(r.Context(), conn, err.Error())
				}
			case <-time.After(10 * time.Second):
				// Loop is gone (session ended); nothing more to do here.
				return
			}
		}
	}
}

func writeError(ctx context.Context, conn *websocket.Conn, msg string) {
	payload, _ := json.Marshal(ServerMessage{Type: "Error", Error: msg})
	wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, payload)
}

func toCommand(m ClientMessage) (live.Command, bool) {
	switch m.Type {
	case "ReportWinner":
		team, ok := roster.ParseTeam(m.Team)
		if !ok {
			return live.Command{}, false
		}
		return live.Command{Type: live.CmdReportWinner, Team: team}, true
	case "SelectStayers":
		return live.Command{Type: live.CmdSelectStayers, Names: m.Names}, true
	case "SelectJoiners":
		return live.Command{Type: live.CmdSelectJoiners, Names: m.Names}, true
	case "ConfirmRotation":
		return live.Command{Type: live.CmdConfirmRotation}, true
	case "Reshoot":
		return live.Command{Type: live.CmdReshoot}, true
	case "SetTeams":
		return live.Command{Type: live.CmdSetTeams, TeamA: m.TeamA, TeamB: m.TeamB, Bench: m.Bench}, true
	case "AddPlayer":
		return live.Command{Type: live.CmdAddPlayer, Player: m.Player}, true
	case "Undo":
		return live.Command{Type: live.CmdUndo}, true
	case "EndSession":
		return live.Command{Type: live.CmdEnd}, true
	case "AbandonSession":
		return live.Command{Type: live.CmdAbandon}, true
	default:
		return live.Command{}, false
	}
}

func randID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
