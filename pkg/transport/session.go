// Package transport connects the negotiation controller to a session
// server over a websocket. Inform messages are dispatched synchronously
// into the controller in arrival order, so the decision core stays
// single-threaded: one read loop, one handler at a time.
package transport

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
	"k8s.io/klog/v2"

	"ubna/pkg/agent"
	"ubna/pkg/negotiation"
)

// Inform message types received from the session server.
const (
	InformSettings = "settings"
	InformOffer    = "offer"
	InformAccept   = "accept"
	InformYourTurn = "yourTurn"
	InformFinished = "finished"
)

// Inform is one protocol message from the session server.
type Inform struct {
	Type     string            `json:"type"`
	Actor    string            `json:"actor,omitempty"`
	Bid      map[string]string `json:"bid,omitempty"`
	Progress float64           `json:"progress,omitempty"`
	Opponent string            `json:"opponent,omitempty"`
}

// actionMessage is one outbound action to the session server.
type actionMessage struct {
	Type string            `json:"type"`
	Bid  map[string]string `json:"bid,omitempty"`
}

// Session drives one negotiation session over an established websocket.
type Session struct {
	conn       *websocket.Conn
	controller *agent.Controller
	partyID    string

	opponent string
	progress float64
}

// Dial connects to the session server and returns a ready session.
func Dial(url, partyID string, controller *agent.Controller) (*Session, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial session server: %w", err)
	}
	return &Session{conn: conn, controller: controller, partyID: partyID}, nil
}

// NewSession wraps an already-established connection, used by tests.
func NewSession(conn *websocket.Conn, partyID string, controller *agent.Controller) *Session {
	return &Session{conn: conn, controller: controller, partyID: partyID}
}

// Run reads inform messages until the session finishes or the context
// is cancelled, and returns the session summary.
func (s *Session) Run(ctx context.Context) (agent.Summary, error) {
	defer s.conn.Close()

	// ReadJSON blocks; cancelling the context closes the connection so
	// the read loop actually terminates.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.conn.Close()
		case <-done:
		}
	}()

	for {
		var inform Inform
		if err := s.conn.ReadJSON(&inform); err != nil {
			if ctx.Err() != nil {
				return s.finish(), ctx.Err()
			}
			return s.finish(), fmt.Errorf("read inform: %w", err)
		}

		switch inform.Type {
		case InformSettings:
			s.opponent = inform.Opponent
			klog.InfoS("Session settings received", "opponent", s.opponent)

		case InformOffer:
			if inform.Actor == s.partyID {
				continue // our own action echoed back
			}
			s.controller.HandleOffer(negotiation.Bid(inform.Bid))

		case InformAccept:
			if inform.Actor != s.partyID {
				s.controller.RecordAgreement(negotiation.Bid(inform.Bid))
			}

		case InformYourTurn:
			s.progress = inform.Progress
			action := s.controller.HandleTurn(inform.Progress)
			if err := s.send(action); err != nil {
				return s.finish(), err
			}

		case InformFinished:
			klog.InfoS("Session finished", "progress", s.progress)
			return s.finish(), nil

		default:
			klog.V(2).InfoS("Unknown inform ignored", "type", inform.Type)
		}
	}
}

func (s *Session) send(action negotiation.Action) error {
	msg := actionMessage{Type: string(action.Kind), Bid: action.Bid}
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send action: %w", err)
	}
	return nil
}

func (s *Session) finish() agent.Summary {
	sum := s.controller.HandleSessionEnd()
	sum.Opponent = s.opponent
	return sum
}
