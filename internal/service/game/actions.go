package game

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	appErr "toppan-service/pkg/errors"
	"toppan-service/pkg/logger"

	"go.uber.org/zap"
)

// Actions accepted from a seated session.
const (
	ActionCreateRoom       = "create_room"
	ActionJoinRoom         = "join_room"
	ActionLeaveRoom        = "leave_room"
	ActionSetReady         = "set_ready"
	ActionSetInitialPoints = "set_initial_points"
	ActionStartGame        = "start_game"
	ActionSetBet           = "set_bet_points"
	ActionDealerReset      = "dealer_reset"
	ActionDrawTile         = "draw_tile"
	ActionStay             = "stay"
	ActionNewGame          = "new_game"
	ActionState            = "state"
	ActionPing             = "ping"
)

type readyPayload struct {
	Ready *bool `json:"ready"`
}

type pointsPayload struct {
	Points json.RawMessage `json:"points"`
}

type betPayload struct {
	Bet json.RawMessage `json:"bet"`
}

type resetPayload struct {
	Reset bool `json:"reset"`
}

// DrawResult is the acknowledgement data of a successful draw.
type DrawResult struct {
	Tile Tile `json:"tile"`
}

// HandleAction runs one action for sid. Payloads are decoded before the room
// is locked; a rejected action leaves the room unchanged.
func (r *Room) HandleAction(sid, action string, data json.RawMessage) (interface{}, error) {
	var (
		ready  = true
		number int
		reset  bool
	)
	switch action {
	case ActionSetReady:
		var payload readyPayload
		if err := decodePayload(data, &payload); err != nil {
			return nil, err
		}
		if payload.Ready != nil {
			ready = *payload.Ready
		}
	case ActionSetInitialPoints:
		var payload pointsPayload
		if err := decodePayload(data, &payload); err != nil {
			return nil, err
		}
		n, err := ParseInteger(payload.Points)
		if err != nil {
			return nil, fmt.Errorf("%w: points", err)
		}
		number = n
	case ActionSetBet:
		var payload betPayload
		if err := decodePayload(data, &payload); err != nil {
			return nil, err
		}
		n, err := ParseInteger(payload.Bet)
		if err != nil {
			return nil, fmt.Errorf("%w: bet", err)
		}
		number = n
	case ActionDealerReset:
		var payload resetPayload
		if err := decodePayload(data, &payload); err != nil {
			return nil, err
		}
		reset = payload.Reset
	case ActionStartGame, ActionDrawTile, ActionStay, ActionNewGame, ActionState, ActionPing:
	default:
		return nil, fmt.Errorf("%w: %s", appErr.ErrUnsupportedAction, action)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, appErr.ErrRoomNotFound
	}
	p, ok := r.players[sid]
	if !ok {
		return nil, appErr.ErrPlayerNotFound
	}

	var (
		result interface{}
		err    error
	)
	switch action {
	case ActionSetReady:
		err = r.setReadyLocked(p, ready)
	case ActionSetInitialPoints:
		err = r.setInitialPointsLocked(p, number)
	case ActionStartGame:
		err = r.startGameLocked(sid)
	case ActionSetBet:
		err = r.setBetLocked(p, number)
	case ActionDealerReset:
		err = r.dealerResetLocked(sid, reset)
	case ActionDrawTile:
		var tile Tile
		tile, err = r.drawLocked(p)
		if err == nil {
			result = DrawResult{Tile: tile}
		}
	case ActionStay:
		err = r.stayLocked(p)
	case ActionNewGame:
		err = r.newGameLocked(sid)
	case ActionState:
		r.pushStateLocked(sid)
		return nil, nil
	case ActionPing:
		return map[string]string{"message": "pong"}, nil
	}

	// An empty-wall draw still settled the round, so everyone needs the new state.
	if err == nil || errors.Is(err, appErr.ErrWallEmpty) {
		r.broadcastStateLocked()
	}
	return result, err
}

func decodePayload(data json.RawMessage, v interface{}) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return fmt.Errorf("%w: %v", appErr.ErrInvalidPayload, err)
	}
	return nil
}

// ParseInteger accepts a JSON number or numeric string holding a whole value.
func ParseInteger(raw json.RawMessage) (int, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, appErr.ErrInvalidNumber
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal([]byte(s), &str); err != nil {
			return 0, appErr.ErrInvalidNumber
		}
		s = strings.TrimSpace(str)
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, appErr.ErrInvalidNumber
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, appErr.ErrOutOfRange
	}
	return int(f), nil
}

// join seats sid in the first open seat. Joining a room already joined is a
// no-op.
func (r *Room) join(sid, name string, outbox chan<- OutgoingMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return appErr.ErrRoomNotFound
	}
	if _, ok := r.players[sid]; ok {
		if outbox != nil {
			r.subscribers[sid] = outbox
		}
		r.pushStateLocked(sid)
		return nil
	}
	seat, ok := r.firstOpenSeatLocked()
	if !ok {
		return appErr.ErrRoomFull
	}

	p := &Player{
		SessionID: sid,
		Name:      name,
		Seat:      seat,
		Status:    StatusPlaying,
		Points:    r.settings.InitialPoints,
	}
	// Mid-round joiners sit the round out.
	if r.state.Phase == PhasePlaying || r.state.Phase == PhaseEnded {
		p.Status = StatusStay
	}
	r.seats[seat] = p
	r.players[sid] = p
	if r.hostSID == "" {
		r.hostSID = sid
	}
	if outbox != nil {
		r.subscribers[sid] = outbox
	}

	logger.Log.Info("player joined",
		zap.String("roomID", r.id),
		zap.String("sessionID", sid),
		zap.Int("seat", seat),
	)
	r.broadcastStateLocked()
	return nil
}

func (r *Room) resubscribe(sid string, outbox chan<- OutgoingMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.players[sid]; !ok || r.closed {
		return
	}
	r.subscribers[sid] = outbox
	r.pushStateLocked(sid)
}

// leave frees sid's seat and reports whether the room is now empty. An
// emptied room is closed and its pending advance cancelled.
func (r *Room) leave(sid string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.subscribers, sid)
	p, ok := r.players[sid]
	if !ok {
		if len(r.players) > 0 {
			return false
		}
		r.closed = true
		r.cancelAdvanceLocked()
		return true
	}
	delete(r.players, sid)
	r.seats[p.Seat] = nil

	if r.hostSID == sid {
		r.hostSID = ""
		if seated := r.seatedLocked(); len(seated) > 0 {
			r.hostSID = seated[0].SessionID
		}
	}

	logger.Log.Info("player left",
		zap.String("roomID", r.id),
		zap.String("sessionID", sid),
		zap.Int("seat", p.Seat),
	)

	if len(r.players) == 0 {
		r.closed = true
		r.cancelAdvanceLocked()
		return true
	}

	r.handleDepartureLocked(p)
	r.broadcastStateLocked()
	return false
}

// handleDepartureLocked keeps the state machine live after p left: the
// dealer role and the turn never stay on an empty seat.
func (r *Room) handleDepartureLocked(p *Player) {
	st := &r.state
	if st.Phase == PhaseWaiting {
		return
	}
	if r.seatedCountLocked() < 2 {
		r.resetToWaitingLocked()
		return
	}

	if p.Seat == st.DealerSeat {
		if next, ok := r.nextSeatedLocked(p.Seat); ok {
			st.DealerSeat = next
			r.seats[next].Bet = nil
			logger.Log.Info("dealer reassigned",
				zap.String("roomID", r.id),
				zap.Int("fromSeat", p.Seat),
				zap.Int("toSeat", next),
			)
		}
	}

	switch st.Phase {
	case PhaseBetting:
		if r.allChildrenBetLocked() {
			r.startPlayingLocked()
		}
	case PhasePlaying:
		if st.TurnSeat != nil && *st.TurnSeat == p.Seat {
			r.advanceTurnLocked(p.Seat)
		} else if !r.anyPlayingLocked() {
			r.endRoundLocked()
		}
	}
}

// closeIfEmpty closes the room when nobody is seated and it was created at
// or before cutoff. It reports whether the room is closed.
func (r *Room) closeIfEmpty(cutoff time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return true
	}
	if len(r.players) > 0 || r.createdAt.After(cutoff) {
		return false
	}
	r.closed = true
	r.cancelAdvanceLocked()
	return true
}

// close disposes the room regardless of occupancy.
func (r *Room) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.cancelAdvanceLocked()
}
