package game

import (
	"toppan-service/pkg/logger"

	"go.uber.org/zap"
)

type OutgoingMessage struct {
	Type string      `json:"type"`
	Seq  int64       `json:"seq"`
	Data interface{} `json:"data"`
}

type PlayerView struct {
	Seat          int    `json:"seat"`
	SeatLabel     string `json:"seatLabel"`
	Name          string `json:"name"`
	Ready         bool   `json:"ready"`
	Hand          []Tile `json:"hand"`
	HandCount     int    `json:"handCount"`
	Status        Status `json:"status"`
	Points        int    `json:"points"`
	InitialPoints *int   `json:"initialPoints"`
	Bet           *int   `json:"bet"`
	IsHost        bool   `json:"isHost"`
	IsDealer      bool   `json:"isDealer"`
}

type RoomState struct {
	RoomID            string       `json:"roomId"`
	HostSeat          *int         `json:"hostSeat"`
	Phase             Phase        `json:"phase"`
	Round             int          `json:"round"`
	TurnSeat          *int         `json:"turnSeat"`
	WallCount         int          `json:"wallCount"`
	Players           []PlayerView `json:"players"`
	Seats             []string     `json:"seats"`
	DoraDisplays      []Tile       `json:"doraDisplays"`
	Results           *RoundResult `json:"results"`
	DealerSeat        int          `json:"dealerSeat"`
	DealerFirstHidden bool         `json:"dealerFirstHidden"`
	YouSeat           *int         `json:"youSeat"`
}

// ViewHand is what viewerSeat sees of a hand held at holderSeat. Only the
// dealer's first tile is ever concealed, and never from the dealer.
func ViewHand(hand []Tile, holderSeat, viewerSeat, dealerSeat int, hidden bool) []Tile {
	out := append([]Tile{}, hand...)
	if holderSeat != viewerSeat && holderSeat == dealerSeat && hidden && len(out) > 0 {
		out[0] = ConcealedTile
	}
	return out
}

// ExportState builds the snapshot as seen by sid.
func (r *Room) ExportState(sid string) RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exportStateLocked(sid)
}

func (r *Room) exportStateLocked(sid string) RoomState {
	st := r.state
	viewerSeat := -1
	var you *int
	if p, ok := r.players[sid]; ok {
		viewerSeat = p.Seat
		you = intPtr(p.Seat)
	}

	state := RoomState{
		RoomID:            r.id,
		Phase:             st.Phase,
		Round:             r.round,
		WallCount:         len(st.Wall),
		Players:           make([]PlayerView, 0, SeatCount),
		Seats:             SeatLabels[:],
		DoraDisplays:      append([]Tile{}, st.Dora...),
		Results:           st.Results,
		DealerSeat:        st.DealerSeat,
		DealerFirstHidden: st.DealerFirstHidden,
		YouSeat:           you,
	}
	if st.TurnSeat != nil {
		state.TurnSeat = intPtr(*st.TurnSeat)
	}
	if seat, ok := r.hostSeatLocked(); ok {
		state.HostSeat = intPtr(seat)
	}

	for _, p := range r.seatedLocked() {
		view := PlayerView{
			Seat:      p.Seat,
			SeatLabel: SeatLabels[p.Seat],
			Name:      p.Name,
			Ready:     p.Ready,
			Hand:      ViewHand(p.Hand, p.Seat, viewerSeat, st.DealerSeat, st.DealerFirstHidden),
			HandCount: len(p.Hand),
			Status:    p.Status,
			Points:    p.Points,
			IsHost:    p.SessionID == r.hostSID,
			IsDealer:  p.Seat == st.DealerSeat,
		}
		if p.InitialPoints != nil {
			view.InitialPoints = intPtr(*p.InitialPoints)
		}
		if p.Bet != nil {
			view.Bet = intPtr(*p.Bet)
		}
		state.Players = append(state.Players, view)
	}
	return state
}

func (r *Room) pushStateLocked(sid string) {
	r.pushMessageLocked(sid, OutgoingMessage{
		Type: "state",
		Seq:  r.nextSeqLocked(),
		Data: r.exportStateLocked(sid),
	})
}

func (r *Room) broadcastStateLocked() {
	stateSeq := r.nextSeqLocked()
	for sid, ch := range r.subscribers {
		msg := OutgoingMessage{
			Type: "state",
			Seq:  stateSeq,
			Data: r.exportStateLocked(sid),
		}
		select {
		case ch <- msg:
		default:
			logger.Log.Warn("ws subscriber channel full", zap.String("sessionID", sid), zap.String("roomID", r.id))
		}
	}
}

func (r *Room) pushMessageLocked(sid string, msg OutgoingMessage) {
	if ch, ok := r.subscribers[sid]; ok {
		select {
		case ch <- msg:
		default:
			logger.Log.Warn("ws subscriber channel full", zap.String("sessionID", sid), zap.String("roomID", r.id))
		}
	}
}

func (r *Room) nextSeqLocked() int64 {
	r.seq++
	return r.seq
}
