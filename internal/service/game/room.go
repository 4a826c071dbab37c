package game

import (
	"sort"
	"sync"
	"time"
)

type Phase string

const (
	PhaseWaiting     Phase = "waiting"
	PhaseResetPrompt Phase = "reset_prompt"
	PhaseBetting     Phase = "betting"
	PhasePlaying     Phase = "playing"
	PhaseEnded       Phase = "ended"
)

type Status string

const (
	StatusPlaying Status = "playing"
	StatusStay    Status = "stay"
	StatusBust    Status = "bust"
)

// SeatCount is fixed; seats are labelled by compass direction.
const SeatCount = 4

var SeatLabels = [SeatCount]string{"東", "南", "西", "北"}

// Settings holds the tunable game constants.
type Settings struct {
	InitialPoints    int
	MaxInitialPoints int
	MaxBet           int
	DoraCount        int
	InitialHandSize  int
	SettleDelay      time.Duration
	// EmptyRoomTTL bounds how long a room nobody has joined stays registered.
	EmptyRoomTTL     time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		InitialPoints:    300,
		MaxInitialPoints: 1_000_000,
		MaxBet:           10,
		DoraCount:        34,
		InitialHandSize:  1,
		SettleDelay:      3 * time.Second,
		EmptyRoomTTL:     10 * time.Minute,
	}
}

// withDefaults fills zero fields from DefaultSettings.
func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.InitialPoints <= 0 {
		s.InitialPoints = d.InitialPoints
	}
	if s.MaxInitialPoints <= 0 {
		s.MaxInitialPoints = d.MaxInitialPoints
	}
	if s.MaxBet <= 0 {
		s.MaxBet = d.MaxBet
	}
	if s.DoraCount <= 0 {
		s.DoraCount = d.DoraCount
	}
	if s.InitialHandSize <= 0 {
		s.InitialHandSize = d.InitialHandSize
	}
	if s.SettleDelay <= 0 {
		s.SettleDelay = d.SettleDelay
	}
	if s.EmptyRoomTTL <= 0 {
		s.EmptyRoomTTL = d.EmptyRoomTTL
	}
	return s
}

type Player struct {
	SessionID     string
	Name          string
	Seat          int
	Hand          []Tile
	Ready         bool
	Status        Status
	Points        int
	InitialPoints *int
	Bet           *int
}

// available is the cap for this player's bet.
func (p *Player) available() int {
	if p.InitialPoints != nil {
		return *p.InitialPoints
	}
	return p.Points
}

func (p *Player) resetRound() {
	p.Hand = nil
	p.Status = StatusPlaying
	p.Bet = nil
}

type GameState struct {
	Phase             Phase
	Wall              []Tile
	TurnSeat          *int
	DealerSeat        int
	DealerFirstHidden bool
	Dora              []Tile
	Results           *RoundResult
}

// Room is one table of up to four seats. Every field is guarded by mu; methods
// with the Locked suffix expect the caller to hold it.
type Room struct {
	id        string
	settings  Settings
	shuffle   Shuffler
	createdAt time.Time

	mu      sync.Mutex
	hostSID string
	seats   [SeatCount]*Player
	players map[string]*Player
	state   GameState
	round   int
	closed  bool

	// generation invalidates scheduled round advances.
	generation uint64
	timer      *time.Timer

	subscribers map[string]chan<- OutgoingMessage
	seq         int64

	onSettled func(RoundRecord)
}

func newRoom(id string, settings Settings, shuffle Shuffler) *Room {
	if shuffle == nil {
		shuffle = RandomShuffler
	}
	return &Room{
		id:          id,
		createdAt:   time.Now(),
		settings:    settings.withDefaults(),
		shuffle:     shuffle,
		players:     make(map[string]*Player),
		state:       GameState{Phase: PhaseWaiting, DealerFirstHidden: true},
		subscribers: make(map[string]chan<- OutgoingMessage),
	}
}

func (r *Room) ID() string {
	return r.id
}

func (r *Room) seatedLocked() []*Player {
	out := make([]*Player, 0, SeatCount)
	for _, p := range r.seats {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (r *Room) seatedCountLocked() int {
	n := 0
	for _, p := range r.seats {
		if p != nil {
			n++
		}
	}
	return n
}

func (r *Room) firstOpenSeatLocked() (int, bool) {
	for i, p := range r.seats {
		if p == nil {
			return i, true
		}
	}
	return 0, false
}

func (r *Room) dealerLocked() *Player {
	return r.seats[r.state.DealerSeat]
}

// nextSeatedLocked searches forward from seat, wrapping once, for an occupied seat.
func (r *Room) nextSeatedLocked(from int) (int, bool) {
	for step := 1; step <= SeatCount; step++ {
		seat := (from + step) % SeatCount
		if r.seats[seat] != nil {
			return seat, true
		}
	}
	return 0, false
}

// nextActiveLocked searches forward from seat, wrapping once, for a seated
// player still in playing status.
func (r *Room) nextActiveLocked(from int) (int, bool) {
	for step := 1; step <= SeatCount; step++ {
		seat := (from + step) % SeatCount
		if p := r.seats[seat]; p != nil && p.Status == StatusPlaying {
			return seat, true
		}
	}
	return 0, false
}

func (r *Room) anyPlayingLocked() bool {
	for _, p := range r.seats {
		if p != nil && p.Status == StatusPlaying {
			return true
		}
	}
	return false
}

func (r *Room) hostSeatLocked() (int, bool) {
	if p, ok := r.players[r.hostSID]; ok {
		return p.Seat, true
	}
	return 0, false
}

// Summary is the lobby-facing description of a room.
type Summary struct {
	RoomID string `json:"roomId"`
	Phase  Phase  `json:"phase"`
	Seated int    `json:"seated"`
	Round  int    `json:"round"`
}

func (r *Room) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summaryLocked()
}

func (r *Room) summaryLocked() Summary {
	return Summary{RoomID: r.id, Phase: r.state.Phase, Seated: r.seatedCountLocked(), Round: r.round}
}

func sortSummaries(items []Summary) {
	sort.Slice(items, func(i, j int) bool { return items[i].RoomID < items[j].RoomID })
}

func intPtr(v int) *int {
	return &v
}
