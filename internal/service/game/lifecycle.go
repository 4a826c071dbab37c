package game

import (
	"fmt"
	"time"

	appErr "toppan-service/pkg/errors"
	"toppan-service/pkg/logger"

	"go.uber.org/zap"
)

func (r *Room) setReadyLocked(p *Player, ready bool) error {
	p.Ready = ready
	return nil
}

func (r *Room) setInitialPointsLocked(p *Player, points int) error {
	if r.state.Phase != PhaseWaiting {
		return fmt.Errorf("%w: game already started", appErr.ErrWrongPhase)
	}
	if points < 0 || points > r.settings.MaxInitialPoints {
		return fmt.Errorf("%w: points must be within [0, %d]", appErr.ErrOutOfRange, r.settings.MaxInitialPoints)
	}
	p.InitialPoints = intPtr(points)
	if p.Bet != nil && p.Seat != r.state.DealerSeat {
		p.Bet = intPtr(clamp(*p.Bet, 0, points))
	}
	return nil
}

func (r *Room) startGameLocked(sid string) error {
	if r.state.Phase != PhaseWaiting {
		return fmt.Errorf("%w: game already started", appErr.ErrWrongPhase)
	}
	if sid != r.hostSID {
		return appErr.ErrNotHost
	}
	if r.seatedCountLocked() < 2 {
		return appErr.ErrNotEnoughPlayers
	}

	dora, wall := r.freshWallLocked()
	for _, p := range r.seatedLocked() {
		if p.InitialPoints != nil {
			p.Points = *p.InitialPoints
		} else {
			p.Points = r.settings.InitialPoints
		}
		p.Ready = false
		p.resetRound()
	}

	// Seat 0 deals when occupied, otherwise the first seated player after it.
	dealer := 0
	if r.seats[0] == nil {
		dealer, _ = r.nextSeatedLocked(0)
	}

	r.cancelAdvanceLocked()
	r.round = 0
	r.state = GameState{
		Phase:             PhaseResetPrompt,
		Wall:              wall,
		DealerSeat:        dealer,
		DealerFirstHidden: true,
		Dora:              dora,
	}

	logger.Log.Info("game started",
		zap.String("roomID", r.id),
		zap.Int("players", r.seatedCountLocked()),
		zap.Int("dealerSeat", dealer),
	)
	return nil
}

// freshWallLocked shuffles a full set and splits off the dora reference block.
func (r *Room) freshWallLocked() (dora, wall []Tile) {
	dora, wall = splitDora(NewWall(r.shuffle), r.settings.DoraCount)
	SortTiles(dora)
	return dora, wall
}

func (r *Room) dealerResetLocked(sid string, reset bool) error {
	if r.state.Phase != PhaseResetPrompt {
		return fmt.Errorf("%w: not in reset prompt", appErr.ErrWrongPhase)
	}
	dealer := r.dealerLocked()
	if dealer == nil || dealer.SessionID != sid {
		return appErr.ErrNotDealer
	}

	if reset {
		r.state.Dora, r.state.Wall = r.freshWallLocked()
	} else {
		required := r.settings.InitialHandSize * r.seatedCountLocked()
		if len(r.state.Wall) < required {
			return appErr.ErrWallInsufficient
		}
	}

	r.prepareBettingLocked()
	return nil
}

func (r *Room) prepareBettingLocked() {
	for _, p := range r.seatedLocked() {
		p.resetRound()
	}
	r.dealInitialLocked()
	r.state.Phase = PhaseBetting
	r.state.TurnSeat = nil
	r.state.DealerFirstHidden = true
	r.state.Results = nil
}

// dealInitialLocked tops every seated hand up to the initial size while the
// wall lasts. Players sitting out the round are skipped.
func (r *Room) dealInitialLocked() {
	for _, p := range r.seatedLocked() {
		if p.Status != StatusPlaying {
			continue
		}
		for len(p.Hand) < r.settings.InitialHandSize && len(r.state.Wall) > 0 {
			p.Hand = append(p.Hand, r.popWallLocked())
		}
	}
}

func (r *Room) popWallLocked() Tile {
	last := len(r.state.Wall) - 1
	t := r.state.Wall[last]
	r.state.Wall = r.state.Wall[:last]
	return t
}

func (r *Room) setBetLocked(p *Player, bet int) error {
	if r.state.Phase != PhaseBetting {
		return fmt.Errorf("%w: not in betting phase", appErr.ErrWrongPhase)
	}
	if p.Seat == r.state.DealerSeat {
		return appErr.ErrDealerNoBet
	}
	if bet < 0 || bet > r.settings.MaxBet {
		return fmt.Errorf("%w: bet must be within [0, %d]", appErr.ErrOutOfRange, r.settings.MaxBet)
	}
	p.Bet = intPtr(clamp(bet, 0, p.available()))

	if r.allChildrenBetLocked() {
		r.startPlayingLocked()
	}
	return nil
}

func (r *Room) allChildrenBetLocked() bool {
	for _, p := range r.seatedLocked() {
		if p.Seat == r.state.DealerSeat {
			continue
		}
		if p.Bet == nil {
			return false
		}
	}
	return true
}

func (r *Room) startPlayingLocked() {
	r.dealInitialLocked()
	r.state.Phase = PhasePlaying
	r.state.TurnSeat = intPtr(r.state.DealerSeat)
}

// newGameLocked returns the room to waiting. Seats and balances are kept;
// balances are reset again by the next start.
func (r *Room) newGameLocked(sid string) error {
	if sid != r.hostSID {
		return appErr.ErrNotHost
	}
	r.resetToWaitingLocked()
	return nil
}

func (r *Room) resetToWaitingLocked() {
	r.cancelAdvanceLocked()
	for _, p := range r.seatedLocked() {
		p.Ready = false
		p.resetRound()
	}
	r.round = 0
	r.state = GameState{Phase: PhaseWaiting, DealerFirstHidden: true}
}

// scheduleAdvanceLocked arms the automatic move from ended to the next
// reset prompt. The callback re-checks generation and phase under the lock,
// so a new game or a disposed room turns it into a no-op.
func (r *Room) scheduleAdvanceLocked() {
	r.cancelAdvanceLocked()
	gen := r.generation
	r.timer = time.AfterFunc(r.settings.SettleDelay, func() {
		r.advance(gen)
	})
}

func (r *Room) cancelAdvanceLocked() {
	r.generation++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Room) advance(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || gen != r.generation || r.state.Phase != PhaseEnded {
		return
	}
	r.timer = nil
	r.startNextRoundLocked()
	r.broadcastStateLocked()
}

// startNextRoundLocked carries the wall, dora and (possibly rotated) dealer
// into a fresh reset prompt.
func (r *Room) startNextRoundLocked() {
	for _, p := range r.seatedLocked() {
		p.resetRound()
	}
	prev := r.state
	r.state = GameState{
		Phase:             PhaseResetPrompt,
		Wall:              prev.Wall,
		DealerSeat:        prev.DealerSeat,
		DealerFirstHidden: true,
		Dora:              prev.Dora,
	}
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
