package game

import (
	"fmt"

	appErr "toppan-service/pkg/errors"
)

// checkTurnLocked validates that p may act right now.
func (r *Room) checkTurnLocked(p *Player) error {
	if r.state.Phase != PhasePlaying {
		return fmt.Errorf("%w: not in playing phase", appErr.ErrWrongPhase)
	}
	if r.state.TurnSeat == nil || *r.state.TurnSeat != p.Seat {
		return appErr.ErrNotYourTurn
	}
	if p.Status != StatusPlaying {
		return appErr.ErrNotPlaying
	}
	return nil
}

// drawLocked pops one tile into p's hand. An empty wall settles the round
// and is reported to the drawer as ErrWallEmpty.
func (r *Room) drawLocked(p *Player) (Tile, error) {
	if err := r.checkTurnLocked(p); err != nil {
		return "", err
	}
	if len(r.state.Wall) == 0 {
		r.endRoundLocked()
		return "", appErr.ErrWallEmpty
	}

	tile := r.popWallLocked()
	p.Hand = append(p.Hand, tile)

	if HandTotal(p.Hand) > Target && !IsSpecialRole(p.Hand) {
		p.Status = StatusBust
		if p.Seat == r.state.DealerSeat {
			r.endRoundLocked()
		} else {
			r.advanceTurnLocked(p.Seat)
		}
	}
	return tile, nil
}

func (r *Room) stayLocked(p *Player) error {
	if err := r.checkTurnLocked(p); err != nil {
		return err
	}
	p.Status = StatusStay
	if p.Seat == r.state.DealerSeat && IsSpecialRole(p.Hand) {
		r.endRoundLocked()
		return nil
	}
	r.advanceTurnLocked(p.Seat)
	return nil
}

// advanceTurnLocked hands the turn to the next playing seat after from, or
// settles when nobody is left.
func (r *Room) advanceTurnLocked(from int) {
	next, ok := r.nextActiveLocked(from)
	if !ok {
		r.endRoundLocked()
		return
	}
	r.state.TurnSeat = intPtr(next)
}
