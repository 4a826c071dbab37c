package game

import (
	"math"
	"sort"
	"time"

	"toppan-service/pkg/logger"

	"go.uber.org/zap"
)

type Outcome string

const (
	OutcomeChildWin  Outcome = "child_win"
	OutcomeDealerWin Outcome = "dealer_win"
	OutcomePush      Outcome = "push"
)

// Contender is one child's side of a settlement.
type Contender struct {
	Seat int
	Hand []Tile
	Bet  int
}

type PairResult struct {
	ChildSeat       int        `json:"childSeat"`
	Result          int        `json:"result"`
	Bet             int        `json:"bet"`
	Delta           int        `json:"delta"`
	Outcome         Outcome    `json:"outcome"`
	ChildTotal      float64    `json:"childTotal"`
	DealerTotal     float64    `json:"dealerTotal"`
	ChildRoles      []RoleItem `json:"childRoles"`
	ChildRoleTotal  int        `json:"childRoleTotal"`
	DealerRoles     []RoleItem `json:"dealerRoles"`
	DealerRoleTotal int        `json:"dealerRoleTotal"`
}

type RoundResult struct {
	DealerSeat     int          `json:"dealerSeat"`
	DealerDelta    int          `json:"dealerDelta"`
	DealerTotal    float64      `json:"dealerTotal"`
	DealerBust     bool         `json:"dealerBust"`
	NextDealerSeat int          `json:"nextDealerSeat"`
	Pairs          []PairResult `json:"pairs"`
}

// Settle scores every child against the dealer. It does not touch balances;
// the caller applies Delta per child and DealerDelta to the dealer.
func Settle(dealerSeat int, dealerHand []Tile, children []Contender, dora []Tile) RoundResult {
	dealerTotal := HandTotal(dealerHand)
	dealerBust := IsBust(dealerHand)
	dealerTsumo := IsTsumo(dealerHand)
	dealerRoles := Breakdown(dealerHand, dora)

	sorted := append([]Contender(nil), children...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Seat < sorted[j].Seat })

	out := RoundResult{
		DealerSeat:     dealerSeat,
		DealerTotal:    dealerTotal,
		DealerBust:     dealerBust,
		NextDealerSeat: dealerSeat,
		Pairs:          make([]PairResult, 0, len(sorted)),
	}

	for _, c := range sorted {
		childTotal := HandTotal(c.Hand)
		childRoles := Breakdown(c.Hand, dora)
		pair := PairResult{
			ChildSeat:       c.Seat,
			Bet:             c.Bet,
			Outcome:         OutcomePush,
			ChildTotal:      childTotal,
			DealerTotal:     dealerTotal,
			ChildRoles:      childRoles.Items,
			ChildRoleTotal:  childRoles.Total,
			DealerRoles:     dealerRoles.Items,
			DealerRoleTotal: dealerRoles.Total,
		}
		if c.Bet <= 0 {
			pair.Bet = 0
			out.Pairs = append(out.Pairs, pair)
			continue
		}

		var result int
		switch {
		case IsSpecialRole(c.Hand):
			result = childRoles.Total
		case dealerTsumo:
			// A dealer pair wins outright; other dealer roles still compete on
			// closeness.
			result = -dealerRoles.Total
		case IsBust(c.Hand):
			result = -dealerRoles.Total
		case dealerBust:
			result = childRoles.Total
		case math.Abs(Target-childTotal) < math.Abs(Target-dealerTotal):
			result = childRoles.Total
		default:
			// Equal distance goes to the dealer.
			result = -dealerRoles.Total
		}

		pair.Result = result
		pair.Delta = c.Bet * result
		switch {
		case result > 0:
			pair.Outcome = OutcomeChildWin
		case result < 0:
			pair.Outcome = OutcomeDealerWin
		}
		out.DealerDelta -= pair.Delta
		out.Pairs = append(out.Pairs, pair)
	}
	return out
}

// endRoundLocked reveals the dealer, settles, applies balances, rotates the
// dealer on a bust and arms the automatic advance.
func (r *Room) endRoundLocked() {
	st := &r.state
	st.DealerFirstHidden = false

	dealer := r.dealerLocked()
	var dealerHand []Tile
	if dealer != nil {
		dealerHand = dealer.Hand
	}

	children := make([]Contender, 0, SeatCount-1)
	for _, p := range r.seatedLocked() {
		if p.Seat == st.DealerSeat {
			continue
		}
		bet := 0
		if p.Bet != nil {
			bet = *p.Bet
		}
		children = append(children, Contender{Seat: p.Seat, Hand: p.Hand, Bet: bet})
	}

	result := Settle(st.DealerSeat, dealerHand, children, st.Dora)

	for _, pair := range result.Pairs {
		if p := r.seats[pair.ChildSeat]; p != nil {
			p.Points += pair.Delta
		}
	}
	if dealer != nil {
		dealer.Points += result.DealerDelta
	}
	for _, p := range children {
		r.seats[p.Seat].Bet = nil
	}

	if dealer != nil && result.DealerBust {
		if next, ok := r.nextSeatedLocked(st.DealerSeat); ok {
			result.NextDealerSeat = next
			st.DealerSeat = next
		}
	}

	st.Results = &result
	st.Phase = PhaseEnded
	st.TurnSeat = nil
	r.round++

	logger.Log.Info("round settled",
		zap.String("roomID", r.id),
		zap.Int("round", r.round),
		zap.Int("dealerSeat", result.DealerSeat),
		zap.Int("dealerDelta", result.DealerDelta),
		zap.Int("nextDealerSeat", result.NextDealerSeat),
	)

	if r.onSettled != nil {
		r.onSettled(r.recordLocked(result, dealerHand))
	}
	r.scheduleAdvanceLocked()
}

// RoundRecord is a settled round as handed to persistence.
type RoundRecord struct {
	RoomID      string
	RoundNo     int
	DealerSeat  int
	DealerHand  []Tile
	DealerDelta int
	Players     []PlayerRecord
	Result      RoundResult
	SettledAt   time.Time
}

type PlayerRecord struct {
	Seat        int
	Name        string
	Dealer      bool
	Hand        []Tile
	Bet         int
	Delta       int
	Outcome     Outcome
	PointsAfter int
	Status      Status
}

func (r *Room) recordLocked(result RoundResult, dealerHand []Tile) RoundRecord {
	pairs := make(map[int]PairResult, len(result.Pairs))
	for _, pair := range result.Pairs {
		pairs[pair.ChildSeat] = pair
	}

	rec := RoundRecord{
		RoomID:      r.id,
		RoundNo:     r.round,
		DealerSeat:  result.DealerSeat,
		DealerHand:  append([]Tile(nil), dealerHand...),
		DealerDelta: result.DealerDelta,
		Result:      result,
		SettledAt:   time.Now(),
	}
	for _, p := range r.seatedLocked() {
		pr := PlayerRecord{
			Seat:        p.Seat,
			Name:        p.Name,
			Hand:        append([]Tile(nil), p.Hand...),
			PointsAfter: p.Points,
			Status:      p.Status,
		}
		if p.Seat == result.DealerSeat {
			pr.Dealer = true
			pr.Delta = result.DealerDelta
		} else if pair, ok := pairs[p.Seat]; ok {
			pr.Bet = pair.Bet
			pr.Delta = pair.Delta
			pr.Outcome = pair.Outcome
		}
		rec.Players = append(rec.Players, pr)
	}
	return rec
}
