package game

import "fmt"

// Target is the hand total every hand is scored against.
const Target = 10.5

const (
	honorValue = 0.5
	// eastBonus lifts 東 from 0.5 to 10 when the hand can absorb it.
	eastBonus = 9.5
)

// Role names as they appear in settlement breakdowns.
const (
	RoleBase   = "base"
	RoleTsumo  = "tsumo"
	RoleDora   = "dora"
	RoleToppan = "toppan"
)

const (
	pairBonus      = 10
	sameRankBonus  = 5
	toppanBonus    = 10
	multiDrawBonus = 5
	multiDrawSize  = 5
)

type RoleItem struct {
	Name       string `json:"name"`
	Points     int    `json:"points"`
	Multiplier int    `json:"multiplier"`
}

type RoleBreakdown struct {
	Total int        `json:"total"`
	Items []RoleItem `json:"items"`
}

// TileValue returns the rank of a suited tile, 0.5 for an honor and 0 for
// anything else.
func TileValue(t Tile) float64 {
	if rank, ok := t.Rank(); ok {
		return float64(rank)
	}
	if t.IsHonor() {
		return honorValue
	}
	return 0
}

// HandTotal sums tile values, then adds the East bonus once per 東 while the
// running total stays at or under Target.
func HandTotal(hand []Tile) float64 {
	total := 0.0
	for _, t := range hand {
		total += TileValue(t)
	}
	for _, t := range hand {
		if t == East && total+eastBonus <= Target {
			total += eastBonus
		}
	}
	return total
}

func IsToppan(hand []Tile) bool {
	return HandTotal(hand) == Target
}

// IsTsumo reports a two-tile hand that is an identical pair or shares a rank.
func IsTsumo(hand []Tile) bool {
	if len(hand) != 2 {
		return false
	}
	if hand[0] == hand[1] {
		return true
	}
	return hand[0].leadingRune() == hand[1].leadingRune()
}

// IsBust reports a hand over Target that tsumo does not rescue.
func IsBust(hand []Tile) bool {
	return HandTotal(hand) > Target && !IsTsumo(hand)
}

// IsSpecialRole reports a hand exempt from ordinary bust elimination.
func IsSpecialRole(hand []Tile) bool {
	if IsToppan(hand) || IsTsumo(hand) {
		return true
	}
	if HandTotal(hand) > Target {
		return false
	}
	return len(hand) >= multiDrawSize
}

// Breakdown itemizes the role multiplier of a hand against the dora
// reference set. A bust hand has no role value at all.
func Breakdown(hand, dora []Tile) RoleBreakdown {
	if IsBust(hand) {
		return RoleBreakdown{Total: 0, Items: []RoleItem{}}
	}

	items := []RoleItem{{Name: RoleBase, Points: 1, Multiplier: 1}}
	total := 1

	if len(hand) == 2 {
		if hand[0] == hand[1] {
			items = append(items, RoleItem{Name: RoleTsumo, Points: pairBonus, Multiplier: pairBonus})
			total += pairBonus
		} else if hand[0].leadingRune() == hand[1].leadingRune() {
			items = append(items, RoleItem{Name: RoleTsumo, Points: sameRankBonus, Multiplier: sameRankBonus})
			total += sameRankBonus
		}
	}

	if d := doraCount(hand, dora); d > 0 {
		items = append(items, RoleItem{Name: RoleDora, Points: d, Multiplier: d})
		total += d
	}

	if IsToppan(hand) {
		items = append(items, RoleItem{Name: RoleToppan, Points: toppanBonus, Multiplier: toppanBonus})
		total += toppanBonus
	}

	if len(hand) >= multiDrawSize {
		extra := (len(hand) - 4) * multiDrawBonus
		items = append(items, RoleItem{Name: fmt.Sprintf("draw_%d", len(hand)), Points: extra, Multiplier: extra})
		total += extra
	}

	return RoleBreakdown{Total: total, Items: items}
}

// doraTable counts scored ranks and honor groups. A suited indicator of rank
// n scores rank n%9+1; any wind scores every wind, any dragon every dragon.
type doraTable struct {
	ranks   [10]int
	winds   int
	dragons int
}

func newDoraTable(dora []Tile) doraTable {
	var table doraTable
	for _, t := range dora {
		switch {
		case t.IsWind():
			table.winds++
		case t.IsDragon():
			table.dragons++
		default:
			if rank, ok := t.Rank(); ok {
				table.ranks[rank%9+1]++
			}
		}
	}
	return table
}

func doraCount(hand, dora []Tile) int {
	if len(dora) == 0 {
		return 0
	}
	table := newDoraTable(dora)
	count := 0
	for _, t := range hand {
		switch {
		case t.IsWind():
			count += table.winds
		case t.IsDragon():
			count += table.dragons
		default:
			if rank, ok := t.Rank(); ok {
				count += table.ranks[rank]
			}
		}
	}
	return count
}
