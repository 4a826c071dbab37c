package game

import (
	mrand "math/rand"
	"sort"
	"strconv"
	"unicode/utf8"
)

// Tile is a text label: a rank digit followed by a suit ("5萬", "7筒", "3索")
// or a single honor ("東", "白", ...).
type Tile string

// Suits.
const (
	SuitCharacter = "萬"
	SuitDot       = "筒"
	SuitBamboo    = "索"
)

// Honors.
const (
	East  Tile = "東"
	South Tile = "南"
	West  Tile = "西"
	North Tile = "北"
	White Tile = "白"
	Green Tile = "發"
	Red   Tile = "中"
)

// ConcealedTile replaces the dealer's hidden first tile in other players' views.
const ConcealedTile Tile = "🀫"

const copiesPerTile = 4

var (
	suits  = []string{SuitCharacter, SuitDot, SuitBamboo}
	honors = []Tile{East, South, West, North, White, Green, Red}

	suitOrder  = map[string]int{SuitCharacter: 0, SuitDot: 1, SuitBamboo: 2}
	honorOrder = map[Tile]int{East: 0, South: 1, West: 2, North: 3, White: 4, Green: 5, Red: 6}
)

// Rank returns the numeric rank of a suited tile.
func (t Tile) Rank() (int, bool) {
	r, size := utf8.DecodeRuneInString(string(t))
	if r < '1' || r > '9' {
		return 0, false
	}
	if _, ok := suitOrder[string(t)[size:]]; !ok {
		return 0, false
	}
	rank, _ := strconv.Atoi(string(r))
	return rank, true
}

func (t Tile) IsHonor() bool {
	_, ok := honorOrder[t]
	return ok
}

// IsWind reports whether t is one of 東南西北.
func (t Tile) IsWind() bool {
	return t == East || t == South || t == West || t == North
}

// IsDragon reports whether t is one of 白發中.
func (t Tile) IsDragon() bool {
	return t == White || t == Green || t == Red
}

func (t Tile) leadingRune() rune {
	r, _ := utf8.DecodeRuneInString(string(t))
	return r
}

// FullTileSet returns the 136-tile set in canonical order: 4 copies of every
// suited rank and every honor, no flowers.
func FullTileSet() []Tile {
	tiles := make([]Tile, 0, (len(suits)*9+len(honors))*copiesPerTile)
	for _, suit := range suits {
		for rank := 1; rank <= 9; rank++ {
			label := Tile(strconv.Itoa(rank) + suit)
			for i := 0; i < copiesPerTile; i++ {
				tiles = append(tiles, label)
			}
		}
	}
	for _, h := range honors {
		for i := 0; i < copiesPerTile; i++ {
			tiles = append(tiles, h)
		}
	}
	return tiles
}

// Shuffler reorders tiles in place.
type Shuffler func(tiles []Tile)

func RandomShuffler(tiles []Tile) {
	mrand.Shuffle(len(tiles), func(i, j int) {
		tiles[i], tiles[j] = tiles[j], tiles[i]
	})
}

// NewWall returns a shuffled full tile set.
func NewWall(shuffle Shuffler) []Tile {
	wall := FullTileSet()
	if shuffle == nil {
		shuffle = RandomShuffler
	}
	shuffle(wall)
	return wall
}

// splitDora takes the first n tiles off the wall as the dora reference block.
func splitDora(wall []Tile, n int) (dora, rest []Tile) {
	if n > len(wall) {
		n = len(wall)
	}
	dora = append([]Tile(nil), wall[:n]...)
	rest = append([]Tile(nil), wall[n:]...)
	return dora, rest
}

// SortTiles orders suited tiles by rank then suit, followed by honors.
func SortTiles(tiles []Tile) {
	sort.SliceStable(tiles, func(i, j int) bool {
		return tileSortKey(tiles[i]) < tileSortKey(tiles[j])
	})
}

func tileSortKey(t Tile) int {
	if rank, ok := t.Rank(); ok {
		return rank*10 + suitOrder[string(t)[1:]]
	}
	if order, ok := honorOrder[t]; ok {
		return 1000 + order
	}
	return 9999
}
