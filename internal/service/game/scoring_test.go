package game_test

import (
	"math/rand"
	"testing"

	"toppan-service/internal/service/game"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hand(tiles ...string) []game.Tile {
	out := make([]game.Tile, len(tiles))
	for i, t := range tiles {
		out[i] = game.Tile(t)
	}
	return out
}

func TestFullTileSet(t *testing.T) {
	tiles := game.FullTileSet()
	require.Len(t, tiles, 136)

	counts := map[game.Tile]int{}
	for _, tile := range tiles {
		counts[tile]++
	}
	assert.Len(t, counts, 34)
	for tile, n := range counts {
		assert.Equal(t, 4, n, "copies of %s", tile)
	}
}

func TestTileValue(t *testing.T) {
	assert.Equal(t, 5.0, game.TileValue("5萬"))
	assert.Equal(t, 9.0, game.TileValue("9索"))
	assert.Equal(t, 1.0, game.TileValue("1筒"))
	assert.Equal(t, 0.5, game.TileValue("東"))
	assert.Equal(t, 0.5, game.TileValue("中"))
	assert.Equal(t, 0.0, game.TileValue("花"))
}

func TestHandTotal(t *testing.T) {
	cases := []struct {
		name string
		hand []game.Tile
		want float64
	}{
		{"empty", hand(), 0},
		{"single suited", hand("7筒"), 7},
		{"east alone", hand("東"), 10},
		{"east pair", hand("東", "東"), 10.5},
		{"east cannot absorb bonus", hand("東", "1萬"), 1.5},
		{"east with half", hand("東", "白"), 10.5},
		{"honors only", hand("南", "白"), 1},
		{"suited sum", hand("9萬", "1萬"), 10},
		{"over target", hand("9萬", "3萬"), 12},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, game.HandTotal(tc.hand))
		})
	}
}

func TestHandTotalMonotonic(t *testing.T) {
	var kinds []game.Tile
	seen := map[game.Tile]bool{}
	for _, tile := range game.FullTileSet() {
		if tile != game.East && !seen[tile] {
			seen[tile] = true
			kinds = append(kinds, tile)
		}
	}
	require.Len(t, kinds, 33)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		var h []game.Tile
		prev := game.HandTotal(h)
		for n := 0; n < 7; n++ {
			h = append(h, kinds[rng.Intn(len(kinds))])
			total := game.HandTotal(h)
			require.GreaterOrEqual(t, total, prev, "hand %v", h)
			prev = total
		}
	}

	// 東 loses its bonus once the hand cannot absorb it.
	assert.Equal(t, 10.0, game.HandTotal(hand("東")))
	assert.Equal(t, 1.5, game.HandTotal(hand("東", "1萬")))
}

func TestTsumoAndBust(t *testing.T) {
	assert.True(t, game.IsTsumo(hand("9萬", "9萬")))
	assert.True(t, game.IsTsumo(hand("5萬", "5筒")))
	assert.True(t, game.IsTsumo(hand("白", "白")))
	assert.False(t, game.IsTsumo(hand("東", "北")))
	assert.False(t, game.IsTsumo(hand("9萬", "1萬")))
	assert.False(t, game.IsTsumo(hand("5萬", "5筒", "5索")))

	assert.False(t, game.IsBust(hand("9萬", "9萬")), "tsumo rescues an over-target pair")
	assert.True(t, game.IsBust(hand("9萬", "2萬")))
	assert.False(t, game.IsBust(hand("9萬", "1萬", "白")))
}

func TestIsSpecialRole(t *testing.T) {
	assert.True(t, game.IsSpecialRole(hand("9萬", "1萬", "白")), "toppan")
	assert.True(t, game.IsSpecialRole(hand("東", "白")), "toppan via east")
	assert.True(t, game.IsSpecialRole(hand("8筒", "8索")), "tsumo")
	assert.True(t, game.IsSpecialRole(hand("1萬", "1筒", "1索", "2萬", "2筒")), "five tiles")
	assert.False(t, game.IsSpecialRole(hand("3萬", "3筒", "3索", "1萬", "1筒")), "five tiles over target")
	assert.False(t, game.IsSpecialRole(hand("9萬", "1萬")))
}

func TestBreakdown(t *testing.T) {
	t.Run("base", func(t *testing.T) {
		b := game.Breakdown(hand("9萬", "1萬"), nil)
		assert.Equal(t, 1, b.Total)
		require.Len(t, b.Items, 1)
		assert.Equal(t, game.RoleBase, b.Items[0].Name)
	})

	t.Run("identical pair", func(t *testing.T) {
		b := game.Breakdown(hand("9萬", "9萬"), nil)
		assert.Equal(t, 11, b.Total)
	})

	t.Run("same rank pair", func(t *testing.T) {
		b := game.Breakdown(hand("5萬", "5筒"), nil)
		assert.Equal(t, 6, b.Total)
	})

	t.Run("east pair is tsumo and toppan", func(t *testing.T) {
		b := game.Breakdown(hand("東", "東"), nil)
		assert.Equal(t, 21, b.Total)
		names := make([]string, 0, len(b.Items))
		for _, item := range b.Items {
			names = append(names, item.Name)
		}
		assert.Equal(t, []string{game.RoleBase, game.RoleTsumo, game.RoleToppan}, names)
	})

	t.Run("five tiles", func(t *testing.T) {
		b := game.Breakdown(hand("1萬", "1筒", "1索", "3萬", "3筒"), nil)
		assert.Equal(t, 6, b.Total)
		assert.Equal(t, "draw_5", b.Items[len(b.Items)-1].Name)
	})

	t.Run("dora shifts suited rank", func(t *testing.T) {
		dora := hand("1萬", "1筒", "9索")
		// 2 scores twice, 1 scores once.
		b := game.Breakdown(hand("2索", "1萬"), dora)
		assert.Equal(t, 4, b.Total)
	})

	t.Run("dora honor groups", func(t *testing.T) {
		dora := hand("南", "北", "中")
		assert.Equal(t, 3, game.Breakdown(hand("東"), dora).Total)
		assert.Equal(t, 2, game.Breakdown(hand("白"), dora).Total)
	})

	t.Run("bust collapses to zero", func(t *testing.T) {
		b := game.Breakdown(hand("9萬", "2萬"), hand("1萬"))
		assert.Equal(t, 0, b.Total)
		assert.Empty(t, b.Items)
	})
}

func TestSortTiles(t *testing.T) {
	tiles := hand("中", "3索", "東", "1筒", "1萬", "3萬")
	game.SortTiles(tiles)
	assert.Equal(t, hand("1萬", "1筒", "3萬", "3索", "東", "中"), tiles)
}
