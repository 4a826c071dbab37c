package game

import (
	"encoding/json"
	"testing"
	"time"

	appErr "toppan-service/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRoomID = "ROOM01"

// stacked arranges the wall so pops yield draws in order. The rest keeps the
// canonical order, so with a dora count of 1 the indicator is 1萬.
func stacked(draws ...Tile) Shuffler {
	return func(tiles []Tile) {
		end := len(tiles) - 1
		for _, want := range draws {
			for i := end; i >= 0; i-- {
				if tiles[i] == want {
					tiles[i], tiles[end] = tiles[end], tiles[i]
					break
				}
			}
			end--
		}
	}
}

func newTestService(t *testing.T, settle time.Duration, draws ...Tile) *Service {
	t.Helper()
	svc := NewService(
		WithSettings(Settings{DoraCount: 1, SettleDelay: settle}),
		WithShuffler(stacked(draws...)),
		WithRoomIDGenerator(func() string { return testRoomID }),
	)
	t.Cleanup(svc.Close)
	return svc
}

func act(svc *Service, sid, action, data string) (interface{}, error) {
	var raw json.RawMessage
	if data != "" {
		raw = json.RawMessage(data)
	}
	return svc.Handle(sid, action, raw)
}

func mustAct(t *testing.T, svc *Service, sid, action, data string) interface{} {
	t.Helper()
	res, err := act(svc, sid, action, data)
	require.NoError(t, err, "%s %s", sid, action)
	return res
}

// seatPlayers creates the room with sids[0] as host and seats the rest.
func seatPlayers(t *testing.T, svc *Service, sids ...string) *Room {
	t.Helper()
	mustAct(t, svc, sids[0], ActionCreateRoom, `{"name":"`+sids[0]+`"}`)
	for _, sid := range sids[1:] {
		mustAct(t, svc, sid, ActionJoinRoom, `{"room_id":"room01","name":"`+sid+`"}`)
	}
	room, ok := svc.Room(testRoomID)
	require.True(t, ok)
	return room
}

// startPlaying runs start, dealer keep and every child bet.
func startPlaying(t *testing.T, svc *Service, bet string, sids ...string) *Room {
	t.Helper()
	room := seatPlayers(t, svc, sids...)
	mustAct(t, svc, sids[0], ActionStartGame, "")
	mustAct(t, svc, sids[0], ActionDealerReset, `{"reset":false}`)
	for _, sid := range sids[1:] {
		mustAct(t, svc, sid, ActionSetBet, `{"bet":`+bet+`}`)
	}
	return room
}

func playerView(t *testing.T, state RoomState, seat int) PlayerView {
	t.Helper()
	for _, p := range state.Players {
		if p.Seat == seat {
			return p
		}
	}
	t.Fatalf("no player at seat %d", seat)
	return PlayerView{}
}

func TestLobbyPhase(t *testing.T) {
	svc := newTestService(t, time.Hour)
	room := seatPlayers(t, svc, "a", "b")

	state := room.ExportState("b")
	assert.Equal(t, PhaseWaiting, state.Phase)
	require.NotNil(t, state.HostSeat)
	assert.Equal(t, 0, *state.HostSeat)
	require.NotNil(t, state.YouSeat)
	assert.Equal(t, 1, *state.YouSeat)
	assert.Equal(t, "南", playerView(t, state, 1).SeatLabel)
	assert.Equal(t, 300, playerView(t, state, 1).Points)

	mustAct(t, svc, "b", ActionSetReady, `{"ready":true}`)
	assert.True(t, playerView(t, room.ExportState("a"), 1).Ready)

	mustAct(t, svc, "b", ActionSetInitialPoints, `{"points":"1200"}`)
	initial := playerView(t, room.ExportState("a"), 1).InitialPoints
	require.NotNil(t, initial)
	assert.Equal(t, 1200, *initial)

	_, err := act(svc, "b", ActionSetInitialPoints, `{"points":1000001}`)
	assert.ErrorIs(t, err, appErr.ErrOutOfRange)
	_, err = act(svc, "b", ActionSetInitialPoints, `{"points":-1}`)
	assert.ErrorIs(t, err, appErr.ErrOutOfRange)
	_, err = act(svc, "b", ActionSetInitialPoints, `{"points":12.5}`)
	assert.ErrorIs(t, err, appErr.ErrInvalidNumber)

	_, err = act(svc, "b", ActionStartGame, "")
	assert.ErrorIs(t, err, appErr.ErrNotHost)

	mustAct(t, svc, "a", ActionStartGame, "")
	state = room.ExportState("a")
	assert.Equal(t, PhaseResetPrompt, state.Phase)
	assert.Equal(t, 0, state.DealerSeat)
	assert.Equal(t, 1200, playerView(t, state, 1).Points)
	assert.Equal(t, 135, state.WallCount)
	assert.Equal(t, []Tile{"1萬"}, state.DoraDisplays)

	_, err = act(svc, "b", ActionSetInitialPoints, `{"points":10}`)
	assert.ErrorIs(t, err, appErr.ErrWrongPhase)
	_, err = act(svc, "a", ActionStartGame, "")
	assert.ErrorIs(t, err, appErr.ErrWrongPhase)
}

func TestStartNeedsTwoPlayers(t *testing.T) {
	svc := newTestService(t, time.Hour)
	seatPlayers(t, svc, "a")

	_, err := act(svc, "a", ActionStartGame, "")
	assert.ErrorIs(t, err, appErr.ErrNotEnoughPlayers)
}

func TestRoomFull(t *testing.T) {
	svc := newTestService(t, time.Hour)
	seatPlayers(t, svc, "a", "b", "c", "d")

	_, err := act(svc, "e", ActionJoinRoom, `{"room_id":"ROOM01"}`)
	assert.ErrorIs(t, err, appErr.ErrRoomFull)

	_, err = act(svc, "e", ActionJoinRoom, `{"room_id":"NOPE00"}`)
	assert.ErrorIs(t, err, appErr.ErrRoomNotFound)
}

func TestDealerResetPrompt(t *testing.T) {
	svc := newTestService(t, time.Hour, "9萬", "5萬")
	room := seatPlayers(t, svc, "a", "b")
	mustAct(t, svc, "a", ActionStartGame, "")

	_, err := act(svc, "b", ActionDealerReset, `{"reset":false}`)
	assert.ErrorIs(t, err, appErr.ErrNotDealer)
	_, err = act(svc, "a", ActionSetBet, `{"bet":1}`)
	assert.ErrorIs(t, err, appErr.ErrWrongPhase)

	room.mu.Lock()
	room.state.Wall = room.state.Wall[:1]
	room.mu.Unlock()

	_, err = act(svc, "a", ActionDealerReset, `{"reset":false}`)
	assert.ErrorIs(t, err, appErr.ErrWallInsufficient)
	assert.Equal(t, PhaseResetPrompt, room.Summary().Phase)

	mustAct(t, svc, "a", ActionDealerReset, `{"reset":true}`)
	state := room.ExportState("a")
	assert.Equal(t, PhaseBetting, state.Phase)
	assert.Equal(t, 133, state.WallCount)
	assert.Equal(t, []Tile{"9萬"}, playerView(t, state, 0).Hand)
	assert.Equal(t, []Tile{"5萬"}, playerView(t, state, 1).Hand)
}

func TestBetting(t *testing.T) {
	svc := newTestService(t, time.Hour)
	room := seatPlayers(t, svc, "a", "b", "c")
	mustAct(t, svc, "c", ActionSetInitialPoints, `{"points":2}`)
	mustAct(t, svc, "a", ActionStartGame, "")
	mustAct(t, svc, "a", ActionDealerReset, `{"reset":false}`)

	_, err := act(svc, "a", ActionSetBet, `{"bet":1}`)
	assert.ErrorIs(t, err, appErr.ErrDealerNoBet)
	_, err = act(svc, "b", ActionSetBet, `{"bet":11}`)
	assert.ErrorIs(t, err, appErr.ErrOutOfRange)
	_, err = act(svc, "b", ActionSetBet, `{"bet":"x"}`)
	assert.ErrorIs(t, err, appErr.ErrInvalidNumber)
	_, err = act(svc, "b", ActionSetBet, `{"bet":1.5}`)
	assert.ErrorIs(t, err, appErr.ErrInvalidNumber)
	_, err = act(svc, "b", ActionSetBet, `{"bet":`)
	assert.ErrorIs(t, err, appErr.ErrInvalidPayload)

	mustAct(t, svc, "b", ActionSetBet, `{"bet":"4"}`)
	assert.Equal(t, PhaseBetting, room.Summary().Phase)

	// Capped by the player's configured stake.
	mustAct(t, svc, "c", ActionSetBet, `{"bet":9}`)
	state := room.ExportState("a")
	assert.Equal(t, PhasePlaying, state.Phase)
	require.NotNil(t, state.TurnSeat)
	assert.Equal(t, 0, *state.TurnSeat)
	require.NotNil(t, playerView(t, state, 2).Bet)
	assert.Equal(t, 2, *playerView(t, state, 2).Bet)
	assert.Equal(t, 4, *playerView(t, state, 1).Bet)
}

func TestInitialPointsClampExistingBet(t *testing.T) {
	svc := newTestService(t, time.Hour)
	room := seatPlayers(t, svc, "a", "b")

	room.mu.Lock()
	p := room.players["b"]
	p.Bet = intPtr(8)
	err := room.setInitialPointsLocked(p, 3)
	room.mu.Unlock()

	require.NoError(t, err)
	assert.Equal(t, 3, *p.Bet)
}

func TestDealerConcealment(t *testing.T) {
	svc := newTestService(t, time.Hour, "9萬", "5萬")
	room := startPlaying(t, svc, "1", "a", "b")

	assert.Equal(t, []Tile{ConcealedTile}, playerView(t, room.ExportState("b"), 0).Hand)
	assert.Equal(t, []Tile{"9萬"}, playerView(t, room.ExportState("a"), 0).Hand)
	assert.Equal(t, []Tile{"5萬"}, playerView(t, room.ExportState("a"), 1).Hand)
	assert.Equal(t, 1, playerView(t, room.ExportState("b"), 0).HandCount)
}

func TestTurnOrder(t *testing.T) {
	svc := newTestService(t, time.Hour, "9萬", "5萬", "1萬")
	room := startPlaying(t, svc, "1", "a", "b")

	_, err := act(svc, "b", ActionDrawTile, "")
	assert.ErrorIs(t, err, appErr.ErrNotYourTurn)
	_, err = act(svc, "a", "fly", "")
	assert.ErrorIs(t, err, appErr.ErrUnsupportedAction)

	res := mustAct(t, svc, "a", ActionDrawTile, "")
	assert.Equal(t, DrawResult{Tile: "1萬"}, res)

	mustAct(t, svc, "a", ActionStay, "")
	state := room.ExportState("b")
	require.NotNil(t, state.TurnSeat)
	assert.Equal(t, 1, *state.TurnSeat)
	assert.Equal(t, StatusStay, playerView(t, state, 0).Status)

	_, err = act(svc, "a", ActionStay, "")
	assert.ErrorIs(t, err, appErr.ErrNotYourTurn)
}

func TestDealerSpecialRoleEndsRound(t *testing.T) {
	svc := newTestService(t, 20*time.Millisecond, "9萬", "9筒", "9萬")
	room := startPlaying(t, svc, "3", "a", "b")

	mustAct(t, svc, "a", ActionDrawTile, "")
	// Over target but tsumo: no bust.
	assert.Equal(t, StatusPlaying, playerView(t, room.ExportState("a"), 0).Status)

	mustAct(t, svc, "a", ActionStay, "")
	state := room.ExportState("b")
	require.Equal(t, PhaseEnded, state.Phase)
	require.NotNil(t, state.Results)
	assert.False(t, state.DealerFirstHidden)
	assert.Equal(t, []Tile{"9萬", "9萬"}, playerView(t, state, 0).Hand)

	pair := state.Results.Pairs[0]
	assert.Equal(t, OutcomeDealerWin, pair.Outcome)
	assert.Equal(t, -33, pair.Delta)
	assert.Equal(t, 333, playerView(t, state, 0).Points)
	assert.Equal(t, 267, playerView(t, state, 1).Points)
	assert.Nil(t, playerView(t, state, 1).Bet)
	assert.Equal(t, 1, state.Round)

	require.Eventually(t, func() bool {
		return room.Summary().Phase == PhaseResetPrompt
	}, time.Second, 5*time.Millisecond)

	state = room.ExportState("a")
	assert.Equal(t, 0, state.DealerSeat)
	assert.Nil(t, state.Results)
	assert.Empty(t, playerView(t, state, 0).Hand)
	assert.Equal(t, 132, state.WallCount)
}

func TestDealerBustRotatesDealer(t *testing.T) {
	svc := newTestService(t, time.Hour, "9萬", "5萬", "3萬")
	room := startPlaying(t, svc, "2", "a", "b")

	res := mustAct(t, svc, "a", ActionDrawTile, "")
	assert.Equal(t, DrawResult{Tile: "3萬"}, res)

	state := room.ExportState("a")
	require.Equal(t, PhaseEnded, state.Phase)
	assert.True(t, state.Results.DealerBust)
	assert.Equal(t, 0, state.Results.DealerSeat)
	assert.Equal(t, 1, state.Results.NextDealerSeat)
	assert.Equal(t, 1, state.DealerSeat)
	assert.Equal(t, StatusBust, playerView(t, state, 0).Status)
	assert.Equal(t, OutcomeChildWin, state.Results.Pairs[0].Outcome)
	assert.Equal(t, 298, playerView(t, state, 0).Points)
	assert.Equal(t, 302, playerView(t, state, 1).Points)
}

func TestChildBustPassesTurn(t *testing.T) {
	svc := newTestService(t, time.Hour, "5萬", "9萬", "4萬", "3萬")
	room := startPlaying(t, svc, "2", "a", "b", "c")

	mustAct(t, svc, "a", ActionStay, "")
	mustAct(t, svc, "b", ActionDrawTile, "")

	state := room.ExportState("c")
	assert.Equal(t, StatusBust, playerView(t, state, 1).Status)
	require.NotNil(t, state.TurnSeat)
	assert.Equal(t, 2, *state.TurnSeat)

	_, err := act(svc, "b", ActionDrawTile, "")
	assert.ErrorIs(t, err, appErr.ErrNotYourTurn)

	mustAct(t, svc, "c", ActionStay, "")
	state = room.ExportState("a")
	require.Equal(t, PhaseEnded, state.Phase)
	require.Len(t, state.Results.Pairs, 2)
	assert.Equal(t, -2, state.Results.Pairs[0].Delta)
	assert.Equal(t, -2, state.Results.Pairs[1].Delta)
	assert.Equal(t, 4, state.Results.DealerDelta)
	assert.Equal(t, 304, playerView(t, state, 0).Points)
	assert.Equal(t, 0, state.DealerSeat)
}

func TestWallEmptySettles(t *testing.T) {
	svc := newTestService(t, time.Hour, "9萬", "5萬")
	room := startPlaying(t, svc, "1", "a", "b")

	room.mu.Lock()
	room.state.Wall = nil
	room.mu.Unlock()

	_, err := act(svc, "a", ActionDrawTile, "")
	assert.ErrorIs(t, err, appErr.ErrWallEmpty)
	assert.Equal(t, PhaseEnded, room.Summary().Phase)
}

func TestMidRoundJoinerSitsOut(t *testing.T) {
	svc := newTestService(t, time.Hour, "9萬", "5萬")
	room := startPlaying(t, svc, "1", "a", "b")

	mustAct(t, svc, "c", ActionJoinRoom, `{"room_id":"ROOM01"}`)
	view := playerView(t, room.ExportState("c"), 2)
	assert.Equal(t, StatusStay, view.Status)
	assert.Empty(t, view.Hand)

	_, err := act(svc, "c", ActionSetBet, `{"bet":1}`)
	assert.ErrorIs(t, err, appErr.ErrWrongPhase)

	mustAct(t, svc, "a", ActionStay, "")
	mustAct(t, svc, "b", ActionStay, "")

	state := room.ExportState("c")
	require.Equal(t, PhaseEnded, state.Phase)
	require.Len(t, state.Results.Pairs, 2)
	assert.Equal(t, OutcomePush, state.Results.Pairs[1].Outcome)
	assert.Equal(t, 300, playerView(t, state, 2).Points)
}

func TestDepartureDuringPlay(t *testing.T) {
	svc := newTestService(t, time.Hour, "5萬", "9萬", "4萬")
	room := startPlaying(t, svc, "1", "a", "b", "c")

	mustAct(t, svc, "a", ActionStay, "")
	mustAct(t, svc, "b", ActionLeaveRoom, "")

	state := room.ExportState("c")
	require.NotNil(t, state.TurnSeat)
	assert.Equal(t, 2, *state.TurnSeat)
	assert.Len(t, state.Players, 2)

	mustAct(t, svc, "c", ActionLeaveRoom, "")
	state = room.ExportState("a")
	assert.Equal(t, PhaseWaiting, state.Phase)
	assert.Empty(t, playerView(t, state, 0).Hand)
}

func TestDealerDepartureDuringBetting(t *testing.T) {
	svc := newTestService(t, time.Hour)
	room := seatPlayers(t, svc, "a", "b", "c")
	mustAct(t, svc, "a", ActionStartGame, "")
	mustAct(t, svc, "a", ActionDealerReset, `{"reset":false}`)
	mustAct(t, svc, "b", ActionSetBet, `{"bet":3}`)

	mustAct(t, svc, "a", ActionLeaveRoom, "")
	state := room.ExportState("b")
	assert.Equal(t, 1, state.DealerSeat)
	require.NotNil(t, state.HostSeat)
	assert.Equal(t, 1, *state.HostSeat)
	assert.Nil(t, playerView(t, state, 1).Bet)
	assert.Equal(t, PhaseBetting, state.Phase)

	mustAct(t, svc, "c", ActionSetBet, `{"bet":1}`)
	assert.Equal(t, PhasePlaying, room.Summary().Phase)
}

func TestNewGame(t *testing.T) {
	svc := newTestService(t, 40*time.Millisecond, "9萬", "5萬", "3萬")
	room := startPlaying(t, svc, "1", "a", "b")
	mustAct(t, svc, "a", ActionDrawTile, "")
	require.Equal(t, PhaseEnded, room.Summary().Phase)

	_, err := act(svc, "b", ActionNewGame, "")
	assert.ErrorIs(t, err, appErr.ErrNotHost)

	mustAct(t, svc, "a", ActionNewGame, "")
	assert.Equal(t, PhaseWaiting, room.Summary().Phase)

	// The cancelled advance must not fire into the new phase.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, PhaseWaiting, room.Summary().Phase)
	assert.Zero(t, room.Summary().Round)
}

func TestParseInteger(t *testing.T) {
	ok := map[string]int{`3`: 3, `"4"`: 4, `" 7 "`: 7, `5.0`: 5, `-2`: -2}
	for raw, want := range ok {
		n, err := ParseInteger(json.RawMessage(raw))
		require.NoError(t, err, raw)
		assert.Equal(t, want, n, raw)
	}
	for _, raw := range []string{`1.5`, `"abc"`, `null`, `true`, ``, `"1e400"`} {
		_, err := ParseInteger(json.RawMessage(raw))
		assert.Error(t, err, raw)
	}
}
