// internal/game/guessword/guessword_test.go
package guessword

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/jason-s-yu/meowgames/internal/game"
	"github.com/jason-s-yu/meowgames/internal/game/gametest"
	"github.com/jason-s-yu/meowgames/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const spectator uint16 = 100

// setupTestGame seats players 1..n plus one spectator and starts a match.
func setupTestGame(t *testing.T, n int) (*Game, *gametest.Env) {
	t.Helper()
	members := []uint16{spectator}
	for i := 1; i <= n; i++ {
		members = append(members, uint16(i))
	}
	env := gametest.NewEnv(members...)
	g := New(env, Config{})
	for i := 1; i <= n; i++ {
		require.True(t, g.AddPlayer(uint16(i)))
	}
	g.Start()
	require.Equal(t, protocol.GuessWordPreparing, g.Phase())
	return g, env
}

// lockAll has every player lock a question for the next player in order.
func lockAll(t *testing.T, g *Game) {
	t.Helper()
	order := g.Order()
	for i, uid := range order {
		target := order[(i+1)%len(order)]
		g.Handle(uid, &protocol.QuestionRequest{Locked: true, Question: fmt.Sprintf("word%d", target)})
	}
	require.Equal(t, protocol.GuessWordGuessing, g.Phase())
}

func TestStartBroadcastsOrder(t *testing.T) {
	g, env := setupTestGame(t, 3)

	assert.Equal(t, []protocol.ServerType{
		protocol.ServerStart, protocol.ServerGameState, protocol.ServerPlayerOrder,
	}, env.TypesTo(spectator))

	ev := env.Last(1, protocol.ServerPlayerOrder).(*protocol.PlayerOrderEvent)
	assert.True(t, ev.HasOrder)
	assert.ElementsMatch(t, []uint16{1, 2, 3}, ev.Order)
	assert.Equal(t, g.Order(), ev.Order)
	assert.Equal(t, 1, g.Round())
}

func TestQuestionConcealedFromOwner(t *testing.T) {
	g, env := setupTestGame(t, 2)
	order := g.Order()
	setter, owner := order[0], order[1]
	env.Clear()

	g.Handle(setter, &protocol.QuestionRequest{Locked: false, Question: "  cat  "})

	own := env.Last(owner, protocol.ServerQuestion).(*protocol.QuestionEvent)
	assert.True(t, own.Concealed)
	assert.Empty(t, own.Question)

	for _, viewer := range []uint16{setter, spectator} {
		ev := env.Last(viewer, protocol.ServerQuestion).(*protocol.QuestionEvent)
		assert.Equal(t, owner, ev.UID)
		assert.Equal(t, "cat", ev.Question)
		assert.False(t, ev.Locked)
	}

	// Announcing is not enough to leave PREPARING.
	assert.Equal(t, protocol.GuessWordPreparing, g.Phase())
}

func TestQuestionValidation(t *testing.T) {
	g, env := setupTestGame(t, 2)
	order := g.Order()
	env.Clear()

	g.Handle(order[0], &protocol.QuestionRequest{Question: "   "})
	g.Handle(spectator, &protocol.QuestionRequest{Question: "dog"})
	assert.Nil(t, env.Last(order[1], protocol.ServerQuestion))

	g.Handle(order[0], &protocol.QuestionRequest{Locked: true, Question: "dog"})
	require.NotNil(t, env.Last(order[1], protocol.ServerQuestion))
	env.Clear()

	// Locked questions are final and repeats are dropped.
	g.Handle(order[0], &protocol.QuestionRequest{Locked: true, Question: "dog"})
	g.Handle(order[0], &protocol.QuestionRequest{Locked: false, Question: "cow"})
	assert.Nil(t, env.Last(order[1], protocol.ServerQuestion))
}

func TestAllLockedMovesToGuessing(t *testing.T) {
	g, env := setupTestGame(t, 3)
	env.Clear()
	lockAll(t, g)

	types := env.TypesTo(spectator)
	n := len(types)
	require.GreaterOrEqual(t, n, 2)
	assert.Equal(t, protocol.ServerGameState, types[n-2])
	assert.Equal(t, protocol.ServerPlayerOrder, types[n-1])
	assert.Equal(t, protocol.GuessWordGuessing, env.Last(spectator, protocol.ServerGameState).(*protocol.GameStateEvent).State)
	assert.Equal(t, g.Order()[0], g.Current())
	assert.Equal(t, 1, env.ActiveTimers())
}

func TestAgreeSolvesQuestion(t *testing.T) {
	g, env := setupTestGame(t, 2)
	lockAll(t, g)
	guesser := g.Current()
	judge := g.Order()[1]

	g.Handle(guesser, &protocol.GuessRequest{Guess: "animal"})
	require.Equal(t, protocol.GuessWordVoting, g.Phase())
	assert.Equal(t, "animal", env.Last(judge, protocol.ServerGuess).(*protocol.GuessEvent).Guess)

	g.Handle(judge, &protocol.VoteRequest{Vote: protocol.VoteAgree})

	assert.Equal(t, game.SolvedIn(1), g.Outcome(guesser))
	success := env.Last(spectator, protocol.ServerSuccess).(*protocol.SuccessEvent)
	assert.Equal(t, guesser, success.UID)
	assert.Equal(t, int16(1), success.Round)
	assert.Equal(t, fmt.Sprintf("word%d", guesser), success.Answer)

	rec := env.Last(judge, protocol.ServerGuessRecord).(*protocol.GuessRecordEvent)
	assert.True(t, rec.Result)

	assert.Equal(t, protocol.GuessWordGuessing, g.Phase())
	assert.Equal(t, judge, g.Current())
}

func TestDenyRecordsHistoryAndAdvances(t *testing.T) {
	g, env := setupTestGame(t, 3)
	lockAll(t, g)
	order := g.Order()

	g.Handle(order[0], &protocol.GuessRequest{Guess: "fruit"})
	g.Handle(order[1], &protocol.VoteRequest{Vote: protocol.VoteDeny})
	require.Equal(t, protocol.GuessWordVoting, g.Phase(), "tally waits for every ballot")
	g.Handle(order[2], &protocol.VoteRequest{Vote: protocol.VoteAbstain})

	rec := env.Last(spectator, protocol.ServerGuessRecord).(*protocol.GuessRecordEvent)
	assert.Equal(t, order[0], rec.UID)
	assert.Equal(t, "fruit", rec.Guess)
	assert.False(t, rec.Result)
	assert.False(t, g.Outcome(order[0]).Finished())
	assert.Equal(t, order[1], g.Current())

	snap := g.Snapshot(spectator, nil).GuessWord
	for _, p := range snap.Players {
		if p.UID == order[0] {
			assert.Equal(t, []protocol.GuessRecord{{Guess: "fruit", Result: false}}, p.History)
		}
	}
}

func TestTieAsksToGuessAgain(t *testing.T) {
	g, env := setupTestGame(t, 3)
	lockAll(t, g)
	order := g.Order()

	g.Handle(order[0], &protocol.GuessRequest{Guess: "tool"})
	g.Handle(order[1], &protocol.VoteRequest{Vote: protocol.VoteAgree})
	g.Handle(order[2], &protocol.VoteRequest{Vote: protocol.VoteDeny})

	assert.NotNil(t, env.Last(spectator, protocol.ServerGuessAgain))
	assert.Nil(t, env.Last(spectator, protocol.ServerGuessRecord))
	assert.Equal(t, protocol.GuessWordGuessing, g.Phase())
	assert.Equal(t, order[0], g.Current())
}

func TestVoteValidation(t *testing.T) {
	g, env := setupTestGame(t, 3)
	lockAll(t, g)
	order := g.Order()
	g.Handle(order[0], &protocol.GuessRequest{Guess: "tool"})
	env.Clear()

	g.Handle(order[0], &protocol.VoteRequest{Vote: protocol.VoteAgree})  // guesser
	g.Handle(spectator, &protocol.VoteRequest{Vote: protocol.VoteAgree}) // not a player
	g.Handle(order[1], &protocol.VoteRequest{Vote: 3})                   // out of range
	assert.Nil(t, env.Last(spectator, protocol.ServerVote))

	g.Handle(order[1], &protocol.VoteRequest{Vote: protocol.VoteAgree})
	g.Handle(order[1], &protocol.VoteRequest{Vote: protocol.VoteDeny}) // second ballot
	votes := 0
	for _, ev := range env.To(spectator) {
		if ev.Type() == protocol.ServerVote {
			votes++
		}
	}
	assert.Equal(t, 1, votes)
	assert.Equal(t, protocol.GuessWordVoting, g.Phase())
}

func TestPassWrapsRound(t *testing.T) {
	g, env := setupTestGame(t, 2)
	lockAll(t, g)
	order := g.Order()

	g.Handle(order[1], &protocol.GuessRequest{}) // not their turn
	assert.Nil(t, env.Last(spectator, protocol.ServerSkipGuess))

	g.Handle(order[0], &protocol.GuessRequest{})
	assert.Equal(t, order[0], env.Last(spectator, protocol.ServerSkipGuess).(*protocol.SkipGuessEvent).UID)
	assert.Equal(t, order[1], g.Current())
	assert.Equal(t, 1, g.Round())

	g.Handle(order[1], &protocol.GuessRequest{Guess: "   "})
	assert.Equal(t, order[0], g.Current())
	assert.Equal(t, 2, g.Round())
}

func TestIdleGuesserPasses(t *testing.T) {
	g, env := setupTestGame(t, 3)
	lockAll(t, g)
	order := g.Order()

	env.FireTimers()

	assert.Equal(t, order[0], env.Last(spectator, protocol.ServerSkipGuess).(*protocol.SkipGuessEvent).UID)
	assert.Equal(t, order[1], g.Current())
	assert.Equal(t, 1, env.ActiveTimers(), "next guesser gets a fresh clock")
}

func TestIdleVotersAbstain(t *testing.T) {
	g, env := setupTestGame(t, 3)
	lockAll(t, g)
	order := g.Order()
	g.Handle(order[0], &protocol.GuessRequest{Guess: "tool"})
	g.Handle(order[1], &protocol.VoteRequest{Vote: protocol.VoteAgree})

	env.FireTimers()

	// One agree against an implicit abstain is a majority.
	assert.Equal(t, game.SolvedIn(1), g.Outcome(order[0]))
	assert.Equal(t, order[1], g.Current())
}

func TestIdleWithoutBallotsGuessesAgain(t *testing.T) {
	g, env := setupTestGame(t, 2)
	lockAll(t, g)
	order := g.Order()
	g.Handle(order[0], &protocol.GuessRequest{Guess: "tool"})

	env.FireTimers()

	assert.NotNil(t, env.Last(spectator, protocol.ServerGuessAgain))
	assert.Equal(t, order[0], g.Current())
}

func TestSupersededTimerNeverFires(t *testing.T) {
	g, env := setupTestGame(t, 3)
	lockAll(t, g)
	order := g.Order()

	// Acting before the clock runs out cancels it.
	g.Handle(order[0], &protocol.GuessRequest{})
	assert.Equal(t, 1, env.ActiveTimers())
	env.FireTimers()
	assert.Equal(t, order[2], g.Current())
}

func TestLastGuesserSkipsIdleClock(t *testing.T) {
	g, env := setupTestGame(t, 2)
	lockAll(t, g)
	order := g.Order()

	g.Handle(order[0], &protocol.GuessRequest{Guess: "x"})
	g.Handle(order[1], &protocol.VoteRequest{Vote: protocol.VoteAgree})
	require.Equal(t, order[1], g.Current())

	assert.Zero(t, env.ActiveTimers(), "nobody waits on the last guesser")

	g.Handle(order[1], &protocol.GuessRequest{})
	assert.Equal(t, order[1], g.Current(), "a pass comes straight back")
	assert.Equal(t, 2, g.Round())
	assert.Zero(t, env.ActiveTimers())
}

func TestGiveUpAndEndRanking(t *testing.T) {
	g, env := setupTestGame(t, 3)
	lockAll(t, g)
	order := g.Order()
	a, b, c := order[0], order[1], order[2]

	// a solves in round 1.
	g.Handle(a, &protocol.GuessRequest{Guess: "x"})
	g.Handle(b, &protocol.VoteRequest{Vote: protocol.VoteAgree})
	g.Handle(c, &protocol.VoteRequest{Vote: protocol.VoteAgree})

	// b gives up.
	require.Equal(t, b, g.Current())
	g.Handle(b, &protocol.GiveUpRequest{})
	gaveUp := env.Last(spectator, protocol.ServerSuccess).(*protocol.SuccessEvent)
	assert.Equal(t, b, gaveUp.UID)
	assert.Equal(t, int16(-1), gaveUp.Round)
	assert.Equal(t, game.GiveUp(), g.Outcome(b))

	// c passes once, then solves in round 2.
	require.Equal(t, c, g.Current())
	g.Handle(c, &protocol.GuessRequest{})
	require.Equal(t, c, g.Current())
	assert.Equal(t, 2, g.Round())
	g.Handle(c, &protocol.GuessRequest{Guess: "y"})
	g.Handle(a, &protocol.VoteRequest{Vote: protocol.VoteAgree})
	g.Handle(b, &protocol.VoteRequest{Vote: protocol.VoteAbstain})

	end := env.Last(spectator, protocol.ServerEnd).(*protocol.EndEvent)
	assert.False(t, end.Forced)
	assert.Equal(t, []protocol.RankEntry{
		{UID: a, Round: 1, Rank: 1},
		{UID: c, Round: 2, Rank: 2},
		{UID: b, Round: -1, Rank: 3},
	}, end.Ranking)

	assert.Equal(t, protocol.GuessWordWaiting, g.Phase())
	assert.False(t, g.Playing())
	assert.Zero(t, env.ActiveTimers())

	results := env.Results()
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	require.Len(t, results[0].Players, 3)
	assert.True(t, results[0].Players[2].GaveUp)
}

func TestRemoveCurrentGuesserAdvances(t *testing.T) {
	g, env := setupTestGame(t, 3)
	lockAll(t, g)
	order := g.Order()
	g.Handle(order[0], &protocol.GuessRequest{Guess: "x"})
	env.Clear()

	g.RemovePlayer(order[0])

	assert.Equal(t, []uint16{order[1], order[2]}, g.Order())
	assert.Equal(t, order[1], g.Current())
	assert.Equal(t, protocol.GuessWordGuessing, g.Phase())
	ev := env.Last(spectator, protocol.ServerPlayerOrder).(*protocol.PlayerOrderEvent)
	assert.True(t, ev.HasOrder)
	assert.Equal(t, uint8(0), ev.Index)
}

func TestRemoveEarlierPlayerShiftsIndex(t *testing.T) {
	g, _ := setupTestGame(t, 3)
	lockAll(t, g)
	order := g.Order()
	g.Handle(order[0], &protocol.GuessRequest{})
	require.Equal(t, order[1], g.Current())

	g.RemovePlayer(order[0])
	assert.Equal(t, 0, g.TurnIndex())
	assert.Equal(t, order[1], g.Current())
}

func TestRemoveVoterCompletesTally(t *testing.T) {
	g, _ := setupTestGame(t, 3)
	lockAll(t, g)
	order := g.Order()
	g.Handle(order[0], &protocol.GuessRequest{Guess: "x"})
	g.Handle(order[1], &protocol.VoteRequest{Vote: protocol.VoteAgree})

	g.RemovePlayer(order[2])
	assert.Equal(t, game.SolvedIn(1), g.Outcome(order[0]))
}

func TestRemoveLeavingOnePlayerForcesEnd(t *testing.T) {
	g, env := setupTestGame(t, 2)
	g.RemovePlayer(2)

	end := env.Last(spectator, protocol.ServerEnd).(*protocol.EndEvent)
	assert.True(t, end.Forced)
	assert.Equal(t, protocol.GuessWordWaiting, g.Phase())
	assert.True(t, g.IsPlayer(1))
	require.Len(t, env.Results(), 1)
	assert.True(t, env.Results()[0].Forced)
}

func TestAddPlayerOnlyWhileWaiting(t *testing.T) {
	g, _ := setupTestGame(t, 2)
	assert.False(t, g.AddPlayer(3))
	assert.False(t, g.IsPlayer(3))
}

func TestSnapshotHidesViewerQuestion(t *testing.T) {
	g, _ := setupTestGame(t, 2)
	lockAll(t, g)
	users := []protocol.UserInfo{{UID: 1, Name: "a"}, {UID: 2, Name: "b"}}

	snap := g.Snapshot(1, users)
	require.Equal(t, protocol.GameGuessWord, snap.GameType)
	require.NotNil(t, snap.GuessWord)
	assert.Equal(t, users, snap.Users)
	for _, p := range snap.GuessWord.Players {
		if p.UID == 1 {
			assert.Empty(t, p.Question)
		} else {
			assert.Equal(t, "word2", p.Question)
		}
	}
	assert.Equal(t, protocol.GuessWordGuessing, snap.GuessWord.Phase)
	assert.Equal(t, g.Order(), snap.GuessWord.Order)
}

// TestTurnIndexStaysValid drives random legal and illegal requests and checks
// that the turn pointer never leaves the order while a turn is live.
func TestTurnIndexStaysValid(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		n := 2 + rng.Intn(4)
		g, env := setupTestGame(t, n)
		lockAll(t, g)

		for step := 0; step < 200 && g.Playing(); step++ {
			uid := uint16(1 + rng.Intn(n))
			switch rng.Intn(6) {
			case 0:
				g.Handle(uid, &protocol.GuessRequest{})
			case 1:
				g.Handle(uid, &protocol.GuessRequest{Guess: "g"})
			case 2:
				g.Handle(uid, &protocol.VoteRequest{Vote: protocol.Vote(rng.Intn(3))})
			case 3:
				g.Handle(uid, &protocol.GiveUpRequest{})
			case 4:
				env.FireTimers()
			case 5:
				if rng.Intn(10) == 0 {
					g.RemovePlayer(uid)
				}
			}
			if p := g.Phase(); p == protocol.GuessWordGuessing || p == protocol.GuessWordVoting {
				require.GreaterOrEqual(t, g.TurnIndex(), 0)
				require.Less(t, g.TurnIndex(), len(g.Order()))
				require.False(t, g.Outcome(g.Current()).Finished())
			}
		}
	}
}
