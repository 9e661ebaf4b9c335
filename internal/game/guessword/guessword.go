// internal/game/guessword/guessword.go
package guessword

import (
	"math/rand/v2"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jason-s-yu/meowgames/internal/game"
	"github.com/jason-s-yu/meowgames/internal/protocol"
	"github.com/sirupsen/logrus"
)

// DefaultIdleTimeout is how long a guesser or voter may stall before the
// server acts for them.
const DefaultIdleTimeout = 20 * time.Second

// Config tunes a Guess-Word table.
type Config struct {
	IdleTimeout time.Duration
}

type player struct {
	uid      uint16
	question string
	locked   bool
	history  []protocol.GuessRecord
	outcome  game.Outcome
}

func (p *player) reset() {
	p.question = ""
	p.locked = false
	p.history = nil
	p.outcome = game.Outcome{}
}

// Game is the Guess-Word state machine:
//
//	WAITING -> PREPARING -> GUESSING <-> VOTING -> WAITING
//
// Each player sets a question for the next player in turn order, then players
// take turns guessing their own hidden question while the others judge.
type Game struct {
	env game.Env
	cfg Config

	phase   uint8
	round   int
	players map[uint16]*player
	joined  []uint16 // join order, used for listings
	order   []uint16
	index   int

	pendingGuess string
	votes        map[uint16]protocol.Vote

	stopIdle  func()
	startedAt time.Time
}

func New(env game.Env, cfg Config) *Game {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	return &Game{
		env:     env,
		cfg:     cfg,
		phase:   protocol.GuessWordWaiting,
		players: make(map[uint16]*player),
		votes:   make(map[uint16]protocol.Vote),
	}
}

func (g *Game) Type() protocol.GameType { return protocol.GameGuessWord }
func (g *Game) Phase() uint8            { return g.phase }
func (g *Game) Playing() bool           { return g.phase != protocol.GuessWordWaiting }
func (g *Game) PlayerCount() int        { return len(g.players) }
func (g *Game) CanStart() bool          { return true }

func (g *Game) IsPlayer(uid uint16) bool {
	_, ok := g.players[uid]
	return ok
}

// Round returns the current round, starting at 1.
func (g *Game) Round() int { return g.round }

// TurnIndex returns the index into Order of the player whose turn it is.
func (g *Game) TurnIndex() int { return g.index }

// Order returns a copy of the turn order.
func (g *Game) Order() []uint16 {
	out := make([]uint16, len(g.order))
	copy(out, g.order)
	return out
}

// Outcome returns uid's current result.
func (g *Game) Outcome(uid uint16) game.Outcome {
	if p, ok := g.players[uid]; ok {
		return p.outcome
	}
	return game.Outcome{}
}

// Current returns the uid of the player whose turn it is, or 0 outside a turn.
func (g *Game) Current() uint16 {
	if g.phase != protocol.GuessWordGuessing && g.phase != protocol.GuessWordVoting {
		return 0
	}
	return g.order[g.index]
}

func (g *Game) log() *logrus.Entry {
	return g.env.Logger().WithField("game", "guess_word")
}

func (g *Game) AddPlayer(uid uint16) bool {
	if g.Playing() || g.IsPlayer(uid) {
		return false
	}
	g.players[uid] = &player{uid: uid}
	g.joined = append(g.joined, uid)
	return true
}

func (g *Game) RemovePlayer(uid uint16) {
	if !g.IsPlayer(uid) {
		return
	}
	delete(g.players, uid)
	g.joined = without(g.joined, uid)
	if !g.Playing() {
		return
	}

	if len(g.players) < game.MinPlayers {
		g.log().WithField("uid", uid).Info("Too few players left, aborting match")
		g.reset()
		game.ForceEnd(g.env, g.Type())
		return
	}

	pos := indexOf(g.order, uid)
	g.order = without(g.order, uid)
	delete(g.votes, uid)

	switch g.phase {
	case protocol.GuessWordPreparing:
		g.broadcastOrder(true)
		g.checkAllLocked()
		return

	case protocol.GuessWordGuessing, protocol.GuessWordVoting:
		if pos == g.index {
			// The guesser left; the turn passes on.
			g.index = pos - 1
			g.advance(true)
			return
		}
		if pos < g.index {
			g.index--
		}
		if g.remaining() == 0 {
			g.finish()
			return
		}
		g.broadcastOrder(true)
		if g.phase == protocol.GuessWordVoting {
			g.checkAllVoted()
		} else {
			g.armIdle()
		}
	}
}

func (g *Game) Start() {
	g.disarmIdle()
	g.round = 1
	g.index = 0
	g.pendingGuess = ""
	g.votes = make(map[uint16]protocol.Vote)
	g.startedAt = time.Now()

	g.order = make([]uint16, len(g.joined))
	copy(g.order, g.joined)
	rand.Shuffle(len(g.order), func(i, j int) { g.order[i], g.order[j] = g.order[j], g.order[i] })
	for _, p := range g.players {
		p.reset()
	}

	g.phase = protocol.GuessWordPreparing
	g.log().WithField("order", g.order).Info("Match started")

	g.env.Broadcast(&protocol.StartEvent{})
	g.broadcastPhase()
	g.broadcastOrder(true)
	g.env.Record(0, "start", map[string]interface{}{"order": g.Order()})
}

func (g *Game) Handle(uid uint16, req protocol.Request) {
	switch r := req.(type) {
	case *protocol.QuestionRequest:
		g.assignQuestion(uid, r.Question, r.Locked)
	case *protocol.GuessRequest:
		g.guess(uid, r.Guess)
	case *protocol.VoteRequest:
		g.vote(uid, r.Vote)
	case *protocol.GiveUpRequest:
		g.giveUp(uid)
	default:
		g.log().WithFields(logrus.Fields{"uid": uid, "type": req.Type()}).Debug("Ignoring request not handled by guess word")
	}
}

func validText(s string) bool {
	return s != "" && len(s) <= protocol.MaxStringLen && utf8.ValidString(s)
}

func (g *Game) assignQuestion(uid uint16, text string, locked bool) {
	if g.phase != protocol.GuessWordPreparing || !g.IsPlayer(uid) {
		return
	}
	text = strings.TrimSpace(text)
	if !validText(text) {
		return
	}
	pos := indexOf(g.order, uid)
	if pos < 0 {
		return
	}
	target := g.players[g.order[(pos+1)%len(g.order)]]
	if target.locked {
		return
	}
	if target.question == text && target.locked == locked {
		return
	}

	target.question = text
	target.locked = locked

	g.env.Broadcast(&protocol.QuestionEvent{UID: target.uid, Locked: locked, Question: text}, target.uid)
	g.env.Send(target.uid, &protocol.QuestionEvent{UID: target.uid, Locked: locked, Concealed: true})
	g.env.Record(uid, "question", map[string]interface{}{"target": target.uid, "locked": locked, "question": text})

	g.checkAllLocked()
}

func (g *Game) checkAllLocked() {
	if g.phase != protocol.GuessWordPreparing {
		return
	}
	for _, p := range g.players {
		if !p.locked {
			return
		}
	}
	g.phase = protocol.GuessWordGuessing
	g.broadcastPhase()
	g.broadcastOrder(false)
	g.armIdle()
}

func (g *Game) guess(uid uint16, text string) {
	if g.phase != protocol.GuessWordGuessing || uid != g.Current() {
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		g.pass(uid)
		return
	}
	if !validText(text) {
		return
	}

	g.disarmIdle()
	g.pendingGuess = text
	g.votes = make(map[uint16]protocol.Vote)
	g.phase = protocol.GuessWordVoting

	g.broadcastPhase()
	g.env.Broadcast(&protocol.GuessEvent{Guess: text})
	g.env.Record(uid, "guess", map[string]interface{}{"guess": text, "round": g.round})
	g.armIdle()
}

func (g *Game) pass(uid uint16) {
	g.env.Broadcast(&protocol.SkipGuessEvent{UID: uid})
	g.env.Record(uid, "pass", map[string]interface{}{"round": g.round})
	g.advance(false)
}

func (g *Game) vote(uid uint16, v protocol.Vote) {
	if g.phase != protocol.GuessWordVoting || !v.Valid() {
		return
	}
	if !g.IsPlayer(uid) || uid == g.Current() {
		return
	}
	if _, done := g.votes[uid]; done {
		return
	}
	g.votes[uid] = v
	g.env.Broadcast(&protocol.VoteEvent{UID: uid, Vote: v})
	g.env.Record(uid, "vote", map[string]interface{}{"vote": int(v)})
	g.checkAllVoted()
}

func (g *Game) checkAllVoted() {
	if g.phase != protocol.GuessWordVoting || len(g.votes) < len(g.players)-1 {
		return
	}
	g.tally()
}

// tally settles a vote by simple majority of cast ballots. Abstentions do not
// count; a tie, including no ballots at all, sends the guesser back to guess
// again.
func (g *Game) tally() {
	g.disarmIdle()

	agree, deny := 0, 0
	for _, v := range g.votes {
		switch v {
		case protocol.VoteAgree:
			agree++
		case protocol.VoteDeny:
			deny++
		}
	}

	guesser := g.players[g.Current()]
	guess := g.pendingGuess
	g.pendingGuess = ""
	g.votes = make(map[uint16]protocol.Vote)

	if agree == deny {
		g.phase = protocol.GuessWordGuessing
		g.env.Broadcast(&protocol.GuessAgainEvent{})
		g.broadcastPhase()
		g.broadcastOrder(false)
		g.env.Record(guesser.uid, "verdict", map[string]interface{}{"guess": guess, "agree": agree, "deny": deny, "result": "again"})
		g.armIdle()
		return
	}

	solved := agree > deny
	guesser.history = append(guesser.history, protocol.GuessRecord{Guess: guess, Result: solved})
	g.env.Broadcast(&protocol.GuessRecordEvent{UID: guesser.uid, Guess: guess, Result: solved})
	g.env.Record(guesser.uid, "verdict", map[string]interface{}{"guess": guess, "agree": agree, "deny": deny, "result": solved})

	if solved {
		guesser.outcome = game.SolvedIn(g.round)
		g.env.Broadcast(&protocol.SuccessEvent{UID: guesser.uid, Round: guesser.outcome.WireRound(), Answer: guesser.question})
		g.log().WithFields(logrus.Fields{"uid": guesser.uid, "round": g.round}).Info("Player solved their question")
	}
	g.advance(false)
}

func (g *Game) giveUp(uid uint16) {
	if g.phase != protocol.GuessWordGuessing || uid != g.Current() {
		return
	}
	p := g.players[uid]
	p.outcome = game.GiveUp()
	g.env.Broadcast(&protocol.SuccessEvent{UID: uid, Round: p.outcome.WireRound(), Answer: p.question})
	g.env.Record(uid, "give_up", map[string]interface{}{"round": g.round})
	g.advance(false)
}

// advance hands the turn to the next unfinished player, bumping the round on
// wrap-around, or ends the match once everyone is done.
func (g *Game) advance(withOrder bool) {
	g.disarmIdle()
	g.pendingGuess = ""
	g.votes = make(map[uint16]protocol.Vote)

	if g.remaining() == 0 {
		g.finish()
		return
	}
	for {
		g.index++
		if g.index >= len(g.order) {
			g.index = 0
			g.round++
		}
		if !g.players[g.order[g.index]].outcome.Finished() {
			break
		}
	}

	g.phase = protocol.GuessWordGuessing
	g.broadcastPhase()
	g.broadcastOrder(withOrder)
	g.armIdle()
}

func (g *Game) remaining() int {
	n := 0
	for _, p := range g.players {
		if !p.outcome.Finished() {
			n++
		}
	}
	return n
}

// armIdle schedules the server-side idle action for the current decision.
// A guesser who is the only unfinished player keeps the turn without a clock,
// since passing would hand it straight back to them.
func (g *Game) armIdle() {
	g.disarmIdle()
	switch g.phase {
	case protocol.GuessWordGuessing:
		if g.remaining() <= 1 {
			return
		}
	case protocol.GuessWordVoting:
	default:
		return
	}
	g.stopIdle = g.env.After(g.cfg.IdleTimeout, g.onIdle)
}

func (g *Game) disarmIdle() {
	if g.stopIdle != nil {
		g.stopIdle()
		g.stopIdle = nil
	}
}

func (g *Game) onIdle() {
	g.stopIdle = nil
	switch g.phase {
	case protocol.GuessWordGuessing:
		uid := g.Current()
		g.log().WithField("uid", uid).Info("Guesser idle, passing")
		g.pass(uid)

	case protocol.GuessWordVoting:
		guesser := g.Current()
		for _, uid := range g.order {
			if uid == guesser {
				continue
			}
			if _, done := g.votes[uid]; !done {
				g.votes[uid] = protocol.VoteAbstain
				g.env.Broadcast(&protocol.VoteEvent{UID: uid, Vote: protocol.VoteAbstain})
			}
		}
		g.log().WithField("guesser", guesser).Info("Voting window elapsed, counting missing ballots as abstain")
		g.tally()
	}
}

func (g *Game) finish() {
	standings := make([]game.Standing, 0, len(g.order))
	for _, uid := range g.order {
		if p, ok := g.players[uid]; ok {
			standings = append(standings, game.Standing{UID: uid, Outcome: p.outcome})
		}
	}
	ranking := game.Rank(standings)

	result := game.MatchResult{
		GameType:  g.Type(),
		Success:   true,
		StartedAt: g.startedAt,
		EndedAt:   time.Now(),
	}
	for _, e := range ranking {
		result.Players = append(result.Players, game.PlayerResult{
			UID:    e.UID,
			Round:  e.Round,
			GaveUp: g.players[e.UID].outcome.Kind == game.GaveUp,
			Rank:   e.Rank,
		})
	}

	g.log().WithField("rounds", g.round).Info("Match finished")
	g.env.Broadcast(&protocol.EndEvent{Success: true, Ranking: ranking})
	g.env.Record(0, "end", map[string]interface{}{"forced": false, "rounds": g.round})
	g.env.Finish(result)
	g.reset()
}

func (g *Game) reset() {
	g.disarmIdle()
	g.phase = protocol.GuessWordWaiting
	g.round = 0
	g.order = nil
	g.index = 0
	g.pendingGuess = ""
	g.votes = make(map[uint16]protocol.Vote)
	for _, p := range g.players {
		p.reset()
	}
}

func (g *Game) broadcastPhase() {
	g.env.Broadcast(&protocol.GameStateEvent{State: g.phase})
}

func (g *Game) broadcastOrder(withOrder bool) {
	ev := &protocol.PlayerOrderEvent{Index: uint8(g.index), HasOrder: withOrder}
	if withOrder {
		ev.Order = g.Order()
	}
	g.env.Broadcast(ev)
}

// Snapshot renders the table for viewer. The viewer's own question is blank.
func (g *Game) Snapshot(viewer uint16, users []protocol.UserInfo) *protocol.InitEvent {
	s := &protocol.GuessWordSnapshot{
		Phase:       g.phase,
		Order:       g.Order(),
		TurnIndex:   uint8(g.index),
		VotingGuess: g.pendingGuess,
	}
	for _, uid := range g.joined {
		p := g.players[uid]
		gp := protocol.GuessWordPlayer{UID: uid, SuccessRound: p.outcome.WireRound()}
		if uid != viewer {
			gp.Question = p.question
		}
		gp.History = append(gp.History, p.history...)
		s.Players = append(s.Players, gp)
	}
	for _, uid := range g.order {
		if v, ok := g.votes[uid]; ok {
			s.Votes = append(s.Votes, protocol.VoteEntry{UID: uid, Vote: v})
		}
	}
	if len(s.Order) == 0 {
		s.Order = nil
	}
	return &protocol.InitEvent{GameType: g.Type(), Users: users, GuessWord: s}
}

func indexOf(list []uint16, uid uint16) int {
	for i, v := range list {
		if v == uid {
			return i
		}
	}
	return -1
}

func without(list []uint16, uid uint16) []uint16 {
	i := indexOf(list, uid)
	if i < 0 {
		return list
	}
	out := make([]uint16, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...)
}
