// internal/game/arrangenumber/arrangenumber.go
package arrangenumber

import (
	"math/rand/v2"
	"slices"
	"strconv"
	"time"

	"github.com/jason-s-yu/meowgames/internal/game"
	"github.com/jason-s-yu/meowgames/internal/protocol"
	"github.com/sirupsen/logrus"
)

// Config tunes an Arrange-Number table. A zero Seed picks a time based seed.
type Config struct {
	Rule PoseRule
	Seed uint64
}

type player struct {
	uid     uint16
	numbers []uint16 // ascending
	urgent  bool
}

// Game is the Arrange-Number state machine: WAITING -> PLAYING -> WAITING.
// Everyone is dealt hidden numbers and the table must play all of them in
// ascending order without talking about them.
type Game struct {
	env  game.Env
	rule PoseRule
	rng  *rand.Rand

	phase    uint8
	settings Settings
	players  map[uint16]*player
	joined   []uint16

	lastUID   uint16
	current   uint16
	startedAt time.Time
}

func New(env game.Env, cfg Config) *Game {
	if cfg.Rule == nil {
		cfg.Rule = LowestOutstanding
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Game{
		env:      env,
		rule:     cfg.Rule,
		rng:      rand.New(rand.NewPCG(seed, seed>>1|1)),
		phase:    protocol.ArrangeNumberWaiting,
		settings: DefaultSettings(),
		players:  make(map[uint16]*player),
	}
}

func (g *Game) Type() protocol.GameType { return protocol.GameArrangeNumber }
func (g *Game) Phase() uint8            { return g.phase }
func (g *Game) Playing() bool           { return g.phase == protocol.ArrangeNumberPlaying }
func (g *Game) PlayerCount() int        { return len(g.players) }
func (g *Game) Settings() Settings      { return g.settings }

func (g *Game) IsPlayer(uid uint16) bool {
	_, ok := g.players[uid]
	return ok
}

// Hand returns a copy of uid's remaining numbers, lowest first.
func (g *Game) Hand(uid uint16) []uint16 {
	p, ok := g.players[uid]
	if !ok {
		return nil
	}
	return slices.Clone(p.numbers)
}

// Urgent reports uid's urgent flag.
func (g *Game) Urgent(uid uint16) bool {
	p, ok := g.players[uid]
	return ok && p.urgent
}

func (g *Game) log() *logrus.Entry {
	return g.env.Logger().WithField("game", "arrange_number")
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
	g.joined = slices.DeleteFunc(g.joined, func(v uint16) bool { return v == uid })
	if !g.Playing() {
		return
	}
	if len(g.players) < game.MinPlayers {
		g.log().WithField("uid", uid).Info("Too few players left, aborting match")
		g.reset()
		game.ForceEnd(g.env, g.Type())
		return
	}
	if g.allEmpty() {
		g.end(true)
	}
}

func (g *Game) CanStart() bool { return g.settings.Allows(len(g.players)) }

func (g *Game) Start() {
	if !g.CanStart() {
		g.log().WithField("settings", g.settings).Warn("Start requested with too few numbers in the pool")
		return
	}
	g.deal()
	g.phase = protocol.ArrangeNumberPlaying
	g.lastUID, g.current = 0, 0
	g.startedAt = time.Now()

	g.env.Broadcast(&protocol.StartEvent{})
	for _, uid := range g.joined {
		g.env.Send(uid, &protocol.PlayerNumbersEvent{Numbers: g.Hand(uid)})
	}
	table := g.table()
	for _, uid := range g.env.Members() {
		if !g.IsPlayer(uid) {
			g.env.Send(uid, table)
		}
	}

	hands := make(map[string]interface{}, len(g.players))
	for _, uid := range g.joined {
		hands[uintKey(uid)] = g.Hand(uid)
	}
	g.env.Record(0, "deal", map[string]interface{}{
		"max_number": g.settings.MaxNumber, "group_count": g.settings.GroupCount,
		"per_player": g.settings.PerPlayer, "hands": hands,
	})
	g.log().WithFields(logrus.Fields{"players": len(g.players), "settings": g.settings}).Info("Match started")
}

// deal hands out PerPlayer numbers to everyone. With a bounded pool the
// numbers are drawn without replacement.
func (g *Game) deal() {
	need := len(g.joined) * g.settings.PerPlayer
	drawn := make([]uint16, 0, need)

	if _, unlimited := g.settings.Supply(); unlimited {
		for i := 0; i < need; i++ {
			drawn = append(drawn, uint16(g.rng.IntN(g.settings.MaxNumber)+1))
		}
	} else {
		pool := make([]uint16, 0, g.settings.MaxNumber*g.settings.GroupCount)
		for grp := 0; grp < g.settings.GroupCount; grp++ {
			for n := 1; n <= g.settings.MaxNumber; n++ {
				pool = append(pool, uint16(n))
			}
		}
		g.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		drawn = append(drawn, pool[:need]...)
	}

	for i, uid := range g.joined {
		p := g.players[uid]
		p.numbers = slices.Clone(drawn[i*g.settings.PerPlayer : (i+1)*g.settings.PerPlayer])
		slices.Sort(p.numbers)
		p.urgent = false
	}
}

func (g *Game) Handle(uid uint16, req protocol.Request) {
	switch r := req.(type) {
	case *protocol.SetMaxNumberRequest:
		g.changeSetting(uid, "max_number", int(r.Value), ValidMaxNumber, func(s *Settings) *int { return &s.MaxNumber })
	case *protocol.SetNumberGroupCountRequest:
		g.changeSetting(uid, "group_count", int(r.Value), ValidGroupCount, func(s *Settings) *int { return &s.GroupCount })
	case *protocol.SetNumberPerPlayerRequest:
		g.changeSetting(uid, "per_player", int(r.Value), ValidPerPlayer, func(s *Settings) *int { return &s.PerPlayer })
	case *protocol.PoseNumberRequest:
		g.pose(uid)
	case *protocol.SetUrgentRequest:
		g.setUrgent(uid, r.Urgent)
	default:
		g.log().WithFields(logrus.Fields{"uid": uid, "type": req.Type()}).Debug("Ignoring request not handled by arrange number")
	}
}

func (g *Game) changeSetting(uid uint16, name string, v int, valid func(int) bool, field func(*Settings) *int) {
	if g.phase != protocol.ArrangeNumberWaiting || g.env.CountingDown() || !g.IsPlayer(uid) {
		return
	}
	if !valid(v) {
		g.log().WithFields(logrus.Fields{"uid": uid, "setting": name, "value": v}).Debug("Setting out of range")
		return
	}
	ptr := field(&g.settings)
	if *ptr == v {
		return
	}
	*ptr = v
	g.env.Broadcast(g.settings.event())
	g.env.Record(uid, "settings", map[string]interface{}{name: v})
}

func (g *Game) pose(uid uint16) {
	if !g.Playing() || !g.IsPlayer(uid) {
		return
	}
	p := g.players[uid]
	if len(p.numbers) == 0 {
		return
	}

	n := p.numbers[0]
	p.numbers = p.numbers[1:]
	pose := Pose{UID: uid, Number: n, PreviousUID: g.lastUID, Previous: g.current}
	g.lastUID, g.current = uid, n

	g.env.Broadcast(&protocol.PoseNumberEvent{UID: uid, Number: n})
	g.env.Record(uid, "pose", map[string]interface{}{"number": n})

	others := make(map[uint16][]uint16, len(g.players)-1)
	for other, op := range g.players {
		if other != uid {
			others[other] = op.numbers
		}
	}
	if !g.rule(pose, others) {
		g.log().WithFields(logrus.Fields{"uid": uid, "number": n}).Info("Pose out of order, table busts")
		g.env.Broadcast(g.table())
		g.end(false)
		return
	}

	if len(p.numbers) > 0 {
		return
	}
	if p.urgent {
		p.urgent = false
		g.env.Broadcast(&protocol.UrgentPlayerEvent{UID: uid, Urgent: false})
	}
	g.env.Send(uid, g.table())
	if g.allEmpty() {
		g.end(true)
	}
}

func (g *Game) setUrgent(uid uint16, urgent bool) {
	if !g.Playing() || !g.IsPlayer(uid) {
		return
	}
	p := g.players[uid]
	if len(p.numbers) == 0 || p.urgent == urgent {
		return
	}
	p.urgent = urgent
	g.env.Broadcast(&protocol.UrgentPlayerEvent{UID: uid, Urgent: urgent})
	g.env.Record(uid, "urgent", map[string]interface{}{"urgent": urgent})
}

func (g *Game) allEmpty() bool {
	for _, p := range g.players {
		if len(p.numbers) > 0 {
			return false
		}
	}
	return true
}

func (g *Game) end(success bool) {
	result := game.MatchResult{
		GameType:  g.Type(),
		Success:   success,
		StartedAt: g.startedAt,
		EndedAt:   time.Now(),
	}
	for _, uid := range g.joined {
		result.Players = append(result.Players, game.PlayerResult{UID: uid})
	}

	g.log().WithField("success", success).Info("Match finished")
	g.env.Broadcast(&protocol.EndEvent{Success: success})
	g.env.Record(0, "end", map[string]interface{}{"forced": false, "success": success})
	g.env.Finish(result)
	g.reset()
}

func (g *Game) reset() {
	g.phase = protocol.ArrangeNumberWaiting
	g.lastUID, g.current = 0, 0
	for _, p := range g.players {
		p.numbers = nil
		p.urgent = false
	}
}

// table reveals every player's hand.
func (g *Game) table() *protocol.PlayerNumbersEvent {
	ev := &protocol.PlayerNumbersEvent{All: true}
	for _, uid := range g.joined {
		ev.Hands = append(ev.Hands, protocol.PlayerHand{UID: uid, Numbers: g.Hand(uid)})
	}
	return ev
}

// Snapshot renders the table for viewer. A player still holding numbers sees
// only their own values; opponents appear as zero placeholders of the right
// count.
func (g *Game) Snapshot(viewer uint16, users []protocol.UserInfo) *protocol.InitEvent {
	seesAll := true
	if p, ok := g.players[viewer]; ok && len(p.numbers) > 0 {
		seesAll = false
	}

	s := &protocol.ArrangeNumberSnapshot{
		MaxNumber:     uint16(g.settings.MaxNumber),
		GroupCount:    uint8(g.settings.GroupCount),
		PerPlayer:     uint8(g.settings.PerPlayer),
		Phase:         g.phase,
		LastUID:       g.lastUID,
		CurrentNumber: g.current,
	}
	for _, uid := range g.joined {
		p := g.players[uid]
		ap := protocol.ArrangeNumberPlayer{UID: uid, Urgent: p.urgent}
		switch {
		case len(p.numbers) == 0:
		case seesAll || uid == viewer:
			ap.Numbers = slices.Clone(p.numbers)
		default:
			ap.Numbers = make([]uint16, len(p.numbers))
		}
		s.Players = append(s.Players, ap)
	}
	return &protocol.InitEvent{GameType: g.Type(), Users: users, ArrangeNumber: s}
}

func uintKey(uid uint16) string { return strconv.Itoa(int(uid)) }
