// internal/protocol/snapshot.go
package protocol

// UserInfo is a room member as listed in INIT.
type UserInfo struct {
	UID  uint16
	Name string
}

// GuessRecord is one judged guess in a player's history.
type GuessRecord struct {
	Guess  string
	Result bool
}

type GuessWordPlayer struct {
	UID          uint16
	Question     string
	History      []GuessRecord
	SuccessRound int16
}

type VoteEntry struct {
	UID  uint16
	Vote Vote
}

// GuessWordSnapshot is the Guess-Word specific part of INIT.
type GuessWordSnapshot struct {
	Players     []GuessWordPlayer
	Phase       uint8
	Order       []uint16
	TurnIndex   uint8
	VotingGuess string
	Votes       []VoteEntry
}

type ArrangeNumberPlayer struct {
	UID     uint16
	Numbers []uint16
	Urgent  bool
}

// ArrangeNumberSnapshot is the Arrange-Number specific part of INIT.
type ArrangeNumberSnapshot struct {
	Players       []ArrangeNumberPlayer
	MaxNumber     uint16
	GroupCount    uint8
	PerPlayer     uint8
	Phase         uint8
	LastUID       uint16
	CurrentNumber uint16
}

// InitEvent is the full room snapshot a member receives on entry. Exactly one
// of GuessWord and ArrangeNumber is set, selected by GameType.
type InitEvent struct {
	GameType      GameType
	Users         []UserInfo
	GuessWord     *GuessWordSnapshot
	ArrangeNumber *ArrangeNumberSnapshot
}

func (m *InitEvent) encode(w *Writer) {
	w.Uint8(uint8(m.GameType))
	w.Count(len(m.Users))
	for _, u := range m.Users {
		w.Uint16(u.UID)
		w.String(u.Name)
	}

	switch m.GameType {
	case GameGuessWord:
		s := m.GuessWord
		if s == nil {
			s = &GuessWordSnapshot{}
		}
		w.Count(len(s.Players))
		for _, p := range s.Players {
			w.Uint16(p.UID)
			w.String(p.Question)
			// Only the most recent guesses fit the 1-byte count.
			hist := p.History
			if len(hist) > maxListLen {
				hist = hist[len(hist)-maxListLen:]
			}
			w.Count(len(hist))
			for _, h := range hist {
				w.String(h.Guess)
				w.Bool(h.Result)
			}
			w.Int16(p.SuccessRound)
		}
		w.Uint8(s.Phase)
		writeUint16s(w, s.Order)
		w.Uint8(s.TurnIndex)
		w.String(s.VotingGuess)
		w.Count(len(s.Votes))
		for _, v := range s.Votes {
			w.Uint16(v.UID)
			w.Uint8(uint8(v.Vote))
		}

	case GameArrangeNumber:
		s := m.ArrangeNumber
		if s == nil {
			s = &ArrangeNumberSnapshot{}
		}
		w.Count(len(s.Players))
		for _, p := range s.Players {
			w.Uint16(p.UID)
			writeUint16s(w, p.Numbers)
			w.Bool(p.Urgent)
		}
		w.Uint16(s.MaxNumber)
		w.Uint8(s.GroupCount)
		w.Uint8(s.PerPlayer)
		w.Uint8(s.Phase)
		w.Uint16(s.LastUID)
		w.Uint16(s.CurrentNumber)
	}
}

func (m *InitEvent) decode(r *Reader) {
	m.GameType = GameType(r.Uint8())
	n := int(r.Uint8())
	for i := 0; i < n && r.Err() == nil; i++ {
		m.Users = append(m.Users, UserInfo{UID: r.Uint16(), Name: r.String()})
	}

	switch m.GameType {
	case GameGuessWord:
		s := &GuessWordSnapshot{}
		n = int(r.Uint8())
		for i := 0; i < n && r.Err() == nil; i++ {
			p := GuessWordPlayer{UID: r.Uint16(), Question: r.String()}
			hn := int(r.Uint8())
			for j := 0; j < hn && r.Err() == nil; j++ {
				p.History = append(p.History, GuessRecord{Guess: r.String(), Result: r.Bool()})
			}
			p.SuccessRound = r.Int16()
			s.Players = append(s.Players, p)
		}
		s.Phase = r.Uint8()
		s.Order = readUint16s(r)
		s.TurnIndex = r.Uint8()
		s.VotingGuess = r.String()
		n = int(r.Uint8())
		for i := 0; i < n && r.Err() == nil; i++ {
			s.Votes = append(s.Votes, VoteEntry{UID: r.Uint16(), Vote: Vote(r.Uint8())})
		}
		m.GuessWord = s

	case GameArrangeNumber:
		s := &ArrangeNumberSnapshot{}
		n = int(r.Uint8())
		for i := 0; i < n && r.Err() == nil; i++ {
			p := ArrangeNumberPlayer{UID: r.Uint16()}
			p.Numbers = readUint16s(r)
			p.Urgent = r.Bool()
			s.Players = append(s.Players, p)
		}
		s.MaxNumber = r.Uint16()
		s.GroupCount = r.Uint8()
		s.PerPlayer = r.Uint8()
		s.Phase = r.Uint8()
		s.LastUID = r.Uint16()
		s.CurrentNumber = r.Uint16()
		m.ArrangeNumber = s
	}
}
