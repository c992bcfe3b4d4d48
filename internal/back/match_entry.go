package back

import (
	"helo/internal/util"
)

// A MatchEntry is the participation of one entity to one side of a match.
type MatchEntry struct {
	MatchID  util.UUIDAsBlob
	EntityID util.UUIDAsBlob
	Side     Side `validate:"oneof=1 2"`
	Position int  `validate:"gte=0"`

	// Players is the number of players the entity fielded, it weights the
	// entity in a coop side. 0 means unknown.
	Players int `validate:"gte=0,lte=100"`
}

type Side int

const ( // this is stored in DB, don't change values
	Side1 Side = 1
	Side2 Side = 2
)

func NewMatchEntry(matchID, entityID util.UUIDAsBlob, side Side, position, players int) MatchEntry {
	return MatchEntry{
		MatchID:  matchID,
		EntityID: entityID,
		Side:     side,
		Position: position,
		Players:  players,
	}
}

type byPosition []MatchEntry

func (a byPosition) Len() int {
	return len(a)
}

func (a byPosition) Less(i, j int) bool {
	if a[i].Side == a[j].Side {
		return a[i].Position < a[j].Position
	}

	return a[i].Side < a[j].Side
}

func (a byPosition) Swap(i, j int) {
	a[i], a[j] = a[j], a[i]
}
