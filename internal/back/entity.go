package back

import (
	"helo/internal/util"
	"time"
)

// An Entity is a competing team (a clan) with a single rating.
// Rating and MatchCount mirror the entity's latest LedgerEntry, they are
// only written by syncEntity.
type Entity struct {
	ID          util.UUIDAsBlob
	CreatedAt   util.TimeAsTimestamp
	LastUpdated util.TimeAsTimestamp
	Tag         string `validate:"required,max=32"`
	Name        string `validate:"max=128"`

	Rating     int
	MatchCount int `validate:"gte=0"`
}

func NewEntity(tag, name string, defaultRating int) Entity {
	now := util.NewTimeAsTimestamp(time.Now())
	return Entity{
		ID:          util.NewUUIDAsBlob(),
		CreatedAt:   now,
		LastUpdated: now,
		Tag:         tag,
		Name:        name,
		Rating:      defaultRating,
	}
}

type byRating []Entity

func (a byRating) Len() int {
	return len(a)
}

func (a byRating) Less(i, j int) bool {
	if a[i].Rating == a[j].Rating {
		return a[i].Tag < a[j].Tag
	}

	return a[i].Rating > a[j].Rating
}

func (a byRating) Swap(i, j int) {
	a[i], a[j] = a[j], a[i]
}
