package back_test

import (
	"helo/internal/back"
	"helo/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchOrder(t *testing.T) {
	a, b := util.NewUUIDAsBlob(), util.NewUUIDAsBlob()
	if a.Compare(b) > 0 {
		a, b = b, a
	}

	early := back.Match{ID: b, Date: util.NewTimeAsTimestamp(day0)}
	sameDateLowID := back.Match{ID: a, Date: util.NewTimeAsTimestamp(day0.AddDate(0, 0, 1))}
	sameDateHighID := back.Match{ID: b, Date: util.NewTimeAsTimestamp(day0.AddDate(0, 0, 1))}

	assert.True(t, early.Before(sameDateLowID))
	assert.True(t, sameDateLowID.Before(sameDateHighID))
	assert.False(t, sameDateHighID.Before(sameDateLowID))
	assert.False(t, early.Before(early))

	matches := []back.Match{sameDateHighID, sameDateLowID, early}
	back.SortMatches(matches)
	assert.Equal(t, []back.Match{early, sameDateLowID, sameDateHighID}, matches)
}

func TestMatchSides(t *testing.T) {
	x, y, z := util.NewUUIDAsBlob(), util.NewUUIDAsBlob(), util.NewUUIDAsBlob()
	m := back.NewMatch("m", day0, []util.UUIDAsBlob{x}, []util.UUIDAsBlob{y, z})

	assert.Len(t, m.Side(back.Side1), 1)
	assert.Len(t, m.Side(back.Side2), 2)
	assert.Equal(t, []util.UUIDAsBlob{x, y, z}, m.EntityIDs())
	assert.True(t, m.HasEntity(z))
	assert.False(t, m.HasEntity(util.NewUUIDAsBlob()))
	assert.False(t, m.IsConfirmed())
	assert.Equal(t, 1.0, m.CompetitiveFactor)
}
