package back

import (
	"errors"
	"fmt"
	"helo/internal/rating"
	"helo/internal/util"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/guregu/null.v4"
)

// nolint:gochecknoglobals
var validate = validator.New()

// A Match between two sides of one or more entities.
// Matches are totally ordered by (Date, ID), see Before.
type Match struct {
	ID        util.UUIDAsBlob
	CreatedAt util.TimeAsTimestamp
	Reference string `validate:"required,max=128"`
	Date      util.TimeAsTimestamp
	Map       string `validate:"max=64"`
	Event     string `validate:"max=128"`

	ObjectivePoints1  int     `validate:"gte=0,lte=5"`
	ObjectivePoints2  int     `validate:"gte=0,lte=5"`
	CompetitiveFactor float64 `validate:"gt=0"`

	// TotalPlayers is the number of players per side, 0 lets the player
	// distribution or the ruleset decide.
	TotalPlayers int `validate:"gte=0,lte=100"`

	ConfirmedBySide1 null.String
	ConfirmedBySide2 null.String

	// Posted is set once the match is part of the ledger.
	Posted bool
	// NeedsRecalculation is set on a posted match that was corrected, or on a
	// match confirmed after later matches of its participants.
	NeedsRecalculation bool

	Entries []MatchEntry `db:"-" validate:"min=2,dive"`
}

// NewMatch creates an unconfirmed match with a neutral competitive factor.
func NewMatch(reference string, date time.Time, side1, side2 []util.UUIDAsBlob) Match {
	m := Match{
		ID:                util.NewUUIDAsBlob(),
		CreatedAt:         util.NewTimeAsTimestamp(time.Now()),
		Reference:         reference,
		Date:              util.NewTimeAsTimestamp(date),
		CompetitiveFactor: 1,
		Entries:           make([]MatchEntry, 0, len(side1)+len(side2)),
	}

	for k, v := range side1 {
		m.Entries = append(m.Entries, NewMatchEntry(m.ID, v, Side1, k, 0))
	}
	for k, v := range side2 {
		m.Entries = append(m.Entries, NewMatchEntry(m.ID, v, Side2, k, 0))
	}

	return m
}

// Before reports whether m strictly precedes v in (Date, ID) order.
func (m Match) Before(v Match) bool {
	if !m.Date.Equal(v.Date) {
		return m.Date.Before(v.Date)
	}

	return m.ID.Compare(v.ID) < 0
}

// Side returns the entries of the given side ordered by position.
func (m Match) Side(side Side) []MatchEntry {
	ret := make([]MatchEntry, 0, len(m.Entries))
	for _, v := range m.Entries {
		if v.Side == side {
			ret = append(ret, v)
		}
	}
	sort.Sort(byPosition(ret))

	return ret
}

// EntityIDs returns the IDs of all participants, side 1 first.
func (m Match) EntityIDs() []util.UUIDAsBlob {
	entries := append(m.Side(Side1), m.Side(Side2)...)
	ret := make([]util.UUIDAsBlob, 0, len(entries))
	for _, v := range entries {
		ret = append(ret, v.EntityID)
	}

	return ret
}

func (m Match) HasEntity(id util.UUIDAsBlob) bool {
	for _, v := range m.Entries {
		if v.EntityID == id {
			return true
		}
	}

	return false
}

// SideOf returns the side id played on, false if it did not take part.
func (m Match) SideOf(id util.UUIDAsBlob) (Side, bool) {
	for _, v := range m.Entries {
		if v.EntityID == id {
			return v.Side, true
		}
	}

	return 0, false
}

// Points returns the objective points held by side.
func (m Match) Points(side Side) int {
	if side == Side2 {
		return m.ObjectivePoints2
	}

	return m.ObjectivePoints1
}

func (m Match) IsConfirmed() bool {
	return m.ConfirmedBySide1.Valid && m.ConfirmedBySide2.Valid
}

func (m *Match) Confirm(side Side, by string) error {
	switch side {
	case Side1:
		m.ConfirmedBySide1 = null.StringFrom(by)
	case Side2:
		m.ConfirmedBySide2 = null.StringFrom(by)
	default:
		return util.ErrPublic(fmt.Sprintf("invalid side: %d", side))
	}

	return nil
}

// Validate checks the match against its struct constraints and the ruleset.
func (m Match) Validate(rules rating.Ruleset) error {
	if err := validate.Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return util.ErrPublic(fmt.Sprintf("invalid match %s: %s", m.Reference, verrs.Error()))
		}

		return err
	}

	if len(m.Side(Side1)) == 0 || len(m.Side(Side2)) == 0 {
		return util.ErrPublic(fmt.Sprintf("invalid match %s: both sides need at least one entity", m.Reference))
	}

	seen := make(map[util.UUIDAsBlob]Side, len(m.Entries))
	for _, v := range m.Entries {
		if prev, ok := seen[v.EntityID]; ok {
			if prev != v.Side {
				return fmt.Errorf("match %s: entity %s: %w", m.Reference, v.EntityID, rating.ErrSelfPlay)
			}
			return util.ErrPublic(fmt.Sprintf("invalid match %s: entity %s listed twice", m.Reference, v.EntityID))
		}
		seen[v.EntityID] = v.Side
	}

	if err := rules.CheckPoints(m.ObjectivePoints1, m.ObjectivePoints2); err != nil {
		return fmt.Errorf("match %s: %w", m.Reference, err)
	}

	if err := rules.CheckFactor(m.CompetitiveFactor); err != nil {
		return fmt.Errorf("match %s: %w", m.Reference, err)
	}

	for _, side := range []Side{Side1, Side2} {
		if _, err := m.distribution(side); err != nil {
			return fmt.Errorf("match %s: %w", m.Reference, err)
		}
	}

	return nil
}

// distribution returns the per-entity player counts of a side, nil when none
// is known. A side where only some entities have a count is invalid.
func (m Match) distribution(side Side) ([]int, error) {
	entries := m.Side(side)
	ret := make([]int, 0, len(entries))
	known := 0
	for _, v := range entries {
		ret = append(ret, v.Players)
		if v.Players > 0 {
			known++
		}
	}

	switch known {
	case 0:
		return nil, nil
	case len(entries):
		return ret, nil
	default:
		return nil, fmt.Errorf("side %d has a partial player distribution: %w", side, rating.ErrDivergentWeights)
	}
}

type byDate []Match

func (a byDate) Len() int {
	return len(a)
}

func (a byDate) Less(i, j int) bool {
	return a[i].Before(a[j])
}

func (a byDate) Swap(i, j int) {
	a[i], a[j] = a[j], a[i]
}

// SortMatches sorts matches in place in (Date, ID) order.
func SortMatches(matches []Match) {
	sort.Sort(byDate(matches))
}
