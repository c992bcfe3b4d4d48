package back

import (
	"context"
	"errors"
	"fmt"
	"helo/internal/rating"
	"helo/internal/util"

	log "github.com/sirupsen/logrus"
)

// ErrNotConfirmed is returned when posting a match that lacks the
// confirmation of one of its sides.
var ErrNotConfirmed = errors.New("match is not confirmed by both sides")

// ConfirmSide records the confirmation of one side, the match is posted as
// soon as both sides confirmed it.
func (b *Back) ConfirmSide(ctx context.Context, matchID util.UUIDAsBlob, side Side, by string) (Match, error) {
	m, err := b.confirmSide(ctx, matchID, side, by)
	if err != nil {
		return Match{}, err
	}

	if !m.IsConfirmed() || m.Posted {
		return m, nil
	}

	if err := b.ConfirmMatch(ctx, matchID); err != nil {
		return Match{}, err
	}

	return b.store.GetMatch(ctx, matchID)
}

func (b *Back) confirmSide(ctx context.Context, matchID util.UUIDAsBlob, side Side, by string) (Match, error) {
	m, err := b.store.GetMatch(ctx, matchID)
	if err != nil {
		return Match{}, err
	}

	unlock, err := b.locker.Lock(ctx, entityLockKeys(m.EntityIDs())...)
	if err != nil {
		return Match{}, fmt.Errorf("unable to lock match %s: %w", m.Reference, err)
	}
	defer unlock()

	if m, err = b.store.GetMatch(ctx, matchID); err != nil {
		return Match{}, err
	}
	if err := m.Confirm(side, by); err != nil {
		return Match{}, err
	}

	if err := b.store.UpsertMatch(ctx, m); err != nil {
		return Match{}, err
	}

	return m, nil
}

// ConfirmMatch posts a match confirmed by both sides: ratings are computed
// from what each entity had right before the match and written to the
// ledger. Posting an already posted match is a no-op.
func (b *Back) ConfirmMatch(ctx context.Context, matchID util.UUIDAsBlob) error {
	m, err := b.store.GetMatch(ctx, matchID)
	if err != nil {
		return err
	}

	if err := m.Validate(b.rules); err != nil {
		return err
	}
	if !m.IsConfirmed() {
		return fmt.Errorf("match %s: %w", m.Reference, ErrNotConfirmed)
	}
	if m.Posted {
		log.Debugf("match %s already posted", m.Reference)
		return nil
	}

	unlock, err := b.locker.Lock(ctx, entityLockKeys(m.EntityIDs())...)
	if err != nil {
		return fmt.Errorf("unable to lock match %s: %w", m.Reference, err)
	}
	defer unlock()

	// Re-read under lock, a concurrent confirmation may have won the race.
	m, err = b.store.GetMatch(ctx, matchID)
	if err != nil {
		return err
	}
	if m.Posted {
		return nil
	}
	if err := m.Validate(b.rules); err != nil {
		return err
	}

	stale, err := b.recompute(ctx, m)
	if err != nil {
		return fmt.Errorf("unable to post match %s: %w", m.Reference, err)
	}

	m.Posted = true
	if stale {
		m.NeedsRecalculation = true
		log.Infof("match %s was confirmed after later matches of its entities, flagged for recalculation", m.Reference)
	}

	if err := b.store.UpsertMatch(ctx, m); err != nil {
		return err
	}

	log.Infof("posted match %s", m.Reference)

	return nil
}

// recompute rates m from the ledger and writes the resulting entries.
// It reports stale when any participant has entries after m, which means
// these entries were computed without m and must be replayed.
func (b *Back) recompute(ctx context.Context, m Match) (stale bool, err error) {
	side1, side2 := m.Side(Side1), m.Side(Side2)
	entries := append(side1, side2...)
	priors := make([]priorState, len(entries))
	for k, v := range entries {
		if _, err := b.store.GetEntity(ctx, v.EntityID); err != nil {
			return false, fmt.Errorf("entity %s: %w", v.EntityID, err)
		}

		priors[k], err = b.priorState(ctx, v.EntityID, m)
		if err != nil {
			return false, fmt.Errorf("unable to get rating of entity %s: %w", v.EntityID, err)
		}
	}

	in, err := coopInput(m, priors[:len(side1)], priors[len(side1):])
	if err != nil {
		return false, err
	}

	new1, new2, err := b.rules.Aggregate(in)
	if err != nil {
		return false, err
	}

	ratings := append(new1, new2...)
	for k, v := range entries {
		prior := priors[k]
		entry := LedgerEntry{
			EntityID:       v.EntityID,
			MatchID:        m.ID,
			SequenceNumber: prior.MatchCount + 1,
			RatingAfter:    ratings[k],
			CreatedAt:      m.Date,
		}
		if prior.HasExisting {
			entry.SequenceNumber = prior.Existing.SequenceNumber
		}

		if err := b.Append(ctx, entry); err != nil {
			return false, err
		}

		if !prior.HasExisting || !prior.Existing.CreatedAt.Equal(m.Date) {
			if _, err := b.resequence(ctx, v.EntityID); err != nil {
				return false, err
			}
		}

		latest, err := b.syncEntity(ctx, v.EntityID)
		if err != nil {
			return false, err
		}

		if latest.MatchID != m.ID {
			stale = true
		}
	}

	return stale, nil
}

func coopInput(m Match, priors1, priors2 []priorState) (rating.CoopInput, error) {
	players1, err := m.distribution(Side1)
	if err != nil {
		return rating.CoopInput{}, err
	}
	players2, err := m.distribution(Side2)
	if err != nil {
		return rating.CoopInput{}, err
	}

	in := rating.CoopInput{
		Players1:    players1,
		Players2:    players2,
		Points1:     m.ObjectivePoints1,
		Points2:     m.ObjectivePoints2,
		Factor:      m.CompetitiveFactor,
		PlayerCount: m.TotalPlayers,
	}

	for _, v := range priors1 {
		in.Ratings1 = append(in.Ratings1, v.Rating)
		in.Matches1 = append(in.Matches1, v.MatchCount)
	}
	for _, v := range priors2 {
		in.Ratings2 = append(in.Ratings2, v.Rating)
		in.Matches2 = append(in.Matches2, v.MatchCount)
	}

	return in, nil
}
