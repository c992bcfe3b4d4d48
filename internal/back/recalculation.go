package back

import (
	"context"
	"errors"
	"fmt"
	"helo/internal/util"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
)

// CascadeReport describes a recalculation run.
type CascadeReport struct {
	Root util.UUIDAsBlob

	// Replayed is the number of matches recomputed after the root.
	Replayed int

	// Affected lists every entity whose ledger was rewritten, sorted.
	Affected []util.UUIDAsBlob

	Duration time.Duration
}

// TriggerRecalculation recomputes a match then replays, in (Date, ID) order,
// every posted match dated on or after it. Entries of matches whose date was
// corrected are moved first. Entity ratings converge to what they would have
// been had the matches always been in their current state.
// Errors abort the run and leave the writes already done, running it again
// finishes the job.
func (b *Back) TriggerRecalculation(ctx context.Context, matchID util.UUIDAsBlob) (CascadeReport, error) {
	start := time.Now()
	report := CascadeReport{Root: matchID}

	root, err := b.store.GetMatch(ctx, matchID)
	if err != nil {
		return report, err
	}
	if err := root.Validate(b.rules); err != nil {
		return report, err
	}
	if !root.IsConfirmed() {
		return report, fmt.Errorf("match %s: %w", root.Reference, ErrNotConfirmed)
	}

	successors, err := b.successors(ctx, root)
	if err != nil {
		return report, fmt.Errorf("unable to list matches following %s: %w", root.Reference, err)
	}

	keys := newEntitySet(root.EntityIDs()...)
	for _, v := range successors {
		keys.add(v.EntityIDs()...)
	}

	unlock, err := b.locker.Lock(ctx, entityLockKeys(keys.list())...)
	if err != nil {
		return report, fmt.Errorf("unable to lock entities of match %s: %w", root.Reference, err)
	}
	defer unlock()

	// Matches may have been corrected while we were waiting for the lock.
	matches, err := b.refetch(ctx, append([]Match{root}, successors...))
	if err != nil {
		return report, err
	}
	SortMatches(matches)

	affected := newEntitySet()
	for _, v := range matches {
		if err = b.realign(ctx, v); err != nil {
			break
		}
	}
	if err == nil {
		err = b.replay(ctx, root.ID, matches, affected, &report)
	}
	report.Affected = affected.list()
	report.Duration = time.Since(start)
	if err != nil {
		return report, err
	}

	log.WithFields(log.Fields{
		"root":     root.Reference,
		"replayed": report.Replayed,
		"affected": len(report.Affected),
	}).Infof("recalculated match %s in %s", root.Reference, report.Duration)

	return report, nil
}

func (b *Back) replay(
	ctx context.Context,
	rootID util.UUIDAsBlob,
	matches []Match,
	affected entitySet,
	report *CascadeReport,
) error {
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.Validate(b.rules); err != nil {
			return err
		}

		affected.add(m.EntityIDs()...)
		if _, err := b.recompute(ctx, m); err != nil {
			return fmt.Errorf("unable to replay match %s: %w", m.Reference, err)
		}

		if m.ID == rootID || m.NeedsRecalculation {
			m.Posted = true
			m.NeedsRecalculation = false
			if err := b.store.UpsertMatch(ctx, m); err != nil {
				return err
			}
		}

		if m.ID != rootID {
			report.Replayed++
		}
		log.WithField("match", m.Reference).Debug("replayed match")
	}

	return nil
}

// successors returns the posted matches to replay after root. The range
// starts from the earliest of root's date and the dates of its existing
// ledger entries, so that a match moved later also replays what was between
// both dates. Flagged matches found in the range widen it the same way.
func (b *Back) successors(ctx context.Context, root Match) ([]Match, error) {
	from, err := b.earliestEntry(ctx, root, root.Date)
	if err != nil {
		return nil, err
	}

	for {
		matches, err := b.store.MatchesFrom(ctx, Match{Date: from})
		if err != nil {
			return nil, err
		}

		widened := from
		ret := make([]Match, 0, len(matches))
		for _, v := range matches {
			if v.ID == root.ID || !v.Posted {
				continue
			}

			ret = append(ret, v)
			if v.NeedsRecalculation {
				if widened, err = b.earliestEntry(ctx, v, widened); err != nil {
					return nil, err
				}
			}
		}

		if !widened.Before(from) {
			return ret, nil
		}
		from = widened
	}
}

// earliestEntry returns the earliest of from and the dates of m's ledger
// entries.
func (b *Back) earliestEntry(ctx context.Context, m Match, from util.TimeAsTimestamp) (util.TimeAsTimestamp, error) {
	for _, id := range m.EntityIDs() {
		entry, err := b.store.GetEntry(ctx, id, m.ID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return from, err
		}

		if entry.CreatedAt.Before(from) {
			from = entry.CreatedAt
		}
	}

	return from, nil
}

func (b *Back) refetch(ctx context.Context, matches []Match) ([]Match, error) {
	ret := make([]Match, 0, len(matches))
	for _, v := range matches {
		m, err := b.store.GetMatch(ctx, v.ID)
		if err != nil {
			return nil, err
		}
		ret = append(ret, m)
	}

	return ret, nil
}

// realign moves the existing entries of a match to its current date and
// renumbers the entities' ledgers, so that replaying matches in order reads
// the right previous entries.
func (b *Back) realign(ctx context.Context, m Match) error {
	for _, id := range m.EntityIDs() {
		entry, err := b.store.GetEntry(ctx, id, m.ID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if entry.CreatedAt.Equal(m.Date) {
			continue
		}

		entry.CreatedAt = m.Date
		if err := b.store.UpsertEntry(ctx, entry); err != nil {
			return err
		}
		if _, err := b.resequence(ctx, id); err != nil {
			return err
		}
		log.WithField("match", m.Reference).Debugf("moved entry of %s to %s", id, util.Date(m.Date))
	}

	return nil
}

// RecalculatePending runs a recalculation for every flagged match, oldest
// first. A match already replayed by a previous run is skipped.
func (b *Back) RecalculatePending(ctx context.Context) (int, error) {
	pending, err := b.store.MatchesNeedingRecalculation(ctx)
	if err != nil {
		return 0, err
	}

	var (
		errs []error
		done int
	)
	for _, v := range pending {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		m, err := b.store.GetMatch(ctx, v.ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !m.NeedsRecalculation {
			continue
		}

		if _, err := b.TriggerRecalculation(ctx, m.ID); err != nil {
			log.Errorf("unable to recalculate match %s: %s", m.Reference, err)
			errs = append(errs, fmt.Errorf("match %s: %w", m.Reference, err))
			continue
		}
		done++
	}

	return done, util.ConcatErrors(errs)
}

type entitySet map[util.UUIDAsBlob]struct{}

func newEntitySet(ids ...util.UUIDAsBlob) entitySet {
	ret := entitySet{}
	ret.add(ids...)

	return ret
}

func (s entitySet) add(ids ...util.UUIDAsBlob) {
	for _, v := range ids {
		s[v] = struct{}{}
	}
}

func (s entitySet) list() []util.UUIDAsBlob {
	ret := make([]util.UUIDAsBlob, 0, len(s))
	for k := range s {
		ret = append(ret, k)
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].Compare(ret[j]) < 0
	})

	return ret
}
