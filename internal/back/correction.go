package back

import (
	"context"
	"encoding/json"
	"fmt"
	"helo/internal/util"

	jsonpatch "github.com/evanphx/json-patch"
	log "github.com/sirupsen/logrus"
)

// ApplyCorrection applies a JSON merge patch (RFC 7386) to a match.
// Identity, confirmations and ledger state cannot be patched, and the
// participants must stay the same, only their player counts and positions
// may change. A corrected posted match is flagged for recalculation.
func (b *Back) ApplyCorrection(ctx context.Context, matchID util.UUIDAsBlob, patch []byte) (Match, error) {
	orig, err := b.store.GetMatch(ctx, matchID)
	if err != nil {
		return Match{}, err
	}

	// Participants cannot change, locking the ones read before is enough.
	unlock, err := b.locker.Lock(ctx, entityLockKeys(orig.EntityIDs())...)
	if err != nil {
		return Match{}, fmt.Errorf("unable to lock match %s: %w", orig.Reference, err)
	}
	defer unlock()

	if orig, err = b.store.GetMatch(ctx, matchID); err != nil {
		return Match{}, err
	}

	doc, err := json.Marshal(orig)
	if err != nil {
		return Match{}, err
	}

	patched, err := jsonpatch.MergePatch(doc, patch)
	if err != nil {
		return Match{}, util.ErrPublic(fmt.Sprintf("invalid patch: %s", err))
	}

	var m Match
	if err := json.Unmarshal(patched, &m); err != nil {
		return Match{}, util.ErrPublic(fmt.Sprintf("invalid patch: %s", err))
	}

	m.ID = orig.ID
	m.CreatedAt = orig.CreatedAt
	m.ConfirmedBySide1 = orig.ConfirmedBySide1
	m.ConfirmedBySide2 = orig.ConfirmedBySide2
	m.Posted = orig.Posted
	m.NeedsRecalculation = orig.NeedsRecalculation || orig.Posted

	if err := sameParticipants(orig, &m); err != nil {
		return Match{}, err
	}
	if err := m.Validate(b.rules); err != nil {
		return Match{}, err
	}

	if err := b.store.UpsertMatch(ctx, m); err != nil {
		return Match{}, err
	}

	log.WithField("patch", string(patch)).Infof("corrected match %s", m.Reference)

	return m, nil
}

// sameParticipants checks that m has the same (entity, side) pairs as orig
// and binds its entries to orig's ID.
func sameParticipants(orig Match, m *Match) error {
	if len(orig.Entries) != len(m.Entries) {
		return util.ErrPublic("participants of a match cannot be changed")
	}

	want := make(map[util.UUIDAsBlob]Side, len(orig.Entries))
	for _, v := range orig.Entries {
		want[v.EntityID] = v.Side
	}

	for k, v := range m.Entries {
		if side, ok := want[v.EntityID]; !ok || side != v.Side {
			return util.ErrPublic("participants of a match cannot be changed")
		}

		m.Entries[k].MatchID = orig.ID
	}

	return nil
}
