package back

import (
	"context"
	"errors"
	"fmt"
	"helo/internal/rating"
	"helo/internal/util"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

type Back struct {
	store  Store
	locker Locker
	rules  rating.Ruleset
}

func New(store Store, locker Locker, rules rating.Ruleset) *Back {
	return &Back{
		store:  store,
		locker: locker,
		rules:  rules,
	}
}

func (b *Back) Ruleset() rating.Ruleset {
	return b.rules
}

// Run recalculates flagged matches every minute until done is closed.
func (b *Back) Run(wg *sync.WaitGroup, done <-chan struct{}) {
	wg.Add(1)
	defer wg.Done()
	log.Info("starting Back dæmon")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-done
		cancel()
	}()

	for {
		if err := b.runPeriodicTasks(ctx); err != nil {
			log.Errorf("runPeriodicTasks: %s", err)
		}

		select {
		case <-time.After(1 * time.Minute):
		case <-done:
			return
		}
	}
}

func (b *Back) runPeriodicTasks(ctx context.Context) error {
	n, err := b.RecalculatePending(ctx)
	if n > 0 {
		log.Infof("recalculated %d pending matches", n)
	}

	return err
}

func (b *Back) CreateEntity(ctx context.Context, tag, name string) (Entity, error) {
	if _, err := b.store.GetEntityByTag(ctx, tag); err == nil {
		return Entity{}, util.ErrPublic(fmt.Sprintf("an entity named %s already exists", tag))
	} else if !errors.Is(err, ErrNotFound) {
		return Entity{}, err
	}

	entity := NewEntity(tag, name, b.rules.DefaultRating)
	if err := validate.Struct(entity); err != nil {
		return Entity{}, util.ErrPublic(fmt.Sprintf("invalid entity %s: %s", tag, err))
	}

	if err := b.store.UpsertEntity(ctx, entity); err != nil {
		return Entity{}, err
	}

	log.Infof("created entity %s", entity.Tag)

	return entity, nil
}

func (b *Back) GetEntity(ctx context.Context, id util.UUIDAsBlob) (Entity, error) {
	return b.store.GetEntity(ctx, id)
}

func (b *Back) GetEntityByTag(ctx context.Context, tag string) (Entity, error) {
	return b.store.GetEntityByTag(ctx, tag)
}

// Leaderboard returns the entities that played at least once, best first.
func (b *Back) Leaderboard(ctx context.Context) ([]Entity, error) {
	entities, err := b.store.ListEntities(ctx)
	if err != nil {
		return nil, err
	}

	ret := make([]Entity, 0, len(entities))
	for _, v := range entities {
		if v.MatchCount > 0 {
			ret = append(ret, v)
		}
	}
	sort.Sort(byRating(ret))

	return ret, nil
}

// CreateMatch stores a new, unconfirmed match.
func (b *Back) CreateMatch(ctx context.Context, m Match) error {
	if err := m.Validate(b.rules); err != nil {
		return err
	}

	for _, v := range m.Entries {
		if v.MatchID != m.ID {
			return fmt.Errorf("entry of entity %s belongs to match %s", v.EntityID, v.MatchID)
		}
		if _, err := b.store.GetEntity(ctx, v.EntityID); err != nil {
			return fmt.Errorf("entity %s: %w", v.EntityID, err)
		}
	}

	if _, err := b.store.GetMatch(ctx, m.ID); err == nil {
		return util.ErrPublic(fmt.Sprintf("match %s already exists", m.ID))
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	m.Posted = false
	m.NeedsRecalculation = false

	return b.store.UpsertMatch(ctx, m)
}

func (b *Back) GetMatch(ctx context.Context, id util.UUIDAsBlob) (Match, error) {
	return b.store.GetMatch(ctx, id)
}
