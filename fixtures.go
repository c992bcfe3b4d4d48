package main

import (
	"context"
	"helo/internal/back"
	"helo/internal/util"
	"time"

	log "github.com/sirupsen/logrus"
)

// loadFixtures creates a handful of clans and posted matches for quick
// testing during development.
func loadFixtures(b *back.Back) error {
	ctx := context.Background()

	tags := []string{"StDb", "91st", "CoRe", "ESPT", "HLLD"}
	entities := make(map[string]back.Entity, len(tags))
	for _, tag := range tags {
		entity, err := b.CreateEntity(ctx, tag, "Clan "+tag)
		if err != nil {
			return err
		}
		entities[tag] = entity
	}

	day0 := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -30)
	matches := []struct {
		side1, side2     []string
		points1, points2 int
	}{
		{[]string{"StDb"}, []string{"91st"}, 5, 0},
		{[]string{"CoRe"}, []string{"ESPT"}, 3, 2},
		{[]string{"StDb", "CoRe"}, []string{"91st", "HLLD"}, 4, 1},
		{[]string{"ESPT"}, []string{"HLLD"}, 2, 3},
		{[]string{"91st"}, []string{"CoRe"}, 3, 2},
	}

	for k, v := range matches {
		m := back.NewMatch(
			"fixture-"+time.Now().Format("20060102")+"-"+tags[k],
			day0.AddDate(0, 0, k*3),
			fixtureIDs(entities, v.side1), fixtureIDs(entities, v.side2),
		)
		m.Map = "Foy"
		m.ObjectivePoints1 = v.points1
		m.ObjectivePoints2 = v.points2
		if err := m.Confirm(back.Side1, "fixtures"); err != nil {
			return err
		}
		if err := m.Confirm(back.Side2, "fixtures"); err != nil {
			return err
		}

		if err := b.CreateMatch(ctx, m); err != nil {
			return err
		}
		if err := b.ConfirmMatch(ctx, m.ID); err != nil {
			return err
		}
	}

	log.WithField("entities", len(entities)).WithField("matches", len(matches)).Info("fixtures loaded")

	return nil
}

func fixtureIDs(entities map[string]back.Entity, tags []string) []util.UUIDAsBlob {
	ret := make([]util.UUIDAsBlob, 0, len(tags))
	for _, v := range tags {
		ret = append(ret, entities[v].ID)
	}

	return ret
}
