package back

import (
	"context"
	"fmt"
	"helo/internal/util"
	"math"
	"strings"
)

// Statistics summarizes the rated matches of an entity, optionally on a
// single map.
type Statistics struct {
	EntityID util.UUIDAsBlob
	Map      string

	Total   int
	Wins    int
	Winrate float64

	// Victories by the number of objectives held by the winner: 5-0, 4-1
	// then 3-2. Share is relative to all victories.
	ResultTypes []ResultType
}

type ResultType struct {
	Result string
	Count  int
	Share  float64
}

// winningPoints is the least amount of objectives a side needs to win.
const winningPoints = 3

// Statistics counts wins and result types over the matches in the ledger of
// entityID, mapName filters matches by map, ignoring case.
func (b *Back) Statistics(ctx context.Context, entityID util.UUIDAsBlob, mapName string) (Statistics, error) {
	entries, err := b.History(ctx, entityID)
	if err != nil {
		return Statistics{}, err
	}

	stats := Statistics{EntityID: entityID, Map: mapName}
	victories := make([]int, b.rules.MaxPointsSum-winningPoints+1)
	for _, v := range entries {
		m, err := b.store.GetMatch(ctx, v.MatchID)
		if err != nil {
			return Statistics{}, fmt.Errorf("match %s: %w", v.MatchID, err)
		}
		if mapName != "" && !strings.EqualFold(m.Map, mapName) {
			continue
		}

		side, ok := m.SideOf(entityID)
		if !ok {
			continue
		}

		stats.Total++
		points := m.Points(side)
		if points < winningPoints {
			continue
		}

		stats.Wins++
		victories[b.rules.MaxPointsSum-points]++
	}

	if stats.Total > 0 {
		stats.Winrate = round3(float64(stats.Wins) / float64(stats.Total))
	}

	for k, count := range victories {
		points := b.rules.MaxPointsSum - k
		share := 0.0
		if stats.Wins > 0 {
			share = round3(float64(count) / float64(stats.Wins))
		}

		stats.ResultTypes = append(stats.ResultTypes, ResultType{
			Result: fmt.Sprintf("%d-%d", points, b.rules.MaxPointsSum-points),
			Count:  count,
			Share:  share,
		})
	}

	return stats, nil
}

func round3(v float64) float64 {
	return math.RoundToEven(v*1000) / 1000
}
