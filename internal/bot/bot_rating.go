package bot

import (
	"context"
	"errors"
	"fmt"
	"helo/internal/back"
	"helo/internal/rating"
	"helo/internal/util"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	leaderboardSize = 20
	historySize     = 10
)

func isRatingError(err error) bool {
	for _, v := range []error{
		rating.ErrInvalidScoreSum,
		rating.ErrSelfPlay,
		rating.ErrDivergentWeights,
		rating.ErrInvalidRating,
		rating.ErrInvalidFactor,
		rating.ErrInvalidPlayerCount,
	} {
		if errors.Is(err, v) {
			return true
		}
	}

	return false
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

func (bot *Bot) cmdRating(_ *discordgo.Message, args []string, w io.Writer) error {
	if len(args) != 1 {
		return util.ErrPublic("expected 1 argument: TAG")
	}

	ctx, cancel := commandContext()
	defer cancel()

	entity, err := bot.back.GetEntityByTag(ctx, args[0])
	if err != nil {
		return notFound(err, args[0])
	}

	if entity.MatchCount == 0 {
		fmt.Fprintf(w, "`%s` has not played any rated match yet, its rating is %d.", entity.Tag, entity.Rating)
		return nil
	}

	fmt.Fprintf(
		w, "`%s` is rated **%d** after %d matches (last updated %s).",
		entity.Tag, entity.Rating, entity.MatchCount, util.Datetime(entity.LastUpdated),
	)

	return nil
}

func (bot *Bot) cmdHistory(_ *discordgo.Message, args []string, w io.Writer) error {
	if len(args) != 1 {
		return util.ErrPublic("expected 1 argument: TAG")
	}

	ctx, cancel := commandContext()
	defer cancel()

	entity, err := bot.back.GetEntityByTag(ctx, args[0])
	if err != nil {
		return notFound(err, args[0])
	}
	entries, err := bot.back.History(ctx, entity.ID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintf(w, "`%s` has not played any rated match yet.", entity.Tag)
		return nil
	}

	fmt.Fprintf(w, "Last matches of `%s`:\n", entity.Tag)
	writeHistory(w, entries, bot.back.Ruleset().DefaultRating)

	return nil
}

// writeHistory prints the last entries of a ledger, newest first.
func writeHistory(w io.Writer, entries []back.LedgerEntry, initial int) {
	fmt.Fprint(w, "```\n")
	defer fmt.Fprint(w, "```")

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "#\tDate\tRating\tDelta")
	for k := len(entries) - 1; k >= 0 && k >= len(entries)-historySize; k-- {
		prev := initial
		if k > 0 {
			prev = entries[k-1].RatingAfter
		}

		fmt.Fprintf(
			tw, "%d\t%s\t%d\t%s\n",
			entries[k].SequenceNumber, util.Date(entries[k].CreatedAt),
			entries[k].RatingAfter, util.FormatDelta(entries[k].RatingAfter-prev),
		)
	}
}

// cmdStatistics expects "TAG [MAP]", the map name can contain spaces.
func (bot *Bot) cmdStatistics(_ *discordgo.Message, args []string, w io.Writer) error {
	if len(args) < 1 {
		return util.ErrPublic("expected at least 1 argument: TAG [MAP]")
	}

	ctx, cancel := commandContext()
	defer cancel()

	entity, err := bot.back.GetEntityByTag(ctx, args[0])
	if err != nil {
		return notFound(err, args[0])
	}

	stats, err := bot.back.Statistics(ctx, entity.ID, strings.Join(args[1:], " "))
	if err != nil {
		return err
	}

	writeStatistics(w, entity, stats)
	return nil
}

func writeStatistics(w io.Writer, entity back.Entity, stats back.Statistics) {
	where := ""
	if stats.Map != "" {
		where = " on " + stats.Map
	}

	if stats.Total == 0 {
		fmt.Fprintf(w, "`%s` has no rated match%s.", entity.Tag, where)
		return
	}

	fmt.Fprintf(
		w, "`%s` won %d of %d matches%s (%.1f%%).\n",
		entity.Tag, stats.Wins, stats.Total, where, 100*stats.Winrate,
	)

	fmt.Fprint(w, "```\n")
	defer fmt.Fprint(w, "```")

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "Result\tCount\tShare")
	for _, v := range stats.ResultTypes {
		fmt.Fprintf(tw, "%s\t%d\t%.1f%%\n", v.Result, v.Count, 100*v.Share)
	}
}

func (bot *Bot) cmdLeaderboard(_ *discordgo.Message, _ []string, w io.Writer) error {
	ctx, cancel := commandContext()
	defer cancel()

	entities, err := bot.back.Leaderboard(ctx)
	if err != nil {
		return err
	}
	if len(entities) == 0 {
		fmt.Fprint(w, "Nobody played a rated match yet.")
		return nil
	}

	writeLeaderboard(w, entities)
	return nil
}

func writeLeaderboard(w io.Writer, entities []back.Entity) {
	if len(entities) > leaderboardSize {
		entities = entities[:leaderboardSize]
	}

	fmt.Fprint(w, "```\n")
	defer fmt.Fprint(w, "```")

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "#\tTag\tRating\tMatches")
	for k, v := range entities {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", k+1, v.Tag, v.Rating, v.MatchCount)
	}
}

// cmdSimulate expects "TAGS TAGS P1 P2" where TAGS is a comma-separated list.
func (bot *Bot) cmdSimulate(_ *discordgo.Message, args []string, w io.Writer) error {
	req, err := parseSimulation(args)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	sim, err := bot.back.Simulate(ctx, req)
	if err != nil {
		return err
	}

	writeSimulation(w, sim)
	return nil
}

func parseSimulation(args []string) (back.SimulationRequest, error) {
	if len(args) != 4 {
		return back.SimulationRequest{}, util.ErrPublic("expected 4 arguments: TAGS TAGS P1 P2")
	}

	points := make([]int, 2)
	for k, v := range args[2:] {
		n, err := strconv.Atoi(v)
		if err != nil {
			return back.SimulationRequest{}, util.ErrPublic(fmt.Sprintf("invalid points: %s", v))
		}
		points[k] = n
	}

	return back.SimulationRequest{
		Side1:   util.SplitList(args[0]),
		Side2:   util.SplitList(args[1]),
		Points1: points[0],
		Points2: points[1],
	}, nil
}

func writeSimulation(w io.Writer, sim back.Simulation) {
	fmt.Fprintf(
		w, "Win probability: %s %.1f%% - %.1f%% %s\n",
		tags(sim.Side1), 100*sim.Probability1,
		100*sim.Probability2, tags(sim.Side2),
	)

	fmt.Fprint(w, "```\n")
	defer fmt.Fprint(w, "```")

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "Tag\tBefore\tAfter\tDelta")
	for k, v := range sim.Side1 {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", v.Tag, v.Rating, sim.Ratings1[k], util.FormatDelta(sim.Deltas1[k]))
	}
	for k, v := range sim.Side2 {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", v.Tag, v.Rating, sim.Ratings2[k], util.FormatDelta(sim.Deltas2[k]))
	}
}

func tags(entities []back.Entity) string {
	ret := make([]string, 0, len(entities))
	for _, v := range entities {
		ret = append(ret, v.Tag)
	}

	return strings.Join(ret, ", ")
}

func notFound(err error, tag string) error {
	if errors.Is(err, back.ErrNotFound) {
		return util.ErrPublic(fmt.Sprintf("no entity with tag %s", tag))
	}

	return err
}
