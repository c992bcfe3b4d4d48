package bot

import (
	"context"
	"fmt"
	"helo/internal/util"
	"io"
	"time"

	"github.com/bwmarrin/discordgo"
)

func (bot *Bot) cmdDev(m *discordgo.Message, args []string, out io.Writer) error {
	if !bot.isAdmin(m.Author.ID) {
		return fmt.Errorf("!dev command ran by a non-admin: %v", args)
	}
	if len(args) < 1 {
		return util.ErrPublic("need a subcommand")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch args[0] {
	case "panic":
		panic("an admin asked me to panic")
	case "uptime":
		fmt.Fprintf(out, "The bot has been online for %s", time.Since(bot.startedAt))
	case "error":
		return util.ErrPublic("here's your error")
	case "url":
		fmt.Fprintf(
			out,
			"https://discordapp.com/api/oauth2/authorize?client_id=%s&scope=bot&permissions=%d",
			bot.dg.State.User.ID,
			discordgo.PermissionViewChannel|discordgo.PermissionSendMessages,
		)
	case "recalc": // MATCHID
		if len(args) != 2 {
			return util.ErrPublic("expected 1 argument: MATCHID")
		}
		id, err := util.ParseUUIDAsBlob(args[1])
		if err != nil {
			return util.ErrPublic(fmt.Sprintf("invalid match ID: %s", args[1]))
		}

		report, err := bot.back.TriggerRecalculation(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(
			out, "Recalculated match `%s` and %d following matches, %d entities affected in %s.",
			report.Root, report.Replayed, len(report.Affected), report.Duration.Round(time.Millisecond),
		)
	case "pending":
		n, err := bot.back.RecalculatePending(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Recalculated %d flagged matches.", n)
	default:
		return util.ErrPublic(fmt.Sprintf("unknown subcommand: %s", args[0]))
	}

	return nil
}
