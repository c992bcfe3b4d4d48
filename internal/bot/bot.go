package bot

import (
	"errors"
	"fmt"
	"helo/internal/back"
	"helo/internal/config"
	"helo/internal/util"
	"io"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type commandHandler func(m *discordgo.Message, args []string, w io.Writer) error

type Bot struct {
	back *back.Back

	startedAt time.Time
	dg        *discordgo.Session

	adminUserIDs  []string
	bannedUserIDs []string
	listenIDs     []string

	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter

	handlers map[string]commandHandler
}

func New(back *back.Back, conf *config.Config) (*Bot, error) {
	dg, err := discordgo.New("Bot " + conf.DiscordToken)
	if err != nil {
		return nil, err
	}

	bot := &Bot{
		back:          back,
		dg:            dg,
		startedAt:     time.Now(),
		adminUserIDs:  conf.DiscordAdminUserIDs,
		bannedUserIDs: conf.DiscordBannedUserIDs,
		listenIDs:     conf.DiscordListenIDs,
		limiters:      map[string]*rate.Limiter{},
	}

	dg.AddHandler(bot.handleMessage)

	bot.handlers = map[string]commandHandler{
		"!dev":         bot.cmdDev,
		"!help":        bot.cmdHelp,
		"!history":     bot.cmdHistory,
		"!leaderboard": bot.cmdLeaderboard,
		"!rating":      bot.cmdRating,
		"!simulate":    bot.cmdSimulate,
		"!stats":       bot.cmdStatistics,
	}

	return bot, nil
}

func (bot *Bot) Serve(wg *sync.WaitGroup, done <-chan struct{}) {
	log.Info("starting Discord bot")
	wg.Add(1)
	defer wg.Done()
	if err := bot.dg.Open(); err != nil {
		log.Panic(err)
	}

	<-done

	if err := bot.dg.Close(); err != nil {
		log.Errorf("could not close Discord bot: %s", err)
	}
}

func contains(list []string, v string) bool {
	for _, w := range list {
		if w == v {
			return true
		}
	}

	return false
}

func (bot *Bot) isAdmin(userID string) bool {
	return contains(bot.adminUserIDs, userID)
}

// shouldListen tells if a message comes from a place where commands are
// accepted, PMs are always listened to.
func (bot *Bot) shouldListen(m *discordgo.Message) bool {
	if contains(bot.bannedUserIDs, m.Author.ID) {
		return false
	}

	return m.GuildID == "" || contains(bot.listenIDs, m.ChannelID)
}

// allow rate limits commands per user.
func (bot *Bot) allow(userID string) bool {
	bot.limitersMu.Lock()
	defer bot.limitersMu.Unlock()

	limiter, ok := bot.limiters[userID]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(2*time.Second), 3)
		bot.limiters[userID] = limiter
	}

	return limiter.Allow()
}

func (bot *Bot) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore webooks, self, bots, non-commands.
	if m.Author == nil || m.Author.ID == s.State.User.ID ||
		m.Author.Bot || !strings.HasPrefix(m.Content, "!") {
		return
	}

	if !bot.shouldListen(m.Message) {
		return
	}

	log.Infof(
		"<%s(%s)@%s#%s> %s",
		m.Author.String(), m.Author.ID,
		m.GuildID, m.ChannelID,
		m.Content,
	)

	out := newChannelWriter(s, m.ChannelID)
	defer func() {
		if err := out.Flush(); err != nil {
			log.Errorf("could not send message: %s", err)
		}
	}()

	if !bot.allow(m.Author.ID) {
		fmt.Fprint(out, "Slow down, try again in a few seconds.")
		return
	}

	bot.run(m.Message, out)
}

// run dispatches a command and turns errors and panics into messages.
func (bot *Bot) run(m *discordgo.Message, out resettableWriter) {
	defer func() {
		r := recover()
		if r != nil {
			out.Reset()
			fmt.Fprintf(out, "Something went very wrong, please tell %s.", bot.adminMentions())
			log.Error("panic: ", r)
			log.Error(string(debug.Stack()))
		}
	}()

	if err := bot.dispatch(m, out); err != nil {
		out.Reset()
		fmt.Fprintln(out, "There was an error processing your command.")

		if isPublic(err) {
			fmt.Fprintf(out, "```%s\n```\nIf you need help, send `!help`.", err)
		} else {
			fmt.Fprintf(out, "%s will check the logs when they have time.", bot.adminMentions())
		}

		log.Errorf("failed to process command: %s", err)
	}
}

func (bot *Bot) adminMentions() string {
	if len(bot.adminUserIDs) == 0 {
		return "an admin"
	}

	mentions := make([]string, 0, len(bot.adminUserIDs))
	for _, v := range bot.adminUserIDs {
		mentions = append(mentions, "<@"+v+">")
	}

	return strings.Join(mentions, " ")
}

// isPublic reports whether err can be shown as is to the user.
func isPublic(err error) bool {
	return errors.Is(err, util.ErrPublic("")) ||
		errors.Is(err, back.ErrNotFound) ||
		errors.Is(err, back.ErrNotConfirmed) ||
		isRatingError(err)
}

func parseCommand(cmd string) (string, []string) {
	parts := strings.Fields(cmd)

	switch len(parts) {
	case 0:
		return "", nil
	case 1:
		return parts[0], nil
	default:
		return parts[0], parts[1:]
	}
}

func (bot *Bot) dispatch(m *discordgo.Message, w io.Writer) error {
	command, args := parseCommand(m.Content)
	handler, ok := bot.handlers[command]
	if !ok {
		return util.ErrPublic(fmt.Sprintf("invalid command: %v", m.Content))
	}

	return handler(m, args, w)
}

func (bot *Bot) cmdHelp(m *discordgo.Message, _ []string, w io.Writer) error {
	fmt.Fprint(w, strings.ReplaceAll(`Available commands:
'''
!help                          # display this help message
!rating TAG                    # display the rating of a clan
!history TAG                   # display the last matches of a clan
!leaderboard                   # display the best rated clans
!stats TAG [MAP]               # display the win rate and results of a clan
!simulate TAGS TAGS P1 P2      # preview a match, eg. !simulate StDb,CoRe 91st 5 0
'''`, "'''", "```"))

	if !bot.isAdmin(m.Author.ID) {
		return nil
	}

	fmt.Fprint(w, strings.ReplaceAll(`Admin-only commands:
'''
!dev error            error out
!dev panic            panic and abort
!dev pending          recalculate every match flagged for recalculation
!dev recalc MATCHID   recalculate a match and all matches after it
!dev uptime           display for how long the server has been running
!dev url              display the link to use when adding the bot to a new server
'''`, "'''", "```"))

	return nil
}
