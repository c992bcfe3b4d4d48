package bot

import (
	"bytes"
	"context"
	"helo/internal/back"
	"helo/internal/boltstore"
	"helo/internal/config"
	"helo/internal/locker"
	"helo/internal/rating"
	"helo/internal/util"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminID = "1000"

func createTestBot(t *testing.T) *Bot {
	t.Helper()

	store, err := boltstore.Open(filepath.Join(t.TempDir(), "helo.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	conf := config.Default()
	conf.DiscordToken = "test"
	conf.DiscordAdminUserIDs = []string{adminID}
	conf.DiscordBannedUserIDs = []string{"666"}
	conf.DiscordListenIDs = []string{"42"}

	bot, err := New(back.New(store, locker.NewMemory(), rating.Primary), &conf)
	require.NoError(t, err)

	return bot
}

// postMatch records and posts a 5-0 win of StDb over 91st.
func postMatch(t *testing.T, bot *Bot) {
	t.Helper()

	ctx := context.Background()
	stdb, err := bot.back.CreateEntity(ctx, "StDb", "Stoßtrupp Donnerbalken")
	require.NoError(t, err)
	first, err := bot.back.CreateEntity(ctx, "91st", "91st Infantry")
	require.NoError(t, err)

	m := back.NewMatch(
		"StDb-91.-2022-01-07",
		time.Date(2022, 1, 7, 20, 0, 0, 0, time.UTC),
		[]util.UUIDAsBlob{stdb.ID}, []util.UUIDAsBlob{first.ID},
	)
	m.ObjectivePoints1 = 5
	require.NoError(t, m.Confirm(back.Side1, "ref-1"))
	require.NoError(t, m.Confirm(back.Side2, "ref-2"))
	require.NoError(t, bot.back.CreateMatch(ctx, m))
	require.NoError(t, bot.back.ConfirmMatch(ctx, m.ID))
}

func message(userID, content string) *discordgo.Message {
	return &discordgo.Message{
		Author:    &discordgo.User{ID: userID},
		ChannelID: "42",
		GuildID:   "7",
		Content:   content,
	}
}

func run(bot *Bot, userID, content string) string {
	var buf bytes.Buffer
	bot.run(message(userID, content), &buf)
	return buf.String()
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input   string
		command string
		args    []string
	}{
		{"", "", nil},
		{"!help", "!help", nil},
		{"  !rating   StDb ", "!rating", []string{"StDb"}},
		{"!simulate StDb,CoRe 91st 5 0", "!simulate", []string{"StDb,CoRe", "91st", "5", "0"}},
	}

	for _, v := range tests {
		command, args := parseCommand(v.input)
		assert.Equal(t, v.command, command, v.input)
		assert.Equal(t, v.args, args, v.input)
	}
}

func TestShouldListen(t *testing.T) {
	bot := createTestBot(t)

	assert.True(t, bot.shouldListen(message("1", "!help")))

	other := message("1", "!help")
	other.ChannelID = "43"
	assert.False(t, bot.shouldListen(other))

	private := message("1", "!help")
	private.GuildID = ""
	private.ChannelID = "43"
	assert.True(t, bot.shouldListen(private))

	assert.False(t, bot.shouldListen(message("666", "!help")))
}

func TestAllow(t *testing.T) {
	bot := createTestBot(t)

	for i := 0; i < 3; i++ {
		assert.True(t, bot.allow("1"))
	}
	assert.False(t, bot.allow("1"))
	assert.True(t, bot.allow("2"))
}

func TestHelp(t *testing.T) {
	bot := createTestBot(t)

	out := run(bot, "1", "!help")
	assert.Contains(t, out, "!rating TAG")
	assert.NotContains(t, out, "'''")
	assert.NotContains(t, out, "!dev")

	assert.Contains(t, run(bot, adminID, "!help"), "!dev recalc MATCHID")
}

func TestRatingCommands(t *testing.T) {
	bot := createTestBot(t)
	postMatch(t, bot)

	assert.Contains(t, run(bot, "1", "!rating StDb"), "**620** after 1 matches")
	assert.Contains(t, run(bot, "1", "!rating nope"), "no entity with tag nope")
	assert.Contains(t, run(bot, "1", "!history 91st"), "-20")

	out := run(bot, "1", "!stats StDb")
	assert.Contains(t, out, "won 1 of 1 matches (100.0%)")
	assert.Contains(t, out, "5-0")
	assert.Contains(t, run(bot, "1", "!stats 91st Hurtgen Forest"), "no rated match on Hurtgen Forest")
	assert.Contains(t, run(bot, "1", "!stats"), "expected at least 1 argument")

	out = run(bot, "1", "!leaderboard")
	require.Contains(t, out, "StDb")
	assert.Less(t, strings.Index(out, "StDb"), strings.Index(out, "91st"))

	out = run(bot, "1", "!simulate StDb 91st 3 2")
	assert.Contains(t, out, "Win probability: StDb")
	assert.Contains(t, out, "620")

	assert.Contains(t, run(bot, "1", "!simulate StDb StDb 3 2"), rating.ErrSelfPlay.Error())
	assert.Contains(t, run(bot, "1", "!simulate StDb 91st 3"), "expected 4 arguments")
}

func TestErrors(t *testing.T) {
	bot := createTestBot(t)

	assert.Contains(t, run(bot, "1", "!nope"), "invalid command")

	// Private errors are not echoed.
	out := run(bot, "1", "!dev error")
	assert.NotContains(t, out, "here's your error")
	assert.Contains(t, out, "<@"+adminID+">")

	assert.Contains(t, run(bot, adminID, "!dev error"), "here's your error")
	assert.Contains(t, run(bot, adminID, "!dev panic"), "Something went very wrong")
	assert.Contains(t, run(bot, adminID, "!dev pending"), "Recalculated 0 flagged matches.")
	assert.Contains(t, run(bot, adminID, "!dev recalc nope"), "invalid match ID")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "StDb", truncate("StDb", 10))

	long := strings.Repeat("ß", 2500)
	out := truncate(long, maxMessageLength)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, maxMessageLength, utf8.RuneCountInString(out))
	assert.True(t, strings.HasSuffix(out, "…"))
}
