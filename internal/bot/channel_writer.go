package bot

import (
	"bytes"
	"io"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// Discord refuses messages over 2000 characters.
const maxMessageLength = 2000

type resettableWriter interface {
	io.Writer
	Reset()
}

// channelWriter outputs messages to a Discord channel (or private message)
// when flushed, it can be reused right after flushing to send a new message.
type channelWriter struct {
	channelID string
	dg        *discordgo.Session
	buf       bytes.Buffer
}

func newChannelWriter(dg *discordgo.Session, channelID string) *channelWriter {
	if channelID == "" {
		log.Warn("skipping creating writer for empty Discord channel ID")
		return nil
	}

	return &channelWriter{
		dg:        dg,
		channelID: channelID,
	}
}

func (w *channelWriter) Write(p []byte) (int, error) {
	if w == nil {
		return 0, nil
	}

	return w.buf.Write(p)
}

func (w *channelWriter) Reset() {
	if w == nil {
		return
	}

	w.buf.Reset()
}

func (w *channelWriter) Flush() error {
	if w == nil || w.buf.Len() <= 0 {
		return nil
	}

	content := truncate(w.buf.String(), maxMessageLength)

	_, err := w.dg.ChannelMessageSend(w.channelID, content)
	log.Debugf("<to chan %s>: %s", w.channelID, content)

	w.buf.Reset()
	return err
}

// truncate shortens str to at most n runes, ending it with an ellipsis
// when something was cut.
func truncate(str string, n int) string {
	if utf8.RuneCountInString(str) <= n {
		return str
	}

	runes := []rune(str)
	return string(runes[:n-1]) + "…"
}
