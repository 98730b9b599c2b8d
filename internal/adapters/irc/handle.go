package irc

import (
	"context"
	"strings"

	"github.com/ergochat/irc-go/ircmsg"

	"github.com/okian/karmabot/internal/domain/model"
	"github.com/okian/karmabot/pkg/logger"
)

const (
	rplWelcome      = "001"
	errNicknameUsed = "433"
)

func (c *Client) handle(ctx context.Context, line string) {
	msg, err := ircmsg.ParseLine(line)
	if err != nil {
		c.logger.Debug(ctx, "unparsable line", logger.String("line", line), logger.Error(err))
		return
	}

	switch msg.Command {
	case "PRIVMSG":
		c.metrics.RecordMessage("privmsg")
		c.onPrivmsg(ctx, msg)
	case "PING":
		server := firstParam(msg)
		c.metrics.RecordMessage("ping")
		c.metrics.RecordPing(server)
		if err := c.send(ctx, false, "PONG", msg.Params...); err != nil {
			c.logger.Warn(ctx, "failed to answer ping", logger.Error(err))
		}
	case "PONG":
		c.metrics.RecordMessage("pong")
		c.metrics.RecordPong(firstParam(msg))
	case rplWelcome:
		c.logger.Info(ctx, "registered", logger.String("nick", c.Nick()), logger.String("channel", c.cfg.Channel))
		if err := c.send(ctx, false, "JOIN", c.cfg.Channel); err != nil {
			c.logger.Error(ctx, "failed to join", logger.String("channel", c.cfg.Channel), logger.Error(err))
		}
	case errNicknameUsed:
		c.mu.Lock()
		c.nick += "_"
		nick := c.nick
		c.mu.Unlock()
		c.logger.Warn(ctx, "nick in use, trying another", logger.String("nick", nick))
		if err := c.send(ctx, false, "NICK", nick); err != nil {
			c.logger.Error(ctx, "failed to change nick", logger.Error(err))
		}
	case "NICK":
		if strings.EqualFold(sourceNick(msg.Source), c.Nick()) {
			c.mu.Lock()
			c.nick = firstParam(msg)
			c.mu.Unlock()
		}
	case "ERROR":
		c.logger.Warn(ctx, "server error", logger.String("reason", firstParam(msg)))
	}
}

func (c *Client) onPrivmsg(ctx context.Context, msg ircmsg.Message) {
	if len(msg.Params) < 2 {
		return
	}
	m := model.NewMessage(sourceNick(msg.Source), msg.Params[0], msg.Params[1], c.now())
	c.logger.Debug(ctx, "received",
		logger.String("message_id", m.ID.String()),
		logger.String("nick", m.Nick),
		logger.String("target", m.Target),
	)
	if !c.sink.Enqueue(ctx, m) {
		c.logger.Warn(ctx, "message dropped, queue full", logger.String("message_id", m.ID.String()))
	}
}

func firstParam(msg ircmsg.Message) string {
	if len(msg.Params) == 0 {
		return ""
	}
	return msg.Params[0]
}

// sourceNick extracts the nick from a nick!user@host prefix.
func sourceNick(source string) string {
	nick, _, _ := strings.Cut(source, "!")
	return nick
}
