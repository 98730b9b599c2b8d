package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/karmabot/internal/domain/model"
	"github.com/okian/karmabot/internal/domain/types"
	"github.com/okian/karmabot/pkg/logger"
)

// Replies the bot sends for commands it cannot act on.
const (
	ReplyUnknown   = "unknown command / args"
	ReplyForbidden = "not allowed"
)

// Store is the part of the score store the bot needs.
type Store interface {
	Get(term string) int64
	Set(ctx context.Context, term string, value int64) int64
	BiasBatch(ctx context.Context, biases []types.Bias)
	Render() string
}

// Dispatcher hands lines to plugins and collects their replies.
type Dispatcher interface {
	Dispatch(ctx context.Context, lines []string) ([]string, []error)
}

// Conn is the connection the bot speaks through.
type Conn interface {
	Nick() string
	Reply(ctx context.Context, target, text string) error
}

// Metrics receives chat counters.
type Metrics interface {
	RecordDM(from, respondee string)
	RecordVote(delta int64)
}

type nopMetrics struct{}

func (nopMetrics) RecordDM(string, string) {}
func (nopMetrics) RecordVote(int64)        {}

// Bot applies chat messages to the score store and the plugins.
type Bot struct {
	store   Store
	plugins Dispatcher
	conn    Conn
	admins  map[string]struct{}
	metrics Metrics
	logger  logger.Logger
}

// NewBot creates a bot. plugins may be nil when no plugin runtime is configured.
func NewBot(store Store, plugins Dispatcher, conn Conn, opts ...Option) *Bot {
	b := &Bot{
		store:   store,
		plugins: plugins,
		conn:    conn,
		admins:  make(map[string]struct{}),
		metrics: nopMetrics{},
		logger:  logger.Get().Named("chat"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Process handles one message: a command when it is addressed to the bot,
// votes otherwise, and plugin dispatch in both cases.
func (b *Bot) Process(ctx context.Context, msg model.Message) error {
	var errs []error
	to := msg.ReplyTo()

	if dm, ok := DirectMessage(b.conn.Nick(), msg.Target, msg.Text); ok {
		b.metrics.RecordDM(msg.Nick, to)
		reply := b.execute(ctx, msg.Nick, ParseCommand(dm))
		if err := b.conn.Reply(ctx, to, reply); err != nil {
			errs = append(errs, fmt.Errorf("reply to %s: %w", to, err))
		}
	} else if votes := ParseVotes(msg.Text); len(votes) > 0 {
		b.store.BiasBatch(ctx, votes)
		for _, v := range votes {
			b.metrics.RecordVote(v.Delta)
		}
		b.logger.Debug(ctx, "votes applied",
			logger.String("message_id", msg.ID.String()),
			logger.Int("votes", len(votes)),
		)
	}

	if b.plugins == nil {
		return errors.Join(errs...)
	}

	replies, failures := b.plugins.Dispatch(ctx, []string{msg.Text})
	for _, err := range failures {
		b.logger.Warn(ctx, "plugin failed",
			logger.String("message_id", msg.ID.String()),
			logger.Error(err),
		)
	}
	for _, reply := range replies {
		if strings.TrimSpace(reply) == "" {
			continue
		}
		if err := b.conn.Reply(ctx, to, reply); err != nil {
			errs = append(errs, fmt.Errorf("plugin reply to %s: %w", to, err))
		}
	}
	return errors.Join(errs...)
}

func (b *Bot) execute(ctx context.Context, from string, cmd Command) string {
	switch cmd.Kind {
	case KarmaAll:
		return b.store.Render()
	case KarmaTerm:
		return strconv.FormatInt(b.store.Get(cmd.Term), 10)
	case SetTerm:
		if !b.isAdmin(from) {
			b.logger.Warn(ctx, "set refused", logger.String("nick", from), logger.String("term", cmd.Term))
			return ReplyForbidden
		}
		old := b.store.Set(ctx, cmd.Term, cmd.Value)
		b.logger.Info(ctx, "score set",
			logger.String("nick", from),
			logger.String("term", cmd.Term),
			logger.Int64("old", old),
			logger.Int64("new", cmd.Value),
		)
		return strconv.FormatInt(old, 10)
	default:
		return ReplyUnknown
	}
}

func (b *Bot) isAdmin(nick string) bool {
	_, ok := b.admins[strings.ToLower(nick)]
	return ok
}
