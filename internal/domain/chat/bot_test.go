package chat_test

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/karmabot/internal/domain/chat"
	"github.com/okian/karmabot/internal/domain/model"
	"github.com/okian/karmabot/internal/domain/types"
	"github.com/okian/karmabot/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeStore struct {
	scores  map[string]int64
	batches [][]types.Bias
}

func (s *fakeStore) Get(term string) int64 { return s.scores[strings.ToLower(term)] }

func (s *fakeStore) Set(_ context.Context, term string, value int64) int64 {
	old := s.scores[term]
	s.scores[term] = value
	return old
}

func (s *fakeStore) BiasBatch(_ context.Context, biases []types.Bias) {
	s.batches = append(s.batches, biases)
	for _, b := range biases {
		s.scores[b.Term] += b.Delta
	}
}

func (s *fakeStore) Render() string {
	parts := make([]string, 0, len(s.scores))
	for term, v := range s.scores {
		parts = append(parts, term+": "+strconv.FormatInt(v, 10))
	}
	return strings.Join(parts, "; ")
}

type fakeDispatcher struct {
	replies []string
	errs    []error
	lines   []string
}

func (d *fakeDispatcher) Dispatch(_ context.Context, lines []string) ([]string, []error) {
	d.lines = append(d.lines, lines...)
	return d.replies, d.errs
}

type sent struct{ target, text string }

type fakeConn struct {
	mu   sync.Mutex
	nick string
	out  []sent
	err  error
}

func (c *fakeConn) Nick() string { return c.nick }

func (c *fakeConn) Reply(_ context.Context, target, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.out = append(c.out, sent{target, text})
	return nil
}

type countingMetrics struct {
	dms   int
	votes map[string]int
}

func (m *countingMetrics) RecordDM(string, string) { m.dms++ }
func (m *countingMetrics) RecordVote(delta int64) {
	if delta > 0 {
		m.votes["up"]++
	} else {
		m.votes["down"]++
	}
}

func msg(nick, target, text string) model.Message {
	return model.NewMessage(nick, target, text, time.Now())
}

func TestBotProcess(t *testing.T) {
	Convey("Given a bot with a store and plugins", t, func() {
		ctx := context.Background()
		store := &fakeStore{scores: map[string]int64{"bacon": 3}}
		plugins := &fakeDispatcher{}
		conn := &fakeConn{nick: "karmabot"}
		m := &countingMetrics{votes: map[string]int{}}
		bot := chat.NewBot(store, plugins, conn,
			chat.WithAdmins("Alice", " "),
			chat.WithMetrics(m),
			chat.WithLogger(logger.Nop()),
		)

		Convey("When a channel line carries votes", func() {
			err := bot.Process(ctx, msg("bob", "#karma", "rust++ and emacs-- and rust++"))

			Convey("Then they are applied as one batch", func() {
				So(err, ShouldBeNil)
				So(store.batches, ShouldHaveLength, 1)
				So(store.scores["rust"], ShouldEqual, 2)
				So(store.scores["emacs"], ShouldEqual, -1)
				So(m.votes, ShouldResemble, map[string]int{"up": 2, "down": 1})
				So(conn.out, ShouldBeEmpty)
			})

			Convey("Then the line still reaches the plugins", func() {
				So(plugins.lines, ShouldResemble, []string{"rust++ and emacs-- and rust++"})
			})
		})

		Convey("When someone asks for one score in the channel", func() {
			So(bot.Process(ctx, msg("bob", "#karma", "karmabot: karma bacon")), ShouldBeNil)

			Convey("Then the bot answers in the channel", func() {
				So(conn.out, ShouldResemble, []sent{{"#karma", "3"}})
				So(m.dms, ShouldEqual, 1)
				So(store.batches, ShouldBeEmpty)
			})
		})

		Convey("When someone asks for everything in private", func() {
			So(bot.Process(ctx, msg("bob", "karmabot", "karma")), ShouldBeNil)

			Convey("Then the rendering goes back to the sender", func() {
				So(conn.out, ShouldResemble, []sent{{"bob", "bacon: 3"}})
			})
		})

		Convey("When an admin sets a score", func() {
			So(bot.Process(ctx, msg("alice", "karmabot", "set bacon 10")), ShouldBeNil)

			Convey("Then the previous value is returned", func() {
				So(conn.out, ShouldResemble, []sent{{"alice", "3"}})
				So(store.scores["bacon"], ShouldEqual, 10)
			})
		})

		Convey("When someone else sets a score", func() {
			So(bot.Process(ctx, msg("mallory", "karmabot", "set bacon 9000")), ShouldBeNil)

			Convey("Then it is refused", func() {
				So(conn.out, ShouldResemble, []sent{{"mallory", chat.ReplyForbidden}})
				So(store.scores["bacon"], ShouldEqual, 3)
			})
		})

		Convey("When the command is not understood", func() {
			So(bot.Process(ctx, msg("bob", "#karma", "karmabot, dance")), ShouldBeNil)

			Convey("Then the bot says so", func() {
				So(conn.out, ShouldResemble, []sent{{"#karma", chat.ReplyUnknown}})
			})
		})

		Convey("When plugins answer", func() {
			plugins.replies = []string{"pong", "", "again"}
			plugins.errs = []error{errors.New("broken plugin")}
			So(bot.Process(ctx, msg("bob", "#karma", "ping")), ShouldBeNil)

			Convey("Then non-empty replies are sent and failures only logged", func() {
				So(conn.out, ShouldResemble, []sent{{"#karma", "pong"}, {"#karma", "again"}})
			})
		})

		Convey("When the connection cannot send", func() {
			conn.err = errors.New("write: broken pipe")
			err := bot.Process(ctx, msg("bob", "karmabot", "karma"))

			Convey("Then the error is returned", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "broken pipe")
			})
		})
	})

	Convey("Given a bot without plugins", t, func() {
		store := &fakeStore{scores: map[string]int64{}}
		conn := &fakeConn{nick: "karmabot"}
		bot := chat.NewBot(store, nil, conn, chat.WithLogger(logger.Nop()))

		So(bot.Process(context.Background(), msg("bob", "#karma", "go++")), ShouldBeNil)
		So(store.scores["go"], ShouldEqual, 1)
	})
}
