// Package irc is the network side of the bot: it keeps one IRC connection,
// queues every PRIVMSG it sees and sends replies at a bounded rate.
package irc

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/ergochat/irc-go/ircmsg"
	"golang.org/x/time/rate"

	"github.com/okian/karmabot/internal/domain/model"
	"github.com/okian/karmabot/pkg/logger"
)

const (
	dialTimeout     = 30 * time.Second
	writeTimeout    = 10 * time.Second
	farewellTimeout = 2 * time.Second
	maxLineLength   = 8191 + 512 // tags plus the message body

	// KilledMessage is sent to the channel when the bot shuts down.
	KilledMessage = "Killed!"
	realName      = "karmabot"
)

// Config describes the connection.
type Config struct {
	Server    string // host:port
	TLS       bool
	Nick      string
	Channel   string
	SendRate  float64 // lines per second
	SendBurst int
}

// Sink accepts received chat messages.
type Sink interface {
	Enqueue(ctx context.Context, m model.Message) bool
}

// Metrics receives protocol counters.
type Metrics interface {
	RecordMessage(command string)
	RecordPing(server string)
	RecordPong(server string)
}

type nopMetrics struct{}

func (nopMetrics) RecordMessage(string) {}
func (nopMetrics) RecordPing(string)    {}
func (nopMetrics) RecordPong(string)    {}

// Client is a single IRC connection. Run owns its lifetime; Reply may be
// called from any goroutine while Run is active.
type Client struct {
	cfg     Config
	sink    Sink
	limiter *rate.Limiter
	dial    func(ctx context.Context) (net.Conn, error)
	metrics Metrics
	logger  logger.Logger
	now     func() time.Time

	mu   sync.Mutex // guards conn, nick and writes
	conn net.Conn
	nick string
}

// New creates a client. Nothing is dialled until Run.
func New(cfg Config, sink Sink, opts ...Option) *Client {
	limit := rate.Inf
	if cfg.SendRate > 0 {
		limit = rate.Limit(cfg.SendRate)
	}
	burst := cfg.SendBurst
	if burst < 1 {
		burst = 1
	}

	c := &Client{
		cfg:     cfg,
		sink:    sink,
		limiter: rate.NewLimiter(limit, burst),
		metrics: nopMetrics{},
		logger:  logger.Get().Named("irc"),
		now:     time.Now,
		nick:    cfg.Nick,
	}
	c.dial = c.dialServer

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Nick returns the nick currently in use.
func (c *Client) Nick() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nick
}

// Reply sends text to target as one PRIVMSG per line, waiting for the send limiter.
func (c *Client) Reply(ctx context.Context, target, text string) error {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		if err := c.send(ctx, true, "PRIVMSG", target, line); err != nil {
			return err
		}
	}
	return nil
}

// Run connects, registers and reads until ctx is done or the connection drops.
// On cancellation it says goodbye to the channel and quits.
func (c *Client) Run(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDial, c.cfg.Server, err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.logger.Info(ctx, "connected", logger.String("server", c.cfg.Server), logger.String("nick", c.Nick()))

	lines := make(chan string)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	go c.read(conn, lines, readErr, stop)

	defer func() {
		close(stop)
		c.disconnect()
		<-readErr
	}()

	if err := c.register(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			c.farewell(ctx)
			return nil
		case line := <-lines:
			c.handle(ctx, line)
		case err := <-readErr:
			readErr <- err
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: %w", ErrDisconnected, err)
		}
	}
}

func (c *Client) read(conn net.Conn, lines chan<- string, errc chan<- error, stop <-chan struct{}) {
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 4096), maxLineLength)
	for sc.Scan() {
		select {
		case lines <- sc.Text():
		case <-stop:
			errc <- nil
			return
		}
	}
	err := sc.Err()
	if err == nil {
		err = errors.New("EOF")
	}
	errc <- err
}

func (c *Client) register(ctx context.Context) error {
	nick := c.Nick()
	if err := c.send(ctx, false, "NICK", nick); err != nil {
		return err
	}
	return c.send(ctx, false, "USER", nick, "0", "*", realName)
}

// farewell runs after ctx is cancelled, so it gets its own short deadline.
func (c *Client) farewell(ctx context.Context) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), farewellTimeout)
	defer cancel()

	if err := c.send(fctx, false, "PRIVMSG", c.cfg.Channel, KilledMessage); err != nil {
		c.logger.Warn(ctx, "failed to say goodbye", logger.Error(err))
	}
	if err := c.send(fctx, false, "QUIT", KilledMessage); err != nil {
		c.logger.Warn(ctx, "failed to quit", logger.Error(err))
	}
}

func (c *Client) disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// send writes one message. Limited sends wait for the flood limiter first.
func (c *Client) send(ctx context.Context, limited bool, command string, params ...string) error {
	msg := ircmsg.MakeMessage(nil, "", command, params...)
	line, err := msg.Line()
	if err != nil {
		return fmt.Errorf("irc: encode %s: %w", command, err)
	}

	if limited {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("irc: send %s: %w", command, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("irc: send %s: %w", command, err)
	}
	if _, err := c.conn.Write([]byte(line)); err != nil {
		return fmt.Errorf("irc: send %s: %w", command, err)
	}
	return nil
}

func (c *Client) dialServer(ctx context.Context) (net.Conn, error) {
	d := &net.Dialer{Timeout: dialTimeout, KeepAlive: time.Minute}
	if !c.cfg.TLS {
		return d.DialContext(ctx, "tcp", c.cfg.Server)
	}

	host, _, err := net.SplitHostPort(c.cfg.Server)
	if err != nil {
		return nil, err
	}
	td := &tls.Dialer{
		NetDialer: d,
		Config:    &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12},
	}
	return td.DialContext(ctx, "tcp", c.cfg.Server)
}
