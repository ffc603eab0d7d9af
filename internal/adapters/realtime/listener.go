package realtime

// Package realtime mirrors the dispenser state pushed by the backend over a websocket.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/pastibot/companion/internal/domain/robot"
	"github.com/pastibot/companion/internal/observability/metrics"
	"golang.org/x/net/websocket"
)

// Event names sent by the backend.
const (
	EventStatusUpdate = "robotStatusUpdate"
	EventTaskUpdate   = "robotTaskUpdate"
)

// DefaultReconnectDelay is the pause between connection attempts.
const DefaultReconnectDelay = 3 * time.Second

// StatusSource reads the current status over plain HTTP.
type StatusSource interface {
	RobotStatus(ctx context.Context) (robot.StatusPayload, error)
}

// TokenSource supplies the bearer token for the socket handshake.
type TokenSource interface {
	BearerToken() string
}

// Config describes the socket endpoint.
type Config struct {
	URL            string        // ws:// or wss:// URL
	Origin         string        // default derived from URL
	ReconnectDelay time.Duration // default DefaultReconnectDelay
}

// Deps groups the collaborators of Listener.
type Deps struct {
	Status      StatusSource // Required
	Credentials TokenSource  // Optional
}

// Options groups dependencies for Listener.
type Options struct {
	Config    Config
	Deps      Deps
	Telemetry Telemetry
}

// Telemetry is optional observability for Listener.
type Telemetry struct {
	Logger  *slog.Logger
	Metrics metrics.Recorder
}

// Listener keeps a robot.State in sync with the backend.
type Listener struct {
	cfg     Config
	status  StatusSource
	creds   TokenSource
	logger  *slog.Logger
	metrics metrics.Recorder

	mu        sync.Mutex
	state     robot.State
	subs      map[int]func(robot.State)
	nextSubID int
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// New constructs a Listener. The initial state is OFFLINE.
func New(opts Options) (*Listener, error) {
	if opts.Deps.Status == nil {
		return nil, errors.New("realtime: status source is required")
	}
	cfg := opts.Config
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("realtime: parse url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("realtime: url scheme must be ws or wss, got %q", u.Scheme)
	}
	if cfg.Origin == "" {
		scheme := "http"
		if u.Scheme == "wss" {
			scheme = "https"
		}
		cfg.Origin = scheme + "://" + u.Host
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	logger := opts.Telemetry.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rec := opts.Telemetry.Metrics
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Listener{
		cfg:     cfg,
		status:  opts.Deps.Status,
		creds:   opts.Deps.Credentials,
		logger:  logger.With("component", "realtime"),
		metrics: rec,
		state:   robot.State{Status: robot.StatusOffline},
		subs:    make(map[int]func(robot.State)),
	}, nil
}

// State returns the current mirror.
func (l *Listener) State() robot.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Subscribe registers fn for state changes. fn must not block.
func (l *Listener) Subscribe(fn func(robot.State)) func() {
	l.mu.Lock()
	id := l.nextSubID
	l.nextSubID++
	l.subs[id] = fn
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}

func (l *Listener) update(fn func(robot.State) robot.State) {
	l.mu.Lock()
	l.state = fn(l.state)
	st := l.state
	fns := make([]func(robot.State), 0, len(l.subs))
	for _, f := range l.subs {
		fns = append(fns, f)
	}
	l.mu.Unlock()
	for _, f := range fns {
		f(st)
	}
}

// Refresh fetches the status over HTTP. On failure the robot is reported OFFLINE.
func (l *Listener) Refresh(ctx context.Context) error {
	p, err := l.status.RobotStatus(ctx)
	if err != nil {
		l.logger.WarnContext(ctx, "robot status unavailable", "error", err)
		l.update(func(s robot.State) robot.State { return s.ApplyStatus(robot.StatusPayload{}) })
		return fmt.Errorf("robot status: %w", err)
	}
	l.update(func(s robot.State) robot.State { return s.ApplyStatus(p) })
	return nil
}

// Run refreshes once and then follows the event stream, reconnecting until ctx is done.
func (l *Listener) Run(ctx context.Context) error {
	_ = l.Refresh(ctx)
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.logger.InfoContext(ctx, "robot event stream closed, reconnecting",
			"error", err, "delay", l.cfg.ReconnectDelay)

		timer := time.NewTimer(l.cfg.ReconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	wsCfg, err := websocket.NewConfig(l.cfg.URL, l.cfg.Origin)
	if err != nil {
		return fmt.Errorf("websocket config: %w", err)
	}
	if l.creds != nil {
		if tok := l.creds.BearerToken(); tok != "" {
			wsCfg.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	conn, err := wsCfg.DialContext(ctx)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	l.logger.DebugContext(ctx, "robot event stream connected")
	for {
		var env envelope
		if err := websocket.JSON.Receive(conn, &env); err != nil {
			return fmt.Errorf("receive: %w", err)
		}
		if err := l.handle(env); err != nil {
			l.logger.WarnContext(ctx, "bad robot event", "event", env.Event, "error", err)
		}
	}
}

func (l *Listener) handle(env envelope) error {
	switch env.Event {
	case EventStatusUpdate:
		var p robot.StatusPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return err
		}
		l.update(func(s robot.State) robot.State { return s.ApplyStatus(p) })
	case EventTaskUpdate:
		var p robot.TaskPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return err
		}
		l.update(func(s robot.State) robot.State { return s.ApplyTask(p) })
	default:
		return nil
	}
	l.metrics.RecordRobotEvent(env.Event)
	return nil
}
