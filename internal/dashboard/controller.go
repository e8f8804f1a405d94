// Package dashboard keeps a live view of the lab backend. A single goroutine
// owns the state; API calls run on their own goroutines and hand their
// results back through the controller's inbox, so state is never mutated
// concurrently. Results are applied in completion order.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jaxxstorm/dnsdash/internal/model"
	"go.uber.org/zap"
)

var (
	ErrStopped        = errors.New("dashboard controller stopped")
	ErrAlreadyRunning = errors.New("dashboard controller already running")
)

// API is the subset of the control API client the controller drives.
type API interface {
	CurrentResolver(ctx context.Context) (model.ResolverInfo, error)
	ToggleDNSSEC(ctx context.Context, enabled bool) (model.ToggleResult, error)
	Resolve(ctx context.Context, hostname string) (model.Resolution, error)
	AttackStatus(ctx context.Context) (model.AttackStatus, error)
	StartAttack(ctx context.Context, mode model.Mode) (model.Ack, error)
	StopAttack(ctx context.Context) (model.Ack, error)
	Dig(ctx context.Context, mode model.Mode) (model.DigOutput, error)
	Capture(ctx context.Context, mode model.Mode) (model.CaptureOutput, error)
	Logs(ctx context.Context, mode model.Mode) (model.LogOutput, error)
	ClearCache(ctx context.Context, mode model.Mode) (model.Ack, error)
	PlotData(ctx context.Context, plotType string) (model.PlotData, error)
	WebsiteURL(hostname string) string
}

// Observer is notified of every resolution the controller applies, in the
// order they were applied. Calls come from a single goroutine, and Run waits
// for the pending ones before it returns.
type Observer interface {
	ObserveResolution(mode model.Mode, r model.Resolution)
}

// Observers fans one notification out to several observers.
type Observers []Observer

func (o Observers) ObserveResolution(mode model.Mode, r model.Resolution) {
	for _, observer := range o {
		observer.ObserveResolution(mode, r)
	}
}

type Config struct {
	PollInterval time.Duration
	ErrorTTL     time.Duration
	Hostname     string
	PlotType     string
	// DiscardStale drops a completion whose request was issued before the
	// one already applied to the same field.
	DiscardStale bool
	Observer     Observer
	Logger       *zap.Logger
	Now          func() time.Time
}

// message is one unit of loop work. drop runs instead of run when the
// controller stops before the message is handled.
type message struct {
	run  func()
	drop func()
}

type observation struct {
	mode       model.Mode
	resolution model.Resolution
}

type Controller struct {
	api    API
	cfg    Config
	inbox  chan message
	done   chan struct{}
	exited chan struct{}

	// gate is held shared while a message is being queued and exclusively
	// while shutdown drains the inbox.
	gate    sync.RWMutex
	running atomic.Bool

	// Owned by the loop goroutine.
	callCtx context.Context
	state   State
	seq     uint64
	errGen  uint64
	timers  map[uint64]*time.Timer
	subs    []chan State
	observe chan observation
}

func New(api API, cfg Config) *Controller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.ErrorTTL <= 0 {
		cfg.ErrorTTL = 5 * time.Second
	}
	if cfg.Hostname == "" {
		cfg.Hostname = model.DefaultHostname
	}
	if cfg.PlotType == "" {
		cfg.PlotType = model.DefaultPlotType
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Controller{
		api:    api,
		cfg:    cfg,
		inbox:  make(chan message, 64),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
		state: State{
			Tab:        model.TabWebsite,
			WebsiteURL: api.WebsiteURL(cfg.Hostname),
			Actions:    map[Action]ActionStatus{},
			Seq:        map[Field]uint64{},
		},
		timers: map[uint64]*time.Timer{},
	}
}

// Run activates the dashboard: it loads resolver info, resolution and attack
// status, then polls resolution and attack status every PollInterval until
// ctx is cancelled. Requests still in flight at that point are not cancelled;
// their results are discarded. Actions and snapshots requested before Run
// starts wait for it.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	c.callCtx = context.WithoutCancel(ctx)
	observed := c.startObserver()
	defer func() {
		c.shutdown()
		if c.observe != nil {
			close(c.observe)
			<-observed
		}
		close(c.exited)
	}()

	c.cfg.Logger.Info("dashboard started",
		zap.Duration("poll_interval", c.cfg.PollInterval),
		zap.String("hostname", c.cfg.Hostname),
	)
	c.loadResolver(nil)
	c.loadResolution(nil)
	c.loadAttackStatus(nil)
	c.publish()

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.cfg.Logger.Info("dashboard stopped")
			return nil
		case <-ticker.C:
			c.poll()
			c.publish()
		case msg := <-c.inbox:
			msg.run()
			c.publish()
		}
	}
}

// startObserver runs the configured Observer on one goroutine fed in apply
// order. The returned channel closes when that goroutine exits.
func (c *Controller) startObserver() <-chan struct{} {
	finished := make(chan struct{})
	if c.cfg.Observer == nil {
		close(finished)
		return finished
	}
	c.observe = make(chan observation, 256)
	go func() {
		defer close(finished)
		for o := range c.observe {
			c.cfg.Observer.ObserveResolution(o.mode, o.resolution)
		}
	}()
	return finished
}

func (c *Controller) shutdown() {
	close(c.done)
	// No dispatch can be between its done check and its send once the gate
	// is ours, so whatever is in the inbox now is all that will ever be.
	c.gate.Lock()
	for drained := false; !drained; {
		select {
		case msg := <-c.inbox:
			if msg.drop != nil {
				msg.drop()
			}
		default:
			drained = true
		}
	}
	c.gate.Unlock()
	for gen, timer := range c.timers {
		timer.Stop()
		delete(c.timers, gen)
	}
	for _, sub := range c.subs {
		close(sub)
	}
	c.subs = nil
}

// Done is closed once Run has finished: subscriptions are closed and the
// Observer has seen every applied resolution.
func (c *Controller) Done() <-chan struct{} {
	return c.exited
}

// dispatch queues run for the loop; it fails once the controller has stopped.
// If the loop stops before handling it, drop is called instead.
func (c *Controller) dispatch(run, drop func()) error {
	c.gate.RLock()
	defer c.gate.RUnlock()
	select {
	case <-c.done:
		return ErrStopped
	default:
	}
	select {
	case c.inbox <- message{run: run, drop: drop}:
		return nil
	case <-c.done:
		return ErrStopped
	}
}

// perform runs fn on the loop and waits until it has, so callers learn
// whether their action was taken.
func (c *Controller) perform(fn func()) error {
	handled := make(chan error, 1)
	err := c.dispatch(func() {
		fn()
		handled <- nil
	}, func() {
		handled <- ErrStopped
	})
	if err != nil {
		return err
	}
	return <-handled
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot(ctx context.Context) (State, error) {
	reply := make(chan State, 1)
	if err := c.dispatch(func() { reply <- c.state.clone() }, nil); err != nil {
		return State{}, err
	}
	select {
	case s := <-reply:
		return s, nil
	case <-c.done:
		return State{}, ErrStopped
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

// Subscribe returns a channel that always holds the most recent snapshot.
// Intermediate snapshots are dropped for slow readers. The channel is closed
// when the controller stops.
func (c *Controller) Subscribe() <-chan State {
	ch := make(chan State, 1)
	err := c.dispatch(func() {
		c.subs = append(c.subs, ch)
		ch <- c.state.clone()
	}, func() {
		close(ch)
	})
	if err != nil {
		close(ch)
	}
	return ch
}

func (c *Controller) publish() {
	if len(c.subs) == 0 {
		return
	}
	snapshot := c.state.clone()
	for _, sub := range c.subs {
		select {
		case sub <- snapshot:
			continue
		default:
		}
		select {
		case <-sub:
		default:
		}
		select {
		case sub <- snapshot:
		default:
		}
	}
}

// WebsiteURL is the proxied page rendered by the website tab.
func (c *Controller) WebsiteURL() string {
	return c.api.WebsiteURL(c.cfg.Hostname)
}

// issue runs call on its own goroutine and applies the result on the loop.
// then, when set, runs after apply regardless of outcome.
func issue[T any](c *Controller, op string, call func(ctx context.Context) (T, error), apply func(seq uint64, v T), failed func(err error), then func()) {
	c.seq++
	seq := c.seq
	ctx := c.callCtx
	c.cfg.Logger.Debug("dashboard call issued", zap.String("op", op), zap.Uint64("seq", seq))
	go func() {
		v, err := call(ctx)
		_ = c.dispatch(func() {
			if err != nil {
				c.raise(op, err)
				if failed != nil {
					failed(err)
				}
			} else {
				apply(seq, v)
			}
			if then != nil {
				then()
			}
		}, nil)
	}()
}

// accept records seq as the latest response applied to field.
func (c *Controller) accept(field Field, seq uint64) bool {
	if c.cfg.DiscardStale && seq < c.state.Seq[field] {
		c.state.Stale++
		c.cfg.Logger.Debug("dropping stale response",
			zap.String("field", string(field)),
			zap.Uint64("seq", seq),
			zap.Uint64("applied", c.state.Seq[field]),
		)
		return false
	}
	c.state.Seq[field] = seq
	c.state.UpdatedAt = c.cfg.Now()
	return true
}

// raise replaces the banner and schedules its expiry. A timer only clears the
// error it was created for, so a newer error keeps its full TTL.
func (c *Controller) raise(op string, err error) {
	message := err.Error()
	if message == "" {
		message = DefaultErrorMessage
	}
	c.errGen++
	gen := c.errGen
	now := c.cfg.Now()
	c.state.Banner = &TransientError{
		Message:    message,
		RaisedAt:   now,
		Deadline:   now.Add(c.cfg.ErrorTTL),
		Generation: gen,
	}
	c.cfg.Logger.Warn("dashboard call failed", zap.String("op", op), zap.Error(err))
	c.timers[gen] = time.AfterFunc(c.cfg.ErrorTTL, func() {
		_ = c.dispatch(func() { c.expire(gen) }, nil)
	})
}

func (c *Controller) expire(gen uint64) {
	delete(c.timers, gen)
	if c.state.Banner != nil && c.state.Banner.Generation == gen {
		c.state.Banner = nil
	}
	for action, status := range c.state.Actions {
		if status.errGen == gen {
			status.Err = ""
			status.errGen = 0
			c.state.Actions[action] = status
		}
	}
}

func (c *Controller) begin(action Action) {
	status := c.state.Actions[action]
	status.InFlight++
	status.Busy = true
	c.state.Actions[action] = status
}

func (c *Controller) finish(action Action) {
	status := c.state.Actions[action]
	if status.InFlight > 0 {
		status.InFlight--
	}
	status.Busy = status.InFlight > 0
	status.Completed = c.cfg.Now()
	c.state.Actions[action] = status
}

// fail records err against action; the banner has already been raised.
func (c *Controller) fail(action Action) {
	status := c.state.Actions[action]
	if c.state.Banner != nil {
		status.Err = c.state.Banner.Message
		status.errGen = c.state.Banner.Generation
	}
	c.state.Actions[action] = status
}
