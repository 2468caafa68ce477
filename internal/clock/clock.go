// Package clock implements the simulated match clock: two halves, a break,
// stoppage time and a playback speed for demos.
package clock

import (
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/playperu/matchday/internal/matchday"
)

type Phase string

const (
	Scheduled  Phase = "scheduled"
	FirstHalf  Phase = "first_half"
	HalfTime   Phase = "half_time"
	SecondHalf Phase = "second_half"
	Finished   Phase = "finished"
)

// Speeds are the supported playback multipliers. 1 is real time.
var Speeds = []int{1, 10, 60}

// Ticker delivers one tick per real second.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type TickerFactory func(time.Duration) Ticker

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

func newRealTicker(d time.Duration) Ticker { return realTicker{time.NewTicker(d)} }

// Snapshot is a consistent copy of the clock state. It is also the persisted
// form used to rebuild a clock after a restart.
type Snapshot struct {
	Phase           Phase `json:"phase"`
	Half            int   `json:"half"`
	ElapsedSeconds  int   `json:"elapsedSeconds"`
	StoppageSeconds int   `json:"stoppageSeconds"`
	HalfSeconds     int   `json:"halfSeconds"`
	Speed           int   `json:"speed"`
	Running         bool  `json:"running"`
	Minute          int   `json:"minute"`
	// Seq increases with every change. Consumers drop frames older than
	// the last one they saw.
	Seq uint64 `json:"seq"`
}

type Option func(*Clock)

// WithSpeed sets the initial multiplier. Unsupported values are ignored.
func WithSpeed(mult int) Option {
	return func(c *Clock) {
		if supported(mult) {
			c.speed = mult
		}
	}
}

func WithTickerFactory(f TickerFactory) Option {
	return func(c *Clock) { c.newTicker = f }
}

// WithOnChange registers a callback run after every tick and transition.
// It is called without the clock's lock held and must not block for long.
// Calls are serialized and in Seq order; a snapshot overtaken by a newer
// one before delivery is skipped.
func WithOnChange(fn func(Snapshot)) Option {
	return func(c *Clock) { c.onChange = fn }
}

// Clock is safe for concurrent use. While running, a single goroutine
// advances it once per real second by the speed multiplier.
type Clock struct {
	mu        sync.Mutex
	halfSecs  int
	phase     Phase
	half      int
	elapsed   int
	stoppage  int
	speed     int
	running   bool
	gen       int
	stop      chan struct{}
	seq       uint64
	newTicker TickerFactory
	onChange  func(Snapshot)

	notifyMu  sync.Mutex
	delivered uint64
}

func New(halfDuration time.Duration, opts ...Option) *Clock {
	c := &Clock{
		halfSecs:  int(halfDuration / time.Second),
		phase:     Scheduled,
		speed:     1,
		newTicker: newRealTicker,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func supported(mult int) bool {
	return slices.Contains(Speeds, mult)
}

func invalid(from Phase, op string) error {
	return matchday.Reject(matchday.CodeInvalidClockTransition, "cannot %s while %s", op, from).
		With("phase", string(from))
}

// Start kicks off the first half.
func (c *Clock) Start() error {
	c.mu.Lock()
	if c.phase != Scheduled {
		err := invalid(c.phase, "start")
		c.mu.Unlock()
		return err
	}
	c.phase = FirstHalf
	c.half = 1
	c.elapsed = 0
	c.stoppage = 0
	c.runLocked()
	snap := c.changedLocked()
	c.mu.Unlock()
	c.notify(snap)
	return nil
}

// Pause suspends the current half without touching elapsed time. Pausing an
// already paused clock, or one that is finished, does nothing.
func (c *Clock) Pause() error {
	c.mu.Lock()
	switch c.phase {
	case Finished, HalfTime:
		c.mu.Unlock()
		return nil
	case Scheduled:
		err := invalid(c.phase, "pause")
		c.mu.Unlock()
		return err
	}
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.haltLocked()
	snap := c.changedLocked()
	c.mu.Unlock()
	c.notify(snap)
	return nil
}

// Resume continues the current half from the paused elapsed time.
func (c *Clock) Resume() error {
	c.mu.Lock()
	switch c.phase {
	case Finished:
		c.mu.Unlock()
		return nil
	case Scheduled, HalfTime:
		err := invalid(c.phase, "resume")
		c.mu.Unlock()
		return err
	}
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.runLocked()
	snap := c.changedLocked()
	c.mu.Unlock()
	c.notify(snap)
	return nil
}

// StartSecondHalf resets the half timer and runs the second half.
func (c *Clock) StartSecondHalf() error {
	c.mu.Lock()
	if c.phase != HalfTime {
		err := invalid(c.phase, "start the second half")
		c.mu.Unlock()
		return err
	}
	c.phase = SecondHalf
	c.half = 2
	c.elapsed = 0
	c.stoppage = 0
	c.runLocked()
	snap := c.changedLocked()
	c.mu.Unlock()
	c.notify(snap)
	return nil
}

// AddStoppageTime extends the current half. It has no effect once finished.
func (c *Clock) AddStoppageTime(minutes int) error {
	c.mu.Lock()
	if c.phase == Finished {
		c.mu.Unlock()
		return nil
	}
	if c.phase != FirstHalf && c.phase != SecondHalf {
		err := invalid(c.phase, "add stoppage time")
		c.mu.Unlock()
		return err
	}
	if minutes <= 0 {
		c.mu.Unlock()
		return matchday.Reject(matchday.CodeInvalidClockTransition, "stoppage time must be positive, got %d", minutes).
			With("minutes", strconv.Itoa(minutes))
	}
	c.stoppage += minutes * 60
	snap := c.changedLocked()
	c.mu.Unlock()
	c.notify(snap)
	return nil
}

// SetSpeed swaps the multiplier. A running clock is paused, reconfigured and
// resumed, so no elapsed time is lost or gained.
func (c *Clock) SetSpeed(mult int) error {
	if !supported(mult) {
		return matchday.Reject(matchday.CodeUnsupportedSpeed, "speed %dx is not supported", mult).
			With("speed", strconv.Itoa(mult))
	}
	c.mu.Lock()
	wasRunning := c.running
	if wasRunning {
		c.haltLocked()
	}
	c.speed = mult
	if wasRunning {
		c.runLocked()
	}
	snap := c.changedLocked()
	c.mu.Unlock()
	c.notify(snap)
	return nil
}

// Stop freezes the clock in the finished phase.
func (c *Clock) Stop() {
	c.mu.Lock()
	if c.phase == Finished && !c.running {
		c.mu.Unlock()
		return
	}
	c.haltLocked()
	c.phase = Finished
	snap := c.changedLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// Restore loads a persisted snapshot. The restored clock is paused.
func (c *Clock) Restore(s Snapshot) {
	c.mu.Lock()
	c.haltLocked()
	c.phase = s.Phase
	c.half = s.Half
	c.elapsed = s.ElapsedSeconds
	c.stoppage = s.StoppageSeconds
	if s.HalfSeconds > 0 {
		c.halfSecs = s.HalfSeconds
	}
	if supported(s.Speed) {
		c.speed = s.Speed
	}
	c.seq = s.Seq
	c.mu.Unlock()
}

// Tick advances a running clock by one real second. The ticker goroutine
// calls it; tests drive it directly.
func (c *Clock) Tick() {
	c.mu.Lock()
	c.tickLocked(c.gen)
}

// tickLocked releases c.mu.
func (c *Clock) tickLocked(gen int) {
	if !c.running || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.elapsed += c.speed
	if limit := c.halfSecs + c.stoppage; c.elapsed >= limit {
		c.elapsed = limit
		c.haltLocked()
		if c.phase == FirstHalf {
			c.phase = HalfTime
		} else {
			c.phase = Finished
		}
	}
	snap := c.changedLocked()
	c.mu.Unlock()
	c.notify(snap)
}

func (c *Clock) runLocked() {
	c.running = true
	c.gen++
	stop := make(chan struct{})
	c.stop = stop
	go c.loop(c.newTicker(time.Second), stop, c.gen)
}

func (c *Clock) haltLocked() {
	c.running = false
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

func (c *Clock) loop(t Ticker, stop <-chan struct{}, gen int) {
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C():
			c.mu.Lock()
			c.tickLocked(gen)
		}
	}
}

// changedLocked records a change and returns the snapshot to deliver.
func (c *Clock) changedLocked() Snapshot {
	c.seq++
	return c.snapshotLocked()
}

func (c *Clock) notify(s Snapshot) {
	if c.onChange == nil {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if s.Seq <= c.delivered {
		return
	}
	c.delivered = s.Seq
	c.onChange(s)
}

// CurrentMinute is the match minute: whole minutes elapsed in the current
// half, offset by one half length from the second half on.
func (c *Clock) CurrentMinute() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.minuteLocked()
}

func (c *Clock) minuteLocked() int {
	m := c.elapsed / 60
	if c.half >= 2 {
		m += c.halfSecs / 60
	}
	return m
}

func (c *Clock) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Remaining is the simulated time left in the current half, stoppage
// included.
func (c *Clock) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != FirstHalf && c.phase != SecondHalf {
		return 0
	}
	return time.Duration(c.halfSecs+c.stoppage-c.elapsed) * time.Second
}

func (c *Clock) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Clock) snapshotLocked() Snapshot {
	return Snapshot{
		Phase:           c.phase,
		Half:            c.half,
		ElapsedSeconds:  c.elapsed,
		StoppageSeconds: c.stoppage,
		HalfSeconds:     c.halfSecs,
		Speed:           c.speed,
		Running:         c.running,
		Minute:          c.minuteLocked(),
		Seq:             c.seq,
	}
}
