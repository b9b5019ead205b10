package ticker

import (
	"fmt"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"sync"
	"time"
)

// DefaultInterval between ticks
const DefaultInterval = time.Second

// Subscription identifies a registered tick observer
type Subscription struct {
	ID uuid.UUID
}

type subscriber struct {
	id uuid.UUID
	fn func(time.Time)
}

// Ticker broadcasts one scheduled tick to every subscriber.
// A single cron entry drives all observers, however many subscribe.
type Ticker struct {
	cron     *cron.Cron
	interval time.Duration

	// lock guards subscribers and entry
	lock        sync.Mutex
	subscribers []subscriber
	entry       cron.EntryID
	started     bool

	now    func() time.Time
	logger log.Logger
}

// New constructs a stopped Ticker. Intervals below a second are rounded up by cron.
func New(interval time.Duration, logger log.Logger) *Ticker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Ticker{
		cron:     cron.New(cron.WithLogger(cronLogger{logger})),
		interval: interval,
		now:      time.Now,
		logger:   logger,
	}
}

// Subscribe registers fn to be called on every tick
func (t *Ticker) Subscribe(fn func(time.Time)) Subscription {
	t.lock.Lock()
	defer t.lock.Unlock()
	id := uuid.New()
	t.subscribers = append(t.subscribers, subscriber{id: id, fn: fn})
	return Subscription{ID: id}
}

// Unsubscribe removes a subscriber. Unknown ids are ignored.
func (t *Ticker) Unsubscribe(s Subscription) {
	t.lock.Lock()
	defer t.lock.Unlock()
	for i, sub := range t.subscribers {
		if sub.id == s.ID {
			t.subscribers = append(t.subscribers[:i:i], t.subscribers[i+1:]...)
			return
		}
	}
}

// Len returns the number of subscribers
func (t *Ticker) Len() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.subscribers)
}

// Start schedules the shared callback
func (t *Ticker) Start() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.started {
		return nil
	}
	entry, err := t.cron.AddFunc(fmt.Sprintf("@every %v", t.interval), t.tick)
	if err != nil {
		return fmt.Errorf("scheduling tick [%v]: %w", t.interval, err)
	}
	t.entry = entry
	t.started = true
	t.cron.Start()
	return nil
}

// Stop unschedules the callback and waits for a running tick to finish
func (t *Ticker) Stop() {
	t.lock.Lock()
	if !t.started {
		t.lock.Unlock()
		return
	}
	t.cron.Remove(t.entry)
	t.started = false
	t.lock.Unlock()

	<-t.cron.Stop().Done()
}

// tick fans the current time out to subscribers in registration order
func (t *Ticker) tick() {
	now := t.now()

	t.lock.Lock()
	subscribers := append([]subscriber(nil), t.subscribers...)
	t.lock.Unlock()

	for _, sub := range subscribers {
		t.notify(sub, now)
	}
}

func (t *Ticker) notify(sub subscriber, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			level.Error(t.logger).Log("msg", "tick subscriber panicked", "subscription", sub.id, "panic", r)
		}
	}()
	sub.fn(now)
}

// cronLogger adapts a go-kit logger to cron.Logger
type cronLogger struct {
	logger log.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	level.Debug(l.logger).Log(append([]interface{}{"msg", msg}, keysAndValues...)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	level.Error(l.logger).Log(append([]interface{}{"msg", msg, "err", err}, keysAndValues...)...)
}
