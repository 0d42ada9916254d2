package central

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/vitalink-protocol/vitalink-go/pkg/connection"
	"github.com/vitalink-protocol/vitalink-go/pkg/event"
	"github.com/vitalink-protocol/vitalink-go/pkg/log"
	"github.com/vitalink-protocol/vitalink-go/pkg/session"
)

// Service errors.
var (
	ErrServiceClosed = errors.New("central service closed")
	ErrUnknownDevice = errors.New("unknown device")
)

// defaultQueueSize bounds the per-identity event queue. Updates beyond
// it are dropped rather than blocking the transport callback.
const defaultQueueSize = 64

// Config carries the collaborators of a Service. Transport is required;
// everything else has a working default.
type Config struct {
	// Transport establishes device connections.
	Transport Transport

	// Publisher receives decoded measurement events. Defaults to a
	// publisher that discards them.
	Publisher event.Publisher

	// ProtocolLog receives protocol events. Defaults to none.
	ProtocolLog log.Logger

	// Logger is the operational logger. Defaults to slog.Default.
	Logger *slog.Logger

	// Quirk overrides the vendor quirk policy.
	Quirk *QuirkPolicy

	// ReconnectDelay overrides the delay calculator used after link
	// loss. Defaults to the fixed delay.
	ReconnectDelay func() *connection.Delay

	// QueueSize overrides the per-identity event queue capacity.
	QueueSize int
}

// Service is the orchestration core. It owns one session, one worker
// goroutine and one connection manager per adopted device identity.
//
// All session state for an identity is mutated from its worker
// goroutine, fed by a sequential event queue. An update queued before a
// disconnect is always handled before it; an update delivered for a
// previous connection instance is discarded.
type Service struct {
	transport Transport
	store     *session.Store
	init      *Initializer
	disp      *Dispatcher
	plog      log.Logger
	logger    *slog.Logger

	newDelay  func() *connection.Delay
	queueSize int

	workers *xsync.MapOf[string, *worker]

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewService creates the orchestration core from its configuration.
func NewService(cfg Config) *Service {
	if cfg.Publisher == nil {
		cfg.Publisher = event.NopPublisher{}
	}
	if cfg.ProtocolLog == nil {
		cfg.ProtocolLog = log.NoopLogger{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Quirk == nil {
		cfg.Quirk = NewQuirkPolicy()
	}
	if cfg.ReconnectDelay == nil {
		cfg.ReconnectDelay = connection.NewFixedDelay
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}

	return &Service{
		transport: cfg.Transport,
		store:     session.NewStore(),
		init:      NewInitializer(cfg.Quirk, cfg.ProtocolLog, cfg.Logger),
		disp:      NewDispatcher(cfg.Quirk, cfg.Publisher, cfg.ProtocolLog, cfg.Logger),
		plog:      cfg.ProtocolLog,
		logger:    cfg.Logger,
		newDelay:  cfg.ReconnectDelay,
		queueSize: cfg.QueueSize,
		workers:   xsync.NewMapOf[string, *worker](),
	}
}

// Sessions returns the session store. Read-only use by callers.
func (s *Service) Sessions() *session.Store {
	return s.store
}

// Adopt takes ownership of a discovered candidate: it creates the
// session and worker for the identity if absent and attempts the
// initial connection. On failure the worker is kept so a later Adopt
// can retry, and the error is returned to the caller.
func (s *Service) Adopt(ctx context.Context, c Candidate) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrServiceClosed
	}
	s.mu.Unlock()

	sess, existed := s.store.GetOrCreate(c.Identity, c.Name)
	if existed && c.Name != "" {
		sess.SetName(c.Name)
	}

	w, loaded := s.workers.LoadOrCompute(c.Identity, func() *worker {
		return s.newWorker(sess)
	})
	if !loaded {
		s.wg.Add(1)
		go w.run(&s.wg)
		w.mgr.StartReconnectLoop()
	}

	if err := w.mgr.Connect(ctx); err != nil {
		if errors.Is(err, connection.ErrAlreadyConnected) {
			return nil
		}
		s.logger.Warn("initial connection failed",
			"device", c.Identity, "name", c.Name, "error", err)
		return err
	}
	return nil
}

// Remove deliberately disconnects a device and releases its session and
// worker. No reconnection is scheduled.
func (s *Service) Remove(identity string) error {
	w, ok := s.workers.LoadAndDelete(identity)
	if !ok {
		return ErrUnknownDevice
	}

	w.mgr.Disconnect()
	w.mgr.Close()
	w.stop()
	s.store.Delete(identity)
	return nil
}

// Close releases every adopted device and waits for all workers to exit.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.workers.Range(func(identity string, _ *worker) bool {
		_ = s.Remove(identity)
		return true
	})
	s.wg.Wait()
}

// linkEventKind distinguishes the events on a worker queue.
type linkEventKind uint8

const (
	evConnected linkEventKind = iota
	evUpdate
	evDisconnected
)

// linkEvent is one entry on an identity's sequential event queue. gen
// binds it to the connection instance that produced it.
type linkEvent struct {
	kind   linkEventKind
	gen    uint64
	conn   Conn
	up     Update
	reason error
}

// worker serializes all link events for one device identity.
type worker struct {
	svc  *Service
	sess *session.Session
	mgr  *connection.Manager

	queue chan linkEvent
	done  chan struct{}
	once  sync.Once

	// conn is the live connection instance. Owned by the worker
	// goroutine; nil while disconnected.
	conn Conn
}

func (s *Service) newWorker(sess *session.Session) *worker {
	w := &worker{
		svc:   s,
		sess:  sess,
		queue: make(chan linkEvent, s.queueSize),
		done:  make(chan struct{}),
	}

	w.mgr = connection.NewManager(sess.Identity(), w.connect)
	w.mgr.SetDelay(s.newDelay())
	w.mgr.OnStateChange(func(oldState, newState connection.State) {
		s.plog.Log(stateEvent(sess, log.StateEntityConnection, oldState.String(), newState.String(), ""))
	})
	w.mgr.OnReconnecting(func(attempt int, delay time.Duration) {
		s.logger.Info("reconnecting",
			"device", sess.Identity(), "attempt", attempt, "delay", delay)
	})

	return w
}

// connect is the manager's ConnectFunc. It resets the session to a new
// generation, establishes the link and queues the connected event for
// the worker goroutine.
func (w *worker) connect(ctx context.Context) error {
	gen := w.sess.Reset()
	h := &linkHandler{w: w, gen: gen}

	conn, err := w.svc.transport.Connect(ctx, w.sess.Identity(), h)
	if err != nil {
		return err
	}

	w.enqueueLifecycle(linkEvent{kind: evConnected, gen: gen, conn: conn})
	return nil
}

func (w *worker) stop() {
	w.once.Do(func() { close(w.done) })
}

// enqueueUpdate adds a data update to the worker queue without
// blocking. Updates are dropped when the worker has stopped or the
// queue is full; a stuck consumer must not stall the transport's
// notification callback.
func (w *worker) enqueueUpdate(ev linkEvent) {
	select {
	case <-w.done:
		return
	default:
	}

	select {
	case w.queue <- ev:
	default:
		w.svc.logger.Warn("event queue full, dropping update",
			"device", w.sess.Identity())
	}
}

// enqueueLifecycle delivers a connect or disconnect event. Unlike data
// updates these must never be lost: a dropped disconnect would leave
// the manager believing the link is still up, and no reconnect would
// ever be scheduled. The send blocks until the worker drains the queue
// or stops.
func (w *worker) enqueueLifecycle(ev linkEvent) {
	select {
	case <-w.done:
	case w.queue <- ev:
	}
}

func (w *worker) run(wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case <-w.done:
			if w.conn != nil {
				_ = w.conn.Disconnect()
				w.conn = nil
			}
			return
		case ev := <-w.queue:
			w.handle(ev)
		}
	}
}

func (w *worker) handle(ev linkEvent) {
	// Events from a previous connection instance are stale.
	if ev.gen != w.sess.Generation() {
		w.svc.logger.Debug("stale event discarded",
			"device", w.sess.Identity(), "generation", ev.gen)
		return
	}

	switch ev.kind {
	case evConnected:
		w.conn = ev.conn
		ctx, cancel := context.WithTimeout(context.Background(), connection.ConnectTimeout)
		if err := w.svc.init.Run(ctx, w.conn, w.sess); err != nil {
			w.svc.logger.Warn("session initialization aborted",
				"device", w.sess.Identity(), "error", err)
		}
		cancel()

	case evUpdate:
		if w.conn == nil {
			return
		}
		w.svc.disp.Dispatch(context.Background(), w.conn, w.sess, ev.up)

	case evDisconnected:
		if w.conn == nil {
			return
		}
		w.conn = nil
		w.svc.plog.Log(stateEvent(w.sess, log.StateEntitySession, "INITIALIZED", "DISCONNECTED", reasonString(ev.reason)))
		w.svc.logger.Info("link lost",
			"device", w.sess.Identity(), "name", w.sess.Name(), "reason", ev.reason)
		w.mgr.NotifyConnectionLost()
	}
}

func reasonString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// linkHandler adapts transport callbacks for one connection instance
// into queue entries stamped with that instance's generation.
type linkHandler struct {
	w   *worker
	gen uint64
}

func (h *linkHandler) HandleUpdate(up Update) {
	h.w.enqueueUpdate(linkEvent{kind: evUpdate, gen: h.gen, up: up})
}

func (h *linkHandler) HandleDisconnect(reason error) {
	h.w.enqueueLifecycle(linkEvent{kind: evDisconnected, gen: h.gen, reason: reason})
}
