package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"economix/internal/config"
	"economix/internal/events"
)

// triggerEventTypes are the financial events that schedule an evaluation
// run for the affected user.
var triggerEventTypes = []string{
	events.EventTransactionCreated,
	events.EventGoalUpdated,
	events.EventDebtUpdated,
	events.EventChallengeJoined,
}

// TriggerStats is a point-in-time view of the trigger pipeline.
type TriggerStats struct {
	EventsReceived  int64     `json:"events_received"`
	RunsScheduled   int64     `json:"runs_scheduled"`
	RunsCompleted   int64     `json:"runs_completed"`
	RunsFailed      int64     `json:"runs_failed"`
	RunsDropped     int64     `json:"runs_dropped"`
	QueueDepth      int       `json:"queue_depth"`
	QueueCapacity   int       `json:"queue_capacity"`
	PendingDebounce int       `json:"pending_debounce"`
	WorkerCount     int       `json:"worker_count"`
	LastRunAt       time.Time `json:"last_run_at"`
}

// ===============================
// TRIGGER SERVICE
// ===============================

// triggerService subscribes to financial events and feeds debounced user IDs
// into a bounded worker pool. A burst of events for one user collapses into
// a single evaluation run; when the queue is full runs are dropped with a
// warning rather than blocking the bus.
type triggerService struct {
	gamification GamificationService
	eventBus     events.EventBus
	cfg          *config.EngineConfig
	logger       *zap.Logger

	queue   chan int64
	mu      sync.Mutex
	pending map[int64]*time.Timer
	closed  bool
	wg      sync.WaitGroup

	eventsReceived int64
	runsScheduled  int64
	runsCompleted  int64
	runsFailed     int64
	runsDropped    int64
	lastRunAt      atomic.Value
}

// NewTriggerService creates the evaluation trigger pipeline.
func NewTriggerService(gamification GamificationService, eventBus events.EventBus, cfg *config.EngineConfig, logger *zap.Logger) TriggerService {
	return &triggerService{
		gamification: gamification,
		eventBus:     eventBus,
		cfg:          cfg,
		logger:       logger,
		queue:        make(chan int64, cfg.QueueSize),
		pending:      make(map[int64]*time.Timer),
	}
}

// Start subscribes to the trigger events and launches the worker pool.
func (s *triggerService) Start(ctx context.Context) error {
	handler := events.NewEventHandlerFunc("gamification-trigger", s.handleEvent)
	for _, eventType := range triggerEventTypes {
		if err := s.eventBus.Subscribe(eventType, handler); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", eventType, err)
		}
	}

	for i := 0; i < s.cfg.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.logger.Info("trigger service started",
		zap.Int("workers", s.cfg.WorkerCount),
		zap.Int("queue_size", s.cfg.QueueSize),
		zap.Duration("debounce_window", s.cfg.DebounceWindow))
	return nil
}

// Stop drains the pipeline. Debounce timers still pending are cancelled;
// their users will be re-evaluated on their next financial event.
func (s *triggerService) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for userID, timer := range s.pending {
		timer.Stop()
		delete(s.pending, userID)
	}
	s.mu.Unlock()

	close(s.queue)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("trigger service stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("trigger service shutdown timed out: %w", ctx.Err())
	}
}

// handleEvent debounces an incoming event into a scheduled run.
func (s *triggerService) handleEvent(ctx context.Context, event events.Event) error {
	userID := event.GetUserID()
	if userID == nil {
		s.logger.Debug("ignoring event without user",
			zap.String("event_type", event.GetEventType()),
			zap.String("event_id", event.GetEventID()))
		return nil
	}
	atomic.AddInt64(&s.eventsReceived, 1)

	uid := *userID
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if timer, ok := s.pending[uid]; ok {
		timer.Reset(s.cfg.DebounceWindow)
		return nil
	}
	s.pending[uid] = time.AfterFunc(s.cfg.DebounceWindow, func() {
		s.schedule(uid)
	})
	return nil
}

// schedule moves a debounced user onto the worker queue, dropping on
// overflow. The send stays under the mutex so it cannot interleave with
// Stop closing the queue; it never blocks, so holding the lock is cheap.
func (s *triggerService) schedule(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	delete(s.pending, userID)

	select {
	case s.queue <- userID:
		atomic.AddInt64(&s.runsScheduled, 1)
	default:
		atomic.AddInt64(&s.runsDropped, 1)
		s.logger.Warn("evaluation queue full, dropping run",
			zap.Int64("user_id", userID),
			zap.Int("queue_capacity", cap(s.queue)))
	}
}

// worker consumes scheduled runs until the queue closes.
func (s *triggerService) worker(id int) {
	defer s.wg.Done()
	logger := s.logger.With(zap.Int("worker_id", id))
	for userID := range s.queue {
		s.evaluate(userID, logger)
	}
}

// evaluate runs both loops for one user under the evaluation timeout.
func (s *triggerService) evaluate(userID int64, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.EvaluationTimeout)
	defer cancel()

	start := time.Now()
	var achievementsOK, challengesOK bool

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		achievementsOK = s.gamification.EvaluateUserAchievements(gctx, userID)
		return nil
	})
	g.Go(func() error {
		challengesOK = s.gamification.EvaluateUserChallenges(gctx, userID)
		return nil
	})
	_ = g.Wait()

	s.lastRunAt.Store(time.Now())
	if achievementsOK && challengesOK {
		atomic.AddInt64(&s.runsCompleted, 1)
		logger.Debug("evaluation run completed",
			zap.Int64("user_id", userID),
			zap.Duration("duration", time.Since(start)))
		return
	}
	atomic.AddInt64(&s.runsFailed, 1)
	logger.Warn("evaluation run finished with failures",
		zap.Int64("user_id", userID),
		zap.Bool("achievements_ok", achievementsOK),
		zap.Bool("challenges_ok", challengesOK),
		zap.Duration("duration", time.Since(start)))
}

// Stats returns a snapshot of the pipeline counters.
func (s *triggerService) Stats() *TriggerStats {
	s.mu.Lock()
	pendingDebounce := len(s.pending)
	s.mu.Unlock()

	stats := &TriggerStats{
		EventsReceived:  atomic.LoadInt64(&s.eventsReceived),
		RunsScheduled:   atomic.LoadInt64(&s.runsScheduled),
		RunsCompleted:   atomic.LoadInt64(&s.runsCompleted),
		RunsFailed:      atomic.LoadInt64(&s.runsFailed),
		RunsDropped:     atomic.LoadInt64(&s.runsDropped),
		QueueDepth:      len(s.queue),
		QueueCapacity:   cap(s.queue),
		PendingDebounce: pendingDebounce,
		WorkerCount:     s.cfg.WorkerCount,
	}
	if t, ok := s.lastRunAt.Load().(time.Time); ok {
		stats.LastRunAt = t
	}
	return stats
}
