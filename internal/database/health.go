package database

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// HealthStatus represents the current health status of the database.
type HealthStatus struct {
	Status          string                 `json:"status"`
	Timestamp       time.Time              `json:"timestamp"`
	ResponseTime    time.Duration          `json:"response_time"`
	ConnectionCount int                    `json:"connection_count"`
	Errors          []string               `json:"errors,omitempty"`
	Details         map[string]interface{} `json:"details"`
}

// Health check statuses
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusStarting  = "starting"
	StatusShutdown  = "shutdown"
)

// HealthChecker monitors database health in the background.
type HealthChecker struct {
	manager *Manager
	logger  *zap.Logger

	mu        sync.RWMutex
	isActive  int32
	started   int32
	lastCheck time.Time
	status    *HealthStatus

	consecutiveFailures int32

	stopCh  chan struct{}
	stopped chan struct{}

	checkInterval   time.Duration
	timeoutDuration time.Duration
	criticalTables  []string
}

// NewHealthChecker creates a health checker. Monitoring does not start
// until StartMonitoring is called.
func NewHealthChecker(manager *Manager, logger *zap.Logger) *HealthChecker {
	interval := manager.config.HealthCheckInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &HealthChecker{
		manager:         manager,
		logger:          logger,
		isActive:        1,
		checkInterval:   interval,
		timeoutDuration: 10 * time.Second,
		criticalTables: []string{
			"achievements",
			"user_achievement_progress",
			"challenges",
			"user_challenges",
			"notifications",
		},
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Check performs a health check covering connectivity, pool utilization,
// query latency and access to the engine's tables.
func (hc *HealthChecker) Check(ctx context.Context) *HealthStatus {
	if atomic.LoadInt32(&hc.isActive) == 0 {
		return &HealthStatus{
			Status:    StatusShutdown,
			Timestamp: time.Now(),
			Errors:    []string{"health checker is shutdown"},
			Details:   make(map[string]interface{}),
		}
	}

	start := time.Now()
	status := &HealthStatus{
		Timestamp: start,
		Details:   make(map[string]interface{}),
		Errors:    make([]string, 0),
	}

	ctx, cancel := context.WithTimeout(ctx, hc.timeoutDuration)
	defer cancel()

	if err := hc.checkConnectivity(ctx, status); err != nil {
		status.Errors = append(status.Errors, fmt.Sprintf("connectivity: %v", err))
	}

	hc.checkConnectionPool(status)

	if err := hc.checkTableAccess(ctx, status); err != nil {
		status.Errors = append(status.Errors, fmt.Sprintf("table access: %v", err))
	}

	status.ResponseTime = time.Since(start)
	status.Status = hc.determineOverallStatus(status)

	hc.mu.Lock()
	hc.status = status
	hc.lastCheck = time.Now()
	hc.mu.Unlock()

	hc.trackFailures(status)

	return status
}

func (hc *HealthChecker) checkConnectivity(ctx context.Context, status *HealthStatus) error {
	if hc.manager == nil || hc.manager.DB() == nil {
		return fmt.Errorf("database connection is nil")
	}

	start := time.Now()
	err := hc.manager.DB().PingContext(ctx)
	pingDuration := time.Since(start)

	status.Details["ping_duration_ms"] = pingDuration.Milliseconds()
	status.Details["ping_success"] = err == nil

	if pingDuration > 500*time.Millisecond {
		status.Details["ping_warning"] = "slow ping response"
	}

	if err != nil {
		hc.logger.Error("Database ping failed",
			zap.Error(err),
			zap.Duration("duration", pingDuration))
	}

	return err
}

func (hc *HealthChecker) checkConnectionPool(status *HealthStatus) {
	stats := hc.manager.DB().Stats()

	status.ConnectionCount = stats.OpenConnections
	poolMetrics := map[string]interface{}{
		"max_open":         stats.MaxOpenConnections,
		"open":             stats.OpenConnections,
		"in_use":           stats.InUse,
		"idle":             stats.Idle,
		"wait_count":       stats.WaitCount,
		"wait_duration_ms": stats.WaitDuration.Milliseconds(),
	}

	if stats.MaxOpenConnections > 0 {
		utilization := float64(stats.InUse) / float64(stats.MaxOpenConnections)
		poolMetrics["utilization_percent"] = utilization * 100

		if utilization > 0.8 {
			status.Details["connection_warning"] = "high connection utilization"
		}
	}

	status.Details["connection_pool"] = poolMetrics
}

func (hc *HealthChecker) checkTableAccess(ctx context.Context, status *HealthStatus) error {
	if atomic.LoadInt32(&hc.isActive) == 0 {
		return fmt.Errorf("database connection is not active")
	}

	tableResults := make(map[string]interface{})

	for _, table := range hc.criticalTables {
		start := time.Now()
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s LIMIT 1", table)

		var count int
		err := hc.manager.DB().QueryRowContext(ctx, query).Scan(&count)
		duration := time.Since(start)

		tableResults[table] = map[string]interface{}{
			"accessible":  err == nil,
			"duration_ms": duration.Milliseconds(),
		}

		if err != nil {
			hc.logger.Error("Failed to access critical table",
				zap.String("table", table),
				zap.Error(err))
			return fmt.Errorf("cannot access table %s: %w", table, err)
		}
	}

	status.Details["table_access"] = tableResults
	return nil
}

func (hc *HealthChecker) determineOverallStatus(status *HealthStatus) string {
	if len(status.Errors) > 0 {
		return StatusUnhealthy
	}

	if status.ResponseTime > 1*time.Second {
		return StatusDegraded
	}

	for key := range status.Details {
		if key == "ping_warning" || key == "connection_warning" {
			return StatusDegraded
		}
	}

	return StatusHealthy
}

func (hc *HealthChecker) trackFailures(status *HealthStatus) {
	if status.Status == StatusUnhealthy {
		count := atomic.AddInt32(&hc.consecutiveFailures, 1)
		if count >= 3 {
			hc.logger.Error("Database persistently unhealthy",
				zap.Int32("consecutive_failures", count),
				zap.Strings("errors", status.Errors),
			)
		}
	} else {
		atomic.StoreInt32(&hc.consecutiveFailures, 0)
	}
}

// StartMonitoring begins background health monitoring.
func (hc *HealthChecker) StartMonitoring() {
	if atomic.LoadInt32(&hc.isActive) == 1 && atomic.CompareAndSwapInt32(&hc.started, 0, 1) {
		go hc.startPeriodicChecks()
		hc.logger.Info("Background health monitoring started",
			zap.Duration("interval", hc.checkInterval))
	}
}

func (hc *HealthChecker) startPeriodicChecks() {
	defer close(hc.stopped)

	ticker := time.NewTicker(hc.checkInterval)
	defer ticker.Stop()

	var lastStatus string

	for {
		select {
		case <-ticker.C:
			if atomic.LoadInt32(&hc.isActive) == 0 {
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), hc.timeoutDuration)
			status := hc.Check(ctx)
			cancel()

			if lastStatus != "" && status.Status != lastStatus {
				hc.logger.Info("Database health status changed",
					zap.String("from", lastStatus),
					zap.String("to", status.Status),
					zap.Duration("response_time", status.ResponseTime),
				)
			}
			lastStatus = status.Status

		case <-hc.stopCh:
			return
		}
	}
}

// Stop shuts down the health checker and waits for the background goroutine.
func (hc *HealthChecker) Stop() {
	if !atomic.CompareAndSwapInt32(&hc.isActive, 1, 0) {
		return
	}

	close(hc.stopCh)

	if atomic.LoadInt32(&hc.started) == 0 {
		return
	}

	select {
	case <-hc.stopped:
	case <-time.After(5 * time.Second):
		hc.logger.Warn("Health checker stop timeout")
	}
}

// GetLastStatus returns the last cached health status.
func (hc *HealthChecker) GetLastStatus() *HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	if hc.status == nil {
		return &HealthStatus{
			Status:    StatusStarting,
			Timestamp: time.Now(),
			Errors:    []string{"no health check performed yet"},
			Details:   make(map[string]interface{}),
		}
	}

	return hc.status
}

// IsHealthy reports whether the last health check passed.
func (hc *HealthChecker) IsHealthy() bool {
	if atomic.LoadInt32(&hc.isActive) == 0 {
		return false
	}

	return hc.GetLastStatus().Status == StatusHealthy
}
