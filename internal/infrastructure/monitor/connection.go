package monitor

import (
	"context"
	"sync"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CheckFunc probes a dependency. The returned int is an optional gauge (queue size and such).
type CheckFunc func(ctx context.Context) (int, error)

// Check is a named probe. Critical checks decide IsOnline.
type Check struct {
	Name     string
	Critical bool
	Timeout  time.Duration
	Probe    CheckFunc
}

type Monitor struct {
	checks []Check

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

func New(interval time.Duration, logger *zap.Logger, checks ...Check) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		checks:   checks,
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// IsOnline reports whether every critical dependency passed its last probe.
// Before the first probe it reports false.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Online
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	components := make(map[string]ComponentStatus, len(m.status.Components))
	for name, c := range m.status.Components {
		components[name] = c
	}
	return Status{Online: m.status.Online, Components: components, LastCheck: m.status.LastCheck}
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Refresh(context.Background())
	for {
		select {
		case <-ticker.C:
			m.Refresh(context.Background())
		case <-m.stopCh:
			return
		}
	}
}

// Refresh runs every probe once and publishes the result.
func (m *Monitor) Refresh(ctx context.Context) Status {
	status := Status{
		Online:     true,
		Components: make(map[string]ComponentStatus, len(m.checks)),
	}
	for _, check := range m.checks {
		result := m.run(ctx, check)
		if check.Critical && !result.Healthy {
			status.Online = false
		}
		status.Components[check.Name] = result
	}
	status.LastCheck = time.Now()

	m.mu.Lock()
	if m.status.Online != status.Online && !m.status.LastCheck.IsZero() {
		m.logger.Info("connectivity changed", zap.Bool("online", status.Online))
	}
	m.status = status
	m.mu.Unlock()
	return status
}

func (m *Monitor) run(ctx context.Context, check Check) ComponentStatus {
	result := ComponentStatus{Critical: check.Critical}
	if check.Probe == nil {
		result.Error = "not configured"
		return result
	}
	timeout := check.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	detail, err := check.Probe(ctx)
	result.Detail = detail
	if err != nil {
		m.logger.Warn("health check failed", zap.String("component", check.Name), zap.Error(err))
		result.Error = err.Error()
		return result
	}
	result.Healthy = true
	return result
}

// RedisCheck pings the reminder store.
func RedisCheck(client *redislib.Client) Check {
	return Check{
		Name:     "redis",
		Critical: true,
		Timeout:  2 * time.Second,
		Probe: func(ctx context.Context) (int, error) {
			if client == nil {
				return 0, errNotConfigured
			}
			return 0, client.Ping(ctx).Err()
		},
	}
}

// PingCheck wraps any dependency that exposes Ping(ctx).
func PingCheck(name string, critical bool, pinger interface{ Ping(context.Context) error }) Check {
	return Check{
		Name:     name,
		Critical: critical,
		Probe: func(ctx context.Context) (int, error) {
			if pinger == nil {
				return 0, errNotConfigured
			}
			return 0, pinger.Ping(ctx)
		},
	}
}

// SizeCheck reports a queue length as the component detail.
func SizeCheck(name string, size func(ctx context.Context) (int, error)) Check {
	return Check{Name: name, Probe: size}
}
