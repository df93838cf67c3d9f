package assessment

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultQueueSize bounds the number of assessments waiting for analysis.
const DefaultQueueSize = 32

// Analyzer runs Analyze in the background for assessments that become
// ready. It has one worker; ids that arrive while the queue is full are
// dropped and can still be analysed on demand.
type Analyzer struct {
	analyze func(ctx context.Context, id string) error
	timeout time.Duration
	logger  *zap.Logger

	mu      sync.RWMutex
	closed  bool
	pending chan string
	done    chan struct{}
}

// StartAnalyzer enables auto-analysis on s. Each job runs with the given
// timeout (none when zero). The caller must Close the returned Analyzer.
func (s *Service) StartAnalyzer(queueSize int, timeout time.Duration) *Analyzer {
	a := newAnalyzer(func(ctx context.Context, id string) error {
		_, err := s.Analyze(ctx, id)
		return err
	}, queueSize, timeout, s.logger)
	s.analyzer = a
	return a
}

func newAnalyzer(analyze func(context.Context, string) error, queueSize int, timeout time.Duration, logger *zap.Logger) *Analyzer {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Analyzer{
		analyze: analyze,
		timeout: timeout,
		logger:  logger.Named("analyzer"),
		pending: make(chan string, queueSize),
		done:    make(chan struct{}),
	}
	go a.processLoop()
	return a
}

// Enqueue schedules an assessment for analysis. It reports false when the
// id was dropped because the queue is full or the analyzer is closed.
func (a *Analyzer) Enqueue(id string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return false
	}

	select {
	case a.pending <- id:
		return true
	default:
		a.logger.Warn("analysis queue full, dropping", zap.String("assessment_id", id))
		return false
	}
}

func (a *Analyzer) processLoop() {
	defer close(a.done)
	for id := range a.pending {
		a.run(id)
	}
}

func (a *Analyzer) run(id string) {
	ctx := context.Background()
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := a.analyze(ctx, id); err != nil {
		a.logger.Error("auto-analysis failed", zap.String("assessment_id", id), zap.Error(err))
		return
	}
	a.logger.Debug("auto-analysis finished",
		zap.String("assessment_id", id),
		zap.Duration("elapsed", time.Since(start)))
}

// Close stops accepting ids, waits for queued ones to finish and stops the
// worker. It is safe to call more than once.
func (a *Analyzer) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.pending)
	}
	a.mu.Unlock()
	<-a.done
}
