package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	applogger "FinCast/pkg/logger"
)

var ErrBufferFull = errors.New("run event buffer full")

const (
	minBackoff = 50 * time.Millisecond
	maxBackoff = 2 * time.Second
)

// RunEventPipeline sits between the forecast pipeline and the event
// publisher. It validates events, buffers them and flushes in batches from a
// background goroutine, backing off and requeueing while downstream fails.
type RunEventPipeline struct {
	pub       domrepo.EventPublisher
	metrics   domrepo.Metrics
	log       *applogger.Logger
	bufSize   int
	batchSize int
	interval  time.Duration
	bufCh     chan *models.RunEvent
	stopCh    chan struct{}
	doneCh    chan struct{}
	started   bool
	mu        sync.Mutex
}

type PipelineOption func(*RunEventPipeline)

// WithBufferSize sets how many events may wait for delivery.
func WithBufferSize(n int) PipelineOption {
	return func(p *RunEventPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithBatch sets the flush batch size and the maximum time an event waits.
func WithBatch(size int, interval time.Duration) PipelineOption {
	return func(p *RunEventPipeline) {
		if size > 0 {
			p.batchSize = size
		}
		if interval > 0 {
			p.interval = interval
		}
	}
}

func WithLogger(l *applogger.Logger) PipelineOption {
	return func(p *RunEventPipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// NewRunEventPipeline creates a new pipeline.
func NewRunEventPipeline(pub domrepo.EventPublisher, metrics domrepo.Metrics, opts ...PipelineOption) *RunEventPipeline {
	p := &RunEventPipeline{
		pub:       pub,
		metrics:   metrics,
		log:       applogger.NewNop(),
		bufSize:   1000,
		batchSize: 50,
		interval:  time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.RunEvent, p.bufSize)
	return p
}

// Start launches background flushing of buffered events.
func (p *RunEventPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	go p.loop(ctx, stopCh, doneCh)
}

// Stop flushes what is buffered and stops the background goroutine.
func (p *RunEventPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)
	<-doneCh
}

// Process validates e and queues it for delivery. It never blocks on the
// downstream publisher.
func (p *RunEventPipeline) Process(_ context.Context, e *models.RunEvent) error {
	if err := validateEvent(e); err != nil {
		p.metrics.RecordError("event_validate")
		return err
	}
	select {
	case p.bufCh <- e:
		return nil
	default:
		p.metrics.RecordError("event_buffer_full")
		return ErrBufferFull
	}
}

// Pending returns the number of buffered events.
func (p *RunEventPipeline) Pending() int { return len(p.bufCh) }

func (p *RunEventPipeline) loop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	backoff := minBackoff
	batch := make([]*models.RunEvent, 0, p.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := p.pub.PublishBatch(ctx, batch); err != nil {
			p.metrics.RecordError("event_flush")
			p.log.Warn("run event flush failed",
				applogger.Int("events", len(batch)),
				applogger.Duration("backoff_ms", backoff),
				applogger.Error(err),
			)
			p.requeue(batch)
			batch = batch[:0]
			select {
			case <-time.After(backoff):
			case <-stopCh:
			}
			// exponential backoff with cap
			if backoff < maxBackoff {
				backoff *= 2
			}
			return
		}
		backoff = minBackoff
		batch = batch[:0]
	}

	for {
		select {
		case <-stopCh:
			p.drain(ctx, batch)
			return
		case <-ctx.Done():
			return
		case e := <-p.bufCh:
			batch = append(batch, e)
			if len(batch) >= p.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// requeue puts a failed batch back if there is room; the rest is dropped.
func (p *RunEventPipeline) requeue(batch []*models.RunEvent) {
	for _, e := range batch {
		select {
		case p.bufCh <- e:
		default:
			p.metrics.RecordError("event_buffer_drop")
		}
	}
}

// drain makes one last delivery attempt for everything still buffered.
func (p *RunEventPipeline) drain(ctx context.Context, batch []*models.RunEvent) {
	for {
		select {
		case e := <-p.bufCh:
			batch = append(batch, e)
			continue
		default:
		}
		break
	}
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.pub.PublishBatch(ctx, batch); err != nil {
		p.metrics.RecordError("event_flush")
		p.log.Error("run events lost on shutdown", applogger.Int("events", len(batch)), applogger.Error(err))
	}
}

func validateEvent(e *models.RunEvent) error {
	if e == nil {
		return fmt.Errorf("run event nil")
	}
	if e.ID == "" {
		return fmt.Errorf("run event id empty")
	}
	if e.Outcome == "" {
		return fmt.Errorf("run event outcome empty")
	}
	return nil
}
