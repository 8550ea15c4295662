package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Job struct {
	Message Message
	Attempt int
}

type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Job, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(Job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				return
			}

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker processing notification", "worker_id", w.ID, "message_id", job.Message.ID)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type DispatcherConfig struct {
	MaxWorkers   int
	QueueSize    int
	MaxAttempts  int
	SendTimeout  time.Duration
	RetryBackoff time.Duration
}

// Dispatcher delivers messages in the background through a fixed worker pool.
type Dispatcher struct {
	sender Sender
	cfg    DispatcherConfig
	logger *slog.Logger

	jobQueue   chan Job
	workerPool chan chan Job
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once

	sent *prometheus.CounterVec
}

func NewDispatcher(sender Sender, cfg DispatcherConfig, reg prometheus.Registerer, logger *slog.Logger) (*Dispatcher, error) {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}

	sent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "venue_notifications_total",
		Help: "Notifications processed by the background dispatcher, by kind and result.",
	}, []string{"kind", "result"})
	if reg != nil {
		if err := reg.Register(sent); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		sender:     sender,
		cfg:        cfg,
		logger:     logger,
		jobQueue:   make(chan Job, cfg.QueueSize),
		workerPool: make(chan chan Job, cfg.MaxWorkers),
		ctx:        ctx,
		cancel:     cancel,
		sent:       sent,
	}
	d.start()
	return d, nil
}

func (d *Dispatcher) start() {
	d.once.Do(func() {
		for i := 0; i < d.cfg.MaxWorkers; i++ {
			worker := NewWorker(i, d.workerPool, d.logger)
			worker.Start(d.ctx, &d.wg, d.process)
		}

		d.wg.Add(1)
		go d.dispatch()

		d.logger.Info("notification dispatcher started",
			"max_workers", d.cfg.MaxWorkers,
			"queue_size", cap(d.jobQueue))
	})
}

func (d *Dispatcher) dispatch() {
	defer d.wg.Done()

	for {
		select {
		case job := <-d.jobQueue:
			select {
			case jobChannel := <-d.workerPool:
				select {
				case jobChannel <- job:
				case <-d.ctx.Done():
					return
				}
			case <-d.ctx.Done():
				return
			}
		case <-d.ctx.Done():
			d.logger.Info("notification dispatcher shutting down")
			return
		}
	}
}

// Enqueue schedules msg for delivery. It never blocks; a full queue is reported.
func (d *Dispatcher) Enqueue(msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if d.ctx.Err() != nil {
		return ErrDispatcherClosed
	}

	select {
	case d.jobQueue <- Job{Message: msg, Attempt: 1}:
		return nil
	default:
		d.sent.WithLabelValues(string(msg.Kind), "dropped").Inc()
		d.logger.Warn("notification queue full, dropping message",
			"message_id", msg.ID,
			"kind", msg.Kind,
			"queue_capacity", cap(d.jobQueue))
		return ErrQueueFull
	}
}

func (d *Dispatcher) process(job Job) {
	for attempt := job.Attempt; attempt <= d.cfg.MaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(d.ctx, d.cfg.SendTimeout)
		providerID, err := d.sender.Send(ctx, job.Message)
		cancel()

		if err == nil {
			d.sent.WithLabelValues(string(job.Message.Kind), "sent").Inc()
			d.logger.Info("notification delivered",
				"message_id", job.Message.ID,
				"provider_id", providerID,
				"kind", job.Message.Kind,
				"attempt", attempt)
			return
		}

		d.logger.Warn("notification delivery failed",
			"message_id", job.Message.ID,
			"kind", job.Message.Kind,
			"attempt", attempt,
			"error", err)

		if attempt == d.cfg.MaxAttempts {
			break
		}
		select {
		case <-time.After(d.cfg.RetryBackoff * time.Duration(attempt)):
		case <-d.ctx.Done():
			d.sent.WithLabelValues(string(job.Message.Kind), "cancelled").Inc()
			return
		}
	}

	d.sent.WithLabelValues(string(job.Message.Kind), "failed").Inc()
	d.logger.Error("notification abandoned", "message_id", job.Message.ID, "kind", job.Message.Kind)
}

func (d *Dispatcher) Shutdown() {
	d.logger.Info("shutting down notification dispatcher")
	d.cancel()
	d.wg.Wait()
	d.logger.Info("notification dispatcher shutdown complete")
}
