package workers

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/domain/event"
	"chat-presence/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Supervisor Own a context and a Cancel function
// Run each worker in a goroutine
// Recover panics and restart the worker after a delay
// A worker returning nil is finished and never restarted
// Shutdown properly if parent context is canceled
type Supervisor struct {
	mu                    sync.Mutex
	ctx                   context.Context
	cancel                context.CancelFunc
	wg                    *sync.WaitGroup
	log                   *slog.Logger
	workers               []contract.Worker
	telemetryChan         chan<- event.Event
	waitTimeBeforeRestart time.Duration
}

var _ contract.ISupervisor = (*Supervisor)(nil)

func NewSupervisor(log *slog.Logger, telemetryChan chan<- event.Event, waitTimeBeforeRestart time.Duration) *Supervisor {
	return &Supervisor{
		wg:                    &sync.WaitGroup{},
		log:                   log,
		telemetryChan:         telemetryChan,
		waitTimeBeforeRestart: waitTimeBeforeRestart,
	}
}

// Run starts every added worker and blocks until all of them are done,
// including the ones started later through Start.
//
//	// If the parent (main) cancels, we Cancel.
//	// If WE call s.Stop(), only our children Cancel.
func (s *Supervisor) Run(ctx context.Context) {
	supervisedCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.ctx, s.cancel = supervisedCtx, cancel
	s.mu.Unlock()
	defer cancel()

	for _, worker := range s.workers {
		s.Start(supervisedCtx, worker)
	}
	s.wg.Wait()
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Start runs a worker under supervision.
// A failure in one worker must not stop the supervisor itself.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	workerName := contract.GetWorkerName(worker)

	go func() {
		defer s.wg.Done()

		for {
			if ctx.Err() != nil {
				s.log.Debug(fmt.Sprintf("Stopping : %s", workerName))
				return
			}

			err := func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						s.log.Error("Worker panicked", "name", workerName, "panic", r)
						err = errors.ErrWorkerPanic
					}
				}()
				return worker.Run(ctx)
			}()

			if err == nil {
				// Terminated properly, never restart !
				s.log.Debug(fmt.Sprintf("Worker finished : %s", workerName))
				return
			}

			if ctx.Err() != nil {
				s.log.Debug("Worker stopped (context canceled)", "name", workerName)
				return
			}

			s.log.Warn("Worker crashed, restarting", "name", workerName, "error", err)
			s.restarted(worker, workerName)
			select {
			case <-ctx.Done():
				// Context canceled: priority stop.
				return
			case <-time.After(s.waitTimeBeforeRestart):
			}
		}
	}()
}

// Spawn starts a worker under the context of the running supervisor, so that
// Stop cancels it like the workers added before Run.
func (s *Supervisor) Spawn(worker contract.Worker) error {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return errors.ErrNotRunning
	}
	s.Start(ctx, worker)
	return nil
}

// connectionWorker is a worker dedicated to one connection.
type connectionWorker interface {
	ConnectionID() domain.ConnectionID
}

func (s *Supervisor) restarted(worker contract.Worker, workerName string) {
	if s.telemetryChan == nil {
		return
	}
	payload := event.WorkerRestartedAfterPanic{WorkerName: workerName}
	if cw, ok := worker.(connectionWorker); ok {
		payload.ConnectionID = cw.ConnectionID()
	}
	select {
	case s.telemetryChan <- event.New(event.RestartedAfterPanicType, payload):
	default:
		s.log.Debug("Observability telemetry event lost")
	}
}

// Stop Cancel all goroutines listening channel for Ctx.Done
// Supervisor will wait for all goroutines to finish
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}
