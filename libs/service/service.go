package service

import (
	"context"
	"errors"
	"sync"

	"github.com/smilo-platform/smilo-sync/libs/log"
)

var (
	// ErrAlreadyStarted is returned when somebody tries to start an already
	// running service.
	ErrAlreadyStarted = errors.New("already started")
	// ErrAlreadyStopped is returned when somebody tries to stop an already
	// stopped service.
	ErrAlreadyStopped = errors.New("already stopped")
	// ErrNotStarted is returned when somebody tries to stop a not running
	// service.
	ErrNotStarted = errors.New("not started")
)

// Service defines a component with a start/stop lifecycle.
type Service interface {
	// Start runs the service until Stop is called or ctx is canceled.
	Start(context.Context) error
	Stop() error
	IsRunning() bool
	String() string
	// Wait blocks until the service is stopped.
	Wait()
}

// Implementation is the set of hooks a BaseService drives.
type Implementation interface {
	Service

	OnStart(context.Context) error
	OnStop()
}

type lifecycle uint8

const (
	stateIdle lifecycle = iota
	stateRunning
	stateStopped
)

// BaseService implements the lifecycle bookkeeping of Service and calls into
// the embedding type's OnStart/OnStop hooks:
//
//	type Router struct {
//		service.BaseService
//		...
//	}
//
//	r.BaseService = *service.NewBaseService(logger, "Router", r)
//
// OnStart and OnStop are each called at most once. A service that was stopped
// cannot be started again.
type BaseService struct {
	logger log.Logger
	name   string
	impl   Implementation

	mtx   sync.Mutex
	state lifecycle
	quit  chan struct{}
}

// NewBaseService creates a new BaseService.
func NewBaseService(logger log.Logger, name string, impl Implementation) *BaseService {
	if logger == nil {
		logger = log.NewNopLogger()
	}

	return &BaseService{
		logger: logger,
		name:   name,
		impl:   impl,
		quit:   make(chan struct{}),
	}
}

// Start calls OnStart and, once it succeeds, stops the service when ctx is
// canceled.
func (bs *BaseService) Start(ctx context.Context) error {
	bs.mtx.Lock()
	switch bs.state {
	case stateRunning:
		bs.mtx.Unlock()
		return ErrAlreadyStarted
	case stateStopped:
		bs.mtx.Unlock()
		bs.logger.Error("not starting service; already stopped", "service", bs.name)
		return ErrAlreadyStopped
	}

	bs.logger.Info("starting service", "service", bs.name, "impl", bs.impl.String())
	if err := bs.impl.OnStart(ctx); err != nil {
		bs.mtx.Unlock()
		return err
	}
	bs.state = stateRunning
	bs.mtx.Unlock()

	go func() {
		select {
		case <-bs.quit:
		case <-ctx.Done():
			if err := bs.Stop(); err != nil && !errors.Is(err, ErrAlreadyStopped) {
				bs.logger.Error("failed to stop service", "service", bs.name, "err", err)
			}
		}
	}()

	return nil
}

// Stop calls OnStop and releases everyone blocked in Wait.
func (bs *BaseService) Stop() error {
	bs.mtx.Lock()
	defer bs.mtx.Unlock()

	switch bs.state {
	case stateIdle:
		bs.logger.Error("not stopping service; not started yet", "service", bs.name)
		return ErrNotStarted
	case stateStopped:
		return ErrAlreadyStopped
	}

	bs.logger.Info("stopping service", "service", bs.name, "impl", bs.impl.String())
	bs.state = stateStopped
	bs.impl.OnStop()
	close(bs.quit)

	return nil
}

// IsRunning reports whether the service was started and not yet stopped.
func (bs *BaseService) IsRunning() bool {
	bs.mtx.Lock()
	defer bs.mtx.Unlock()

	return bs.state == stateRunning
}

// Wait blocks until the service is stopped.
func (bs *BaseService) Wait() { <-bs.quit }

// Quit returns a channel closed once the service stops.
func (bs *BaseService) Quit() <-chan struct{} { return bs.quit }

func (bs *BaseService) String() string { return bs.name }
