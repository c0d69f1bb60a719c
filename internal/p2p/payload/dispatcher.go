package payload

import (
	"context"
	"fmt"

	"github.com/smilo-platform/smilo-sync/libs/log"
	"github.com/smilo-platform/smilo-sync/types"
)

// Dispatcher maps every payload type to exactly one handler.
type Dispatcher struct {
	logger   log.Logger
	metrics  *Metrics
	handlers map[types.PayloadType]HandlerFunc
}

// NewDispatcher builds a dispatcher from handlers. It fails unless every
// type returned by types.PayloadTypes is supported by exactly one handler.
func NewDispatcher(logger log.Logger, metrics *Metrics, handlers ...Handler) (*Dispatcher, error) {
	if metrics == nil {
		metrics = NopMetrics()
	}

	d := &Dispatcher{
		logger:   logger,
		metrics:  metrics,
		handlers: make(map[types.PayloadType]HandlerFunc, len(handlers)),
	}

	for _, h := range handlers {
		pt := h.Supports()
		if _, ok := d.handlers[pt]; ok {
			return nil, fmt.Errorf("%w for %s", ErrDuplicateHandler, pt)
		}
		d.handlers[pt] = h.HandlePeerPayload
	}

	for _, pt := range types.PayloadTypes() {
		if _, ok := d.handlers[pt]; !ok {
			return nil, fmt.Errorf("%w for %s", ErrHandlerMissing, pt)
		}
	}

	return d, nil
}

// Dispatch runs the handler registered for msg.Type. A message without a
// handler is rejected with UnroutableTypeError; the caller logs it and moves
// on to the next message.
func (d *Dispatcher) Dispatch(ctx context.Context, msg types.Message, sender *types.Peer) error {
	handler, ok := d.handlers[msg.Type]
	if !ok {
		d.metrics.MessagesDropped.With("payload_type", types.PayloadTypeUnknown.String(), "reason", "unroutable").Add(1)
		return UnroutableTypeError{Tag: msg.Tag()}
	}

	d.metrics.MessagesReceived.With("payload_type", msg.Type.String()).Add(1)

	if err := handler(ctx, msg.Parts, sender); err != nil {
		d.metrics.MessagesDropped.With("payload_type", msg.Type.String(), "reason", "handler_error").Add(1)
		return fmt.Errorf("handling %s from %s: %w", msg.Type, sender, err)
	}

	return nil
}
