// Package stream publishes batch progress over a socket.io connection so
// observers can follow long sweeps without polling. Publishing is strictly
// best-effort: a broken stream never affects the batch itself.
package stream

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/biosweep/internal/ctxlog"
	"github.com/vk/biosweep/internal/dispatch"
)

// OutcomeEvent is the event name emitted for every recorded run outcome.
const OutcomeEvent = "run_outcome"

// Publisher emits run outcomes to a socket.io endpoint.
type Publisher struct {
	io        *socket.Socket
	manager   *socket.Manager
	namespace string
}

// Dial connects to the socket.io endpoint and waits for the connection to
// establish within the given timeout.
func Dial(ctx context.Context, rawURL, namespace string, timeout time.Duration) (*Publisher, error) {
	logger := ctxlog.FromContext(ctx).With("stream", rawURL, "namespace", namespace)

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stream URL: %w", err)
	}
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	connected := make(chan error, 1)
	io.On(types.EventName("connect"), func(...any) {
		logger.Info("Progress stream connected.", "sid", io.Id())
		connected <- nil
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		if len(errs) > 0 {
			if err, ok := errs[0].(error); ok {
				connected <- err
				return
			}
		}
		connected <- fmt.Errorf("stream connection failed")
	})

	io.Connect()

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("failed to connect progress stream: %w", err)
		}
	case <-dialCtx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("timed out connecting progress stream")
	}

	return &Publisher{io: io, manager: manager, namespace: namespace}, nil
}

// Publish emits one outcome event. Errors are swallowed by the underlying
// client; the stream never gates batch progress.
func (p *Publisher) Publish(outcome dispatch.Outcome) {
	payload := map[string]any{
		"variation_id": outcome.VariationID,
		"status":       string(outcome.Status),
	}
	if outcome.Error != "" {
		payload["error"] = outcome.Error
	}
	p.io.Emit(OutcomeEvent, payload)
}

// Close disconnects the stream.
func (p *Publisher) Close() {
	p.io.Disconnect()
}
