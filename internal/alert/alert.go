package alert

import (
	"context"

	"go.uber.org/zap"

	"github.com/hushwa3/WeatherAppSIA/internal/eventbus"
	"github.com/hushwa3/WeatherAppSIA/internal/observability"
)

// Topic is the event bus topic user alerts are published on. UI subscribers
// render these as blocking notifications.
const Topic = "user-alert"

// Notifier surfaces a failure to the end user. Notify is called before the
// error is returned up the call chain, so the user sees the alert even when
// an intermediate caller swallows the error.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// BusNotifier publishes alerts on the event bus and logs them.
type BusNotifier struct {
	bus    eventbus.Publisher
	logger *zap.Logger
}

// NewBusNotifier creates a Notifier backed by bus.
func NewBusNotifier(bus eventbus.Publisher, logger *zap.Logger) *BusNotifier {
	return &BusNotifier{bus: bus, logger: logger}
}

// Notify implements Notifier.
func (n *BusNotifier) Notify(ctx context.Context, message string) {
	observability.AlertsShownTotal.Inc()
	if n.logger != nil {
		n.logger.Warn("user alert", zap.String("message", message))
	}
	n.bus.Publish(Topic, message)
}

// NopNotifier discards alerts. Used in tests.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(ctx context.Context, message string) {}
