// Package bus provides event bus implementations for the evaluation
// pipeline. The channel bus runs in-process for single-node deployments;
// the NATS bus distributes events across nodes.
package bus

import (
	"fmt"

	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/domain"
)

// New creates an event bus based on the configuration.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel", "":
		return NewChannelBus(cfg), nil
	case "nats":
		return NewNATSBus(cfg)
	default:
		return nil, fmt.Errorf("unsupported bus type: %s", cfg.Type)
	}
}
