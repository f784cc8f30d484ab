package payment

import (
	"fmt"

	"github.com/murichu/rent-sub002/internal/domain/payments"
)

// Registry holds the configured mobile money gateways keyed by channel
type Registry struct {
	gateways map[payments.GatewayChannel]payments.MobileMoneyGateway
}

// NewRegistry creates a registry over the given gateways. A gateway
// registered twice for the same channel is an error.
func NewRegistry(gateways ...payments.MobileMoneyGateway) (*Registry, error) {
	r := &Registry{
		gateways: make(map[payments.GatewayChannel]payments.MobileMoneyGateway, len(gateways)),
	}
	for _, gw := range gateways {
		channel := gw.Channel()
		if _, exists := r.gateways[channel]; exists {
			return nil, fmt.Errorf("gateway registry: duplicate channel %s", channel)
		}
		r.gateways[channel] = gw
	}
	return r, nil
}

// GetGateway returns the gateway serving the specified channel
func (r *Registry) GetGateway(channel payments.GatewayChannel) (payments.MobileMoneyGateway, error) {
	gw, ok := r.gateways[channel]
	if !ok {
		return nil, fmt.Errorf("%w: %s", payments.ErrGatewayNotEnabled, channel)
	}
	return gw, nil
}

// ListGateways returns all registered gateways
func (r *Registry) ListGateways() []payments.MobileMoneyGateway {
	out := make([]payments.MobileMoneyGateway, 0, len(r.gateways))
	for _, gw := range r.gateways {
		out = append(out, gw)
	}
	return out
}

// IsEnabled returns true if the channel has a configured gateway
func (r *Registry) IsEnabled(channel payments.GatewayChannel) bool {
	_, ok := r.gateways[channel]
	return ok
}

// Ensure Registry implements GatewayRegistry interface
var _ payments.GatewayRegistry = (*Registry)(nil)
