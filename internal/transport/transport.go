package transport

import (
	"context"
	"fmt"

	"github.com/gran-publicador/core/internal/models"
	"github.com/gran-publicador/core/internal/modules/outbound"
)

// Result is what a platform client reports back after a successful delivery.
type Result struct {
	PlatformPostID string
}

// Transport delivers a formatted request to one platform.
type Transport interface {
	Platform() models.Platform
	Deliver(ctx context.Context, req *outbound.Request) (*Result, error)
}

// Registry routes requests to the client registered for their platform.
type Registry struct {
	clients map[models.Platform]Transport
}

func NewRegistry(clients ...Transport) *Registry {
	r := &Registry{clients: make(map[models.Platform]Transport, len(clients))}
	for _, c := range clients {
		r.clients[c.Platform()] = c
	}
	return r
}

// For returns the client for a platform. The error is permanent: retrying a
// post on a platform nobody speaks will never succeed.
func (r *Registry) For(platform models.Platform) (Transport, error) {
	c, ok := r.clients[platform]
	if !ok {
		return nil, fmt.Errorf("no transport registered for platform %q", platform)
	}
	return c, nil
}
