package inventory

import (
	"context"
	"errors"
)

// ErrInstanceNotFound is returned when no instance owns the queried private IP.
var ErrInstanceNotFound = errors.New("instance not found")

// Resolver maps a private IP address to a compute instance identifier.
type Resolver interface {
	InstanceID(ctx context.Context, ip string) (string, error)
}
