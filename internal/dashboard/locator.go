package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/atlastransit/atlas/internal/gateway"
)

// ErrLocationUnsupported is returned when no location capability is available.
var ErrLocationUnsupported = errors.New("geolocation is not supported")

// Locator is the device location capability.
type Locator interface {
	CurrentPosition(ctx context.Context) (gateway.Coordinates, error)
}

// StaticLocator reports a fixed position. Clients that resolve their own
// position send it with the request and the API wraps it in a StaticLocator.
type StaticLocator struct {
	Position gateway.Coordinates
}

// CurrentPosition returns the fixed position.
func (l StaticLocator) CurrentPosition(_ context.Context) (gateway.Coordinates, error) {
	return l.Position, nil
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (gateway.Coordinates, error)

// CurrentPosition calls f.
func (f LocatorFunc) CurrentPosition(ctx context.Context) (gateway.Coordinates, error) {
	return f(ctx)
}

// FormatCoordinates renders a position as the pickup text, four decimals each.
func FormatCoordinates(c gateway.Coordinates) string {
	return fmt.Sprintf("%.4f, %.4f", c.Lat, c.Lng)
}
