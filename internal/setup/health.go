package setup

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/samvad-hq/osrm-kit/pkg/osrm"
)

// probe is snapped to the closest segment of whatever graph is loaded.
var probe = osrm.Coordinate{Lon: 0, Lat: 0}

// CheckHealth reports whether an OSRM server answers at client's base URL.
// Any parsed reply, including a service error code, counts as healthy.
func CheckHealth(ctx context.Context, client *osrm.Client) error {
	_, err := client.Nearest(ctx, probe, 1)
	if err == nil {
		return nil
	}

	var svcErr *osrm.ServiceError
	if errors.As(err, &svcErr) {
		return nil
	}
	var transportErr *osrm.TransportError
	if errors.As(err, &transportErr) && transportErr.StatusCode >= 400 && transportErr.StatusCode < http.StatusInternalServerError {
		// osrm-routed answers 400 with a JSON code for unroutable input.
		return nil
	}
	return fmt.Errorf("osrm server at %s is not healthy: %w", client.BaseURL(), err)
}
