package tools

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// DefaultRegion is used when no region is given
const DefaultRegion = "asia"

// Regions are the world time regions the upstream API serves
var Regions = []string{"africa", "america", "antarctica", "arctic", "asia", "atlantic", "europe", "pacific"}

// Zone is a time zone entry
type Zone struct {
	Name       string `json:"name"`
	TimezoneID string `json:"timezone_id"`
	Timezone   string `json:"timezone"`
	UTC        string `json:"utc"`
}

type zoneResult struct {
	TZ []Zone `json:"tz"`
}

// TimezoneClient fetches time zones by region
type TimezoneClient struct {
	c *client
}

// NewTimezoneClient creates a world time client. It fails with
// ErrMissingAPIKey when no key is configured.
func NewTimezoneClient(cfg Config) (*TimezoneClient, error) {
	c, err := newClient("timezone", DefaultTimezoneURL, cfg)
	if err != nil {
		return nil, err
	}
	return &TimezoneClient{c: c}, nil
}

// Zones returns the time zones of a region
func (t *TimezoneClient) Zones(ctx context.Context, region string) ([]Zone, error) {
	if region == "" {
		region = DefaultRegion
	}
	if !slices.Contains(Regions, region) {
		return nil, fmt.Errorf("%w: region %q, valid regions: %s", ErrInvalidChoice, region, strings.Join(Regions, ", "))
	}

	var res zoneResult
	// The upstream names the region parameter "c"
	if err := t.c.get(ctx, url.Values{"c": {region}}, &res); err != nil {
		return nil, err
	}
	if res.TZ == nil {
		return nil, ErrUnexpectedFormat
	}
	return res.TZ, nil
}
