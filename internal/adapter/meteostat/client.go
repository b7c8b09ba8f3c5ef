package meteostat

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/agent-precip-etl/internal/domain"
	"github.com/couchcryptid/agent-precip-etl/internal/observability"
	"github.com/tidwall/gjson"
)

const (
	dateLayout = "2006-01-02"

	// queryAltitude is the elevation in metres sent with every point query.
	queryAltitude = "1"
)

// Client implements domain.ClimateSource using the Meteostat JSON API
// point/monthly endpoint.
type Client struct {
	apiKey  string
	baseURL string
	host    string
	req     *requester
	logger  *slog.Logger
}

// NewClient creates a Meteostat API client. baseURL is the API root, e.g.
// "https://meteostat.p.rapidapi.com".
func NewClient(apiKey, baseURL string, timeout time.Duration, maxRetries int, metrics *observability.Metrics, logger *slog.Logger) *Client {
	host := ""
	if u, err := url.Parse(baseURL); err == nil {
		host = u.Host
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		host:    host,
		req:     newRequester(timeout, maxRetries, metrics, logger),
		logger:  logger,
	}
}

// MonthlyPrecipitation returns the "prcp" value of the first monthly record
// between start and end for the point. A missing record or a null value
// yields nil.
func (c *Client) MonthlyPrecipitation(ctx context.Context, p domain.Point, start, end time.Time) (*float64, error) {
	params := url.Values{
		"lat":   {strconv.FormatFloat(p.Lat, 'f', 4, 64)},
		"lon":   {strconv.FormatFloat(p.Lon, 'f', 4, 64)},
		"alt":   {queryAltitude},
		"start": {start.Format(dateLayout)},
		"end":   {end.Format(dateLayout)},
	}
	header := http.Header{
		"X-Rapidapi-Key":  {c.apiKey},
		"X-Rapidapi-Host": {c.host},
	}

	body, err := c.req.get(ctx, endpointMonthly, c.baseURL+"/point/monthly?"+params.Encode(), header)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("decode monthly response: invalid JSON")
	}

	prcp := gjson.GetBytes(body, "data.0.prcp")
	switch prcp.Type {
	case gjson.Number:
		v := prcp.Float()
		return &v, nil
	case gjson.Null:
		// Absent and explicit null both mean no observation.
		return nil, nil
	default:
		return nil, fmt.Errorf("decode monthly response: prcp is %s", prcp.Type)
	}
}
