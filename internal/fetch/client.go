package fetch

import (
	"context"
	"fmt"
	"time"

	"rosteretl/internal/components/telemetry"
	"rosteretl/internal/table"
	"rosteretl/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("internal/fetch")

const maxErrorBody = 512

type Options struct {
	Timeout time.Duration
	// Output receives a full dump of every request/response while debug
	// logging is enabled, it can be nil.
	Output    restyutil.InstrumentOutput
	Telemetry telemetry.API
}

// Client retrieves JSON collections over HTTP.
type Client struct {
	http *resty.Client
}

func NewClient(opts Options) *Client {
	client := resty.New()
	client.SetHeader("accept", "application/json")
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}

	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	restyutil.InstrumentClient(client, otel.Tracer("internal/fetch/http"), opts.Output)
	telemetry.InstrumentResty(client, telemetry.NewScopedAPI("fetch", tel))

	return &Client{http: client}
}

// FetchRaw performs a GET on `url` and returns the body of a 2xx response.
func (c *Client) FetchRaw(ctx context.Context, url string) ([]byte, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		// a cancelled run is not the endpoint's fault
		if ctx.Err() != nil {
			return nil, fmt.Errorf("GET %s: %w", url, ctx.Err())
		}
		return nil, &ConnectionError{URL: url, Err: err}
	}
	if !res.IsSuccess() {
		body := res.String()
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &StatusError{
			URL:        url,
			StatusCode: res.StatusCode(),
			Status:     res.Status(),
			Body:       body,
		}
	}
	return res.Body(), nil
}

// FetchTable retrieves a JSON array of objects and materializes it as a table.
// An empty array is returned as an empty table, not an error.
func (c *Client) FetchTable(ctx context.Context, url string) (table.Table, error) {
	ctx, span := tracer.Start(ctx, "FetchTable")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	body, err := c.FetchRaw(ctx, url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return table.Table{}, err
	}

	t, err := table.FromJSON(body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode body")
		return table.Table{}, fmt.Errorf("decode %s: %w", url, err)
	}
	span.SetAttributes(attribute.Int("rows", t.Len()))
	return t, nil
}

// FetchPair fetches both collections concurrently, the first failure cancels
// the other request and is returned.
func (c *Client) FetchPair(ctx context.Context, rosterURL, workURL string) (roster, work table.Table, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		roster, err = c.FetchTable(gctx, rosterURL)
		if err != nil {
			return fmt.Errorf("roster: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		work, err = c.FetchTable(gctx, workURL)
		if err != nil {
			return fmt.Errorf("work: %w", err)
		}
		return nil
	})
	err = g.Wait()
	if err != nil {
		return table.Table{}, table.Table{}, err
	}
	return roster, work, nil
}
