// Package timeline reads Tez entities from the YARN Timeline Server and the
// Resource Manager and converts them into records.
package timeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"tezui.dashboard/internal/core/circuitbreaker"
	"tezui.dashboard/internal/core/domain"
	"tezui.dashboard/internal/core/logger"
	"tezui.dashboard/internal/core/ports"
	"tezui.dashboard/internal/core/record"
)

var ErrUnsupportedFilter = errors.New("filter not supported by the timeline server")

// filterNames maps record attributes to timeline primary filters.
var filterNames = map[string]string{
	"dagID":         typeDag,
	"vertexID":      typeVertex,
	"applicationId": "applicationId",
	"user":          "user",
	"dagName":       "dagName",
	"status":        "status",
}

type Options struct {
	TimelineURL string
	RMURL       string
	Timeout     time.Duration
	// RequestsPerSecond limits calls to both servers. Zero disables it.
	RequestsPerSecond float64
	// Transport defaults to an instrumented http.DefaultTransport.
	Transport http.RoundTripper
}

type Client struct {
	timelineURL *url.URL
	rmURL       *url.URL
	http        *http.Client
	breaker     *circuitbreaker.CircuitBreaker
	limiter     *rate.Limiter
}

var _ ports.RecordFetcher = (*Client)(nil)

func New(opts Options) (*Client, error) {
	tl, err := url.Parse(strings.TrimSuffix(opts.TimelineURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid timeline url: %w", err)
	}
	rm := tl
	if opts.RMURL != "" {
		if rm, err = url.Parse(strings.TrimSuffix(opts.RMURL, "/")); err != nil {
			return nil, fmt.Errorf("invalid resource manager url: %w", err)
		}
	}
	transport := opts.Transport
	if transport == nil {
		transport = otelhttp.NewTransport(http.DefaultTransport)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), max(1, int(opts.RequestsPerSecond)))
	}
	return &Client{
		timelineURL: tl,
		rmURL:       rm,
		http:        &http.Client{Transport: transport, Timeout: timeout},
		breaker:     circuitbreaker.New("timeline"),
		limiter:     limiter,
	}, nil
}

// Fetch loads one record and the records side-loaded with it. Records the
// timeline has no entity for are fetched through the entity owning them.
func (c *Client) Fetch(ctx context.Context, t domain.EntityType, id string) (*record.Document, error) {
	switch t {
	case domain.EntityTypeDag, domain.EntityTypeVertex, domain.EntityTypeTask, domain.EntityTypeTezApp:
		var e timelineEntity
		if err := c.get(ctx, c.timelineURL, "/ws/v1/timeline/"+t.TimelineName()+"/"+url.PathEscape(id), nil, &e); err != nil {
			return nil, err
		}
		if e.Entity == "" {
			return nil, fmt.Errorf("%w: %s %s", ports.ErrNotFound, t, id)
		}
		return convertEntity(&e)

	case domain.EntityTypeAppDetail:
		var resp rmAppResponse
		if err := c.get(ctx, c.rmURL, "/ws/v1/cluster/apps/"+url.PathEscape(id), nil, &resp); err != nil {
			return nil, err
		}
		if resp.App == nil {
			return nil, fmt.Errorf("%w: %s %s", ports.ErrNotFound, t, id)
		}
		return &record.Document{Data: []*record.Record{convertAppDetail(resp.App)}}, nil
	}

	ownerType, ownerID, ok := ownerOf(t, id)
	if !ok {
		return nil, fmt.Errorf("%w: cannot locate %s %s", ports.ErrNotFound, t, id)
	}
	doc, err := c.Fetch(ctx, ownerType, ownerID)
	if err != nil {
		return nil, err
	}
	return pick(doc, record.Key{Type: t, ID: id})
}

// ownerOf returns the entity whose timeline record carries a derived record.
func ownerOf(t domain.EntityType, id string) (domain.EntityType, string, bool) {
	switch t {
	case domain.EntityTypeEdge:
		dagID, _, ok := strings.Cut(id, "_edge_")
		return domain.EntityTypeDag, dagID, ok
	case domain.EntityTypeKVDatum:
		appID, _, ok := strings.Cut(id, "/")
		return domain.EntityTypeTezApp, appID, ok
	case domain.EntityTypeCounterGroup, domain.EntityTypeCounter:
		ownerID, _, ok := strings.Cut(id, "/")
		if !ok {
			return "", "", false
		}
		tid, err := domain.ParseTezID(ownerID)
		if err != nil {
			return "", "", false
		}
		ownerType := domain.EntityType(tid.Kind)
		if !domain.IsOwnerType(ownerType) {
			return "", "", false
		}
		return ownerType, ownerID, true
	}
	return "", "", false
}

// pick makes key the primary record of doc.
func pick(doc *record.Document, key record.Key) (*record.Document, error) {
	all := slices.Concat(doc.Data, doc.Included)
	i := slices.IndexFunc(all, func(r *record.Record) bool { return r.Key() == key })
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ports.ErrNotFound, key)
	}
	return &record.Document{Data: []*record.Record{all[i]}, Included: slices.Delete(all, i, i+1)}, nil
}

// Query lists entities of type t. The first filter, by name, becomes the
// timeline primary filter and the rest secondary filters.
func (c *Client) Query(ctx context.Context, t domain.EntityType, filter map[string]string) (*record.Document, error) {
	name := t.TimelineName()
	if name == "" {
		return nil, fmt.Errorf("%w: %s cannot be listed", ErrUnsupportedFilter, t)
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		if _, ok := filterNames[k]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFilter, k)
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)

	q := url.Values{}
	var secondary []string
	for i, k := range keys {
		pair := filterNames[k] + ":" + filter[k]
		if i == 0 {
			q.Set("primaryFilter", pair)
		} else {
			secondary = append(secondary, pair)
		}
	}
	if len(secondary) > 0 {
		q.Set("secondaryFilter", strings.Join(secondary, ","))
	}
	return c.list(ctx, "/ws/v1/timeline/"+name, q)
}

// FetchLink follows a relationship link such as DagsLink.
func (c *Client) FetchLink(ctx context.Context, link string) (*record.Document, error) {
	u, err := url.Parse(link)
	if err != nil {
		return nil, fmt.Errorf("invalid link %q: %w", link, err)
	}
	return c.list(ctx, u.Path, u.Query())
}

func (c *Client) list(ctx context.Context, path string, q url.Values) (*record.Document, error) {
	var resp timelineEntities
	if err := c.get(ctx, c.timelineURL, path, q, &resp); err != nil {
		return nil, err
	}
	out := &record.Document{}
	for i := range resp.Entities {
		doc, err := convertEntity(&resp.Entities[i])
		if err != nil {
			logger.WarnContext(ctx, "Skipping timeline entity", "entity", resp.Entities[i].Entity, "error", err)
			continue
		}
		out.Data = append(out.Data, doc.Data...)
		out.Included = append(out.Included, doc.Included...)
	}
	return out, nil
}

// Ping checks that the timeline server answers.
func (c *Client) Ping(ctx context.Context) error {
	var about map[string]any
	return c.get(ctx, c.timelineURL, "/ws/v1/timeline", nil, &about)
}

func (c *Client) get(ctx context.Context, base *url.URL, path string, q url.Values, out any) error {
	u := *base
	u.Path = base.Path + path
	u.RawPath = ""
	u.RawQuery = q.Encode()

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	// A missing entity is an answer, not a backend failure.
	var notFound bool
	err := c.breaker.Execute(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		start := time.Now()
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		logger.DebugContext(ctx, "Backend request", "url", u.String(), "status", resp.StatusCode, "latency", time.Since(start))

		if resp.StatusCode == http.StatusNotFound {
			notFound = true
			return nil
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("GET %s: %s: %s", u.Path, resp.Status, strings.TrimSpace(string(body)))
		}
		dec := json.NewDecoder(resp.Body)
		dec.UseNumber()
		if err := dec.Decode(out); err != nil {
			return fmt.Errorf("decode %s: %w", u.Path, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if notFound {
		return fmt.Errorf("%w: %s", ports.ErrNotFound, u.Path)
	}
	return nil
}
