// Package marketo provides the resource clients for activities, email
// assets, static lists, custom objects and leads. Every outbound call is
// preceded by the configured throttle delay.
package marketo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/marketo-client/pkg/cache"
	"github.com/Sternrassler/marketo-client/pkg/client"
	"github.com/Sternrassler/marketo-client/pkg/ratelimit"
)

var (
	// ErrNotFound is returned when a lookup by name or ID matches nothing.
	ErrNotFound = errors.New("not found")

	// ErrPartitionNotFound is returned when a lead partition ID is unknown.
	ErrPartitionNotFound = errors.New("no such partition")

	// ErrNotSearchable is returned when a query filters on a field the
	// object does not index.
	ErrNotSearchable = errors.New("field not searchable")
)

// DefaultPartitionID is the lead partition used when none is configured.
const DefaultPartitionID = 1

// Transport performs REST calls against the Marketo instance.
// *client.Client implements it.
type Transport interface {
	Get(ctx context.Context, path string, query url.Values) (*client.Response, error)
	Post(ctx context.Context, path string, query url.Values) (*client.Response, error)
	PostJSON(ctx context.Context, path string, body any, query url.Values) (*client.Response, error)
	Delete(ctx context.Context, path string, query url.Values) (*client.Response, error)
}

// Options configures the resource clients.
type Options struct {
	// Delay is waited before every outbound call. Zero disables it.
	Delay time.Duration

	// PartitionID is the lead partition new leads are created in.
	PartitionID int

	// Cache holds custom object descriptions. Nil creates an in-memory cache
	// owned by this client.
	Cache *cache.DescriptionCache
}

// Client groups the resource services over one transport.
type Client struct {
	Activities    *ActivityService
	Emails        *EmailService
	StaticLists   *StaticListService
	CustomObjects *CustomObjectService
	Leads         *LeadService

	// PartitionID is the configured lead partition.
	PartitionID int
}

// New creates the resource clients.
func New(transport Transport, opts Options) *Client {
	if transport == nil {
		panic("transport cannot be nil")
	}
	if opts.PartitionID <= 0 {
		opts.PartitionID = DefaultPartitionID
	}
	if opts.Cache == nil {
		opts.Cache = cache.New(nil)
	}

	base := service{
		transport: transport,
		throttle:  ratelimit.Throttle{Interval: opts.Delay},
	}

	return &Client{
		Activities:    &ActivityService{service: base.named("activities")},
		Emails:        &EmailService{service: base.named("emails")},
		StaticLists:   &StaticListService{service: base.named("static-lists")},
		CustomObjects: &CustomObjectService{service: base.named("custom-objects"), cache: opts.Cache},
		Leads:         &LeadService{service: base.named("leads")},
		PartitionID:   opts.PartitionID,
	}
}

// service is the shared state of every resource service.
type service struct {
	transport Transport
	throttle  ratelimit.Throttle
	logger    zerolog.Logger
}

func (s service) named(name string) service {
	s.logger = log.With().Str("component", "marketo").Str("service", name).Logger()
	return s
}

func (s *service) get(ctx context.Context, path string, query url.Values) (*client.Response, error) {
	if err := s.throttle.Wait(ctx); err != nil {
		return nil, err
	}
	return s.transport.Get(ctx, path, query)
}

func (s *service) post(ctx context.Context, path string, query url.Values) (*client.Response, error) {
	if err := s.throttle.Wait(ctx); err != nil {
		return nil, err
	}
	return s.transport.Post(ctx, path, query)
}

func (s *service) postJSON(ctx context.Context, path string, body any, query url.Values) (*client.Response, error) {
	if err := s.throttle.Wait(ctx); err != nil {
		return nil, err
	}
	return s.transport.PostJSON(ctx, path, body, query)
}

func (s *service) delete(ctx context.Context, path string, query url.Values) (*client.Response, error) {
	if err := s.throttle.Wait(ctx); err != nil {
		return nil, err
	}
	return s.transport.Delete(ctx, path, query)
}

// results decodes the result array of resp.
func results[T any](resp *client.Response) ([]T, error) {
	records := []T{}
	if err := resp.DecodeResult(&records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

// first decodes the first element of the result array, or ErrNotFound.
func first[T any](resp *client.Response) (*T, error) {
	records, err := results[T](resp)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return &records[0], nil
}

// pathf substitutes the escaped segment into a %s path template.
func pathf(format string, segment any) string {
	return fmt.Sprintf(format, url.PathEscape(fmt.Sprint(segment)))
}
