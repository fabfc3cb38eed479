// Package session holds AWS credentials in memory and hands out cached service clients.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/corral/pkg/resource"
)

// ErrTornDown is returned by credential retrieval after Teardown.
var ErrTornDown = errors.New("session torn down")

// Credentials are the static keys a session signs requests with.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// CredentialError reports missing credentials at construction time.
type CredentialError struct {
	Field string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("aws credentials are required: %s is empty", e.Field)
}

// Options configures a Provider.
type Options struct {
	DefaultRegion  string
	MaxAttempts    int
	RequestTimeout time.Duration
	Endpoint       string
	constructors   map[Service]Constructor
}

// Option mutates Options.
type Option func(*Options)

// WithDefaultRegion sets the region used for discovery and global services.
func WithDefaultRegion(region string) Option {
	return func(o *Options) { o.DefaultRegion = region }
}

// WithMaxAttempts sets the SDK standard retryer's attempt budget.
func WithMaxAttempts(n int) Option {
	return func(o *Options) { o.MaxAttempts = n }
}

// WithRequestTimeout bounds each HTTP round trip made by the SDK.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Options) { o.RequestTimeout = d }
}

// WithEndpoint points every client at a custom base endpoint.
func WithEndpoint(url string) Option {
	return func(o *Options) { o.Endpoint = url }
}

// WithConstructor overrides how clients of one service are built.
func WithConstructor(svc Service, fn Constructor) Option {
	return func(o *Options) { o.constructors[svc] = fn }
}

type clientKey struct {
	service Service
	region  string
}

// Provider owns credentials and the (service, region) client cache.
// It is safe for concurrent use. Call Teardown when done with it.
type Provider struct {
	mu           sync.RWMutex
	accessKey    []byte
	secretKey    []byte
	sessionToken []byte
	closed       bool

	cfg           aws.Config
	defaultRegion string
	constructors  map[Service]Constructor
	clients       map[clientKey]any
}

// New validates credentials and prepares a Provider. No network calls are made.
func New(ctx context.Context, creds Credentials, opts ...Option) (*Provider, error) {
	if creds.AccessKeyID == "" {
		return nil, &CredentialError{Field: "access key id"}
	}
	if creds.SecretAccessKey == "" {
		return nil, &CredentialError{Field: "secret access key"}
	}

	o := Options{
		DefaultRegion: "us-east-1",
		MaxAttempts:   3,
		constructors:  defaultConstructors(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	p := &Provider{
		accessKey:     []byte(creds.AccessKeyID),
		secretKey:     []byte(creds.SecretAccessKey),
		sessionToken:  []byte(creds.SessionToken),
		defaultRegion: o.DefaultRegion,
		constructors:  o.constructors,
		clients:       make(map[clientKey]any),
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(o.DefaultRegion),
		config.WithCredentialsProvider(aws.CredentialsProviderFunc(p.retrieve)),
	}
	if o.MaxAttempts > 0 {
		loadOpts = append(loadOpts, config.WithRetryMaxAttempts(o.MaxAttempts))
	}
	if o.RequestTimeout > 0 {
		loadOpts = append(loadOpts, config.WithHTTPClient(awshttp.NewBuildableClient().WithTimeout(o.RequestTimeout)))
	}
	if o.Endpoint != "" {
		loadOpts = append(loadOpts, config.WithBaseEndpoint(o.Endpoint))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		p.Teardown()
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	p.cfg = cfg

	log.Debug().
		Str("default_region", o.DefaultRegion).
		Int("max_attempts", o.MaxAttempts).
		Msg("aws session created")

	return p, nil
}

func (p *Provider) retrieve(ctx context.Context) (aws.Credentials, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return aws.Credentials{}, ErrTornDown
	}
	static := credentials.NewStaticCredentialsProvider(string(p.accessKey), string(p.secretKey), string(p.sessionToken))
	return static.Retrieve(ctx)
}

// DefaultRegion returns the region used for discovery and global services.
func (p *Provider) DefaultRegion() string {
	return p.defaultRegion
}

// Client returns the cached client for (service, region), building it on first use.
// At most one client is ever constructed per key.
func (p *Provider) Client(svc Service, region string) any {
	key := clientKey{service: svc, region: region}

	p.mu.RLock()
	c, ok := p.clients[key]
	p.mu.RUnlock()
	if ok {
		return c
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[key]; ok {
		return c
	}

	cfg := p.cfg.Copy()
	cfg.Region = region
	if region == resource.GlobalRegion || region == "" {
		cfg.Region = p.defaultRegion
	}

	build, ok := p.constructors[svc]
	if !ok {
		panic(fmt.Sprintf("session: no constructor for service %q", svc))
	}
	c = build(cfg)

	// Torn-down sessions still answer, but nothing is cached and signing fails.
	if !p.closed {
		p.clients[key] = c
	}
	return c
}

// Teardown drops cached clients and zeroes the credential buffers in place.
// It is safe to call more than once.
func (p *Provider) Teardown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	zero(p.accessKey)
	zero(p.secretKey)
	zero(p.sessionToken)
	p.clients = make(map[clientKey]any)

	if cache, ok := p.cfg.Credentials.(*aws.CredentialsCache); ok {
		cache.Invalidate()
	}

	if !p.closed {
		p.closed = true
		log.Debug().Msg("aws session torn down")
	}
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
