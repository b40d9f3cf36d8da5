// Package provider models OAI-PMH data sources, live and static.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"oaiharvest/internal/logger"
	"oaiharvest/internal/oai"
)

// ErrInvalidBaseURL indicates a base URL that cannot identify a provider.
var ErrInvalidBaseURL = errors.New("invalid provider base URL")

// Provider is one live OAI-PMH endpoint. Its identity is the normalised base
// URL.
type Provider struct {
	Name       string
	BaseURL    string
	Group      string
	Prefixes   []string
	Timeout    time.Duration
	MaxRetries int

	client *oai.Client
	log    *logger.Logger
}

// New creates a provider for the given base URL. The URL is normalised so two
// spellings of the same endpoint compare equal.
func New(name, baseURL string, log *logger.Logger) (*Provider, error) {
	normalised, err := NormalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	return &Provider{
		Name:       name,
		BaseURL:    normalised,
		Timeout:    oai.DefaultTimeout,
		MaxRetries: oai.DefaultMaxRetries,
		log:        log,
	}, nil
}

// NormalizeBaseURL lowercases the scheme and host and strips a trailing slash.
func NormalizeBaseURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidBaseURL, raw, err)
	}

	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidBaseURL, raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimRight(u.Path, "/")

	return u.String(), nil
}

// Identity returns the normalised base URL.
func (p *Provider) Identity() string {
	return p.BaseURL
}

// Client returns the provider's OAI client, creating it on first use.
func (p *Provider) Client() *oai.Client {
	if p.client == nil {
		p.client = oai.NewClient(p.Timeout, p.MaxRetries, p.log)
	}

	return p.client
}

// SetClient injects an OAI client. Used in tests.
func (p *Provider) SetClient(c *oai.Client) {
	p.client = c
}

// Init prepares the provider for harvesting. When no display name is
// configured it is resolved through an Identify request; failure to identify
// leaves the URL as the name and does not block harvesting.
func (p *Provider) Init(ctx context.Context) error {
	if p.Name != "" {
		return nil
	}

	ident, err := p.Client().Identify(ctx, p.BaseURL)
	if err != nil || ident.RepositoryName == "" {
		p.log.WithFields(logger.Fields{
			"url": p.BaseURL,
		}).Warn("could not identify repository, using base URL as name")
		p.Name = p.BaseURL

		return nil
	}

	p.Name = ident.RepositoryName

	return nil
}

// Allows reports whether the prefix passes the provider's allow-list. An
// empty list allows every prefix.
func (p *Provider) Allows(prefix string) bool {
	if len(p.Prefixes) == 0 {
		return true
	}

	for _, allowed := range p.Prefixes {
		if allowed == prefix {
			return true
		}
	}

	return false
}

// String returns the provider name and identity.
func (p *Provider) String() string {
	if p.Name == "" || p.Name == p.BaseURL {
		return p.BaseURL
	}

	return fmt.Sprintf("%s (%s)", p.Name, p.BaseURL)
}
