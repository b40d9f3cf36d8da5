// Package oai implements an OAI-PMH protocol client.
package oai

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethgrid/pester"
	"golang.org/x/net/html/charset"

	"oaiharvest/internal/logger"
)

const (
	// DefaultTimeout on requests.
	DefaultTimeout = 60 * time.Second
	// DefaultMaxRetries is the default number of retries on a single request.
	DefaultMaxRetries = 3
	// UserAgent identifies the harvester; some endpoints reject the Go default.
	UserAgent = "oaiharvest/1.0"
	// maxBodySize bounds how much of a response body is read.
	maxBodySize = 1 << 30
)

// controlCharReplacer removes control chars outside the XML char range, plus
// U+FFFD and U+FFFE.
// Broken endpoints occasionally emit them and the decoder rejects the page.
var controlCharReplacer = strings.NewReplacer(
	"\u0000", "", "\u0001", "", "\u0002", "", "\u0003", "", "\u0004", "",
	"\u0005", "", "\u0006", "", "\u0007", "", "\u0008", "", "\u000B", "",
	"\u000C", "", "\u000E", "", "\u000F", "", "\u0010", "", "\u0011", "",
	"\u0012", "", "\u0013", "", "\u0014", "", "\u0015", "", "\u0016", "",
	"\u0017", "", "\u0018", "", "\u0019", "", "\u001A", "", "\u001B", "",
	"\u001C", "", "\u001D", "", "\u001E", "", "\u001F", "",
	"\uFFFD", "", "\uFFFE", "",
)

// HTTPError carries details of a failed HTTP exchange.
type HTTPError struct {
	URL        *url.URL
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s on %s", http.StatusText(e.StatusCode), e.URL)
}

// Doer is a minimal HTTP interface.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client executes OAI-PMH requests. Resumption token handling happens in the
// caller; only Identify, ListMetadataFormats and GetRecord return a complete
// response.
type Client struct {
	doer Doer
	log  *logger.Logger
}

// NewClient creates a client with timeout and retry properties.
func NewClient(timeout time.Duration, retries int, log *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if retries < 0 {
		retries = DefaultMaxRetries
	}

	c := pester.New()
	c.Timeout = timeout
	c.MaxRetries = retries
	c.Backoff = pester.ExponentialBackoff

	return &Client{doer: c, log: log}
}

// NewClientWithDoer creates a client over an injected HTTP doer.
func NewClientWithDoer(doer Doer, log *logger.Logger) *Client {
	return &Client{doer: doer, log: log}
}

// Do executes a single request and decodes the response envelope. Protocol
// errors reported by the repository are left in Response.Error.
func (c *Client) Do(ctx context.Context, r *Request) (*Response, error) {
	link, err := r.URL()
	if err != nil {
		return nil, err
	}

	c.log.WithFields(logger.Fields{
		"verb":  r.Verb,
		"url":   link.String(),
		"token": r.ResumptionToken,
	}).Info("OAI-PMH request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link.String(), http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/xml, application/xml")

	start := time.Now()

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &HTTPError{URL: link, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	body = []byte(controlCharReplacer.Replace(string(body)))

	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = charset.NewReaderLabel
	dec.Strict = false

	var response Response
	if err := dec.Decode(&response); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	response.Raw = body

	fields := logger.Fields{
		"verb":        r.Verb,
		"url":         link.String(),
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}

	if response.HasError() {
		fields["oai_error_code"] = response.Error.Code
		c.log.WithFields(fields).Warn("OAI-PMH error in response")
	} else {
		if token := response.ResumptionToken(); token != "" {
			fields["resumption_token"] = token
		}
		c.log.WithFields(fields).Debug("OAI-PMH response received")
	}

	return &response, nil
}

// Identify fetches repository information.
func (c *Client) Identify(ctx context.Context, baseURL string) (*Identify, error) {
	resp, err := c.Do(ctx, &Request{BaseURL: baseURL, Verb: VerbIdentify})
	if err != nil {
		return nil, err
	}

	if resp.HasError() {
		return nil, resp.Error
	}

	return &resp.Identify, nil
}

// ListMetadataFormats fetches the formats offered by a repository.
func (c *Client) ListMetadataFormats(ctx context.Context, baseURL string) ([]MetadataFormat, error) {
	resp, err := c.Do(ctx, &Request{BaseURL: baseURL, Verb: VerbListMetadataFormats})
	if err != nil {
		return nil, err
	}

	if resp.HasError() {
		return nil, resp.Error
	}

	return resp.ListMetadataFormats.Formats, nil
}

// GetRecord fetches one record by identifier and prefix.
func (c *Client) GetRecord(ctx context.Context, baseURL, prefix, identifier string) (*Response, error) {
	resp, err := c.Do(ctx, &Request{
		BaseURL:        baseURL,
		Verb:           VerbGetRecord,
		MetadataPrefix: prefix,
		Identifier:     identifier,
	})
	if err != nil {
		return nil, err
	}

	if resp.HasError() {
		return nil, resp.Error
	}

	return resp, nil
}
