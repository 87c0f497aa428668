// Package renderer implements the RendererControl collaborator (§6.2)
// against a network media-renderer discovered via mDNS/DNS-SD, with the
// transient-failure retry policy of §7.
package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/brutella/dnssd"
	"github.com/cenkalti/backoff/v4"
	"github.com/linuxmatters/agc/internal/telemetry"
	"github.com/linuxmatters/agc/internal/volume"
)

// ErrPersistentFailure wraps the error returned by GetVolume/SetVolume once
// three consecutive calls have failed (§7 persistent case). Callers can
// match it with errors.Is to trigger rediscovery; it does not by itself
// make the call fatal.
var ErrPersistentFailure = errors.New("renderer unreachable after 3 consecutive failures")

// ServiceType is the DNS-SD service type advertised by the Chromecast-style
// renderer this package targets.
const ServiceType = "_googlecast._tcp"

// endpoint is the resolved network location behind a volume.Handle.
type endpoint struct {
	name string
	host string
	port int
}

func (e endpoint) baseURL() string {
	return fmt.Sprintf("http://%s:%d", e.host, e.port)
}

// Client implements volume.RendererControl over HTTP against a renderer's
// control endpoint, resolved once at Discover time via DNS-SD browsing.
type Client struct {
	log        *telemetry.Logger
	httpClient *http.Client

	consecutiveFailures int
	degradedUntil       time.Time
}

// New returns a Client logging events through log.
func New(log *telemetry.Logger) *Client {
	return &Client{
		log:        log,
		httpClient: &http.Client{},
	}
}

// Discover browses for name on the local network and returns its resolved
// endpoint as an opaque Handle, or volume.ErrNotFound if nothing answers
// before ctx is done.
func (c *Client) Discover(ctx context.Context, name string) (volume.Handle, error) {
	found := make(chan endpoint, 1)

	addFn := func(e dnssd.BrowseEntry) {
		if name != "" && e.Name != name {
			return
		}
		if len(e.IPs) == 0 {
			return
		}
		select {
		case found <- endpoint{name: e.Name, host: e.IPs[0].String(), port: e.Port}:
		default:
		}
	}
	rmvFn := func(e dnssd.BrowseEntry) {}

	lookupCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- dnssd.LookupType(lookupCtx, ServiceType+".local.", addFn, rmvFn)
	}()

	select {
	case ep := <-found:
		cancel()
		c.log.Info("renderer discovered", "name", ep.name, "host", ep.host, "port", ep.port)
		c.consecutiveFailures = 0
		c.degradedUntil = time.Time{}
		return ep, nil
	case <-ctx.Done():
		return nil, volume.ErrNotFound
	case err := <-errCh:
		if err != nil {
			return nil, fmt.Errorf("dns-sd lookup: %w", err)
		}
		return nil, volume.ErrNotFound
	}
}

// GetVolume reads the renderer's current volume, applying the §7
// transient-failure retry policy.
func (c *Client) GetVolume(ctx context.Context, h volume.Handle) (int, error) {
	ep := h.(endpoint)
	var result struct {
		Volume int `json:"volume"`
	}
	err := c.withRetry(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.baseURL()+"/volume", nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("renderer returned status %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&result)
	})
	return result.Volume, err
}

// SetVolume commands the renderer to v, idempotently: the renderer is
// expected to coalesce repeated identical values on its own side.
func (c *Client) SetVolume(ctx context.Context, h volume.Handle, v int) error {
	ep := h.(endpoint)
	body, _ := json.Marshal(struct {
		Volume int `json:"volume"`
	}{Volume: v})

	return c.withRetry(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, ep.baseURL()+"/volume", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
			return fmt.Errorf("renderer returned status %d", resp.StatusCode)
		}
		return nil
	})
}

// Close releases resources associated with h. The HTTP transport needs no
// explicit teardown per-handle.
func (c *Client) Close(h volume.Handle) {}

// withRetry applies the §7 transient policy: up to two retries, after
// 100ms and then 400ms, and on final failure a 5s degraded window during
// which every call through this Client fails at once without contacting
// the renderer, so auto commands are skipped. Three consecutive
// failures across calls escalate to the persistent case: the returned
// error wraps ErrPersistentFailure so the core loop can detect it and
// attempt rediscovery through Controller.Rediscover.
func (c *Client) withRetry(ctx context.Context, op func(context.Context) error) error {
	if time.Now().Before(c.degradedUntil) {
		return fmt.Errorf("renderer degraded until %s", c.degradedUntil.Format(time.RFC3339))
	}

	policy := backoff.WithContext(&twoStepBackoff{delays: []time.Duration{100 * time.Millisecond, 400 * time.Millisecond}}, ctx)
	err := backoff.Retry(func() error { return op(ctx) }, policy)
	if err != nil {
		c.consecutiveFailures++
		c.degradedUntil = time.Now().Add(5 * time.Second)
		if c.consecutiveFailures >= 3 {
			c.log.Emit(telemetry.Event{
				Kind:    telemetry.KindRendererUnreachablePersistent,
				Message: "renderer unreachable after 3 consecutive failures",
			})
			return fmt.Errorf("%w: %v", ErrPersistentFailure, err)
		}
		c.log.Emit(telemetry.Event{
			Kind:    telemetry.KindRendererUnreachableTransient,
			Message: "renderer call failed, entering degraded window",
			Fields:  []any{"consecutive_failures", c.consecutiveFailures},
		})
		return err
	}
	c.consecutiveFailures = 0
	return nil
}

// twoStepBackoff implements backoff.BackOff with exactly the two fixed
// delays named in §7, then stops (backoff.Stop) rather than retrying
// indefinitely.
type twoStepBackoff struct {
	delays []time.Duration
	i      int
}

func (b *twoStepBackoff) Reset() { b.i = 0 }

func (b *twoStepBackoff) NextBackOff() time.Duration {
	if b.i >= len(b.delays) {
		return backoff.Stop
	}
	d := b.delays[b.i]
	b.i++
	return d
}
