// Package statsd emits pipeline metrics over UDP using the StatsD line
// protocol with DogStatsD-style tags. Emission is fire-and-forget: a metrics
// outage must never slow down or fail question generation.
package statsd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Sink is what the pipeline's emitters depend on.
type Sink interface {
	Count(name string, value int64, tags map[string]string)
	Gauge(name string, value float64, tags map[string]string)
	Timing(name string, value time.Duration, tags map[string]string)
}

// Config describes how to reach a StatsD-compatible endpoint.
type Config struct {
	Enabled    bool
	Address    string
	Prefix     string
	Logger     *slog.Logger
	GlobalTags map[string]string
}

// Client sends StatsD lines over a single shared UDP socket. A nil or
// disabled Client silently drops every metric, so callers never branch on
// whether metrics are configured.
type Client struct {
	mu   sync.Mutex
	conn net.Conn

	prefix string
	base   map[string]string
	log    *slog.Logger
}

var _ Sink = (*Client)(nil)

const dialTimeout = 5 * time.Second

// NewClient dials cfg.Address unless metrics are disabled or the address is
// blank, in which case it returns a drop-everything client and no error.
func NewClient(cfg Config) (*Client, error) {
	c := &Client{
		prefix: strings.Trim(strings.TrimSpace(cfg.Prefix), "."),
		base:   trimTagSet(cfg.GlobalTags),
		log:    cfg.Logger,
	}
	if c.log == nil {
		c.log = slog.Default()
	}

	addr := strings.TrimSpace(cfg.Address)
	if !cfg.Enabled || addr == "" {
		return c, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	conn, err := (&net.Dialer{}).DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, fmt.Errorf("statsd dial %s: %w", addr, err)
	}
	c.conn = conn
	return c, nil
}

// Enabled reports whether metrics actually go anywhere.
func (c *Client) Enabled() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Count increments a counter.
func (c *Client) Count(name string, value int64, tags map[string]string) {
	c.emit(name, strconv.FormatInt(value, 10), "c", tags)
}

// Gauge records an instantaneous value.
func (c *Client) Gauge(name string, value float64, tags map[string]string) {
	c.emit(name, formatFloat(value), "g", tags)
}

// Timing records a duration in milliseconds.
func (c *Client) Timing(name string, value time.Duration, tags map[string]string) {
	ms := float64(value) / float64(time.Millisecond)
	c.emit(name, formatFloat(ms), "ms", tags)
}

// Close shuts the socket. Further emits become no-ops. Idempotent.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// emit assembles "<prefix>.<name>:<value>|<unit>|#k:v,..." and writes it.
// UDP write errors are logged at debug level only; loss is acceptable here.
func (c *Client) emit(name, value, unit string, tags map[string]string) {
	if c == nil {
		return
	}

	metric := cleanName(name)
	if metric == "" {
		metric = c.prefix
	} else if c.prefix != "" {
		metric = c.prefix + "." + metric
	}
	if metric == "" {
		return
	}

	line := make([]byte, 0, 128)
	line = append(line, metric...)
	line = append(line, ':')
	line = append(line, value...)
	line = append(line, '|')
	line = append(line, unit...)
	line = appendTags(line, c.base, tags)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return
	}
	if _, err := c.conn.Write(line); err != nil {
		c.log.Debug("statsd write failed", "error", err)
	}
}

// cleanName keeps metric names within the conservative StatsD charset:
// spaces and slashes become underscores, runs of dots collapse to one.
func cleanName(name string) string {
	n := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	for strings.Contains(n, "..") {
		n = strings.ReplaceAll(n, "..", ".")
	}
	return strings.Trim(n, ".")
}

// appendTags renders global and per-call tags as a DogStatsD suffix.
// Per-call tags win on key collision; keys are sorted for stable output.
func appendTags(line []byte, base, extra map[string]string) []byte {
	merged := trimTagSet(base)
	for k, v := range trimTagSet(extra) {
		merged[k] = v
	}
	if len(merged) == 0 {
		return line
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	line = append(line, "|#"...)
	for i, k := range keys {
		if i > 0 {
			line = append(line, ',')
		}
		line = append(line, k...)
		line = append(line, ':')
		line = append(line, merged[k]...)
	}
	return line
}

// trimTagSet copies tags, trimming whitespace and dropping empty keys.
func trimTagSet(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(v)
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
