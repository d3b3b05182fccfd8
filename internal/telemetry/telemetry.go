/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry sends opt-in anonymous usage events and crash reports. Nothing
// is sent unless the user opted in and an endpoint is configured.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"

	"gonovel/internal/config"
	applog "gonovel/internal/log"
	"gonovel/internal/version"
)

// Config holds the endpoints and switches of the sender. Token is sent as a bearer
// token and comes from the keyring, never from the environment.
type Config struct {
	OptIn        bool          `env:"GNV_TELEMETRY_OPT_IN"`
	EventsURL    string        `env:"GNV_TELEMETRY_URL"`
	CrashURL     string        `env:"GNV_CRASH_UPLOAD_URL"`
	Timeout      time.Duration `env:"GNV_TELEMETRY_TIMEOUT" envDefault:"1500ms"`
	DebugLogging bool          `env:"GNV_TELEMETRY_DEBUG"`
	Token        string
}

// FromEnv reads the GNV_TELEMETRY_* variables. Unparsable values leave the defaults.
func FromEnv() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		applog.WithComponent("telemetry").Warn("telemetry env ignored", slog.Any("err", err))
		return Config{Timeout: 1500 * time.Millisecond}
	}
	return cfg
}

// FromAppConfig combines the endpoints from the environment with the opt-in of the
// user config and the keyring token returned by config.Load.
func FromAppConfig(app config.AppConfig, token string) Config {
	cfg := FromEnv()
	cfg.OptIn = app.General.TelemetryOptIn
	cfg.Token = token
	return cfg
}

// Client queues events on a bounded channel and posts them from one goroutine.
// Send failures are dropped. inflight counts every event or crash report that was
// accepted and has not finished posting.
type Client struct {
	cfg      Config
	log      *slog.Logger
	cli      *http.Client
	q        chan map[string]any
	inflight sync.WaitGroup
	once     sync.Once
	closed   chan struct{}
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// Default returns the package client, created from the environment on first use.
func Default() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(FromEnv())
	}
	return defaultClient
}

// SetDefault installs c as the package client and closes the previous one.
func SetDefault(c *Client) {
	defaultMu.Lock()
	prev := defaultClient
	defaultClient = c
	defaultMu.Unlock()
	if prev != nil && prev != c {
		prev.Close()
	}
}

// New starts a client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 1500 * time.Millisecond
	}
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		cli:    &http.Client{Timeout: cfg.Timeout},
		q:      make(chan map[string]any, 64),
		closed: make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether events are sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Event queues a named event. Props must not carry personal data; a full queue
// drops the event.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	payload := map[string]any{
		"name":    name,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"version": version.String(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	for k, v := range props {
		if _, reserved := payload[k]; !reserved {
			payload[k] = v
		}
	}
	c.inflight.Add(1)
	select {
	case c.q <- payload:
	default:
		c.inflight.Done()
	}
}

// Flush waits until every queued event and crash report has been posted, the
// post timeout has passed, or ctx is done. It reports whether everything was sent.
func (c *Client) Flush(ctx context.Context) bool {
	if c == nil {
		return true
	}
	if ctx == nil {
		ctx = context.Background()
	}
	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()
	timer := time.NewTimer(c.cfg.Timeout + 100*time.Millisecond)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-ctx.Done():
	case <-timer.C:
	}
	return false
}

// Close stops the sender goroutine. Queued events are dropped.
func (c *Client) Close() {
	if c != nil {
		c.once.Do(func() { close(c.closed) })
	}
}

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			for {
				select {
				case <-c.q:
					c.inflight.Done()
				default:
					return
				}
			}
		case item := <-c.q:
			if buf, err := json.Marshal(item); err == nil {
				c.post(c.cfg.EventsURL, "application/json", buf, "event")
			}
			c.inflight.Done()
		}
	}
}

func (c *Client) post(url, contentType string, body []byte, what string) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", contentType)
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	resp, err := c.cli.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("telemetry post failed", slog.String("what", what), slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug("telemetry posted", slog.String("what", what), slog.Int("status", resp.StatusCode))
	}
}

// UploadCrash posts a serialized crash report in the background when opted in.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	b := append([]byte(nil), report...)
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", b, "crash")
	}()
}

// Event queues an event on the default client.
func Event(name string, props map[string]any) { Default().Event(name, props) }

// UploadCrash uploads a crash report with the default client.
func UploadCrash(report []byte) { Default().UploadCrash(report) }

// Flush flushes the default client.
func Flush(ctx context.Context) bool { return Default().Flush(ctx) }
