package main

import (
	"bytes"
	"fmt"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"time"

	wadhttp "github.com/meigma/wad/http"
)

// newHTTPSource serves data over HTTP when cfg.dataURL is "local", or
// reads a remote container at cfg.dataURL, through a throttled client.
//
//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func newHTTPSource(cfg config, data []byte) (*wadhttp.Source, func(), error) {
	url := cfg.dataURL
	var cleanup func()
	if url == "local" {
		server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			nethttp.ServeContent(w, r, "data.wad", time.Time{}, bytes.NewReader(data))
		}))
		url = server.URL
		cleanup = server.Close
	}

	src, err := wadhttp.NewSource(url, wadhttp.WithClient(newHTTPClient(cfg)))
	if err != nil {
		if cleanup != nil {
			cleanup()
		}
		return nil, nil, err
	}
	return src, cleanup, nil
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func newHTTPClient(cfg config) *nethttp.Client {
	transport := nethttp.DefaultTransport
	if base, ok := transport.(*nethttp.Transport); ok {
		transport = base.Clone()
	}
	if cfg.dataHTTPLatency > 0 || cfg.dataHTTPBPS > 0 {
		transport = &throttledTransport{
			base:           transport,
			latency:        cfg.dataHTTPLatency,
			bytesPerSecond: cfg.dataHTTPBPS,
		}
	}
	return &nethttp.Client{Transport: transport}
}

// throttledTransport adds fixed latency per request and caps body
// throughput, to approximate remote storage.
type throttledTransport struct {
	base           nethttp.RoundTripper
	latency        time.Duration
	bytesPerSecond int64
}

func (t *throttledTransport) RoundTrip(req *nethttp.Request) (*nethttp.Response, error) {
	if t.latency > 0 {
		time.Sleep(t.latency)
	}
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if t.bytesPerSecond > 0 && resp.Body != nil {
		resp.Body = &throttledBody{
			rc:             resp.Body,
			bytesPerSecond: t.bytesPerSecond,
			start:          time.Now(),
		}
	}
	return resp, nil
}

type throttledBody struct {
	rc             io.ReadCloser
	bytesPerSecond int64
	start          time.Time
	read           int64
}

func (b *throttledBody) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	if n > 0 {
		b.read += int64(n)
		due := time.Duration(float64(b.read) / float64(b.bytesPerSecond) * float64(time.Second))
		if wait := due - time.Since(b.start); wait > 0 {
			time.Sleep(wait)
		}
	}
	return n, err
}

func (b *throttledBody) Close() error {
	return b.rc.Close()
}

// parseBytesPerSecond parses rates such as "512", "64k", "10MBps" or "1gb/s".
func parseBytesPerSecond(value string) (int64, error) {
	text := strings.ToLower(strings.TrimSpace(value))
	text = strings.TrimSuffix(text, "/s")
	text = strings.TrimSuffix(text, "ps")
	text = strings.TrimSuffix(text, "b")

	mult := int64(1)
	switch {
	case strings.HasSuffix(text, "k"):
		mult = 1 << 10
	case strings.HasSuffix(text, "m"):
		mult = 1 << 20
	case strings.HasSuffix(text, "g"):
		mult = 1 << 30
	}
	if mult > 1 {
		text = text[:len(text)-1]
	}

	raw, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || raw <= 0 {
		return 0, fmt.Errorf("invalid bytes-per-second %q", value)
	}
	return raw * mult, nil
}
