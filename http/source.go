// Package http provides a wad.ByteSource backed by HTTP range requests,
// so remote containers can be browsed without downloading them. Opening
// an archive fetches only the header and entry table; each entry read
// is one range request.
package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	nethttp "net/http"
	"strconv"
	"strings"
)

var (
	// ErrRangeUnsupported is returned when the server ignores Range headers.
	ErrRangeUnsupported = errors.New("wad/http: range requests not supported")

	// ErrChanged is returned when the remote content changed after the
	// source was opened.
	ErrChanged = errors.New("wad/http: remote content changed")
)

// Source implements random access reads via HTTP range requests.
// It satisfies wad.ByteSource and is safe for concurrent use.
type Source struct {
	url          string
	client       *nethttp.Client
	headers      nethttp.Header
	logger       *slog.Logger
	size         int64
	etag         string
	lastModified string
}

// Option configures a Source.
type Option func(*Source)

// WithClient sets the HTTP client used for requests.
func WithClient(client *nethttp.Client) Option {
	return func(s *Source) {
		s.client = client
	}
}

// WithHeaders sets additional headers on each request.
func WithHeaders(headers nethttp.Header) Option {
	return func(s *Source) {
		if headers == nil {
			return
		}
		s.headers = headers.Clone()
	}
}

// WithHeader sets a single header on each request.
func WithHeader(key, value string) Option {
	return func(s *Source) {
		if s.headers == nil {
			s.headers = make(nethttp.Header)
		}
		s.headers.Set(key, value)
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

// NewSource creates a Source for url. It probes the remote to determine
// the content size and validators; later reads are conditional on them,
// so a remote that changes fails with ErrChanged instead of returning
// bytes from two different files.
func NewSource(url string, opts ...Option) (*Source, error) {
	s := &Source{
		url:    url,
		client: nethttp.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = nethttp.DefaultClient
	}

	if err := s.probe(); err != nil {
		return nil, fmt.Errorf("probe %s: %w", url, err)
	}
	s.log().Debug("opened http source", "url", url, "size", s.size, "etag", s.etag)
	return s, nil
}

func (s *Source) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}

// Size returns the total size of the remote content.
func (s *Source) Size() int64 {
	return s.size
}

// URL returns the remote location.
func (s *Source) URL() string {
	return s.url
}

// ReadAt reads len(p) bytes at off with a single range request.
func (s *Source) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 {
		return 0, fmt.Errorf("read at %d: negative offset", off)
	}
	if off >= s.size {
		return 0, io.EOF
	}

	end := off + int64(len(p)) - 1
	expected := len(p)
	if end >= s.size {
		end = s.size - 1
		expected = int(end - off + 1)
	}

	resp, err := s.get(fmt.Sprintf("bytes=%d-%d", off, end))
	if err != nil {
		return 0, err
	}
	defer drain(resp)

	switch resp.StatusCode {
	case nethttp.StatusPartialContent:
	case nethttp.StatusRequestedRangeNotSatisfiable:
		return 0, io.EOF
	case nethttp.StatusPreconditionFailed:
		return 0, ErrChanged
	case nethttp.StatusOK:
		return 0, ErrRangeUnsupported
	default:
		return 0, fmt.Errorf("range request failed: %s", resp.Status)
	}

	n, err := io.ReadFull(resp.Body, p[:expected])
	if err != nil {
		return n, err
	}
	s.log().Debug("range read", "offset", off, "length", n)
	if expected < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// probe learns the content size from a HEAD request, confirmed by a
// one-byte range request.
func (s *Source) probe() error {
	size := int64(-1)
	if resp, err := s.do(nethttp.MethodHead, ""); err == nil {
		if resp.StatusCode == nethttp.StatusOK {
			size = resp.ContentLength
			s.etag = resp.Header.Get("ETag")
			s.lastModified = resp.Header.Get("Last-Modified")
		}
		drain(resp)
	}

	resp, err := s.get("bytes=0-0")
	if err != nil {
		return err
	}
	defer drain(resp)

	switch resp.StatusCode {
	case nethttp.StatusPartialContent:
	case nethttp.StatusOK:
		return ErrRangeUnsupported
	case nethttp.StatusPreconditionFailed:
		return ErrChanged
	default:
		return fmt.Errorf("range probe failed: %s", resp.Status)
	}

	rangeSize, err := parseContentRange(resp.Header.Get("Content-Range"))
	if err != nil {
		return err
	}
	if size > 0 && size != rangeSize {
		return fmt.Errorf("content size mismatch: head=%d range=%d", size, rangeSize)
	}
	s.size = rangeSize
	if s.etag == "" {
		s.etag = resp.Header.Get("ETag")
	}
	if s.lastModified == "" {
		s.lastModified = resp.Header.Get("Last-Modified")
	}
	return nil
}

func (s *Source) get(rangeHeader string) (*nethttp.Response, error) {
	return s.do(nethttp.MethodGet, rangeHeader)
}

func (s *Source) do(method, rangeHeader string) (*nethttp.Response, error) {
	req, err := nethttp.NewRequest(method, s.url, nil)
	if err != nil {
		return nil, err
	}
	for key, values := range s.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "identity")
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
		if s.etag != "" && req.Header.Get("If-Match") == "" {
			req.Header.Set("If-Match", s.etag)
		}
		if s.lastModified != "" && req.Header.Get("If-Unmodified-Since") == "" {
			req.Header.Set("If-Unmodified-Since", s.lastModified)
		}
	}
	return s.client.Do(req)
}

func drain(resp *nethttp.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

func parseContentRange(value string) (int64, error) {
	invalid := fmt.Errorf("invalid Content-Range %q", value)
	value = strings.TrimSpace(value)
	rest, ok := strings.CutPrefix(value, "bytes ")
	if !ok {
		return 0, invalid
	}
	_, total, ok := strings.Cut(rest, "/")
	if !ok || total == "*" {
		return 0, invalid
	}
	size, err := strconv.ParseInt(total, 10, 64)
	if err != nil || size < 0 {
		return 0, invalid
	}
	return size, nil
}
