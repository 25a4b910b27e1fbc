package feeds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var (
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrNoSource          = errors.New("no source configured")
)

// Payloads larger than this are treated as unavailable.
const maxPayloadBytes = 16 << 20

// Source provides the raw external feed payload.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// NewSource picks a Source for location: an http(s) URL, a file path, or
// nothing when location is empty.
func NewSource(location string) Source {
	location = strings.TrimSpace(location)
	lower := strings.ToLower(location)
	switch {
	case location == "":
		return NoSource{}
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return NewHTTPSource(location)
	default:
		return FileSource{Path: location}
	}
}

// HTTPSource fetches the payload over HTTP, bypassing caches. Requests are
// only bounded by the context.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{
		URL:    url,
		Client: &http.Client{},
	}
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "zstd, gzip")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrSourceUnavailable, resp.StatusCode)
	}

	body, err := decodeBody(resp.Body, resp.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer body.Close()

	return readAll(body)
}

func decodeBody(body io.Reader, encoding string) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return io.NopCloser(body), nil
	case "gzip", "x-gzip":
		return gzip.NewReader(body)
	case "zstd":
		decoder, err := zstd.NewReader(body)
		if err != nil {
			return nil, err
		}
		return decoder.IOReadCloser(), nil
	}
	return nil, fmt.Errorf("unsupported content encoding %q", encoding)
}

func readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxPayloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if len(data) > maxPayloadBytes {
		return nil, fmt.Errorf("%w: payload larger than %d bytes", ErrSourceUnavailable, maxPayloadBytes)
	}
	return data, nil
}

// FileSource reads the payload from a local file.
type FileSource struct {
	Path string
}

func (s FileSource) Fetch(ctx context.Context) ([]byte, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer f.Close()
	return readAll(f)
}

// NoSource always sends the loader to the store.
type NoSource struct{}

func (NoSource) Fetch(context.Context) ([]byte, error) {
	return nil, ErrNoSource
}
