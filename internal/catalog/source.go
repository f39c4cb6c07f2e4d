package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/slug"
)

// maxDocumentBytes bounds a single catalog document.
const maxDocumentBytes = 8 << 20

// Source fetches the raw bytes of a named document.
type Source interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// ValidName reports whether name can address a document. Names are slugs,
// which keeps them free of path separators.
func ValidName(name string) bool {
	return name != "" && slug.Generate(name) == name
}

func checkName(name string) error {
	if !ValidName(name) {
		return apperrors.InvalidInput(fmt.Sprintf("invalid catalog document name %q", name))
	}
	return nil
}

// DirSource reads <dir>/<name>.json.
type DirSource struct {
	dir string
}

// NewDirSource creates a source over dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// Dir returns the directory documents are read from.
func (s *DirSource) Dir() string { return s.dir }

// Fetch implements Source.
func (s *DirSource) Fetch(_ context.Context, name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.NotFound("catalog document", name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading catalog document %s: %w", name, err)
	}
	return data, nil
}

// Names lists the documents available in the directory.
func (s *DirSource) Names() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSuffix(filepath.Base(m), ".json")
		if ValidName(name) {
			names = append(names, name)
		}
	}
	return names, nil
}

// Getter is the part of the HTTP client a remote source needs.
type Getter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// HTTPSource fetches <base>/<name>.json through a retrying, circuit-broken
// client. While the breaker is open it serves the last copy it fetched.
type HTTPSource struct {
	base   string
	client Getter

	mu   sync.RWMutex
	last map[string][]byte
}

// NewHTTPSource creates a remote source. client is usually a
// *httpclient.BreakerClient.
func NewHTTPSource(base string, client Getter) *HTTPSource {
	return &HTTPSource{
		base:   strings.TrimRight(base, "/"),
		client: client,
		last:   make(map[string][]byte),
	}
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	data, err := s.fetch(ctx, name)
	if err == nil {
		s.mu.Lock()
		s.last[name] = data
		s.mu.Unlock()
		return data, nil
	}
	if httpclient.IsOpen(err) {
		s.mu.RLock()
		stale, ok := s.last[name]
		s.mu.RUnlock()
		if ok {
			return stale, nil
		}
		return nil, apperrors.Unavailable("Unable to load products. Please refresh the page and try again.", err)
	}
	return nil, err
}

func (s *HTTPSource) fetch(ctx context.Context, name string) ([]byte, error) {
	resp, err := s.client.Get(ctx, s.base+"/"+url.PathEscape(name)+".json")
	if err != nil {
		return nil, fmt.Errorf("fetching catalog document %s: %w", name, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return nil, apperrors.NotFound("catalog document", name)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, httpclient.ParseResponseError(resp, "catalog")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading catalog document %s: %w", name, err)
	}
	if len(data) > maxDocumentBytes {
		return nil, fmt.Errorf("catalog document %s exceeds %d bytes", name, maxDocumentBytes)
	}
	return data, nil
}
