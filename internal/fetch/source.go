// Package fetch loads frame images and manifests from an HTTP origin or a local
// directory and fills the frame cache without duplicate requests.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tOgg1/runviewer/internal/models"
)

// ErrNotFound is returned when a resource does not exist at the source.
var ErrNotFound = errors.New("resource not found")

// Source opens resources by identifier.
type Source interface {
	Open(ctx context.Context, id string) (io.ReadCloser, error)
}

// StatusError reports a non-200 HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Is lets a 404 match ErrNotFound.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// HTTPSource resolves identifiers against an origin such as
// "http://localhost:8000". Identifiers already carry the base path.
type HTTPSource struct {
	origin *url.URL
	client *http.Client
}

const defaultHTTPTimeout = 30 * time.Second

// NewHTTPSource parses origin. A nil client uses one with a 30s timeout.
func NewHTTPSource(origin string, client *http.Client) (*HTTPSource, error) {
	trimmed := strings.TrimSpace(origin)
	if trimmed == "" {
		return nil, fmt.Errorf("origin required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse origin: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("origin %q must be http or https", origin)
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPSource{origin: parsed, client: client}, nil
}

// URL returns the absolute URL for an identifier.
func (s *HTTPSource) URL(id string) string {
	u := *s.origin
	u.Path = s.origin.Path + "/" + strings.TrimPrefix(id, "/")
	u.RawQuery = ""
	return u.String()
}

func (s *HTTPSource) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	target := s.URL(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}

// DirSource resolves identifiers against a directory laid out like the site
// root, i.e. containing static/runs/{task}/...
type DirSource struct {
	root  string
	paths models.Paths
}

// NewDirSource returns a source rooted at dir. paths strips the base path
// from identifiers before they are joined with dir.
func NewDirSource(dir string, paths models.Paths) (*DirSource, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, fmt.Errorf("directory required")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", abs)
	}
	return &DirSource{root: abs, paths: paths}, nil
}

// Path returns the filesystem path for an identifier.
func (s *DirSource) Path(id string) string {
	return filepath.Join(s.root, filepath.FromSlash(s.paths.Relative(id)))
}

func (s *DirSource) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(s.Path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return file, nil
}
