// Package meta loads YAML configuration assets from any storage scheme the
// afs abstraction supports, including embedded filesystems, expanding
// ${env.KEY} expressions before decoding.
package meta

import (
	"context"
	"fmt"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
	"gopkg.in/yaml.v3"
)

// Service resolves asset URLs against a base location and decodes them.
type Service struct {
	fs      afs.Service
	baseURL string
	options []storage.Option
}

// New creates a meta service rooted at baseURL.  Storage options (such as
// an embedded fs.FS) are passed through to every afs call.
func New(fs afs.Service, baseURL string, options ...storage.Option) *Service {
	return &Service{fs: fs, baseURL: baseURL, options: options}
}

// Load downloads the asset at URL (joined with the base URL when relative)
// and unmarshals its YAML content into target.
func (s *Service) Load(ctx context.Context, URL string, target interface{}) error {
	data, err := s.Download(ctx, URL)
	if err != nil {
		return err
	}
	if err = yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to decode %s: %w", URL, err)
	}
	return nil
}

// Download fetches the raw asset bytes with env expressions expanded.
func (s *Service) Download(ctx context.Context, URL string) ([]byte, error) {
	location := URL
	if s.baseURL != "" && !strings.Contains(URL, "://") {
		location = url.Join(s.baseURL, URL)
	}
	data, err := s.fs.DownloadWithURL(ctx, location, s.options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", location, err)
	}
	return []byte(expandEnvExpr(string(data))), nil
}

// Exists reports whether the asset is present.
func (s *Service) Exists(ctx context.Context, URL string) (bool, error) {
	location := URL
	if s.baseURL != "" && !strings.Contains(URL, "://") {
		location = url.Join(s.baseURL, URL)
	}
	return s.fs.Exists(ctx, location, s.options...)
}
