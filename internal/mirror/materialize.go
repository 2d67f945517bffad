package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"github.com/bookmirror/bookmirror/internal/bookmark"
)

// Entry is a file produced by the Materializer.
type Entry struct {
	Stem string
	Name string
	Kind Kind
	Size int64
}

// Options configures a Materializer. Zero values pick defaults.
type Options struct {
	// Classifier decides between download and shortcut.
	// Default: DefaultDocumentPatterns.
	Classifier *Classifier

	// Format is the shortcut format. Default: DefaultFormatName().
	Format ShortcutFormat

	// Client performs document downloads. Default: http.DefaultClient.
	// Redirects away from https are refused whatever its policy.
	Client *http.Client

	// Logger for materializer activity. Default: stderr with a [mirror] prefix.
	Logger *log.Logger
}

// Materializer turns one bookmark into one file in a Dir.
type Materializer struct {
	dir        *Dir
	classifier *Classifier
	format     ShortcutFormat
	client     *http.Client
	logger     *log.Logger
}

// NewMaterializer creates a Materializer writing into dir.
func NewMaterializer(dir *Dir, opts Options) *Materializer {
	if opts.Classifier == nil {
		opts.Classifier = MustClassifier(DefaultDocumentPatterns)
	}
	if opts.Format == nil {
		opts.Format, _ = FormatByName(DefaultFormatName())
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	client := *opts.Client
	client.CheckRedirect = httpsOnly(opts.Client.CheckRedirect)
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "[mirror] ", log.LstdFlags)
	}

	return &Materializer{
		dir:        dir,
		classifier: opts.Classifier,
		format:     opts.Format,
		client:     &client,
		logger:     opts.Logger,
	}
}

// Classify reports how b would be materialized.
func (m *Materializer) Classify(b bookmark.Bookmark) Kind {
	return m.classifier.Classify(b.URL)
}

// Materialize writes the file for b: a downloaded document or a shortcut.
// On error no file is left behind.
func (m *Materializer) Materialize(ctx context.Context, b bookmark.Bookmark) (Entry, error) {
	if err := ValidateTitle(b.Title); err != nil {
		return Entry{}, err
	}

	if m.Classify(b) == KindDocument {
		return m.download(ctx, b)
	}
	return m.shortcut(b)
}

// ValidateTitle rejects titles that cannot name a file inside the mirror directory.
func ValidateTitle(title string) error {
	switch {
	case strings.TrimSpace(title) == "":
		return fmt.Errorf("%w: empty title", bookmark.ErrInvalidTitle)
	case title == "." || title == "..":
		return fmt.Errorf("%w: %q", bookmark.ErrInvalidTitle, title)
	case strings.ContainsAny(title, `/\`) || strings.ContainsRune(title, os.PathSeparator):
		return fmt.Errorf("%w: %q contains a path separator", bookmark.ErrInvalidTitle, title)
	case strings.ContainsRune(title, 0):
		return fmt.Errorf("%w: %q contains NUL", bookmark.ErrInvalidTitle, title)
	case strings.HasPrefix(title, tempPrefix):
		return fmt.Errorf("%w: %q is reserved for in-flight files", bookmark.ErrInvalidTitle, title)
	}
	return nil
}

// download fetches b.URL over HTTPS and stores the body as <title>.pdf.
func (m *Materializer) download(ctx context.Context, b bookmark.Bookmark) (Entry, error) {
	target, err := secureURL(b.URL)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", bookmark.ErrNetwork, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", bookmark.ErrNetwork, err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", bookmark.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Entry{}, &bookmark.StatusError{URL: target, Code: resp.StatusCode}
	}

	name := b.Title + DocumentExt
	size, err := m.dir.writeAtomic(name, func(w io.Writer) error {
		if _, err := io.Copy(w, resp.Body); err != nil {
			return fmt.Errorf("%w: reading body: %v", bookmark.ErrNetwork, err)
		}
		return nil
	})
	if err != nil {
		return Entry{}, err
	}

	m.logger.Printf("Downloaded PDF: %s (%s)", name, humanize.Bytes(uint64(size)))
	return Entry{Stem: b.Title, Name: name, Kind: KindDocument, Size: size}, nil
}

// shortcut writes a shortcut file pointing at b.URL.
func (m *Materializer) shortcut(b bookmark.Bookmark) (Entry, error) {
	name := b.Title + m.format.Ext()
	size, err := m.dir.writeAtomic(name, func(w io.Writer) error {
		if err := m.format.Encode(w, b.URL); err != nil {
			return fmt.Errorf("%w: encoding %s: %v", bookmark.ErrFileSystem, name, err)
		}
		return nil
	})
	if err != nil {
		return Entry{}, err
	}

	m.logger.Printf("Saved %s shortcut: %s", m.format.Ext(), name)
	return Entry{Stem: b.Title, Name: name, Kind: KindLink, Size: size}, nil
}

// httpsOnly wraps a redirect policy so that downloads never leave TLS.
func httpsOnly(next func(*http.Request, []*http.Request) error) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if !strings.EqualFold(req.URL.Scheme, "https") {
			return fmt.Errorf("refusing redirect to %s", req.URL.Redacted())
		}
		if next != nil {
			return next(req, via)
		}
		if len(via) >= 10 {
			return errors.New("stopped after 10 redirects")
		}
		return nil
	}
}

// secureURL upgrades plain http to https; downloads are always made over TLS.
func secureURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
	case "http":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return u.String(), nil
}

// writeAtomic streams write into a hidden temp file and renames it to name
// once complete. The temp file is removed on any failure.
func (d *Dir) writeAtomic(name string, write func(io.Writer) error) (int64, error) {
	f, err := afero.TempFile(d.fs, d.path, tempPattern)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to create temp file: %v", bookmark.ErrFileSystem, err)
	}
	tmp := f.Name()

	cw := &countingWriter{w: f}
	if err := write(cw); err != nil {
		f.Close()
		d.fs.Remove(tmp)
		return 0, err
	}
	if err := f.Close(); err != nil {
		d.fs.Remove(tmp)
		return 0, fmt.Errorf("%w: failed to close %s: %v", bookmark.ErrFileSystem, name, err)
	}

	if err := d.fs.Rename(tmp, filepath.Join(d.path, name)); err != nil {
		d.fs.Remove(tmp)
		return 0, fmt.Errorf("%w: failed to write %s: %v", bookmark.ErrFileSystem, name, err)
	}
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
