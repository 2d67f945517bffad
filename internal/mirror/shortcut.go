package mirror

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/afero"
	"howett.net/plist"
)

// ShortcutFormat writes and reads a file whose only job is to open a URL.
type ShortcutFormat interface {
	// Name is the configuration name of the format.
	Name() string
	// Ext is the file extension, including the dot.
	Ext() string
	// Encode writes a shortcut for url.
	Encode(w io.Writer, url string) error
	// Decode returns the URL declared by a shortcut.
	Decode(data []byte) (string, error)
}

// Format names accepted by FormatByName.
const (
	FormatWebloc = "webloc"
	FormatURL    = "url"
)

// DefaultFormatName returns the shortcut format native to the current platform.
func DefaultFormatName() string {
	if runtime.GOOS == "windows" {
		return FormatURL
	}
	return FormatWebloc
}

// FormatByName returns the named shortcut format.
func FormatByName(name string) (ShortcutFormat, error) {
	switch strings.ToLower(name) {
	case FormatWebloc:
		return Webloc{}, nil
	case FormatURL:
		return InternetShortcut{}, nil
	default:
		return nil, fmt.Errorf("unknown shortcut format %q (want %q or %q)", name, FormatWebloc, FormatURL)
	}
}

// Webloc is the macOS .webloc format: an XML property list with a single URL key.
type Webloc struct{}

type weblocDoc struct {
	URL string `plist:"URL"`
}

func (Webloc) Name() string { return FormatWebloc }
func (Webloc) Ext() string  { return ".webloc" }

func (Webloc) Encode(w io.Writer, url string) error {
	enc := plist.NewEncoderForFormat(w, plist.XMLFormat)
	enc.Indent("\t")
	return enc.Encode(weblocDoc{URL: url})
}

func (Webloc) Decode(data []byte) (string, error) {
	var doc weblocDoc
	if _, err := plist.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("failed to parse webloc: %w", err)
	}
	if doc.URL == "" {
		return "", fmt.Errorf("webloc has no URL key")
	}
	return doc.URL, nil
}

// InternetShortcut is the Windows .url format: an INI document with an
// [InternetShortcut] section holding a URL key.
type InternetShortcut struct{}

const internetShortcutSection = "[InternetShortcut]"

func (InternetShortcut) Name() string { return FormatURL }
func (InternetShortcut) Ext() string  { return ".url" }

func (InternetShortcut) Encode(w io.Writer, url string) error {
	_, err := fmt.Fprintf(w, "%s\r\nURL=%s\r\n", internetShortcutSection, url)
	return err
}

func (InternetShortcut) Decode(data []byte) (string, error) {
	inSection := false
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "[") {
			inSection = strings.EqualFold(line, internetShortcutSection)
			continue
		}
		if !inSection {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if ok && strings.EqualFold(strings.TrimSpace(key), "URL") {
			return strings.TrimSpace(value), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read shortcut: %w", err)
	}
	return "", fmt.Errorf("shortcut has no URL key")
}

// ReadShortcut returns the URL declared by the shortcut file at path,
// choosing the format from the extension.
func ReadShortcut(fs afero.Fs, path string) (string, error) {
	var format ShortcutFormat
	switch strings.ToLower(filepath.Ext(path)) {
	case Webloc{}.Ext():
		format = Webloc{}
	case InternetShortcut{}.Ext():
		format = InternetShortcut{}
	default:
		return "", fmt.Errorf("%s is not a shortcut file", path)
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return format.Decode(data)
}
