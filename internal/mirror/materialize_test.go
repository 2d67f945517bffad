package mirror

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/bookmirror/bookmirror/internal/bookmark"
	"github.com/bookmirror/bookmirror/internal/mirror/mirrortest"
)

func newTestMaterializer(t *testing.T, dir *Dir, client *http.Client) *Materializer {
	t.Helper()

	return NewMaterializer(dir, Options{
		Format: Webloc{},
		Client: client,
		Logger: log.New(io.Discard, "", 0),
	})
}

func listFiles(t *testing.T, dir *Dir) []string {
	t.Helper()

	infos, err := afero.ReadDir(dir.Fs(), dir.Path())
	if err != nil {
		t.Fatalf("ReadDir() failed: %v", err)
	}
	var names []string
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names
}

func TestMaterialize_Shortcut(t *testing.T) {
	dir := setupDir(t)
	m := newTestMaterializer(t, dir, nil)

	b := bookmark.Bookmark{URL: "https://example.com/a", Title: "Alpha"}
	entry, err := m.Materialize(context.Background(), b)
	if err != nil {
		t.Fatalf("Materialize() failed: %v", err)
	}

	if entry.Name != "Alpha.webloc" || entry.Kind != KindLink || entry.Stem != "Alpha" {
		t.Errorf("Materialize() = %+v, want Alpha.webloc link", entry)
	}

	files := listFiles(t, dir)
	if len(files) != 1 || files[0] != "Alpha.webloc" {
		t.Fatalf("directory = %v, want [Alpha.webloc]", files)
	}

	got, err := ReadShortcut(dir.Fs(), filepath.Join(testDir, "Alpha.webloc"))
	if err != nil {
		t.Fatalf("ReadShortcut() failed: %v", err)
	}
	if got != b.URL {
		t.Errorf("ReadShortcut() = %q, want %q", got, b.URL)
	}
}

func TestMaterialize_InternetShortcut(t *testing.T) {
	dir := setupDir(t)
	m := NewMaterializer(dir, Options{Format: InternetShortcut{}, Logger: log.New(io.Discard, "", 0)})

	b := bookmark.Bookmark{URL: "https://example.com/a", Title: "Alpha"}
	entry, err := m.Materialize(context.Background(), b)
	if err != nil {
		t.Fatalf("Materialize() failed: %v", err)
	}
	if entry.Name != "Alpha.url" {
		t.Errorf("Name = %q, want Alpha.url", entry.Name)
	}

	got, err := ReadShortcut(dir.Fs(), filepath.Join(testDir, entry.Name))
	if err != nil {
		t.Fatalf("ReadShortcut() failed: %v", err)
	}
	if got != b.URL {
		t.Errorf("ReadShortcut() = %q, want %q", got, b.URL)
	}
}

func TestMaterialize_Download(t *testing.T) {
	var gotPath, gotScheme string
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.TLS != nil {
			gotScheme = "https"
		}
		_, _ = w.Write([]byte("X"))
	}))
	defer srv.Close()

	dir := setupDir(t)
	m := newTestMaterializer(t, dir, mirrortest.Client(srv))

	b := bookmark.Bookmark{URL: "https://arxiv.org/pdf/1234", Title: "Paper"}
	entry, err := m.Materialize(context.Background(), b)
	if err != nil {
		t.Fatalf("Materialize() failed: %v", err)
	}

	if entry.Name != "Paper.pdf" || entry.Kind != KindDocument || entry.Size != 1 {
		t.Errorf("Materialize() = %+v, want Paper.pdf document of 1 byte", entry)
	}
	if gotPath != "/pdf/1234" || gotScheme != "https" {
		t.Errorf("request = %s %s, want https /pdf/1234", gotScheme, gotPath)
	}

	data, err := afero.ReadFile(dir.Fs(), filepath.Join(testDir, "Paper.pdf"))
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	if string(data) != "X" {
		t.Errorf("Paper.pdf = %q, want %q", data, "X")
	}
}

func TestMaterialize_UpgradesHTTP(t *testing.T) {
	srv := mirrortest.Server(http.StatusOK, "doc")
	defer srv.Close()

	dir := setupDir(t)
	m := newTestMaterializer(t, dir, mirrortest.Client(srv))

	b := bookmark.Bookmark{URL: "http://example.com/file.PDF", Title: "Plain"}
	if _, err := m.Materialize(context.Background(), b); err != nil {
		t.Fatalf("Materialize() failed: %v", err)
	}
	if ok, _ := afero.Exists(dir.Fs(), filepath.Join(testDir, "Plain.pdf")); !ok {
		t.Error("Plain.pdf was not written")
	}
}

func TestMaterialize_RejectsInsecureRedirect(t *testing.T) {
	var plainHits int
	plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		plainHits++
		_, _ = w.Write([]byte("PLAINTEXT"))
	}))
	defer plain.Close()

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, plain.URL+"/paper.pdf", http.StatusFound)
	}))
	defer srv.Close()

	dir := setupDir(t)
	m := newTestMaterializer(t, dir, mirrortest.Client(srv))

	b := bookmark.Bookmark{URL: "https://arxiv.org/pdf/1234", Title: "Paper"}
	if _, err := m.Materialize(context.Background(), b); !errors.Is(err, bookmark.ErrNetwork) {
		t.Fatalf("Materialize() error = %v, want ErrNetwork", err)
	}
	if plainHits != 0 {
		t.Errorf("plain server hits = %d, want 0", plainHits)
	}
	if files := listFiles(t, dir); len(files) != 0 {
		t.Errorf("directory = %v, want empty", files)
	}
}

func TestMaterialize_FollowsSecureRedirect(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/final.pdf" {
			_, _ = w.Write([]byte("X"))
			return
		}
		http.Redirect(w, r, "https://example.com/final.pdf", http.StatusFound)
	}))
	defer srv.Close()

	dir := setupDir(t)
	m := newTestMaterializer(t, dir, mirrortest.Client(srv))

	b := bookmark.Bookmark{URL: "https://arxiv.org/pdf/1234", Title: "Paper"}
	if _, err := m.Materialize(context.Background(), b); err != nil {
		t.Fatalf("Materialize() failed: %v", err)
	}
	if ok, _ := afero.Exists(dir.Fs(), filepath.Join(testDir, "Paper.pdf")); !ok {
		t.Error("Paper.pdf was not written")
	}
}

func TestMaterialize_NonSuccessStatus(t *testing.T) {
	srv := mirrortest.Server(http.StatusNotFound, "missing")
	defer srv.Close()

	dir := setupDir(t)
	m := newTestMaterializer(t, dir, mirrortest.Client(srv))

	b := bookmark.Bookmark{URL: "https://example.com/gone.pdf", Title: "Gone"}
	_, err := m.Materialize(context.Background(), b)
	if !errors.Is(err, bookmark.ErrNonSuccessStatus) {
		t.Fatalf("Materialize() error = %v, want ErrNonSuccessStatus", err)
	}

	var se *bookmark.StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Errorf("StatusError = %v, want code 404", se)
	}

	if files := listFiles(t, dir); len(files) != 0 {
		t.Errorf("directory = %v, want empty", files)
	}
}

func TestMaterialize_NetworkError(t *testing.T) {
	srv := mirrortest.Server(http.StatusOK, "never")
	client := mirrortest.Client(srv)
	srv.Close()

	dir := setupDir(t)
	m := newTestMaterializer(t, dir, client)

	b := bookmark.Bookmark{URL: "https://example.com/a.pdf", Title: "Down"}
	if _, err := m.Materialize(context.Background(), b); !errors.Is(err, bookmark.ErrNetwork) {
		t.Fatalf("Materialize() error = %v, want ErrNetwork", err)
	}
	if files := listFiles(t, dir); len(files) != 0 {
		t.Errorf("directory = %v, want empty", files)
	}
}

func TestMaterialize_TruncatedBodyLeavesNoFile(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Promise more than is sent so the client sees an unexpected EOF.
		w.Header().Set("Content-Length", "100")
		_, _ = w.Write([]byte("partial"))
	}))
	defer srv.Close()

	dir := setupDir(t)
	m := newTestMaterializer(t, dir, mirrortest.Client(srv))

	b := bookmark.Bookmark{URL: "https://example.com/a.pdf", Title: "Cut"}
	if _, err := m.Materialize(context.Background(), b); !errors.Is(err, bookmark.ErrNetwork) {
		t.Fatalf("Materialize() error = %v, want ErrNetwork", err)
	}
	if files := listFiles(t, dir); len(files) != 0 {
		t.Errorf("directory = %v, want empty", files)
	}
}

func TestMaterialize_InvalidTitle(t *testing.T) {
	dir := setupDir(t)
	m := newTestMaterializer(t, dir, nil)

	for _, title := range []string{"", "  ", ".", "..", "a/b", `a\b`, ".bookmirror-1"} {
		b := bookmark.Bookmark{URL: "https://example.com/a", Title: title}
		if _, err := m.Materialize(context.Background(), b); !errors.Is(err, bookmark.ErrInvalidTitle) {
			t.Errorf("Materialize(%q) error = %v, want ErrInvalidTitle", title, err)
		}
	}
	if files := listFiles(t, dir); len(files) != 0 {
		t.Errorf("directory = %v, want empty", files)
	}
}

func TestMaterialize_LeadingDotTitle(t *testing.T) {
	dir := setupDir(t)
	m := newTestMaterializer(t, dir, nil)

	b := bookmark.Bookmark{URL: "https://example.com/net", Title: ".NET Guide"}
	if _, err := m.Materialize(context.Background(), b); err != nil {
		t.Fatalf("Materialize() failed: %v", err)
	}

	inv, err := dir.Inventory()
	if err != nil {
		t.Fatalf("Inventory() failed: %v", err)
	}
	if !inv.Has(".NET Guide") {
		t.Errorf("Inventory() = %v, want .NET Guide present", inv.Stems())
	}
}
