package sync

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"

	"github.com/bookmirror/bookmirror/internal/bookmark"
	"github.com/bookmirror/bookmirror/internal/mirror"
	"github.com/bookmirror/bookmirror/internal/mirror/mirrortest"
	"github.com/bookmirror/bookmirror/internal/places"
	"github.com/bookmirror/bookmirror/internal/places/placestest"
)

const outDir = "/Bookmarks"

// fakeSource serves a fixed bookmark list.
type fakeSource struct {
	bookmarks []bookmark.Bookmark
	err       error
}

func (f *fakeSource) Snapshot(ctx context.Context, folder string) ([]bookmark.Bookmark, error) {
	return f.bookmarks, f.err
}

func (f *fakeSource) Latest(ctx context.Context, folder string) (*bookmark.Bookmark, error) {
	if f.err != nil || len(f.bookmarks) == 0 {
		return nil, f.err
	}
	latest := f.bookmarks[len(f.bookmarks)-1]
	return &latest, nil
}

// recorder is a Notifier that keeps everything it is told.
type recorder struct {
	items  []ItemResult
	passes []PassResult
}

func (r *recorder) OnItem(passID string, item ItemResult) { r.items = append(r.items, item) }
func (r *recorder) OnPass(result PassResult)              { r.passes = append(r.passes, result) }

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// setupSyncer builds a syncer over an in-memory mirror directory holding files.
func setupSyncer(t *testing.T, src Source, client *http.Client, files ...string) (Syncer, *mirror.Dir, *recorder) {
	t.Helper()

	fs := afero.NewMemMapFs()
	dir := mirror.NewDir(fs, outDir)
	if err := dir.Ensure(); err != nil {
		t.Fatalf("Ensure() failed: %v", err)
	}
	for _, name := range files {
		if err := afero.WriteFile(fs, filepath.Join(outDir, name), []byte("old"), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	m := mirror.NewMaterializer(dir, mirror.Options{
		Format: mirror.Webloc{},
		Client: client,
		Logger: quietLogger(),
	})

	rec := &recorder{}
	s := New(src, dir, m, Config{Folder: "R", Logger: quietLogger(), Notifier: rec})
	return s, dir, rec
}

func dirFiles(t *testing.T, dir *mirror.Dir) []string {
	t.Helper()

	infos, err := afero.ReadDir(dir.Fs(), dir.Path())
	if err != nil {
		t.Fatalf("ReadDir() failed: %v", err)
	}
	names := []string{}
	for _, info := range infos {
		names = append(names, info.Name())
	}
	sort.Strings(names)
	return names
}

func TestSyncAll_Shortcut(t *testing.T) {
	src := &fakeSource{bookmarks: []bookmark.Bookmark{{URL: "https://example.com/a", Title: "Alpha"}}}
	s, dir, rec := setupSyncer(t, src, nil)

	result, err := s.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll() failed: %v", err)
	}
	if result.Added != 1 || result.Failed != 0 {
		t.Errorf("result = %+v, want 1 added", result)
	}

	if diff := cmp.Diff([]string{"Alpha.webloc"}, dirFiles(t, dir)); diff != "" {
		t.Errorf("directory mismatch (-want +got):\n%s", diff)
	}

	url, err := mirror.ReadShortcut(dir.Fs(), filepath.Join(outDir, "Alpha.webloc"))
	if err != nil {
		t.Fatalf("ReadShortcut() failed: %v", err)
	}
	if url != "https://example.com/a" {
		t.Errorf("shortcut URL = %q, want https://example.com/a", url)
	}

	if len(rec.passes) != 1 || len(rec.items) != 1 || rec.items[0].Action != ActionAdded {
		t.Errorf("notifier saw passes=%d items=%+v", len(rec.passes), rec.items)
	}
}

func TestSyncAll_Download(t *testing.T) {
	srv := mirrortest.Server(http.StatusOK, "X")
	defer srv.Close()

	src := &fakeSource{bookmarks: []bookmark.Bookmark{{URL: "https://arxiv.org/pdf/1234", Title: "Paper"}}}
	s, dir, _ := setupSyncer(t, src, mirrortest.Client(srv))

	if _, err := s.SyncAll(context.Background()); err != nil {
		t.Fatalf("SyncAll() failed: %v", err)
	}

	data, err := afero.ReadFile(dir.Fs(), filepath.Join(outDir, "Paper.pdf"))
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	if string(data) != "X" {
		t.Errorf("Paper.pdf = %q, want X", data)
	}
}

func TestSyncAll_RemovesStale(t *testing.T) {
	src := &fakeSource{bookmarks: []bookmark.Bookmark{{URL: "https://example.com/k", Title: "Keep"}}}
	s, dir, _ := setupSyncer(t, src, nil, "Stale.webloc", "Keep.webloc")

	result, err := s.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll() failed: %v", err)
	}
	if result.Removed != 1 || result.Added != 0 {
		t.Errorf("result = %+v, want 1 removed", result)
	}

	if diff := cmp.Diff([]string{"Keep.webloc"}, dirFiles(t, dir)); diff != "" {
		t.Errorf("directory mismatch (-want +got):\n%s", diff)
	}
}

func TestSyncAll_DownloadFailureContinues(t *testing.T) {
	srv := mirrortest.Server(http.StatusNotFound, "nope")
	defer srv.Close()

	src := &fakeSource{bookmarks: []bookmark.Bookmark{
		{URL: "https://example.com/missing.pdf", Title: "Missing"},
		{URL: "https://example.com/a", Title: "Alpha"},
	}}
	s, dir, rec := setupSyncer(t, src, mirrortest.Client(srv))

	result, err := s.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll() failed: %v", err)
	}
	if result.Failed != 1 || result.Added != 1 {
		t.Errorf("result = %+v, want 1 failed and 1 added", result)
	}

	if diff := cmp.Diff([]string{"Alpha.webloc"}, dirFiles(t, dir)); diff != "" {
		t.Errorf("directory mismatch (-want +got):\n%s", diff)
	}

	var failed []string
	for _, item := range rec.items {
		if item.Action == ActionFailed {
			failed = append(failed, item.Title)
		}
	}
	if diff := cmp.Diff([]string{"Missing"}, failed); diff != "" {
		t.Errorf("failed items mismatch (-want +got):\n%s", diff)
	}
}

func TestSyncAll_Idempotent(t *testing.T) {
	src := &fakeSource{bookmarks: []bookmark.Bookmark{
		{URL: "https://example.com/a", Title: "Alpha"},
		{URL: "https://example.com/b", Title: "Beta"},
	}}
	s, dir, _ := setupSyncer(t, src, nil, "Gamma.webloc")

	if _, err := s.SyncAll(context.Background()); err != nil {
		t.Fatalf("first SyncAll() failed: %v", err)
	}

	plan, err := s.Plan(context.Background())
	if err != nil {
		t.Fatalf("Plan() failed: %v", err)
	}
	if !plan.Delta.Empty() {
		t.Errorf("Plan().Delta = %+v, want empty after sync", plan.Delta)
	}

	result, err := s.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("second SyncAll() failed: %v", err)
	}
	if result.Added != 0 || result.Removed != 0 || result.Failed != 0 {
		t.Errorf("second pass = %+v, want no changes", result)
	}

	inv, err := dir.Inventory()
	if err != nil {
		t.Fatalf("Inventory() failed: %v", err)
	}
	if diff := cmp.Diff(bookmark.Titles(src.bookmarks), inv.Stems()); diff != "" {
		t.Errorf("stems mismatch (-want +got):\n%s", diff)
	}
}

func TestSyncAll_LeadingDotTitle(t *testing.T) {
	src := &fakeSource{bookmarks: []bookmark.Bookmark{{URL: "https://example.com/net", Title: ".NET Guide"}}}
	s, dir, _ := setupSyncer(t, src, nil)

	if _, err := s.SyncAll(context.Background()); err != nil {
		t.Fatalf("first SyncAll() failed: %v", err)
	}
	result, err := s.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("second SyncAll() failed: %v", err)
	}
	if result.Added != 0 {
		t.Errorf("second pass added = %d, want 0", result.Added)
	}

	src.bookmarks = nil
	result, err = s.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("third SyncAll() failed: %v", err)
	}
	if result.Removed != 1 {
		t.Errorf("third pass removed = %d, want 1", result.Removed)
	}
	if files := dirFiles(t, dir); len(files) != 0 {
		t.Errorf("directory = %v, want empty", files)
	}
}

func TestSyncAll_DuplicateTitles(t *testing.T) {
	src := &fakeSource{bookmarks: []bookmark.Bookmark{
		{URL: "https://example.com/first", Title: "Same"},
		{URL: "https://example.com/second", Title: "Same"},
	}}
	s, dir, _ := setupSyncer(t, src, nil)

	result, err := s.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll() failed: %v", err)
	}
	if result.Added != 1 || result.Duplicates != 1 {
		t.Errorf("result = %+v, want 1 added and 1 duplicate", result)
	}

	url, err := mirror.ReadShortcut(dir.Fs(), filepath.Join(outDir, "Same.webloc"))
	if err != nil {
		t.Fatalf("ReadShortcut() failed: %v", err)
	}
	if url != "https://example.com/first" {
		t.Errorf("Same.webloc points at %q, want the first bookmark", url)
	}
}

func TestSyncAll_SourceUnavailable(t *testing.T) {
	src := &fakeSource{err: bookmark.ErrSourceUnavailable}
	s, dir, rec := setupSyncer(t, src, nil, "Keep.webloc")

	_, err := s.SyncAll(context.Background())
	if !errors.Is(err, bookmark.ErrSourceUnavailable) {
		t.Fatalf("SyncAll() error = %v, want ErrSourceUnavailable", err)
	}

	// Nothing is removed when the snapshot is unavailable.
	if diff := cmp.Diff([]string{"Keep.webloc"}, dirFiles(t, dir)); diff != "" {
		t.Errorf("directory mismatch (-want +got):\n%s", diff)
	}
	if len(rec.passes) != 0 {
		t.Errorf("notifier saw %d passes, want 0", len(rec.passes))
	}
}

func TestSyncAll_DirectoryUnavailable(t *testing.T) {
	src := &fakeSource{}
	dir := mirror.NewDir(afero.NewMemMapFs(), "/missing")
	m := mirror.NewMaterializer(dir, mirror.Options{Logger: quietLogger()})
	s := New(src, dir, m, Config{Folder: "R", Logger: quietLogger()})

	_, err := s.SyncAll(context.Background())
	if !errors.Is(err, bookmark.ErrDirectoryUnavailable) {
		t.Fatalf("SyncAll() error = %v, want ErrDirectoryUnavailable", err)
	}
}

func TestSyncLatest(t *testing.T) {
	src := &fakeSource{bookmarks: []bookmark.Bookmark{
		{URL: "https://example.com/old", Title: "Old"},
		{URL: "https://example.com/new", Title: "New"},
	}}
	s, dir, _ := setupSyncer(t, src, nil, "Stale.webloc")

	result, err := s.SyncLatest(context.Background())
	if err != nil {
		t.Fatalf("SyncLatest() failed: %v", err)
	}
	if result.Mode != ModeLatest || result.Added != 1 || result.Removed != 0 {
		t.Errorf("result = %+v, want latest pass with 1 added", result)
	}

	// Only the newest bookmark is added and nothing is removed.
	if diff := cmp.Diff([]string{"New.webloc", "Stale.webloc"}, dirFiles(t, dir)); diff != "" {
		t.Errorf("directory mismatch (-want +got):\n%s", diff)
	}

	result, err = s.SyncLatest(context.Background())
	if err != nil {
		t.Fatalf("second SyncLatest() failed: %v", err)
	}
	if result.Added != 0 {
		t.Errorf("second SyncLatest() added %d, want 0", result.Added)
	}
}

func TestSyncLatest_EmptyFolder(t *testing.T) {
	s, _, _ := setupSyncer(t, &fakeSource{}, nil)

	result, err := s.SyncLatest(context.Background())
	if err != nil {
		t.Fatalf("SyncLatest() failed: %v", err)
	}
	if result.Bookmarks != 0 || result.Added != 0 {
		t.Errorf("result = %+v, want empty pass", result)
	}
}

func TestSyncAll_PlacesDatabase(t *testing.T) {
	db := placestest.New(t, t.TempDir())
	folder := db.Folder("R", places.ToolbarRoot)
	db.Add(folder,
		placestest.Entry{URL: "https://example.com/a", Title: "Alpha"},
		placestest.Entry{URL: "https://example.com/b", Title: "Beta"},
	)

	src := places.NewSource(db.Path)
	src.TempDir = t.TempDir()
	s, dir, _ := setupSyncer(t, src, nil)

	if _, err := s.SyncAll(context.Background()); err != nil {
		t.Fatalf("SyncAll() failed: %v", err)
	}
	if diff := cmp.Diff([]string{"Alpha.webloc", "Beta.webloc"}, dirFiles(t, dir)); diff != "" {
		t.Errorf("directory mismatch (-want +got):\n%s", diff)
	}

	// Deleting a bookmark in the browser removes its file on the next pass.
	db.Remove("Alpha")
	if _, err := s.SyncAll(context.Background()); err != nil {
		t.Fatalf("SyncAll() failed: %v", err)
	}
	if diff := cmp.Diff([]string{"Beta.webloc"}, dirFiles(t, dir)); diff != "" {
		t.Errorf("directory mismatch (-want +got):\n%s", diff)
	}
}
