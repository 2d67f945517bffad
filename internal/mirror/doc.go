// Package mirror manages the flat output directory that mirrors a bookmark folder.
//
// Each bookmark becomes exactly one file named after its title:
//
//   - links that look like documents (see Classifier) are downloaded to <title>.pdf
//   - everything else becomes a shortcut file (<title>.webloc or <title>.url)
//
// The directory itself is the only record of what has been synced. An
// Inventory lists it by stem, Diff compares the stems with a snapshot, and
// the Materializer and Dir.Remove apply the result.
//
// All file access goes through an afero.Fs so the package runs unchanged
// against an in-memory file system in tests:
//
//	dir := mirror.NewDir(afero.NewOsFs(), "/path/to/Bookmarks")
//	inv, err := dir.Inventory()
//	if err != nil {
//	    return err
//	}
//	delta := mirror.Diff(bookmarks, inv.Stems())
//
// Files are written to a hidden temporary name and renamed into place once
// complete, so a failed download never leaves a partial file behind.
package mirror
