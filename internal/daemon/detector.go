package daemon

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/bookmirror/bookmirror/internal/bookmark"
	"github.com/bookmirror/bookmirror/internal/places"
)

// State is the detector's view of the source database.
type State int

const (
	// StateIdle means nothing changed since the last acknowledged pass.
	StateIdle State = iota
	// StateChanged means the modification signal moved and no pass has
	// consumed it yet.
	StateChanged
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChanged:
		return "changed"
	default:
		return "unknown"
	}
}

// Change describes a detected modification of the source database.
type Change struct {
	// Previous is the signal recorded by the last acknowledged pass.
	Previous time.Time
	// Observed is the signal seen by the check that reported the change.
	Observed time.Time
}

// Detector tracks the modification signal of places.sqlite.
//
// The signal is the newest modification time of the database and its
// write-ahead log. Any difference from the recorded value counts as a
// change, including a clock moving backwards.
type Detector struct {
	fs   afero.Fs
	path string

	mu      sync.Mutex
	last    time.Time
	state   State
	pending Change
}

// NewDetector records the current signal of the database at path.
// No change is reported for the state found at startup.
func NewDetector(fs afero.Fs, path string) (*Detector, error) {
	d := &Detector{fs: fs, path: path}
	signal, err := d.Signal()
	if err != nil {
		return nil, err
	}
	d.last = signal
	return d, nil
}

// Path returns the watched database path.
func (d *Detector) Path() string {
	return d.path
}

// State returns the current state.
func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Signal reads the current modification signal.
// A missing write-ahead log is not an error; a missing database is.
func (d *Detector) Signal() (time.Time, error) {
	info, err := d.fs.Stat(d.path)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", bookmark.ErrSourceUnavailable, err)
	}
	signal := info.ModTime()

	wal, err := d.fs.Stat(d.path + places.WALSuffix)
	switch {
	case err == nil:
		if wal.ModTime().After(signal) {
			signal = wal.ModTime()
		}
	case !os.IsNotExist(err):
		return time.Time{}, fmt.Errorf("%w: %v", bookmark.ErrSourceUnavailable, err)
	}

	return signal, nil
}

// Check polls the signal. It reports a change while the detector is in
// StateChanged, so an unacknowledged change is reported again on the next
// check with the latest observed signal.
func (d *Detector) Check() (Change, bool, error) {
	signal, err := d.Signal()
	if err != nil {
		return Change{}, false, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !signal.Equal(d.last) {
		d.state = StateChanged
		d.pending = Change{Previous: d.last, Observed: signal}
	}
	if d.state != StateChanged {
		return Change{}, false, nil
	}
	return d.pending, true, nil
}

// Ack records that a pass consumed change. The detector returns to
// StateIdle unless the signal moved again after change was observed, in
// which case the next Check reports the newer change.
func (d *Detector) Ack(change Change) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.last = change.Observed
	if d.pending.Observed.Equal(change.Observed) {
		d.state = StateIdle
	}
}
