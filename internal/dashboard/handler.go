package dashboard

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/bookmirror/bookmirror/internal/daemon"
	bsync "github.com/bookmirror/bookmirror/internal/sync"
)

// ChangeData describes a detected database change.
type ChangeData struct {
	Previous time.Time `json:"previous"`
	Observed time.Time `json:"observed"`
}

// ItemData is the outcome for a single bookmark or stale file.
type ItemData struct {
	PassID string `json:"pass_id"`
	bsync.ItemResult
}

// SyncCompleteData summarizes a finished pass.
type SyncCompleteData struct {
	PassID     string        `json:"pass_id"`
	Mode       bsync.Mode    `json:"mode"`
	Bookmarks  int           `json:"bookmarks"`
	Added      int           `json:"added"`
	Removed    int           `json:"removed"`
	Failed     int           `json:"failed"`
	Duplicates int           `json:"duplicates"`
	Duration   time.Duration `json:"duration"`
}

// StatsData holds totals since the handler was created.
type StatsData struct {
	Changes  int       `json:"changes"`
	Passes   int       `json:"passes"`
	Added    int       `json:"added"`
	Removed  int       `json:"removed"`
	Failed   int       `json:"failed"`
	LastPass time.Time `json:"last_pass"`
}

// Handler turns daemon and syncer callbacks into dashboard messages.
// It satisfies both sync.Notifier and daemon.ChangeNotifier.
type Handler struct {
	server *Server
	logger *log.Logger

	mu    sync.Mutex
	stats StatsData
}

var (
	_ bsync.Notifier        = (*Handler)(nil)
	_ daemon.ChangeNotifier = (*Handler)(nil)
)

// NewHandler creates a handler broadcasting on server. New clients are
// greeted with the current totals. Call it before server.Start.
func NewHandler(server *Server, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}

	h := &Handler{server: server, logger: logger}
	server.welcome = h.statsMessage
	return h
}

// OnChange implements daemon.ChangeNotifier.
func (h *Handler) OnChange(change daemon.Change) {
	h.mu.Lock()
	h.stats.Changes++
	h.mu.Unlock()

	h.send(MessageTypeChangeDetected, ChangeData{Previous: change.Previous, Observed: change.Observed})
}

// OnItem implements sync.Notifier.
func (h *Handler) OnItem(passID string, item bsync.ItemResult) {
	h.send(MessageTypeItemSynced, ItemData{PassID: passID, ItemResult: item})
}

// OnPass implements sync.Notifier.
func (h *Handler) OnPass(result bsync.PassResult) {
	h.mu.Lock()
	h.stats.Passes++
	h.stats.Added += result.Added
	h.stats.Removed += result.Removed
	h.stats.Failed += result.Failed
	h.stats.LastPass = result.Started.Add(result.Duration)
	h.mu.Unlock()

	h.send(MessageTypeSyncComplete, SyncCompleteData{
		PassID:     result.ID,
		Mode:       result.Mode,
		Bookmarks:  result.Bookmarks,
		Added:      result.Added,
		Removed:    result.Removed,
		Failed:     result.Failed,
		Duplicates: result.Duplicates,
		Duration:   result.Duration,
	})
	h.server.Broadcast(h.statsMessage())
}

// GetStats returns the current totals.
func (h *Handler) GetStats() StatsData {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

func (h *Handler) statsMessage() Message {
	stats := h.GetStats()
	data, err := json.Marshal(stats)
	if err != nil {
		h.logger.Printf("Failed to marshal stats: %v", err)
	}
	return Message{Type: MessageTypeStats, Timestamp: time.Now(), Data: data}
}

func (h *Handler) send(typ MessageType, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Printf("Failed to marshal %s data: %v", typ, err)
		return
	}
	h.server.Broadcast(Message{Type: typ, Timestamp: time.Now(), Data: data})
}
