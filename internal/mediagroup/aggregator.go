// Package mediagroup collects the documents of one Telegram album and hands
// them over as a single batch once no new item has arrived for the debounce
// window, or as soon as the album reaches MaxFiles.
package mediagroup

import (
	"sync"
	"time"
)

const (
	DefaultDebounce = 1200 * time.Millisecond
	// DefaultMaxFiles is Telegram's album size limit.
	DefaultMaxFiles = 10
)

type Item struct {
	ChatID       int64
	UserID       int64
	Username     string
	MediaGroupID string
	Caption      string
	FileID       string
	FileName     string
}

type File struct {
	ID   string
	Name string
}

// Group is one album ready for import, files in arrival order.
type Group struct {
	ChatID   int64
	UserID   int64
	Username string
	Caption  string
	Files    []File
}

type Options struct {
	Debounce time.Duration
	MaxFiles int
	OnFlush  func(Group)
}

type albumKey struct {
	chatID  int64
	albumID string
}

type album struct {
	group Group
	timer *time.Timer
}

type Aggregator struct {
	debounce time.Duration
	maxFiles int
	onFlush  func(Group)

	mu      sync.Mutex
	albums  map[albumKey]*album
	stopped bool
}

func New(opts Options) *Aggregator {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	maxFiles := opts.MaxFiles
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}

	return &Aggregator{
		debounce: debounce,
		maxFiles: maxFiles,
		onFlush:  opts.OnFlush,
		albums:   make(map[albumKey]*album),
	}
}

// Add appends item to its album and restarts the album's timer. Items without
// an album or file id, and items arriving after Stop, are ignored.
func (a *Aggregator) Add(item Item) {
	if item.MediaGroupID == "" || item.FileID == "" {
		return
	}
	key := albumKey{chatID: item.ChatID, albumID: item.MediaGroupID}

	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}

	al, ok := a.albums[key]
	if !ok {
		al = &album{group: Group{
			ChatID:   item.ChatID,
			UserID:   item.UserID,
			Username: item.Username,
		}}
		a.albums[key] = al
	}
	al.group.Files = append(al.group.Files, File{ID: item.FileID, Name: item.FileName})
	if item.Caption != "" {
		al.group.Caption = item.Caption
	}

	if al.timer != nil {
		al.timer.Stop()
	}
	full := len(al.group.Files) >= a.maxFiles
	if !full {
		al.timer = time.AfterFunc(a.debounce, func() { a.flush(key) })
	}
	a.mu.Unlock()

	if full {
		a.flush(key)
	}
}

// Pending reports how many albums are still waiting for their window to close.
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.albums)
}

// Stop cancels every pending timer and drops the albums without flushing.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopped = true
	for key, al := range a.albums {
		if al.timer != nil {
			al.timer.Stop()
		}
		delete(a.albums, key)
	}
}

func (a *Aggregator) flush(key albumKey) {
	a.mu.Lock()
	al, ok := a.albums[key]
	if ok {
		delete(a.albums, key)
	}
	a.mu.Unlock()

	if ok && a.onFlush != nil {
		a.onFlush(al.group)
	}
}
