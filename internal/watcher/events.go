package watcher

import (
	"time"

	"github.com/fsnotify/fsnotify"
)

type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Removes reports whether the event takes the file away from its path.
func (e EventType) Removes() bool {
	return e == EventDelete || e == EventRename
}

type FileEvent struct {
	Path      string
	Type      EventType
	Timestamp time.Time
}

// merge folds a newer event for the same path into an older one. A file
// created and then written within one window is still a creation.
func merge(older, newer FileEvent) FileEvent {
	if older.Type == EventCreate && newer.Type == EventModify {
		newer.Type = EventCreate
	}
	return newer
}

func convertOp(op fsnotify.Op) (EventType, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return EventCreate, true
	case op.Has(fsnotify.Write):
		return EventModify, true
	case op.Has(fsnotify.Remove):
		return EventDelete, true
	case op.Has(fsnotify.Rename):
		return EventRename, true
	default:
		return 0, false
	}
}
