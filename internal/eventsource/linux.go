//go:build linux

package eventsource

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/lanternops/display-helper-core/internal/backend"
)

// drmStatusGlob matches every connector's status file; each write (and,
// more commonly, the CHANGE event udev triggers on these files) is a
// connector hotplug/mode signal.
const drmStatusGlob = "/sys/class/drm/*/status"

// LinuxEventSource watches every DRM connector's status file for
// hotplug/mode-change notifications via inotify.
type LinuxEventSource struct {
	watcher *fsnotify.Watcher
	events  chan backend.DisplayEvent
	done    chan struct{}
}

// NewLinuxEventSource globs drmStatusGlob and starts watching each match.
func NewLinuxEventSource() (*LinuxEventSource, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	matches, err := filepath.Glob(drmStatusGlob)
	if err != nil {
		watcher.Close()
		return nil, err
	}
	for _, path := range matches {
		if err := watcher.Add(path); err != nil {
			log.Warn("failed to watch connector status file", "path", path, "error", err)
		}
	}

	s := &LinuxEventSource{
		watcher: watcher,
		events:  make(chan backend.DisplayEvent, 16),
		done:    make(chan struct{}),
	}
	go s.run()
	return s, nil
}

func (s *LinuxEventSource) run() {
	defer close(s.events)
	for {
		select {
		case evt, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			select {
			case s.events <- backend.DisplayEvent{Kind: backend.EventModeChange}:
			default:
				log.Warn("event channel full, dropping connector status change")
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("fsnotify watcher error", "error", err)
		case <-s.done:
			return
		}
	}
}

func (s *LinuxEventSource) Events() <-chan backend.DisplayEvent {
	return s.events
}

func (s *LinuxEventSource) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return s.watcher.Close()
}
