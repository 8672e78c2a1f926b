// Package ingest loads captured live chat sessions from disk.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/gyaneshwarpardhi/ngjudge/internal/event"
)

// page is the envelope of a liveChatMessages.list response.
type page struct {
	Items []map[string]interface{} `json:"items"`
}

// DecodeItems decodes one response body into events, in item order.
func DecodeItems(r io.Reader) ([]*event.ChatEvent, error) {
	var p page
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("ingest: decode: %w", err)
	}
	out := make([]*event.ChatEvent, 0, len(p.Items))
	for i, item := range p.Items {
		ev, err := event.FromRaw(item)
		if err != nil {
			return nil, fmt.Errorf("ingest: item %d: %w", i, err)
		}
		out = append(out, ev)
	}
	return out, nil
}

// Session accumulates events by id. A repeated id keeps its first position and takes
// the latest record.
type Session struct {
	order []string
	byID  map[string]*event.ChatEvent
}

func NewSession() *Session {
	return &Session{byID: make(map[string]*event.ChatEvent)}
}

// Add merges events into the session and returns how many ids were already present.
func (s *Session) Add(events []*event.ChatEvent) int {
	dups := 0
	for _, ev := range events {
		if _, ok := s.byID[ev.ID]; ok {
			dups++
		} else {
			s.order = append(s.order, ev.ID)
		}
		s.byID[ev.ID] = ev
	}
	return dups
}

// Events returns the merged events in first-seen order.
func (s *Session) Events() []*event.ChatEvent {
	out := make([]*event.ChatEvent, len(s.order))
	for i, id := range s.order {
		out[i] = s.byID[id]
	}
	return out
}

// Len is the number of distinct events merged so far.
func (s *Session) Len() int { return len(s.order) }

// LoadSession reads every response file under dir (recursively, lexical order,
// .gitkeep skipped) and merges them by event id. Files are decoded concurrently but
// merged in path order.
func LoadSession(ctx context.Context, dir string, logger *slog.Logger) ([]*event.ChatEvent, error) {
	if logger == nil {
		logger = slog.Default()
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("ingest: %s is not a directory", dir)
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() || strings.HasSuffix(d.Name(), ".gitkeep") {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ingest: walk %s: %w", dir, err)
	}

	pages := make([][]*event.ChatEvent, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(readers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			events, err := decodeFile(path)
			if err != nil {
				return err
			}
			pages[i] = events
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ingest: load %s: %w", dir, err)
	}

	sess := NewSession()
	for i, events := range pages {
		if dups := sess.Add(events); dups > 0 {
			logger.Debug("merged duplicate events", "file", paths[i], "duplicates", dups)
		}
	}
	logger.Debug("session merged", "dir", dir, "files", len(paths), "events", sess.Len())
	return sess.Events(), nil
}

// readers bounds concurrent file decoding.
const readers = 8

func decodeFile(path string) ([]*event.ChatEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	events, err := DecodeItems(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return events, nil
}
