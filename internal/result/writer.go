package result

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Output subdirectories under the writer's root.
const (
	DirAll          = "all"
	DirNGChannel    = "ng_channel"
	DirOKMessage    = "ok_message"
	DirNGMessage    = "ng_message"
	DirWarnMessage  = "warn_message"
	DirUnclassified = "unclassified"
)

// Writer persists a ResultSet as one file per view.
type Writer struct {
	dir         string
	includeWarn bool
}

// NewWriter writes under dir. The warn view is only written when includeWarn is set.
func NewWriter(dir string, includeWarn bool) *Writer {
	return &Writer{dir: dir, includeWarn: includeWarn}
}

// Path returns the file a view of rs is written to.
func (w *Writer) Path(view string, rs *ResultSet) string {
	ext := ".json"
	if view == DirNGChannel {
		ext = ".txt"
	}
	return filepath.Join(w.dir, view, "result_"+rs.VideoID+ext)
}

// Write emits every view of rs.
func (w *Writer) Write(rs *ResultSet) error {
	if rs.VideoID == "" {
		return fmt.Errorf("result: video id is required to name output files")
	}
	if err := w.writeJSON(w.Path(DirAll, rs), rs.All); err != nil {
		return err
	}
	if err := w.writeLines(w.Path(DirNGChannel, rs), rs.NGChannels); err != nil {
		return err
	}
	if err := w.writeJSON(w.Path(DirOKMessage, rs), rs.OK); err != nil {
		return err
	}
	if err := w.writeJSON(w.Path(DirNGMessage, rs), rs.NG); err != nil {
		return err
	}
	if w.includeWarn {
		if err := w.writeJSON(w.Path(DirWarnMessage, rs), rs.Warn); err != nil {
			return err
		}
	}
	return w.writeJSON(w.Path(DirUnclassified, rs), rs.Unclassified)
}

func (w *Writer) writeJSON(path string, v interface{}) error {
	f, err := create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		f.Close()
		return fmt.Errorf("result: encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("result: close %s: %w", path, err)
	}
	return nil
}

func (w *Writer) writeLines(path string, lines []string) error {
	f, err := create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	for _, l := range lines {
		bw.WriteString(l)
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("result: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("result: close %s: %w", path, err)
	}
	return nil
}

func create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("result: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("result: %w", err)
	}
	return f, nil
}
