package corpus

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// walkFiles returns every regular file under dir in lexical order, skipping .gitkeep
// placeholders. A missing dir is an error.
func walkFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("corpus: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus: %s is not a directory", dir)
	}
	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if d.Name() == ".gitkeep" || strings.HasSuffix(d.Name(), ".gitkeep") {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("corpus: walk %s: %w", dir, err)
	}
	return files, nil
}

// ReadLines collects the distinct non-blank lines of every file under dir,
// in file order then line order.
func ReadLines(dir string) ([]string, error) {
	files, err := walkFiles(dir)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var out []string
	for _, path := range files {
		if err := scanLines(path, func(line string) {
			if strings.TrimSpace(line) == "" {
				return
			}
			if _, ok := seen[line]; ok {
				return
			}
			seen[line] = struct{}{}
			out = append(out, line)
		}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func scanLines(path string, fn func(string)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("corpus: %w", err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		fn(strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("corpus: read %s: %w", path, err)
	}
	return nil
}

// LoadPhraseCatalog reads literal NG phrases, one per line. Each phrase is its own key.
func LoadPhraseCatalog(dir string) (*Catalog, error) {
	lines, err := ReadLines(dir)
	if err != nil {
		return nil, err
	}
	patterns := make([]Pattern, len(lines))
	for i, l := range lines {
		patterns[i] = Pattern{Key: l, Text: l}
	}
	return NewCatalog(patterns), nil
}

// LoadFileCatalog reads one pattern per file, keyed by its path.
// Empty files are skipped.
func LoadFileCatalog(dir string) (*Catalog, error) {
	files, err := walkFiles(dir)
	if err != nil {
		return nil, err
	}
	var patterns []Pattern
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("corpus: %w", err)
		}
		text := strings.TrimRight(string(data), "\r\n")
		if strings.TrimSpace(text) == "" {
			continue
		}
		patterns = append(patterns, Pattern{Key: path, Text: text})
	}
	return NewCatalog(patterns), nil
}

// LoadBlocklist reads channel identifiers, one per line.
func LoadBlocklist(dir string) (*Blocklist, error) {
	lines, err := ReadLines(dir)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = strings.TrimSpace(l)
	}
	return NewBlocklist(ids), nil
}
