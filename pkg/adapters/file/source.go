package file

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/slotflow/internal/compiler"
	"github.com/aretw0/slotflow/internal/logging"
	"github.com/aretw0/slotflow/pkg/domain"
)

// defaultDebounce coalesces the burst of events editors emit on save.
const defaultDebounce = 150 * time.Millisecond

// Source implements ports.GraphSource and ports.Watchable over a single graph
// file or a directory of graph files. Files of a directory are merged in
// lexical order.
type Source struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithDebounce overrides the delay between a file event and the reload signal.
func WithDebounce(d time.Duration) SourceOption {
	return func(s *Source) {
		s.debounce = d
	}
}

// WithSourceLogger sets the logger used by the watcher.
func WithSourceLogger(l *slog.Logger) SourceOption {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSource creates a source reading path, a file or a directory.
func NewSource(path string, opts ...SourceOption) *Source {
	s := &Source{
		path:     path,
		debounce: defaultDebounce,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the watched path.
func (s *Source) Path() string {
	return s.path
}

// Load reads and compiles the graph.
func (s *Source) Load(ctx context.Context) (*domain.Graph, error) {
	files, err := s.files()
	if err != nil {
		return nil, err
	}

	graphs := make([]*domain.Graph, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read graph file: %w", err)
		}
		g, err := compiler.Parse(data, compiler.FormatFromPath(path))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		graphs = append(graphs, g)
	}
	return compiler.Merge(graphs...)
}

func (s *Source) files() ([]string, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat graph path: %w", err)
	}
	if !info.IsDir() {
		return []string{s.path}, nil
	}

	entries, err := os.ReadDir(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph directory: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !compiler.IsGraphFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(s.path, entry.Name()))
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no graph files in %s", s.path)
	}
	return files, nil
}

// Watch signals on the returned channel after graph files change. The channel
// is closed when ctx ends or the watcher fails.
func (s *Source) Watch(ctx context.Context) (<-chan struct{}, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat graph path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	// A single file is watched through its directory so editors that replace
	// the file on save keep being tracked.
	dir, target := s.path, ""
	if !info.IsDir() {
		dir, target = filepath.Dir(s.path), filepath.Clean(s.path)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	ch := make(chan struct{}, 1)
	go s.loop(ctx, watcher, target, ch)
	return ch, nil
}

func (s *Source) loop(ctx context.Context, watcher *fsnotify.Watcher, target string, ch chan<- struct{}) {
	defer close(ch)
	defer watcher.Close()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !s.relevant(event, target) {
				continue
			}
			timer.Reset(s.debounce)
		case <-timer.C:
			select {
			case ch <- struct{}{}:
			default:
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("graph watcher error", "path", s.path, "error", err)
		}
	}
}

func (s *Source) relevant(event fsnotify.Event, target string) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	if target != "" {
		return filepath.Clean(event.Name) == target
	}
	return compiler.IsGraphFile(event.Name)
}
