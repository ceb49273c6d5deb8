package file

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/corvuslabs/ingestd/internal/core/domain"
	"github.com/corvuslabs/ingestd/internal/core/ports/driven"
)

var _ driven.SourceProvider = (*Provider)(nil)

// Provider serves the current source set from the configuration file and
// hot-reloads it when the file changes. Scheduler settings are not
// reloaded; changing them requires a restart.
type Provider struct {
	path string
	log  *zap.Logger

	mu      sync.RWMutex
	sources []domain.SourceInstance
}

// NewProvider loads the configuration once and returns the provider plus
// the initial parse for settings the caller wires at startup.
func NewProvider(path string, log *zap.Logger) (*Provider, *Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, nil, err
	}
	p := &Provider{path: path, log: log, sources: cfg.Instances()}
	return p, cfg, nil
}

// Sources returns the current source set in configuration order.
func (p *Provider) Sources() []domain.SourceInstance {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.SourceInstance, len(p.sources))
	copy(out, p.sources)
	return out
}

// Watch reloads the source set whenever the configuration file changes,
// until the context is cancelled. A file that fails to parse keeps the
// previous set in place. The watch is registered before Watch blocks, so
// changes made after Watch returns control to a goroutine are never missed
// once openWatcher has completed.
func (p *Provider) Watch(ctx context.Context) error {
	watcher, err := p.openWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	return p.consume(ctx, watcher)
}

// openWatcher registers the config directory with fsnotify. Watching the
// directory rather than the file matters: editors and config management
// tools replace the file rather than writing it in place.
func (p *Provider) openWatcher() (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch config dir: %w", err)
	}
	return watcher, nil
}

func (p *Provider) consume(ctx context.Context, watcher *fsnotify.Watcher) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(p.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			p.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.log.Warn("config watcher error", zap.Error(err))
		}
	}
}

func (p *Provider) reload() {
	cfg, err := Load(p.path)
	if err != nil {
		p.log.Warn("config reload failed, keeping previous sources",
			zap.String("path", p.path), zap.Error(err))
		return
	}

	sources := cfg.Instances()
	p.mu.Lock()
	p.sources = sources
	p.mu.Unlock()
	p.log.Info("config reloaded", zap.Int("sources", len(sources)))
}
