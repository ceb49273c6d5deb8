// Package localfiles syncs plain files from a directory tree. Change
// detection keys off file modification times, so the cursor is a
// timestamp watermark plus an in-walk pagination bookmark.
package localfiles

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/corvuslabs/ingestd/internal/core/domain"
	"github.com/corvuslabs/ingestd/internal/core/ports/driven"
)

// DefaultBatchSize bounds items per batch when the source sets none.
const DefaultBatchSize = 100

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Connector reads documents from the local filesystem.
type Connector struct{}

// New creates a local files connector.
func New() *Connector {
	return &Connector{}
}

// Type returns the connector type identifier.
func (c *Connector) Type() domain.SourceType {
	return domain.SourceLocalFiles
}

// FetchBatch walks the configured root and returns files modified after the
// cursor's watermark, ordered by path. Filesystem errors on individual
// entries are fatal only at the root; an unreadable subtree fails the run
// so the operator notices instead of silently missing documents.
func (c *Connector) FetchBatch(ctx context.Context, source domain.SourceInstance, position string) (*driven.Batch, error) {
	cursor, err := DecodeCursor(position)
	if err != nil {
		return nil, fmt.Errorf("decode position: %w", err)
	}

	root, err := ResolveRoot(source.Option("root", ""))
	if err != nil {
		return nil, domain.Fatal(fmt.Errorf("resolve root: %w", err))
	}

	extensions := parseExtensions(source.Option("extensions", ""))

	changed, err := collectChanged(ctx, root, cursor.Since, extensions)
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	// Resume past what the previous batch already delivered.
	start := 0
	if cursor.After != "" {
		start = sort.Search(len(changed), func(i int) bool {
			return changed[i].path > cursor.After
		})
	}

	batchSize := source.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	end := start + batchSize
	hasMore := end < len(changed)
	if !hasMore {
		end = len(changed)
	}

	batch := &driven.Batch{HasMore: hasMore}
	maxSeen := cursor.MaxSeen
	for _, entry := range changed[start:end] {
		body, err := os.ReadFile(entry.path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.path, err)
		}
		rel, err := filepath.Rel(root, entry.path)
		if err != nil {
			rel = entry.path
		}
		batch.Items = append(batch.Items, domain.RawItem{
			ExternalID: rel,
			Title:      filepath.Base(entry.path),
			Body:       string(body),
			Metadata: map[string]string{
				"path":       entry.path,
				"updated_at": entry.modTime.UTC().Format(time.RFC3339),
			},
			FetchedAt: time.Now().UTC(),
		})
		if entry.modTime.After(maxSeen) {
			maxSeen = entry.modTime
		}
	}

	if hasMore {
		next := &Cursor{
			Since:   cursor.Since,
			After:   changed[end-1].path,
			MaxSeen: maxSeen,
		}
		batch.NextPosition = next.Encode()
		return batch, nil
	}

	since := cursor.Since
	if maxSeen.After(since) {
		since = maxSeen
	}
	batch.NextPosition = (&Cursor{Since: since}).Encode()
	return batch, nil
}

// Close releases resources. The connector holds none.
func (c *Connector) Close() error {
	return nil
}

type fileEntry struct {
	path    string
	modTime time.Time
}

// collectChanged returns files under root modified strictly after since,
// sorted by path.
func collectChanged(ctx context.Context, root string, since time.Time, extensions map[string]bool) ([]fileEntry, error) {
	var out []fileEntry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			// Hidden directories are never synced.
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if len(extensions) > 0 && !extensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.ModTime().After(since) {
			return nil
		}
		out = append(out, fileEntry{path: path, modTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
	return out, nil
}

// ResolveRoot normalises the configured root path: expands a leading ~ and
// makes the path absolute.
func ResolveRoot(root string) (string, error) {
	if root == "" {
		return "", fmt.Errorf("no root configured")
	}
	if root == "~" || strings.HasPrefix(root, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home: %w", err)
		}
		root = filepath.Join(home, strings.TrimPrefix(root, "~"))
	}
	return filepath.Abs(root)
}

// parseExtensions turns ".md,.txt" into a lookup set. Entries are
// lower-cased and get a leading dot if missing.
func parseExtensions(raw string) map[string]bool {
	out := make(map[string]bool)
	for _, ext := range strings.Split(raw, ",") {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out[ext] = true
	}
	return out
}
