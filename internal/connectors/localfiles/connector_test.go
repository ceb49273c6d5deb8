package localfiles

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvuslabs/ingestd/internal/core/domain"
)

func writeFile(t *testing.T, dir, name, body string, modTime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
	return path
}

func localSource(root string, batchSize int) domain.SourceInstance {
	return domain.SourceInstance{
		Type:      domain.SourceLocalFiles,
		Name:      "docs",
		BatchSize: batchSize,
		Options:   map[string]string{"root": root},
	}
}

func TestFetchBatch_FirstRunReturnsEverything(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	writeFile(t, dir, "a.md", "alpha", base)
	writeFile(t, dir, "sub/b.md", "beta", base.Add(time.Minute))

	c := New()
	batch, err := c.FetchBatch(context.Background(), localSource(dir, 10), "")

	require.NoError(t, err)
	require.Len(t, batch.Items, 2)
	assert.False(t, batch.HasMore)
	assert.Equal(t, "a.md", batch.Items[0].ExternalID)
	assert.Equal(t, filepath.Join("sub", "b.md"), batch.Items[1].ExternalID)
	assert.Equal(t, "alpha", batch.Items[0].Body)
}

func TestFetchBatch_Paginates(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	for _, name := range []string{"a.md", "b.md", "c.md"} {
		writeFile(t, dir, name, "body "+name, base)
	}

	c := New()
	source := localSource(dir, 2)

	first, err := c.FetchBatch(context.Background(), source, "")
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.True(t, first.HasMore)

	second, err := c.FetchBatch(context.Background(), source, first.NextPosition)
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.False(t, second.HasMore)
	assert.Equal(t, "c.md", second.Items[0].ExternalID)
}

func TestFetchBatch_OnlyModifiedFilesOnSecondRun(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	writeFile(t, dir, "old.md", "old", base)
	writeFile(t, dir, "newer.md", "newer", base.Add(time.Minute))

	c := New()
	source := localSource(dir, 10)

	first, err := c.FetchBatch(context.Background(), source, "")
	require.NoError(t, err)
	require.Len(t, first.Items, 2)

	// Nothing changed: the watermark excludes both files.
	second, err := c.FetchBatch(context.Background(), source, first.NextPosition)
	require.NoError(t, err)
	assert.Empty(t, second.Items)

	// Touch one file past the watermark.
	writeFile(t, dir, "old.md", "edited", base.Add(2*time.Hour))
	third, err := c.FetchBatch(context.Background(), source, second.NextPosition)
	require.NoError(t, err)
	require.Len(t, third.Items, 1)
	assert.Equal(t, "old.md", third.Items[0].ExternalID)
	assert.Equal(t, "edited", third.Items[0].Body)
}

func TestFetchBatch_ExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	writeFile(t, dir, "keep.md", "kept", base)
	writeFile(t, dir, "skip.bin", "skipped", base)

	source := localSource(dir, 10)
	source.Options["extensions"] = "md, txt"

	batch, err := New().FetchBatch(context.Background(), source, "")
	require.NoError(t, err)
	require.Len(t, batch.Items, 1)
	assert.Equal(t, "keep.md", batch.Items[0].ExternalID)
}

func TestFetchBatch_SkipsHiddenDirectories(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	writeFile(t, dir, "visible.md", "seen", base)
	writeFile(t, dir, ".git/config.md", "hidden", base)

	batch, err := New().FetchBatch(context.Background(), localSource(dir, 10), "")
	require.NoError(t, err)
	require.Len(t, batch.Items, 1)
	assert.Equal(t, "visible.md", batch.Items[0].ExternalID)
}

func TestFetchBatch_MissingRootIsFatal(t *testing.T) {
	source := localSource("", 10)

	_, err := New().FetchBatch(context.Background(), source, "")
	require.Error(t, err)
	assert.True(t, domain.IsFatal(err))
}

func TestFetchBatch_InvalidPosition(t *testing.T) {
	_, err := New().FetchBatch(context.Background(), localSource(t.TempDir(), 10), "%%%not-base64%%%")
	require.Error(t, err)
	assert.True(t, domain.IsFatal(err))
}

func TestDecodeCursor_RoundTrip(t *testing.T) {
	in := &Cursor{
		Since:   time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
		After:   "/tmp/docs/b.md",
		MaxSeen: time.Date(2025, 5, 1, 11, 0, 0, 0, time.UTC),
	}
	out, err := DecodeCursor(in.Encode())
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestResolveRoot_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	resolved, err := ResolveRoot("~/notes")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "notes"), resolved)
}
