package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selfcaststudios/sitecast/internal/config"
	"github.com/selfcaststudios/sitecast/internal/content"
	"github.com/selfcaststudios/sitecast/internal/logging"
	"github.com/selfcaststudios/sitecast/internal/renderer"
	"github.com/selfcaststudios/sitecast/internal/site"
	"github.com/selfcaststudios/sitecast/internal/store"
)

func TestTemplateAssetFilter(t *testing.T) {
	pass := []string{"index.html", "styles.css", "script.js", "logo.svg", "a/b/photo.JPG", "assets"}
	for _, path := range pass {
		assert.True(t, TemplateAssetFilter(path), path)
	}

	reject := []string{"notes.txt", "archive.zip", "backup.bak"}
	for _, path := range reject {
		assert.False(t, TemplateAssetFilter(path), path)
	}
}

func TestNoHiddenFilter(t *testing.T) {
	assert.True(t, NoHiddenFilter("templates/standard/index.html"))
	assert.False(t, NoHiddenFilter("templates/.DS_Store"))
	assert.False(t, NoHiddenFilter("templates/standard/index.html~"))
}

func TestDebouncerBatchesAndDeduplicates(t *testing.T) {
	d := &Debouncer{
		delay:  20 * time.Millisecond,
		events: make(chan ChangeEvent, 100),
		output: make(chan []ChangeEvent, 10),
	}

	d.addEvent(ChangeEvent{Path: "a.html"})
	d.addEvent(ChangeEvent{Path: "a.html"})
	d.addEvent(ChangeEvent{Path: "b.css"})

	select {
	case events := <-d.output:
		require.Len(t, events, 2)
		paths := []string{events[0].Path, events[1].Path}
		assert.Equal(t, []string{"a.html", "b.css"}, paths)
	case <-time.After(time.Second):
		t.Fatal("debouncer never flushed")
	}
}

func TestDebouncerResetsWindowOnNewEvents(t *testing.T) {
	d := &Debouncer{
		delay:  50 * time.Millisecond,
		events: make(chan ChangeEvent, 100),
		output: make(chan []ChangeEvent, 10),
	}

	d.addEvent(ChangeEvent{Path: "a.html"})
	time.Sleep(25 * time.Millisecond)
	d.addEvent(ChangeEvent{Path: "b.html"})

	// The first event alone must not have flushed yet.
	select {
	case <-d.output:
		t.Fatal("flushed before the debounce window closed")
	case <-time.After(10 * time.Millisecond):
	}

	select {
	case events := <-d.output:
		assert.Len(t, events, 2)
	case <-time.After(time.Second):
		t.Fatal("debouncer never flushed")
	}
}

func TestFileWatcherDeliversDebouncedEvents(t *testing.T) {
	dir := t.TempDir()

	fw, err := NewFileWatcher(30*time.Millisecond, logging.NopLogger{})
	require.NoError(t, err)
	defer fw.Stop()

	fw.AddFilter(NoHiddenFilter)

	var mu sync.Mutex
	var got []ChangeEvent
	done := make(chan struct{}, 1)
	fw.AddHandler(func(ctx context.Context, events []ChangeEvent) error {
		mu.Lock()
		got = append(got, events...)
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	})

	require.NoError(t, fw.AddRecursive(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fw.Start(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0o644))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("no change event delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, got)
	assert.Equal(t, filepath.Join(dir, "index.html"), got[0].Path)
}

func TestTemplateWatcherRegeneratesExistingSites(t *testing.T) {
	root := t.TempDir()

	standard := filepath.Join(root, "templates", "standard")
	require.NoError(t, os.MkdirAll(standard, 0o755))
	template := `<style id="dynamic-theme"></style><h1 data-key="rendered_title">x</h1>`
	require.NoError(t, os.WriteFile(filepath.Join(standard, "index.html"), []byte(template), 0o644))

	cfg := &config.Config{}
	cfg.Server.Port = 3001
	cfg.Server.Host = "localhost"
	cfg.Site.TemplatesDir = filepath.Join(root, "templates")
	cfg.Site.OutputDir = filepath.Join(root, "sites")
	cfg.Site.DefaultStyle = "standard"

	st := store.NewMemoryStore()
	logger := logging.NopLogger{}
	asm := site.New(st, renderer.New(logger), cfg, logger)

	ctx := context.Background()
	_, err := st.CreateProject(ctx, "ada", []content.ContentItem{{Key: "rendered_title", Value: "Ada"}})
	require.NoError(t, err)
	_, err = asm.Generate(ctx, "ada")
	require.NoError(t, err)

	tw, err := NewTemplateWatcher(cfg.Site.TemplatesDir, cfg.Site.OutputDir, asm, logger)
	require.NoError(t, err)
	defer tw.Stop()

	// Edit the template, then drive the handler directly; fsnotify
	// delivery timing is covered by the FileWatcher test above.
	updated := `<style id="dynamic-theme"></style><h2 data-key="rendered_title">x</h2>`
	require.NoError(t, os.WriteFile(filepath.Join(standard, "index.html"), []byte(updated), 0o644))
	require.NoError(t, tw.onChange(ctx, []ChangeEvent{{Path: filepath.Join(standard, "index.html")}}))

	index, err := os.ReadFile(filepath.Join(cfg.Site.OutputDir, "ada", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "<h2")
	assert.Contains(t, string(index), ">Ada</h2>")
}
