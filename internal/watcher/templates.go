package watcher

import (
	"context"
	"os"
	"time"

	"github.com/selfcaststudios/sitecast/internal/logging"
	"github.com/selfcaststudios/sitecast/internal/site"
)

// DefaultDebounce is the window template edits are batched within.
const DefaultDebounce = 300 * time.Millisecond

// TemplateWatcher regenerates generated sites when template files
// change. Development-mode only.
type TemplateWatcher struct {
	fw        *FileWatcher
	assembler *site.Assembler
	outputDir string
	logger    logging.Logger
}

// NewTemplateWatcher watches templatesDir and regenerates every project
// that has output under outputDir when templates change.
func NewTemplateWatcher(templatesDir, outputDir string, asm *site.Assembler, logger logging.Logger) (*TemplateWatcher, error) {
	fw, err := NewFileWatcher(DefaultDebounce, logger)
	if err != nil {
		return nil, err
	}
	fw.AddFilter(NoHiddenFilter)
	fw.AddFilter(TemplateAssetFilter)

	tw := &TemplateWatcher{
		fw:        fw,
		assembler: asm,
		outputDir: outputDir,
		logger:    logger.WithComponent("template_watcher"),
	}
	fw.AddHandler(tw.onChange)

	if err := fw.AddRecursive(templatesDir); err != nil {
		fw.Stop()
		return nil, err
	}
	return tw, nil
}

// Start begins watching until ctx is cancelled.
func (tw *TemplateWatcher) Start(ctx context.Context) {
	tw.fw.Start(ctx)
}

// Stop releases the underlying watcher.
func (tw *TemplateWatcher) Stop() error {
	return tw.fw.Stop()
}

func (tw *TemplateWatcher) onChange(ctx context.Context, events []ChangeEvent) error {
	tw.logger.Info(ctx, "template change detected", "files", len(events))

	for _, projectID := range tw.generatedProjects(ctx) {
		if _, err := tw.assembler.Generate(ctx, projectID); err != nil {
			tw.logger.Warn(ctx, err, "regenerating site", "project_id", projectID)
		}
	}
	return nil
}

// generatedProjects lists project ids that already have output on disk.
// Only those are regenerated; projects never generated stay untouched.
func (tw *TemplateWatcher) generatedProjects(ctx context.Context) []string {
	entries, err := os.ReadDir(tw.outputDir)
	if err != nil {
		if !os.IsNotExist(err) {
			tw.logger.Warn(ctx, err, "listing generated sites", "dir", tw.outputDir)
		}
		return nil
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			ids = append(ids, entry.Name())
		}
	}
	return ids
}
