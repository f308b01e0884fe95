// Package site assembles generated static sites: it resolves the
// template for a project, renders the entry document through the
// substitution pipeline and writes the result plus assets to the
// output directory.
package site

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/selfcaststudios/sitecast/internal/config"
	"github.com/selfcaststudios/sitecast/internal/content"
	"github.com/selfcaststudios/sitecast/internal/errors"
	"github.com/selfcaststudios/sitecast/internal/logging"
	"github.com/selfcaststudios/sitecast/internal/renderer"
	"github.com/selfcaststudios/sitecast/internal/store"
)

// StyleKey is the content key selecting a project's template directory.
const StyleKey = "style_package"

// reservedNames are asset filenames a project id may never collide
// with; a site generated for such an id would shadow or be shadowed by
// the template's own files.
var reservedNames = map[string]bool{
	"config.js":          true,
	"index.html":         true,
	"script.js":          true,
	"styles.css":         true,
	"modal-functions.js": true,
	"social-styles.css":  true,
}

// Result describes one successful generation.
type Result struct {
	ProjectID   string    `json:"project_id"`
	SiteURL     string    `json:"site_url"`
	GeneratedAt time.Time `json:"generated_at"`
	Anomalies   int       `json:"anomalies,omitempty"`
}

// Notifier receives a signal after every successful generation. The
// live-reload hub implements it; a nil notifier is allowed.
type Notifier interface {
	SiteGenerated(projectID string)
}

// Assembler generates static sites from stored project content.
type Assembler struct {
	store    store.Store
	renderer *renderer.Renderer
	cfg      *config.Config
	logger   logging.Logger
	notifier Notifier

	// locks serializes generations per project id.
	locks sync.Map
}

// New returns an Assembler writing under cfg.Site.OutputDir.
func New(st store.Store, rnd *renderer.Renderer, cfg *config.Config, logger logging.Logger) *Assembler {
	return &Assembler{
		store:    st,
		renderer: rnd,
		cfg:      cfg,
		logger:   logger.WithComponent("site"),
	}
}

// SetNotifier wires the post-generation signal target.
func (a *Assembler) SetNotifier(n Notifier) {
	a.notifier = n
}

// ValidateProjectID rejects ids that cannot safely name an output
// directory. Called before any filesystem write.
func ValidateProjectID(projectID string) error {
	if projectID == "" {
		return errors.Validation("project_id_empty", "project id must not be empty")
	}
	if strings.ContainsAny(projectID, "/\\") || projectID == "." || projectID == ".." ||
		strings.Contains(projectID, "..") {
		return errors.Validation("project_id_path", "project id must not contain path separators or traversal").
			WithContext("project_id", projectID)
	}
	if reservedNames[strings.ToLower(projectID)] {
		return errors.Validation("reserved_name", "project id collides with a generated asset name").
			WithContext("project_id", projectID)
	}
	return nil
}

// Generate renders and writes the full static site for a project.
// Overlapping calls for the same project are serialized; distinct
// projects generate concurrently.
func (a *Assembler) Generate(ctx context.Context, projectID string) (*Result, error) {
	if err := ValidateProjectID(projectID); err != nil {
		return nil, err
	}

	muIface, _ := a.locks.LoadOrStore(projectID, &sync.Mutex{})
	mu := muIface.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	started := time.Now()

	project, err := a.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	m, synthesized := content.BuildMap(project.Content, content.MapOptions{
		Now:          started,
		SanitizeHTML: a.cfg.Site.SanitizeHTML,
	})

	templateDir := a.resolveTemplateDir(ctx, m)
	entryPath := filepath.Join(templateDir, "index.html")
	entry, err := os.ReadFile(entryPath)
	if err != nil {
		return nil, errors.Generation("template_read", "reading template entry document").
			WithCause(err).
			WithContext("path", entryPath)
	}

	outputDir := filepath.Join(a.cfg.Site.OutputDir, projectID)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, errors.Generation("output_mkdir", "creating site output directory").
			WithCause(err).
			WithContext("path", outputDir)
	}

	a.copyAssets(ctx, templateDir, outputDir)

	rendered, report, err := a.renderer.Render(ctx, string(entry), m, synthesized)
	if err != nil {
		return nil, err
	}

	if err := writeFileAtomic(filepath.Join(outputDir, "index.html"), []byte(rendered)); err != nil {
		return nil, errors.Generation("entry_write", "writing rendered entry document").
			WithCause(err).
			WithContext("project_id", projectID)
	}

	if err := writeFileAtomic(filepath.Join(outputDir, "config.js"), configJS(projectID, m)); err != nil {
		return nil, errors.Generation("config_write", "writing config.js bootstrap asset").
			WithCause(err).
			WithContext("project_id", projectID)
	}

	result := &Result{
		ProjectID:   projectID,
		SiteURL:     a.SiteURL(projectID),
		GeneratedAt: started,
		Anomalies:   len(report.Anomalies),
	}

	a.logger.Info(ctx, "site generated",
		"project_id", projectID,
		"template", filepath.Base(templateDir),
		"matches", len(report.Matches),
		"anomalies", len(report.Anomalies),
		"duration", time.Since(started).String(),
	)

	if a.notifier != nil {
		a.notifier.SiteGenerated(projectID)
	}
	return result, nil
}

// SiteURL returns the public URL a project's generated site is served
// from.
func (a *Assembler) SiteURL(projectID string) string {
	return fmt.Sprintf("%s/sites/%s/", a.cfg.PublicBaseURL(), projectID)
}

// resolveTemplateDir maps the project's style to a template directory,
// falling back to the configured default when absent or not on disk.
func (a *Assembler) resolveTemplateDir(ctx context.Context, m content.Map) string {
	style := m[StyleKey]
	if style != "" && !strings.ContainsAny(style, "/\\") && !strings.Contains(style, "..") {
		dir := filepath.Join(a.cfg.Site.TemplatesDir, style)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
		a.logger.Warn(ctx, nil, "style has no template directory, using default",
			"style", style,
			"default", a.cfg.Site.DefaultStyle,
		)
	}
	return filepath.Join(a.cfg.Site.TemplatesDir, a.cfg.Site.DefaultStyle)
}

// copyAssets copies everything except the entry document from the
// template into the output directory. A single unreadable asset is
// logged and skipped; generation continues.
func (a *Assembler) copyAssets(ctx context.Context, templateDir, outputDir string) {
	entries, err := os.ReadDir(templateDir)
	if err != nil {
		a.logger.Warn(ctx, err, "reading template assets", "dir", templateDir)
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if name == "index.html" {
			continue
		}
		src := filepath.Join(templateDir, name)
		dst := filepath.Join(outputDir, name)

		if entry.IsDir() {
			if err := os.MkdirAll(dst, 0o755); err != nil {
				a.logger.Warn(ctx, err, "creating asset subdirectory", "dir", dst)
				continue
			}
			a.copyAssetDir(ctx, src, dst)
			continue
		}

		if err := copyFile(src, dst); err != nil {
			a.logger.Warn(ctx, err, "copying template asset", "asset", name)
		}
	}
}

// copyAssetDir recursively copies a template subdirectory.
func (a *Assembler) copyAssetDir(ctx context.Context, src, dst string) {
	entries, err := os.ReadDir(src)
	if err != nil {
		a.logger.Warn(ctx, err, "reading asset subdirectory", "dir", src)
		return
	}
	for _, entry := range entries {
		s := filepath.Join(src, entry.Name())
		d := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := os.MkdirAll(d, 0o755); err != nil {
				a.logger.Warn(ctx, err, "creating asset subdirectory", "dir", d)
				continue
			}
			a.copyAssetDir(ctx, s, d)
			continue
		}
		if err := copyFile(s, d); err != nil {
			a.logger.Warn(ctx, err, "copying template asset", "asset", s)
		}
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// writeFileAtomic writes via a temp file and rename so a crash mid-write
// never leaves a truncated document where a complete one stood.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// configJS renders the static bootstrap asset the generated page loads
// instead of calling the live API.
func configJS(projectID string, m content.Map) []byte {
	payload, err := json.MarshalIndent(map[string]string(m), "", "  ")
	if err != nil {
		// map[string]string cannot fail to marshal.
		payload = []byte("{}")
	}

	var b strings.Builder
	b.WriteString("// Generated. Do not edit: regenerated on every publish.\n")
	fmt.Fprintf(&b, "const PROJECT_ID = %q;\n", projectID)
	b.WriteString("const IS_STATIC = true;\n")
	b.WriteString("window.siteContent = ")
	b.Write(payload)
	b.WriteString(";\n")
	return []byte(b.String())
}
