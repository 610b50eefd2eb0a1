package gemini

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/fsnotify/fsnotify"
	"github.com/phrazzld/mindmap-api/internal/generation"
)

//go:embed prompts/*.tmpl
var embeddedPrompts embed.FS

// Template names, one file per prompt.
const (
	promptSystem  = "system.tmpl"
	promptMindMap = "mindmap.tmpl"
	promptExpand  = "expand.tmpl"
	promptSuggest = "suggest.tmpl"
)

var promptNames = []string{promptSystem, promptMindMap, promptExpand, promptSuggest}

var promptFuncs = template.FuncMap{"join": strings.Join}

// promptSet holds the parsed templates. It is safe for concurrent use and
// can be reloaded while requests are being rendered.
type promptSet struct {
	mu        sync.RWMutex
	templates map[string]*template.Template
	dir       string
}

// loadPrompts parses the embedded templates and then any overrides in dir.
func loadPrompts(dir string) (*promptSet, error) {
	p := &promptSet{dir: dir}
	if err := p.reload(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *promptSet) reload() error {
	templates := make(map[string]*template.Template, len(promptNames))
	for _, name := range promptNames {
		content, err := p.source(name)
		if err != nil {
			return err
		}
		tmpl, err := template.New(name).Funcs(promptFuncs).Parse(content)
		if err != nil {
			return fmt.Errorf("%w: parse prompt %s: %v", generation.ErrInvalidConfig, name, err)
		}
		templates[name] = tmpl
	}

	p.mu.Lock()
	p.templates = templates
	p.mu.Unlock()
	return nil
}

// source returns the override for name if one exists, else the embedded copy.
func (p *promptSet) source(name string) (string, error) {
	if p.dir != "" {
		content, err := os.ReadFile(filepath.Join(p.dir, name))
		if err == nil {
			return string(content), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: read prompt %s: %v", generation.ErrInvalidConfig, name, err)
		}
	}
	content, err := embeddedPrompts.ReadFile("prompts/" + name)
	if err != nil {
		return "", fmt.Errorf("%w: missing embedded prompt %s", generation.ErrInvalidConfig, name)
	}
	return string(content), nil
}

func (p *promptSet) render(name string, data any) (string, error) {
	p.mu.RLock()
	tmpl := p.templates[name]
	p.mu.RUnlock()
	if tmpl == nil {
		return "", fmt.Errorf("unknown prompt %s", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute prompt %s: %w", name, err)
	}
	return buf.String(), nil
}

// watch reloads the set whenever a template in dir is written, created or
// removed. It returns once the watcher is installed; the watch ends when ctx
// is cancelled.
func (p *promptSet) watch(ctx context.Context, logger *slog.Logger) error {
	if p.dir == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create prompt watcher: %w", err)
	}
	if err := watcher.Add(p.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch prompt dir %s: %w", p.dir, err)
	}

	go func() {
		defer func() { _ = watcher.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Ext(event.Name) != ".tmpl" {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				if err := p.reload(); err != nil {
					logger.Warn("prompt reload failed, keeping previous templates",
						"file", event.Name, "error", err)
					continue
				}
				logger.Info("prompt templates reloaded", "file", event.Name)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("prompt watcher error", "error", err)
			}
		}
	}()
	return nil
}

type mindMapPromptData struct {
	Topic            string
	Description      string
	Depth            int
	Style            string
	StyleDescription string
}

type expandPromptData struct {
	NodeLabel      string
	ExpansionTopic string
	Context        string
	Ancestors      []string
	MaxChildren    int
	Nested         bool
}

type suggestPromptData struct {
	Query string
}

var styleDescriptions = map[string]string{
	"comprehensive": "thorough and comprehensive",
	"simple":        "concise and simple",
	"detailed":      "deep and detailed",
}

func describeStyle(style string) string {
	if d, ok := styleDescriptions[style]; ok {
		return d
	}
	return "comprehensive"
}
