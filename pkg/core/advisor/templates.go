package advisor

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"

	"sme_health/pkg/core/utils"
)

// Focus areas.
const (
	FocusGeneral       = "general"
	FocusCashFlow      = "cash_flow"
	FocusProfitability = "profitability"
	FocusGrowth        = "growth"
	FocusRisk          = "risk"
)

// Condition gates a template on one signal. A template applies only when
// every condition holds; an undefined signal never satisfies a condition.
type Condition struct {
	Signal    string  `json:"signal"`
	Op        string  `json:"op"` // <, <=, >, >=
	Threshold float64 `json:"threshold"`
}

// Template is one recommendation. Body is a text/template executed against
// the context map.
type Template struct {
	ID         string      `json:"id"`
	FocusArea  string      `json:"focus_area"`
	Title      string      `json:"title"`
	Body       string      `json:"body"`
	Priority   int         `json:"priority"`
	Conditions []Condition `json:"conditions"`
}

// Registry holds recommendation templates keyed by ID.
type Registry struct {
	templates map[string]*Template
	mu        sync.RWMutex
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{templates: make(map[string]*Template)}
}

// DefaultRegistry returns a registry loaded with the built-in templates.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, t := range builtinTemplates() {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds or replaces a template. The body must parse.
func (r *Registry) Register(t *Template) error {
	if t.ID == "" {
		return fmt.Errorf("template ID cannot be empty")
	}
	if t.FocusArea == "" {
		return fmt.Errorf("template %s has no focus area", t.ID)
	}
	for _, c := range t.Conditions {
		if _, ok := comparators[c.Op]; !ok {
			return fmt.Errorf("template %s: unsupported operator %q", t.ID, c.Op)
		}
	}
	if _, err := template.New(t.ID).Parse(t.Body); err != nil {
		return fmt.Errorf("template %s: %w", t.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[t.ID] = t
	return nil
}

// Get retrieves a template by ID.
func (r *Registry) Get(id string) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if t, ok := r.templates[id]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("template not found: %s", id)
}

// ListByFocus returns the focus area's templates ordered by priority, then ID.
func (r *Registry) ListByFocus(focus string) []*Template {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Template
	for _, t := range r.templates {
		if t.FocusArea == focus {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FocusAreas lists the focus areas that have at least one template.
func (r *Registry) FocusAreas() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, t := range r.templates {
		if !seen[t.FocusArea] {
			seen[t.FocusArea] = true
			out = append(out, t.FocusArea)
		}
	}
	sort.Strings(out)
	return out
}

// Count returns the number of registered templates.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.templates)
}

// LoadFromDirectory registers every .json or .hjson template under dir.
// A missing ID is derived from the path ("cash_flow/runway.json" becomes
// "cash_flow.runway") and a missing focus area from the first folder.
func (r *Registry) LoadFromDirectory(dir string) (int, error) {
	if _, err := os.Stat(dir); err != nil {
		return 0, fmt.Errorf("template directory not found: %s", dir)
	}

	loaded := 0
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		ext := filepath.Ext(path)
		if info.IsDir() || (ext != ".json" && ext != ".hjson") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		var t Template
		if _, err := utils.DecodeLenient(string(data), &t); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		rel, _ := filepath.Rel(dir, path)
		rel = strings.TrimSuffix(rel, ext)
		parts := strings.Split(rel, string(filepath.Separator))
		if t.ID == "" {
			t.ID = strings.Join(parts, ".")
		}
		if t.FocusArea == "" && len(parts) > 1 {
			t.FocusArea = parts[0]
		}

		if err := r.Register(&t); err != nil {
			return err
		}
		loaded++
		return nil
	})
	return loaded, err
}

// Render executes the template body against the context map. Missing keys
// render empty so optional entries can be guarded with {{if}}.
func Render(t *Template, ctx map[string]string) (string, error) {
	tmpl, err := template.New(t.ID).Option("missingkey=zero").Parse(t.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

var comparators = map[string]func(a, b float64) bool{
	"<":  func(a, b float64) bool { return a < b },
	"<=": func(a, b float64) bool { return a <= b },
	">":  func(a, b float64) bool { return a > b },
	">=": func(a, b float64) bool { return a >= b },
}

// Holds reports whether the signal satisfies the condition.
func (c Condition) Holds(s Signals) bool {
	v, ok := s[c.Signal].Get()
	if !ok {
		return false
	}
	cmp, ok := comparators[c.Op]
	return ok && cmp(v, c.Threshold)
}

// Applies reports whether every condition holds.
func (t *Template) Applies(s Signals) bool {
	for _, c := range t.Conditions {
		if !c.Holds(s) {
			return false
		}
	}
	return true
}
