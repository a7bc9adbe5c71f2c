// Package template holds the static, versioned registry of bank export layouts.
package template

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/FACorreiaa/statement-import/internal/domain/import/model"
	"github.com/FACorreiaa/statement-import/internal/domain/import/textnorm"
)

//go:embed templates.yaml
var defaultTemplates []byte

var (
	ErrUnknownTemplate = errors.New("unknown bank template")
	ErrInvalidRegistry = errors.New("invalid template registry")
)

// UnknownTemplateError is returned when a bank id is not in the registry.
// Callers recover by falling back to manual mapping.
type UnknownTemplateError struct {
	BankID string
}

func (e *UnknownTemplateError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownTemplate, e.BankID)
}

func (e *UnknownTemplateError) Is(target error) bool {
	return target == ErrUnknownTemplate
}

// BankTemplate maps one bank's export headers to canonical fields, plus the
// formatting quirks of that export.
type BankTemplate struct {
	ID               string              `yaml:"id"`
	DisplayName      string              `yaml:"display_name"`
	Version          int                 `yaml:"version"`
	Delimiter        string              `yaml:"delimiter,omitempty"`
	DecimalSeparator string              `yaml:"decimal_separator,omitempty"`
	DateLayout       string              `yaml:"date_layout,omitempty"`
	StripPatterns    []string            `yaml:"strip_patterns,omitempty"` // Extra description boilerplate, as regexps
	Columns          model.ColumnMapping `yaml:"columns"`
}

// DelimiterRune returns the declared field delimiter, or 0 to auto-detect.
func (t BankTemplate) DelimiterRune() rune {
	return firstRune(t.Delimiter)
}

// DecimalRune returns the declared decimal mark, or 0 to use the heuristic.
func (t BankTemplate) DecimalRune() rune {
	return firstRune(t.DecimalSeparator)
}

func firstRune(s string) rune {
	if s == "" {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r
}

type registryFile struct {
	Version   int            `yaml:"version"`
	Templates []BankTemplate `yaml:"templates"`
}

// Registry is a read-only lookup of bank templates by id.
type Registry struct {
	version   int
	templates []BankTemplate
	byID      map[string]int
}

// Default returns the registry compiled into the binary.
func Default() *Registry {
	r, err := Load(defaultTemplates)
	if err != nil {
		panic(fmt.Sprintf("embedded templates: %v", err))
	}
	return r
}

// LoadFile reads a registry from a YAML file on disk.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates %s: %w", path, err)
	}
	return Load(data)
}

// Load parses and validates a YAML registry document.
func Load(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegistry, err)
	}

	r := &Registry{
		version:   file.Version,
		templates: make([]BankTemplate, 0, len(file.Templates)),
		byID:      make(map[string]int, len(file.Templates)),
	}
	for i, t := range file.Templates {
		if t.ID == "" {
			return nil, fmt.Errorf("%w: template %d has no id", ErrInvalidRegistry, i)
		}
		if _, dup := r.byID[t.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidRegistry, t.ID)
		}
		if missing := t.Columns.Missing(); len(missing) > 0 {
			return nil, fmt.Errorf("%w: template %q does not declare %v", ErrInvalidRegistry, t.ID, missing)
		}
		for _, p := range t.StripPatterns {
			if _, err := regexp.Compile(p); err != nil {
				return nil, fmt.Errorf("%w: template %q: %v", ErrInvalidRegistry, t.ID, err)
			}
		}
		if t.DisplayName == "" {
			t.DisplayName = t.ID
		}
		r.byID[t.ID] = len(r.templates)
		r.templates = append(r.templates, t)
	}
	return r, nil
}

// Version is the registry document version.
func (r *Registry) Version() int {
	return r.version
}

// Resolve returns the column mapping declared for bankID. An empty bankID
// returns (nil, nil), which tells the caller to auto-map instead.
func (r *Registry) Resolve(bankID string) (*model.ColumnMapping, error) {
	if bankID == "" {
		return nil, nil
	}
	t, err := r.Get(bankID)
	if err != nil {
		return nil, err
	}
	mapping := t.Columns
	return &mapping, nil
}

// Get returns a copy of the template registered under id.
func (r *Registry) Get(id string) (BankTemplate, error) {
	idx, ok := r.byID[id]
	if !ok {
		return BankTemplate{}, &UnknownTemplateError{BankID: id}
	}
	return r.templates[idx], nil
}

// List returns every template ordered by display name.
func (r *Registry) List() []BankTemplate {
	out := make([]BankTemplate, len(r.templates))
	copy(out, r.templates)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DisplayName < out[j].DisplayName
	})
	return out
}

// Suggest returns the template whose declared headers all appear in headers.
// When several qualify, the one declaring the most columns wins.
func (r *Registry) Suggest(headers []string) (BankTemplate, bool) {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[textnorm.Fold(h)] = true
	}

	best, bestScore := -1, 0
	for i, t := range r.templates {
		declared := declaredHeaders(t.Columns)
		matched := true
		for _, h := range declared {
			if !present[textnorm.Fold(h)] {
				matched = false
				break
			}
		}
		if matched && len(declared) > bestScore {
			best, bestScore = i, len(declared)
		}
	}
	if best < 0 {
		return BankTemplate{}, false
	}
	return r.templates[best], true
}

func declaredHeaders(m model.ColumnMapping) []string {
	var out []string
	for _, h := range []string{m.Date, m.Amount, m.Description, m.Category, m.SubCategory, m.Type} {
		if h != "" {
			out = append(out, h)
		}
	}
	return out
}
