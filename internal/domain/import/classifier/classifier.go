// Package classifier assigns categories to candidate transactions with ranked
// keyword rules. It is deterministic: the same candidate, row and taxonomy
// always produce the same result.
package classifier

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
	"gopkg.in/yaml.v3"

	"github.com/FACorreiaa/statement-import/internal/domain/import/model"
	"github.com/FACorreiaa/statement-import/internal/domain/import/textnorm"
	"github.com/FACorreiaa/statement-import/internal/domain/ledger"
)

//go:embed rules.yaml
var defaultRules []byte

// DefaultFallback is used when a config does not name a fallback category.
const DefaultFallback = "Uncategorized"

var ErrInvalidConfig = errors.New("invalid classifier config")

// Rule files descriptions containing any keyword under Category/SubCategory.
type Rule struct {
	Category    string   `yaml:"category"`
	SubCategory string   `yaml:"subcategory,omitempty"`
	Keywords    []string `yaml:"keywords"`
}

// Config is the named, ranked rule set. Earlier rules take precedence.
type Config struct {
	Fallback string `yaml:"fallback"`
	Rules    []Rule `yaml:"rules"`
}

// DefaultConfig returns the rules compiled into the binary.
func DefaultConfig() Config {
	cfg, err := LoadConfig(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("embedded rules: %v", err))
	}
	return cfg
}

// LoadConfigFile reads a rule set from a YAML file.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read rules %s: %w", path, err)
	}
	return LoadConfig(data)
}

// LoadConfig parses a YAML rule set.
func LoadConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Source records which precedence level produced a classification.
type Source string

const (
	SourceColumn   Source = "column"
	SourceRule     Source = "rule"
	SourceFallback Source = "fallback"
)

// Classification is the category pair chosen for one candidate.
type Classification struct {
	Category    string
	SubCategory string
	Source      Source
}

// Classifier matches descriptions against every rule keyword in one pass.
type Classifier struct {
	fallback string
	rules    []Rule

	matcher      *ahocorasick.Matcher
	patternRules [][]int // rule indexes per matcher pattern
	mu           sync.Mutex
}

// New validates cfg and builds the keyword matcher.
func New(cfg Config) (*Classifier, error) {
	c := &Classifier{fallback: strings.TrimSpace(cfg.Fallback), rules: cfg.Rules}
	if c.fallback == "" {
		c.fallback = DefaultFallback
	}

	patternIndex := make(map[string]int)
	var patterns [][]byte
	for i, rule := range cfg.Rules {
		if strings.TrimSpace(rule.Category) == "" {
			return nil, fmt.Errorf("%w: rule %d has no category", ErrInvalidConfig, i)
		}
		if len(rule.Keywords) == 0 {
			return nil, fmt.Errorf("%w: rule %d (%s) has no keywords", ErrInvalidConfig, i, rule.Category)
		}
		for _, kw := range rule.Keywords {
			key := textnorm.Key(kw)
			if key == "" {
				continue
			}
			idx, ok := patternIndex[key]
			if !ok {
				idx = len(patterns)
				patternIndex[key] = idx
				patterns = append(patterns, []byte(key))
				c.patternRules = append(c.patternRules, nil)
			}
			c.patternRules[idx] = append(c.patternRules[idx], i)
		}
	}
	if len(patterns) > 0 {
		c.matcher = ahocorasick.NewMatcher(patterns)
	}
	return c, nil
}

// Fallback returns the configured fallback category.
func (c *Classifier) Fallback() string {
	return c.fallback
}

// Classify picks the category pair for cand.
//
// Precedence: a category cell naming a taxonomy category; then the first rule
// whose keyword occurs in the description (rules for categories missing from a
// non-empty taxonomy are skipped); then the fallback. Subcategories follow the
// same order, restricted to the chosen category.
func (c *Classifier) Classify(cand model.Candidate, row model.RawRow, m model.ColumnMapping, tax ledger.Taxonomy) Classification {
	matched := c.matchRules(cand.Description)

	var (
		result Classification
		entry  ledger.Category
		inTax  bool
	)

	if m.Category != "" {
		if entry, inTax = tax.Find(row[m.Category]); inTax {
			result = Classification{Category: entry.Name, Source: SourceColumn}
		}
	}

	if result.Category == "" {
		for _, ri := range matched {
			rule := c.rules[ri]
			if tax.IsEmpty() {
				result = Classification{Category: rule.Category, Source: SourceRule}
				break
			}
			if entry, inTax = tax.Find(rule.Category); inTax {
				result = Classification{Category: entry.Name, Source: SourceRule}
				break
			}
		}
	}

	if result.Category == "" {
		name := c.fallback
		if e, ok := tax.Find(name); ok {
			name = e.Name
		}
		return Classification{Category: name, Source: SourceFallback}
	}

	if m.SubCategory != "" && inTax {
		if sub, ok := entry.FindSub(row[m.SubCategory]); ok {
			result.SubCategory = sub
			return result
		}
	}

	for _, ri := range matched {
		rule := c.rules[ri]
		if rule.SubCategory == "" || !strings.EqualFold(rule.Category, result.Category) {
			continue
		}
		if !inTax {
			result.SubCategory = rule.SubCategory
			break
		}
		if sub, ok := entry.FindSub(rule.SubCategory); ok {
			result.SubCategory = sub
			break
		}
	}
	return result
}

// ClassifyAll returns a classified copy of every candidate. rows is indexed by
// SourceRowIndex.
func (c *Classifier) ClassifyAll(cands []model.Candidate, rows []model.RawRow, m model.ColumnMapping, tax ledger.Taxonomy) []model.Candidate {
	out := make([]model.Candidate, len(cands))
	for i, cand := range cands {
		var row model.RawRow
		if cand.SourceRowIndex >= 0 && cand.SourceRowIndex < len(rows) {
			row = rows[cand.SourceRowIndex]
		}
		cl := c.Classify(cand, row, m, tax)
		out[i] = cand.WithClassification(cl.Category, cl.SubCategory)
	}
	return out
}

// matchRules returns the indexes of every rule with a keyword in description,
// in rule order.
func (c *Classifier) matchRules(description string) []int {
	if c.matcher == nil {
		return nil
	}
	key := textnorm.Key(description)
	if key == "" {
		return nil
	}

	// Matcher keeps per-call state internally.
	c.mu.Lock()
	hits := c.matcher.Match([]byte(key))
	c.mu.Unlock()

	seen := make(map[int]bool)
	var rules []int
	for _, h := range hits {
		for _, ri := range c.patternRules[h] {
			if !seen[ri] {
				seen[ri] = true
				rules = append(rules, ri)
			}
		}
	}
	sort.Ints(rules)
	return rules
}
