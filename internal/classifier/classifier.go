// Package classifier maps file extensions to category folders.
package classifier

import (
	"path/filepath"
	"strings"

	"kaizen/internal/config"
)

// Rule maps a set of lowercase extensions to a category label.
type Rule struct {
	Category   string
	Extensions []string
}

// Classifier looks up a filename's extension against an ordered rule set.
// It is immutable after construction and safe for concurrent use.
type Classifier struct {
	rules []Rule
	index map[string]string
}

// New builds a Classifier. When extensions overlap, the earlier rule wins.
func New(rules []Rule) *Classifier {
	c := &Classifier{
		rules: make([]Rule, 0, len(rules)),
		index: make(map[string]string),
	}
	for _, r := range rules {
		exts := make([]string, 0, len(r.Extensions))
		for _, ext := range r.Extensions {
			ext = strings.ToLower(ext)
			exts = append(exts, ext)
			if _, taken := c.index[ext]; !taken {
				c.index[ext] = r.Category
			}
		}
		c.rules = append(c.rules, Rule{Category: r.Category, Extensions: exts})
	}
	return c
}

// FromConfig builds a Classifier from the configured categories.
func FromConfig(cats []config.Category) *Classifier {
	rules := make([]Rule, 0, len(cats))
	for _, cat := range cats {
		rules = append(rules, Rule{Category: cat.Name, Extensions: cat.Extensions})
	}
	return New(rules)
}

// Classify returns the category for filename. ok is false when the extension
// is not recognised, in which case the file should be left in place.
func (c *Classifier) Classify(filename string) (category string, ok bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return "", false
	}
	category, ok = c.index[ext]
	return category, ok
}

// Rules returns a copy of the rule set in evaluation order.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	for i, r := range c.rules {
		out[i] = Rule{Category: r.Category, Extensions: append([]string(nil), r.Extensions...)}
	}
	return out
}
