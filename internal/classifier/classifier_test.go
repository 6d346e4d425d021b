package classifier

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"kaizen/internal/config"
)

func defaultClassifier() *Classifier {
	return FromConfig(config.DefaultCategories())
}

func TestClassify_DefaultCategories(t *testing.T) {
	c := defaultClassifier()

	tests := []struct {
		filename string
		category string
		ok       bool
	}{
		{"holiday.jpg", "Images", true},
		{"HOLIDAY.JPG", "Images", true},
		{"report.pdf", "Documents", true},
		{"backup.tar.gz", "Archives", true},
		{"main.py", "Code", true},
		{"song.mp3", "Media", true},
		{"setup.exe", "Executables", true},
		{"Tool.AppImage", "Executables", true},
		{"notes.unknown", "", false},
		{"Makefile", "", false},
		{".bashrc", "", false},
		{"trailingdot.", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			category, ok := c.Classify(tt.filename)
			if ok != tt.ok || category != tt.category {
				t.Errorf("Classify(%q) = (%q, %v), want (%q, %v)", tt.filename, category, ok, tt.category, tt.ok)
			}
		})
	}
}

func TestClassify_FirstRuleWins(t *testing.T) {
	c := New([]Rule{
		{Category: "First", Extensions: []string{".dup"}},
		{Category: "Second", Extensions: []string{".DUP", ".other"}},
	})

	if category, _ := c.Classify("x.dup"); category != "First" {
		t.Errorf("expected First to win, got %q", category)
	}
	if category, _ := c.Classify("x.other"); category != "Second" {
		t.Errorf("expected Second, got %q", category)
	}
}

func TestRules_ReturnsCopyInOrder(t *testing.T) {
	c := New([]Rule{
		{Category: "B", Extensions: []string{".B"}},
		{Category: "A", Extensions: []string{".a"}},
	})

	rules := c.Rules()
	if len(rules) != 2 || rules[0].Category != "B" || rules[1].Category != "A" {
		t.Fatalf("unexpected rules %v", rules)
	}
	if rules[0].Extensions[0] != ".b" {
		t.Errorf("expected lowercased extension, got %q", rules[0].Extensions[0])
	}

	rules[0].Extensions[0] = ".mutated"
	if category, ok := c.Classify("x.b"); !ok || category != "B" {
		t.Error("mutating Rules() result changed the classifier")
	}
}

// genCase randomly upper- or lowercases each letter of s.
func genCase(s string) gopter.Gen {
	return gen.SliceOfN(len(s), gen.Bool()).Map(func(upper []bool) string {
		var b strings.Builder
		for i, r := range s {
			if upper[i] {
				b.WriteString(strings.ToUpper(string(r)))
			} else {
				b.WriteRune(r)
			}
		}
		return b.String()
	})
}

// Property: classification ignores the case of the extension and the stem.
func TestClassify_CaseInsensitive(t *testing.T) {
	c := defaultClassifier()
	properties := gopter.NewProperties(nil)

	for _, rule := range c.Rules() {
		for _, ext := range rule.Extensions {
			rule, ext := rule, ext
			properties.Property(fmt.Sprintf("%s classifies as %s in any case", ext, rule.Category), prop.ForAll(
				func(stem, cased string) bool {
					category, ok := c.Classify(stem + cased)
					return ok && category == rule.Category
				},
				gen.Identifier(),
				genCase(ext),
			))
		}
	}

	properties.TestingRun(t)
}

// Property: every extension maps to the category of the first rule that
// lists it, whatever the rule order.
func TestClassify_FirstMatchProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("first listing rule wins", prop.ForAll(
		func(owners []int) bool {
			exts := []string{".a", ".b", ".c", ".d"}
			rules := make([]Rule, 3)
			for i := range rules {
				rules[i].Category = fmt.Sprintf("cat%d", i)
			}
			// owners[j] adds exts[j%4] to rule owners[j]
			for j, owner := range owners {
				rules[owner].Extensions = append(rules[owner].Extensions, exts[j%len(exts)])
			}
			c := New(rules)

			for _, ext := range exts {
				want, wantOK := "", false
				for _, r := range rules {
					for _, e := range r.Extensions {
						if e == ext && !wantOK {
							want, wantOK = r.Category, true
						}
					}
				}
				got, ok := c.Classify("file" + ext)
				if ok != wantOK || got != want {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(8, gen.IntRange(0, 2)),
	))

	properties.TestingRun(t)
}
