package annotation

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Uncoded is the code given to every category of an account without a label row
const Uncoded = "uncoded"

// Category is one coded attribute
type Category struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Values      []string `yaml:"values"`
	Required    bool     `yaml:"required,omitempty"`
}

// Allows reports whether v is one of the category's values
func (c *Category) Allows(v string) bool {
	for _, allowed := range c.Values {
		if allowed == v {
			return true
		}
	}
	return false
}

// ExcludeRule drops accounts coded with Value in Category
type ExcludeRule struct {
	Category string `yaml:"category"`
	Value    string `yaml:"value"`
}

// Codebook declares the categories coders fill in
type Codebook struct {
	Categories []Category    `yaml:"categories"`
	Exclude    []ExcludeRule `yaml:"exclude,omitempty"`
}

// DefaultCodebook returns a starter codebook with a relevance flag and an
// actor type.
func DefaultCodebook() *Codebook {
	return &Codebook{
		Categories: []Category{
			{
				Name:        "relevant",
				Description: "account is actually about the topic",
				Values:      []string{"yes", "no"},
				Required:    true,
			},
			{
				Name:        "actor_type",
				Description: "who runs the account",
				Values:      []string{"individual", "organization", "media", "other"},
			},
		},
		Exclude: []ExcludeRule{{Category: "relevant", Value: "no"}},
	}
}

// LoadCodebook reads and validates a YAML codebook
func LoadCodebook(path string) (*Codebook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read codebook: %w", err)
	}

	var cb Codebook
	if err := yaml.Unmarshal(data, &cb); err != nil {
		return nil, fmt.Errorf("failed to parse codebook %s: %w", path, err)
	}
	cb.normalize()

	if err := cb.Validate(); err != nil {
		return nil, fmt.Errorf("invalid codebook %s: %w", path, err)
	}
	return &cb, nil
}

// Save writes the codebook as YAML
func (cb *Codebook) Save(path string) error {
	data, err := yaml.Marshal(cb)
	if err != nil {
		return fmt.Errorf("failed to marshal codebook: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write codebook: %w", err)
	}
	return nil
}

// ReservedNames are node attributes the graph sets itself; a category may
// not shadow them.
var ReservedNames = []string{"friends_count", "statuses_count", "verified", "external", "link_status"}

// normalize lower-cases names and values so they compare with sheet headers
// and normalized cells
func (cb *Codebook) normalize() {
	for i := range cb.Categories {
		cb.Categories[i].Name = normalizeValue(cb.Categories[i].Name)
		for j, v := range cb.Categories[i].Values {
			cb.Categories[i].Values[j] = normalizeValue(v)
		}
	}
	for i := range cb.Exclude {
		cb.Exclude[i].Category = normalizeValue(cb.Exclude[i].Category)
		cb.Exclude[i].Value = normalizeValue(cb.Exclude[i].Value)
	}
}

// Validate checks category names, values and exclude rules
func (cb *Codebook) Validate() error {
	var problems []error

	if len(cb.Categories) == 0 {
		problems = append(problems, errors.New("no categories defined"))
	}

	seen := make(map[string]bool)
	for i, c := range cb.Categories {
		switch {
		case c.Name == "":
			problems = append(problems, fmt.Errorf("category %d has no name", i+1))
		case isIdentityColumn(normalizeValue(c.Name)):
			problems = append(problems, fmt.Errorf("category %q clashes with a sheet column", c.Name))
		case isReserved(normalizeValue(c.Name)):
			problems = append(problems, fmt.Errorf("category %q clashes with a graph attribute", c.Name))
		case seen[normalizeValue(c.Name)]:
			problems = append(problems, fmt.Errorf("category %q defined twice", c.Name))
		}
		seen[normalizeValue(c.Name)] = true

		if len(c.Values) == 0 {
			problems = append(problems, fmt.Errorf("category %q has no values", c.Name))
		}
		for _, v := range c.Values {
			if v == "" || v == Uncoded {
				problems = append(problems, fmt.Errorf("category %q has invalid value %q", c.Name, v))
			}
		}
	}

	for _, rule := range cb.Exclude {
		c := cb.Category(rule.Category)
		if c == nil {
			problems = append(problems, fmt.Errorf("exclude rule references unknown category %q", rule.Category))
			continue
		}
		if !c.Allows(rule.Value) {
			problems = append(problems, fmt.Errorf("exclude rule value %q not allowed in category %q", rule.Value, rule.Category))
		}
	}

	return errors.Join(problems...)
}

// Category returns the named category, or nil
func (cb *Codebook) Category(name string) *Category {
	for i := range cb.Categories {
		if cb.Categories[i].Name == name {
			return &cb.Categories[i]
		}
	}
	return nil
}

// Names returns category names in declaration order
func (cb *Codebook) Names() []string {
	names := make([]string, len(cb.Categories))
	for i, c := range cb.Categories {
		names[i] = c.Name
	}
	return names
}

// Excludes reports whether codes match any exclude rule
func (cb *Codebook) Excludes(codes Codes) (ExcludeRule, bool) {
	for _, rule := range cb.Exclude {
		if codes[rule.Category] == rule.Value {
			return rule, true
		}
	}
	return ExcludeRule{}, false
}

func isReserved(name string) bool {
	for _, r := range ReservedNames {
		if r == name {
			return true
		}
	}
	return false
}

func normalizeValue(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
