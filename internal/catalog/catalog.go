package catalog

import (
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"remedy/internal/errors"
	"remedy/internal/evidence"
	"remedy/internal/validation"
)

// Observation is a symptom a user can select.
type Observation struct {
	Code string `yaml:"code" json:"code" validate:"required,alphanum,max=10"`
	Name string `yaml:"name" json:"name" validate:"required,max=200"`
}

// Category is a product category; rules point at sets of categories.
type Category struct {
	Code string `yaml:"code" json:"code" validate:"required,alphanum,max=10"`
	Name string `yaml:"name" json:"name" validate:"required,max=200"`
}

// Item is a concrete catalog product belonging to one category.
type Item struct {
	Code              string `yaml:"code" json:"code" validate:"required,alphanum,max=10"`
	Name              string `yaml:"name" json:"name" validate:"required,max=200"`
	Description       string `yaml:"description,omitempty" json:"description,omitempty"`
	Class             string `yaml:"class,omitempty" json:"class,omitempty" validate:"max=50"`
	Indications       string `yaml:"indications,omitempty" json:"indications,omitempty"`
	Composition       string `yaml:"composition,omitempty" json:"composition,omitempty"`
	Dosage            string `yaml:"dosage,omitempty" json:"dosage,omitempty"`
	Contraindications string `yaml:"contraindications,omitempty" json:"contraindications,omitempty"`
	SideEffects       string `yaml:"side_effects,omitempty" json:"side_effects,omitempty"`
	Price             string `yaml:"price,omitempty" json:"price,omitempty" validate:"max=100"`
	Manufacturer      string `yaml:"manufacturer,omitempty" json:"manufacturer,omitempty" validate:"max=200"`
	Warning           string `yaml:"warning,omitempty" json:"warning,omitempty"`
	Image             string `yaml:"image,omitempty" json:"image,omitempty" validate:"max=200"`
	Category          string `yaml:"category" json:"category" validate:"required,alphanum,max=10"`
}

// Rule maps an observation to a set of categories with a confidence.
type Rule struct {
	ID          int64    `yaml:"-" json:"id"`
	Observation string   `yaml:"observation" json:"observation" validate:"required,alphanum,max=10"`
	Categories  []string `yaml:"categories" json:"categories" validate:"min=1,dive,required,alphanum,max=10"`
	Confidence  float64  `yaml:"confidence" json:"confidence" validate:"gte=0,lte=1"`
}

// Label returns the canonical category label of r.
func (r Rule) Label() (evidence.Label, error) {
	return evidence.ParseLabel(strings.Join(r.Categories, evidence.Separator))
}

// Evidence converts r for the evidence engine.
func (r Rule) Evidence() (evidence.Rule, error) {
	label, err := r.Label()
	if err != nil {
		return evidence.Rule{}, errors.Wrapf(err, "rule for %s", r.Observation)
	}
	return evidence.Rule{Observation: r.Observation, Label: label, Confidence: r.Confidence}, nil
}

// Catalog is a complete import document.
type Catalog struct {
	Observations []Observation `yaml:"observations" validate:"dive"`
	Categories   []Category    `yaml:"categories" validate:"dive"`
	Items        []Item        `yaml:"items" validate:"dive"`
	Rules        []Rule        `yaml:"rules" validate:"dive"`
}

// Load reads and validates a YAML catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read catalog %s", path)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog, canonicalises its codes and validates it.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "failed to parse catalog")
	}
	c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// CanonicalCode folds a code to NFKC, trims it and upper-cases it so that
// "ｇ01" and " g01" both become "G01".
func CanonicalCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(norm.NFKC.String(s)))
}

// CanonicalCodes canonicalises, sorts and de-duplicates category codes.
// Blank entries are kept out.
func CanonicalCodes(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}
	canon := make([]string, 0, len(codes))
	for _, c := range codes {
		if c = CanonicalCode(c); c != "" {
			canon = append(canon, c)
		}
	}
	label, err := evidence.ParseLabel(strings.Join(canon, evidence.Separator))
	if err != nil {
		return nil
	}
	return label.Codes()
}

// Normalize rewrites every code in place.
func (c *Catalog) Normalize() {
	for i := range c.Observations {
		c.Observations[i].Code = CanonicalCode(c.Observations[i].Code)
		c.Observations[i].Name = strings.TrimSpace(c.Observations[i].Name)
	}
	for i := range c.Categories {
		c.Categories[i].Code = CanonicalCode(c.Categories[i].Code)
		c.Categories[i].Name = strings.TrimSpace(c.Categories[i].Name)
	}
	for i := range c.Items {
		c.Items[i].Code = CanonicalCode(c.Items[i].Code)
		c.Items[i].Category = CanonicalCode(c.Items[i].Category)
	}
	for i := range c.Rules {
		c.Rules[i].Observation = CanonicalCode(c.Rules[i].Observation)
		c.Rules[i].Categories = CanonicalCodes(c.Rules[i].Categories)
	}
}

// Validate checks field constraints and that every reference resolves.
func (c *Catalog) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return errors.WithHint(errors.Wrap(err, "invalid catalog"),
			"codes are alphanumeric, names are required and confidences lie in [0,1]")
	}

	observations := make(map[string]bool, len(c.Observations))
	for _, o := range c.Observations {
		if observations[o.Code] {
			return errors.Newf("duplicate observation %s", o.Code)
		}
		observations[o.Code] = true
	}
	categories := make(map[string]bool, len(c.Categories))
	for _, k := range c.Categories {
		if categories[k.Code] {
			return errors.Newf("duplicate category %s", k.Code)
		}
		categories[k.Code] = true
	}

	for _, it := range c.Items {
		if !categories[it.Category] {
			return errors.WithHintf(errors.Newf("item %s references unknown category %s", it.Code, it.Category),
				"declare %s under categories", it.Category)
		}
	}
	for _, r := range c.Rules {
		if err := ValidateRule(r, observations, categories); err != nil {
			return err
		}
	}
	return nil
}

// ValidateRule checks one rule against the known observation and category
// codes. Either set may be nil to skip that reference check.
func ValidateRule(r Rule, observations, categories map[string]bool) error {
	if err := validation.ValidateStruct(&r); err != nil {
		return errors.WithHint(errors.Wrapf(err, "invalid rule for %s", r.Observation),
			"a rule needs an observation, at least one category and a confidence in [0,1]")
	}
	if observations != nil && !observations[r.Observation] {
		return errors.Newf("rule references unknown observation %s", r.Observation)
	}
	for _, code := range r.Categories {
		if categories != nil && !categories[code] {
			return errors.Newf("rule for %s references unknown category %s", r.Observation, code)
		}
	}
	return nil
}
