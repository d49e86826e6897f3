package persona

import (
	_ "embed"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Persona captures the assistant profile a dealership site gets. Empty
// fields inherit from the default persona.
type Persona struct {
	Domain         string   `yaml:"domain" json:"domain"`
	DisplayName    string   `yaml:"displayName" json:"displayName"`
	WelcomeMessage string   `yaml:"welcomeMessage" json:"welcomeMessage"`
	PrimaryColor   string   `yaml:"primaryColor" json:"primaryColor"`
	Intro          string   `yaml:"intro" json:"-"`
	Guidelines     []string `yaml:"guidelines" json:"-"`
	BookingRules   []string `yaml:"bookingRules" json:"-"`
	Capabilities   []string `yaml:"capabilities" json:"-"`
	FallbackSteps  []string `yaml:"fallbackSteps" json:"-"`
}

// File is the on-disk layout of a persona catalogue.
type File struct {
	Default  Persona   `yaml:"default"`
	Personas []Persona `yaml:"personas"`
}

//go:embed personas.yaml
var defaultCatalogue []byte

// Seed returns the built-in persona catalogue.
func Seed() (File, error) {
	return Parse(defaultCatalogue)
}

// Parse decodes a YAML persona catalogue.
func Parse(data []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, errors.Wrap(err, "parse persona catalogue")
	}
	if strings.TrimSpace(f.Default.Intro) == "" {
		return File{}, errors.New("persona catalogue: default.intro is required")
	}
	for i, p := range f.Personas {
		if strings.TrimSpace(p.Domain) == "" {
			return File{}, errors.Errorf("persona catalogue: personas[%d] has no domain", i)
		}
	}
	return f, nil
}

// LoadFile reads a catalogue from path, or the built-in one when path is empty.
func LoadFile(path string) (File, error) {
	if strings.TrimSpace(path) == "" {
		return Seed()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, errors.Wrapf(err, "read persona file %s", path)
	}
	return Parse(data)
}

// merge fills empty fields of p from base and substitutes the domain placeholder.
func merge(base, p Persona, domain string) Persona {
	out := p
	out.Domain = domain
	if out.DisplayName == "" {
		out.DisplayName = base.DisplayName
	}
	if out.WelcomeMessage == "" {
		out.WelcomeMessage = base.WelcomeMessage
	}
	if out.PrimaryColor == "" {
		out.PrimaryColor = base.PrimaryColor
	}
	if out.Intro == "" {
		out.Intro = base.Intro
	}
	if len(out.Guidelines) == 0 {
		out.Guidelines = base.Guidelines
	}
	if len(out.BookingRules) == 0 {
		out.BookingRules = base.BookingRules
	}
	if len(out.Capabilities) == 0 {
		out.Capabilities = base.Capabilities
	}
	if len(out.FallbackSteps) == 0 {
		out.FallbackSteps = base.FallbackSteps
	}

	r := strings.NewReplacer("{domain}", domain)
	out.DisplayName = r.Replace(out.DisplayName)
	out.WelcomeMessage = r.Replace(out.WelcomeMessage)
	out.Intro = r.Replace(out.Intro)
	out.Guidelines = replaceAll(r, out.Guidelines)
	out.BookingRules = replaceAll(r, out.BookingRules)
	out.Capabilities = replaceAll(r, out.Capabilities)
	out.FallbackSteps = replaceAll(r, out.FallbackSteps)
	return out
}

func replaceAll(r *strings.Replacer, items []string) []string {
	if len(items) == 0 {
		return nil
	}
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = r.Replace(item)
	}
	return out
}
