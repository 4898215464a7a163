// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Profile is a named, ordered list of title templates for one source
// family. Templates are declarative data, not code: each is a literal
// title shape with {artist}, {album} and {track} placeholders, e.g.
//
//	"{artist} – {album} (Album Review)"
//	"Review: {artist}'s {album}"
//	"{artist} Premieres New Track '{track}'"
//
// Templates are tried in declaration order and the first structural
// match wins, so a profile that lists its en-dash template before the
// hyphen one has fixed which separator dominates ambiguous titles.
type Profile struct {
	Name      string   `yaml:"name"`
	Templates []string `yaml:"templates"`

	compiled []*template
}

type template struct {
	re     *regexp.Regexp
	groups []string
}

var placeholderRe = regexp.MustCompile(`\{(artist|album|track)\}`)

// compile turns a template string into an anchored case-insensitive
// regexp. Literal runs are quoted; placeholders become lazy capture
// groups, which with the end anchor means the leftmost separator
// occurrence in the template splits the title.
func compile(tmpl string) (*template, error) {
	var (
		b      strings.Builder
		groups []string
		last   int
	)
	b.WriteString(`(?i)^\s*`)

	for _, loc := range placeholderRe.FindAllStringSubmatchIndex(tmpl, -1) {
		b.WriteString(regexp.QuoteMeta(tmpl[last:loc[0]]))
		name := tmpl[loc[2]:loc[3]]
		groups = append(groups, name)
		b.WriteString(`(.+?)`)
		last = loc[1]
	}
	b.WriteString(regexp.QuoteMeta(tmpl[last:]))
	b.WriteString(`\s*$`)

	if len(groups) == 0 {
		return nil, fmt.Errorf("template %q has no placeholders", tmpl)
	}

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", tmpl, err)
	}
	return &template{re: re, groups: groups}, nil
}

// Compile prepares all templates of the profile. It fails on the first
// malformed template so a bad profile file is caught at load time, not
// per entry.
func (p *Profile) Compile() error {
	p.compiled = p.compiled[:0]
	for _, t := range p.Templates {
		c, err := compile(t)
		if err != nil {
			return fmt.Errorf("profile %s: %w", p.Name, err)
		}
		p.compiled = append(p.compiled, c)
	}
	return nil
}

// defaultTemplates cover the common title shapes seen across
// publishers. Review-suffixed and quoted forms come first because they
// are more specific than a bare separator split; the en-dash variants
// precede the plain hyphen ones.
var defaultTemplates = []string{
	"Review: {artist}'s {album}",
	"Review: {artist} – {album}",
	"Review: {artist} - {album}",
	"{artist} – {album} (Album Review)",
	"{artist} - {album} (Album Review)",
	"{artist} – {album} Album Review",
	"{artist} – {album} Review",
	"{artist} - {album} Review",
	"{album} by {artist}",
	"{artist} Premieres New Track '{track}'",
	"{artist} Premieres New Track “{track}”",
	"{artist} Premieres '{track}'",
	"{artist} – {album}",
	"{artist} - {album}",
	"{artist}: {album}",
}

// Registry resolves profile names to compiled profiles, falling back
// to the default profile for unknown names.
type Registry struct {
	profiles map[string]*Profile
	fallback *Profile
}

// NewRegistry builds a registry containing only the built-in default
// profile.
func NewRegistry() *Registry {
	def := &Profile{Name: "default", Templates: defaultTemplates}
	if err := def.Compile(); err != nil {
		// Built-in templates are static data; a compile failure is a
		// programming error.
		panic(err)
	}
	return &Registry{
		profiles: map[string]*Profile{"default": def},
		fallback: def,
	}
}

// Get returns the named profile, or the default profile when the name
// is empty or unknown.
func (r *Registry) Get(name string) *Profile {
	if p, ok := r.profiles[name]; ok {
		return p
	}
	return r.fallback
}

// Add compiles and registers a profile, replacing any profile with the
// same name.
func (r *Registry) Add(p *Profile) error {
	if err := p.Compile(); err != nil {
		return err
	}
	r.profiles[p.Name] = p
	return nil
}

type profileFile struct {
	Profiles []*Profile `yaml:"profiles"`
}

// LoadFile reads additional profiles from a YAML file and merges them
// into the registry. A missing file is not an error; the built-in
// defaults stay in effect.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading profiles file %s: %w", path, err)
	}

	var pf profileFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return fmt.Errorf("parsing profiles file %s: %w", path, err)
	}

	for _, p := range pf.Profiles {
		if err := r.Add(p); err != nil {
			return err
		}
	}
	return nil
}
