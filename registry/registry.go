package registry

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Registry holds the taint source, sink, sanitizer and library-summary
// tables. It is initialized once, may be extended with custom entries
// before an analysis run, and is read-only while a pass executes.
// Mutating it concurrently with a running pass is undefined behavior.
type Registry struct {
	sources    map[string]TaintSource
	sinks      map[string]TaintSink
	sanitizers map[string]Sanitizer
	summaries  map[string]LibrarySummary
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		sources:    make(map[string]TaintSource),
		sinks:      make(map[string]TaintSink),
		sanitizers: make(map[string]Sanitizer),
		summaries:  make(map[string]LibrarySummary),
	}
}

// Default creates a registry pre-populated with the shipped tables
// covering stdio, POSIX, OpenSSL, SQL client libraries and common
// sanitizers.
func Default() *Registry {
	r := New()
	for _, s := range defaultSources() {
		r.sources[s.Name] = s
	}
	for _, s := range defaultSinks() {
		r.sinks[s.Name] = s
	}
	for _, s := range defaultSanitizers() {
		r.sanitizers[s.Name] = s
	}
	for _, s := range defaultSummaries() {
		r.summaries[s.Name] = s
	}
	return r
}

// Source looks up a taint source by function name.
func (r *Registry) Source(name string) (TaintSource, bool) {
	s, ok := r.sources[name]
	return s, ok
}

// Sink looks up a taint sink by function name.
func (r *Registry) Sink(name string) (TaintSink, bool) {
	s, ok := r.sinks[name]
	return s, ok
}

// SanitizerFor looks up a sanitizer by function name.
func (r *Registry) SanitizerFor(name string) (Sanitizer, bool) {
	s, ok := r.sanitizers[name]
	return s, ok
}

// Summary looks up a library summary by function name.
func (r *Registry) Summary(name string) (LibrarySummary, bool) {
	s, ok := r.summaries[name]
	return s, ok
}

// IsSource returns true if the function is a registered taint source.
func (r *Registry) IsSource(name string) bool {
	_, ok := r.sources[name]
	return ok
}

// IsSink returns true if the function is a registered taint sink.
func (r *Registry) IsSink(name string) bool {
	_, ok := r.sinks[name]
	return ok
}

// IsSanitizer returns true if the function is a registered sanitizer.
func (r *Registry) IsSanitizer(name string) bool {
	_, ok := r.sanitizers[name]
	return ok
}

// IsUnsafeFunction returns true for sinks the security detector treats
// as unsafe regardless of taint (buffer operations and command
// execution).
func (r *Registry) IsUnsafeFunction(name string) bool {
	sink, ok := r.sinks[name]
	if !ok {
		return false
	}
	return sink.Category == SinkBufferOperation || sink.Category == SinkCommandExecution
}

// SourceNames returns all registered source names, sorted.
func (r *Registry) SourceNames() []string {
	return sortedKeysSource(r.sources)
}

// SinkNames returns all registered sink names, sorted.
func (r *Registry) SinkNames() []string {
	names := make([]string, 0, len(r.sinks))
	for name := range r.sinks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddCustomSource registers or replaces a taint source.
func (r *Registry) AddCustomSource(source TaintSource) {
	r.sources[source.Name] = source
}

// RemoveCustomSource drops a taint source by name.
func (r *Registry) RemoveCustomSource(name string) {
	delete(r.sources, name)
}

// AddCustomSink registers or replaces a taint sink.
func (r *Registry) AddCustomSink(sink TaintSink) {
	if sink.CWE == "" {
		sink.CWE = CWEFor(VulnerabilityTypeFor(sink.Category))
	}
	r.sinks[sink.Name] = sink
}

// RemoveCustomSink drops a taint sink by name.
func (r *Registry) RemoveCustomSink(name string) {
	delete(r.sinks, name)
}

// AddCustomSanitizer registers or replaces a sanitizer.
func (r *Registry) AddCustomSanitizer(sanitizer Sanitizer) {
	r.sanitizers[sanitizer.Name] = sanitizer
}

// RemoveCustomSanitizer drops a sanitizer by name.
func (r *Registry) RemoveCustomSanitizer(name string) {
	delete(r.sanitizers, name)
}

// AddCustomSummary registers or replaces a library summary.
func (r *Registry) AddCustomSummary(summary LibrarySummary) {
	r.summaries[summary.Name] = summary
}

// RemoveCustomSummary drops a library summary by name.
func (r *Registry) RemoveCustomSummary(name string) {
	delete(r.summaries, name)
}

// Overlay is the YAML document shape accepted by LoadOverlay.
type Overlay struct {
	Sources    []TaintSource    `yaml:"sources"`
	Sinks      []TaintSink      `yaml:"sinks"`
	Sanitizers []Sanitizer      `yaml:"sanitizers"`
	Summaries  []LibrarySummary `yaml:"summaries"`
	Remove     struct {
		Sources    []string `yaml:"sources"`
		Sinks      []string `yaml:"sinks"`
		Sanitizers []string `yaml:"sanitizers"`
		Summaries  []string `yaml:"summaries"`
	} `yaml:"remove"`
}

// LoadOverlay applies a YAML overlay file to the registry. An added
// entry replaces a same-named existing one; additions are applied
// before removals, so a name both added and removed ends up removed.
func (r *Registry) LoadOverlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading registry overlay %s: %w", path, err)
	}
	return r.ApplyOverlay(data)
}

// ApplyOverlay applies overlay YAML bytes to the registry.
func (r *Registry) ApplyOverlay(data []byte) error {
	var overlay Overlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("decoding registry overlay: %w", err)
	}

	for _, s := range overlay.Sources {
		r.AddCustomSource(s)
	}
	for _, s := range overlay.Sinks {
		r.AddCustomSink(s)
	}
	for _, s := range overlay.Sanitizers {
		r.AddCustomSanitizer(s)
	}
	for _, s := range overlay.Summaries {
		r.AddCustomSummary(s)
	}
	for _, name := range overlay.Remove.Sources {
		r.RemoveCustomSource(name)
	}
	for _, name := range overlay.Remove.Sinks {
		r.RemoveCustomSink(name)
	}
	for _, name := range overlay.Remove.Sanitizers {
		r.RemoveCustomSanitizer(name)
	}
	for _, name := range overlay.Remove.Summaries {
		r.RemoveCustomSummary(name)
	}
	return nil
}

func sortedKeysSource(m map[string]TaintSource) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
