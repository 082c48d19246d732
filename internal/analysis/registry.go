package analysis

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Wikid82/logwarden/internal/logger"
)

// Registry is the ordered table of usable providers, resolved once at start-up.
type Registry struct {
	providers []Provider
}

func NewRegistry(providers ...Provider) *Registry {
	return &Registry{providers: providers}
}

// BuildProviders turns configuration entries into providers. Disabled entries,
// unknown names and providers missing credentials are skipped with a log line.
func BuildProviders(entries []ModelEntry, opts ...Option) *Registry {
	log := logger.Component("analysis")
	r := &Registry{}
	for _, entry := range entries {
		fields := logrus.Fields{"provider": entry.Name}
		if !entry.Enabled {
			log.WithFields(fields).Debug("provider disabled in configuration")
			continue
		}

		var p Provider
		switch strings.ToLower(strings.TrimSpace(entry.Name)) {
		case ProviderOpenAI, "chatgpt":
			p = NewOpenAIProvider(entry, opts...)
		case ProviderPerplexity:
			p = NewPerplexityProvider(entry, opts...)
		case ProviderStatic:
			p = NewStaticProvider("")
		default:
			log.WithFields(fields).Warn("unknown analysis provider ignored")
			continue
		}

		if !p.Enabled() {
			log.WithFields(fields).Warn("provider enabled but has no API key; skipping")
			continue
		}
		r.providers = append(r.providers, p)
	}
	return r
}

// Select returns the first enabled provider.
func (r *Registry) Select() (Provider, bool) {
	if r == nil {
		return nil, false
	}
	for _, p := range r.providers {
		if p.Enabled() {
			return p, true
		}
	}
	return nil, false
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		names = append(names, p.Name())
	}
	return names
}

func (r *Registry) Len() int { return len(r.providers) }
