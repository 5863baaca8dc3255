// Package repository holds the in-memory, read-only-after-startup lookup
// tables for networks, monitors and triggers. It is grounded on the
// teacher's chainStacks map built once in cmd/api/main.go and never
// mutated afterward — no locking is needed once construction completes.
package repository

import (
	"github.com/blockwatch/sentinel/internal/model"
)

// Repositories bundles the three immutable configuration lookups a
// running daemon needs.
type Repositories struct {
	networks map[string]model.Network
	monitors map[string]model.Monitor
	triggers map[string]model.Trigger

	// monitorsByNetwork is a precomputed index of non-paused monitors
	// targeting a given network slug, avoiding an O(monitors) scan per
	// candidate in the hot FilterEngine path.
	monitorsByNetwork map[string][]model.Monitor
}

// New validates cross-references (spec.md §7 ConfigError: "unknown
// network referenced by a monitor") and builds the repositories.
func New(networks []model.Network, monitors []model.Monitor, triggers []model.Trigger) (*Repositories, error) {
	netBySlug := make(map[string]model.Network, len(networks))
	for _, n := range networks {
		if _, exists := netBySlug[n.Slug]; exists {
			return nil, model.NewConfigError("duplicate network slug %q", n.Slug)
		}
		netBySlug[n.Slug] = n
	}

	trgByName := make(map[string]model.Trigger, len(triggers))
	for _, t := range triggers {
		if _, exists := trgByName[t.Name]; exists {
			return nil, model.NewConfigError("duplicate trigger name %q", t.Name)
		}
		trgByName[t.Name] = t
	}

	monByName := make(map[string]model.Monitor, len(monitors))
	monByNetwork := make(map[string][]model.Monitor)
	for _, m := range monitors {
		if _, exists := monByName[m.Name]; exists {
			return nil, model.NewConfigError("duplicate monitor name %q", m.Name)
		}
		if len(m.Networks) == 0 {
			return nil, model.NewConfigError("monitor %q has no target networks", m.Name)
		}
		for _, slug := range m.Networks {
			if _, ok := netBySlug[slug]; !ok {
				return nil, model.NewConfigError("monitor %q references unknown network %q", m.Name, slug)
			}
		}
		for _, trgName := range m.Triggers {
			if _, ok := trgByName[trgName]; !ok {
				return nil, model.NewConfigError("monitor %q references unknown trigger %q", m.Name, trgName)
			}
		}
		monByName[m.Name] = m
		if !m.Paused {
			for _, slug := range m.Networks {
				monByNetwork[slug] = append(monByNetwork[slug], m)
			}
		}
	}

	return &Repositories{
		networks:          netBySlug,
		monitors:          monByName,
		triggers:          trgByName,
		monitorsByNetwork: monByNetwork,
	}, nil
}

// Networks returns all configured networks.
func (r *Repositories) Networks() []model.Network {
	out := make([]model.Network, 0, len(r.networks))
	for _, n := range r.networks {
		out = append(out, n)
	}
	return out
}

// Network looks up a network by slug.
func (r *Repositories) Network(slug string) (model.Network, bool) {
	n, ok := r.networks[slug]
	return n, ok
}

// Trigger looks up a trigger by name.
func (r *Repositories) Trigger(name string) (model.Trigger, bool) {
	t, ok := r.triggers[name]
	return t, ok
}

// Monitor looks up a monitor by name.
func (r *Repositories) Monitor(name string) (model.Monitor, bool) {
	m, ok := r.monitors[name]
	return m, ok
}

// MonitorsForNetwork returns non-paused monitors targeting slug, per
// spec.md §3 "A Monitor is evaluated only on networks listed in its
// target set."
func (r *Repositories) MonitorsForNetwork(slug string) []model.Monitor {
	return r.monitorsByNetwork[slug]
}
