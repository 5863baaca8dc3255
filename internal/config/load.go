// Package config loads the directory-driven network/monitor/trigger
// configuration described in spec.md §6. Each entity kind is a
// heterogeneous collection of independently-shaped JSON documents, which
// doesn't fit uconfig's struct-of-defaults model, so it's decoded
// directly with encoding/json (see DESIGN.md).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/blockwatch/sentinel/internal/model"
)

// LoadNetworks reads one Network per *.json file under dir.
func LoadNetworks(dir string) ([]model.Network, error) {
	var out []model.Network
	err := forEachJSONFile(dir, func(path string, data []byte) error {
		var n model.Network
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("decoding network file %s: %w", path, err)
		}
		if n.Slug == "" {
			return fmt.Errorf("network file %s: missing slug", path)
		}
		if len(n.Endpoints) == 0 {
			return fmt.Errorf("network %q: no rpc_endpoints configured", n.Slug)
		}
		out = append(out, n)
		return nil
	})
	if err != nil {
		return nil, model.NewConfigError("loading networks: %s", err)
	}
	return out, nil
}

// LoadMonitors reads one Monitor per *.json file under dir.
func LoadMonitors(dir string) ([]model.Monitor, error) {
	var out []model.Monitor
	err := forEachJSONFile(dir, func(path string, data []byte) error {
		var m model.Monitor
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("decoding monitor file %s: %w", path, err)
		}
		if m.Name == "" {
			return fmt.Errorf("monitor file %s: missing name", path)
		}
		out = append(out, m)
		return nil
	})
	if err != nil {
		return nil, model.NewConfigError("loading monitors: %s", err)
	}
	return out, nil
}

// LoadTriggers reads triggers rooted at configDir, accepting both forms
// spec.md §6 allows: a single configDir/triggers.json map of
// name->Trigger, or one *.json file per trigger under configDir/triggers.
func LoadTriggers(configDir string) ([]model.Trigger, error) {
	single := filepath.Join(configDir, "triggers.json")
	if data, err := os.ReadFile(single); err == nil {
		var byName map[string]model.Trigger
		if err := json.Unmarshal(data, &byName); err != nil {
			return nil, model.NewConfigError("decoding %s: %s", single, err)
		}
		out := make([]model.Trigger, 0, len(byName))
		for name, t := range byName {
			t.Name = name
			if err := validateTrigger(t); err != nil {
				return nil, model.NewConfigError("trigger %q: %s", name, err)
			}
			out = append(out, t)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out, nil
	}

	var out []model.Trigger
	err := forEachJSONFile(filepath.Join(configDir, "triggers"), func(path string, data []byte) error {
		var t model.Trigger
		if err := json.Unmarshal(data, &t); err != nil {
			return fmt.Errorf("decoding trigger file %s: %w", path, err)
		}
		if t.Name == "" {
			return fmt.Errorf("trigger file %s: missing name", path)
		}
		if err := validateTrigger(t); err != nil {
			return fmt.Errorf("trigger file %s: %w", path, err)
		}
		out = append(out, t)
		return nil
	})
	if err != nil {
		return nil, model.NewConfigError("loading triggers: %s", err)
	}
	return out, nil
}

func validateTrigger(t model.Trigger) error {
	set := 0
	for _, present := range []bool{t.Slack != nil, t.Email != nil, t.Discord != nil, t.Telegram != nil, t.Webhook != nil, t.Script != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("trigger %q must set exactly one of slack/email/discord/telegram/webhook/script, got %d", t.Name, set)
	}
	return nil
}

func forEachJSONFile(dir string, fn func(path string, data []byte) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading directory %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		if err := fn(path, data); err != nil {
			return err
		}
	}
	return nil
}
