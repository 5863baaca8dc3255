package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockwatch/sentinel/internal/model"
)

func TestNew_RejectsUnknownNetworkReference(t *testing.T) {
	monitors := []model.Monitor{{Name: "m", Networks: []string{"missing"}}}
	_, err := New(nil, monitors, nil)
	require.Error(t, err)
	var cfgErr *model.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestNew_RejectsUnknownTriggerReference(t *testing.T) {
	networks := []model.Network{{Slug: "n"}}
	monitors := []model.Monitor{{Name: "m", Networks: []string{"n"}, Triggers: []string{"missing"}}}
	_, err := New(networks, monitors, nil)
	require.Error(t, err)
}

func TestNew_RejectsDuplicateNetworkSlug(t *testing.T) {
	networks := []model.Network{{Slug: "n"}, {Slug: "n"}}
	_, err := New(networks, nil, nil)
	require.Error(t, err)
}

func TestNew_RejectsMonitorWithNoNetworks(t *testing.T) {
	monitors := []model.Monitor{{Name: "m"}}
	_, err := New(nil, monitors, nil)
	require.Error(t, err)
}

func TestMonitorsForNetwork_ExcludesPaused(t *testing.T) {
	networks := []model.Network{{Slug: "n"}}
	monitors := []model.Monitor{
		{Name: "active", Networks: []string{"n"}},
		{Name: "paused", Networks: []string{"n"}, Paused: true},
	}
	repo, err := New(networks, monitors, nil)
	require.NoError(t, err)

	got := repo.MonitorsForNetwork("n")
	require.Len(t, got, 1)
	assert.Equal(t, "active", got[0].Name)
}

func TestMonitorsForNetwork_OnlyListsTargetedMonitors(t *testing.T) {
	networks := []model.Network{{Slug: "a"}, {Slug: "b"}}
	monitors := []model.Monitor{
		{Name: "watch-a", Networks: []string{"a"}},
		{Name: "watch-b", Networks: []string{"b"}},
	}
	repo, err := New(networks, monitors, nil)
	require.NoError(t, err)

	assert.Len(t, repo.MonitorsForNetwork("a"), 1)
	assert.Len(t, repo.MonitorsForNetwork("b"), 1)
	assert.Empty(t, repo.MonitorsForNetwork("c"))
}

func TestNetworkAndTriggerAndMonitorLookups(t *testing.T) {
	networks := []model.Network{{Slug: "n"}}
	triggers := []model.Trigger{{Name: "t", Kind: model.TriggerKindSlack, Slack: &model.SlackConfig{}}}
	monitors := []model.Monitor{{Name: "m", Networks: []string{"n"}, Triggers: []string{"t"}}}
	repo, err := New(networks, monitors, triggers)
	require.NoError(t, err)

	n, ok := repo.Network("n")
	require.True(t, ok)
	assert.Equal(t, "n", n.Slug)

	trg, ok := repo.Trigger("t")
	require.True(t, ok)
	assert.Equal(t, model.TriggerKindSlack, trg.Kind)

	m, ok := repo.Monitor("m")
	require.True(t, ok)
	assert.Equal(t, "m", m.Name)

	_, ok = repo.Monitor("does-not-exist")
	assert.False(t, ok)
}
