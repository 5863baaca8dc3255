package blockwatcher

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockwatch/sentinel/internal/model"
	"github.com/blockwatch/sentinel/internal/repository"
	"github.com/blockwatch/sentinel/pkg/cursor"
	"github.com/blockwatch/sentinel/pkg/filter"
	"github.com/blockwatch/sentinel/pkg/notifier"
	"github.com/blockwatch/sentinel/pkg/trigger"
)

type fakeClient struct {
	latest           uint64
	latestErr        error
	fetchedBlocks    []uint64
	failFetchAtBlock uint64
}

func (c *fakeClient) LatestHeight(context.Context) (uint64, error) { return c.latest, c.latestErr }

func (c *fakeClient) FetchBlock(_ context.Context, height uint64) (interface{}, error) {
	if c.failFetchAtBlock != 0 && height == c.failFetchAtBlock {
		return nil, &model.TransientFetch{Network: "n", Cause: fmt.Errorf("boom")}
	}
	c.fetchedBlocks = append(c.fetchedBlocks, height)
	return height, nil
}

func (c *fakeClient) FetchReceiptsOrTraces(_ context.Context, block interface{}) (interface{}, error) {
	return block, nil
}

func (c *fakeClient) FetchLogs(context.Context, uint64, uint64, []string) (interface{}, error) {
	return nil, nil
}

func (c *fakeClient) Close() {}

type fakeDecoder struct{}

func (fakeDecoder) Decode(_ context.Context, block, _, _ interface{}, _ []model.MonitoredAddress) ([]model.MatchCandidate, error) {
	height := block.(uint64)
	return []model.MatchCandidate{{
		Kind:           model.CandidateKindEVM,
		BlockNumber:    height,
		EVMTransaction: &model.EVMTransaction{Hash: fmt.Sprintf("0x%d", height)},
	}}, nil
}

func newTestWatcher(t *testing.T, client *fakeClient, network model.Network) (*Watcher, *cursor.Cursor) {
	t.Helper()
	cur, err := cursor.Load(t.TempDir())
	require.NoError(t, err)

	repo, err := repository.New([]model.Network{network}, nil, nil)
	require.NoError(t, err)

	engine := filter.NewEngine()
	dispatcher := trigger.NewDispatcher(repo, func(model.Trigger) (notifier.Notifier, error) {
		return nil, fmt.Errorf("no triggers expected in this test")
	}, 4)

	w := New(network, 12_000, client, fakeDecoder{}, engine, dispatcher, cur, nil, repo)
	return w, cur
}

func TestTick_FirstRunProcessesOnlyNewestSafeBlock(t *testing.T) {
	network := model.Network{Slug: "n", ConfirmationBlocks: 2, MaxPastBlocks: 100}
	client := &fakeClient{latest: 110}
	w, cur := newTestWatcher(t, client, network)

	w.Tick(context.Background())

	assert.Equal(t, []uint64{108}, client.fetchedBlocks)
	height, ok := cur.Get("n")
	assert.True(t, ok)
	assert.Equal(t, uint64(108), height)
}

func TestTick_AdvancesFromCursorOnSubsequentRuns(t *testing.T) {
	network := model.Network{Slug: "n", ConfirmationBlocks: 0, MaxPastBlocks: 100}
	client := &fakeClient{latest: 105}
	w, cur := newTestWatcher(t, client, network)
	require.NoError(t, cur.Set("n", 100))

	w.Tick(context.Background())

	assert.Equal(t, []uint64{101, 102, 103, 104, 105}, client.fetchedBlocks)
	height, _ := cur.Get("n")
	assert.Equal(t, uint64(105), height)
}

func TestTick_OutageClampsToMaxPastBlocks(t *testing.T) {
	network := model.Network{Slug: "n", ConfirmationBlocks: 0, MaxPastBlocks: 3}
	client := &fakeClient{latest: 1000}
	w, cur := newTestWatcher(t, client, network)
	require.NoError(t, cur.Set("n", 1)) // a long outage: cursor is far behind

	w.Tick(context.Background())

	assert.Equal(t, []uint64{998, 999, 1000}, client.fetchedBlocks)
	height, _ := cur.Get("n")
	assert.Equal(t, uint64(1000), height)
}

func TestTick_TransientFetchAbortsWithoutAdvancingCursor(t *testing.T) {
	network := model.Network{Slug: "n", ConfirmationBlocks: 0, MaxPastBlocks: 100}
	client := &fakeClient{latest: 105, failFetchAtBlock: 103}
	w, cur := newTestWatcher(t, client, network)
	require.NoError(t, cur.Set("n", 100))

	w.Tick(context.Background())

	assert.Equal(t, []uint64{101, 102}, client.fetchedBlocks)
	height, _ := cur.Get("n")
	assert.Equal(t, uint64(100), height, "cursor must not advance past an aborted tick")
}

func TestTick_FirstRunAtGenesisProcessesBlockZero(t *testing.T) {
	network := model.Network{Slug: "n", ConfirmationBlocks: 0, MaxPastBlocks: 100}
	client := &fakeClient{latest: 0}
	w, cur := newTestWatcher(t, client, network)

	w.Tick(context.Background())

	assert.Equal(t, []uint64{0}, client.fetchedBlocks)
	height, ok := cur.Get("n")
	assert.True(t, ok)
	assert.Equal(t, uint64(0), height)
}

func TestTick_NoSafeBlockIsNoOp(t *testing.T) {
	network := model.Network{Slug: "n", ConfirmationBlocks: 10}
	client := &fakeClient{latest: 5}
	w, cur := newTestWatcher(t, client, network)

	w.Tick(context.Background())

	assert.Empty(t, client.fetchedBlocks)
	_, ok := cur.Get("n")
	assert.False(t, ok)
}
