package chainclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/blockwatch/sentinel/internal/model"
)

func TestPool_PickOnlyReturnsKnownIndices(t *testing.T) {
	p := newPool([]model.RPCEndpoint{
		{URL: "http://a", Weight: 1},
		{URL: "http://b", Weight: 9},
	})

	for i := 0; i < 50; i++ {
		idx := p.pick()
		assert.True(t, idx == 0 || idx == 1)
	}
}

func TestPool_MarkBadRotatesAwayFromFailedEndpoint(t *testing.T) {
	p := newPool([]model.RPCEndpoint{
		{URL: "http://a", Weight: 1},
		{URL: "http://b", Weight: 1},
	})
	p.markBad(0, time.Minute)

	for i := 0; i < 50; i++ {
		assert.Equal(t, 1, p.pick())
	}
}

func TestPool_AllBadFallsBackToFullSet(t *testing.T) {
	p := newPool([]model.RPCEndpoint{
		{URL: "http://a", Weight: 1},
		{URL: "http://b", Weight: 1},
	})
	p.markBad(0, time.Minute)
	p.markBad(1, time.Minute)

	idx := p.pick()
	assert.True(t, idx == 0 || idx == 1)
}

func TestPool_MarkBadExpires(t *testing.T) {
	p := newPool([]model.RPCEndpoint{
		{URL: "http://a", Weight: 1},
		{URL: "http://b", Weight: 1},
	})
	p.markBad(0, -time.Minute) // already expired

	seenA := false
	for i := 0; i < 50; i++ {
		if p.pick() == 0 {
			seenA = true
		}
	}
	assert.True(t, seenA, "an expired bad-mark must not keep excluding the endpoint")
}

func TestPool_ZeroWeightTreatedAsOne(t *testing.T) {
	p := newPool([]model.RPCEndpoint{
		{URL: "http://a", Weight: 0},
		{URL: "http://b", Weight: 0},
	})

	for i := 0; i < 20; i++ {
		idx := p.pick()
		assert.True(t, idx == 0 || idx == 1)
	}
}

func TestPool_SizeAndURL(t *testing.T) {
	p := newPool([]model.RPCEndpoint{{URL: "http://a", Weight: 1}})
	assert.Equal(t, 1, p.size())
	assert.Equal(t, "http://a", p.url(0))
}
