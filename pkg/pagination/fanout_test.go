package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type asset struct {
	ID   int64
	Name string
}

var byName = CompareNameFold(func(a asset) string { return a.Name }, func(a asset) int64 { return a.ID })

func TestFanOut_ThirdBranchFails(t *testing.T) {
	names := map[int][]string{
		0:   {"zeta", "Alpha"},
		200: {"beta"},
		400: {"lost"},
		600: {"Gamma", "alpha"},
		800: {"Delta"},
	}

	fetch := func(_ context.Context, offset int) ([]asset, error) {
		if offset == 400 {
			return nil, errors.New("HTTP 503")
		}
		var out []asset
		for i, n := range names[offset] {
			out = append(out, asset{ID: int64(offset + i), Name: n})
		}
		return out, nil
	}

	result := FanOut(context.Background(), DefaultOffsets, fetch, byName)

	assert.False(t, result.Success)
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "offset 400")

	got := make([]string, len(result.Result))
	for i, a := range result.Result {
		got[i] = a.Name
	}
	assert.Equal(t, []string{"Alpha", "alpha", "beta", "Delta", "Gamma", "zeta"}, got)
}

func TestFanOut_RunsConcurrently(t *testing.T) {
	var inFlight, peak int32
	var mu sync.Mutex
	seen := map[int]bool{}

	fetch := func(_ context.Context, offset int) ([]asset, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)

		mu.Lock()
		seen[offset] = true
		mu.Unlock()
		return []asset{{ID: int64(offset), Name: fmt.Sprintf("a%03d", offset)}}, nil
	}

	result := FanOut(context.Background(), DefaultOffsets, fetch, byName)

	assert.True(t, result.Success)
	assert.Len(t, result.Result, 5)
	assert.Len(t, seen, 5)
	assert.Greater(t, atomic.LoadInt32(&peak), int32(1), "offset pages should overlap")
}

func TestFanOut_OrderIndependentOfArrival(t *testing.T) {
	fetch := func(_ context.Context, offset int) ([]asset, error) {
		// later offsets answer first
		time.Sleep(time.Duration(1000-offset) * time.Microsecond * 20)
		return []asset{{ID: int64(offset), Name: "same"}}, nil
	}

	first := FanOut(context.Background(), DefaultOffsets, fetch, byName)
	second := FanOut(context.Background(), DefaultOffsets, fetch, byName)

	assert.Equal(t, first.Result, second.Result)
	for i := 1; i < len(first.Result); i++ {
		assert.Less(t, first.Result[i-1].ID, first.Result[i].ID)
	}
}

func TestFanOut_AllFail(t *testing.T) {
	fetch := func(_ context.Context, _ int) ([]asset, error) {
		return nil, errors.New("down")
	}

	result := FanOut(context.Background(), DefaultOffsets, fetch, byName)

	assert.False(t, result.Success)
	assert.Empty(t, result.Result)
	assert.NotNil(t, result.Result)
}

func TestCompareNameFold(t *testing.T) {
	assert.Negative(t, byName(asset{ID: 2, Name: "apple"}, asset{ID: 1, Name: "Banana"}))
	assert.Positive(t, byName(asset{ID: 1, Name: "cherry"}, asset{ID: 2, Name: "Banana"}))
	assert.Negative(t, byName(asset{ID: 1, Name: "Same"}, asset{ID: 2, Name: "same"}))
	assert.Zero(t, byName(asset{ID: 1, Name: "x"}, asset{ID: 1, Name: "X"}))
}
