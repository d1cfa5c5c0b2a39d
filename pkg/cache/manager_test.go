package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func carDescription() *Description {
	return &Description{
		Name:             "car_c",
		DisplayName:      "Car",
		IDField:          "marketoGUID",
		DedupeFields:     []string{"vin"},
		SearchableFields: [][]string{{"vin"}, {"marketoGUID"}, {"customerId", "model"}},
		Fields: []Field{
			{Name: "marketoGUID", DataType: "string"},
			{Name: "vin", DataType: "string", Updateable: true},
			{Name: "model", DataType: "string", Updateable: true},
		},
	}
}

// countingFetch returns a FetchFunc that counts its calls.
func countingFetch(calls *int32, delay time.Duration) FetchFunc {
	return func(ctx context.Context, name string) (*Description, error) {
		atomic.AddInt32(calls, 1)
		if delay > 0 {
			time.Sleep(delay)
		}
		desc := carDescription()
		desc.Name = name
		return desc, nil
	}
}

func TestGetOrFetch_SecondCallServedFromCache(t *testing.T) {
	var calls int32
	c := New(NewMemoryStore())
	ctx := context.Background()

	first, err := c.GetOrFetch(ctx, "car_c", countingFetch(&calls, 0))
	if err != nil {
		t.Fatalf("GetOrFetch failed: %v", err)
	}
	second, err := c.GetOrFetch(ctx, "car_c", countingFetch(&calls, 0))
	if err != nil {
		t.Fatalf("GetOrFetch failed: %v", err)
	}

	if calls != 1 {
		t.Errorf("describe calls = %d, want 1", calls)
	}
	if first != second {
		t.Error("second call should return the cached description")
	}
}

func TestGetOrFetch_SeparateNames(t *testing.T) {
	var calls int32
	c := New(nil)
	ctx := context.Background()

	for _, name := range []string{"car_c", "boat_c", "car_c", "boat_c"} {
		desc, err := c.GetOrFetch(ctx, name, countingFetch(&calls, 0))
		if err != nil {
			t.Fatalf("GetOrFetch(%s) failed: %v", name, err)
		}
		if desc.Name != name {
			t.Errorf("Name = %q, want %q", desc.Name, name)
		}
	}

	if calls != 2 {
		t.Errorf("describe calls = %d, want 2", calls)
	}
}

func TestGetOrFetch_ConcurrentMissesShareOneFetch(t *testing.T) {
	var calls int32
	c := New(NewMemoryStore())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.GetOrFetch(ctx, "car_c", countingFetch(&calls, 50*time.Millisecond)); err != nil {
				t.Errorf("GetOrFetch failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if calls != 1 {
		t.Errorf("describe calls = %d, want 1", calls)
	}
}

func TestGetOrFetch_CancelledCallerDoesNotFailWaiters(t *testing.T) {
	var calls int32
	c := New(NewMemoryStore())

	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(ctx context.Context, name string) (*Description, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return carDescription(), nil
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.GetOrFetch(ctxA, "car_c", fetch)
		errA <- err
	}()
	<-started

	type result struct {
		desc *Description
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		desc, err := c.GetOrFetch(context.Background(), "car_c", fetch)
		resB <- result{desc, err}
	}()

	// give B time to join the in-flight fetch
	time.Sleep(50 * time.Millisecond)
	cancelA()
	time.Sleep(20 * time.Millisecond)
	close(release)

	b := <-resB
	if b.err != nil {
		t.Fatalf("waiting caller failed: %v", b.err)
	}
	if b.desc == nil || b.desc.IDField != "marketoGUID" {
		t.Errorf("desc = %+v, want car_c description", b.desc)
	}
	if err := <-errA; err != nil {
		t.Errorf("first caller err = %v, want shared result", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("describe calls = %d, want 1", n)
	}
}

func TestGetOrFetch_ErrorNotCached(t *testing.T) {
	c := New(NewMemoryStore())
	ctx := context.Background()
	boom := errors.New("describe failed")

	_, err := c.GetOrFetch(ctx, "car_c", func(context.Context, string) (*Description, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}

	var calls int32
	if _, err := c.GetOrFetch(ctx, "car_c", countingFetch(&calls, 0)); err != nil {
		t.Fatalf("GetOrFetch after error failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("describe calls = %d, want 1 after a failed fetch", calls)
	}
}

func TestGetOrFetch_NilDescription(t *testing.T) {
	c := New(NewMemoryStore())

	_, err := c.GetOrFetch(context.Background(), "car_c", func(context.Context, string) (*Description, error) {
		return nil, nil
	})
	if err == nil {
		t.Error("expected error for nil description")
	}
}

func TestInvalidate(t *testing.T) {
	var calls int32
	c := New(NewMemoryStore())
	ctx := context.Background()

	if _, err := c.GetOrFetch(ctx, "car_c", countingFetch(&calls, 0)); err != nil {
		t.Fatalf("GetOrFetch failed: %v", err)
	}
	if err := c.Invalidate(ctx, "car_c"); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if _, err := c.GetOrFetch(ctx, "car_c", countingFetch(&calls, 0)); err != nil {
		t.Fatalf("GetOrFetch failed: %v", err)
	}

	if calls != 2 {
		t.Errorf("describe calls = %d, want 2 after Invalidate", calls)
	}
}

// failingStore errors on every operation.
type failingStore struct{}

func (failingStore) Get(context.Context, string) (*Description, error) {
	return nil, errors.New("store down")
}
func (failingStore) Set(context.Context, string, *Description) error { return errors.New("store down") }
func (failingStore) Delete(context.Context, string) error            { return errors.New("store down") }
func (failingStore) Layer() string                                   { return "failing" }

func TestGetOrFetch_StoreErrorsFallBackToFetch(t *testing.T) {
	var calls int32
	c := New(failingStore{})

	desc, err := c.GetOrFetch(context.Background(), "car_c", countingFetch(&calls, 0))
	if err != nil {
		t.Fatalf("GetOrFetch failed: %v", err)
	}
	if desc == nil || calls != 1 {
		t.Errorf("desc = %v, calls = %d", desc, calls)
	}
}

func TestDescription_Helpers(t *testing.T) {
	desc := carDescription()

	names := desc.FieldNames()
	if len(names) != 3 || names[0] != "marketoGUID" || names[2] != "model" {
		t.Errorf("FieldNames() = %v", names)
	}
	if !desc.IsSearchable("vin") {
		t.Error("vin should be searchable")
	}
	if desc.IsSearchable("model") {
		t.Error("model is only part of a compound key")
	}
}
