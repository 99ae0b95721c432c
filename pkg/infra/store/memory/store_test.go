package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/infra/store/memory"
)

func TestStore_PutAndGet(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	rel := &model.Release{ID: "id-1", DemandID: "DMND0011890", Title: "first"}
	gt.NoError(t, store.Put(ctx, rel))

	got := gt.R1(store.GetByDemandID(ctx, "DMND0011890")).NoError(t)
	gt.Value(t, got).NotNil()
	gt.Value(t, got.Title).Equal("first")

	// Demand IDs are case-insensitive
	got = gt.R1(store.GetByDemandID(ctx, "dmnd0011890")).NoError(t)
	gt.Value(t, got).NotNil()

	// Stored values are isolated from caller mutation
	rel.Title = "mutated"
	got = gt.R1(store.GetByDemandID(ctx, "DMND0011890")).NoError(t)
	gt.Value(t, got.Title).Equal("first")
}

func TestStore_GetMissing(t *testing.T) {
	store := memory.New()
	got := gt.R1(store.GetByDemandID(context.Background(), "DMND0000000")).NoError(t)
	gt.Value(t, got).Nil()
}

func TestStore_PutWithoutDemandID(t *testing.T) {
	store := memory.New()
	gt.Error(t, store.Put(context.Background(), &model.Release{ID: "x"}))
}

func TestStore_GetAllSorted(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	gt.NoError(t, store.Put(ctx, &model.Release{DemandID: "DMND0000002"}))
	gt.NoError(t, store.Put(ctx, &model.Release{DemandID: "DMND0000001"}))

	all := gt.R1(store.GetAll(ctx)).NoError(t)
	gt.Array(t, all).Length(2)
	gt.Value(t, all[0].DemandID).Equal("DMND0000001")
	gt.Value(t, all[1].DemandID).Equal("DMND0000002")
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	gt.NoError(t, store.Put(ctx, &model.Release{DemandID: "DMND0000003"}))
	gt.NoError(t, store.Delete(ctx, "dmnd0000003"))

	got := gt.R1(store.GetByDemandID(ctx, "DMND0000003")).NoError(t)
	gt.Value(t, got).Nil()

	// Deleting a missing release is not an error
	gt.NoError(t, store.Delete(ctx, "DMND0000003"))
}

func TestStore_Watch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := memory.New()

	events := store.Watch(ctx)

	gt.NoError(t, store.Put(ctx, &model.Release{DemandID: "DMND0000004"}))
	gt.NoError(t, store.Delete(ctx, "DMND0000004"))

	ev := waitEvent(t, events)
	gt.Value(t, ev.Kind).Equal(model.ChangePut)
	gt.Value(t, ev.Release).NotNil()

	ev = waitEvent(t, events)
	gt.Value(t, ev.Kind).Equal(model.ChangeDelete)
	gt.Value(t, ev.DemandID).Equal("DMND0000004")
}

func TestStore_WatchClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := memory.New()

	events := store.Watch(ctx)
	cancel()

	select {
	case _, ok := <-events:
		gt.Value(t, ok).Equal(false)
	case <-time.After(time.Second):
		t.Fatal("watch channel was not closed")
	}
}

func waitEvent(t *testing.T, ch <-chan model.ChangeEvent) model.ChangeEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change event")
		return model.ChangeEvent{}
	}
}
