package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/stockpiled/stockpile/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitSnapshot(t *testing.T, sub *Subscription) []domain.Product {
	t.Helper()
	select {
	case products := <-sub.Updates():
		return products
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a projection snapshot")
		return nil
	}
}

func TestProjector_InitialSnapshotSorted(t *testing.T) {
	svc, repo, db := newTestService(t)
	proj := NewProjector(repo, svc.Bus())

	seedProduct(t, db, 1, "A", 1, 5)
	seedProduct(t, db, 1, "B", 2, 1)
	seedProduct(t, db, 1, "C", 3, 3)

	sub, err := proj.Subscribe(1, SortDesc)
	require.NoError(t, err)
	defer proj.Unsubscribe(sub)

	assert.EqualValues(t, []int64{5, 3, 1}, quantities(waitSnapshot(t, sub)))
}

func TestProjector_ReorderWithoutStoreChange(t *testing.T) {
	svc, repo, db := newTestService(t)
	proj := NewProjector(repo, svc.Bus())

	seedProduct(t, db, 1, "A", 1, 5)
	seedProduct(t, db, 1, "B", 2, 1)
	seedProduct(t, db, 1, "C", 3, 3)

	sub, err := proj.Subscribe(1, SortDesc)
	require.NoError(t, err)
	defer proj.Unsubscribe(sub)

	assert.EqualValues(t, []int64{5, 3, 1}, quantities(waitSnapshot(t, sub)))

	sub.SetOrder(SortAsc)
	assert.EqualValues(t, []int64{1, 3, 5}, quantities(waitSnapshot(t, sub)))
}

func TestProjector_EmitsOnStoreChange(t *testing.T) {
	svc, repo, _ := newTestService(t)
	proj := NewProjector(repo, svc.Bus())
	ctx := context.Background()

	sub, err := proj.Subscribe(1, SortDesc)
	require.NoError(t, err)
	defer proj.Unsubscribe(sub)

	assert.Empty(t, waitSnapshot(t, sub))

	_, _, err = svc.Upsert(ctx, 1, "Milk", 1234, 2, "")
	require.NoError(t, err)

	snapshot := waitSnapshot(t, sub)
	require.Len(t, snapshot, 1)
	assert.EqualValues(t, 2, snapshot[0].Quantity)

	_, _, err = svc.Upsert(ctx, 1, "Milk", 1234, 3, "")
	require.NoError(t, err)

	snapshot = waitSnapshot(t, sub)
	require.Len(t, snapshot, 1)
	assert.EqualValues(t, 5, snapshot[0].Quantity)
}

func TestProjector_ChangeForOtherOwnerDoesNotEmit(t *testing.T) {
	svc, repo, _ := newTestService(t)
	proj := NewProjector(repo, svc.Bus())
	ctx := context.Background()

	sub, err := proj.Subscribe(1, SortDesc)
	require.NoError(t, err)
	defer proj.Unsubscribe(sub)

	assert.Empty(t, waitSnapshot(t, sub))

	_, _, err = svc.Upsert(ctx, 2, "Milk", 1234, 2, "")
	require.NoError(t, err)

	select {
	case <-sub.Updates():
		t.Fatal("owner 1 received a snapshot for owner 2's change")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestProjector_UnsubscribeIdempotent(t *testing.T) {
	svc, repo, _ := newTestService(t)
	proj := NewProjector(repo, svc.Bus())

	sub, err := proj.Subscribe(1, SortDesc)
	require.NoError(t, err)

	proj.Unsubscribe(sub)
	proj.Unsubscribe(sub) // second call must be a no-op
}

func TestProjector_RequiresOwner(t *testing.T) {
	svc, repo, _ := newTestService(t)
	proj := NewProjector(repo, svc.Bus())

	_, err := proj.Subscribe(0, SortDesc)
	assert.Error(t, err)
}

func TestProjector_TwoSubscribersIndependentOrders(t *testing.T) {
	svc, repo, db := newTestService(t)
	proj := NewProjector(repo, svc.Bus())

	seedProduct(t, db, 1, "A", 1, 5)
	seedProduct(t, db, 1, "B", 2, 1)

	ascSub, err := proj.Subscribe(1, SortAsc)
	require.NoError(t, err)
	defer proj.Unsubscribe(ascSub)

	descSub, err := proj.Subscribe(1, SortDesc)
	require.NoError(t, err)
	defer proj.Unsubscribe(descSub)

	assert.EqualValues(t, []int64{1, 5}, quantities(waitSnapshot(t, ascSub)))
	assert.EqualValues(t, []int64{5, 1}, quantities(waitSnapshot(t, descSub)))
}

func TestSortByQuantity_Stable(t *testing.T) {
	products := []domain.Product{
		{ID: 1, Quantity: 3},
		{ID: 2, Quantity: 3},
		{ID: 3, Quantity: 1},
	}
	SortByQuantity(products, SortDesc)
	assert.EqualValues(t, 1, products[0].ID, "ties keep their relative order")
	assert.EqualValues(t, 2, products[1].ID)
	assert.EqualValues(t, 3, products[2].ID)
}

func TestProjector_BusSharedWithService(t *testing.T) {
	bus := EventBus.New()
	db := newTestDB(t)
	repo := NewGormProductRepository(db)
	svc := NewService(db, repo, bus)
	assert.Equal(t, bus, svc.Bus())
}
