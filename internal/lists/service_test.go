package lists

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/freshmart/freshmart-pos/internal/shared"
)

type memoryRepo struct {
	lists  map[int64]*memoryList
	bag    map[int64]int
	nextID int64
}

type memoryList struct {
	owner shared.Owner
	list  List
	items map[int64]int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{lists: make(map[int64]*memoryList), bag: make(map[int64]int)}
}

func (r *memoryRepo) find(owner shared.Owner, id int64) (*memoryList, error) {
	l, ok := r.lists[id]
	if !ok || l.owner != owner {
		return nil, ErrListNotFound
	}
	return l, nil
}

func (r *memoryRepo) insert(owner shared.Owner, name string, isDefault bool) List {
	r.nextID++
	l := List{ListID: r.nextID, Name: name, IsDefault: isDefault, CreatedAt: time.Now()}
	r.lists[r.nextID] = &memoryList{owner: owner, list: l, items: make(map[int64]int)}
	return l
}

func (r *memoryRepo) EnsureDefault(_ context.Context, owner shared.Owner) error {
	for _, l := range r.lists {
		if l.owner == owner {
			return nil
		}
	}
	r.insert(owner, DefaultListName, true)
	return nil
}

func (r *memoryRepo) Lists(_ context.Context, owner shared.Owner) ([]List, error) {
	var out []List
	for id := int64(1); id <= r.nextID; id++ {
		if l, ok := r.lists[id]; ok && l.owner == owner {
			l.list.ItemCount = len(l.items)
			out = append(out, l.list)
		}
	}
	return out, nil
}

func (r *memoryRepo) Create(_ context.Context, owner shared.Owner, name string) (List, error) {
	return r.insert(owner, name, false), nil
}

func (r *memoryRepo) Rename(_ context.Context, owner shared.Owner, id int64, name string) error {
	l, err := r.find(owner, id)
	if err != nil {
		return err
	}
	l.list.Name = name
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, owner shared.Owner, id int64) error {
	l, err := r.find(owner, id)
	if err != nil {
		return err
	}
	if l.list.IsDefault {
		return ErrDefaultList
	}
	delete(r.lists, id)
	return nil
}

func (r *memoryRepo) Items(_ context.Context, owner shared.Owner, id int64) ([]Item, error) {
	l, err := r.find(owner, id)
	if err != nil {
		return nil, err
	}
	var out []Item
	for pid, qty := range l.items {
		out = append(out, Item{ProductID: pid, Quantity: qty})
	}
	return out, nil
}

func (r *memoryRepo) UpsertItem(_ context.Context, owner shared.Owner, id, pid int64, qty int) error {
	l, err := r.find(owner, id)
	if err != nil {
		return err
	}
	l.items[pid] += qty
	return nil
}

func (r *memoryRepo) SetItemQuantity(ctx context.Context, owner shared.Owner, id, pid int64, qty int) error {
	if qty <= 0 {
		return r.RemoveItem(ctx, owner, id, pid)
	}
	l, err := r.find(owner, id)
	if err != nil {
		return err
	}
	if _, ok := l.items[pid]; !ok {
		return ErrItemNotFound
	}
	l.items[pid] = qty
	return nil
}

func (r *memoryRepo) RemoveItem(_ context.Context, owner shared.Owner, id, pid int64) error {
	l, err := r.find(owner, id)
	if err != nil {
		return err
	}
	if _, ok := l.items[pid]; !ok {
		return ErrItemNotFound
	}
	delete(l.items, pid)
	return nil
}

func (r *memoryRepo) ClearItems(_ context.Context, owner shared.Owner, id int64) error {
	l, err := r.find(owner, id)
	if err != nil {
		return err
	}
	l.items = make(map[int64]int)
	return nil
}

func (r *memoryRepo) AddToBag(_ context.Context, owner shared.Owner, id int64) (int, error) {
	l, err := r.find(owner, id)
	if err != nil {
		return 0, err
	}
	for pid, qty := range l.items {
		r.bag[pid] += qty
	}
	return len(l.items), nil
}

var shopper = shared.Owner{Kind: shared.OwnerCustomer, ID: 42}

func TestDefaultListCreatedOnce(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	first, err := svc.Lists(ctx, shopper)
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Equal(t, DefaultListName, first[0].Name)
	require.True(t, first[0].IsDefault)

	again, err := svc.Lists(ctx, shopper)
	require.NoError(t, err)
	require.Len(t, again, 1)

	require.ErrorIs(t, svc.Delete(ctx, shopper, first[0].ListID), ErrDefaultList)
}

func TestCreateRequiresName(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.Create(context.Background(), shopper, NameInput{Name: "   "})
	require.ErrorIs(t, err, ErrNameRequired)
}

func TestItemsMergeAndAddToBag(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	l, err := svc.Create(ctx, shopper, NameInput{Name: "Party"})
	require.NoError(t, err)
	require.NoError(t, svc.AddItem(ctx, shopper, l.ListID, ItemInput{ProductID: 3, Quantity: 2}))
	require.NoError(t, svc.AddItem(ctx, shopper, l.ListID, ItemInput{ProductID: 3, Quantity: 1}))
	require.NoError(t, svc.AddItem(ctx, shopper, l.ListID, ItemInput{ProductID: 5, Quantity: 1}))
	require.ErrorIs(t, svc.AddItem(ctx, shopper, l.ListID, ItemInput{ProductID: 5}), ErrInvalidItem)

	items, err := svc.Items(ctx, shopper, l.ListID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.NoError(t, svc.SetQuantity(ctx, shopper, l.ListID, 5, QuantityInput{Quantity: 0}))
	n, err := svc.AddToBag(ctx, shopper, l.ListID)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 3, repo.bag[3])
}

func TestListsAreOwnerScoped(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()
	l, err := svc.Create(ctx, shopper, NameInput{Name: "Mine"})
	require.NoError(t, err)

	clerk := shared.Owner{Kind: shared.OwnerEmployee, ID: 42}
	_, err = svc.Items(ctx, clerk, l.ListID)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.ErrorIs(t, svc.Rename(ctx, clerk, l.ListID, NameInput{Name: "Theirs"}), ErrListNotFound)
}
