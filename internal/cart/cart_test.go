package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/Skotchmaster/food_client/internal/models"
	"github.com/Skotchmaster/food_client/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type line = models.CartLine

func newTestCart(t *testing.T) (*Store, storage.Store) {
	t.Helper()

	s, err := storage.NewSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return New(s), s
}

func storedLines(t *testing.T, s storage.Store, key string) []models.CartLine {
	t.Helper()

	lines, err := storage.Decode[[]models.CartLine](context.Background(), s, key)
	require.NoError(t, err)
	return lines
}

func TestKeyFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "cart_guest", KeyFor(nil))
	assert.Equal(t, "cart_guest", KeyFor(&models.Session{}))
	assert.Equal(t, "cart_alice", KeyFor(&models.Session{Username: "alice"}))
}

func TestAddItem_SumsDuplicates(t *testing.T) {
	t.Parallel()

	c, s := newTestCart(t)
	ctx := context.Background()

	adds := []struct {
		id  int64
		qty int
	}{{1, 2}, {2, 1}, {1, 3}, {3, 1}, {2, 4}, {1, 1}}
	for _, a := range adds {
		require.NoError(t, c.AddItem(ctx, a.id, "food", 10, a.qty))
	}

	want := []line{
		{FoodID: 1, Name: "food", UnitPrice: 10, Quantity: 6},
		{FoodID: 2, Name: "food", UnitPrice: 10, Quantity: 5},
		{FoodID: 3, Name: "food", UnitPrice: 10, Quantity: 1},
	}
	assert.Equal(t, want, c.Lines())
	assert.Equal(t, want, storedLines(t, s, GuestKey))
	assert.Equal(t, want, storedLines(t, s, MirrorKey))
	assert.Equal(t, 12, c.ItemCount())
	assert.InDelta(t, 120.0, c.Total(), 0.0001)
}

func TestAddItem_Validation(t *testing.T) {
	t.Parallel()

	c, _ := newTestCart(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		id    int64
		title string
		qty   int
	}{
		{name: "zero quantity", id: 1, title: "Pizza", qty: 0},
		{name: "negative quantity", id: 1, title: "Pizza", qty: -2},
		{name: "bad id", id: 0, title: "Pizza", qty: 1},
		{name: "no name", id: 1, title: "  ", qty: 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := c.AddItem(ctx, tt.id, tt.title, 100, tt.qty)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.True(t, c.IsEmpty())
}

func TestSetQuantity_NonPositiveRemoves(t *testing.T) {
	t.Parallel()

	for _, qty := range []int{0, -1, -100} {
		qty := qty
		t.Run("", func(t *testing.T) {
			t.Parallel()

			c, _ := newTestCart(t)
			ref, _ := newTestCart(t)
			ctx := context.Background()

			for _, cs := range []*Store{c, ref} {
				require.NoError(t, cs.AddItem(ctx, 1, "Pizza", 200, 2))
				require.NoError(t, cs.AddItem(ctx, 2, "Soda", 50, 1))
			}

			require.NoError(t, c.SetQuantity(ctx, 1, qty))
			require.NoError(t, ref.RemoveItem(ctx, 1))
			assert.Equal(t, ref.Lines(), c.Lines())
		})
	}
}

func TestSetQuantity_Updates(t *testing.T) {
	t.Parallel()

	c, s := newTestCart(t)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, 1, "Pizza", 200, 2))
	require.NoError(t, c.SetQuantity(ctx, 1, 5))
	require.NoError(t, c.SetQuantity(ctx, 42, 5))

	assert.Equal(t, []line{{FoodID: 1, Name: "Pizza", UnitPrice: 200, Quantity: 5}}, c.Lines())
	assert.Equal(t, c.Lines(), storedLines(t, s, GuestKey))
}

func TestClear_KeepsKey(t *testing.T) {
	t.Parallel()

	c, s := newTestCart(t)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, 1, "Pizza", 200, 2))
	require.NoError(t, c.Clear(ctx))

	assert.True(t, c.IsEmpty())
	raw, err := s.Get(ctx, GuestKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)
}

func TestPersistLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	c, s := newTestCart(t)
	ctx := context.Background()

	require.NoError(t, c.Load(ctx, "cart_alice"))
	require.NoError(t, c.AddItem(ctx, 1, "Pizza", 200, 2))
	require.NoError(t, c.AddItem(ctx, 7, "Soda", 49.5, 1))
	require.NoError(t, c.Persist(ctx))

	other := New(s)
	require.NoError(t, other.Load(ctx, "cart_alice"))
	assert.Equal(t, c.Lines(), other.Lines())
	assert.Equal(t, "cart_alice", other.Key())
}

func TestLoad_FiltersInvalidLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want []line
	}{
		{
			name: "mixed lines",
			raw: `[
				{"foodId":1,"name":"Pizza","price":200,"quantity":2},
				{"name":"No id","price":10,"quantity":1},
				{"foodId":0,"name":"Zero id","price":10,"quantity":1},
				{"foodId":3,"price":10,"quantity":1},
				{"foodId":4,"name":"Text price","price":"10","quantity":1},
				{"foodId":5,"name":"Empty","price":10,"quantity":0},
				{"foodId":6,"name":"Negative","price":10,"quantity":-1},
				"garbage",
				{"foodId":7,"name":"Soda","price":50,"quantity":1}
			]`,
			want: []line{
				{FoodID: 1, Name: "Pizza", UnitPrice: 200, Quantity: 2},
				{FoodID: 7, Name: "Soda", UnitPrice: 50, Quantity: 1},
			},
		},
		{
			name: "duplicates folded",
			raw:  `[{"foodId":1,"name":"Pizza","price":200,"quantity":2},{"foodId":1,"name":"Pizza","price":200,"quantity":1}]`,
			want: []line{{FoodID: 1, Name: "Pizza", UnitPrice: 200, Quantity: 3}},
		},
		{name: "object payload", raw: `{"foodId":1}`, want: nil},
		{name: "not json", raw: `[{`, want: nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, s := newTestCart(t)
			ctx := context.Background()
			require.NoError(t, s.Set(ctx, "cart_bob", tt.raw))

			require.NoError(t, c.Load(ctx, "cart_bob"))
			if tt.want == nil {
				assert.True(t, c.IsEmpty())
				return
			}
			assert.Equal(t, tt.want, c.Lines())
		})
	}
}

func TestLoad_FallsBackToMirror(t *testing.T) {
	t.Parallel()

	c, s := newTestCart(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, MirrorKey, `[{"foodId":9,"name":"Soup","price":80,"quantity":1}]`))

	require.NoError(t, c.Load(ctx, "cart_dave"))
	assert.Equal(t, []line{{FoodID: 9, Name: "Soup", UnitPrice: 80, Quantity: 1}}, c.Lines())
	assert.Equal(t, "cart_dave", c.Key())
}

func TestMergeGuestInto(t *testing.T) {
	t.Parallel()

	c, s := newTestCart(t)
	ctx := context.Background()

	require.NoError(t, storage.Encode(ctx, s, "cart_alice", []line{{FoodID: 1, Name: "A", UnitPrice: 10, Quantity: 2}}))
	require.NoError(t, storage.Encode(ctx, s, GuestKey, []line{
		{FoodID: 1, Name: "A", UnitPrice: 10, Quantity: 1},
		{FoodID: 2, Name: "B", UnitPrice: 5, Quantity: 3},
	}))

	n, err := c.MergeGuestInto(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	want := []line{
		{FoodID: 1, Name: "A", UnitPrice: 10, Quantity: 3},
		{FoodID: 2, Name: "B", UnitPrice: 5, Quantity: 3},
	}
	assert.Equal(t, want, c.Lines())
	assert.Equal(t, "cart_alice", c.Key())
	assert.Equal(t, want, storedLines(t, s, "cart_alice"))
	assert.Equal(t, want, storedLines(t, s, MirrorKey))

	_, err = s.Get(ctx, GuestKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	n, err = c.MergeGuestInto(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, want, c.Lines())
	assert.Equal(t, want, storedLines(t, s, "cart_alice"))
}

func TestMergeGuestInto_PizzaScenario(t *testing.T) {
	t.Parallel()

	c, s := newTestCart(t)
	ctx := context.Background()

	require.NoError(t, storage.Encode(ctx, s, "cart_alice", []line{
		{FoodID: 1, Name: "Pizza", UnitPrice: 200, Quantity: 1},
		{FoodID: 2, Name: "Soda", UnitPrice: 50, Quantity: 1},
	}))

	require.NoError(t, c.Load(ctx, KeyFor(nil)))
	require.NoError(t, c.AddItem(ctx, 1, "Pizza", 200, 2))

	require.NoError(t, c.Load(ctx, KeyFor(&models.Session{Username: "alice"})))
	_, err := c.MergeGuestInto(ctx, "alice")
	require.NoError(t, err)

	assert.Equal(t, []line{
		{FoodID: 1, Name: "Pizza", UnitPrice: 200, Quantity: 3},
		{FoodID: 2, Name: "Soda", UnitPrice: 50, Quantity: 1},
	}, c.Lines())

	_, err = s.Get(ctx, GuestKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMergeGuestInto_NoUserCart(t *testing.T) {
	t.Parallel()

	c, s := newTestCart(t)
	ctx := context.Background()

	// guest adds go to cart_guest and the mirror
	require.NoError(t, c.AddItem(ctx, 1, "Pizza", 200, 2))
	require.NoError(t, c.Load(ctx, "cart_erin"))

	_, err := c.MergeGuestInto(ctx, "erin")
	require.NoError(t, err)
	assert.Equal(t, []line{{FoodID: 1, Name: "Pizza", UnitPrice: 200, Quantity: 2}}, c.Lines())
	assert.Equal(t, c.Lines(), storedLines(t, s, "cart_erin"))
}

type failingStore struct {
	storage.Store
}

func (failingStore) Apply(context.Context, ...storage.Op) error {
	return errors.New("disk full")
}

func TestMutation_FailedPersistLeavesCartUnchanged(t *testing.T) {
	t.Parallel()

	c, s := newTestCart(t)
	ctx := context.Background()
	require.NoError(t, c.AddItem(ctx, 1, "Pizza", 200, 1))
	before := c.Lines()

	c.storage = failingStore{Store: s}
	require.Error(t, c.AddItem(ctx, 1, "Pizza", 200, 1))
	require.Error(t, c.AddItem(ctx, 2, "Soda", 50, 1))
	require.Error(t, c.RemoveItem(ctx, 1))
	require.Error(t, c.Clear(ctx))

	assert.Equal(t, before, c.Lines())
}

func TestResumeGuest_IgnoresMirror(t *testing.T) {
	t.Parallel()

	c, s := newTestCart(t)
	ctx := context.Background()
	require.NoError(t, c.Load(ctx, "cart_alice"))
	require.NoError(t, c.AddItem(ctx, 1, "Pizza", 200, 2))

	require.NoError(t, c.ResumeGuest(ctx))
	assert.Equal(t, GuestKey, c.Key())
	assert.True(t, c.IsEmpty())
	assert.Empty(t, storedLines(t, s, MirrorKey))
	assert.Empty(t, storedLines(t, s, GuestKey))
	assert.Equal(t, []line{{FoodID: 1, Name: "Pizza", UnitPrice: 200, Quantity: 2}}, storedLines(t, s, "cart_alice"))
}

func TestResumeGuest_KeepsGuestCart(t *testing.T) {
	t.Parallel()

	c, s := newTestCart(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, GuestKey, `[{"foodId":2,"name":"Soda","price":50,"quantity":1}]`))
	require.NoError(t, s.Set(ctx, MirrorKey, `[{"foodId":1,"name":"Pizza","price":200,"quantity":3}]`))

	require.NoError(t, c.ResumeGuest(ctx))
	want := []line{{FoodID: 2, Name: "Soda", UnitPrice: 50, Quantity: 1}}
	assert.Equal(t, want, c.Lines())
	assert.Equal(t, want, storedLines(t, s, MirrorKey))
}

func TestSummary(t *testing.T) {
	t.Parallel()

	c, _ := newTestCart(t)
	ctx := context.Background()

	sum := c.Summary()
	assert.Equal(t, GuestKey, sum.Key)
	assert.Empty(t, sum.Lines)
	assert.Zero(t, sum.Total)

	require.NoError(t, c.AddItem(ctx, 1, "Pizza", 200, 2))
	require.NoError(t, c.AddItem(ctx, 2, "Soda", 50, 1))

	sum = c.Summary()
	assert.Len(t, sum.Lines, 2)
	assert.Equal(t, 3, sum.ItemCount)
	assert.Equal(t, 450.0, sum.Total)
	assert.Equal(t, c.Total(), sum.Total)
}
