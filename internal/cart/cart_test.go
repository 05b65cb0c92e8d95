package cart

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
	"storefront/internal/storage"
)

var (
	donut   = models.Material{ID: 1, Title: "Glazed Donut", BrandName: "Sugary", CoverPhoto: "donut.png", SalesPriceInUsd: 2.5}
	cookies = models.Material{ID: 2, Title: "Cookie Box", BrandName: "Crumbs", CoverPhoto: "cookies.png", SalesPriceInUsd: 12.99}
)

func newCart(t *testing.T, s storage.Store) *Store {
	t.Helper()
	c, err := New(s)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestAddItem_IncrementsExistingLine(t *testing.T) {
	c := newCart(t, storage.NewMemory())

	require.NoError(t, c.AddItem(donut))
	require.NoError(t, c.AddItem(donut))
	require.NoError(t, c.AddItem(cookies))

	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, 1, lines[0].ProductID)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, "Glazed Donut", lines[0].Title)
	assert.Equal(t, "Sugary", lines[0].Brand)
	assert.Equal(t, "donut.png", lines[0].ImageRef)
	assert.Equal(t, 2, lines[1].ProductID)
	assert.Equal(t, 1, lines[1].Quantity)

	assert.Equal(t, 3, c.Count())
	assert.InDelta(t, 2*2.5+12.99, c.Total(), 1e-9)
}

func TestRemoveThenAdd_StartsAtOne(t *testing.T) {
	c := newCart(t, storage.NewMemory())

	require.NoError(t, c.AddItem(donut))
	require.NoError(t, c.AddItem(donut))
	require.NoError(t, c.RemoveItem(donut.ID))
	assert.Equal(t, 0, c.Quantity(donut.ID))

	require.NoError(t, c.AddItem(donut))
	assert.Equal(t, 1, c.Quantity(donut.ID))
}

func TestRemoveItem_Absent(t *testing.T) {
	c := newCart(t, storage.NewMemory())
	require.NoError(t, c.AddItem(donut))

	require.NoError(t, c.RemoveItem(99))
	assert.Len(t, c.Lines(), 1)
}

func TestUpdateQuantity(t *testing.T) {
	c := newCart(t, storage.NewMemory())
	require.NoError(t, c.AddItem(donut))

	require.NoError(t, c.UpdateQuantity(donut.ID, 5))
	assert.Equal(t, 5, c.Quantity(donut.ID))

	for _, n := range []int{0, -1} {
		err := c.UpdateQuantity(donut.ID, n)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
		assert.Equal(t, 5, c.Quantity(donut.ID), "invalid quantity leaves the line untouched")
	}

	assert.ErrorIs(t, c.UpdateQuantity(cookies.ID, 2), ErrNotInCart)
	assert.Equal(t, 0, c.Quantity(cookies.ID))
}

func TestClear(t *testing.T) {
	s := storage.NewMemory()
	c := newCart(t, s)
	require.NoError(t, c.AddItem(donut))

	require.NoError(t, c.Clear())
	assert.Empty(t, c.Lines())
	assert.Equal(t, 0, c.Count())
	assert.Zero(t, c.Total())

	raw, found, err := s.Get(storage.KeyCartItems)
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestPersistsUnderCartItems(t *testing.T) {
	s := storage.NewMemory()
	c := newCart(t, s)
	require.NoError(t, c.AddItem(donut))

	raw, found, err := s.Get(storage.KeyCartItems)
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `[{"Id":1,"Title":"Glazed Donut","BrandName":"Sugary","SalesPriceInUsd":2.5,"CoverPhoto":"donut.png","quantity":1}]`, string(raw))

	reopened := newCart(t, s)
	assert.Equal(t, c.Lines(), reopened.Lines())
}

func TestLoad_SanitizesPersistedState(t *testing.T) {
	s := storage.NewMemory()
	require.NoError(t, s.Set(storage.KeyCartItems, []byte(`[
		{"Id":1,"Title":"Glazed Donut","SalesPriceInUsd":2.5,"quantity":2},
		{"Id":2,"Title":"Cookie Box","SalesPriceInUsd":12.99,"quantity":0},
		{"Id":1,"Title":"Glazed Donut","SalesPriceInUsd":2.5,"quantity":3},
		{"Id":3,"Title":"Gone","SalesPriceInUsd":1,"quantity":-4}
	]`)))

	c := newCart(t, s)
	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].ProductID)
	assert.Equal(t, 5, lines[0].Quantity)
}

func TestStoresSharingStorageStayInSync(t *testing.T) {
	s := storage.NewMemory()
	header := newCart(t, s)
	page := newCart(t, s)

	var (
		mu       sync.Mutex
		received [][]models.CartLine
	)
	header.Subscribe(func(lines []models.CartLine) {
		mu.Lock()
		received = append(received, lines)
		mu.Unlock()
	})

	require.NoError(t, page.AddItem(donut))
	require.NoError(t, page.AddItem(donut))

	assert.Equal(t, 2, header.Count())
	assert.Equal(t, page.Lines(), header.Lines())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 2)
	assert.Equal(t, 2, received[1][0].Quantity)
}

func TestMutationsFromTwoStoresAreNotLost(t *testing.T) {
	s := storage.NewMemory()
	a := newCart(t, s)
	b := newCart(t, s)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); assert.NoError(t, a.AddItem(donut)) }()
		go func() { defer wg.Done(); assert.NoError(t, b.AddItem(cookies)) }()
	}
	wg.Wait()

	assert.Equal(t, 40, a.Count())
	assert.Equal(t, 20, b.Quantity(donut.ID))
	assert.Equal(t, 20, b.Quantity(cookies.ID))
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	c := newCart(t, storage.NewMemory())
	calls := 0
	unsubscribe := c.Subscribe(func([]models.CartLine) { calls++ })

	require.NoError(t, c.AddItem(donut))
	unsubscribe()
	require.NoError(t, c.AddItem(donut))

	assert.Equal(t, 1, calls)
}
