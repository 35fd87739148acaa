package inventory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/abgdnv/smartstock/internal/importer"
	"github.com/abgdnv/smartstock/internal/product"
	"github.com/abgdnv/smartstock/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProductStore struct {
	mock.Mock
}

func (m *MockProductStore) List(ctx context.Context, visibility product.Visibility) ([]product.Product, error) {
	args := m.Called(ctx, visibility)
	var rows []product.Product
	if args.Get(0) != nil {
		rows = args.Get(0).([]product.Product)
	}
	return rows, args.Error(1)
}

func (m *MockProductStore) Create(ctx context.Context, fields product.Fields) (product.Product, error) {
	args := m.Called(ctx, fields)
	return args.Get(0).(product.Product), args.Error(1)
}

func (m *MockProductStore) Update(ctx context.Context, name string, fields product.Fields) (product.Product, error) {
	args := m.Called(ctx, name, fields)
	return args.Get(0).(product.Product), args.Error(1)
}

func (m *MockProductStore) SoftDelete(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *MockProductStore) Restore(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *MockProductStore) BulkUpsert(ctx context.Context, products []product.Product) error {
	return m.Called(ctx, products).Error(0)
}

var (
	bolt   = product.Product{ID: "1", Name: "Bolt", Quantity: 4, Cost: decimal.RequireFromString("2.5"), IsActive: true}
	washer = product.Product{ID: "2", Name: "Washer", Quantity: 20, Cost: decimal.RequireFromString("0.1"), IsActive: true}
)

func newLoaded(t *testing.T) (*Controller, *MockProductStore) {
	t.Helper()
	st := new(MockProductStore)
	st.On("List", mock.Anything, product.VisibilityActive).Return([]product.Product{bolt, washer}, nil)
	c := New(st, logger.Discard())
	require.NoError(t, c.Refresh(context.Background(), false))
	return c, st
}

func pending(t *testing.T, c *Controller) (Interaction, bool) {
	t.Helper()
	select {
	case i := <-c.Interactions():
		return i, true
	default:
		return Interaction{}, false
	}
}

func Test_Refresh(t *testing.T) {
	t.Run("loads the list", func(t *testing.T) {
		c, st := newLoaded(t)

		assert.Equal(t, []product.Product{bolt, washer}, c.Products())
		assert.False(t, c.Loading())
		st.AssertExpectations(t)
	})

	t.Run("failure keeps the previous list and alerts", func(t *testing.T) {
		// given
		c, st := newLoaded(t)
		st.ExpectedCalls = nil
		st.On("List", mock.Anything, product.VisibilityActive).Return(nil, errors.New("failed to fetch inventory: boom"))

		// when
		err := c.Refresh(context.Background(), false)

		// then
		require.Error(t, err)
		assert.Equal(t, []product.Product{bolt, washer}, c.Products())
		assert.False(t, c.Loading())
		i, ok := pending(t, c)
		require.True(t, ok)
		assert.Equal(t, InteractionAlert, i.Kind)
		assert.Equal(t, "Error fetching inventory: failed to fetch inventory: boom", i.Message)
	})
}

func Test_SetVisibility(t *testing.T) {
	// given
	c, st := newLoaded(t)
	inactive := product.Product{ID: "3", Name: "Gear", Quantity: 1, IsActive: false}
	st.On("List", mock.Anything, product.VisibilityInactive).Return([]product.Product{inactive}, nil)

	// when
	err := c.SetVisibility(context.Background(), product.VisibilityInactive)

	// then
	require.NoError(t, err)
	assert.Equal(t, product.VisibilityInactive, c.Visibility())
	assert.Equal(t, []product.Product{inactive}, c.Products())
}

func Test_SetVisibility_KeepsSearchText(t *testing.T) {
	// given
	c, st := newLoaded(t)
	gear := product.Product{ID: "3", Name: "Gear", Quantity: 1, IsActive: false}
	bracket := product.Product{ID: "4", Name: "Bracket", Quantity: 2, IsActive: false}
	st.On("List", mock.Anything, product.VisibilityInactive).Return([]product.Product{gear, bracket}, nil)
	require.Empty(t, c.Search("gea"))

	// when
	err := c.SetVisibility(context.Background(), product.VisibilityInactive)

	// then
	require.NoError(t, err)
	assert.Equal(t, "gea", c.SearchText())
	assert.Equal(t, []product.Product{gear}, c.Visible())
}

func Test_Search(t *testing.T) {
	c, _ := newLoaded(t)

	testCases := []struct {
		query    string
		expected []product.Product
	}{
		{query: "", expected: []product.Product{bolt, washer}},
		{query: "BOL", expected: []product.Product{bolt}},
		{query: "ash", expected: []product.Product{washer}},
		{query: "nut", expected: []product.Product{}},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("query %q", tc.query), func(t *testing.T) {
			assert.Equal(t, tc.expected, c.Search(tc.query))
			assert.Equal(t, tc.query, c.SearchText())
		})
	}
}

func Test_Refresh_AfterWriteIgnoresEarlierList(t *testing.T) {
	// given
	ctx := context.Background()
	nut := product.Product{ID: "5", Name: "Nut", Quantity: 3, Cost: decimal.NewFromInt(2), IsActive: true}
	started, release := make(chan struct{}), make(chan struct{})
	st := new(MockProductStore)
	st.On("List", mock.Anything, product.VisibilityActive).Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return([]product.Product{bolt}, nil).Once()
	st.On("List", mock.Anything, product.VisibilityActive).Return([]product.Product{bolt, nut}, nil).Once()
	st.On("Create", mock.Anything, mock.Anything).Return(nut, nil)
	c := New(st, logger.Discard())

	done := make(chan error, 1)
	go func() { done <- c.Refresh(ctx, false) }()
	<-started

	// when
	err := c.Save(ctx, Draft{Name: "Nut", Quantity: product.Int64(3), Cost: decimal.NewFromInt(2)})

	// then
	require.NoError(t, err)
	assert.Equal(t, []product.Product{bolt, nut}, c.Products())

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, []product.Product{bolt, nut}, c.Products())
	st.AssertNumberOfCalls(t, "List", 2)
}

func Test_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("create", func(t *testing.T) {
		// given
		c, st := newLoaded(t)
		st.On("Create", mock.Anything, mock.MatchedBy(func(f product.Fields) bool {
			return f.ID != "" && f.Name == "Nut" && *f.Quantity == 3 && f.Cost.Equal(decimal.NewFromInt(2))
		})).Return(product.Product{Name: "Nut"}, nil)
		c.OpenCreate()

		// when
		err := c.Save(ctx, Draft{Name: " Nut ", Quantity: product.Int64(3), Cost: decimal.NewFromInt(2)})

		// then
		require.NoError(t, err)
		assert.False(t, c.Form().Open)
		require.NotEmpty(t, c.Activity())
		assert.Equal(t, "Manually added Nut", c.Activity()[0].Message)
		assert.Equal(t, ActivityCreate, c.Activity()[0].Kind)
		st.AssertExpectations(t)
	})

	t.Run("update targets the edited name", func(t *testing.T) {
		// given
		c, st := newLoaded(t)
		st.On("Update", mock.Anything, "Bolt", mock.MatchedBy(func(f product.Fields) bool {
			return f.Name == "Bolt M8" && *f.Quantity == 9
		})).Return(product.Product{Name: "Bolt M8"}, nil)
		draft, err := c.OpenEdit("bolt")
		require.NoError(t, err)
		draft.Name = "Bolt M8"
		draft.Quantity = product.Int64(9)

		// when
		err = c.Save(ctx, draft)

		// then
		require.NoError(t, err)
		assert.Equal(t, "Manually updated Bolt", c.Activity()[0].Message)
		st.AssertExpectations(t)
	})

	t.Run("invalid draft never reaches the store", func(t *testing.T) {
		testCases := []struct {
			name    string
			draft   Draft
			problem string
		}{
			{name: "blank name", draft: Draft{Name: "  ", Quantity: product.Int64(1)}, problem: "name is required"},
			{name: "missing quantity", draft: Draft{Name: "Nut"}, problem: "quantity is required"},
			{name: "zero quantity", draft: Draft{Name: "Nut", Quantity: product.Int64(0)}, problem: "quantity must be at least 1"},
			{name: "negative cost", draft: Draft{Name: "Nut", Quantity: product.Int64(1), Cost: decimal.NewFromInt(-1)}, problem: "cost must not be negative"},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				c, st := newLoaded(t)
				c.OpenCreate()

				err := c.Save(ctx, tc.draft)

				require.ErrorIs(t, err, ErrInvalidDraft)
				assert.Contains(t, err.Error(), tc.problem)
				assert.True(t, c.Form().Open)
				i, ok := pending(t, c)
				require.True(t, ok)
				assert.Contains(t, i.Message, "Error saving product: ")
				st.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("store failure keeps the form open", func(t *testing.T) {
		// given
		c, st := newLoaded(t)
		st.On("Create", mock.Anything, mock.Anything).Return(product.Product{}, errors.New("duplicate key"))
		c.OpenCreate()
		draft := Draft{Name: "Nut", Quantity: product.Int64(1)}

		// when
		err := c.Save(ctx, draft)

		// then
		require.Error(t, err)
		form := c.Form()
		assert.True(t, form.Open)
		assert.Equal(t, "Nut", form.Draft.Name)
		i, ok := pending(t, c)
		require.True(t, ok)
		assert.Equal(t, "Error saving product: duplicate key", i.Message)
		assert.Empty(t, c.Activity())
	})
}

func Test_OpenEdit_Unknown(t *testing.T) {
	c, _ := newLoaded(t)

	_, err := c.OpenEdit("Nut")

	assert.ErrorIs(t, err, ErrUnknownProduct)
	assert.False(t, c.Form().Open)
}

func Test_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("confirm", func(t *testing.T) {
		// given
		c, st := newLoaded(t)
		st.On("SoftDelete", mock.Anything, "Bolt").Return(nil)
		c.RequestDelete("Bolt")
		i, ok := pending(t, c)
		require.True(t, ok)
		assert.Equal(t, Interaction{Kind: InteractionConfirm, Message: "Delete Bolt from inventory?"}, i)

		// when
		err := c.ConfirmDelete(ctx)

		// then
		require.NoError(t, err)
		assert.Empty(t, c.PendingDelete())
		assert.Equal(t, "Deleted product: Bolt", c.Activity()[0].Message)
		st.AssertExpectations(t)
	})

	t.Run("cancel", func(t *testing.T) {
		c, st := newLoaded(t)
		c.RequestDelete("Bolt")

		c.CancelDelete()

		assert.Empty(t, c.PendingDelete())
		assert.ErrorIs(t, c.ConfirmDelete(ctx), ErrNothingStaged)
		st.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything)
	})

	t.Run("failure alerts and clears the staged name", func(t *testing.T) {
		c, st := newLoaded(t)
		st.On("SoftDelete", mock.Anything, "Bolt").Return(errors.New("permission denied"))
		c.RequestDelete("Bolt")
		<-c.Interactions()

		err := c.ConfirmDelete(ctx)

		require.Error(t, err)
		assert.Empty(t, c.PendingDelete())
		i, ok := pending(t, c)
		require.True(t, ok)
		assert.Equal(t, "Error deleting product: permission denied", i.Message)
	})
}

func Test_Interactions_LatestWins(t *testing.T) {
	// given
	c, _ := newLoaded(t)

	// when
	c.RequestDelete("Bolt")
	c.RequestDelete("Washer")

	// then
	i, ok := pending(t, c)
	require.True(t, ok)
	assert.Equal(t, "Delete Washer from inventory?", i.Message)
	_, ok = pending(t, c)
	assert.False(t, ok)
	assert.Equal(t, "Washer", c.PendingDelete())
}

func Test_Restore(t *testing.T) {
	c, st := newLoaded(t)
	st.On("Restore", mock.Anything, "Gear").Return(nil)

	require.NoError(t, c.Restore(context.Background(), "Gear"))

	assert.Equal(t, "Restored product: Gear", c.Activity()[0].Message)
	st.AssertExpectations(t)
}

func Test_Check(t *testing.T) {
	c, _ := newLoaded(t)

	p, err := c.Check("washer")
	require.NoError(t, err)
	assert.Equal(t, washer, p)
	assert.Equal(t, ActivityCheck, c.Activity()[0].Kind)
	assert.Equal(t, "Checked Washer: 20 in stock", c.Activity()[0].Message)

	_, err = c.Check("Nut")
	assert.ErrorIs(t, err, ErrUnknownProduct)
}

func Test_Import(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		// given
		c, st := newLoaded(t)
		st.On("BulkUpsert", mock.Anything, mock.MatchedBy(func(rows []product.Product) bool {
			return len(rows) == 2
		})).Return(nil)
		batch := importer.NewBatch(
			importer.Row{Name: "Nut", Quantity: 5, Cost: decimal.NewFromInt(1)},
			importer.Row{Name: "Bolt", Quantity: 8, Cost: decimal.NewFromInt(3)},
		)

		// when
		err := c.Import(ctx, batch)

		// then
		require.NoError(t, err)
		assert.Zero(t, batch.Len())
		assert.Equal(t, "Bulk uploaded 2 products", c.Activity()[0].Message)
	})

	t.Run("invalid rows", func(t *testing.T) {
		c, st := newLoaded(t)
		batch := importer.NewBatch(importer.Row{Name: "", Quantity: 1, Cost: decimal.NewFromInt(1)})

		err := c.Import(ctx, batch)

		var invalid *importer.InvalidRowsError
		require.ErrorAs(t, err, &invalid)
		i, ok := pending(t, c)
		require.True(t, ok)
		assert.Equal(t, invalid.Error(), i.Message)
		st.AssertNotCalled(t, "BulkUpsert", mock.Anything, mock.Anything)
	})

	t.Run("store failure", func(t *testing.T) {
		c, st := newLoaded(t)
		st.On("BulkUpsert", mock.Anything, mock.Anything).Return(errors.New("timeout"))
		batch := importer.NewBatch(importer.Row{Name: "Nut", Quantity: 1, Cost: decimal.NewFromInt(1)})

		err := c.Import(ctx, batch)

		require.Error(t, err)
		assert.Equal(t, 1, batch.Len())
		i, ok := pending(t, c)
		require.True(t, ok)
		assert.Equal(t, "Error saving uploaded rows: timeout", i.Message)
	})
}

func Test_ActivityLog_KeepsNewestTen(t *testing.T) {
	// given
	log := NewActivityLog(DefaultActivityLimit)

	// when
	for i := range 12 {
		log.Add(ActivityCheck, fmt.Sprintf("entry %d", i))
	}

	// then
	entries := log.Entries()
	require.Len(t, entries, DefaultActivityLimit)
	assert.Equal(t, "entry 11", entries[0].Message)
	assert.Equal(t, "entry 2", entries[len(entries)-1].Message)
}

func Test_Stats(t *testing.T) {
	c, _ := newLoaded(t)

	s := c.Stats()

	assert.Equal(t, int64(24), s.TotalItems)
	assert.True(t, decimal.NewFromInt(12).Equal(s.TotalValue), "value %s", s.TotalValue)
	assert.Equal(t, 1, s.LowStock)
	assert.Equal(t, 2, s.UniqueProducts)
}

func Test_StockStatus(t *testing.T) {
	testCases := []struct {
		quantity int64
		expected string
	}{
		{quantity: -1, expected: StatusOutOfStock},
		{quantity: 0, expected: StatusOutOfStock},
		{quantity: 1, expected: StatusLowStock},
		{quantity: 9, expected: StatusLowStock},
		{quantity: 10, expected: StatusInStock},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprint(tc.quantity), func(t *testing.T) {
			assert.Equal(t, tc.expected, StockStatus(tc.quantity))
		})
	}
}
