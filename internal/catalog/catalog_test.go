package catalog

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Skotchmaster/food_client/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var menu = []models.Food{
	{ID: 1, Name: "Margherita Pizza", Price: 250, Description: "Classic cheese pizza", Category: "main"},
	{ID: 2, Name: "Cola", Price: 50, Description: "Chilled soft drink", Category: "drinks"},
	{ID: 3, Name: "Paneer Tikka", Price: 200, Description: "Grilled cottage cheese", Category: "starters"},
	{ID: 4, Name: "Biryani", Price: 320, Description: "Fragrant rice", Category: "main"},
	{ID: 5, Name: "Brownie", Price: 100, Description: "Chocolate dessert", Category: "desserts"},
}

func ids(foods []models.Food) []int64 {
	out := make([]int64, len(foods))
	for i, f := range foods {
		out[i] = f.ID
	}
	return out
}

func TestFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		c    Criteria
		want []int64
	}{
		{name: "empty", c: Criteria{}, want: []int64{1, 2, 3, 4, 5}},
		{name: "all", c: Criteria{Category: CategoryAll, PriceRange: PriceRangeAll}, want: []int64{1, 2, 3, 4, 5}},
		{name: "search name", c: Criteria{Search: "PIZZA"}, want: []int64{1}},
		{name: "search description", c: Criteria{Search: " cheese "}, want: []int64{1, 3}},
		{name: "category", c: Criteria{Category: "main"}, want: []int64{1, 4}},
		{name: "under 100", c: Criteria{PriceRange: PriceUnder100}, want: []int64{2}},
		{name: "100 to 200 inclusive", c: Criteria{PriceRange: Price100To200}, want: []int64{3, 5}},
		{name: "200 to 300 inclusive", c: Criteria{PriceRange: Price200To300}, want: []int64{1, 3}},
		{name: "above 300", c: Criteria{PriceRange: PriceAbove300}, want: []int64{4}},
		{name: "combined", c: Criteria{Search: "cheese", Category: "main", PriceRange: Price200To300}, want: []int64{1}},
		{name: "no match", c: Criteria{Search: "sushi"}, want: []int64{}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ids(Filter(menu, tt.c)))
		})
	}
}

func TestCategories(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"main", "drinks", "starters", "desserts"}, Categories(menu))
	assert.Empty(t, Categories(nil))
}

func TestCalculate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		page, size     int
		wantFrom, want int
	}{
		{page: 1, size: 10, wantFrom: 0, want: 10},
		{page: 3, size: 20, wantFrom: 40, want: 20},
		{page: 0, size: 5, wantFrom: 0, want: 5},
		{page: 2, size: 0, wantFrom: 10, want: 10},
		{page: 2, size: 500, wantFrom: 10, want: 10},
	}
	for _, tt := range tests {
		from, limit := Calculate(tt.page, tt.size)
		assert.Equal(t, tt.wantFrom, from)
		assert.Equal(t, tt.want, limit)
	}
}

type fakeES struct {
	mu     sync.Mutex
	bodies map[string]string
}

func newFakeES(t *testing.T) (*fakeES, *httptest.Server) {
	t.Helper()

	f := &fakeES{bodies: make(map[string]string)}
	e := echo.New()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("X-Elastic-Product", "Elasticsearch")
			return next(c)
		}
	})
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"cluster_name": "test",
			"version":      map[string]any{"number": "9.0.0", "build_flavor": "default"},
			"tagline":      "You Know, for Search",
		})
	})
	e.POST("/:index/_bulk", func(c echo.Context) error {
		f.store(c, "bulk")
		return c.JSON(http.StatusOK, map[string]any{"errors": false, "items": []any{}})
	})
	e.POST("/:index/_search", func(c echo.Context) error {
		f.store(c, "search")
		return c.JSON(http.StatusOK, map[string]any{
			"hits": map[string]any{
				"total": map[string]any{"value": 12, "relation": "eq"},
				"hits": []any{
					map[string]any{"_id": "1", "_source": menu[0]},
				},
			},
		})
	})

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeES) store(c echo.Context, kind string) {
	b, _ := io.ReadAll(c.Request().Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies[kind] = c.Param("index") + " " + string(b)
}

func (f *fakeES) body(kind string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[kind]
}

func TestSearcher(t *testing.T) {
	t.Parallel()

	f, srv := newFakeES(t)
	ctx := context.Background()

	s, err := NewSearcher(ctx, SearchConfig{URL: srv.URL, Index: "foods"})
	require.NoError(t, err)

	require.NoError(t, s.IndexFoods(ctx, menu[:2]))
	bulk := f.body("bulk")
	assert.True(t, strings.HasPrefix(bulk, "foods "))
	assert.Equal(t, 4, strings.Count(strings.TrimSpace(strings.TrimPrefix(bulk, "foods ")), "\n")+1)
	assert.Contains(t, bulk, `"_id":"2"`)

	total, foods, err := s.Search(ctx, "piza", 2, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	require.Len(t, foods, 1)
	assert.Equal(t, menu[0], foods[0])

	var q map[string]any
	raw := strings.TrimPrefix(f.body("search"), "foods ")
	require.NoError(t, json.Unmarshal([]byte(raw), &q))
	assert.EqualValues(t, 5, q["from"])
	assert.EqualValues(t, 5, q["size"])
	mm := q["query"].(map[string]any)["multi_match"].(map[string]any)
	assert.Equal(t, "piza", mm["query"])
	assert.Equal(t, "AUTO", mm["fuzziness"])
	assert.Equal(t, []any{"name^2", "description"}, mm["fields"])
}

func TestNewSearcher_Unavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewSearcher(context.Background(), SearchConfig{URL: url, Index: "foods"})
	assert.ErrorIs(t, err, ErrSearchUnavailable)
}
