// Package backendtest runs an in-memory food-ordering backend for tests.
package backendtest

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/Skotchmaster/food_client/internal/models"
	"github.com/labstack/echo/v4"
)

type account struct {
	password string
	email    string
	role     models.Role
}

type Request struct {
	Method    string
	Path      string
	Auth      string
	RequestID string
}

type Backend struct {
	Server *httptest.Server

	// OrderIDField names the field carrying the id in checkout responses.
	OrderIDField string

	mu        sync.Mutex
	accounts  map[string]account
	foods     []models.Food
	orders    []models.Order
	requests  []Request
	nextFood  int64
	nextOrder int64
	failNext  map[string]int
}

func New(t testing.TB) *Backend {
	t.Helper()

	b := &Backend{
		OrderIDField: "orderId",
		accounts:     make(map[string]account),
		failNext:     make(map[string]int),
		nextFood:     1,
		nextOrder:    1,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(b.record)

	e.POST("/auth/login", b.login)
	e.POST("/auth/register", b.register)

	e.GET("/foods", b.listFoods)
	e.POST("/foods", b.createFood, b.requireAdmin)
	e.PUT("/foods/:id", b.updateFood, b.requireAdmin)
	e.DELETE("/foods/:id", b.deleteFood, b.requireAdmin)

	e.GET("/orders", b.listOrders, b.requireUser)
	e.POST("/orders/checkout", b.checkout, b.requireUser)
	e.PUT("/orders/:id", b.updateOrder, b.requireAdmin)
	e.DELETE("/orders/:id", b.deleteOrder, b.requireAdmin)

	e.GET("/users", b.listUsers, b.requireAdmin)
	e.POST("/users", b.createUser, b.requireAdmin)

	b.Server = httptest.NewServer(e)
	t.Cleanup(b.Server.Close)
	return b
}

func (b *Backend) URL() string {
	return b.Server.URL
}

func TokenFor(username string) string {
	return "tok-" + username
}

func (b *Backend) AddUser(username, password string, role models.Role) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.accounts[username] = account{password: password, email: username + "@example.com", role: role}
}

func (b *Backend) AddFood(name string, price float64, description, category string) models.Food {
	b.mu.Lock()
	defer b.mu.Unlock()

	f := models.Food{ID: b.nextFood, Name: name, Price: price, Description: description, Category: category}
	b.nextFood++
	b.foods = append(b.foods, f)
	return f
}

func (b *Backend) AddOrder(customer string, status models.OrderStatus, items ...models.OrderItem) models.Order {
	b.mu.Lock()
	defer b.mu.Unlock()

	o := models.Order{OrderID: b.nextOrder, CustomerName: customer, Status: status, Items: items}
	for _, it := range items {
		o.TotalPrice += it.Price * float64(it.Quantity)
	}
	b.nextOrder++
	b.orders = append(b.orders, o)
	return o
}

func (b *Backend) Orders() []models.Order {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]models.Order(nil), b.orders...)
}

func (b *Backend) Foods() []models.Food {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]models.Food(nil), b.foods...)
}

func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]Request(nil), b.requests...)
}

// FailNext makes the next request to "METHOD /path" answer with status.
func (b *Backend) FailNext(method, path string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failNext[method+" "+path] = status
}

func (b *Backend) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()

		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method:    req.Method,
			Path:      req.URL.Path,
			Auth:      req.Header.Get("Authorization"),
			RequestID: req.Header.Get("X-Request-ID"),
		})
		key := req.Method + " " + req.URL.Path
		status, fail := b.failNext[key]
		delete(b.failNext, key)
		b.mu.Unlock()

		if fail {
			return c.JSON(status, map[string]string{"error": http.StatusText(status)})
		}
		return next(c)
	}
}

func (b *Backend) caller(c echo.Context) (string, account, bool) {
	auth := c.Request().Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return "", account{}, false
	}
	username, ok := strings.CutPrefix(token, "tok-")
	if !ok {
		return "", account{}, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[username]
	return username, acc, ok
}

func (b *Backend) requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		username, acc, ok := b.caller(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Authentication required"})
		}
		c.Set("username", username)
		c.Set("role", acc.role)
		return next(c)
	}
}

func (b *Backend) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return b.requireUser(func(c echo.Context) error {
		if c.Get("role") != models.RoleAdmin {
			return c.JSON(http.StatusForbidden, map[string]string{"message": "Admin access required"})
		}
		return next(c)
	})
}

func (b *Backend) login(c echo.Context) error {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}

	b.mu.Lock()
	acc, ok := b.accounts[in.Username]
	b.mu.Unlock()
	if !ok || acc.password != in.Password {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid username or password"})
	}
	return c.JSON(http.StatusOK, map[string]any{"token": TokenFor(in.Username), "role": acc.role})
}

func (b *Backend) register(c echo.Context) error {
	var in models.NewUser
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.accounts[in.Username]; exists {
		return c.JSON(http.StatusConflict, map[string]string{"error": "Username already exists"})
	}
	role := in.Role
	if role == "" {
		role = models.RoleCustomer
	}
	b.accounts[in.Username] = account{password: in.Password, email: in.Email, role: role}
	return c.NoContent(http.StatusCreated)
}

func (b *Backend) listFoods(c echo.Context) error {
	return c.JSON(http.StatusOK, b.Foods())
}

func (b *Backend) createFood(c echo.Context) error {
	var in models.FoodInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	return c.JSON(http.StatusCreated, b.AddFood(in.Name, in.Price, in.Description, ""))
}

func (b *Backend) updateFood(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	var in models.FoodInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.foods {
		if b.foods[i].ID == id {
			b.foods[i].Name = in.Name
			b.foods[i].Price = in.Price
			b.foods[i].Description = in.Description
			return c.JSON(http.StatusOK, b.foods[i])
		}
	}
	return c.JSON(http.StatusNotFound, map[string]string{"error": "Food not found"})
}

func (b *Backend) deleteFood(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	idx := -1
	for i := range b.foods {
		if b.foods[i].ID == id {
			idx = i
		}
	}
	if idx < 0 {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Food not found"})
	}
	for _, o := range b.orders {
		if o.Status == models.OrderDelivered || o.Status == models.OrderCancelled {
			continue
		}
		for _, it := range o.Items {
			if it.FoodName == b.foods[idx].Name {
				return c.JSON(http.StatusConflict, map[string]string{"error": "Cannot delete food item that has pending or active orders"})
			}
		}
	}
	b.foods = append(b.foods[:idx], b.foods[idx+1:]...)
	return c.NoContent(http.StatusNoContent)
}

func (b *Backend) listOrders(c echo.Context) error {
	username, _ := c.Get("username").(string)
	all := b.Orders()
	if c.Get("role") == models.RoleAdmin {
		return c.JSON(http.StatusOK, all)
	}
	own := make([]models.Order, 0, len(all))
	for _, o := range all {
		if o.CustomerName == username {
			own = append(own, o)
		}
	}
	return c.JSON(http.StatusOK, own)
}

func (b *Backend) checkout(c echo.Context) error {
	var in models.OrderRequest
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}
	if len(in.Items) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Order has no items"})
	}

	b.mu.Lock()
	items := make([]models.OrderItem, 0, len(in.Items))
	for _, line := range in.Items {
		var found *models.Food
		for i := range b.foods {
			if b.foods[i].ID == line.FoodID {
				found = &b.foods[i]
			}
		}
		if found == nil {
			b.mu.Unlock()
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "Unknown food " + strconv.FormatInt(line.FoodID, 10)})
		}
		items = append(items, models.OrderItem{FoodName: found.Name, Quantity: line.Quantity, Price: found.Price})
	}
	field := b.OrderIDField
	b.mu.Unlock()

	o := b.AddOrder(in.CustomerName, models.OrderPending, items...)
	return c.JSON(http.StatusCreated, map[string]any{field: o.OrderID})
}

func (b *Backend) updateOrder(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	var in struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid body"})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.orders {
		if b.orders[i].OrderID == id {
			b.orders[i].Status = in.Status
			return c.JSON(http.StatusOK, b.orders[i])
		}
	}
	return c.JSON(http.StatusNotFound, map[string]string{"error": "Order not found"})
}

func (b *Backend) deleteOrder(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.orders {
		if b.orders[i].OrderID == id {
			b.orders = append(b.orders[:i], b.orders[i+1:]...)
			return c.NoContent(http.StatusNoContent)
		}
	}
	return c.JSON(http.StatusNotFound, map[string]string{"error": "Order not found"})
}

func (b *Backend) listUsers(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]models.User, 0, len(b.accounts))
	for name, acc := range b.accounts {
		out = append(out, models.User{Username: name, Email: acc.email, Role: acc.role})
	}
	return c.JSON(http.StatusOK, out)
}

func (b *Backend) createUser(c echo.Context) error {
	return b.register(c)
}
