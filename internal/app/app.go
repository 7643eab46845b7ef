// Package app owns the client state and the order in which it is set up.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Skotchmaster/food_client/internal/apiclient"
	"github.com/Skotchmaster/food_client/internal/cart"
	"github.com/Skotchmaster/food_client/internal/catalog"
	"github.com/Skotchmaster/food_client/internal/checkout"
	"github.com/Skotchmaster/food_client/internal/events"
	"github.com/Skotchmaster/food_client/internal/logging"
	"github.com/Skotchmaster/food_client/internal/models"
	"github.com/Skotchmaster/food_client/internal/session"
	"github.com/Skotchmaster/food_client/internal/storage"
	"github.com/Skotchmaster/food_client/internal/validation"
)

var (
	ErrForbidden   = errors.New("admin access required")
	ErrUnknownFood = errors.New("food not found on the menu")
)

type Backend interface {
	Login(ctx context.Context, username, password string) (*apiclient.LoginResponse, error)
	Register(ctx context.Context, u models.NewUser) error
	Foods(ctx context.Context) ([]models.Food, error)
	CreateFood(ctx context.Context, in models.FoodInput) (*models.Food, error)
	UpdateFood(ctx context.Context, id int64, in models.FoodInput) (*models.Food, error)
	DeleteFood(ctx context.Context, id int64) error
	Orders(ctx context.Context) ([]models.Order, error)
	PlaceOrder(ctx context.Context, req models.OrderRequest) (string, error)
	UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus) (*models.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
	Users(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, u models.NewUser) error
}

type Searcher interface {
	IndexFoods(ctx context.Context, foods []models.Food) error
	Search(ctx context.Context, query string, page, size int) (int64, []models.Food, error)
}

type Deps struct {
	Durable   storage.Store
	Transient storage.Store

	// Sessions is built over Durable and Transient when nil. Pass it in when
	// API uses it as its token source.
	Sessions *session.Manager

	API        Backend
	Publisher  events.Publisher
	SessionTTL time.Duration

	// Searcher is optional; menu search falls back to the local filter.
	Searcher Searcher
}

type App struct {
	Sessions *session.Manager
	Cart     *cart.Store
	Checkout *checkout.Orchestrator

	api        Backend
	pub        events.Publisher
	search     Searcher
	sessionTTL time.Duration

	menuMu sync.RWMutex
	menu   []models.Food
}

func New(d Deps) *App {
	if d.Transient == nil {
		d.Transient = storage.NewMemory()
	}
	if d.Sessions == nil {
		d.Sessions = session.NewManager(d.Durable, d.Transient)
	}
	if d.Publisher == nil {
		d.Publisher = events.Noop{}
	}
	if d.SessionTTL <= 0 {
		d.SessionTTL = session.DefaultTTL
	}

	c := cart.New(d.Durable)
	a := &App{
		Sessions: d.Sessions,
		Cart:     c,
		Checkout: &checkout.Orchestrator{
			Sessions:  d.Sessions,
			Cart:      c,
			Orders:    d.API,
			Publisher: d.Publisher,
		},
		api:        d.API,
		pub:        d.Publisher,
		search:     d.Searcher,
		sessionTTL: d.SessionTTL,
	}
	d.Sessions.OnExpired(a.sessionExpired)
	return a
}

// StartResult.Restored counts guest lines merged into the user cart.
type StartResult struct {
	Session  *models.Session `json:"session,omitempty"`
	Expired  bool            `json:"expired"`
	Restored int             `json:"restored"`
}

// Start restores the cached session, loads the cart for that identity and
// folds a leftover guest cart into it.
func (a *App) Start(ctx context.Context) (StartResult, error) {
	l := logging.FromContext(ctx).With("component", "app")

	var res StartResult
	ended := false
	s, err := a.Sessions.Restore(ctx)
	switch {
	case err == nil:
		res.Session = s
	case errors.Is(err, session.ErrSessionExpired):
		res.Expired = true
		ended = true
		l.Info("session_expired_on_start")
		a.publish(ctx, events.TopicSession, events.New(events.SessionExpired, "", nil))
	case errors.Is(err, session.ErrSessionCorrupted):
		ended = true
	case errors.Is(err, session.ErrNoSession):
	default:
		return res, fmt.Errorf("restore session: %w", err)
	}

	// The mirror of an ended session belongs to that user, not to the guest.
	if ended {
		err = a.Cart.ResumeGuest(ctx)
	} else {
		err = a.Cart.Load(ctx, cart.KeyFor(s))
	}
	if err != nil {
		return res, fmt.Errorf("load cart: %w", err)
	}

	if s != nil {
		res.Restored = a.mergeGuest(ctx, s.Username)
	}
	return res, nil
}

type LoginResult struct {
	Session  *models.Session `json:"session"`
	Restored int             `json:"restored"`
}

func (a *App) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	return a.authenticate(ctx, username, password, false)
}

// Register creates a customer account and signs it in.
func (a *App) Register(ctx context.Context, u models.NewUser, confirm string) (*LoginResult, error) {
	if u.Role == "" {
		u.Role = models.RoleCustomer
	}
	if err := validation.Registration(&u, confirm); err != nil {
		return nil, err
	}
	if err := a.api.Register(ctx, u); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return a.authenticate(ctx, u.Username, u.Password, true)
}

func (a *App) authenticate(ctx context.Context, username, password string, newUser bool) (*LoginResult, error) {
	if err := validation.Credentials(username, password); err != nil {
		return nil, err
	}

	resp, err := a.api.Login(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s, err := a.Sessions.Establish(ctx, resp.Token, username, resp.Role, a.sessionTTL, newUser)
	if err != nil {
		return nil, fmt.Errorf("establish session: %w", err)
	}

	// Without the user's cart the login is rolled back; the guest cart stays
	// active and untouched.
	if err := a.Cart.Load(ctx, cart.KeyFor(s)); err != nil {
		logging.FromContext(ctx).Error("cart_load_failed", "username", username, "error", err)
		if clearErr := a.Sessions.Clear(ctx); clearErr != nil {
			err = errors.Join(err, clearErr)
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}
	a.publish(ctx, events.TopicSession, events.New(events.SessionLogin, username, map[string]any{"role": s.Role, "newUser": newUser}))

	res := &LoginResult{Session: s}
	res.Restored = a.mergeGuest(ctx, username)
	return res, nil
}

// sessionExpired moves a running client back to the guest cart when its
// session runs out. The user's cart stays stored under its own key.
func (a *App) sessionExpired(ctx context.Context, s models.Session) {
	l := logging.FromContext(ctx).With("component", "app")
	l.Info("session_expired", "username", s.Username)

	if err := a.Cart.ResumeGuest(ctx); err != nil {
		l.Error("cart_resume_guest_failed", "username", s.Username, "error", err)
	}
	a.publish(ctx, events.TopicSession, events.New(events.SessionExpired, s.Username, nil))
}

func (a *App) mergeGuest(ctx context.Context, username string) int {
	n, err := a.Cart.MergeGuestInto(ctx, username)
	if err != nil {
		logging.FromContext(ctx).Error("cart_merge_failed", "username", username, "error", err)
		return 0
	}
	if n > 0 {
		a.publish(ctx, events.TopicCart, events.New(events.CartMerged, username, map[string]any{
			"guestLines": n,
			"lines":      a.Cart.Len(),
		}))
	}
	return n
}

// Logout keeps the user's cart stored under its own key and continues with
// an empty guest cart.
func (a *App) Logout(ctx context.Context) error {
	s := a.Sessions.Current()
	if s != nil {
		if err := a.Cart.Persist(ctx); err != nil {
			return fmt.Errorf("persist cart: %w", err)
		}
	}
	if err := a.Sessions.Clear(ctx); err != nil {
		return err
	}
	if err := a.Cart.Reset(ctx, cart.GuestKey); err != nil {
		return fmt.Errorf("reset cart: %w", err)
	}
	if s != nil {
		a.publish(ctx, events.TopicSession, events.New(events.SessionLogout, s.Username, nil))
	}
	return nil
}

func (a *App) Session() *models.Session {
	return a.Sessions.Current()
}

func (a *App) ConsumeWelcome(ctx context.Context) (session.Welcome, bool) {
	return a.Sessions.ConsumeWelcome(ctx)
}

func (a *App) LoadMenu(ctx context.Context) ([]models.Food, error) {
	foods, err := a.api.Foods(ctx)
	if err != nil {
		return nil, fmt.Errorf("load menu: %w", err)
	}

	a.menuMu.Lock()
	a.menu = foods
	a.menuMu.Unlock()

	if a.search != nil {
		if err := a.search.IndexFoods(ctx, foods); err != nil {
			logging.FromContext(ctx).Warn("menu_index_error", "error", err)
		}
	}
	return append([]models.Food(nil), foods...), nil
}

// Menu filters the cached menu without touching the network.
func (a *App) Menu(c catalog.Criteria) []models.Food {
	a.menuMu.RLock()
	defer a.menuMu.RUnlock()

	return catalog.Filter(a.menu, c)
}

func (a *App) Categories() []string {
	a.menuMu.RLock()
	defer a.menuMu.RUnlock()

	return catalog.Categories(a.menu)
}

// SearchMenu uses the search index when one is configured and reachable.
func (a *App) SearchMenu(ctx context.Context, query string, page, size int) (int64, []models.Food, error) {
	if a.search != nil {
		total, foods, err := a.search.Search(ctx, query, page, size)
		if err == nil {
			return total, foods, nil
		}
		logging.FromContext(ctx).Warn("menu_search_error", "error", err)
	}

	matched := a.Menu(catalog.Criteria{Search: query})
	from, limit := catalog.Calculate(page, size)
	if from >= len(matched) {
		return int64(len(matched)), []models.Food{}, nil
	}
	end := min(from+limit, len(matched))
	return int64(len(matched)), matched[from:end], nil
}

func (a *App) food(id int64) (models.Food, bool) {
	a.menuMu.RLock()
	defer a.menuMu.RUnlock()

	for _, f := range a.menu {
		if f.ID == id {
			return f, true
		}
	}
	return models.Food{}, false
}

// AddToCart copies name and price from the menu, reloading it once when the
// food is not cached.
func (a *App) AddToCart(ctx context.Context, foodID int64, qty int) error {
	f, ok := a.food(foodID)
	if !ok {
		if _, err := a.LoadMenu(ctx); err != nil {
			return err
		}
		if f, ok = a.food(foodID); !ok {
			return fmt.Errorf("%w: %d", ErrUnknownFood, foodID)
		}
	}
	return a.Cart.AddItem(ctx, f.ID, f.Name, f.Price, qty)
}

func (a *App) SetCartQuantity(ctx context.Context, foodID int64, qty int) error {
	return a.Cart.SetQuantity(ctx, foodID, qty)
}

func (a *App) RemoveFromCart(ctx context.Context, foodID int64) error {
	return a.Cart.RemoveItem(ctx, foodID)
}

func (a *App) ClearCart(ctx context.Context) error {
	if err := a.Cart.Clear(ctx); err != nil {
		return err
	}
	username := ""
	if s := a.Sessions.Current(); s != nil {
		username = s.Username
	}
	a.publish(ctx, events.TopicCart, events.New(events.CartCleared, username, nil))
	return nil
}

func (a *App) CanCheckout() bool {
	return a.Checkout.CanCheckout()
}

func (a *App) PlaceOrder(ctx context.Context, customerName string) (string, error) {
	return a.Checkout.Submit(ctx, customerName)
}

func (a *App) Orders(ctx context.Context) ([]models.Order, error) {
	if a.Sessions.Current() == nil {
		return nil, checkout.ErrNotAuthenticated
	}
	orders, err := a.api.Orders(ctx)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	return orders, nil
}

func (a *App) publish(ctx context.Context, topic string, ev events.Event) {
	if err := a.pub.Publish(ctx, topic, ev); err != nil {
		logging.FromContext(ctx).Warn("publish_error", "topic", topic, "type", ev.Type, "error", err)
	}
}
