// Package checkout turns the active cart into an order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/food_client/internal/events"
	"github.com/Skotchmaster/food_client/internal/logging"
	"github.com/Skotchmaster/food_client/internal/models"
)

var (
	ErrNotAuthenticated = errors.New("please login to place an order")
	ErrEmptyCart        = errors.New("your cart is empty")
)

type SessionSource interface {
	Current() *models.Session
}

type Cart interface {
	Lines() []models.CartLine
	IsEmpty() bool
	Clear(ctx context.Context) error
}

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req models.OrderRequest) (string, error)
}

type Orchestrator struct {
	Sessions  SessionSource
	Cart      Cart
	Orders    OrderPlacer
	Publisher events.Publisher
}

func (o *Orchestrator) CanCheckout() bool {
	return o.Sessions.Current() != nil && !o.Cart.IsEmpty()
}

// BuildOrderRequest names the customer after override when it is not blank,
// otherwise after the session user. Only ids and quantities are sent.
func (o *Orchestrator) BuildOrderRequest(override string) (models.OrderRequest, error) {
	s := o.Sessions.Current()
	if s == nil {
		return models.OrderRequest{}, ErrNotAuthenticated
	}
	lines := o.Cart.Lines()
	if len(lines) == 0 {
		return models.OrderRequest{}, ErrEmptyCart
	}

	name := strings.TrimSpace(override)
	if name == "" {
		name = s.Username
	}

	items := make([]models.OrderLine, len(lines))
	for i, line := range lines {
		items[i] = models.OrderLine{FoodID: line.FoodID, Quantity: line.Quantity}
	}
	return models.OrderRequest{CustomerName: name, Items: items}, nil
}

// Submit places the order and empties the cart once the backend accepts it.
// A failed order leaves the cart as it was.
func (o *Orchestrator) Submit(ctx context.Context, override string) (string, error) {
	l := logging.FromContext(ctx).With("component", "checkout")

	req, err := o.BuildOrderRequest(override)
	if err != nil {
		return "", err
	}

	orderID, err := o.Orders.PlaceOrder(ctx, req)
	if err != nil {
		l.Error("checkout_error", "error", err)
		return "", fmt.Errorf("place order: %w", err)
	}

	if err := o.Cart.Clear(ctx); err != nil {
		l.Error("cart_clear_error", "order_id", orderID, "error", err)
		return orderID, fmt.Errorf("order %s placed but cart not cleared: %w", orderID, err)
	}

	username := ""
	if s := o.Sessions.Current(); s != nil {
		username = s.Username
	}
	if o.Publisher != nil {
		ev := events.New(events.OrderPlaced, username, map[string]any{
			"orderId":      orderID,
			"customerName": req.CustomerName,
			"items":        req.Items,
		})
		if err := o.Publisher.Publish(ctx, events.TopicOrder, ev); err != nil {
			l.Warn("publish_error", "topic", events.TopicOrder, "error", err)
		}
	}

	l.Info("order_placed", "order_id", orderID, "lines", len(req.Items))
	return orderID, nil
}
