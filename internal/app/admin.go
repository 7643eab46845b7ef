package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/food_client/internal/apiclient"
	"github.com/Skotchmaster/food_client/internal/checkout"
	"github.com/Skotchmaster/food_client/internal/events"
	"github.com/Skotchmaster/food_client/internal/logging"
	"github.com/Skotchmaster/food_client/internal/models"
	"github.com/Skotchmaster/food_client/internal/validation"
)

var ErrFoodInUse = errors.New("food is referenced by existing orders")

// DeleteFoodError carries the message shown to the admin when a food cannot
// be deleted.
type DeleteFoodError struct {
	Message string
	InUse   bool
	Err     error
}

func (e *DeleteFoodError) Error() string {
	return e.Message
}

func (e *DeleteFoodError) Unwrap() []error {
	if e.InUse {
		return []error{ErrFoodInUse, e.Err}
	}
	return []error{e.Err}
}

func (a *App) requireAdmin() (*models.Session, error) {
	s := a.Sessions.Current()
	if s == nil {
		return nil, checkout.ErrNotAuthenticated
	}
	if !s.IsAdmin() {
		return nil, ErrForbidden
	}
	return s, nil
}

func (a *App) CreateFood(ctx context.Context, in models.FoodInput) (*models.Food, error) {
	if _, err := a.requireAdmin(); err != nil {
		return nil, err
	}
	if err := validation.Food(&in); err != nil {
		return nil, err
	}

	f, err := a.api.CreateFood(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create food: %w", err)
	}
	a.refreshMenu(ctx)
	return f, nil
}

func (a *App) UpdateFood(ctx context.Context, id int64, in models.FoodInput) (*models.Food, error) {
	if _, err := a.requireAdmin(); err != nil {
		return nil, err
	}
	if err := validation.Food(&in); err != nil {
		return nil, err
	}

	f, err := a.api.UpdateFood(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("update food: %w", err)
	}
	a.refreshMenu(ctx)
	return f, nil
}

// DeleteFood turns backend constraint failures into a message an admin can
// act on.
func (a *App) DeleteFood(ctx context.Context, id int64) error {
	s, err := a.requireAdmin()
	if err != nil {
		return err
	}

	name := "this food item"
	if f, ok := a.food(id); ok {
		name = f.Name
	}

	if err := a.api.DeleteFood(ctx, id); err != nil {
		logging.FromContext(ctx).Warn("delete_food_error", "food_id", id, "error", err)
		return deleteFoodError(name, err)
	}

	a.publish(ctx, events.TopicMenu, events.New(events.FoodDeleted, s.Username, map[string]any{"foodId": id, "name": name}))
	a.refreshMenu(ctx)
	return nil
}

func deleteFoodError(name string, err error) error {
	msg := err.Error()
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		msg = apiErr.Message
	}

	switch {
	case strings.Contains(msg, "pending or active orders"):
		return &DeleteFoodError{Message: msg, InUse: true, Err: err}
	case strings.Contains(msg, "foreign key constraint"):
		return &DeleteFoodError{
			Message: fmt.Sprintf("Cannot delete %q because it has been ordered by customers. Please contact support if you need to remove this item.", name),
			InUse:   true,
			Err:     err,
		}
	case strings.Contains(msg, "constraint"):
		return &DeleteFoodError{
			Message: fmt.Sprintf("Cannot delete %q because it is currently being used in existing orders.", name),
			InUse:   true,
			Err:     err,
		}
	default:
		return &DeleteFoodError{
			Message: fmt.Sprintf("Failed to delete %q. Please try again.", name),
			Err:     err,
		}
	}
}

func (a *App) refreshMenu(ctx context.Context) {
	if _, err := a.LoadMenu(ctx); err != nil {
		logging.FromContext(ctx).Warn("menu_refresh_error", "error", err)
	}
}

func (a *App) UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus) (*models.Order, error) {
	s, err := a.requireAdmin()
	if err != nil {
		return nil, err
	}
	if err := validation.OrderStatus(status); err != nil {
		return nil, err
	}

	o, err := a.api.UpdateOrderStatus(ctx, id, status)
	if err != nil {
		return nil, fmt.Errorf("update order %d: %w", id, err)
	}
	a.publish(ctx, events.TopicOrder, events.New(events.OrderStatusSet, s.Username, map[string]any{"orderId": id, "status": status}))
	return o, nil
}

func (a *App) DeleteOrder(ctx context.Context, id int64) error {
	if _, err := a.requireAdmin(); err != nil {
		return err
	}
	if err := a.api.DeleteOrder(ctx, id); err != nil {
		return fmt.Errorf("delete order %d: %w", id, err)
	}
	return nil
}

func (a *App) Users(ctx context.Context) ([]models.User, error) {
	if _, err := a.requireAdmin(); err != nil {
		return nil, err
	}
	users, err := a.api.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	return users, nil
}

func (a *App) CreateUser(ctx context.Context, u models.NewUser) error {
	if _, err := a.requireAdmin(); err != nil {
		return err
	}
	if u.Role == "" {
		u.Role = models.RoleCustomer
	}
	if err := validation.Registration(&u, u.Password); err != nil {
		return err
	}
	if err := a.api.CreateUser(ctx, u); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}
