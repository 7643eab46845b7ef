// Package cart holds the shopping cart and its identity-scoped persistence.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Skotchmaster/food_client/internal/logging"
	"github.com/Skotchmaster/food_client/internal/models"
	"github.com/Skotchmaster/food_client/internal/storage"
)

const (
	MirrorKey = "currentCart"
	GuestKey  = "cart_guest"

	userKeyPrefix = "cart_"
)

var ErrValidation = errors.New("validation error")

// KeyFor is the single place cart keys are derived from an identity.
func KeyFor(s *models.Session) string {
	if s == nil || s.Username == "" {
		return GuestKey
	}
	return UserKey(s.Username)
}

func UserKey(username string) string {
	return userKeyPrefix + username
}

type Store struct {
	storage storage.Store

	mu    sync.Mutex
	key   string
	lines []models.CartLine
}

func New(s storage.Store) *Store {
	return &Store{storage: s, key: GuestKey}
}

// Load replaces the in-memory cart with the one stored under key, falling
// back to the mirror. Unusable lines are dropped.
func (c *Store) Load(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines, found, err := c.read(ctx, key)
	if err != nil {
		return err
	}
	if !found {
		lines, _, err = c.read(ctx, MirrorKey)
		if err != nil {
			return err
		}
	}

	c.key = key
	c.lines = lines
	return nil
}

// ResumeGuest switches to the guest cart without inheriting the mirror, which
// may still hold the cart of a session that has just ended. The mirror is
// rewritten to match.
func (c *Store) ResumeGuest(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines, _, err := c.read(ctx, GuestKey)
	if err != nil {
		return err
	}
	if err := c.persistLocked(ctx, GuestKey, lines); err != nil {
		return err
	}
	c.key = GuestKey
	c.lines = lines
	return nil
}

// Reset starts an empty cart under key and persists it.
func (c *Store) Reset(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.persistLocked(ctx, key, nil); err != nil {
		return err
	}
	c.key = key
	c.lines = nil
	return nil
}

func (c *Store) AddItem(ctx context.Context, foodID int64, name string, unitPrice float64, qty int) error {
	if qty < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}
	if foodID <= 0 {
		return fmt.Errorf("%w: food id must be positive", ErrValidation)
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is empty", ErrValidation)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.copyLocked()
	if i := indexOf(next, foodID); i >= 0 {
		next[i].Quantity += qty
	} else {
		next = append(next, models.CartLine{FoodID: foodID, Name: name, UnitPrice: unitPrice, Quantity: qty})
	}
	return c.commitLocked(ctx, next)
}

func (c *Store) RemoveItem(ctx context.Context, foodID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.commitLocked(ctx, without(c.lines, foodID))
}

// SetQuantity removes the line when qty <= 0.
func (c *Store) SetQuantity(ctx context.Context, foodID int64, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if qty <= 0 {
		return c.commitLocked(ctx, without(c.lines, foodID))
	}
	next := c.copyLocked()
	if i := indexOf(next, foodID); i >= 0 {
		next[i].Quantity = qty
	}
	return c.commitLocked(ctx, next)
}

// Clear empties the cart; the stored key stays and holds an empty list.
func (c *Store) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.commitLocked(ctx, nil)
}

func (c *Store) Persist(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.persistLocked(ctx, c.key, c.lines)
}

// MergeGuestInto folds the guest cart into username's stored cart, makes the
// result active and consumes the guest record, all in one storage write. It
// returns the number of guest lines folded in; without a guest cart it does
// nothing.
func (c *Store) MergeGuestInto(ctx context.Context, username string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l := logging.FromContext(ctx).With("component", "cart")

	guest, found, err := c.read(ctx, GuestKey)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}

	userKey := UserKey(username)
	merged, _, err := c.read(ctx, userKey)
	if err != nil {
		return 0, err
	}

	for _, g := range guest {
		if i := indexOf(merged, g.FoodID); i >= 0 {
			merged[i].Quantity += g.Quantity
			continue
		}
		merged = append(merged, g)
	}

	raw, err := encodeLines(merged)
	if err != nil {
		return 0, err
	}
	if err := c.storage.Apply(ctx,
		storage.Put(userKey, raw),
		storage.Put(MirrorKey, raw),
		storage.Delete(GuestKey),
	); err != nil {
		return 0, fmt.Errorf("merge guest cart: %w", err)
	}

	c.key = userKey
	c.lines = merged
	l.Info("cart_merged", "username", username, "guest_lines", len(guest), "lines", len(merged))
	return len(guest), nil
}

// Summary is a consistent view of the cart taken under one lock.
type Summary struct {
	Key       string
	Lines     []models.CartLine
	ItemCount int
	Total     float64
}

func (c *Store) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	sum := Summary{Key: c.key, Lines: c.copyLocked()}
	for _, line := range c.lines {
		sum.ItemCount += line.Quantity
		sum.Total += line.Subtotal()
	}
	return sum
}

func (c *Store) Key() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.key
}

func (c *Store) Lines() []models.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.copyLocked()
}

func (c *Store) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.lines)
}

func (c *Store) IsEmpty() bool {
	return c.Len() == 0
}

// ItemCount is the total quantity across lines.
func (c *Store) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, line := range c.lines {
		n += line.Quantity
	}
	return n
}

func (c *Store) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total float64
	for _, line := range c.lines {
		total += line.Subtotal()
	}
	return total
}

func (c *Store) commitLocked(ctx context.Context, next []models.CartLine) error {
	if err := c.persistLocked(ctx, c.key, next); err != nil {
		return err
	}
	c.lines = next
	return nil
}

func (c *Store) persistLocked(ctx context.Context, key string, lines []models.CartLine) error {
	raw, err := encodeLines(lines)
	if err != nil {
		return err
	}
	if err := c.storage.Apply(ctx, storage.Put(key, raw), storage.Put(MirrorKey, raw)); err != nil {
		return fmt.Errorf("persist cart %s: %w", key, err)
	}
	return nil
}

func (c *Store) copyLocked() []models.CartLine {
	out := make([]models.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// read returns found=false for a missing key. A payload that is not a list
// counts as found but empty.
func (c *Store) read(ctx context.Context, key string) ([]models.CartLine, bool, error) {
	items, err := storage.Decode[[]json.RawMessage](ctx, c.storage, key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, false, nil
	case errors.Is(err, storage.ErrCorrupt):
		logging.FromContext(ctx).Warn("cart_corrupt", "key", key, "error", err)
		return nil, true, nil
	case err != nil:
		return nil, false, fmt.Errorf("read cart %s: %w", key, err)
	}
	return sanitize(items), true, nil
}

func encodeLines(lines []models.CartLine) (string, error) {
	if lines == nil {
		lines = []models.CartLine{}
	}
	return storage.Marshal(lines)
}

func indexOf(lines []models.CartLine, foodID int64) int {
	for i, line := range lines {
		if line.FoodID == foodID {
			return i
		}
	}
	return -1
}

func without(lines []models.CartLine, foodID int64) []models.CartLine {
	out := make([]models.CartLine, 0, len(lines))
	for _, line := range lines {
		if line.FoodID != foodID {
			out = append(out, line)
		}
	}
	return out
}
