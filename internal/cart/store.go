package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

const KeyPrefix = "bakery-cart"

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidItem     = errors.New("cart item needs an id and a non-negative price")
	ErrMissingCartID   = errors.New("cart id is required")
)

// Listener receives the full cart contents after every mutation.
type Listener func(cartID string, items []Item)

// Store manipulates carts held in a Storage. Read-modify-write sequences are
// serialized, so concurrent mutations of one cart never lose an update.
type Store struct {
	storage Storage

	mu sync.Mutex

	listenersMu sync.RWMutex
	listeners   map[int]Listener
	nextID      int
}

func NewStore(storage Storage) *Store {
	return &Store{
		storage:   storage,
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

// Get returns the cart contents in insertion order. A cart that was never
// written is empty.
func (s *Store) Get(ctx context.Context, cartID string) ([]Item, error) {
	if cartID == "" {
		return nil, ErrMissingCartID
	}
	return s.load(ctx, cartID)
}

// Add appends item, or increases its quantity when an item with the same id
// is already present.
func (s *Store) Add(ctx context.Context, cartID string, item Item, quantity int) ([]Item, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if item.ID == "" || item.Price < 0 {
		return nil, ErrInvalidItem
	}

	return s.mutate(ctx, cartID, func(items []Item) ([]Item, bool) {
		for i := range items {
			if items[i].ID == item.ID {
				items[i].Quantity += quantity
				return items, true
			}
		}
		item.Quantity = quantity
		return append(items, item), true
	})
}

// Update overwrites the quantity of item id. A quantity of zero or less
// removes it. Updating an id that is not in the cart changes nothing.
func (s *Store) Update(ctx context.Context, cartID, id string, quantity int) ([]Item, error) {
	return s.mutate(ctx, cartID, func(items []Item) ([]Item, bool) {
		idx := indexOf(items, id)
		if idx < 0 {
			return items, false
		}
		if quantity <= 0 {
			return append(items[:idx], items[idx+1:]...), true
		}
		items[idx].Quantity = quantity
		return items, true
	})
}

// Remove drops item id. The cart is written back and listeners are notified
// even when nothing matched.
func (s *Store) Remove(ctx context.Context, cartID, id string) ([]Item, error) {
	return s.mutate(ctx, cartID, func(items []Item) ([]Item, bool) {
		filtered := items[:0]
		for _, item := range items {
			if item.ID != id {
				filtered = append(filtered, item)
			}
		}
		return filtered, true
	})
}

func (s *Store) Clear(ctx context.Context, cartID string) error {
	if cartID == "" {
		return ErrMissingCartID
	}

	s.mu.Lock()
	err := s.storage.Delete(ctx, key(cartID))
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("cart: failed to clear %s: %w", cartID, err)
	}

	s.notify(cartID, []Item{})
	return nil
}

func (s *Store) Total(ctx context.Context, cartID string) (float64, error) {
	items, err := s.Get(ctx, cartID)
	if err != nil {
		return 0, err
	}
	return TotalOf(items), nil
}

func (s *Store) ItemCount(ctx context.Context, cartID string) (int, error) {
	items, err := s.Get(ctx, cartID)
	if err != nil {
		return 0, err
	}
	return CountOf(items), nil
}

func (s *Store) mutate(ctx context.Context, cartID string, fn func([]Item) ([]Item, bool)) ([]Item, error) {
	if cartID == "" {
		return nil, ErrMissingCartID
	}

	s.mu.Lock()
	items, err := s.load(ctx, cartID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	items, changed := fn(items)
	if changed {
		err = s.save(ctx, cartID, items)
	}
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if changed {
		s.notify(cartID, items)
	}
	return items, nil
}

func (s *Store) load(ctx context.Context, cartID string) ([]Item, error) {
	data, err := s.storage.Get(ctx, key(cartID))
	if errors.Is(err, ErrNotFound) {
		return []Item{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cart: failed to load %s: %w", cartID, err)
	}

	items := []Item{}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("cart: corrupt contents for %s: %w", cartID, err)
	}
	return items, nil
}

func (s *Store) save(ctx context.Context, cartID string, items []Item) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("cart: failed to encode %s: %w", cartID, err)
	}
	if err := s.storage.Set(ctx, key(cartID), data); err != nil {
		return fmt.Errorf("cart: failed to save %s: %w", cartID, err)
	}
	return nil
}

func (s *Store) notify(cartID string, items []Item) {
	s.listenersMu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.listenersMu.RUnlock()

	for _, l := range listeners {
		snapshot := make([]Item, len(items))
		copy(snapshot, items)
		l(cartID, snapshot)
	}

	log.Debug().Str("cart_id", cartID).Int("items", len(items)).Msg("cart updated")
}

func indexOf(items []Item, id string) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func key(cartID string) string {
	return KeyPrefix + ":" + cartID
}
