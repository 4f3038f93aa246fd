package cart

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidItem rejects candidates missing an id, a name or a usable price.
	ErrInvalidItem = errors.New("invalid cart item")
	// ErrInvalidQuantity rejects negative quantity updates.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrQuantityTooLarge rejects adds whose merged quantity would overflow.
	ErrQuantityTooLarge = errors.New("quantity too large")
)

// State is the ordered item sequence owned by a Store. Insertion order is kept
// for display only.
type State struct {
	Items []Item
}

// Total sums price × quantity across all items.
func (s State) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// ItemCount sums quantities; non-positive quantities contribute nothing.
func (s State) ItemCount() int {
	count := 0
	for _, item := range s.Items {
		if item.Quantity > 0 {
			count += item.Quantity
		}
	}
	return count
}

// Item looks up a line by catalog id.
func (s State) Item(id string) (Item, bool) {
	for _, item := range s.Items {
		if item.ID == id {
			return item, true
		}
	}
	return Item{}, false
}

// IsEmpty reports whether the cart has no lines.
func (s State) IsEmpty() bool {
	return len(s.Items) == 0
}

func (s State) clone() State {
	return State{Items: append([]Item(nil), s.Items...)}
}

// Op is one of the cart intents. The set is closed: only types in this package implement it.
type Op interface {
	apply(State) (State, error)
	name() string
}

// AddItem merges the candidate into the cart, summing quantities for an existing id.
type AddItem struct {
	Candidate Candidate
	Quantity  int
}

// RemoveItem deletes the line with the given id; absent ids are a no-op.
type RemoveItem struct {
	ID string
}

// UpdateQuantity sets a line's quantity exactly. Zero removes the line.
type UpdateQuantity struct {
	ID       string
	Quantity int
}

// Clear empties the cart.
type Clear struct{}

// Load replaces the cart with a rehydrated snapshot.
type Load struct {
	Items []Item
}

// VerifyItems keeps only lines whose id was confirmed by the catalog.
type VerifyItems struct {
	ValidIDs []string
}

// Apply runs op against state and returns the next state. The input is never mutated.
func Apply(state State, op Op) (State, error) {
	if op == nil {
		return state, nil
	}
	return op.apply(state)
}

func (op AddItem) name() string { return "add_item" }

func (op AddItem) apply(state State) (State, error) {
	candidate := op.Candidate
	id := strings.TrimSpace(candidate.ID)
	if id == "" {
		return state, errMissingField("id")
	}
	if strings.TrimSpace(candidate.Name) == "" {
		return state, errMissingField("name")
	}
	if candidate.Price == nil {
		return state, errMissingField("price")
	}
	if candidate.Price.IsNegative() {
		return state, errInvalidItem("price must not be negative")
	}

	qty := op.Quantity
	if qty < 1 {
		qty = 1
	}

	next := state.clone()
	for i := range next.Items {
		if next.Items[i].ID != id {
			continue
		}
		existing := next.Items[i]
		if existing.Quantity > math.MaxInt-qty {
			return state, ErrQuantityTooLarge
		}
		existing.Quantity += qty
		existing.Price = *candidate.Price
		existing.Name = candidate.Name
		if candidate.Image != "" {
			existing.Image = candidate.Image
		}
		next.Items[i] = existing
		return next, nil
	}

	next.Items = append(next.Items, Item{
		ID:       id,
		Name:     candidate.Name,
		Price:    *candidate.Price,
		Quantity: qty,
		Image:    candidate.Image,
		Brand:    candidate.Brand,
		Category: candidate.Category,
		SKU:      candidate.SKU,
	})
	return next, nil
}

func (op RemoveItem) name() string { return "remove_item" }

func (op RemoveItem) apply(state State) (State, error) {
	next := State{Items: make([]Item, 0, len(state.Items))}
	for _, item := range state.Items {
		if item.ID != op.ID {
			next.Items = append(next.Items, item)
		}
	}
	return next, nil
}

func (op UpdateQuantity) name() string { return "update_quantity" }

func (op UpdateQuantity) apply(state State) (State, error) {
	if op.Quantity < 0 {
		return state, ErrInvalidQuantity
	}
	next := State{Items: make([]Item, 0, len(state.Items))}
	for _, item := range state.Items {
		if item.ID == op.ID {
			item.Quantity = op.Quantity
		}
		if item.Quantity > 0 {
			next.Items = append(next.Items, item)
		}
	}
	return next, nil
}

func (op Clear) name() string { return "clear" }

func (op Clear) apply(State) (State, error) {
	return State{Items: []Item{}}, nil
}

func (op Load) name() string { return "load" }

// apply sanitises the snapshot: blank ids and non-positive quantities are dropped
// and repeated ids are merged into the first occurrence.
func (op Load) apply(State) (State, error) {
	next := State{Items: make([]Item, 0, len(op.Items))}
	index := make(map[string]int, len(op.Items))
	for _, item := range op.Items {
		item.ID = strings.TrimSpace(item.ID)
		if item.ID == "" || item.Quantity < 1 {
			continue
		}
		if at, ok := index[item.ID]; ok {
			next.Items[at].Quantity += item.Quantity
			continue
		}
		index[item.ID] = len(next.Items)
		next.Items = append(next.Items, item)
	}
	return next, nil
}

func (op VerifyItems) name() string { return "verify_items" }

func (op VerifyItems) apply(state State) (State, error) {
	valid := make(map[string]struct{}, len(op.ValidIDs))
	for _, id := range op.ValidIDs {
		valid[id] = struct{}{}
	}
	next := State{Items: make([]Item, 0, len(state.Items))}
	for _, item := range state.Items {
		if _, ok := valid[item.ID]; ok {
			next.Items = append(next.Items, item)
		}
	}
	return next, nil
}

type fieldError struct {
	field  string
	reason string
}

func (e *fieldError) Error() string {
	if e.field == "" {
		return ErrInvalidItem.Error() + ": " + e.reason
	}
	return ErrInvalidItem.Error() + ": " + e.field + " " + e.reason
}

func (e *fieldError) Unwrap() error { return ErrInvalidItem }

func errMissingField(field string) error {
	return &fieldError{field: field, reason: "is required"}
}

func errInvalidItem(reason string) error {
	return &fieldError{reason: reason}
}
