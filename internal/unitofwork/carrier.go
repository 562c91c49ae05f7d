package unitofwork

import "context"

// Key names a slot in the Carrier.
type Key string

const (
	// HandleKey holds the active Handle of the request, if any.
	HandleKey Key = "unit_of_work"
	// AccessorKey holds the transactional write accessor published by the coordinator.
	AccessorKey Key = "unit_of_work_manager"
)

// Carrier is the per-request slot through which the active transaction is
// discovered. It is not safe for concurrent use; one carrier belongs to one
// request call tree.
type Carrier struct {
	values map[Key]any
}

type carrierKey struct{}

// NewCarrier returns an empty carrier.
func NewCarrier() *Carrier { return &Carrier{values: map[Key]any{}} }

// Get returns the value stored under k, or nil.
func (c *Carrier) Get(k Key) any {
	if c == nil {
		return nil
	}
	return c.values[k]
}

// Set stores v under k. A nil v clears the slot.
func (c *Carrier) Set(k Key, v any) {
	if v == nil {
		delete(c.values, k)
		return
	}
	c.values[k] = v
}

// Len reports how many slots are occupied.
func (c *Carrier) Len() int {
	if c == nil {
		return 0
	}
	return len(c.values)
}

// Drain clears every slot and returns the keys that were still occupied.
func (c *Carrier) Drain() []Key {
	if c == nil {
		return nil
	}
	var left []Key
	for k := range c.values {
		left = append(left, k)
	}
	clear(c.values)
	return left
}

// WithCarrier attaches a fresh carrier to ctx.
func WithCarrier(ctx context.Context) (context.Context, *Carrier) {
	c := NewCarrier()
	return context.WithValue(ctx, carrierKey{}, c), c
}

// FromContext returns the carrier attached to ctx, or nil.
func FromContext(ctx context.Context) *Carrier {
	c, _ := ctx.Value(carrierKey{}).(*Carrier)
	return c
}

// Run executes fn within a fresh carrier scope. The scope is drained when fn
// returns, whatever the outcome.
func Run(ctx context.Context, fn func(ctx context.Context) error) error {
	scoped, c := WithCarrier(ctx)
	defer c.Drain()
	return fn(scoped)
}

// Accessor resolves the write accessor for ctx: the published accessor first,
// then the accessor of the active handle. It returns nil outside a unit of work.
func Accessor(ctx context.Context) any {
	c := FromContext(ctx)
	if c == nil {
		return nil
	}
	if a := c.Get(AccessorKey); a != nil {
		return a
	}
	if h, ok := c.Get(HandleKey).(Handle); ok && !h.IsReleased() {
		return h.Accessor()
	}
	return nil
}

// ActiveHandle returns the handle stored in ctx's carrier, if any.
func ActiveHandle(ctx context.Context) (Handle, bool) {
	h, ok := FromContext(ctx).Get(HandleKey).(Handle)
	return h, ok
}
