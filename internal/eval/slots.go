package eval

import (
	"fmt"

	"github.com/funvibe/expreval/internal/attribute"
	"github.com/funvibe/expreval/internal/values"
)

type slot struct {
	value values.Value
	trail attribute.Trail
	set   bool
}

// SlotTable stores iteration variables, accumulators and memoized
// bindings. A table lives for exactly one evaluation.
type SlotTable struct {
	slots []slot
}

func NewSlotTable(size int) *SlotTable {
	return &SlotTable{slots: make([]slot, size)}
}

func (t *SlotTable) Len() int { return len(t.slots) }

func (t *SlotTable) check(i int) error {
	if i < 0 || i >= len(t.slots) {
		return fmt.Errorf("slot %d of %d: %w", i, len(t.slots), ErrInvalidSlot)
	}
	return nil
}

// Get returns the slot contents; ok is false while the slot is unset.
func (t *SlotTable) Get(i int) (v values.Value, trail attribute.Trail, ok bool, err error) {
	if err := t.check(i); err != nil {
		return nil, attribute.Trail{}, false, err
	}
	s := t.slots[i]
	return s.value, s.trail, s.set, nil
}

func (t *SlotTable) Set(i int, v values.Value, trail attribute.Trail) error {
	if err := t.check(i); err != nil {
		return err
	}
	t.slots[i] = slot{value: v, trail: trail, set: true}
	return nil
}

func (t *SlotTable) Clear(i int) error {
	if err := t.check(i); err != nil {
		return err
	}
	t.slots[i] = slot{}
	return nil
}
