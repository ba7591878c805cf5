package internal

// wordSize is the size in bytes of every value and every stack slot.
const wordSize = 8

// IdentTable assigns stack slots to identifiers in the order the code generator first meets them. Slot i lives
// wordSize*(i+1) bytes below the frame base. A table is owned by one compile and never shared.
type IdentTable struct {
	slots map[string]int
	names []string
	// capacity bounds the number of slots; 0 sizes the frame to whatever the program needs.
	capacity int
}

func NewIdentTable(capacity int) *IdentTable {
	return &IdentTable{slots: map[string]int{}, capacity: capacity}
}

// Lookup returns the slot of name, assigning the next free one on first sight.
func (table *IdentTable) Lookup(name string) (int, error) {
	if slot, ok := table.slots[name]; ok {
		return slot, nil
	}
	if table.capacity > 0 && len(table.names) >= table.capacity {
		return 0, &ResourceExhaustedError{Name: name, Capacity: table.capacity}
	}
	slot := len(table.names)
	table.slots[name] = slot
	table.names = append(table.names, name)
	Trace("symbol table: assign slot", "name", name, "slot", slot)
	return slot, nil
}

// Offset returns the distance in bytes between the frame base and the slot of name.
func (table *IdentTable) Offset(name string) (int, error) {
	slot, err := table.Lookup(name)
	if err != nil {
		return 0, err
	}
	return wordSize * (slot + 1), nil
}

func (table *IdentTable) Len() int {
	return len(table.names)
}

// Names returns the identifiers in slot order.
func (table *IdentTable) Names() []string {
	names := make([]string, len(table.names))
	copy(names, table.names)
	return names
}

// FrameSize is the number of bytes the prologue reserves, kept 16 byte aligned.
func (table *IdentTable) FrameSize() int {
	slots := len(table.names)
	if table.capacity > 0 {
		slots = table.capacity
	}
	return alignTo(slots*wordSize, 16)
}

func alignTo(n, align int) int {
	return (n + align - 1) / align * align
}
