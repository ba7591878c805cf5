package internal

import "fmt"

// Labels are the branch targets of one control flow construct. A construct may leave some of them unused.
type Labels struct {
	Begin string
	Else  string
	End   string
}

// LabelAllocator hands out one number per if, while and for. Numbers are never reused within a compile.
type LabelAllocator struct {
	prefix string
	next   int
}

func NewLabelAllocator(prefix string) *LabelAllocator {
	return &LabelAllocator{prefix: prefix}
}

func (allocator *LabelAllocator) Next() Labels {
	id := allocator.next
	allocator.next++
	Trace("label allocator: next", "id", id)
	return Labels{
		Begin: fmt.Sprintf("%sbegin%d", allocator.prefix, id),
		Else:  fmt.Sprintf("%selse%d", allocator.prefix, id),
		End:   fmt.Sprintf("%send%d", allocator.prefix, id),
	}
}

// Count is the number of constructs labeled so far.
func (allocator *LabelAllocator) Count() int {
	return allocator.next
}
