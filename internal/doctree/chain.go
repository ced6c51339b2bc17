package doctree

// Chain is an ordered ancestor sequence, outermost first and nearest last.
// A Chain is never modified in place: Append and Prepend return new chains.
type Chain []Ancestor

// Append returns a new chain with a appended. If a's id is already present
// the receiver is returned unchanged.
func (c Chain) Append(a Ancestor) Chain {
	if a.ID == "" || c.Contains(a.ID) {
		return c
	}
	out := make(Chain, len(c), len(c)+1)
	copy(out, c)
	return append(out, a)
}

// Prepend returns a new chain with a as its outermost element.
func (c Chain) Prepend(a Ancestor) Chain {
	if a.ID == "" || c.Contains(a.ID) {
		return c
	}
	out := make(Chain, 0, len(c)+1)
	out = append(out, a)
	return append(out, c...)
}

// Contains reports whether id is in the chain, comparing normalized ids.
func (c Chain) Contains(id string) bool {
	n := NormalizeID(id)
	for _, a := range c {
		if NormalizeID(a.ID) == n {
			return true
		}
	}
	return false
}

// PageIDs returns the ids of the page-type ancestors in chain order.
func (c Chain) PageIDs() []string {
	ids := make([]string, 0, len(c))
	for _, a := range c {
		if a.Type.IsPage() {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// NonPageDepth counts the ancestors that are structural containers rather than pages.
func (c Chain) NonPageDepth() int {
	n := 0
	for _, a := range c {
		if !a.Type.IsPage() {
			n++
		}
	}
	return n
}

// ListDepth counts the container ancestors below the nearest page-type
// ancestor. Containers above that page do not nest its content.
func (c Chain) ListDepth() int {
	n := 0
	for i := len(c) - 1; i >= 0; i-- {
		if c[i].Type.IsPage() {
			break
		}
		n++
	}
	return n
}

// Last returns the nearest ancestor.
func (c Chain) Last() (Ancestor, bool) {
	if len(c) == 0 {
		return Ancestor{}, false
	}
	return c[len(c)-1], true
}
