// Package spatial implements the uniform-grid spatial hash the interaction
// core hit-tests and culls against, plus the registry that maps string node
// ids to the dense integer handles the grid stores.
package spatial

// Handle is the stable integer identifier the index uses in place of string
// node ids. Handles are allocated monotonically and never reused while the
// document is open, so a stale handle can never alias a live node.
type Handle uint32

// Registry is the bidirectional id↔handle mapping. It is the only place that
// knows the string side; the grid itself operates purely on handles.
type Registry struct {
	byID map[string]Handle
	ids  []string // indexed by handle
	next Handle
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Handle)}
}

// Acquire returns the handle for id, allocating a fresh one on first sight.
func (r *Registry) Acquire(id string) Handle {
	if h, ok := r.byID[id]; ok {
		return h
	}
	h := r.next
	r.next++
	r.byID[id] = h
	r.ids = append(r.ids, id)
	return h
}

// Lookup returns the handle for id without allocating.
func (r *Registry) Lookup(id string) (Handle, bool) {
	h, ok := r.byID[id]
	return h, ok
}

// IDOf resolves a handle back to its node id.
func (r *Registry) IDOf(h Handle) (string, bool) {
	if int(h) >= len(r.ids) || r.ids[h] == "" {
		return "", false
	}
	return r.ids[h], true
}

// Remove forgets the id→handle mapping. The handle number itself is retired,
// never reallocated.
func (r *Registry) Remove(id string) {
	h, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	r.ids[h] = ""
}

// Len is the number of live mappings.
func (r *Registry) Len() int { return len(r.byID) }

// Cap is the high-water handle count, live or retired.
func (r *Registry) Cap() int { return int(r.next) }

// Clear drops all mappings and resets the allocator. Only valid on a full
// document reload, never mid-session.
func (r *Registry) Clear() {
	r.byID = make(map[string]Handle)
	r.ids = r.ids[:0]
	r.next = 0
}
