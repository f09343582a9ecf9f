package crawler

// Frontier is the breadth-first queue of URLs waiting to be fetched plus
// the set of URLs already visited. URLs must be normalized before they are
// offered; the Frontier compares them as plain strings.
type Frontier struct {
	queue   []string
	queued  map[string]struct{}
	visited map[string]struct{}
}

// NewFrontier creates a Frontier with the given URLs queued in order.
func NewFrontier(seeds ...string) *Frontier {
	f := &Frontier{
		queued:  make(map[string]struct{}),
		visited: make(map[string]struct{}),
	}
	for _, s := range seeds {
		f.Enqueue(s)
	}
	return f
}

// Enqueue appends u to the tail of the queue. It is a no-op when u was
// already visited or is still pending. It reports whether u was added.
func (f *Frontier) Enqueue(u string) bool {
	if _, ok := f.visited[u]; ok {
		return false
	}
	if _, ok := f.queued[u]; ok {
		return false
	}
	f.queue = append(f.queue, u)
	f.queued[u] = struct{}{}
	return true
}

// Pop removes and returns the head of the queue. It reports false when the
// queue is empty.
func (f *Frontier) Pop() (string, bool) {
	if len(f.queue) == 0 {
		return "", false
	}
	u := f.queue[0]
	f.queue[0] = ""
	f.queue = f.queue[1:]
	delete(f.queued, u)
	return u, true
}

// MarkVisited records u as visited. Calling it again has no effect.
func (f *Frontier) MarkVisited(u string) {
	f.visited[u] = struct{}{}
}

// Visited reports whether u was marked visited.
func (f *Frontier) Visited(u string) bool {
	_, ok := f.visited[u]
	return ok
}

// Len returns the number of pending URLs.
func (f *Frontier) Len() int {
	return len(f.queue)
}

// VisitedCount returns the number of visited URLs.
func (f *Frontier) VisitedCount() int {
	return len(f.visited)
}

// HasCapacity reports whether another page fits in the budget.
func (f *Frontier) HasCapacity(count, budget int) bool {
	return count < budget
}
