package broker

// historyRing is a fixed-capacity circular buffer of history entries. Oldest
// entries are evicted first. Not safe for concurrent use; the owning topic
// guards it with its lock.
type historyRing struct {
	entries []HistoryEntry
	start   int
	count   int
}

func newHistoryRing(capacity int) *historyRing {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &historyRing{entries: make([]HistoryEntry, capacity)}
}

func (r *historyRing) append(e HistoryEntry) {
	if r.count < len(r.entries) {
		r.entries[(r.start+r.count)%len(r.entries)] = e
		r.count++
		return
	}
	// Full: overwrite the oldest slot.
	r.entries[r.start] = e
	r.start = (r.start + 1) % len(r.entries)
}

func (r *historyRing) len() int {
	return r.count
}

// lastN copies the most recent min(n, len) entries, oldest first.
// n <= 0 yields an empty slice.
func (r *historyRing) lastN(n int) []HistoryEntry {
	if n <= 0 {
		return []HistoryEntry{}
	}
	if n > r.count {
		n = r.count
	}
	out := make([]HistoryEntry, 0, n)
	for i := r.count - n; i < r.count; i++ {
		out = append(out, r.entries[(r.start+i)%len(r.entries)])
	}
	return out
}
