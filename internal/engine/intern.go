package engine

import "sync"

// Interner deduplicates identifier spellings within one unit.
type Interner struct {
	mu    sync.Mutex
	m     map[string]string
	bytes uint64
}

func NewInterner() *Interner {
	return &Interner{m: make(map[string]string)}
}

// Intern returns the canonical copy of s.
func (in *Interner) Intern(s string) string {
	if s == "" {
		return ""
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if v, ok := in.m[s]; ok {
		return v
	}
	in.m[s] = s
	in.bytes += uint64(len(s))
	return s
}

// Len is the number of distinct strings.
func (in *Interner) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.m)
}

// Bytes is the total size of the distinct strings plus per-entry
// overhead.
func (in *Interner) Bytes() uint64 {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.bytes + uint64(len(in.m))*16
}
