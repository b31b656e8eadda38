package cache

import "sync"

// Statistics holds the monotonic, thread-safe counters exposed by stats().
type Statistics struct {
	mu sync.Mutex

	gets       uint64
	puts       uint64
	hits       uint64
	misses     uint64
	nearMisses uint64
	failures   uint64
	duplicates uint64
}

// Snapshot is a point-in-time, plain copy of the counters suitable for JSON
// encoding over RPC.
type Snapshot struct {
	Gets       uint64 `json:"gets"`
	Puts       uint64 `json:"puts"`
	Hits       uint64 `json:"hits"`
	Misses     uint64 `json:"misses"`
	NearMisses uint64 `json:"near_misses"`
	Failures   uint64 `json:"failures"`
	Duplicates uint64 `json:"duplicates"`
}

func (s *Statistics) incGet()       { s.mu.Lock(); s.gets++; s.mu.Unlock() }
func (s *Statistics) incPut()       { s.mu.Lock(); s.puts++; s.mu.Unlock() }
func (s *Statistics) incHit()       { s.mu.Lock(); s.hits++; s.mu.Unlock() }
func (s *Statistics) incMiss()      { s.mu.Lock(); s.misses++; s.mu.Unlock() }
func (s *Statistics) incNearMiss()  { s.mu.Lock(); s.nearMisses++; s.mu.Unlock() }
func (s *Statistics) incFailure()   { s.mu.Lock(); s.failures++; s.mu.Unlock() }
func (s *Statistics) incDuplicate() { s.mu.Lock(); s.duplicates++; s.mu.Unlock() }

// Snapshot returns a copy of the current counter values.
func (s *Statistics) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Gets:       s.gets,
		Puts:       s.puts,
		Hits:       s.hits,
		Misses:     s.misses,
		NearMisses: s.nearMisses,
		Failures:   s.failures,
		Duplicates: s.duplicates,
	}
}
