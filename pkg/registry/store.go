package registry

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Store keeps track of registered daemon instances, indexed by the host
// name they advertised. Records carry an optional TTL; an instance whose
// record has expired is reported as not alive. Reads are safe for
// concurrent use; dispatches share a single Store.
type Store struct {
	mu     sync.RWMutex
	byHost map[string][]*record
	nowFn  func() time.Time
	log    *zap.Logger
}

type record struct {
	inst     Instance
	expireAt time.Time // zero = no expiry
}

func NewStore(log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{byHost: make(map[string][]*record), nowFn: time.Now, log: log}
}

// Register adds or replaces an instance record under its advertised
// hostname. A ttl of zero registers the instance without expiry.
func (s *Store) Register(inst Instance, ttl time.Duration) {
	name := strings.TrimSpace(inst.Hostname)
	if name == "" {
		return
	}
	var exp time.Time
	if ttl > 0 {
		exp = s.nowFn().Add(ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.byHost[name]
	for _, r := range recs {
		if sameEndpoint(r.inst, inst) {
			r.inst = inst
			r.expireAt = exp
			s.log.Debug("instance refreshed", zap.String("hostname", name), zap.String("host", inst.Host))
			return
		}
	}
	s.byHost[name] = append(recs, &record{inst: inst, expireAt: exp})
	s.log.Info("instance registered",
		zap.String("hostname", name),
		zap.String("host", inst.Host),
		zap.Int("execution_port", inst.ExecutionPort),
		zap.Int("result_port", inst.ResultPort))
}

// Touch extends the TTL of an existing record. Returns false when the
// instance is unknown.
func (s *Store) Touch(inst Instance, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.byHost[strings.TrimSpace(inst.Hostname)] {
		if sameEndpoint(r.inst, inst) {
			if ttl > 0 {
				r.expireAt = s.nowFn().Add(ttl)
			} else {
				r.expireAt = time.Time{}
			}
			return true
		}
	}
	return false
}

// Deregister removes one instance record.
func (s *Store) Deregister(inst Instance) {
	name := strings.TrimSpace(inst.Hostname)
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.byHost[name]
	out := recs[:0]
	for _, r := range recs {
		if !sameEndpoint(r.inst, inst) {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		delete(s.byHost, name)
	} else {
		s.byHost[name] = out
	}
	s.log.Info("instance deregistered", zap.String("hostname", name), zap.String("host", inst.Host))
}

// GetByHost returns snapshots of all instances registered under name, in
// registration order. Expired records are reported with Alive=false.
func (s *Store) GetByHost(name string) []Instance {
	now := s.nowFn()
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := s.byHost[strings.TrimSpace(name)]
	if len(recs) == 0 {
		return nil
	}
	out := make([]Instance, 0, len(recs))
	for _, r := range recs {
		inst := r.inst
		if !r.expireAt.IsZero() && now.After(r.expireAt) {
			inst.Alive = false
		}
		out = append(out, inst)
	}
	return out
}

// Hosts returns all advertised hostnames currently known.
func (s *Store) Hosts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.byHost))
	for name := range s.byHost {
		out = append(out, name)
	}
	return out
}

func sameEndpoint(a, b Instance) bool {
	return a.Host == b.Host && a.ExecutionPort == b.ExecutionPort
}
