package dice

import (
	"crypto/rand"
	"math/big"
	"sync"
)

// cryptoSource implements Source using crypto/rand.
type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand.
//
// Postcondition: Every value returned by Intn is in [0, n).
func NewCryptoSource() Source {
	return &cryptoSource{}
}

// Intn returns a cryptographically secure random int in [0, n).
//
// Precondition: n > 0. Panics with "dice: Intn called with n <= 0" if n <= 0.
func (c *cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}

// ScriptedSource replays a fixed list of die faces. It is used by tests and by
// callers that already hold the physical roll a player reported.
//
// Each call to Intn(n) consumes the next face f and returns f-1, clamped into
// [0, n). Once the script is exhausted every call returns 0 (a face of 1).
type ScriptedSource struct {
	mu    sync.Mutex
	faces []int
	next  int
}

// NewScriptedSource creates a ScriptedSource that yields faces in order.
func NewScriptedSource(faces ...int) *ScriptedSource {
	cp := make([]int, len(faces))
	copy(cp, faces)
	return &ScriptedSource{faces: cp}
}

// Intn returns the next scripted face minus one, clamped into [0, n).
//
// Precondition: n > 0.
func (s *ScriptedSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.faces) {
		return 0
	}
	v := s.faces[s.next] - 1
	s.next++
	switch {
	case v < 0:
		return 0
	case v >= n:
		return n - 1
	}
	return v
}

// Remaining reports how many scripted faces have not been consumed.
func (s *ScriptedSource) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.faces) - s.next
}
