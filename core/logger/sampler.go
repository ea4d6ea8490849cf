package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// ratio is a packed numerator/denominator pair; zero disables sampling.
type ratio struct {
	num, den uint64
}

// ratioSampler lets num out of every den debug records through.
type ratioSampler struct {
	cfg  atomic.Pointer[ratio]
	seen atomic.Uint64
}

func newRatioSampler(num, den int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(num, den)
	return s
}

// Set replaces the ratio and restarts the window. Non-positive values disable sampling;
// a numerator above the denominator is clamped.
func (s *ratioSampler) Set(num, den int) {
	s.seen.Store(0)
	if num <= 0 || den <= 0 {
		s.cfg.Store(nil)
		return
	}
	s.cfg.Store(&ratio{num: uint64(min(num, den)), den: uint64(den)})
}

// Allow reports whether the next record passes.
func (s *ratioSampler) Allow() bool {
	r := s.cfg.Load()
	if r == nil {
		return true
	}
	pos := (s.seen.Add(1) - 1) % r.den
	return pos < r.num
}

// parseRatio accepts "n/d" or a bare "d" meaning 1/d. Anything else disables sampling.
func parseRatio(s string) (int, int) {
	s = strings.TrimSpace(s)
	if n, d, ok := strings.Cut(s, "/"); ok {
		num, err1 := strconv.Atoi(strings.TrimSpace(n))
		den, err2 := strconv.Atoi(strings.TrimSpace(d))
		if err1 == nil && err2 == nil {
			return num, den
		}
		return 0, 0
	}
	den, err := strconv.Atoi(s)
	if err != nil || den <= 0 {
		return 0, 0
	}
	return 1, den
}
