package util

import "sync"

// StringMemoizer computes a string at most once, on first use. Event feed payloads use it so that an
// event sent to many subscribers is serialized only once.
type StringMemoizer struct {
	once      sync.Once
	computeFn func() string
	result    string
}

// NewStringMemoizer creates a StringMemoizer.
func NewStringMemoizer(computeFn func() string) *StringMemoizer {
	return &StringMemoizer{computeFn: computeFn}
}

// Get returns the result of computeFn, calling it only the first time.
func (m *StringMemoizer) Get() string {
	m.once.Do(func() {
		m.result = m.computeFn()
	})
	return m.result
}
