package util

import (
	"io"
)

// CleanupTasks is a list of actions to undo on shutdown, or on failure partway through startup. Run
// executes them in reverse order of registration.
type CleanupTasks []func()

// AddCloser adds a task that closes c, ignoring any error.
func (t *CleanupTasks) AddCloser(c io.Closer) {
	*t = append(*t, func() { _ = c.Close() })
}

// AddFunc adds a task.
func (t *CleanupTasks) AddFunc(f func()) {
	*t = append(*t, f)
}

// Clear discards all tasks without running them; it is called once startup has succeeded and the
// tasks have been handed over to their owner.
func (t *CleanupTasks) Clear() {
	*t = nil
}

// Run executes and then discards all tasks.
func (t *CleanupTasks) Run() {
	tasks := *t
	*t = nil
	for i := len(tasks) - 1; i >= 0; i-- {
		tasks[i]()
	}
}
