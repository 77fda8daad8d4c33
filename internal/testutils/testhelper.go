package testutils

import (
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
)

// TestHelper bundles a test with a logger that writes through t.Log.
type TestHelper struct {
	T      testing.TB
	Logger *logrus.Logger
}

// NewTestHelper creates a helper whose logger prints debug output only when the test
// fails or runs with -v. Lines logged by goroutines outliving the test are dropped.
func NewTestHelper(t testing.TB) *TestHelper {
	w := &testWriter{t: t}
	t.Cleanup(w.close)

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel) // enable debug logs to track execution flow
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return &TestHelper{T: t, Logger: logger}
}

type testWriter struct {
	mu   sync.Mutex
	t    testing.TB
	done bool
}

func (w *testWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.done {
		w.t.Log(strings.TrimRight(string(p), "\n"))
	}
	return len(p), nil
}

func (w *testWriter) close() {
	w.mu.Lock()
	w.done = true
	w.mu.Unlock()
}
