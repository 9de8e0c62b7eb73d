// Package stats exposes process-wide expvar counters for the Handler
// Runtime, the same way the teacher exposes a request counter: a package
// var plus an http.Handler dumping every registered expvar as JSON.
package stats

import (
	"expvar"
	"fmt"
	"net/http"
	"sync"
	"time"
)

var (
	executionsStarted   = expvar.NewInt("handler_executions_started")
	executionsSucceeded = expvar.NewInt("handler_executions_succeeded")
	executionsFailed    = expvar.NewInt("handler_executions_failed")
	executionsCancelled = expvar.NewInt("handler_executions_cancelled")
	filesChecked        = expvar.NewInt("files_checked")
	filesCheckFailed    = expvar.NewInt("files_check_failed")
	filesPublished      = expvar.NewInt("files_published")
	notificationsFailed = expvar.NewInt("notifications_failed")
)

// Stat is a named counter registered once and reused by every caller that
// asks for the same name, the way the teacher's package-level
// bytesUploadedCounter is shared across every artifacthandler request.
type Stat struct {
	v *expvar.Int
}

// TimingStat accumulates elapsed milliseconds under a named counter,
// mirroring the *_timer vars at the top of the teacher's
// database/gorp_database.go (one timer per DB method, `defer
// someTimer.AddTimeSince(time.Now())`).
type TimingStat struct {
	v *expvar.Int
}

var (
	statsMu sync.Mutex
	stats   = map[string]*Stat{}
	timers  = map[string]*TimingStat{}
)

// NewStat returns the counter registered under name, creating it on first
// use. Safe to call repeatedly with the same name from init-time package
// vars scattered across callers (expvar.NewInt would otherwise panic on a
// repeated name).
func NewStat(name string) *Stat {
	statsMu.Lock()
	defer statsMu.Unlock()
	if s, ok := stats[name]; ok {
		return s
	}
	s := &Stat{v: expvar.NewInt(name)}
	stats[name] = s
	return s
}

func (s *Stat) Add(delta int64) { s.v.Add(delta) }

// NewTimingStat returns the timing counter registered under name+"_ms",
// creating it on first use.
func NewTimingStat(name string) *TimingStat {
	statsMu.Lock()
	defer statsMu.Unlock()
	if t, ok := timers[name]; ok {
		return t
	}
	t := &TimingStat{v: expvar.NewInt(name + "_ms")}
	timers[name] = t
	return t
}

// AddTimeSince adds the milliseconds elapsed since start to the timer,
// the `defer someTimer.AddTimeSince(time.Now())` idiom used throughout the
// teacher's gorp_database.go.
func (t *TimingStat) AddTimeSince(start time.Time) {
	t.v.Add(time.Since(start).Milliseconds())
}

func ExecutionStarted() { executionsStarted.Add(1) }

func ExecutionSucceeded() { executionsSucceeded.Add(1) }

func ExecutionFailed() { executionsFailed.Add(1) }

func ExecutionCancelled() { executionsCancelled.Add(1) }

func FileChecked(passed bool) {
	filesChecked.Add(1)
	if !passed {
		filesCheckFailed.Add(1)
	}
}

func FilePublished() { filesPublished.Add(1) }

func NotificationFailed() { notificationsFailed.Add(1) }

// Handler displays a JSON object showing every registered expvar, copied
// from https://golang.org/src/expvar/expvar.go#L305 the way the teacher's
// stats.Handler does.
func Handler(res http.ResponseWriter, req *http.Request) {
	res.Header().Set("Content-Type", "application/json; charset=utf-8")
	fmt.Fprintf(res, "{\n")
	first := true
	expvar.Do(func(kv expvar.KeyValue) {
		if !first {
			fmt.Fprintf(res, ",\n")
		}
		first = false
		fmt.Fprintf(res, "%q: %s", kv.Key, kv.Value)
	})
	fmt.Fprintf(res, "\n}\n")
}
