package scan

import (
	"sync/atomic"

	"rommate/internal/verify"
)

// Observer receives scan events. Calls are never concurrent and arrive in
// discovery order.
type Observer interface {
	OnProgress(current, total int, filename string)
	OnLog(message string)
	OnResult(index int, result verify.Result)
}

// ObserverFuncs adapts optional callbacks to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Progress func(current, total int, filename string)
	Log      func(message string)
	Result   func(index int, result verify.Result)
}

func (o ObserverFuncs) OnProgress(current, total int, filename string) {
	if o.Progress != nil {
		o.Progress(current, total, filename)
	}
}

func (o ObserverFuncs) OnLog(message string) {
	if o.Log != nil {
		o.Log(message)
	}
}

func (o ObserverFuncs) OnResult(index int, result verify.Result) {
	if o.Result != nil {
		o.Result(index, result)
	}
}

// CancelToken requests a cooperative stop. The zero value is ready to use.
type CancelToken struct {
	canceled atomic.Bool
}

// NewCancelToken returns a fresh token.
func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

// Cancel requests the scan to stop before its next file.
func (t *CancelToken) Cancel() {
	if t != nil {
		t.canceled.Store(true)
	}
}

// Canceled reports whether Cancel has been called. A nil token is never canceled.
func (t *CancelToken) Canceled() bool {
	return t != nil && t.canceled.Load()
}
