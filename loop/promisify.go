package loop

// Promisify runs fn on a new goroutine and returns a [ChainedPromise] bound
// to l that settles with fn's result once fn returns. It is the bridge
// between the loop and blocking, goroutine-based work (disk I/O, cgo,
// anything that cannot itself be expressed as a non-blocking loop task).
//
// A panic in fn is recovered and turned into a rejection carrying a
// [PanicError]. A call to runtime.Goexit (e.g. via testing.T.FailNow from
// inside fn, which callers should avoid but which is not otherwise
// detectable) is reported as a rejection carrying [ErrGoexit].
func (l *Loop) Promisify(fn func() (any, error)) *ChainedPromise {
	p, resolve, reject := l.NewPromise()

	l.promisifyWg.Add(1)
	l.inflight.Add(1)

	normalReturn := false
	go func() {
		defer l.inflight.Add(-1)
		defer l.promisifyWg.Done()
		defer func() {
			if !normalReturn {
				if r := recover(); r != nil {
					reject(PanicError{Value: r})
					normalReturn = true
					return
				}
				reject(ErrGoexit)
			}
		}()

		value, err := fn()
		normalReturn = true
		if err != nil {
			reject(err)
			return
		}
		resolve(value)
	}()

	return p
}

// PromisifyCallback adapts a Node-style "last argument is a (err, value)
// callback" function into a promise: runner is invoked with a callback it
// must call exactly once. Calling it more than once after the first is a
// no-op, matching promise settlement semantics.
func (l *Loop) PromisifyCallback(runner func(callback func(err error, value any))) *ChainedPromise {
	p, resolve, reject := l.NewPromise()

	l.inflight.Add(1)
	go func() {
		defer l.inflight.Add(-1)
		defer func() {
			if r := recover(); r != nil {
				reject(PanicError{Value: r})
			}
		}()
		runner(func(err error, value any) {
			if err != nil {
				reject(err)
				return
			}
			resolve(value)
		})
	}()

	return p
}
