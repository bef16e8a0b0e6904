package loop

import "sync"

// SettledResult is one entry of the slice an [Loop.AllSettled] promise
// resolves with: exactly one of Value/Err is meaningful, selected by State.
type SettledResult struct {
	State PromiseState
	Value any
	Err   error
}

// All returns a promise that fulfills with a []any of every input's value,
// in input order, once all fulfill, or rejects with the first rejection
// observed (the rest are left to settle but otherwise ignored), mirroring
// Promise.all.
func (l *Loop) All(promises ...*ChainedPromise) *ChainedPromise {
	next, resolve, reject := l.NewPromise()
	if len(promises) == 0 {
		resolve([]any{})
		return next
	}

	var mu sync.Mutex
	results := make([]any, len(promises))
	remaining := len(promises)
	done := false

	for i, p := range promises {
		i := i
		p.Then(
			func(v any) (any, error) {
				mu.Lock()
				defer mu.Unlock()
				if done {
					return nil, nil
				}
				results[i] = v
				remaining--
				if remaining == 0 {
					done = true
					resolve(results)
				}
				return nil, nil
			},
			func(err error) (any, error) {
				mu.Lock()
				defer mu.Unlock()
				if !done {
					done = true
					reject(err)
				}
				return nil, nil
			},
		)
	}
	return next
}

// Race returns a promise that settles the same way as whichever input
// settles first, mirroring Promise.race.
func (l *Loop) Race(promises ...*ChainedPromise) *ChainedPromise {
	next, resolve, reject := l.NewPromise()

	var mu sync.Mutex
	done := false

	for _, p := range promises {
		p.Then(
			func(v any) (any, error) {
				mu.Lock()
				defer mu.Unlock()
				if !done {
					done = true
					resolve(v)
				}
				return nil, nil
			},
			func(err error) (any, error) {
				mu.Lock()
				defer mu.Unlock()
				if !done {
					done = true
					reject(err)
				}
				return nil, nil
			},
		)
	}
	return next
}

// AllSettled returns a promise that fulfills once every input has settled,
// with a []SettledResult recording each outcome, mirroring Promise.allSettled.
func (l *Loop) AllSettled(promises ...*ChainedPromise) *ChainedPromise {
	next, resolve, _ := l.NewPromise()
	if len(promises) == 0 {
		resolve([]SettledResult{})
		return next
	}

	var mu sync.Mutex
	results := make([]SettledResult, len(promises))
	remaining := len(promises)

	for i, p := range promises {
		i := i
		p.Then(
			func(v any) (any, error) {
				mu.Lock()
				defer mu.Unlock()
				results[i] = SettledResult{State: Fulfilled, Value: v}
				remaining--
				if remaining == 0 {
					resolve(results)
				}
				return nil, nil
			},
			func(err error) (any, error) {
				mu.Lock()
				defer mu.Unlock()
				results[i] = SettledResult{State: Rejected, Err: err}
				remaining--
				if remaining == 0 {
					resolve(results)
				}
				return nil, nil
			},
		)
	}
	return next
}

// Any returns a promise that fulfills with the first input to fulfill, or
// rejects with an [AggregateError] if every input rejects, mirroring
// Promise.any.
func (l *Loop) Any(promises ...*ChainedPromise) *ChainedPromise {
	next, resolve, reject := l.NewPromise()
	if len(promises) == 0 {
		reject(&AggregateError{})
		return next
	}

	var mu sync.Mutex
	errs := make([]error, len(promises))
	remaining := len(promises)
	done := false

	for i, p := range promises {
		i := i
		p.Then(
			func(v any) (any, error) {
				mu.Lock()
				defer mu.Unlock()
				if !done {
					done = true
					resolve(v)
				}
				return nil, nil
			},
			func(err error) (any, error) {
				mu.Lock()
				defer mu.Unlock()
				errs[i] = err
				remaining--
				if remaining == 0 && !done {
					done = true
					reject(&AggregateError{Errors: errs})
				}
				return nil, nil
			},
		)
	}
	return next
}
