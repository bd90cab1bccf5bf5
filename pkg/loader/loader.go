package loader

// Result is the outcome of a single load. Err is nil on success.
type Result[T any] struct {
	Value T
	Err   error
}

func Success[T any](value T) Result[T] {
	return Result[T]{Value: value}
}

func Failure[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

// Loader issues a single-shot, cancellable load. The completion is called at
// most once, and never after the returned task has been cancelled.
type Loader[T any] interface {
	Load(completion func(Result[T])) Task
}

type LoaderFunc[T any] func(completion func(Result[T])) Task

func (f LoaderFunc[T]) Load(completion func(Result[T])) Task {
	return f(completion)
}

// Sink receives successful values from a Caching loader.
type Sink[T any] func(value T, completion func(error)) Task

// Caching forwards every successful value produced by l to sink. The sink
// outcome is discarded and the caller does not wait for it.
func Caching[T any](l Loader[T], sink Sink[T]) Loader[T] {
	return LoaderFunc[T](func(completion func(Result[T])) Task {
		return l.Load(func(result Result[T]) {
			if result.Err == nil {
				_ = sink(result.Value, func(error) {})
			}
			completion(result)
		})
	})
}

// Fallback loads from primary and, only if that fails, from secondary. The
// secondary result is delivered as is.
func Fallback[T any](primary, secondary Loader[T]) Loader[T] {
	return LoaderFunc[T](func(completion func(Result[T])) Task {
		guard := NewGuard(completion)
		chain := NewChainTask(guard)

		chain.Run(func() Task {
			return primary.Load(func(result Result[T]) {
				if result.Err == nil {
					guard.Complete(result)
					return
				}

				chain.Run(func() Task {
					return secondary.Load(guard.Complete)
				})
			})
		})

		return chain
	})
}
