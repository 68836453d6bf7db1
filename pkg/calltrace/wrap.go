// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package calltrace

// SuspendFunc is the shape of a suspending function: its regular arguments
// and the continuation that receives the outcome if it returns Suspended.
type SuspendFunc func(args []any, k Continuation) (any, error)

// The Wrap helpers route calls through Interceptor.Attach. A nil
// interceptor means DefaultInterceptor(). The FuncID is derived from the
// wrapped func value once, at wrap time.

// Wrap instruments a function without arguments.
func Wrap[T any](i *Interceptor, f func() (T, error)) func() (T, error) {
	i = orDefault(i)
	id := FuncIDOf(f)
	return func() (T, error) {
		v, err := i.Attach(Call{
			Func:   id,
			Kind:   CallSync,
			Invoke: func([]any) (any, error) { return f() },
		})
		return as[T](v), err
	}
}

// Wrap1 instruments a function with one argument.
func Wrap1[A, T any](i *Interceptor, f func(A) (T, error)) func(A) (T, error) {
	i = orDefault(i)
	id := FuncIDOf(f)
	return func(a A) (T, error) {
		v, err := i.Attach(Call{
			Func:   id,
			Kind:   CallSync,
			Args:   []any{a},
			Invoke: func([]any) (any, error) { return f(a) },
		})
		return as[T](v), err
	}
}

// Wrap2 instruments a function with two arguments.
func Wrap2[A, B, T any](i *Interceptor, f func(A, B) (T, error)) func(A, B) (T, error) {
	i = orDefault(i)
	id := FuncIDOf(f)
	return func(a A, b B) (T, error) {
		v, err := i.Attach(Call{
			Func:   id,
			Kind:   CallSync,
			Args:   []any{a, b},
			Invoke: func([]any) (any, error) { return f(a, b) },
		})
		return as[T](v), err
	}
}

// WrapSuspend instruments a suspending function.
func WrapSuspend(i *Interceptor, f SuspendFunc) SuspendFunc {
	return WrapSuspendAs(i, FuncIDOf(f), f)
}

// WrapSuspendAs instruments a suspending function under an explicit id.
func WrapSuspendAs(i *Interceptor, id FuncID, f SuspendFunc) SuspendFunc {
	i = orDefault(i)
	return func(args []any, k Continuation) (any, error) {
		full := make([]any, 0, len(args)+1)
		full = append(full, args...)
		full = append(full, k)

		return i.Attach(Call{
			Func: id,
			Kind: CallSuspending,
			Args: full,
			Invoke: func(a []any) (any, error) {
				last, _ := a[len(a)-1].(Continuation)
				return f(a[:len(a)-1], last)
			},
		})
	}
}

func orDefault(i *Interceptor) *Interceptor {
	if i == nil {
		return defaultInterceptor
	}
	return i
}

func as[T any](v any) T {
	t, _ := v.(T)
	return t
}
