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

package demo

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/tombee/calltrace/pkg/calltrace"
	cterrors "github.com/tombee/calltrace/pkg/errors"
)

type order struct {
	Item     string
	Quantity string
}

func (o order) String() string {
	return fmt.Sprintf("order{%s x%s}", o.Item, o.Quantity)
}

// shop prices orders. Every exported step goes through the interceptor so
// one worker run produces sync, suspending and nested calls.
type shop struct {
	delay time.Duration

	mu     sync.Mutex
	prices map[string]int

	parse    func(string) (int, error)
	lookup   calltrace.SuspendFunc
	checkout func(context.Context, order) (int, error)
}

func newShop(ic *calltrace.Interceptor, delay time.Duration) *shop {
	s := &shop{
		delay:  delay,
		prices: make(map[string]int),
	}
	s.parse = calltrace.Wrap1(ic, parseQuantity)
	s.lookup = calltrace.WrapSuspend(ic, s.lookupPrice)
	s.checkout = calltrace.Wrap2(ic, s.checkoutOrder)
	return s
}

func parseQuantity(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q", s)
	}
	if n <= 0 {
		return 0, fmt.Errorf("quantity must be positive, got %d", n)
	}
	return n, nil
}

func basePrice(item string) int {
	return 100 * len(item)
}

// lookupPrice completes immediately for cached items. Otherwise it suspends
// and resumes k from a new goroutine after the shop's delay.
func (s *shop) lookupPrice(args []any, k calltrace.Continuation) (any, error) {
	item, _ := args[0].(string)

	s.mu.Lock()
	price, ok := s.prices[item]
	s.mu.Unlock()
	if ok {
		return price, nil
	}

	go func() {
		ctx := k.Context()
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			k.Resume(calltrace.Failure(ctx.Err()))
			return
		}

		price := basePrice(item)
		s.mu.Lock()
		s.prices[item] = price
		s.mu.Unlock()
		k.Resume(calltrace.Success(price))
	}()

	return calltrace.Suspended, nil
}

func (s *shop) checkoutOrder(ctx context.Context, o order) (int, error) {
	qty, err := s.parse(o.Quantity)
	if err != nil {
		return 0, cterrors.Wrapf(err, "checkout %s", o.Item)
	}

	v, err := calltrace.Await(ctx, s.lookup, o.Item)
	if err != nil {
		return 0, cterrors.Wrapf(err, "checkout %s", o.Item)
	}
	price, _ := v.(int)
	return qty * price, nil
}

// work runs one worker's share of the workload. Expected failures are part
// of the trace; only wrong results are returned as errors.
func (s *shop) work(ctx context.Context, worker int) error {
	item := fmt.Sprintf("item-%d", worker)

	if _, err := s.parse("x"); err == nil {
		return fmt.Errorf("worker %d: parsing %q should fail", worker, "x")
	}

	total, err := s.checkout(ctx, order{Item: item, Quantity: "3"})
	if err != nil {
		return fmt.Errorf("worker %d: %w", worker, err)
	}
	if want := 3 * basePrice(item); total != want {
		return fmt.Errorf("worker %d: total %d, want %d", worker, total, want)
	}

	v, err := calltrace.Await(ctx, s.lookup, item)
	if err != nil {
		return fmt.Errorf("worker %d: cached lookup: %w", worker, err)
	}
	if v != basePrice(item) {
		return fmt.Errorf("worker %d: cached price %v, want %d", worker, v, basePrice(item))
	}

	if _, err := s.checkout(ctx, order{Item: item, Quantity: "many"}); err == nil {
		return fmt.Errorf("worker %d: checkout with quantity %q should fail", worker, "many")
	}

	return nil
}
