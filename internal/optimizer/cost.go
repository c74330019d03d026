/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package optimizer implements the Cascades-style query optimizer core:
groups and multi-expressions memoized in a search space, a LIFO task
queue driving top-down exploration and cost-based optimization with
branch-and-bound pruning, and a small rule set covering the transform
and implementation rules spec §4.8 names.
*/
package optimizer

import "math"

// Cost is the pair (ioCost, cpuCost) ordered by their sum, per spec
// §3.3. Both components are non-negative reals; infinity models "no
// plan found yet" and "unsatisfiable".
type Cost struct {
	IO  float64
	CPU float64
}

// InfiniteCost is larger than the total of any real plan.
func InfiniteCost() Cost { return Cost{IO: math.Inf(1), CPU: math.Inf(1)} }

// ZeroCost is the identity for Add.
func ZeroCost() Cost { return Cost{} }

// Total is the scalar cost value plans are ordered by.
func (c Cost) Total() float64 { return c.IO + c.CPU }

// Less reports whether c sorts strictly before other.
func (c Cost) Less(other Cost) bool { return c.Total() < other.Total() }

// LessEqual reports whether c sorts at or before other.
func (c Cost) LessEqual(other Cost) bool { return c.Total() <= other.Total() }

// Add returns the pointwise sum of c and other.
func (c Cost) Add(other Cost) Cost { return Cost{IO: c.IO + other.IO, CPU: c.CPU + other.CPU} }

// Sub returns the pointwise difference c - other.
func (c Cost) Sub(other Cost) Cost { return Cost{IO: c.IO - other.IO, CPU: c.CPU - other.CPU} }

// DivInt divides both components by a non-zero integer n.
func (c Cost) DivInt(n int) Cost {
	if n == 0 {
		return c
	}
	return Cost{IO: c.IO / float64(n), CPU: c.CPU / float64(n)}
}

// IsInfinite reports whether c is the sentinel "no plan" cost.
func (c Cost) IsInfinite() bool { return math.IsInf(c.Total(), 1) }

// IsZero reports whether c is the zero cost.
func (c Cost) IsZero() bool { return c.IO == 0 && c.CPU == 0 }
