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

package optimizer

// Expression is a plain tree of operators: the caller's input logical
// tree on the way in, and the optimizer's chosen physical tree on the
// way out (spec §3.3).
type Expression struct {
	Op     Operator
	Inputs []*Expression
}

// NewExpression builds a tree node.
func NewExpression(op Operator, inputs ...*Expression) *Expression {
	return &Expression{Op: op, Inputs: inputs}
}
