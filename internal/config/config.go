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
Package config holds the tunable knobs for the cascadedb kernel: page
size, buffer pool sizing, the replacement policy, disk-manager header
cache size, the external sort's buffer reservation, and the optimizer's
cost-model constants.

None of these are persisted or read from the environment (the kernel has
no persisted configuration state); a Config is constructed in code and
validated before use, the same shape flydb uses for its server config.
*/
package config

import "fmt"

// ReplacementPolicyName selects a buffer pool eviction policy.
type ReplacementPolicyName string

const (
	PolicyRandom ReplacementPolicyName = "random"
	PolicyLRU    ReplacementPolicyName = "lru"
	PolicyMRU    ReplacementPolicyName = "mru"
	PolicyClock  ReplacementPolicyName = "clock"
)

// Config is the kernel-wide configuration.
type Config struct {
	// PageSize is the fixed page size in bytes. Spec default: 1024.
	PageSize int

	// BufferPoolFrames is the number of frames in the buffer pool.
	BufferPoolFrames int

	// ReplacementPolicy selects the eviction policy.
	ReplacementPolicy ReplacementPolicyName

	// HeaderCacheEntries bounds the disk manager's header/bitmap page
	// cache. Spec recommends 16.
	HeaderCacheEntries int

	// SortReservedFrames is validated to be smaller than BufferPoolFrames.
	// Nothing derives the replacement-selection heap capacity M from it;
	// callers set sort.Config.HeapSize directly.
	SortReservedFrames int

	// SortSpillCompression enables compression of spooled run pages: a
	// run page is sealed through the compression layer instead of
	// spooled verbatim once its raw record bytes exceed
	// SortSpillThreshold bytes.
	SortSpillCompression bool
	SortSpillThreshold   int

	// Cost model constants, pluggable per the spec's §4.9 note that these
	// are parameters of the optimizer, not part of the plan.
	Cost CostConfig

	// EnableEpsilonPruning gives every optimizer search context an
	// epsilon bound of zero cost, and a finished plan cheaper than the
	// bound is recorded at the bound's cost. With a zero bound no plan's
	// cost changes and no search is cut short. Off by default.
	EnableEpsilonPruning bool
}

// CostConfig holds the optimizer's cost-model constants.
type CostConfig struct {
	SeqIOConstant     float64
	RandomIOConstant  float64
	CPUTupleConstant  float64
	HashCostConstant  float64
	CPUApplyConstant  float64
	TouchCopyConstant float64
	EqualitySelectivity float64
	RangeSelectivity    float64
}

// DefaultCostConfig returns the default cost-model constants.
func DefaultCostConfig() CostConfig {
	return CostConfig{
		SeqIOConstant:       1.0,
		RandomIOConstant:    4.0,
		CPUTupleConstant:    0.01,
		HashCostConstant:    0.02,
		CPUApplyConstant:    0.005,
		TouchCopyConstant:   0.01,
		EqualitySelectivity: 0.1,
		RangeSelectivity:    0.33,
	}
}

// DefaultConfig returns sensible defaults matching the spec's contract
// defaults (1024-byte pages, 16-entry header cache).
func DefaultConfig() *Config {
	return &Config{
		PageSize:             1024,
		BufferPoolFrames:     256,
		ReplacementPolicy:    PolicyClock,
		HeaderCacheEntries:   16,
		SortReservedFrames:   4,
		SortSpillCompression: true,
		SortSpillThreshold:   64,
		Cost:                 DefaultCostConfig(),
		EnableEpsilonPruning: false,
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", c.PageSize)
	}
	if c.BufferPoolFrames < 2 {
		return fmt.Errorf("buffer pool must have at least 2 frames, got %d", c.BufferPoolFrames)
	}
	switch c.ReplacementPolicy {
	case PolicyRandom, PolicyLRU, PolicyMRU, PolicyClock:
	default:
		return fmt.Errorf("unknown replacement policy: %q", c.ReplacementPolicy)
	}
	if c.HeaderCacheEntries <= 0 {
		return fmt.Errorf("header cache entries must be positive, got %d", c.HeaderCacheEntries)
	}
	if c.SortReservedFrames < 0 || c.SortReservedFrames >= c.BufferPoolFrames {
		return fmt.Errorf("sort reserved frames (%d) must be less than buffer pool frames (%d)", c.SortReservedFrames, c.BufferPoolFrames)
	}
	if c.Cost.EqualitySelectivity <= 0 || c.Cost.EqualitySelectivity > 1 {
		return fmt.Errorf("equality selectivity must be in (0, 1], got %f", c.Cost.EqualitySelectivity)
	}
	return nil
}
