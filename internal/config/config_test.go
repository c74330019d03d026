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

package config

import "testing"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.PageSize != 1024 {
		t.Errorf("Expected default page size 1024, got %d", cfg.PageSize)
	}
	if cfg.HeaderCacheEntries != 16 {
		t.Errorf("Expected default header cache entries 16, got %d", cfg.HeaderCacheEntries)
	}
	if cfg.ReplacementPolicy != PolicyClock {
		t.Errorf("Expected default replacement policy clock, got %s", cfg.ReplacementPolicy)
	}
	if cfg.EnableEpsilonPruning {
		t.Error("Expected epsilon pruning disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected default config to validate, got: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid default", func(c *Config) {}, false},
		{"zero page size", func(c *Config) { c.PageSize = 0 }, true},
		{"too few frames", func(c *Config) { c.BufferPoolFrames = 1 }, true},
		{"unknown policy", func(c *Config) { c.ReplacementPolicy = "fifo" }, true},
		{"zero header cache", func(c *Config) { c.HeaderCacheEntries = 0 }, true},
		{"reserved frames too large", func(c *Config) { c.SortReservedFrames = c.BufferPoolFrames }, true},
		{"bad selectivity", func(c *Config) { c.Cost.EqualitySelectivity = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
