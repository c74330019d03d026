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

package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestKernelErrorBasic(t *testing.T) {
	err := InvalidPageID(-5)

	if err.Code != ErrCodeInvalidPageID {
		t.Errorf("Expected code %d, got %d", ErrCodeInvalidPageID, err.Code)
	}
	if err.Category != CategoryInvalidInput {
		t.Errorf("Expected category %s, got %s", CategoryInvalidInput, err.Category)
	}
	if !strings.Contains(err.Error(), "-5") {
		t.Errorf("Expected error message to contain '-5', got: %s", err.Error())
	}
}

func TestKernelErrorWithDetail(t *testing.T) {
	err := NewInvariantError("winner circle corrupted").WithDetail("group 7")

	if err.Detail != "group 7" {
		t.Errorf("Expected detail 'group 7', got: %s", err.Detail)
	}
	if !strings.Contains(err.Error(), "group 7") {
		t.Errorf("Expected error to contain detail, got: %s", err.Error())
	}
}

func TestKernelErrorWithHint(t *testing.T) {
	err := PoolExhausted()

	userMsg := err.UserMessage()
	if !strings.Contains(userMsg, "HINT:") {
		t.Errorf("Expected user message to contain HINT, got: %s", userMsg)
	}
	if !strings.Contains(userMsg, "unpin") {
		t.Errorf("Expected hint in user message, got: %s", userMsg)
	}
}

func TestKernelErrorWithCause(t *testing.T) {
	cause := errors.New("underlying error")
	err := NewIOError("write failed").WithCause(cause)

	if err.Unwrap() != cause {
		t.Error("Expected Unwrap to return the cause")
	}
}

func TestInvalidInputConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *KernelError
		code     ErrorCode
		category Category
	}{
		{"InvalidPageID", InvalidPageID(12345), ErrCodeInvalidPageID, CategoryInvalidInput},
		{"PageNotAllocated", PageNotAllocated(3), ErrCodePageNotAllocated, CategoryInvalidInput},
		{"NegativeRunSize", NegativeRunSize(-1), ErrCodeNegativeRunSize, CategoryInvalidInput},
		{"OversizeName", OversizeName("x", 50), ErrCodeOversizeName, CategoryInvalidInput},
		{"DuplicateEntry", DuplicateEntry("Sailors"), ErrCodeDuplicateEntry, CategoryInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Expected code %d, got %d", tt.code, tt.err.Code)
			}
			if tt.err.Category != tt.category {
				t.Errorf("Expected category %s, got %s", tt.category, tt.err.Category)
			}
		})
	}
}

func TestCapacityAndIOConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *KernelError
		code     ErrorCode
		category Category
	}{
		{"PoolExhausted", PoolExhausted(), ErrCodePoolExhausted, CategoryCapacity},
		{"NoFreeRun", NoFreeRun(10), ErrCodeNoFreeRun, CategoryCapacity},
		{"ShortReadWrite", ShortReadWrite("read", 1024, 512), ErrCodeShortReadWrite, CategoryIO},
		{"FileLengthMismatch", FileLengthMismatch(1000, 1024), ErrCodeFileLengthMismatch, CategoryIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Expected code %d, got %d", tt.code, tt.err.Code)
			}
			if tt.err.Category != tt.category {
				t.Errorf("Expected category %s, got %s", tt.category, tt.err.Category)
			}
		})
	}
}

func TestErrorCategoryChecks(t *testing.T) {
	invalidErr := InvalidPageID(-1)
	invariantErr := NewInvariantError("test")
	capacityErr := PoolExhausted()
	ioErr := NewIOError("test")

	if !IsInvalidInput(invalidErr) {
		t.Error("Expected IsInvalidInput to return true for invalid-input error")
	}
	if IsInvalidInput(invariantErr) {
		t.Error("Expected IsInvalidInput to return false for invariant error")
	}
	if !IsInvariant(invariantErr) {
		t.Error("Expected IsInvariant to return true for invariant error")
	}
	if !IsCapacity(capacityErr) {
		t.Error("Expected IsCapacity to return true for capacity error")
	}
	if !IsIO(ioErr) {
		t.Error("Expected IsIO to return true for IO error")
	}
}

func TestGetCode(t *testing.T) {
	err := InvalidPageID(7)
	if GetCode(err) != ErrCodeInvalidPageID {
		t.Errorf("Expected code %d, got %d", ErrCodeInvalidPageID, GetCode(err))
	}

	regularErr := errors.New("regular error")
	if GetCode(regularErr) != 0 {
		t.Errorf("Expected code 0 for regular error, got %d", GetCode(regularErr))
	}
}

func TestFormatError(t *testing.T) {
	kernelErr := NewInvalidInputError("test error")
	formatted := FormatError(kernelErr)
	if !strings.HasPrefix(formatted, "ERROR:") {
		t.Errorf("Expected formatted error to start with 'ERROR:', got: %s", formatted)
	}

	regularErr := errors.New("regular error")
	formatted = FormatError(regularErr)
	if !strings.Contains(formatted, "regular error") {
		t.Errorf("Expected formatted error to contain message, got: %s", formatted)
	}
}
