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
Package disk implements the lowest layer of the storage stack: a raw,
fixed-page-size file and the allocation/directory bookkeeping on top of
it. Nothing here understands tuples, search keys, or buffering — that's
the buffer manager's job, one layer up.
*/
package disk

import (
	"os"

	kerrors "cascadedb/internal/errors"
)

// PageID identifies a page within a DiskFile. InvalidPageID is the
// sentinel for "no page".
type PageID int32

// InvalidPageID marks the absence of a page.
const InvalidPageID PageID = -1

// Valid reports whether p is a non-negative page identifier.
func (p PageID) Valid() bool { return p >= 0 }

// File is a random-access file whose length is always an exact multiple
// of its page size.
type File struct {
	f        *os.File
	pageSize int
	numPages int64
}

// CreateFile truncates or creates the file at path to exactly
// numPages*pageSize bytes. numPages must be at least 2.
func CreateFile(path string, numPages int, pageSize int) (*File, error) {
	if numPages < 2 {
		return nil, kerrors.NewInvalidInputError("numPages must be at least 2").WithDetail(path)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, kerrors.NewIOError("create disk file").WithCause(err)
	}
	size := int64(numPages) * int64(pageSize)
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, kerrors.NewIOError("truncate disk file").WithCause(err)
	}
	return &File{f: f, pageSize: pageSize, numPages: int64(numPages)}, nil
}

// OpenFile opens an existing disk file. The file size must be a positive
// multiple of pageSize spanning at least two pages.
func OpenFile(path string, pageSize int) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, kerrors.NewIOError("open disk file").WithCause(err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, kerrors.NewIOError("stat disk file").WithCause(err)
	}
	size := info.Size()
	if size <= 0 || size%int64(pageSize) != 0 || size/int64(pageSize) < 2 {
		f.Close()
		return nil, kerrors.FileLengthMismatch(size, pageSize)
	}
	return &File{f: f, pageSize: pageSize, numPages: size / int64(pageSize)}, nil
}

// NumPages returns the number of pages in the file.
func (d *File) NumPages() int64 { return d.numPages }

// PageSize returns the fixed page size in bytes.
func (d *File) PageSize() int { return d.pageSize }

// ReadPage performs a positioned full-page read of page n into buf, which
// must be exactly PageSize() bytes.
func (d *File) ReadPage(n PageID, buf []byte) error {
	if len(buf) != d.pageSize {
		return kerrors.NewInvalidInputError("buffer must be exactly one page")
	}
	off := int64(n) * int64(d.pageSize)
	got, err := d.f.ReadAt(buf, off)
	if err != nil {
		return kerrors.NewIOError("read page").WithCause(err)
	}
	if got != d.pageSize {
		return kerrors.ShortReadWrite("read", d.pageSize, got)
	}
	return nil
}

// WritePage performs a positioned full-page write of buf to page n.
func (d *File) WritePage(n PageID, buf []byte) error {
	if len(buf) != d.pageSize {
		return kerrors.NewInvalidInputError("buffer must be exactly one page")
	}
	off := int64(n) * int64(d.pageSize)
	got, err := d.f.WriteAt(buf, off)
	if err != nil {
		return kerrors.NewIOError("write page").WithCause(err)
	}
	if got != d.pageSize {
		return kerrors.ShortReadWrite("write", d.pageSize, got)
	}
	return nil
}

// Sync flushes the underlying OS file buffers.
func (d *File) Sync() error {
	if err := d.f.Sync(); err != nil {
		return kerrors.NewIOError("sync disk file").WithCause(err)
	}
	return nil
}

// Close closes the underlying file descriptor.
func (d *File) Close() error {
	return d.f.Close()
}
