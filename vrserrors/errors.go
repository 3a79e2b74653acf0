// Copyright 2023 Linkall Inc.
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

// Package vrserrors is the catalog of failure conditions of the record-stream
// engine. Every failure is a sentinel error value, so callers can match with
// errors.Is across wrapping.
package vrserrors

import (
	// standard libraries.
	"errors"
	"fmt"
)

var (
	// ErrNotARecordFile is fatal for Open: the header signature is wrong.
	ErrNotARecordFile = errors.New("vrs: not a valid record file")
	// ErrUnsupportedVersion is fatal for Open: the file was written by a
	// newer engine.
	ErrUnsupportedVersion = errors.New("vrs: file version not supported")

	// ErrIndexRecord covers a corrupt or missing index record. Recoverable:
	// the reader rebuilds the index by scanning record headers.
	ErrIndexRecord = errors.New("vrs: index record error")
	// ErrUnsupportedIndexFormat is an index record with an unknown format
	// version. Recoverable the same way.
	ErrUnsupportedIndexFormat = errors.New("vrs: unsupported index format")
	// ErrReindexing is a failure while rebuilding the index. The validated
	// prefix of the index is retained.
	ErrReindexing = errors.New("vrs: reindexing error")

	// ErrInvalidDiskData is a per-record integrity failure: the on-disk
	// record header does not match the index entry. Fatal for that record
	// only.
	ErrInvalidDiskData = errors.New("vrs: invalid data on disk")

	// ErrInvalidLayout is a layout description that cannot be parsed.
	ErrInvalidLayout = errors.New("vrs: invalid layout description")

	ErrNoFileOpen    = errors.New("vrs: no file open")
	ErrNotEnoughData = errors.New("vrs: not enough data")
	ErrTooMuchData   = errors.New("vrs: too much data")
	ErrInvalidReq    = errors.New("vrs: invalid request")

	// ErrOperationCancelled is returned when a progress callback vetoes a
	// long operation. Always safe: partial state is kept as-is.
	ErrOperationCancelled = errors.New("vrs: operation cancelled")
)

// DecompressionError wraps a codec failure so callers do not depend on the
// codec library's own error type.
type DecompressionError struct {
	Codec string
	Err   error
}

func (e *DecompressionError) Error() string {
	return fmt.Sprintf("vrs: %s decompression failed: %v", e.Codec, e.Err)
}

func (e *DecompressionError) Unwrap() error {
	return e.Err
}
