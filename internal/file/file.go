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

//go:generate mockgen -source=file.go -destination=mock_file.go -package=file

// Package file defines the byte-store contract record files are read from,
// and a chunked local disk implementation of it.
package file

// CachingStrategy hints the store about the expected access pattern.
type CachingStrategy int

const (
	CachingUndefined CachingStrategy = iota
	// CachingPassive leaves caching decisions to the store.
	CachingPassive
	// CachingStreaming tells the store data is consumed mostly forward,
	// so read-ahead pays off and read-behind can be dropped.
	CachingStreaming
	// CachingStreamingBackward is CachingStreaming for backward playback.
	CachingStreamingBackward
	// CachingReleaseAfterRead asks the store to evict data once delivered.
	CachingReleaseAfterRead
)

func (s CachingStrategy) String() string {
	switch s {
	case CachingPassive:
		return "passive"
	case CachingStreaming:
		return "streaming"
	case CachingStreamingBackward:
		return "streaming_backward"
	case CachingReleaseAfterRead:
		return "release_after_read"
	}
	return "undefined"
}

// Segment is a byte range of the logical file, used for prefetch hints.
type Segment struct {
	Offset int64
	Length int64
}

// Handler is a random-access byte store a record file is read from. The
// logical file may be backed by several physical chunks laid end to end.
//
// Read is an exact read: it either fills buf entirely or returns an error.
// Implementations are not required to be safe for concurrent use.
type Handler interface {
	Read(buf []byte) error
	SetPos(offset int64) error
	Skip(offset int64) error
	Pos() int64
	TotalSize() int64
	IsEOF() bool

	// ChunkRange returns the start offset and size of the physical chunk
	// containing offset.
	ChunkRange(offset int64) (start, size int64, err error)
	// ForgetFurtherChunks tells the store that chunks fully past offset
	// will not be read, so remote backends can stop fetching them.
	ForgetFurtherChunks(offset int64) error

	IsRemote() bool
	IsReadOnly() bool

	// SetCachingStrategy returns false when the store ignores the hint.
	SetCachingStrategy(strategy CachingStrategy) bool
	// Prefetch hints the store about byte ranges needed soon, in read
	// order. Returns false when the store ignores the hint.
	Prefetch(segments []Segment) bool

	Close() error
}

// WriteHandler is a Handler whose store can also be modified, which index
// recovery needs to patch a rebuilt index back into the file.
type WriteHandler interface {
	Handler

	Write(buf []byte) error
	Truncate(size int64) error
	// ReopenForUpdates upgrades a read-only open to read-write in place,
	// preserving the current position.
	ReopenForUpdates() error
}
