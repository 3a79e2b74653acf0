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

package file

import (
	// standard libraries.
	"io"

	// this project.
	"github.com/linkall-labs/vrs/internal/compression"
	"github.com/linkall-labs/vrs/internal/fileformat"
	"github.com/linkall-labs/vrs/vrserrors"
)

// RecordReader delivers one record's payload bytes to caller buffers,
// decompressing on the fly when the record is compressed. A reader is valid
// for a single record, positioned right after its header.
type RecordReader interface {
	// Read fills dst entirely, or fails. Asking for more bytes than the
	// record holds yields ErrNotEnoughData.
	Read(dst []byte) error
	// UnreadBytes is how much payload the record still holds.
	UnreadBytes() uint32
}

// NewRecordReader returns the reader matching the record's compression type.
// diskSize is the payload size on disk, expandedSize its size after
// decompression (equal to diskSize for uncompressed records).
func NewRecordReader(
	h Handler, dec *compression.Decompressor,
	codec fileformat.CompressionType, diskSize, expandedSize uint32,
) (RecordReader, error) {
	switch codec {
	case fileformat.CompressionNone:
		return &uncompressedRecordReader{file: h, remaining: diskSize}, nil
	case fileformat.CompressionLz4, fileformat.CompressionZstd:
		r := &compressedRecordReader{
			decompressor: dec,
			codec:        codec,
			remaining:    expandedSize,
			src:          handlerReader{file: h, remaining: int64(diskSize)},
		}
		if err := dec.Start(&r.src, codec); err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, vrserrors.ErrInvalidDiskData
	}
}

type uncompressedRecordReader struct {
	file      Handler
	remaining uint32
}

func (r *uncompressedRecordReader) Read(dst []byte) error {
	if uint32(len(dst)) > r.remaining {
		return vrserrors.ErrNotEnoughData
	}
	if err := r.file.Read(dst); err != nil {
		return err
	}
	r.remaining -= uint32(len(dst))
	return nil
}

func (r *uncompressedRecordReader) UnreadBytes() uint32 {
	return r.remaining
}

type compressedRecordReader struct {
	decompressor *compression.Decompressor
	codec        fileformat.CompressionType
	remaining    uint32
	src          handlerReader
}

func (r *compressedRecordReader) Read(dst []byte) error {
	if uint32(len(dst)) > r.remaining {
		return vrserrors.ErrNotEnoughData
	}
	if err := r.decompressor.Read(dst, r.codec); err != nil {
		return err
	}
	r.remaining -= uint32(len(dst))
	return nil
}

func (r *compressedRecordReader) UnreadBytes() uint32 {
	return r.remaining
}

// LimitReader returns an io.Reader over the next n bytes of h, for codecs
// that pull from a stream.
func LimitReader(h Handler, n int64) io.Reader {
	return &handlerReader{file: h, remaining: n}
}

// handlerReader adapts a Handler to io.Reader, bounded to one record's
// on-disk payload.
type handlerReader struct {
	file      Handler
	remaining int64
}

func (r *handlerReader) Read(p []byte) (int, error) {
	if r.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > r.remaining {
		p = p[:r.remaining]
	}
	if err := r.file.Read(p); err != nil {
		return 0, err
	}
	r.remaining -= int64(len(p))
	return len(p), nil
}
