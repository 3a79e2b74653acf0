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

package compression

import (
	// standard libraries.
	"io"

	// third-party libraries.
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	// this project.
	"github.com/linkall-labs/vrs/internal/fileformat"
	"github.com/linkall-labs/vrs/vrserrors"
)

// Decompressor reads compressed payloads back into caller buffers. Decoders
// are created lazily and reused across records, so a single Decompressor
// should be kept for a whole file read session.
//
// Not safe for concurrent use.
type Decompressor struct {
	zstdDecoder *zstd.Decoder
	lz4Reader   *lz4.Reader
}

func NewDecompressor() *Decompressor {
	return &Decompressor{}
}

// Start binds the decompressor to a new compressed region. The region may
// hold several back-to-back frames, frame boundaries are crossed
// transparently by Read.
func (d *Decompressor) Start(src io.Reader, codec fileformat.CompressionType) error {
	switch codec {
	case fileformat.CompressionZstd:
		if d.zstdDecoder == nil {
			dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
			if err != nil {
				return &vrserrors.DecompressionError{Codec: "zstd", Err: err}
			}
			d.zstdDecoder = dec
		}
		if err := d.zstdDecoder.Reset(src); err != nil {
			return &vrserrors.DecompressionError{Codec: "zstd", Err: err}
		}
		return nil
	case fileformat.CompressionLz4:
		if d.lz4Reader == nil {
			d.lz4Reader = lz4.NewReader(src)
		} else {
			d.lz4Reader.Reset(src)
		}
		return nil
	default:
		return vrserrors.ErrUnsupportedIndexFormat
	}
}

// Read fills dst with decompressed bytes from the region bound by Start.
// A short region yields ErrNotEnoughData.
func (d *Decompressor) Read(dst []byte, codec fileformat.CompressionType) error {
	var r io.Reader
	var name string
	switch codec {
	case fileformat.CompressionZstd:
		r, name = d.zstdDecoder, "zstd"
	case fileformat.CompressionLz4:
		r, name = d.lz4Reader, "lz4"
	default:
		return vrserrors.ErrUnsupportedIndexFormat
	}
	if _, err := io.ReadFull(r, dst); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return vrserrors.ErrNotEnoughData
		}
		return &vrserrors.DecompressionError{Codec: name, Err: err}
	}
	return nil
}

// ReadAvailable fills dst with as many decompressed bytes as the region
// still holds, up to len(dst), and returns how many were read. A region
// ending cleanly mid-way is not an error, truncated index data is recovered
// from whatever could be decoded.
func (d *Decompressor) ReadAvailable(dst []byte, codec fileformat.CompressionType) (int, error) {
	var r io.Reader
	var name string
	switch codec {
	case fileformat.CompressionZstd:
		r, name = d.zstdDecoder, "zstd"
	case fileformat.CompressionLz4:
		r, name = d.lz4Reader, "lz4"
	default:
		return 0, vrserrors.ErrUnsupportedIndexFormat
	}
	n, err := io.ReadFull(r, dst)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return n, nil
	}
	if err != nil {
		return n, &vrserrors.DecompressionError{Codec: name, Err: err}
	}
	return n, nil
}

// Decompress reads one whole compressed payload from src into dst in a
// single shot.
func (d *Decompressor) Decompress(
	src io.Reader, dst []byte, codec fileformat.CompressionType,
) error {
	if err := d.Start(src, codec); err != nil {
		return err
	}
	return d.Read(dst, codec)
}

// Close releases the decoders. The decompressor must not be used afterwards.
func (d *Decompressor) Close() {
	if d.zstdDecoder != nil {
		d.zstdDecoder.Close()
		d.zstdDecoder = nil
	}
	d.lz4Reader = nil
}
