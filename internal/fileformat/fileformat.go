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

// Package fileformat holds the bit-exact on-disk structures of record files:
// the file header that opens every file, and the record header that opens
// every record. All multi-byte fields are little endian.
//
// Both headers may grow in future format versions, so readers always use the
// header sizes persisted in the file header instead of the compiled sizes.
package fileformat

// FourCharCode packs four ASCII letters into a little-endian uint32, to make
// magic numbers readable in hex dumps.
func FourCharCode(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

var (
	MagicHeader1 = FourCharCode('V', 'i', 's', 'i')
	MagicHeader2 = FourCharCode('o', 'n', 'R', 'e')
	MagicHeader3 = FourCharCode('c', 'o', 'r', 'd')

	// OriginalFileFormatVersion is the classic layout: one index record,
	// written at the end of the file when it is closed.
	OriginalFileFormatVersion = FourCharCode('V', 'R', 'S', '1')
	// FrontIndexFileFormatVersion has the index record near the head of the
	// file, appended incrementally while records are written.
	FrontIndexFileFormatVersion = FourCharCode('V', 'R', 'S', '2')
	// ZstdFormatVersion additionally allows zstd compression of the
	// description record.
	ZstdFormatVersion = FourCharCode('V', 'R', 'S', '3')
)

// CompressionType is the per-record compression codec selector, persisted as
// one byte in every record header.
type CompressionType uint8

const (
	CompressionNone CompressionType = 0
	CompressionLz4  CompressionType = 1
	CompressionZstd CompressionType = 2
)

func (t CompressionType) IsValid() bool {
	return t <= CompressionZstd
}

func (t CompressionType) String() string {
	switch t {
	case CompressionNone:
		return "none"
	case CompressionLz4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	}
	return "unknown"
}
