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

package datalayout

import (
	// standard libraries.
	"encoding/binary"
)

// DataLayout is an ordered set of pieces over two byte buffers: the fixed
// buffer holds every fixed-size piece at a deterministic offset, followed by
// one offset/length index entry per variable-size piece, and the var buffer
// holds the variable-size data those entries point into.
//
// On disk, a record's layout block is the fixed buffer immediately followed
// by the var buffer, so the var buffer's size can only be known once the
// fixed buffer has been read.
//
// A layout may be mapped onto another layout holding a record's actual data:
// reads then proxy through the matched pieces of the target, and pieces
// without a match fall back to their defaults.
type DataLayout struct {
	fixedPieces []Piece
	varPieces   []Piece

	fixedData []byte
	varData   []byte

	fixedDataSizeNeeded uint32

	mappedLayout         *DataLayout
	hasAllRequiredPieces bool
}

// initLayout assigns offsets: fixed pieces pack in declaration order, the
// var-data index entries go at the end of the fixed buffer, and each
// variable-size piece's offset is its index entry rank.
func (l *DataLayout) initLayout() {
	var offset uint32
	for _, p := range l.fixedPieces {
		p.setOffset(offset)
		p.setLayout(l)
		offset += p.FixedSize()
	}
	l.fixedDataSizeNeeded = offset + uint32(len(l.varPieces))*indexEntrySize
	l.fixedData = make([]byte, l.fixedDataSizeNeeded)
	for i, p := range l.varPieces {
		p.setOffset(uint32(i))
		p.setLayout(l)
	}
	l.varData = nil
	l.hasAllRequiredPieces = true
	l.mappedLayout = nil
}

// FixedPieces returns the fixed-size pieces in declaration order.
func (l *DataLayout) FixedPieces() []Piece { return l.fixedPieces }

// VarPieces returns the variable-size pieces in declaration order.
func (l *DataLayout) VarPieces() []Piece { return l.varPieces }

// PieceCount is the total number of pieces.
func (l *DataLayout) PieceCount() int {
	return len(l.fixedPieces) + len(l.varPieces)
}

// FixedDataSizeNeeded is the byte size of the fixed buffer, index entries
// included.
func (l *DataLayout) FixedDataSizeNeeded() uint32 {
	return l.fixedDataSizeNeeded
}

// HasVarPieces tells if the layout's total size depends on its content.
func (l *DataLayout) HasVarPieces() bool {
	return len(l.varPieces) > 0
}

// FixedData exposes the fixed buffer, to be filled when reading a record.
func (l *DataLayout) FixedData() []byte {
	return l.fixedData
}

// SetVarData installs the var buffer read from a record. The buffer must be
// GetVarDataSizeFromIndex bytes.
func (l *DataLayout) SetVarData(data []byte) {
	l.varData = data
}

// VarData exposes the var buffer.
func (l *DataLayout) VarData() []byte {
	return l.varData
}

// varSizeIndexEntry reads the i-th trailing index entry from the fixed
// buffer. ok is false when the fixed buffer is too short to hold it, which
// happens with truncated records.
func (l *DataLayout) varSizeIndexEntry(i int) (offset, length uint32, ok bool) {
	indexStart := int(l.fixedDataSizeNeeded) - len(l.varPieces)*indexEntrySize
	pos := indexStart + i*indexEntrySize
	if pos < 0 || pos+indexEntrySize > len(l.fixedData) {
		return 0, 0, false
	}
	offset = binary.LittleEndian.Uint32(l.fixedData[pos:])
	length = binary.LittleEndian.Uint32(l.fixedData[pos+4:])
	return offset, length, true
}

func (l *DataLayout) setVarSizeIndexEntry(i int, offset, length uint32) {
	indexStart := int(l.fixedDataSizeNeeded) - len(l.varPieces)*indexEntrySize
	pos := indexStart + i*indexEntrySize
	binary.LittleEndian.PutUint32(l.fixedData[pos:], offset)
	binary.LittleEndian.PutUint32(l.fixedData[pos+4:], length)
}

// GetVarDataSizeFromIndex computes the var buffer's size from the last index
// entry. Only meaningful once the fixed buffer holds real data: after a read
// from disk, a collect, or a mapping.
func (l *DataLayout) GetVarDataSizeFromIndex() uint32 {
	if l.mappedLayout != nil {
		return l.mappedLayout.GetVarDataSizeFromIndex()
	}
	if len(l.varPieces) == 0 {
		return 0
	}
	offset, length, ok := l.varSizeIndexEntry(len(l.varPieces) - 1)
	if !ok {
		return 0
	}
	return offset + length
}

// GetVarDataSizeNeeded is the byte size the staged variable-size values
// will take once collected.
func (l *DataLayout) GetVarDataSizeNeeded() uint32 {
	var size uint32
	for _, p := range l.varPieces {
		size += p.variableSize()
	}
	return size
}

// CollectVariableDataAndUpdateIndex serializes every staged variable-size
// value into the var buffer and rewrites the trailing index accordingly.
func (l *DataLayout) CollectVariableDataAndUpdateIndex() {
	l.varData = make([]byte, l.GetVarDataSizeNeeded())
	var offset uint32
	for i, p := range l.varPieces {
		size := p.variableSize()
		written := p.collectVariableData(l.varData[offset : offset+size])
		if written != size {
			// A piece lied about its staged size, the layout would be
			// unreadable. This cannot happen with the piece types here.
			panic("datalayout: staged size mismatch for " + p.Label())
		}
		l.setVarSizeIndexEntry(i, offset, size)
		offset += size
	}
}

// GetRawData returns the layout's serialized form, fixed buffer then var
// buffer, as it is stored in a record.
func (l *DataLayout) GetRawData() []byte {
	if l.mappedLayout != nil {
		return l.mappedLayout.GetRawData()
	}
	raw := make([]byte, len(l.fixedData)+len(l.varData))
	copy(raw, l.fixedData)
	copy(raw[len(l.fixedData):], l.varData)
	return raw
}

// mapPieces matches each search piece against the given pieces. The linear
// search starts where the previous piece matched and wraps around, so
// reordered layouts still map with few compares.
func mapPieces(searchPieces, givenPieces []Piece) bool {
	nextMatchStart := 0
	allRequiredFound := true
	for _, piece := range searchPieces {
		var found Piece
		for i := nextMatchStart; i < len(givenPieces); i++ {
			if isMatch(piece, givenPieces[i]) {
				found = givenPieces[i]
				nextMatchStart = i + 1
				break
			}
		}
		if found == nil {
			for i := 0; i < nextMatchStart && i < len(givenPieces); i++ {
				if isMatch(piece, givenPieces[i]) {
					found = givenPieces[i]
					nextMatchStart = i + 1
					break
				}
			}
		}
		if found != nil {
			piece.setOffset(found.Offset())
		} else {
			piece.setOffset(NotFound)
			if piece.IsRequired() {
				allRequiredFound = false
			}
		}
	}
	return allRequiredFound
}

// MapLayout maps this layout's pieces onto target's pieces, so reads proxy
// through the target's data. Returns whether every piece marked required
// found a match; unmatched optional pieces read as their defaults.
func (l *DataLayout) MapLayout(target *DataLayout) bool {
	l.mappedLayout = target
	l.hasAllRequiredPieces = mapPieces(l.fixedPieces, target.fixedPieces)
	l.hasAllRequiredPieces =
		mapPieces(l.varPieces, target.varPieces) && l.hasAllRequiredPieces
	return l.hasAllRequiredPieces
}

// IsMapped tells if reads proxy through another layout.
func (l *DataLayout) IsMapped() bool {
	return l.mappedLayout != nil
}

// HasAllRequiredPieces is true for unmapped layouts, and for mapped ones
// whose required pieces all found a match.
func (l *DataLayout) HasAllRequiredPieces() bool {
	return l.mappedLayout == nil || l.hasAllRequiredPieces
}

// RequireAllPieces marks every piece as required.
func (l *DataLayout) RequireAllPieces() {
	for _, p := range l.fixedPieces {
		p.SetRequired(true)
	}
	for _, p := range l.varPieces {
		p.SetRequired(true)
	}
}

// fixedDataAt returns size bytes of fixed data at offset, from the mapped
// target when mapped. nil when unavailable, including truncated reads.
func (l *DataLayout) fixedDataAt(offset, size uint32) []byte {
	if l.mappedLayout != nil {
		return l.mappedLayout.fixedDataAt(offset, size)
	}
	if offset == NotFound || int(offset)+int(size) > len(l.fixedData) {
		return nil
	}
	return l.fixedData[offset : offset+size]
}

// varDataAt returns the bytes of the varPieceIndex-th variable piece, nil
// when unavailable.
func (l *DataLayout) varDataAt(varPieceIndex uint32) []byte {
	if l.mappedLayout != nil {
		return l.mappedLayout.varDataAt(varPieceIndex)
	}
	if varPieceIndex == NotFound || int(varPieceIndex) >= len(l.varPieces) {
		return nil
	}
	offset, length, ok := l.varSizeIndexEntry(int(varPieceIndex))
	if !ok || int(offset)+int(length) > len(l.varData) {
		return nil
	}
	return l.varData[offset : offset+length]
}
