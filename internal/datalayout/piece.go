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

// Package datalayout implements self-describing structured record payloads:
// an ordered set of named fields, fixed-size ones at deterministic byte
// offsets and variable-size ones indexed by trailing offset/length entries,
// with structural mapping between layout revisions.
package datalayout

import (
	// standard libraries.
	"encoding/binary"
	"math"
)

// PieceType tells how a field stores its data.
type PieceType uint8

const (
	PieceTypeUndefined PieceType = iota
	// PieceTypeValue is a single fixed-size value.
	PieceTypeValue
	// PieceTypeArray is a fixed-count array of fixed-size values.
	PieceTypeArray
	// PieceTypeVector is a variable-count collection of values.
	PieceTypeVector
	// PieceTypeString is a variable-size string.
	PieceTypeString
	// PieceTypeStringMap is a variable-size string-keyed map.
	PieceTypeStringMap
)

// Piece type names as persisted in layout descriptions.
var pieceTypeNames = map[PieceType]string{
	PieceTypeUndefined: "undefined",
	PieceTypeValue:     "DataPieceValue",
	PieceTypeArray:     "DataPieceArray",
	PieceTypeVector:    "DataPieceVector",
	PieceTypeString:    "DataPieceString",
	PieceTypeStringMap: "DataPieceStringMap",
}

func (t PieceType) String() string {
	if s, ok := pieceTypeNames[t]; ok {
		return s
	}
	return "undefined"
}

const (
	// NotFound marks a piece that has no backing data, typically because
	// mapping onto the target layout did not find a match for it.
	NotFound = ^uint32(0)
	// VariableSize marks a piece whose size is only known per instance.
	VariableSize = ^uint32(0) - 1
)

// indexEntrySize is the packed size of one trailing var-data index entry,
// a uint32 offset followed by a uint32 length.
const indexEntrySize = 8

// Piece is one field of a layout. Concrete types are Value, Array, Vector,
// String, VectorString, StringMap and StringMapString.
type Piece interface {
	// Label is the field's name, unique within a layout in practice.
	Label() string
	PieceType() PieceType
	// ElementTypeName names the element type the way it is persisted in
	// layout descriptions, e.g. "uint32_t" or "string".
	ElementTypeName() string
	// FixedSize is the byte size of a fixed-size piece, VariableSize
	// otherwise.
	FixedSize() uint32
	// Offset is the piece's byte offset in the fixed data for fixed-size
	// pieces, its index entry rank for variable-size ones, or NotFound.
	Offset() uint32

	IsRequired() bool
	SetRequired(required bool)
	Tags() map[string]string
	SetTag(name, value string)

	// IsAvailable tells if reading the piece will return actual data rather
	// than its default value.
	IsAvailable() bool

	setOffset(offset uint32)
	setLayout(layout *DataLayout)

	// variableSize is the staged byte size of a variable-size piece.
	variableSize() uint32
	// collectVariableData serializes the staged value into dst and returns
	// the byte count, which must equal variableSize.
	collectVariableData(dst []byte) uint32

	// serialize fills the piece's json description.
	serialize(out *pieceJSON)
}

// pieceBase carries what every piece type shares.
type pieceBase struct {
	label     string
	pieceType PieceType
	fixedSize uint32
	offset    uint32
	layout    *DataLayout
	tags      map[string]string
	required  bool
}

func (p *pieceBase) Label() string           { return p.label }
func (p *pieceBase) PieceType() PieceType    { return p.pieceType }
func (p *pieceBase) FixedSize() uint32       { return p.fixedSize }
func (p *pieceBase) Offset() uint32          { return p.offset }
func (p *pieceBase) IsRequired() bool        { return p.required }
func (p *pieceBase) SetRequired(r bool)      { p.required = r }
func (p *pieceBase) setOffset(offset uint32) { p.offset = offset }
func (p *pieceBase) setLayout(l *DataLayout) { p.layout = l }

func (p *pieceBase) Tags() map[string]string {
	return p.tags
}

func (p *pieceBase) SetTag(name, value string) {
	if p.tags == nil {
		p.tags = make(map[string]string)
	}
	p.tags[name] = value
}

// isMatch is the structural signature compare used by layout mapping.
func isMatch(p, other Piece) bool {
	return p.PieceType() == other.PieceType() &&
		p.FixedSize() == other.FixedSize() &&
		p.Label() == other.Label() &&
		p.ElementTypeName() == other.ElementTypeName()
}

// Element is the set of value types fixed-size fields can hold.
type Element interface {
	bool | int8 | uint8 | int16 | uint16 | int32 | uint32 | int64 | uint64 |
		float32 | float64
}

// elementTypeName spells the element type the way layout descriptions do.
func elementTypeName[T Element]() string {
	var v T
	switch any(v).(type) {
	case bool:
		return "Bool"
	case int8:
		return "int8_t"
	case uint8:
		return "uint8_t"
	case int16:
		return "int16_t"
	case uint16:
		return "uint16_t"
	case int32:
		return "int32_t"
	case uint32:
		return "uint32_t"
	case int64:
		return "int64_t"
	case uint64:
		return "uint64_t"
	case float32:
		return "float"
	case float64:
		return "double"
	}
	return "undefined"
}

func elementSize[T Element]() uint32 {
	var v T
	switch any(v).(type) {
	case bool, int8, uint8:
		return 1
	case int16, uint16:
		return 2
	case int32, uint32, float32:
		return 4
	default:
		return 8
	}
}

// writeElement packs v little-endian at the start of buf.
func writeElement[T Element](buf []byte, v T) {
	switch x := any(v).(type) {
	case bool:
		if x {
			buf[0] = 1
		} else {
			buf[0] = 0
		}
	case int8:
		buf[0] = byte(x)
	case uint8:
		buf[0] = x
	case int16:
		binary.LittleEndian.PutUint16(buf, uint16(x))
	case uint16:
		binary.LittleEndian.PutUint16(buf, x)
	case int32:
		binary.LittleEndian.PutUint32(buf, uint32(x))
	case uint32:
		binary.LittleEndian.PutUint32(buf, x)
	case int64:
		binary.LittleEndian.PutUint64(buf, uint64(x))
	case uint64:
		binary.LittleEndian.PutUint64(buf, x)
	case float32:
		binary.LittleEndian.PutUint32(buf, math.Float32bits(x))
	case float64:
		binary.LittleEndian.PutUint64(buf, math.Float64bits(x))
	}
}

// readElement unpacks a little-endian value from the start of buf.
func readElement[T Element](buf []byte) T {
	var v T
	switch p := any(&v).(type) {
	case *bool:
		*p = buf[0] != 0
	case *int8:
		*p = int8(buf[0])
	case *uint8:
		*p = buf[0]
	case *int16:
		*p = int16(binary.LittleEndian.Uint16(buf))
	case *uint16:
		*p = binary.LittleEndian.Uint16(buf)
	case *int32:
		*p = int32(binary.LittleEndian.Uint32(buf))
	case *uint32:
		*p = binary.LittleEndian.Uint32(buf)
	case *int64:
		*p = int64(binary.LittleEndian.Uint64(buf))
	case *uint64:
		*p = binary.LittleEndian.Uint64(buf)
	case *float32:
		*p = math.Float32frombits(binary.LittleEndian.Uint32(buf))
	case *float64:
		*p = math.Float64frombits(binary.LittleEndian.Uint64(buf))
	}
	return v
}
