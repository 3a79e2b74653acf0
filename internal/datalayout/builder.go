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

// Builder assembles a layout piece by piece. Declaration order is the wire
// order: fixed-size pieces pack back to back, variable-size ones get index
// entries in the order they were added.
//
// Typical use declares the pieces with the typed helpers, then calls Build:
//
//	b := datalayout.NewBuilder()
//	width := datalayout.ValuePiece[uint32](b, "image_width")
//	height := datalayout.ValuePiece[uint32](b, "image_height")
//	layout := b.Build()
type Builder struct {
	pieces []Piece
	built  bool
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) addPiece(p Piece) {
	if b.built {
		panic("datalayout: builder already built")
	}
	b.pieces = append(b.pieces, p)
}

// Build finalizes the layout: offsets are assigned and the fixed-size buffer
// is allocated. The builder cannot be reused afterwards.
func (b *Builder) Build() *DataLayout {
	l := &DataLayout{}
	for _, p := range b.pieces {
		if p.FixedSize() == VariableSize {
			l.varPieces = append(l.varPieces, p)
		} else {
			l.fixedPieces = append(l.fixedPieces, p)
		}
	}
	l.initLayout()
	b.built = true
	return l
}

// ValuePiece declares a single fixed-size field.
func ValuePiece[T Element](b *Builder, label string) *Value[T] {
	p := newValue[T](label)
	b.addPiece(p)
	return p
}

// ArrayPiece declares a fixed-count array field.
func ArrayPiece[T Element](b *Builder, label string, count int) *Array[T] {
	p := newArray[T](label, count)
	b.addPiece(p)
	return p
}

// VectorPiece declares a variable-count field of fixed-size values.
func VectorPiece[T Element](b *Builder, label string) *Vector[T] {
	p := newVector[T](label)
	b.addPiece(p)
	return p
}

// StringPiece declares a variable-size text field.
func StringPiece(b *Builder, label string) *String {
	p := newString(label)
	b.addPiece(p)
	return p
}

// VectorStringPiece declares a variable-count field of strings.
func VectorStringPiece(b *Builder, label string) *VectorString {
	p := newVectorString(label)
	b.addPiece(p)
	return p
}

// StringMapPiece declares a string-keyed map field of fixed-size values.
func StringMapPiece[T Element](b *Builder, label string) *StringMap[T] {
	p := newStringMap[T](label)
	b.addPiece(p)
	return p
}

// StringMapStringPiece declares a string-to-string map field.
func StringMapStringPiece(b *Builder, label string) *StringMapString {
	p := newStringMapString(label)
	b.addPiece(p)
	return p
}
