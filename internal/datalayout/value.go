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

// Value is a single fixed-size field.
type Value[T Element] struct {
	pieceBase
	defaultValue    T
	hasDefaultValue bool
}

func newValue[T Element](label string) *Value[T] {
	return &Value[T]{
		pieceBase: pieceBase{
			label:     label,
			pieceType: PieceTypeValue,
			fixedSize: elementSize[T](),
		},
	}
}

func (p *Value[T]) ElementTypeName() string {
	return elementTypeName[T]()
}

// Get returns the field's value, and whether it came from actual data
// rather than the default.
func (p *Value[T]) Get() (T, bool) {
	if buf := p.layout.fixedDataAt(p.offset, p.fixedSize); buf != nil {
		return readElement[T](buf), true
	}
	return p.defaultValue, false
}

// GetValue returns the field's value, or the default when unavailable.
func (p *Value[T]) GetValue() T {
	v, _ := p.Get()
	return v
}

// Set writes the value into the layout's fixed buffer. It does nothing on a
// mapped layout or when the piece has no backing data.
func (p *Value[T]) Set(v T) bool {
	if p.layout.IsMapped() {
		return false
	}
	buf := p.layout.fixedDataAt(p.offset, p.fixedSize)
	if buf == nil {
		return false
	}
	writeElement(buf, v)
	return true
}

func (p *Value[T]) SetDefault(v T) {
	p.defaultValue = v
	p.hasDefaultValue = true
}

func (p *Value[T]) Default() T {
	return p.defaultValue
}

func (p *Value[T]) IsAvailable() bool {
	return p.layout.fixedDataAt(p.offset, p.fixedSize) != nil
}

func (p *Value[T]) variableSize() uint32 {
	return 0
}

func (p *Value[T]) collectVariableData([]byte) uint32 {
	return 0
}

func (p *Value[T]) serialize(out *pieceJSON) {
	if p.hasDefaultValue {
		out.Default = p.defaultValue
	}
}

// Array is a fixed-count field of fixed-size values.
type Array[T Element] struct {
	pieceBase
	count         int
	defaultValues []T
}

func newArray[T Element](label string, count int) *Array[T] {
	return &Array[T]{
		pieceBase: pieceBase{
			label:     label,
			pieceType: PieceTypeArray,
			fixedSize: elementSize[T]() * uint32(count),
		},
		count: count,
	}
}

func (p *Array[T]) ElementTypeName() string {
	return elementTypeName[T]()
}

func (p *Array[T]) Count() int {
	return p.count
}

// Get returns the array's values, and whether they came from actual data.
func (p *Array[T]) Get() ([]T, bool) {
	buf := p.layout.fixedDataAt(p.offset, p.fixedSize)
	if buf == nil {
		if p.defaultValues != nil {
			return append([]T(nil), p.defaultValues...), false
		}
		return make([]T, p.count), false
	}
	values := make([]T, p.count)
	size := elementSize[T]()
	for i := range values {
		values[i] = readElement[T](buf[uint32(i)*size:])
	}
	return values, true
}

// Set writes the values into the layout's fixed buffer. The slice must hold
// exactly Count values.
func (p *Array[T]) Set(values []T) bool {
	if p.layout.IsMapped() || len(values) != p.count {
		return false
	}
	buf := p.layout.fixedDataAt(p.offset, p.fixedSize)
	if buf == nil {
		return false
	}
	size := elementSize[T]()
	for i, v := range values {
		writeElement(buf[uint32(i)*size:], v)
	}
	return true
}

func (p *Array[T]) SetDefault(values []T) {
	p.defaultValues = append([]T(nil), values...)
}

func (p *Array[T]) IsAvailable() bool {
	return p.layout.fixedDataAt(p.offset, p.fixedSize) != nil
}

func (p *Array[T]) variableSize() uint32 {
	return 0
}

func (p *Array[T]) collectVariableData([]byte) uint32 {
	return 0
}

func (p *Array[T]) serialize(out *pieceJSON) {
	size := uint32(p.count)
	out.Size = &size
	if p.defaultValues != nil {
		out.Default = p.defaultValues
	}
}
