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

// standard libraries.
import (
	"encoding/binary"
	"sort"
)

// Vector is a variable-count field of fixed-size values. Values to be
// written are staged on the piece until the layout collects them.
type Vector[T Element] struct {
	pieceBase
	stagedValues  []T
	defaultValues []T
}

func newVector[T Element](label string) *Vector[T] {
	return &Vector[T]{
		pieceBase: pieceBase{
			label:     label,
			pieceType: PieceTypeVector,
			fixedSize: VariableSize,
		},
	}
}

func (p *Vector[T]) ElementTypeName() string {
	return elementTypeName[T]()
}

// Get returns the vector read from the layout's variable-size data, and
// whether actual data was found.
func (p *Vector[T]) Get() ([]T, bool) {
	buf := p.layout.varDataAt(p.offset)
	if buf == nil {
		return append([]T(nil), p.defaultValues...), false
	}
	size := elementSize[T]()
	count := uint32(len(buf)) / size
	values := make([]T, count)
	for i := range values {
		values[i] = readElement[T](buf[uint32(i)*size:])
	}
	return values, true
}

func (p *Vector[T]) Stage(values []T) {
	p.stagedValues = append(p.stagedValues[:0], values...)
}

func (p *Vector[T]) StagedValues() []T {
	return p.stagedValues
}

func (p *Vector[T]) SetDefault(values []T) {
	p.defaultValues = append([]T(nil), values...)
}

func (p *Vector[T]) IsAvailable() bool {
	return p.layout.varDataAt(p.offset) != nil
}

func (p *Vector[T]) variableSize() uint32 {
	return elementSize[T]() * uint32(len(p.stagedValues))
}

func (p *Vector[T]) collectVariableData(dst []byte) uint32 {
	size := elementSize[T]()
	for i, v := range p.stagedValues {
		writeElement(dst[uint32(i)*size:], v)
	}
	return size * uint32(len(p.stagedValues))
}

func (p *Vector[T]) serialize(out *pieceJSON) {
	if p.defaultValues != nil {
		out.Default = p.defaultValues
	}
}

// String is a variable-size text field.
type String struct {
	pieceBase
	stagedValue  string
	defaultValue string
}

func newString(label string) *String {
	return &String{
		pieceBase: pieceBase{
			label:     label,
			pieceType: PieceTypeString,
			fixedSize: VariableSize,
		},
	}
}

func (p *String) ElementTypeName() string {
	return ""
}

// Get returns the string read from the layout's variable-size data, and
// whether actual data was found.
func (p *String) Get() (string, bool) {
	buf := p.layout.varDataAt(p.offset)
	if buf == nil {
		return p.defaultValue, false
	}
	return string(buf), true
}

func (p *String) Stage(value string) {
	p.stagedValue = value
}

func (p *String) StagedValue() string {
	return p.stagedValue
}

func (p *String) SetDefault(value string) {
	p.defaultValue = value
}

func (p *String) Default() string {
	return p.defaultValue
}

func (p *String) IsAvailable() bool {
	return p.layout.varDataAt(p.offset) != nil
}

func (p *String) variableSize() uint32 {
	return uint32(len(p.stagedValue))
}

func (p *String) collectVariableData(dst []byte) uint32 {
	return uint32(copy(dst, p.stagedValue))
}

func (p *String) serialize(out *pieceJSON) {
	if p.defaultValue != "" {
		out.Default = p.defaultValue
	}
}

// VectorString is a variable-count field of strings, each length-prefixed.
type VectorString struct {
	pieceBase
	stagedValues  []string
	defaultValues []string
}

func newVectorString(label string) *VectorString {
	return &VectorString{
		pieceBase: pieceBase{
			label:     label,
			pieceType: PieceTypeVector,
			fixedSize: VariableSize,
		},
	}
}

func (p *VectorString) ElementTypeName() string {
	return "string"
}

// Get returns the strings read from the layout's variable-size data, and
// whether actual data was found. Truncated data yields the values decoded
// before the truncation point.
func (p *VectorString) Get() ([]string, bool) {
	buf := p.layout.varDataAt(p.offset)
	if buf == nil {
		return append([]string(nil), p.defaultValues...), false
	}
	var values []string
	for len(buf) >= 4 {
		length := binary.LittleEndian.Uint32(buf)
		buf = buf[4:]
		if uint32(len(buf)) < length {
			break
		}
		values = append(values, string(buf[:length]))
		buf = buf[length:]
	}
	return values, true
}

func (p *VectorString) Stage(values []string) {
	p.stagedValues = append(p.stagedValues[:0], values...)
}

func (p *VectorString) StagedValues() []string {
	return p.stagedValues
}

func (p *VectorString) SetDefault(values []string) {
	p.defaultValues = append([]string(nil), values...)
}

func (p *VectorString) IsAvailable() bool {
	return p.layout.varDataAt(p.offset) != nil
}

func (p *VectorString) variableSize() uint32 {
	size := uint32(0)
	for _, v := range p.stagedValues {
		size += 4 + uint32(len(v))
	}
	return size
}

func (p *VectorString) collectVariableData(dst []byte) uint32 {
	offset := uint32(0)
	for _, v := range p.stagedValues {
		binary.LittleEndian.PutUint32(dst[offset:], uint32(len(v)))
		offset += 4
		offset += uint32(copy(dst[offset:], v))
	}
	return offset
}

func (p *VectorString) serialize(out *pieceJSON) {
	if p.defaultValues != nil {
		out.Default = p.defaultValues
	}
}

// StringMap is a string-keyed map of fixed-size values. Entries are encoded
// as a length-prefixed key followed by the raw value, sorted by key.
type StringMap[T Element] struct {
	pieceBase
	stagedValues  map[string]T
	defaultValues map[string]T
}

func newStringMap[T Element](label string) *StringMap[T] {
	return &StringMap[T]{
		pieceBase: pieceBase{
			label:     label,
			pieceType: PieceTypeStringMap,
			fixedSize: VariableSize,
		},
	}
}

func (p *StringMap[T]) ElementTypeName() string {
	return elementTypeName[T]()
}

// Get returns the map read from the layout's variable-size data, and whether
// actual data was found. Truncated or corrupt data yields the entries
// decoded before the bad one.
func (p *StringMap[T]) Get() (map[string]T, bool) {
	buf := p.layout.varDataAt(p.offset)
	if buf == nil {
		if p.defaultValues == nil {
			return map[string]T{}, false
		}
		return copyMap(p.defaultValues), false
	}
	values := make(map[string]T)
	size := elementSize[T]()
	for len(buf) >= 4 {
		length := binary.LittleEndian.Uint32(buf)
		buf = buf[4:]
		// two compares, length+size could wrap in uint32
		if length > uint32(len(buf)) || uint32(len(buf))-length < size {
			break
		}
		key := string(buf[:length])
		values[key] = readElement[T](buf[length:])
		buf = buf[length+size:]
	}
	return values, true
}

func (p *StringMap[T]) Stage(values map[string]T) {
	p.stagedValues = copyMap(values)
}

func (p *StringMap[T]) SetDefault(values map[string]T) {
	p.defaultValues = copyMap(values)
}

func (p *StringMap[T]) IsAvailable() bool {
	return p.layout.varDataAt(p.offset) != nil
}

func (p *StringMap[T]) variableSize() uint32 {
	size := uint32(0)
	for k := range p.stagedValues {
		size += 4 + uint32(len(k)) + elementSize[T]()
	}
	return size
}

func (p *StringMap[T]) collectVariableData(dst []byte) uint32 {
	offset := uint32(0)
	for _, k := range sortedMapKeys(p.stagedValues) {
		binary.LittleEndian.PutUint32(dst[offset:], uint32(len(k)))
		offset += 4
		offset += uint32(copy(dst[offset:], k))
		writeElement(dst[offset:], p.stagedValues[k])
		offset += elementSize[T]()
	}
	return offset
}

func (p *StringMap[T]) serialize(out *pieceJSON) {
	if p.defaultValues != nil {
		out.Default = p.defaultValues
	}
}

// StringMapString is a string-to-string map. Both keys and values are
// length-prefixed, sorted by key.
type StringMapString struct {
	pieceBase
	stagedValues  map[string]string
	defaultValues map[string]string
}

func newStringMapString(label string) *StringMapString {
	return &StringMapString{
		pieceBase: pieceBase{
			label:     label,
			pieceType: PieceTypeStringMap,
			fixedSize: VariableSize,
		},
	}
}

func (p *StringMapString) ElementTypeName() string {
	return "string"
}

// Get returns the map read from the layout's variable-size data, and whether
// actual data was found. Truncated or corrupt data yields the entries
// decoded before the bad one.
func (p *StringMapString) Get() (map[string]string, bool) {
	buf := p.layout.varDataAt(p.offset)
	if buf == nil {
		if p.defaultValues == nil {
			return map[string]string{}, false
		}
		return copyMap(p.defaultValues), false
	}
	values := make(map[string]string)
	for len(buf) >= 4 {
		keyLen := binary.LittleEndian.Uint32(buf)
		buf = buf[4:]
		// two compares, keyLen+4 could wrap in uint32
		if keyLen > uint32(len(buf)) || uint32(len(buf))-keyLen < 4 {
			break
		}
		key := string(buf[:keyLen])
		valueLen := binary.LittleEndian.Uint32(buf[keyLen:])
		buf = buf[keyLen+4:]
		if uint32(len(buf)) < valueLen {
			break
		}
		values[key] = string(buf[:valueLen])
		buf = buf[valueLen:]
	}
	return values, true
}

func (p *StringMapString) Stage(values map[string]string) {
	p.stagedValues = copyMap(values)
}

func (p *StringMapString) SetDefault(values map[string]string) {
	p.defaultValues = copyMap(values)
}

func (p *StringMapString) IsAvailable() bool {
	return p.layout.varDataAt(p.offset) != nil
}

func (p *StringMapString) variableSize() uint32 {
	size := uint32(0)
	for k, v := range p.stagedValues {
		size += 4 + uint32(len(k)) + 4 + uint32(len(v))
	}
	return size
}

func (p *StringMapString) collectVariableData(dst []byte) uint32 {
	offset := uint32(0)
	for _, k := range sortedMapKeys(p.stagedValues) {
		v := p.stagedValues[k]
		binary.LittleEndian.PutUint32(dst[offset:], uint32(len(k)))
		offset += 4
		offset += uint32(copy(dst[offset:], k))
		binary.LittleEndian.PutUint32(dst[offset:], uint32(len(v)))
		offset += 4
		offset += uint32(copy(dst[offset:], v))
	}
	return offset
}

func (p *StringMapString) serialize(out *pieceJSON) {
	if p.defaultValues != nil {
		out.Default = p.defaultValues
	}
}

func copyMap[V any](src map[string]V) map[string]V {
	dst := make(map[string]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func sortedMapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
