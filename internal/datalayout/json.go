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
	"encoding/json"
	"fmt"

	// third-party libraries.
	"github.com/tidwall/gjson"

	// this project.
	"github.com/linkall-labs/vrs/vrserrors"
)

// pieceJSON is one field of a persisted layout description. Fixed-size
// pieces carry their byte offset, variable-size ones their index entry rank.
type pieceJSON struct {
	Name     string            `json:"name"`
	Type     string            `json:"type"`
	Offset   *uint32           `json:"offset,omitempty"`
	Index    *uint32           `json:"index,omitempty"`
	Size     *uint32           `json:"size,omitempty"`
	Tags     map[string]string `json:"tags,omitempty"`
	Required bool              `json:"required,omitempty"`
	Default  interface{}       `json:"default,omitempty"`
}

type layoutJSON struct {
	DataLayout []pieceJSON `json:"data_layout"`
}

// typeKey spells a piece's persisted type name, e.g. "DataPieceValue<uint32_t>"
// or "DataPieceString".
func typeKey(p Piece) string {
	name := p.PieceType().String()
	if elem := p.ElementTypeName(); elem != "" {
		return name + "<" + elem + ">"
	}
	return name
}

// AsJSON serializes the layout description, fixed-size pieces first.
func (l *DataLayout) AsJSON() string {
	var out layoutJSON
	out.DataLayout = make([]pieceJSON, 0, l.PieceCount())
	for _, p := range l.fixedPieces {
		entry := pieceJSON{
			Name:     p.Label(),
			Type:     typeKey(p),
			Tags:     p.Tags(),
			Required: p.IsRequired(),
		}
		offset := p.Offset()
		entry.Offset = &offset
		p.serialize(&entry)
		out.DataLayout = append(out.DataLayout, entry)
	}
	for i, p := range l.varPieces {
		entry := pieceJSON{
			Name:     p.Label(),
			Type:     typeKey(p),
			Tags:     p.Tags(),
			Required: p.IsRequired(),
		}
		index := uint32(i)
		entry.Index = &index
		p.serialize(&entry)
		out.DataLayout = append(out.DataLayout, entry)
	}
	data, err := json.Marshal(&out)
	if err != nil {
		return ""
	}
	return string(data)
}

// pieceFactory builds a piece from its persisted description. size is the
// element count of array pieces, def the piece's default value if any.
type pieceFactory func(label string, size uint32, def gjson.Result) Piece

var pieceFactories = make(map[string]pieceFactory)

func init() {
	registerElement[bool]()
	registerElement[int8]()
	registerElement[uint8]()
	registerElement[int16]()
	registerElement[uint16]()
	registerElement[int32]()
	registerElement[uint32]()
	registerElement[int64]()
	registerElement[uint64]()
	registerElement[float32]()
	registerElement[float64]()

	pieceFactories["DataPieceString"] = func(label string, _ uint32, def gjson.Result) Piece {
		p := newString(label)
		if def.Exists() {
			p.SetDefault(def.String())
		}
		return p
	}
	pieceFactories["DataPieceVector<string>"] = func(label string, _ uint32, def gjson.Result) Piece {
		p := newVectorString(label)
		if def.IsArray() {
			var values []string
			for _, v := range def.Array() {
				values = append(values, v.String())
			}
			p.SetDefault(values)
		}
		return p
	}
	pieceFactories["DataPieceStringMap<string>"] = func(label string, _ uint32, def gjson.Result) Piece {
		p := newStringMapString(label)
		if def.IsObject() {
			values := make(map[string]string)
			def.ForEach(func(k, v gjson.Result) bool {
				values[k.String()] = v.String()
				return true
			})
			p.SetDefault(values)
		}
		return p
	}
}

func registerElement[T Element]() {
	name := elementTypeName[T]()
	pieceFactories["DataPieceValue<"+name+">"] = func(label string, _ uint32, def gjson.Result) Piece {
		p := newValue[T](label)
		if def.Exists() {
			p.SetDefault(convertElement[T](def))
		}
		return p
	}
	pieceFactories["DataPieceArray<"+name+">"] = func(label string, size uint32, def gjson.Result) Piece {
		p := newArray[T](label, int(size))
		if def.IsArray() {
			p.SetDefault(convertElements[T](def))
		}
		return p
	}
	pieceFactories["DataPieceVector<"+name+">"] = func(label string, _ uint32, def gjson.Result) Piece {
		p := newVector[T](label)
		if def.IsArray() {
			p.SetDefault(convertElements[T](def))
		}
		return p
	}
	pieceFactories["DataPieceStringMap<"+name+">"] = func(label string, _ uint32, def gjson.Result) Piece {
		p := newStringMap[T](label)
		if def.IsObject() {
			values := make(map[string]T)
			def.ForEach(func(k, v gjson.Result) bool {
				values[k.String()] = convertElement[T](v)
				return true
			})
			p.SetDefault(values)
		}
		return p
	}
}

func convertElement[T Element](v gjson.Result) T {
	var out T
	switch any(out).(type) {
	case bool:
		return any(v.Bool()).(T)
	case int8:
		return any(int8(v.Int())).(T)
	case uint8:
		return any(uint8(v.Uint())).(T)
	case int16:
		return any(int16(v.Int())).(T)
	case uint16:
		return any(uint16(v.Uint())).(T)
	case int32:
		return any(int32(v.Int())).(T)
	case uint32:
		return any(uint32(v.Uint())).(T)
	case int64:
		return any(v.Int()).(T)
	case uint64:
		return any(v.Uint()).(T)
	case float32:
		return any(float32(v.Float())).(T)
	default:
		return any(v.Float()).(T)
	}
}

func convertElements[T Element](v gjson.Result) []T {
	items := v.Array()
	values := make([]T, 0, len(items))
	for _, item := range items {
		values = append(values, convertElement[T](item))
	}
	return values
}

// FromJSON rebuilds a layout from its persisted description. Pieces of
// unknown types are skipped, so layouts written by newer code still map as
// far as their known pieces go.
func FromJSON(description string) (*DataLayout, error) {
	parsed := gjson.Get(description, "data_layout")
	if !parsed.IsArray() {
		return nil, fmt.Errorf("%w: no data_layout array", vrserrors.ErrInvalidLayout)
	}
	b := NewBuilder()
	for _, item := range parsed.Array() {
		label := item.Get("name").String()
		typeName := item.Get("type").String()
		factory, ok := pieceFactories[typeName]
		if !ok {
			continue
		}
		size := uint32(item.Get("size").Uint())
		p := factory(label, size, item.Get("default"))
		if item.Get("required").Bool() {
			p.SetRequired(true)
		}
		if tags := item.Get("tags"); tags.IsObject() {
			tags.ForEach(func(k, v gjson.Result) bool {
				p.SetTag(k.String(), v.String())
				return true
			})
		}
		b.addPiece(p)
	}
	return b.Build(), nil
}
