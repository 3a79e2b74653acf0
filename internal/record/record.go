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

// Package record defines the in-memory model of records: stream identities,
// record types, and index entries.
package record

import (
	// standard libraries.
	"math"
)

// Type tells what kind of payload a record carries.
type Type uint8

const (
	TypeUndefined     Type = 0
	TypeState         Type = 1
	TypeConfiguration Type = 2
	TypeData          Type = 3
	// TypeTags is internal: tags pseudo-records are consumed while opening a
	// file and never surface in the public index.
	TypeTags Type = 4

	typeCount = 5
)

func (t Type) IsValid() bool {
	return t > TypeUndefined && t < typeCount
}

func (t Type) String() string {
	switch t {
	case TypeState:
		return "State"
	case TypeConfiguration:
		return "Configuration"
	case TypeData:
		return "Data"
	case TypeTags:
		return "Tags"
	}
	return "Undefined"
}

// ParseType is the inverse of Type.String.
func ParseType(s string) Type {
	switch s {
	case "State":
		return TypeState
	case "Configuration":
		return TypeConfiguration
	case "Data":
		return TypeData
	case "Tags":
		return TypeTags
	}
	return TypeUndefined
}

const (
	// TagsTimestamp is the sentinel timestamp of tags pseudo-records, chosen
	// so they always sort before every user record.
	TagsTimestamp = -math.MaxFloat64
	// MaxTimestamp is used by index and description records, so they always
	// sort after every user record.
	MaxTimestamp = math.MaxFloat64
)
