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

package record

import (
	// standard libraries.
	"fmt"
	"strconv"
	"strings"
)

// StreamType identifies the family of devices or producers a stream belongs
// to. Values are persisted on disk, never renumber them.
type StreamType uint16

const (
	// StreamTypeIndex and StreamTypeDescription are reserved for the file's
	// own bookkeeping records.
	StreamTypeIndex       StreamType = 1
	StreamTypeDescription StreamType = 2

	StreamTypeImage      StreamType = 100
	StreamTypeAudio      StreamType = 101
	StreamTypeAnnotation StreamType = 102
	StreamTypeArchive    StreamType = 103

	StreamTypeUndefined StreamType = 65535
)

// StreamID identifies one logical stream in a file: a stream type plus an
// instance number to tell same-typed streams apart. The zero value is not a
// valid id, use NewStreamID.
type StreamID struct {
	Type     StreamType
	Instance uint16
}

func NewStreamID(t StreamType, instance uint16) StreamID {
	return StreamID{Type: t, Instance: instance}
}

// UndefinedStreamID is used for default initializations and searches that do
// not filter by stream.
var UndefinedStreamID = StreamID{Type: StreamTypeUndefined}

func (id StreamID) IsValid() bool {
	return id.Type != StreamTypeUndefined && id.Type != 0
}

// Internal tells if the stream carries file bookkeeping records rather than
// user data.
func (id StreamID) Internal() bool {
	return id.Type == StreamTypeIndex || id.Type == StreamTypeDescription
}

// Less provides the total order of stream ids: by type, then instance.
func (id StreamID) Less(other StreamID) bool {
	if id.Type != other.Type {
		return id.Type < other.Type
	}
	return id.Instance < other.Instance
}

// NumericName formats the id the way it is spelled in tags and logs,
// e.g. "100-1".
func (id StreamID) NumericName() string {
	return fmt.Sprintf("%d-%d", id.Type, id.Instance)
}

func (id StreamID) String() string {
	return id.NumericName()
}

// ParseStreamID parses a "type-instance" numeric name.
func ParseStreamID(s string) (StreamID, error) {
	dash := strings.IndexByte(s, '-')
	if dash <= 0 {
		return UndefinedStreamID, fmt.Errorf("record: malformed stream id %q", s)
	}
	t, err := strconv.ParseUint(s[:dash], 10, 16)
	if err != nil {
		return UndefinedStreamID, fmt.Errorf("record: malformed stream id %q", s)
	}
	i, err := strconv.ParseUint(s[dash+1:], 10, 16)
	if err != nil {
		return UndefinedStreamID, fmt.Errorf("record: malformed stream id %q", s)
	}
	return StreamID{Type: StreamType(t), Instance: uint16(i)}, nil
}
