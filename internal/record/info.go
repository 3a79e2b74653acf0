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

// Info is one entry of a file's record index.
type Info struct {
	// Timestamp is the record's presentation time.
	Timestamp float64
	// FileOffset is the absolute byte offset of the record in the whole file.
	FileOffset int64
	// StreamID tells which stream produced the record.
	StreamID StreamID
	// Type tells what kind of payload the record carries.
	Type Type
}

// Less is the index order: by timestamp, ties broken by stream id, then by
// file offset, so the sort is stable for same-timestamp records of one stream.
func (r *Info) Less(other *Info) bool {
	if r.Timestamp != other.Timestamp {
		return r.Timestamp < other.Timestamp
	}
	if r.StreamID != other.StreamID {
		return r.StreamID.Less(other.StreamID)
	}
	return r.FileOffset < other.FileOffset
}
