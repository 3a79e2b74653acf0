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

package file

// DataReference points at up to two caller-owned buffers that together
// receive one record's payload, so a header struct and a trailing byte block
// can be filled in one read without an intermediate copy.
type DataReference struct {
	first  []byte
	second []byte
}

func NewDataReference(first, second []byte) DataReference {
	return DataReference{first: first, second: second}
}

func (r *DataReference) UseBuffer(buf []byte) {
	r.first = buf
	r.second = nil
}

func (r *DataReference) UseBuffers(first, second []byte) {
	r.first = first
	r.second = second
}

func (r *DataReference) Clear() {
	r.first = nil
	r.second = nil
}

// Size is the total byte count the reference can receive.
func (r *DataReference) Size() uint32 {
	return uint32(len(r.first) + len(r.second))
}

func (r *DataReference) First() []byte  { return r.first }
func (r *DataReference) Second() []byte { return r.second }

// ReadFrom fills both buffers, in order, from the record reader.
func (r *DataReference) ReadFrom(reader RecordReader) error {
	if len(r.first) > 0 {
		if err := reader.Read(r.first); err != nil {
			return err
		}
	}
	if len(r.second) > 0 {
		if err := reader.Read(r.second); err != nil {
			return err
		}
	}
	return nil
}
