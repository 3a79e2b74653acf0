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

// Package description reads and writes the description record, which holds
// the file's tags and each stream's tags.
package description

import (
	// standard libraries.
	"fmt"
	"sort"
	"strings"

	// third-party libraries.
	"github.com/cespare/xxhash/v2"
	"github.com/tidwall/gjson"

	// this project.
	"github.com/linkall-labs/vrs/internal/record"
)

const (
	// LegacyFormatVersion is the original json based description format.
	LegacyFormatVersion = 1
	// FormatVersion is the current description format.
	FormatVersion = 2
)

// Reserved stream tag names, stored alongside user tags but managed by the
// file layer itself.
const (
	TagOriginalStreamName = "VRS_Original_Recordable_Name"
	TagStreamFlavor       = "VRS_Recordable_Flavor"
	TagStreamSerialNumber = "VRS_Stream_Serial_Number"
)

// StreamTags holds one stream's tags: the user tags set by the producer, and
// the internal tags the file layer maintains, record format descriptions in
// particular.
type StreamTags struct {
	User map[string]string
	VRS  map[string]string
}

func NewStreamTags() *StreamTags {
	return &StreamTags{
		User: make(map[string]string),
		VRS:  make(map[string]string),
	}
}

// Flavor returns the stream's flavor, empty when none was set.
func (t *StreamTags) Flavor() string {
	return t.VRS[TagStreamFlavor]
}

// stripInstanceID removes a " #<digits>" suffix from a stream name. Old
// files stored the name with the instance number, which may change between
// recordings, so it is dropped to make tag compares work.
func stripInstanceID(name string) string {
	if len(name) < 4 {
		return name
	}
	suffix := strings.LastIndex(name, " #")
	if suffix < 0 || suffix+2 >= len(name) {
		return name
	}
	for _, c := range name[suffix+2:] {
		if c < '0' || c > '9' {
			return name
		}
	}
	return name[:suffix]
}

// UpgradeStreamTags fixes internal tags carried over from older files.
func UpgradeStreamTags(vrsTags map[string]string) {
	if name, ok := vrsTags[TagOriginalStreamName]; ok {
		vrsTags[TagOriginalStreamName] = stripInstanceID(name)
	}
}

// parseLegacyStreamDescription extracts the stream name and user tags from a
// legacy json description, {"name":..., "tags":{...}}.
func parseLegacyStreamDescription(jsonStr string) (string, map[string]string) {
	tags := make(map[string]string)
	parsed := gjson.Parse(jsonStr)
	if !parsed.IsObject() {
		return "", tags
	}
	name := parsed.Get("name").String()
	if t := parsed.Get("tags"); t.IsObject() {
		t.ForEach(func(key, value gjson.Result) bool {
			if value.Type == gjson.String {
				tags[key.String()] = value.String()
			}
			return true
		})
	}
	return name, tags
}

// parseLegacyFileTags extracts the file tags from their legacy json form.
func parseLegacyFileTags(jsonStr string) map[string]string {
	tags := make(map[string]string)
	parsed := gjson.Parse(jsonStr)
	if parsed.IsObject() {
		parsed.ForEach(func(key, value gjson.Result) bool {
			if value.Type == gjson.String {
				tags[key.String()] = value.String()
			}
			return true
		})
	}
	return tags
}

// Some user tags are massive, hashing is capped per value.
const maxHashedTagLength = 2000

func ingestTagMap(digester *xxhash.Digest, tags map[string]string, maxLength int) {
	_, _ = digester.WriteString("map<string, string>")
	for _, name := range sortedKeys(tags) {
		_, _ = digester.WriteString(name)
		value := tags[name]
		if maxLength > 0 && len(value) > maxLength {
			value = value[:maxLength]
		}
		_, _ = digester.WriteString(value)
	}
}

// CreateStreamSerialNumbers synthesizes a serial number for every stream
// that has none, from the file tags, the stream's own tags and its position
// among same-typed streams. The derivation is deterministic, so reopening
// the same file yields the same serial numbers.
func CreateStreamSerialNumbers(
	fileTags map[string]string, streamTags map[record.StreamID]*StreamTags,
) {
	var fileTagsHash string
	streamCounters := make(map[record.StreamType]uint16)
	for _, id := range SortedStreamIDs(streamTags) {
		tags := streamTags[id]
		if tags.VRS == nil {
			tags.VRS = make(map[string]string)
		}
		streamCounters[id.Type]++
		if tags.VRS[TagStreamSerialNumber] != "" {
			continue
		}
		if fileTagsHash == "" {
			digester := xxhash.New()
			ingestTagMap(digester, fileTags, maxHashedTagLength)
			fileTagsHash = fmt.Sprintf("%016x", digester.Sum64())
		}
		digester := xxhash.New()
		_, _ = digester.WriteString(fileTagsHash)
		ingestTagMap(digester, tags.User, maxHashedTagLength)
		// Internal tags are hashed whole, to capture any record format
		// definition difference.
		ingestTagMap(digester, tags.VRS, 0)
		_, _ = digester.WriteString(
			record.NewStreamID(id.Type, streamCounters[id.Type]).NumericName())
		tags.VRS[TagStreamSerialNumber] = fmt.Sprintf("%016x", digester.Sum64())
	}
}

// SortedStreamIDs returns the map's keys in stream id order.
func SortedStreamIDs(streamTags map[record.StreamID]*StreamTags) []record.StreamID {
	ids := make([]record.StreamID, 0, len(streamTags))
	for id := range streamTags {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
