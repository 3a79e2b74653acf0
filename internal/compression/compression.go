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

// Package compression wraps the zstd and lz4 codecs used for record payloads
// and index data.
package compression

import (
	// third-party libraries.
	"github.com/klauspost/compress/zstd"
)

// Preset selects a compression codec and effort level for new data.
type Preset int

const (
	PresetNone Preset = iota
	PresetZstdFast
	PresetZstdLight
	PresetZstdMedium
	PresetZstdHigh
	PresetZstdTight

	PresetDefault = PresetZstdMedium
)

func (p Preset) String() string {
	switch p {
	case PresetNone:
		return "none"
	case PresetZstdFast:
		return "zstd_fast"
	case PresetZstdLight:
		return "zstd_light"
	case PresetZstdMedium:
		return "zstd_medium"
	case PresetZstdHigh:
		return "zstd_high"
	case PresetZstdTight:
		return "zstd_tight"
	}
	return "unknown"
}

func (p Preset) level() zstd.EncoderLevel {
	switch p {
	case PresetZstdFast, PresetZstdLight:
		return zstd.SpeedFastest
	case PresetZstdMedium:
		return zstd.SpeedDefault
	case PresetZstdHigh:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}
