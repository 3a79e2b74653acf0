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

package compression

import (
	// third-party libraries.
	"github.com/klauspost/compress/zstd"
)

// Compressor turns payloads into zstd frames. One encoder per preset is
// created lazily and reused, the zero value is ready to use.
type Compressor struct {
	encoders map[Preset]*zstd.Encoder
}

func NewCompressor() *Compressor {
	return &Compressor{encoders: make(map[Preset]*zstd.Encoder)}
}

func (c *Compressor) encoder(preset Preset) (*zstd.Encoder, error) {
	if enc, ok := c.encoders[preset]; ok {
		return enc, nil
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(preset.level()))
	if err != nil {
		return nil, err
	}
	if c.encoders == nil {
		c.encoders = make(map[Preset]*zstd.Encoder)
	}
	c.encoders[preset] = enc
	return enc, nil
}

// CompressFrame compresses src into a single self-contained zstd frame,
// appended to dst.
func (c *Compressor) CompressFrame(dst, src []byte, preset Preset) ([]byte, error) {
	enc, err := c.encoder(preset)
	if err != nil {
		return nil, err
	}
	return enc.EncodeAll(src, dst), nil
}

// Close releases the encoders. The compressor must not be used afterwards.
func (c *Compressor) Close() {
	for _, enc := range c.encoders {
		_ = enc.Close()
	}
	c.encoders = nil
}
