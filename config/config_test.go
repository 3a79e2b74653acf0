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

package config

import (
	// standard libraries.
	"os"
	"path/filepath"
	"testing"
	"time"

	// third-party libraries.
	. "github.com/smartystreets/goconvey/convey"

	// this project.
	"github.com/linkall-labs/vrs/progress"
	"github.com/linkall-labs/vrs/vrserrors"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vrs.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestInitConfig(t *testing.T) {
	Convey("a yaml file loads into a validated config", t, func() {
		cacheDir := t.TempDir()
		t.Setenv("VRS_TEST_CACHE_DIR", cacheDir)
		path := writeConfigFile(t, `
details_cache_dir: ${VRS_TEST_CACHE_DIR}
auto_write_fixed_index: true
progress_update_delay: 5s
`)
		c, err := InitConfig(path)
		So(err, ShouldBeNil)
		So(c.DetailsCacheDir, ShouldEqual, cacheDir)
		So(c.AutoWriteFixedIndex, ShouldBeTrue)
		So(c.ProgressUpdateDelay, ShouldEqual, 5*time.Second)
		So(c.SilentProgress, ShouldBeFalse)
	})

	Convey("a missing file is an error", t, func() {
		_, err := InitConfig(filepath.Join(t.TempDir(), "no_such.yaml"))
		So(err, ShouldNotBeNil)
	})

	Convey("validation failures", t, func() {
		Convey("negative progress delay", func() {
			path := writeConfigFile(t, "progress_update_delay: -1s\n")
			_, err := InitConfig(path)
			So(err, ShouldBeError, vrserrors.ErrInvalidReq)
		})

		Convey("cache dir that does not exist", func() {
			path := writeConfigFile(t, "details_cache_dir: /no/such/directory\n")
			_, err := InitConfig(path)
			So(err, ShouldNotBeNil)
		})

		Convey("cache dir that is a file", func() {
			notADir := writeConfigFile(t, "")
			path := writeConfigFile(t, "details_cache_dir: "+notADir+"\n")
			_, err := InitConfig(path)
			So(err, ShouldBeError, vrserrors.ErrInvalidReq)
		})
	})
}

func TestReaderOptions(t *testing.T) {
	Convey("open options follow the configuration", t, func() {
		c := &Config{
			DetailsCacheDir:     "/tmp/vrs",
			AutoWriteFixedIndex: true,
		}
		opts := c.ReaderOptions()
		So(opts.DetailsCacheDir, ShouldEqual, "/tmp/vrs")
		So(opts.AutoWriteFixedIndex, ShouldBeTrue)
		So(opts.Progress, ShouldBeNil)

		Convey("silent progress wins", func() {
			c.SilentProgress = true
			c.ProgressUpdateDelay = time.Second
			So(c.ReaderOptions().Progress, ShouldResemble, progress.Silent{})
		})

		Convey("an update delay selects a throttled logger", func() {
			c.ProgressUpdateDelay = 10 * time.Second
			logger, ok := c.ReaderOptions().Progress.(*progress.LogLogger)
			So(ok, ShouldBeTrue)
			So(logger.UpdateDelay, ShouldEqual, 10*time.Second)
		})
	})
}
