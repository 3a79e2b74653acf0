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

// Package progress reports the steps of long file operations, index reads
// and rebuild scans in particular, and lets the caller cancel them.
package progress

import (
	// standard libraries.
	"context"
	"time"

	// first-party libraries.
	"github.com/linkall-labs/vanus/observability/log"
)

// Logger receives step and progress notifications from long operations.
// Operations poll KeepGoing between units of work and abort as soon as it
// returns false, keeping whatever partial state they built.
type Logger interface {
	LogNewStep(name string)
	// LogProgress reports progress of the current step, in percent.
	LogProgress(name string, percent int)
	KeepGoing() bool
}

// Silent discards notifications and never cancels.
type Silent struct{}

func (Silent) LogNewStep(string)       {}
func (Silent) LogProgress(string, int) {}
func (Silent) KeepGoing() bool         { return true }

// Default is used whenever the caller does not provide a logger.
var Default Logger = &LogLogger{}

// LogLogger writes steps to the process log, throttling progress updates,
// and cancels when its context is done.
type LogLogger struct {
	Ctx context.Context

	// UpdateDelay throttles successive LogProgress lines of one step.
	// Zero means 2s.
	UpdateDelay time.Duration

	step     string
	nextTime time.Time
}

func (l *LogLogger) ctx() context.Context {
	if l.Ctx != nil {
		return l.Ctx
	}
	return context.Background()
}

func (l *LogLogger) LogNewStep(name string) {
	l.step = name
	l.nextTime = time.Time{}
	log.Info(l.ctx(), "file operation step.", map[string]interface{}{
		"step": name,
	})
}

func (l *LogLogger) LogProgress(name string, percent int) {
	now := time.Now()
	if percent < 100 && now.Before(l.nextTime) && name == l.step {
		return
	}
	l.step = name
	delay := l.UpdateDelay
	if delay == 0 {
		delay = 2 * time.Second
	}
	l.nextTime = now.Add(delay)
	log.Info(l.ctx(), "file operation progress.", map[string]interface{}{
		"step":    name,
		"percent": percent,
	})
}

func (l *LogLogger) KeepGoing() bool {
	if l.Ctx == nil {
		return true
	}
	select {
	case <-l.Ctx.Done():
		return false
	default:
		return true
	}
}
