// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

package services

import (
	"context"
	"time"

	"github.com/tomtom215/corridor/internal/logging"
)

// Task performs one cleanup pass and returns how many items it removed.
type Task func(ctx context.Context) int

// JanitorService runs a Task every interval until its context ends.
type JanitorService struct {
	name     string
	interval time.Duration
	task     Task
}

// NewJanitorService creates a janitor. A non-positive interval uses one
// minute.
func NewJanitorService(name string, interval time.Duration, task Task) *JanitorService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &JanitorService{name: name, interval: interval, task: task}
}

// Serve implements suture.Service.
func (j *JanitorService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := j.task(ctx); n > 0 {
				logging.Debug().Str("janitor", j.name).Int("removed", n).Msg("Cleanup pass")
			}
		}
	}
}

func (j *JanitorService) String() string {
	return j.name
}
