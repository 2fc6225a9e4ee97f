// Package activity is a reference sensors.Sensor implementation: it detects
// user activity (Idle/Gaming/Coding/Streaming/Browsing/Unknown) by scanning
// running process names and emits eventbus.UserActivityChanged on change,
// subject to a cooldown. Grounded on
// original_source/ghost/sensors/activity_sensor.py's category lists and
// priority order (gaming > coding > streaming > browsing > idle), adapted
// from psutil's process_iter to /proc scanning, matching
// internal/cryostasis/probe's portable-subset approach.
package activity

import (
	"context"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Saguny/projectghost/internal/eventbus"
)

const defaultCooldown = 30 * time.Second

// Categories are the process-name allowlists used to classify activity.
// Names are compared case-insensitively.
type Categories struct {
	Gaming    []string
	Coding    []string
	Streaming []string
	Browsers  []string
}

// DefaultCategories mirrors the original sensor's app lists.
func DefaultCategories() Categories {
	return Categories{
		Gaming: []string{
			"rocketleague.exe", "steam.exe", "epicgameslauncher.exe",
			"league of legends.exe", "valorant.exe", "cs2.exe", "minecraft.exe",
		},
		Coding: []string{
			"code.exe", "pycharm64.exe", "devenv.exe", "sublime_text.exe", "notepad++.exe",
		},
		Streaming: []string{
			"obs64.exe", "streamlabs obs.exe", "spotify.exe", "chrome.exe", "firefox.exe",
		},
		Browsers: []string{
			"chrome.exe", "firefox.exe", "msedge.exe", "brave.exe",
		},
	}
}

// Sensor implements sensors.Sensor, tracking the last detected activity and
// publishing changes to the event bus.
type Sensor struct {
	bus        *eventbus.Bus
	categories Categories
	cooldown   time.Duration

	mu            sync.Mutex
	lastActivity  string
	lastEventTime time.Time
}

// New constructs a Sensor starting in the "Unknown" state.
func New(bus *eventbus.Bus, categories Categories) *Sensor {
	return &Sensor{
		bus:          bus,
		categories:   categories,
		cooldown:     defaultCooldown,
		lastActivity: "Unknown",
	}
}

// GetContext implements sensors.Sensor: detects the current activity,
// publishes a change event (subject to cooldown), and returns a short
// context string for the Think stage's input.
func (s *Sensor) GetContext(ctx context.Context) string {
	activity, app := s.detectActivity()

	s.mu.Lock()
	old := s.lastActivity
	changed := activity != old
	canEmit := changed && time.Since(s.lastEventTime) >= s.cooldown
	if canEmit {
		s.lastEventTime = time.Now()
	}
	if changed {
		s.lastActivity = activity
	}
	s.mu.Unlock()

	if canEmit {
		s.bus.Publish(eventbus.UserActivityChanged{
			Timestamp: time.Now(),
			Old:       old,
			New:       activity,
			AppName:   app,
		})
	}

	if app != "" {
		return "User Activity: " + activity + "\nActive App: " + app
	}
	return "User Activity: " + activity
}

func (s *Sensor) detectActivity() (string, string) {
	running := runningProcessNames()

	for _, name := range s.categories.Gaming {
		if running[strings.ToLower(name)] {
			return "Gaming", name
		}
	}
	for _, name := range s.categories.Coding {
		if running[strings.ToLower(name)] {
			return "Coding", name
		}
	}
	for _, name := range s.categories.Streaming {
		if strings.EqualFold(name, "discord.exe") {
			continue
		}
		if running[strings.ToLower(name)] {
			return "Streaming", name
		}
	}
	for _, name := range s.categories.Browsers {
		if running[strings.ToLower(name)] {
			return "Browsing", name
		}
	}
	return "Idle", ""
}

func runningProcessNames() map[string]bool {
	result := make(map[string]bool)
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return result
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := strconv.Atoi(entry.Name()); err != nil {
			continue
		}
		comm, err := os.ReadFile("/proc/" + entry.Name() + "/comm")
		if err != nil {
			continue
		}
		result[strings.ToLower(strings.TrimSpace(string(comm)))] = true
	}
	return result
}
