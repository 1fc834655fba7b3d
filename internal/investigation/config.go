package investigation

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNoEvents is returned when the configuration parses but contains no
	// events; callers render an empty state rather than a broken timeline.
	ErrNoEvents = errors.New("investigation has no events")
)

// LoadFile reads and validates an investigation configuration from a YAML
// file.
func LoadFile(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read investigation config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates investigation YAML.
func Parse(raw []byte) (*Data, error) {
	var data Data
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse investigation config: %w", err)
	}
	if err := Validate(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Validate enforces the structural invariants: required header times, at
// least one event, 1-5 clips per event with at least one address each,
// unique event ids, and in-range annotation coordinates.
func Validate(data *Data) error {
	if len(data.Events) == 0 {
		return ErrNoEvents
	}

	v := validator.New()
	if err := v.Struct(data); err != nil {
		return fmt.Errorf("invalid investigation config: %w", err)
	}

	seen := make(map[string]struct{}, len(data.Events))
	for i := range data.Events {
		ev := &data.Events[i]
		if _, dup := seen[ev.ID]; dup {
			return fmt.Errorf("duplicate event id %q", ev.ID)
		}
		seen[ev.ID] = struct{}{}

		for j := range ev.Clips {
			if ev.Clips[j].URL.SegmentCount() == 0 {
				return fmt.Errorf("event %q clip %d has no media address", ev.ID, j)
			}
		}
	}
	return nil
}
