package pyenv

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrInvalidPin = errors.New("invalid requirement pin")

// Pin is an exact `name==version` requirement.
type Pin struct {
	Name    string
	Version string
}

var (
	pinNamePattern    = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9._-]*[A-Za-z0-9])?(\[[A-Za-z0-9._,-]+\])?$`)
	pinVersionPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9.+!_-]*$`)
)

func ParsePin(s string) (Pin, error) {
	name, version, ok := strings.Cut(strings.TrimSpace(s), "==")
	if !ok {
		return Pin{}, fmt.Errorf("%w '%s': must be of the form name==version", ErrInvalidPin, s)
	}

	name, version = strings.TrimSpace(name), strings.TrimSpace(version)
	if !pinNamePattern.MatchString(name) {
		return Pin{}, fmt.Errorf("%w '%s': bad package name", ErrInvalidPin, s)
	}
	if strings.HasPrefix(version, "=") || !pinVersionPattern.MatchString(version) {
		return Pin{}, fmt.Errorf("%w '%s': bad version", ErrInvalidPin, s)
	}

	return Pin{Name: name, Version: version}, nil
}

func ParsePins(lines []string) ([]Pin, error) {
	pins := make([]Pin, 0, len(lines))
	seen := make(map[string]bool)
	for _, line := range lines {
		pin, err := ParsePin(line)
		if err != nil {
			return nil, err
		}

		key := strings.ToLower(pin.Name)
		if seen[key] {
			return nil, fmt.Errorf("%w '%s': pinned more than once", ErrInvalidPin, pin.Name)
		}
		seen[key] = true

		pins = append(pins, pin)
	}
	return pins, nil
}

func (p Pin) String() string {
	return p.Name + "==" + p.Version
}
