package deps

import (
	"regexp"
	"strings"

	"github.com/oshokin/distpack/internal/domain/release"
)

// pinSeparator separates the distribution name from the pinned version.
const pinSeparator = "=="

// distributionName matches a PEP 508 project name; extras and URLs are rejected.
var distributionName = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?$`)

// ParseManifest extracts exact pins in manifest order.
// A repeated name keeps its first position and takes the last version.
func ParseManifest(content []byte) []release.Pin {
	var (
		pins  []release.Pin
		index = make(map[string]int)
	)

	for _, line := range strings.Split(string(content), "\n") {
		pin, ok := parsePinLine(line)
		if !ok {
			continue
		}

		if i, seen := index[pin.Name]; seen {
			pins[i].Version = pin.Version

			continue
		}

		index[pin.Name] = len(pins)
		pins = append(pins, pin)
	}

	return pins
}

func parsePinLine(line string) (release.Pin, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return release.Pin{}, false
	}

	// pip treats " #" as the start of an inline comment.
	if i := strings.Index(line, " #"); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}

	if i := strings.Index(line, "\t#"); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}

	parts := strings.Split(line, pinSeparator)
	if len(parts) != 2 {
		return release.Pin{}, false
	}

	name := strings.TrimSpace(parts[0])
	version := strings.TrimSpace(parts[1])

	if !distributionName.MatchString(name) {
		return release.Pin{}, false
	}

	if version == "" || strings.ContainsAny(version, " \t,;<>!=~[]@*") {
		return release.Pin{}, false
	}

	return release.Pin{Name: name, Version: version}, true
}

// ChangedPins returns the pins of next whose name is absent from prev or whose version differs.
func ChangedPins(prev, next []release.Pin) []release.Pin {
	versions := make(map[string]string, len(prev))
	for _, p := range prev {
		versions[p.Name] = p.Version
	}

	var changed []release.Pin

	for _, p := range next {
		if v, ok := versions[p.Name]; !ok || v != p.Version {
			changed = append(changed, p)
		}
	}

	return changed
}

// SamePins reports whether both lists pin the same names to the same versions, ignoring order.
func SamePins(a, b []release.Pin) bool {
	if len(a) != len(b) {
		return false
	}

	versions := make(map[string]string, len(a))
	for _, p := range a {
		versions[p.Name] = p.Version
	}

	for _, p := range b {
		if v, ok := versions[p.Name]; !ok || v != p.Version {
			return false
		}
	}

	return true
}
