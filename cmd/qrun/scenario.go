package main

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario describes one end-to-end boot test: how to launch QEMU and what
// the serial transcript it produces must contain. Grounded directly on
// tinyrange-cc's testrunner.TestSpec (yaml-tagged config struct, a Duration
// wrapper with a custom UnmarshalYAML for human-readable timeouts).
type Scenario struct {
	Name    string   `yaml:"name"`
	Image   string   `yaml:"image"`
	RAMMiB  int      `yaml:"ram_mib"`
	Timeout Duration `yaml:"timeout"`
	Expect  []string `yaml:"expect"` // each entry is a regexp the serial log must match, in order
}

// Duration wraps time.Duration so scenario files write "5s" instead of a
// raw nanosecond count, following tinyrange-cc's testrunner.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		*d = Duration(30 * time.Second)
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid timeout %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

// LoadScenario reads and decodes a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if s.Timeout == 0 {
		s.Timeout = Duration(30 * time.Second)
	}
	return &s, nil
}

// Matches reports whether transcript contains every expected pattern, in
// order, allowing unrelated lines between them.
func (s *Scenario) Matches(transcript string) (bool, string) {
	pos := 0
	for _, pattern := range s.Expect {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Sprintf("invalid pattern %q: %v", pattern, err)
		}
		loc := re.FindStringIndex(transcript[pos:])
		if loc == nil {
			return false, fmt.Sprintf("pattern %q not found after offset %d", pattern, pos)
		}
		pos += loc[1]
	}
	return true, ""
}
