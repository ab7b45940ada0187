// Package script reads YAML action scripts and replays them against a store.
//
//	name: two tabs
//	steps:
//	  - kind: add_tab
//	    payload: {url: https://a.test/, id: a, select: true}
//	  - wait: true
//	  - kind: add_tab
//	    payload: {url: https://b.test/, id: b}
//	  - sleep: 50ms
//	  - expect: {tab_count: 2, selected_tab_id: a}
//
// A step is exactly one of an action (kind with optional payload), a wait for
// outstanding engine work, a sleep, or an expectation on the current state.
package script

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aretw0/tabstate/pkg/codec"
	"github.com/aretw0/tabstate/pkg/domain"
	"gopkg.in/yaml.v3"
)

// ErrExpectation is returned by Run when an expect step does not hold.
var ErrExpectation = errors.New("expectation failed")

// Script is a parsed action script.
type Script struct {
	Name  string
	Steps []Step
}

// Step is one line of a script. Action is decoded when the script is parsed.
type Step struct {
	Action domain.Action
	Wait   bool
	Sleep  time.Duration
	Expect *Expect
}

// Expect checks the state after every preceding step has been applied.
type Expect struct {
	TabCount      *int              `yaml:"tab_count"`
	SelectedTabID *string           `yaml:"selected_tab_id"`
	URLs          map[string]string `yaml:"urls"`
}

type rawScript struct {
	Name  string    `yaml:"name"`
	Steps []rawStep `yaml:"steps"`
}

type rawStep struct {
	codec.Envelope `yaml:",inline"`
	Wait           bool          `yaml:"wait"`
	Sleep          time.Duration `yaml:"sleep"`
	Expect         *Expect       `yaml:"expect"`
}

// Load parses the script at path.
func Load(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script: %w", err)
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a script and every action in it.
func Parse(r io.Reader) (*Script, error) {
	var raw rawScript
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty script")
		}
		return nil, fmt.Errorf("parse script: %w", err)
	}

	s := &Script{Name: raw.Name, Steps: make([]Step, 0, len(raw.Steps))}
	for i, rs := range raw.Steps {
		step, err := rs.build()
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		s.Steps = append(s.Steps, step)
	}
	return s, nil
}

func (rs rawStep) build() (Step, error) {
	set := 0
	if rs.Kind != "" {
		set++
	}
	if rs.Wait {
		set++
	}
	if rs.Sleep != 0 {
		set++
	}
	if rs.Expect != nil {
		set++
	}
	switch {
	case set == 0:
		return Step{}, errors.New("step is empty")
	case set > 1:
		return Step{}, errors.New("step must be exactly one of kind, wait, sleep or expect")
	case rs.Kind == "" && rs.Payload != nil:
		return Step{}, errors.New("payload without kind")
	case rs.Sleep < 0:
		return Step{}, fmt.Errorf("negative sleep %s", rs.Sleep)
	}

	if rs.Kind == "" {
		return Step{Wait: rs.Wait, Sleep: rs.Sleep, Expect: rs.Expect}, nil
	}
	action, err := codec.DecodeEnvelope(rs.Envelope)
	if err != nil {
		return Step{}, err
	}
	return Step{Action: action}, nil
}

// Actions returns the actions of the script in order.
func (s *Script) Actions() []domain.Action {
	var out []domain.Action
	for _, st := range s.Steps {
		if st.Action != nil {
			out = append(out, st.Action)
		}
	}
	return out
}
