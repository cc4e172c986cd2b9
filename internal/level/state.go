package level

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// State is the saved form of a level's bodies.
type State struct {
	Bodies []Body `yaml:"bodies"`
}

// SaveState writes the live bodies as YAML.
func (l *Level) SaveState(w io.Writer) error {
	st := State{Bodies: make([]Body, 0, len(l.bodies))}
	for _, b := range l.bodies {
		st.Bodies = append(st.Bodies, *b)
	}
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(&st); err != nil {
		return fmt.Errorf("encode level state: %w", err)
	}
	return enc.Close()
}

// LoadState replaces the live bodies with those read from r.
func (l *Level) LoadState(r io.Reader) error {
	var st State
	if err := yaml.NewDecoder(r).Decode(&st); err != nil {
		return fmt.Errorf("decode level state: %w", err)
	}
	l.bodies = l.bodies[:0]
	for _, b := range st.Bodies {
		nb := b
		l.bodies = append(l.bodies, &nb)
	}
	return nil
}

// SaveStateFile writes the live bodies to path.
func (l *Level) SaveStateFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create state file: %w", err)
	}
	defer f.Close()
	if err := l.SaveState(f); err != nil {
		return err
	}
	return f.Close()
}

// LoadStateFile reads bodies from path.
func (l *Level) LoadStateFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open state file: %w", err)
	}
	defer f.Close()
	return l.LoadState(f)
}
