// Package status defines the coarse lifecycle status of the local cluster.
package status

import (
	"fmt"
	"strings"
)

// ClusterStatus is the last known lifecycle status of the cluster.
type ClusterStatus string

const (
	Initialized   ClusterStatus = "initialized"
	Installed     ClusterStatus = "installed"
	Running       ClusterStatus = "running"
	Stopped       ClusterStatus = "stopped"
	Crashed       ClusterStatus = "crashed"
	Deleted       ClusterStatus = "deleted"
	NotResponding ClusterStatus = "not responding"
)

var all = []ClusterStatus{Initialized, Installed, Running, Stopped, Crashed, Deleted, NotResponding}

// All returns every valid status in lifecycle order.
func All() []ClusterStatus {
	out := make([]ClusterStatus, len(all))
	copy(out, all)
	return out
}

// Valid reports whether s is one of the enumerated statuses.
func (s ClusterStatus) Valid() bool {
	for _, v := range all {
		if s == v {
			return true
		}
	}
	return false
}

func (s ClusterStatus) String() string { return string(s) }

// Healthy reports whether s is a status reached by a successful verb.
func (s ClusterStatus) Healthy() bool {
	return s != Crashed && s != NotResponding
}

// Parse converts a string into a ClusterStatus, ignoring surrounding space.
func Parse(raw string) (ClusterStatus, error) {
	s := ClusterStatus(strings.TrimSpace(raw))
	if !s.Valid() {
		return "", fmt.Errorf("unknown cluster status %q", raw)
	}
	return s, nil
}

// UnmarshalText rejects statuses outside the enumeration.
func (s *ClusterStatus) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalText writes the status literal.
func (s ClusterStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("unknown cluster status %q", string(s))
	}
	return []byte(s), nil
}
