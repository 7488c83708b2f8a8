package sim

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/encodeous/nbrd/state"
	"github.com/goccy/go-yaml"
)

type Waypoint struct {
	At       time.Duration `yaml:"at"`
	Position `yaml:",inline"`
}

// NodeSpec places one node in a scenario.
type NodeSpec struct {
	Id          state.PeerId  `yaml:"id"`
	Seed        uint64        `yaml:"seed,omitempty"`         // schedule rng seed, 0 derives one from the scenario seed
	StartOffset time.Duration `yaml:"start_offset,omitempty"` // boot time relative to the scenario start
	TxPower     *int          `yaml:"tx_power,omitempty"`     // overrides node.radio.tx_power
	Waypoints   []Waypoint    `yaml:"waypoints"`              // the node moves linearly between waypoints
}

// ScenarioCfg describes a set of nodes sharing one medium.
type ScenarioCfg struct {
	Duration time.Duration  `yaml:"duration"`
	Seed     uint64         `yaml:"seed,omitempty"`
	Medium   MediumCfg      `yaml:"medium"`
	Node     state.LocalCfg `yaml:"node"` // shared by every node, id and seed come from the node entry
	Nodes    []NodeSpec     `yaml:"nodes"`
}

func ReadScenario(path string) (*ScenarioCfg, error) {
	var cfg ScenarioCfg
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	err = yaml.Unmarshal(file, &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

func (s *ScenarioCfg) ApplyDefaults() {
	if s.Duration == 0 {
		s.Duration = time.Minute
	}
	s.Medium.applyDefaults()
	state.ApplyDefaults(&s.Node)
}

// NodeCfg returns the effective configuration of node n.
func (s *ScenarioCfg) NodeCfg(n NodeSpec) state.LocalCfg {
	cfg := s.Node
	cfg.Id = n.Id
	cfg.Seed = n.Seed
	if n.TxPower != nil {
		cfg.Radio.TxPower = *n.TxPower
	}
	state.ApplyDefaults(&cfg)
	return cfg
}

func ScenarioValidator(s *ScenarioCfg) error {
	if len(s.Nodes) == 0 {
		return errors.New("scenario has no nodes")
	}
	if s.Medium.PathLossExp <= 0 {
		return fmt.Errorf("medium.path_loss_exp must be positive, got %v", s.Medium.PathLossExp)
	}
	if s.Medium.Sigma < 0 {
		return fmt.Errorf("medium.sigma must not be negative, got %v", s.Medium.Sigma)
	}
	seen := make(map[state.PeerId]bool)
	for _, n := range s.Nodes {
		if seen[n.Id] {
			return fmt.Errorf("node %s is defined more than once", n.Id)
		}
		seen[n.Id] = true
		if n.StartOffset < 0 {
			return fmt.Errorf("node %s: start_offset must not be negative", n.Id)
		}
		if len(n.Waypoints) == 0 {
			return fmt.Errorf("node %s has no waypoints", n.Id)
		}
		for i := 1; i < len(n.Waypoints); i++ {
			if n.Waypoints[i].At < n.Waypoints[i-1].At {
				return fmt.Errorf("node %s: waypoints must be ordered by time", n.Id)
			}
		}
		cfg := s.NodeCfg(n)
		if err := state.NodeConfigValidator(&cfg); err != nil {
			return fmt.Errorf("node %s: %w", n.Id, err)
		}
	}
	return nil
}

// Trajectory returns the position at t along the waypoints, holding still
// before the first and after the last one.
func Trajectory(wps []Waypoint, t time.Duration) Position {
	if len(wps) == 0 {
		return Position{}
	}
	if t <= wps[0].At {
		return wps[0].Position
	}
	for i := 1; i < len(wps); i++ {
		a, b := wps[i-1], wps[i]
		if t >= b.At {
			continue
		}
		f := float64(t-a.At) / float64(b.At-a.At)
		return Position{
			X: a.X + (b.X-a.X)*f,
			Y: a.Y + (b.Y-a.Y)*f,
		}
	}
	return wps[len(wps)-1].Position
}
