//go:build integration

package integration

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"runtime/pprof"
	"sync"
	"time"

	"github.com/encodeous/nbrd/core"
	"github.com/encodeous/nbrd/sim"
	"github.com/encodeous/nbrd/state"
)

// VirtualHarness runs real host runtimes, one per node, on a shared in-memory medium.
type VirtualHarness struct {
	Scenario sim.ScenarioCfg
	Context  context.Context
	Cancel   context.CancelCauseFunc
	Medium   *sim.Medium
	States   []*state.State
	Radios   []*sim.VirtualRadio

	mu     sync.Mutex
	moves  map[state.PeerId]sim.Position
	starts time.Time
	wg     sync.WaitGroup
}

// NewHarness returns a harness with a fast, always-awake node template so
// presence converges within a few seconds of wall time.
func NewHarness() *VirtualHarness {
	v := &VirtualHarness{
		moves: make(map[state.PeerId]sim.Position),
	}
	v.Scenario.Node = state.LocalCfg{
		Grid: state.GridCfg{Rows: 1, Cols: 4},
		Presence: state.PresenceCfg{
			DetectThreshold: 1,
			AbsentThreshold: 1,
		},
	}
	v.Scenario.ApplyDefaults()
	return v
}

func (v *VirtualHarness) NewNode(id state.PeerId, x, y float64) {
	v.Scenario.Nodes = append(v.Scenario.Nodes, sim.NodeSpec{
		Id:        id,
		Waypoints: []sim.Waypoint{{Position: sim.Position{X: x, Y: y}}},
	})
}

// Move teleports a running node.
func (v *VirtualHarness) Move(id state.PeerId, x, y float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.moves[id] = sim.Position{X: x, Y: y}
}

func (v *VirtualHarness) position(spec sim.NodeSpec) sim.Position {
	v.mu.Lock()
	defer v.mu.Unlock()
	if p, ok := v.moves[spec.Id]; ok {
		return p
	}
	return sim.Trajectory(spec.Waypoints, time.Since(v.starts))
}

func (v *VirtualHarness) Start() chan error {
	ctx, cancel := context.WithCancelCause(context.Background())
	v.Context = ctx
	v.Cancel = cancel
	v.starts = time.Now()
	timing := v.Scenario.Node.Timing
	v.Medium = sim.NewMedium(v.Scenario.Medium, rand.New(rand.NewPCG(1, 2)), func(delay state.Ticks, fn func()) {
		time.AfterFunc(timing.Duration(delay), fn)
	})
	v.States = make([]*state.State, len(v.Scenario.Nodes))
	v.Radios = make([]*sim.VirtualRadio, len(v.Scenario.Nodes))
	errChan := make(chan error, 128) // a large number so we dont get blocked

	for idx, spec := range v.Scenario.Nodes {
		cfg := v.Scenario.NodeCfg(spec)
		cfg.Seed = uint64(idx + 1)
		v.Radios[idx] = v.Medium.Attach(spec.Id, func() sim.Position {
			return v.position(spec)
		})
		hw := state.Hardware{
			Radio: v.Radios[idx],
			Clock: core.NewHostClock(timing.ClockRate),
			Rand:  core.NewRand(cfg.Seed, cfg.Id),
		}
		v.wg.Add(1)
		go func() {
			defer v.wg.Done()
			labels := pprof.Labels("nbrd node", spec.Id.String())
			pprof.Do(context.Background(), labels, func(_ context.Context) {
				err := core.Start(cfg, slog.LevelDebug, hw, ctx, &v.States[idx])
				if err != nil {
					errChan <- err
				}
			})
		}()
	}
	// wait for all nodes to start
	for {
		started := true
		for idx := range v.Scenario.Nodes {
			if v.States[idx] == nil || !v.States[idx].Started.Load() {
				started = false
				break
			}
		}
		if started {
			break
		}
		select {
		case <-ctx.Done():
			return errChan
		case <-time.After(time.Millisecond * 50):
		case err := <-errChan:
			errChan <- err
			return errChan
		}
	}
	return errChan
}

func (v *VirtualHarness) Stop() {
	v.Cancel(errors.New("stopping harness"))
	v.wg.Wait()
}

// Confirmed asks node idx whether it currently considers peer present.
func (v *VirtualHarness) Confirmed(idx int, peer state.PeerId) bool {
	res, err := v.States[idx].DispatchWait(func(s *state.State) (any, error) {
		return core.Get[*core.Discovery](s).Tracker.Confirmed(peer), nil
	})
	return err == nil && res.(bool)
}
