package sim

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/encodeous/nbrd/core"
	"github.com/encodeous/nbrd/state"
)

// Node is one simulated sensor node.
type Node struct {
	Spec   NodeSpec
	Cfg    state.LocalCfg
	Radio  *VirtualRadio
	Clock  VirtualClock
	Engine *core.Engine
	Events []state.Event
}

// Network runs a scenario in virtual time. Every node shares one Loop, so
// the whole network is single threaded and deterministic for a given seed.
type Network struct {
	Cfg    ScenarioCfg
	Loop   *Loop
	Medium *Medium
	Nodes  []*Node
	Log    *slog.Logger
	// OnEvent observes every presence event of every node
	OnEvent func(node state.PeerId, e state.Event)

	started bool
}

func NewNetwork(cfg ScenarioCfg, log *slog.Logger) *Network {
	n := &Network{
		Cfg:  cfg,
		Loop: &Loop{},
		Log:  log,
	}
	n.Medium = NewMedium(cfg.Medium, rand.New(rand.NewPCG(cfg.Seed, math.MaxUint64)), n.Loop.After)
	for _, spec := range cfg.Nodes {
		n.addNode(spec)
	}
	return n
}

func (n *Network) addNode(spec NodeSpec) {
	cfg := n.Cfg.NodeCfg(spec)
	node := &Node{
		Spec: spec,
		Cfg:  cfg,
	}
	node.Radio = n.Medium.Attach(spec.Id, func() Position {
		return Trajectory(spec.Waypoints, n.Elapsed())
	})
	node.Clock = VirtualClock{
		Loop:   n.Loop,
		Timing: cfg.Timing,
		Boot:   n.Ticks(spec.StartOffset),
	}
	var rng state.Rand
	if spec.Seed != 0 {
		rng = rand.New(rand.NewPCG(spec.Seed, uint64(spec.Id)))
	} else {
		rng = rand.New(rand.NewPCG(n.Cfg.Seed, uint64(spec.Id)))
	}
	hw := state.Hardware{
		Radio: node.Radio,
		Clock: node.Clock,
		Rand:  rng,
	}
	log := n.Log.With("node", spec.Id)
	sink := core.Sinks{
		core.LogSink{Log: log},
		core.EventFunc(func(e state.Event) {
			node.Events = append(node.Events, e)
			if n.OnEvent != nil {
				n.OnEvent(spec.Id, e)
			}
		}),
	}
	node.Engine = core.NewEngine(cfg, hw, n.Loop, sink, log)
	node.Radio.OnReceive(node.Engine.Receive)
	n.Nodes = append(n.Nodes, node)
}

// Ticks converts scenario time to loop ticks.
func (n *Network) Ticks(d time.Duration) uint64 {
	return uint64(d) * uint64(n.Cfg.Node.Timing.TimerRate) / uint64(time.Second)
}

// Elapsed is the scenario time of the loop.
func (n *Network) Elapsed() time.Duration {
	return time.Duration(n.Loop.Now() * uint64(time.Second) / uint64(n.Cfg.Node.Timing.TimerRate))
}

func (n *Network) Node(id state.PeerId) *Node {
	for _, node := range n.Nodes {
		if node.Spec.Id == id {
			return node
		}
	}
	return nil
}

// Start boots every node at its start offset.
func (n *Network) Start() {
	if n.started {
		return
	}
	n.started = true
	for _, node := range n.Nodes {
		n.Loop.At(node.Clock.Boot, func() {
			if err := node.Engine.Start(); err != nil {
				n.Log.Error("failed to start node", "node", node.Spec.Id, "error", err)
			}
		})
	}
}

// RunFor starts the network if needed and advances the loop by d.
func (n *Network) RunFor(d time.Duration) {
	n.Start()
	n.Loop.Run(n.Loop.Now() + n.Ticks(d))
}

// Run plays the whole scenario.
func (n *Network) Run() {
	if left := n.Cfg.Duration - n.Elapsed(); left > 0 {
		n.RunFor(left)
	}
}
