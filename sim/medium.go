package sim

import (
	"math"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/encodeous/nbrd/state"
)

type Position struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

func (p Position) Distance(o Position) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// MediumCfg is a log-distance path loss model.
type MediumCfg struct {
	RefLoss     float64     `yaml:"ref_loss"`      // loss at 1m, dB
	PathLossExp float64     `yaml:"path_loss_exp"` // path loss exponent
	Sigma       float64     `yaml:"sigma"`         // shadowing standard deviation, dB
	Sensitivity int         `yaml:"sensitivity"`   // frames weaker than this are not received, dBm
	Airtime     state.Ticks `yaml:"airtime"`       // delay between send and delivery
}

func DefaultMediumCfg() MediumCfg {
	return MediumCfg{
		RefLoss:     40,
		PathLossExp: 2.5,
		Sensitivity: -95,
		Airtime:     64,
	}
}

func (c *MediumCfg) applyDefaults() {
	def := DefaultMediumCfg()
	if c.RefLoss == 0 {
		c.RefLoss = def.RefLoss
	}
	if c.PathLossExp == 0 {
		c.PathLossExp = def.PathLossExp
	}
	if c.Sensitivity == 0 {
		c.Sensitivity = def.Sensitivity
	}
	if c.Airtime == 0 {
		c.Airtime = def.Airtime
	}
}

// Medium carries frames between attached radios. Frames reach every other
// radio that is powered on when the airtime has elapsed. It is safe for
// concurrent use when After is.
type Medium struct {
	Cfg MediumCfg
	// After runs fn once delay timer ticks have passed
	After func(delay state.Ticks, fn func())

	mu     sync.Mutex
	rng    *rand.Rand
	radios []*VirtualRadio
}

func NewMedium(cfg MediumCfg, rng *rand.Rand, after func(delay state.Ticks, fn func())) *Medium {
	cfg.applyDefaults()
	return &Medium{
		Cfg:   cfg,
		After: after,
		rng:   rng,
	}
}

// Attach creates a radio for node id located at pos().
func (m *Medium) Attach(id state.PeerId, pos func() Position) *VirtualRadio {
	r := &VirtualRadio{
		Id:     id,
		Pos:    pos,
		medium: m,
	}
	m.mu.Lock()
	m.radios = append(m.radios, r)
	m.mu.Unlock()
	return r
}

// PathLoss is the mean loss in dB over d metres. Distances under 1m count as 1m.
func (m *Medium) PathLoss(d float64) float64 {
	return m.Cfg.RefLoss + 10*m.Cfg.PathLossExp*math.Log10(max(d, 1))
}

// Rssi samples the received strength of a frame sent at txPower over d metres.
func (m *Medium) Rssi(txPower int, d float64) int {
	rssi := float64(txPower) - m.PathLoss(d)
	if m.Cfg.Sigma > 0 {
		m.mu.Lock()
		rssi += m.rng.NormFloat64() * m.Cfg.Sigma
		m.mu.Unlock()
	}
	return int(math.Round(rssi))
}

func (m *Medium) transmit(from *VirtualRadio, txPower int, payload []byte) {
	frame := slices.Clone(payload)
	src := from.Pos()

	m.mu.Lock()
	radios := slices.Clone(m.radios)
	m.mu.Unlock()

	for _, to := range radios {
		if to == from {
			continue
		}
		rssi := m.Rssi(txPower, src.Distance(to.Pos()))
		if rssi < m.Cfg.Sensitivity {
			continue
		}
		m.After(m.Cfg.Airtime, func() {
			to.deliver(frame, rssi)
		})
	}
}
