// Package analysis derives time-series observables from a parsed frame
// sequence. Both series are pure functions of the frames: identical input
// always yields identical output.
package analysis

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"mdserver/internal/domain"
	"mdserver/internal/traj"
)

// Result holds the derived per-frame series. Series are indexed 0..frames-1,
// one-to-one with the frame sequence.
type Result struct {
	MSD           []float64
	KineticEnergy []float64
	Frames        int
	Atoms         int
}

// Compute derives MSD and kinetic energy for every frame. The first frame is
// the fixed displacement reference, so MSD[0] is always zero. Coordinates are
// used as reported; no periodic-image unwrapping is performed.
func Compute(frames []*traj.Frame, masses MassSource) (*Result, error) {
	if len(frames) == 0 {
		return nil, domain.Failf(domain.FailCompute, "no frames to analyze")
	}
	ref := frames[0]
	if ref.Len() == 0 {
		return nil, domain.Failf(domain.FailCompute, "trajectory has zero atoms")
	}
	if masses == nil {
		masses = UniformMasses(1.0)
	}

	res := &Result{
		MSD:           make([]float64, len(frames)),
		KineticEnergy: make([]float64, len(frames)),
		Frames:        len(frames),
		Atoms:         ref.Len(),
	}

	ids := ref.IDs()
	sq := make([]float64, len(ids))
	for i, frame := range frames {
		for j, id := range ids {
			a, ok := frame.Atom(id)
			if !ok {
				return nil, domain.Failf(domain.FailCompute, "atom id %d absent from frame %d", id, i)
			}
			r, _ := ref.Atom(id)
			sq[j] = floats.Distance(a.Position[:], r.Position[:], 2)
			sq[j] *= sq[j]
			res.KineticEnergy[i] += 0.5 * masses.Mass(a.Type) * floats.Dot(a.Velocity[:], a.Velocity[:])
		}
		res.MSD[i] = stat.Mean(sq, nil)
	}
	return res, nil
}
