// Package traj reads engine dump output into an ordered, addressable frame
// sequence. Two native formats are supported, the LAMMPS custom per-atom dump
// and the plain XYZ coordinate dump; both are adapted into the same Frame
// representation so downstream analysis stays format-agnostic.
package traj

import (
	"sort"

	"mdserver/internal/domain"
)

// Atom is one particle's state within a frame.
type Atom struct {
	Type     int
	Position [3]float64
	Velocity [3]float64
}

// Frame is one recorded simulation snapshot. Atoms are indexed by atom id,
// not file order, so the same physical atom can be compared across frames
// regardless of dump ordering.
type Frame struct {
	Timestep int64
	atoms    map[int]Atom
	ids      []int
}

func newFrame(timestep int64, capacity int) *Frame {
	return &Frame{Timestep: timestep, atoms: make(map[int]Atom, capacity)}
}

func (f *Frame) add(id int, a Atom) error {
	if _, dup := f.atoms[id]; dup {
		return domain.Failf(domain.FailParse, "duplicate atom id %d at timestep %d", id, f.Timestep)
	}
	f.atoms[id] = a
	f.ids = append(f.ids, id)
	return nil
}

func (f *Frame) seal() {
	sort.Ints(f.ids)
}

// Len returns the number of atoms in the frame.
func (f *Frame) Len() int { return len(f.ids) }

// IDs returns the atom ids in ascending order. The returned slice is shared;
// callers must not modify it.
func (f *Frame) IDs() []int { return f.ids }

// Atom looks up a particle by id.
func (f *Frame) Atom(id int) (Atom, bool) {
	a, ok := f.atoms[id]
	return a, ok
}

// Source yields the complete, validated frame sequence of one trajectory.
type Source interface {
	Frames() ([]*Frame, error)
}

// verifySequence enforces the cross-frame invariants: at least one frame,
// strictly ascending timesteps, constant atom count, and identical id sets
// against the reference (first) frame. Atoms are never dropped or reordered
// to make counts match.
func verifySequence(frames []*Frame) error {
	if len(frames) == 0 {
		return domain.Failf(domain.FailParse, "trajectory contains no frames")
	}
	ref := frames[0]
	for i, f := range frames {
		f.seal()
		if i == 0 {
			continue
		}
		if f.Timestep <= frames[i-1].Timestep {
			return domain.Failf(domain.FailParse,
				"timestep %d at frame %d does not ascend from %d", f.Timestep, i, frames[i-1].Timestep)
		}
		if f.Len() != ref.Len() {
			return domain.Failf(domain.FailParse,
				"frame %d has %d atoms, reference frame has %d", i, f.Len(), ref.Len())
		}
		for _, id := range ref.ids {
			if _, ok := f.atoms[id]; !ok {
				return domain.Failf(domain.FailParse,
					"atom id %d missing from frame %d", id, i)
			}
		}
		for _, id := range f.ids {
			if _, ok := ref.atoms[id]; !ok {
				return domain.Failf(domain.FailParse,
					"atom id %d in frame %d absent from reference frame", id, i)
			}
		}
	}
	return nil
}

// MergeVelocities copies velocities from a velocity-only dump into position
// frames, matched frame-by-frame and atom-by-atom. Frame counts and id sets
// must agree.
func MergeVelocities(frames, velocities []*Frame) error {
	if len(velocities) != len(frames) {
		return domain.Failf(domain.FailParse,
			"velocity dump has %d frames, trajectory has %d", len(velocities), len(frames))
	}
	for i, f := range frames {
		v := velocities[i]
		if v.Len() != f.Len() {
			return domain.Failf(domain.FailParse,
				"velocity frame %d has %d atoms, trajectory has %d", i, v.Len(), f.Len())
		}
		for _, id := range f.ids {
			va, ok := v.atoms[id]
			if !ok {
				return domain.Failf(domain.FailParse,
					"atom id %d missing from velocity frame %d", id, i)
			}
			a := f.atoms[id]
			a.Velocity = va.Velocity
			f.atoms[id] = a
		}
	}
	return nil
}
