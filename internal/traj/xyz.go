package traj

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"mdserver/internal/domain"
)

// XYZSource parses the plain XYZ coordinate dump: per frame an atom-count
// line, a comment line, then one "symbol x y z" record per atom. The format
// carries no atom ids, timesteps, or velocities; ids are assigned by record
// order starting at 1 and the frame index stands in for the timestep, which
// keeps XYZ trajectories addressable the same way as custom dumps.
type XYZSource struct {
	R io.Reader
}

func (s *XYZSource) Frames() ([]*Frame, error) {
	sc := bufio.NewScanner(s.R)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var frames []*Frame
	for {
		line, ok := nextLine(sc)
		if !ok {
			break
		}
		count, err := strconv.Atoi(line)
		if err != nil || count < 0 {
			return nil, domain.Failf(domain.FailParse, "frame %d: malformed atom count %q", len(frames), line)
		}
		// Comment line; its content is not interpreted.
		if _, ok := rawLine(sc); !ok {
			return nil, domain.Failf(domain.FailParse, "frame %d: truncated after atom count", len(frames))
		}

		frame := newFrame(int64(len(frames)), count)
		for i := 0; i < count; i++ {
			record, ok := nextLine(sc)
			if !ok {
				return nil, domain.Failf(domain.FailParse,
					"frame %d: truncated, got %d of %d atom records", len(frames), i, count)
			}
			fields := strings.Fields(record)
			if len(fields) < 4 {
				return nil, domain.Failf(domain.FailParse,
					"frame %d: atom record %q has %d fields, want at least 4", len(frames), record, len(fields))
			}
			a := Atom{Type: typeForSymbol(fields[0])}
			for k := 0; k < 3; k++ {
				v, err := strconv.ParseFloat(fields[k+1], 64)
				if err != nil {
					return nil, domain.Failf(domain.FailParse,
						"frame %d: non-numeric coordinate %q", len(frames), fields[k+1])
				}
				a.Position[k] = v
			}
			if err := frame.add(i+1, a); err != nil {
				return nil, err
			}
		}
		frames = append(frames, frame)
	}
	if err := sc.Err(); err != nil {
		return nil, domain.Failf(domain.FailParse, "read trajectory: %v", err)
	}
	if err := verifySequence(frames); err != nil {
		return nil, err
	}
	return frames, nil
}

// rawLine reads exactly one line without skipping blanks; the XYZ comment
// line may legitimately be empty.
func rawLine(sc *bufio.Scanner) (string, bool) {
	if sc.Scan() {
		return sc.Text(), true
	}
	return "", false
}

// typeForSymbol maps an XYZ species label to a numeric atom type. Engines
// commonly emit the numeric LAMMPS type directly; element symbols fall back
// to their atomic number and unknown labels to zero.
func typeForSymbol(sym string) int {
	if t, err := strconv.Atoi(sym); err == nil {
		return t
	}
	if z, ok := atomicNumbers[sym]; ok {
		return z
	}
	return 0
}

var atomicNumbers = map[string]int{
	"H": 1, "He": 2, "Li": 3, "Be": 4, "B": 5, "C": 6, "N": 7, "O": 8,
	"F": 9, "Ne": 10, "Na": 11, "Mg": 12, "Al": 13, "Si": 14, "P": 15,
	"S": 16, "Cl": 17, "Ar": 18, "K": 19, "Ca": 20, "Fe": 26, "Cu": 29,
}
