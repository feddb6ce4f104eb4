package traj

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"mdserver/internal/domain"
)

// DumpSource parses the LAMMPS custom dump format: per frame a header block
// (ITEM: TIMESTEP, ITEM: NUMBER OF ATOMS, ITEM: BOX BOUNDS) followed by
// ITEM: ATOMS with a column list and one record per atom in arbitrary order.
type DumpSource struct {
	R io.Reader
}

// column indices within an atom record, -1 when the dump omits the column.
type dumpColumns struct {
	id, typ    int
	x, y, z    int
	vx, vy, vz int
	total      int
}

func (s *DumpSource) Frames() ([]*Frame, error) {
	sc := bufio.NewScanner(s.R)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var frames []*Frame
	for {
		line, ok := nextLine(sc)
		if !ok {
			break
		}
		if !strings.HasPrefix(line, "ITEM: TIMESTEP") {
			return nil, domain.Failf(domain.FailParse, "expected ITEM: TIMESTEP, got %q", line)
		}
		frame, err := s.readFrame(sc)
		if err != nil {
			return nil, err
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

func (s *DumpSource) readFrame(sc *bufio.Scanner) (*Frame, error) {
	line, ok := nextLine(sc)
	if !ok {
		return nil, domain.Failf(domain.FailParse, "truncated frame: missing timestep value")
	}
	timestep, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
	if err != nil {
		return nil, domain.Failf(domain.FailParse, "non-numeric timestep %q", line)
	}

	line, ok = nextLine(sc)
	if !ok || !strings.HasPrefix(line, "ITEM: NUMBER OF ATOMS") {
		return nil, domain.Failf(domain.FailParse, "timestep %d: expected ITEM: NUMBER OF ATOMS", timestep)
	}
	line, ok = nextLine(sc)
	if !ok {
		return nil, domain.Failf(domain.FailParse, "timestep %d: truncated atom count", timestep)
	}
	count, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || count < 0 {
		return nil, domain.Failf(domain.FailParse, "timestep %d: non-numeric atom count %q", timestep, line)
	}

	// Skip through ITEM: BOX BOUNDS (and similar sections) to the atom
	// table. A new frame header before ITEM: ATOMS means this frame has no
	// atom table at all; reading on would splice the next frame's records
	// into this timestep.
	var header string
	for {
		line, ok = nextLine(sc)
		if !ok {
			return nil, domain.Failf(domain.FailParse, "timestep %d: missing ITEM: ATOMS section", timestep)
		}
		if strings.HasPrefix(line, "ITEM: ATOMS") {
			header = line
			break
		}
		if strings.HasPrefix(line, "ITEM: TIMESTEP") || strings.HasPrefix(line, "ITEM: NUMBER OF ATOMS") {
			return nil, domain.Failf(domain.FailParse, "timestep %d: missing ITEM: ATOMS section", timestep)
		}
	}
	cols, err := parseColumns(header, timestep)
	if err != nil {
		return nil, err
	}

	frame := newFrame(timestep, count)
	for i := 0; i < count; i++ {
		line, ok = nextLine(sc)
		if !ok {
			return nil, domain.Failf(domain.FailParse,
				"timestep %d: truncated frame, got %d of %d atom records", timestep, i, count)
		}
		if err := parseAtomRecord(frame, cols, line); err != nil {
			return nil, err
		}
	}
	return frame, nil
}

func parseColumns(header string, timestep int64) (dumpColumns, error) {
	cols := dumpColumns{id: -1, typ: -1, x: -1, y: -1, z: -1, vx: -1, vy: -1, vz: -1}
	names := strings.Fields(strings.TrimPrefix(header, "ITEM: ATOMS"))
	for i, name := range names {
		switch name {
		case "id":
			cols.id = i
		case "type":
			cols.typ = i
		case "x", "xu":
			cols.x = i
		case "y", "yu":
			cols.y = i
		case "z", "zu":
			cols.z = i
		case "vx":
			cols.vx = i
		case "vy":
			cols.vy = i
		case "vz":
			cols.vz = i
		}
	}
	cols.total = len(names)
	if cols.id < 0 {
		return cols, domain.Failf(domain.FailParse, "timestep %d: dump header lacks id column", timestep)
	}
	return cols, nil
}

func parseAtomRecord(frame *Frame, cols dumpColumns, line string) error {
	fields := strings.Fields(line)
	if len(fields) != cols.total {
		return domain.Failf(domain.FailParse,
			"timestep %d: atom record has %d fields, header declares %d", frame.Timestep, len(fields), cols.total)
	}
	id, err := strconv.Atoi(fields[cols.id])
	if err != nil {
		return domain.Failf(domain.FailParse, "timestep %d: non-numeric atom id %q", frame.Timestep, fields[cols.id])
	}
	var a Atom
	if cols.typ >= 0 {
		if a.Type, err = strconv.Atoi(fields[cols.typ]); err != nil {
			return domain.Failf(domain.FailParse, "timestep %d: non-numeric type for atom %d", frame.Timestep, id)
		}
	}
	read := func(idx int, dst *float64) error {
		if idx < 0 {
			return nil
		}
		v, err := strconv.ParseFloat(fields[idx], 64)
		if err != nil {
			return domain.Failf(domain.FailParse,
				"timestep %d: non-numeric field %q for atom %d", frame.Timestep, fields[idx], id)
		}
		*dst = v
		return nil
	}
	for _, p := range []struct {
		idx int
		dst *float64
	}{
		{cols.x, &a.Position[0]}, {cols.y, &a.Position[1]}, {cols.z, &a.Position[2]},
		{cols.vx, &a.Velocity[0]}, {cols.vy, &a.Velocity[1]}, {cols.vz, &a.Velocity[2]},
	} {
		if err := read(p.idx, p.dst); err != nil {
			return err
		}
	}
	return frame.add(id, a)
}

// nextLine advances past blank lines and returns the next trimmed line.
func nextLine(sc *bufio.Scanner) (string, bool) {
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" {
			return line, true
		}
	}
	return "", false
}
