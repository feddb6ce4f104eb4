// Package script inspects and prepares LAMMPS input scripts before they are
// handed to the engine.
package script

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"mdserver/internal/domain"
)

// DumpFiles names the trajectory outputs a script declares.
type DumpFiles struct {
	XYZ      string // plain coordinate dump, empty when absent
	Velocity string // custom dump carrying velocity columns, empty when absent

	// VelocityHasPositions is set when the custom dump also carries
	// coordinate columns and can serve as the primary trajectory on its own.
	VelocityHasPositions bool
}

// Any reports whether the script declares at least one dump output.
func (d DumpFiles) Any() bool {
	return d.XYZ != "" || d.Velocity != ""
}

var (
	xyzDumpRe  = regexp.MustCompile(`(?m)^\s*dump\s+\S+\s+\S+\s+xyz\s+\d+\s+(\S+)`)
	customRe   = regexp.MustCompile(`(?m)^\s*dump\s+\S+\s+\S+\s+custom\s+\d+\s+(\S+)(.*)$`)
	massRe     = regexp.MustCompile(`(?m)^\s*mass\s+\d+\s+\d+\.?\d*`)
	boxTypesRe = regexp.MustCompile(`(?m)^\s*create_box\s+(\d+)`)
	unitsRe    = regexp.MustCompile(`(?m)^\s*units\s+(\S+)`)
	velColRe   = regexp.MustCompile(`\bv[xyz]\b`)
	posColRe   = regexp.MustCompile(`\b(x|y|z|xu|yu|zu)\b`)
)

var requiredCommands = []string{"units", "atom_style", "run"}

// Validate checks a script for the properties the pipeline depends on. A
// script that passes still may fail inside the engine; this only rejects
// inputs that can never produce a usable trajectory.
func Validate(content string) error {
	if strings.TrimSpace(content) == "" {
		return domain.Failf(domain.FailValidation, "input script is empty")
	}
	var missing []string
	for _, cmd := range requiredCommands {
		if !hasCommand(content, cmd) {
			missing = append(missing, cmd)
		}
	}
	if len(missing) > 0 {
		return domain.Failf(domain.FailValidation, "missing required commands: %s", strings.Join(missing, ", "))
	}
	if !hasCommand(content, "dump") {
		return domain.Failf(domain.FailValidation, "missing dump command for trajectory output")
	}
	return nil
}

func hasCommand(content, cmd string) bool {
	for _, line := range strings.Split(content, "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == cmd {
			return true
		}
	}
	return false
}

// ExtractDumpFiles finds the filenames of the declared dump outputs. A custom
// dump only counts as a velocity dump when its column list includes velocity
// components.
func ExtractDumpFiles(content string) DumpFiles {
	var d DumpFiles
	if m := xyzDumpRe.FindStringSubmatch(content); m != nil {
		d.XYZ = m[1]
	}
	for _, m := range customRe.FindAllStringSubmatch(content, -1) {
		if velColRe.MatchString(m[2]) {
			d.Velocity = m[1]
			d.VelocityHasPositions = posColRe.MatchString(m[2])
			break
		}
	}
	return d
}

// Units returns the declared unit system, or "lj" when the script does not
// declare one.
func Units(content string) string {
	if m := unitsRe.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	return "lj"
}

// EnsureMasses adds default mass commands for every atom type declared by
// create_box when the script sets none. LAMMPS aborts on unset masses, so a
// script without them would waste an engine invocation. The insertion point
// follows create_atoms when present, otherwise precedes the first run command.
func EnsureMasses(content string) string {
	if massRe.MatchString(content) {
		return content
	}
	m := boxTypesRe.FindStringSubmatch(content)
	if m == nil {
		return content
	}
	numTypes, err := strconv.Atoi(m[1])
	if err != nil || numTypes <= 0 {
		return content
	}

	massLines := make([]string, 0, numTypes+2)
	massLines = append(massLines, "")
	for t := 1; t <= numTypes; t++ {
		massLines = append(massLines, fmt.Sprintf("mass %d 1.0", t))
	}
	massLines = append(massLines, "")

	lines := strings.Split(content, "\n")
	if at := indexOfCommand(lines, "create_atoms"); at >= 0 {
		return joinInserted(lines, at+1, massLines)
	}
	if at := indexOfCommand(lines, "run"); at >= 0 {
		return joinInserted(lines, at, massLines)
	}
	return strings.Join(append(lines, massLines...), "\n")
}

func indexOfCommand(lines []string, cmd string) int {
	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == cmd {
			return i
		}
	}
	return -1
}

func joinInserted(lines []string, at int, inserted []string) string {
	out := make([]string, 0, len(lines)+len(inserted))
	out = append(out, lines[:at]...)
	out = append(out, inserted...)
	out = append(out, lines[at:]...)
	return strings.Join(out, "\n")
}
