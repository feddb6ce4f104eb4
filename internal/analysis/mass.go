package analysis

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MassSource supplies the per-type atomic mass used in the kinetic-energy
// sum. Dumps do not carry masses, so the source is pluggable: a table loaded
// from configuration when available, otherwise defaults for the script's
// declared unit system.
type MassSource interface {
	Mass(atomType int) float64
}

// UniformMasses assigns the same mass to every atom type. In reduced LJ
// units the conventional mass is 1.
type UniformMasses float64

func (m UniformMasses) Mass(int) float64 { return float64(m) }

// MassTable maps atom types to masses, falling back to a default for types
// it does not list.
type MassTable struct {
	ByType  map[int]float64 `yaml:"by_type"`
	Default float64         `yaml:"default"`
}

func (t *MassTable) Mass(atomType int) float64 {
	if m, ok := t.ByType[atomType]; ok {
		return m
	}
	if t.Default > 0 {
		return t.Default
	}
	return 1.0
}

// LoadMassTable reads a YAML mass table:
//
//	default: 1.0
//	by_type:
//	  1: 39.948
//	  2: 15.999
func LoadMassTable(path string) (*MassTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mass table: %w", err)
	}
	var t MassTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse mass table: %w", err)
	}
	return &t, nil
}

// DefaultMasses picks the fallback source for a unit system. Reduced LJ units
// use unit mass; for dimensioned unit systems the atom type is read as an
// atomic number and the element's standard atomic weight applies.
func DefaultMasses(units string) MassSource {
	switch units {
	case "lj", "":
		return UniformMasses(1.0)
	default:
		return elementMasses{}
	}
}

type elementMasses struct{}

func (elementMasses) Mass(atomType int) float64 {
	if atomType > 0 && atomType < len(atomicWeights) {
		return atomicWeights[atomType]
	}
	return 1.0
}

// Standard atomic weights indexed by atomic number, g/mol.
var atomicWeights = [...]float64{
	0,
	1.008, 4.0026, 6.94, 9.0122, 10.81, 12.011, 14.007, 15.999, 18.998, 20.180,
	22.990, 24.305, 26.982, 28.085, 30.974, 32.06, 35.45, 39.948, 39.098, 40.078,
	44.956, 47.867, 50.942, 51.996, 54.938, 55.845, 58.933, 58.693, 63.546, 65.38,
}
