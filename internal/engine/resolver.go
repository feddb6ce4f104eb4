package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"mdserver/internal/domain"
)

// Resolver materializes stored potential files into job working directories.
type Resolver struct {
	Potentials domain.PotentialFileRepository
}

// Materialize looks up the referenced potential file and writes its content
// verbatim into the working directory under the original filename, so file
// references inside the script resolve unchanged. Called before any
// subprocess is spawned: an unresolvable reference must not cost engine time.
func (r *Resolver) Materialize(ctx context.Context, jc *JobContext, potentialFileID *string) error {
	if potentialFileID == nil || *potentialFileID == "" {
		return nil
	}
	pf, err := r.Potentials.GetByID(ctx, *potentialFileID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Failf(domain.FailResolution, "potential file %s not found", *potentialFileID)
		}
		return fmt.Errorf("load potential file: %w", err)
	}
	name := filepath.Base(pf.Filename)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return domain.Failf(domain.FailResolution, "potential file %s has unusable filename %q", pf.ID, pf.Filename)
	}
	dest := filepath.Join(jc.WorkDir, name)
	if err := os.WriteFile(dest, []byte(pf.Content), 0o644); err != nil {
		return fmt.Errorf("write potential file: %w", err)
	}
	return nil
}
