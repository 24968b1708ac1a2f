package index

import (
	"os"

	skillerr "github.com/skillbase/skillbase/internal/errors"
	"github.com/skillbase/skillbase/internal/skill"
	"github.com/skillbase/skillbase/internal/store"
)

// Loader materializes full skill specs from the snapshot's winning source
// files. The store keeps only the search projection; section bodies live
// in the markdown sources, so show and pack re-parse on demand.
type Loader struct {
	snap *store.Snapshot
}

// NewLoader creates a loader bound to one snapshot.
func NewLoader(snap *store.Snapshot) *Loader {
	return &Loader{snap: snap}
}

// Load parses the winning source for id and resolves its extends chain.
// Unknown ids return ERR_101 with a nearest-match suggestion.
func (l *Loader) Load(id string) (*skill.SkillSpec, error) {
	spec, err := l.loadRaw(id)
	if err != nil {
		return nil, err
	}
	resolved := skill.ResolveExtends(spec, func(parentID string) (*skill.SkillSpec, bool) {
		parent, err := l.loadRaw(parentID)
		if err != nil {
			return nil, false
		}
		return parent, true
	})
	return resolved, nil
}

func (l *Loader) loadRaw(id string) (*skill.SkillSpec, error) {
	row, ok := l.snap.Skills[id]
	if !ok {
		return nil, skillerr.NotFound(id, l.snap.SkillIDs())
	}
	data, err := os.ReadFile(row.SourcePath)
	if err != nil {
		return nil, skillerr.Wrap(skillerr.ErrCodeSourceMissing, err)
	}
	return skill.ParseMarkdown(string(data))
}
