package hostfs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/prn-tf/sbc-engine/internal/sbchash"
	"github.com/prn-tf/sbc-engine/internal/scrub"
	"github.com/prn-tf/sbc-engine/internal/store"
)

// fileContainer is a pending CDC chunk sitting on disk as a plain file
// named after its primary signature. Extract reads it once; MakeTarget
// writes a sidecar ".sbckey" record rather than mutating or deleting the
// original file, since reclaiming the CDC-level copy is the primary
// dedup index's job, not the scrubber's.
type fileContainer struct {
	path string
}

func (c *fileContainer) Extract() []byte {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil
	}
	return data
}

type sbcKeySidecar struct {
	Kind       string `json:"kind"`
	Hash       uint32 `json:"hash"`
	ParentHash uint32 `json:"parent_hash,omitempty"`
	Number     uint16 `json:"number,omitempty"`
}

func (c *fileContainer) MakeTarget(key store.SBCKey[sbchash.AronovichHash]) {
	sidecar := sbcKeySidecar{
		Kind:       key.Type.Kind.String(),
		Hash:       key.Hash.Value,
		ParentHash: key.Type.ParentHash.Value,
		Number:     key.Type.Number,
	}
	data, err := json.Marshal(sidecar)
	if err != nil {
		return
	}
	_ = os.WriteFile(c.path+".sbckey", data, 0o644)
}

// DirPending iterates a directory of pending CDC chunk files, one file per
// chunk, named "<primary-hash-decimal>[.anything]". It is a reference
// PendingSource for cmd/sbc-scrub's demonstration entrypoint; a real
// deployment's primary dedup index supplies its own.
type DirPending struct {
	dir string
}

var _ scrub.PendingSource[sbchash.AronovichHash] = DirPending{}

// NewDirPending builds a DirPending over dir. Files already carrying a
// ".sbckey" sidecar are skipped: they were scrubbed by a previous pass.
func NewDirPending(dir string) DirPending {
	return DirPending{dir: dir}
}

func (d DirPending) IteratePending() []scrub.PendingEntry[sbchash.AronovichHash] {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil
	}

	var pending []scrub.PendingEntry[sbchash.AronovichHash]
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasSuffix(name, ".sbckey") {
			continue
		}
		if _, err := os.Stat(filepath.Join(d.dir, name+".sbckey")); err == nil {
			continue
		}

		primary, ok := parsePrimaryHash(name)
		if !ok {
			continue
		}

		pending = append(pending, scrub.PendingEntry[sbchash.AronovichHash]{
			PrimaryHash: sbchash.NewAronovichHash(primary),
			Container:   &fileContainer{path: filepath.Join(d.dir, name)},
		})
	}
	return pending
}

func parsePrimaryHash(name string) (uint32, bool) {
	base := name
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	v, err := strconv.ParseUint(base, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}
