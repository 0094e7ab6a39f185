// Package watchlist tracks repeated unauthorized encounters. Feature
// vectors that failed verification are clustered into distinct identities so
// the same intruder keeps the same person id across sightings.
package watchlist

import (
	"fmt"
	"time"

	"github.com/SBanditaDas/facesentinel/pkg/landmark"
	"github.com/SBanditaDas/facesentinel/pkg/logging"
	"github.com/SBanditaDas/facesentinel/pkg/similarity"
)

// DefaultCapacity is the default encounter log bound.
const DefaultCapacity = 100

// Entry records one unauthorized encounter.
type Entry struct {
	Timestamp time.Time
	PersonID  int
	Label     string
}

// Registry clusters unauthorized feature vectors and keeps a bounded log of
// encounters. Representatives are an append-only arena: a person id is the
// representative's index plus one and stays stable until Clear. Registry is
// not safe for concurrent use; the verification pipeline guarantees a single
// pass in flight.
type Registry struct {
	engine          *similarity.Engine
	representatives []landmark.FeatureVector
	entries         []Entry
	capacity        int
}

// NewRegistry creates a Registry using the given engine to match new
// vectors against known identities. A nil engine and non-positive capacity
// fall back to defaults.
func NewRegistry(engine *similarity.Engine, capacity int) *Registry {
	if engine == nil {
		engine = similarity.NewEngine(similarity.DefaultConfig())
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Registry{engine: engine, capacity: capacity}
}

// LogEncounter assigns a stable person id to an unauthorized vector and
// appends a log entry. Representatives are scanned in insertion order and
// the first match wins; a vector matching none becomes a new identity. The
// log keeps only the most recent entries, oldest dropped first.
func (r *Registry) LogEncounter(vec landmark.FeatureVector) Entry {
	id := 0
	for i, rep := range r.representatives {
		if r.engine.Compare(rep, vec).IsSame {
			id = i + 1
			break
		}
	}
	if id == 0 {
		r.representatives = append(r.representatives, vec.Clone())
		id = len(r.representatives)
		logging.Infof("new unauthorized identity registered: person %d", id)
	}

	entry := Entry{
		Timestamp: time.Now(),
		PersonID:  id,
		Label:     fmt.Sprintf("Person %d", id),
	}
	r.entries = append(r.entries, entry)
	if len(r.entries) > r.capacity {
		r.entries = r.entries[len(r.entries)-r.capacity:]
	}
	return entry
}

// Entries returns a copy of the encounter log, oldest first.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// People reports how many distinct identities have been seen.
func (r *Registry) People() int {
	return len(r.representatives)
}

// Clear drops the log and all cluster representatives. Ids are meaningless
// without their representatives, so both go together.
func (r *Registry) Clear() {
	r.representatives = nil
	r.entries = nil
	logging.Debug("watchlist cleared")
}
