package aggregates

import (
	"time"
)

// Meta is the immutable identity/version/soft-delete metadata attached to
// every aggregate instance. Version starts at 1 on creation and is
// incremented by exactly 1 for every subsequent event applied to the
// aggregate, so it always equals the count of applied events.
//
// While its properties are exported for serialization, it should only be
// constructed with BuildMeta and evolved with the Deleted transition.
type Meta struct {
	ID        ID         `json:"id"`
	Version   uint       `json:"version"`
	CreatedAt time.Time  `json:"createdAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// BuildMeta is a factory method for the Meta of a freshly created
// aggregate: version 1, not deleted.
func BuildMeta(id ID, createdAt time.Time) Meta {
	return Meta{
		ID:        id,
		Version:   1,
		CreatedAt: createdAt,
	}
}

// IsDeleted reports whether the aggregate has been soft-deleted.
func (m Meta) IsDeleted() bool {
	return m.DeletedAt != nil
}

// Deleted produces a new Meta with DeletedAt set to the given timestamp
// and the version incremented by 1; all other fields are carried over
// unchanged. This is the only meta-mutating transition.
func (m Meta) Deleted(at time.Time) Meta {
	return Meta{
		ID:        m.ID,
		Version:   m.Version + 1,
		CreatedAt: m.CreatedAt,
		DeletedAt: &at,
	}
}
