// Package core contains the example User aggregate: an immutable value
// whose state is derived purely by folding events, with no knowledge of
// the persistence backend.
package core
