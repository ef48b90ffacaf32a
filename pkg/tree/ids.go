package tree

import (
	"fmt"

	"github.com/google/uuid"
)

// RootID is the id of the synthetic root every store starts with.
const RootID = "tree-root"

// IDGenerator hands out node ids. Generated ids that collide with an id
// the store has already issued are skipped, so generators need not track
// caller-supplied ids.
type IDGenerator interface {
	NextID() string
}

// IDGeneratorFunc adapts a function to IDGenerator.
type IDGeneratorFunc func() string

func (f IDGeneratorFunc) NextID() string { return f() }

// SequentialIDs generates "<prefix><n>" ids, starting at 1.
type SequentialIDs struct {
	Prefix string
	n      int
}

// NewSequentialIDs returns a sequential generator. An empty prefix
// defaults to "node-".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "node-"
	}
	return &SequentialIDs{Prefix: prefix}
}

func (g *SequentialIDs) NextID() string {
	g.n++
	return fmt.Sprintf("%s%d", g.Prefix, g.n)
}

// UUIDs generates random (v4) UUID ids.
type UUIDs struct{}

func (UUIDs) NextID() string { return uuid.NewString() }

// GeneratorByName maps a config value to a generator: "uuid" or
// "sequential" (the default).
func GeneratorByName(name, prefix string) (IDGenerator, error) {
	switch name {
	case "", "sequential":
		return NewSequentialIDs(prefix), nil
	case "uuid":
		return UUIDs{}, nil
	}
	return nil, fmt.Errorf("unknown id style %q (expected sequential or uuid)", name)
}
