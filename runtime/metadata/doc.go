// Package metadata describes the declared members of graph object types and
// the type-satisfaction protocol the wiring runtime uses to check candidate
// values against a member's declared type.
//
// # Overview
//
// The runtime operates generically over arbitrary graph object types, so it
// cannot name the declared type of a member itself. Instead, every Member is
// built by a generic constructor that captures the declared type T and
// produces a check closure. The runtime hands that closure a TypeQuery
// holding the candidate value and gets back "is your captured value a T?".
//
// # Core Structures
//
//   - Member: a declared field or property (name, declared type, readability,
//     mutability, tags, bound accessors)
//   - Tag: a closed set of declarative intents; WireTag requests automatic
//     reference resolution, OpaqueTag carries anything else and is ignored
//   - Schema: the ordered, immutable member set of one graph object type
//   - TypeQuery: the reusable single-slot query used by the protocol
//   - Registry: the metadata provider mapping Go types to their Schema
//
// # Example Usage
//
// Declaring the members of a graph object type:
//
//	type Player struct {
//		lifecycle.Base
//		sprite *Sprite2D
//		Weapon Weapon
//		Stats  *StatsDB
//	}
//
//	var playerSchema = metadata.MustSchema("Player",
//		metadata.Field("_sprite", func(p *Player) **Sprite2D { return &p.sprite }, metadata.Wired()),
//		metadata.Field("Weapon", func(p *Player) *Weapon { return &p.Weapon }, metadata.WiredTo("Hand/Weapon")),
//		metadata.Field("Stats", func(p *Player) **StatsDB { return &p.Stats }),
//	)
//
//	func init() {
//		metadata.MustRegister[*Player](playerSchema)
//	}
//
// Checking a candidate value against a member's declared type:
//
//	q := metadata.AcquireQuery(candidate)
//	defer metadata.ReleaseQuery(q)
//	ok, err := playerSchema.CheckType("_sprite", q)
//
// # Concurrency
//
// Schemas are immutable and safe to share. TypeQuery values are single-slot
// and must not be shared between in-flight checks; AcquireQuery hands out a
// private instance per call.
//
// # Serialization
//
// Schema.Describe returns a JSON-serializable SchemaMetadata used by tooling:
//
//	{
//	  "type": "Player",
//	  "members": [
//	    {"name": "_sprite", "type": "*game.Sprite2D", "field": true,
//	     "readable": true, "mutable": true, "wired": true, "key": "%Sprite"}
//	  ]
//	}
package metadata
