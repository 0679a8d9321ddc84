// Package idgen provides pluggable ID generation for pricewatch.
//
// Every store row type carries a short prefix so that an ID seen in a log
// line is self-describing: itm_ (items), usr_ (users), wch_ (watches),
// obs_ (price observations), ntf_ (notification records).
package idgen

import "github.com/google/uuid"

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator that produces RFC 9562 UUID v7 strings.
// Time-sortable and globally unique.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Default is the pricewatch default: UUIDv7.
var Default Generator = UUIDv7()
