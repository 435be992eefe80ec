// Package domain defines the record types, collection identifiers, overlay
// slots and field validation shared by every elevadorpro layer.
package domain

import "fmt"

// Collection names a partition of records. Each collection has an
// independent seed file and an independent overlay list.
type Collection string

// Supported collections.
const (
	// CollectionClients holds customer companies and people.
	CollectionClients Collection = "clients"
	// CollectionElevators holds the product (elevator model) catalog.
	CollectionElevators Collection = "elevators"
	// CollectionOperations holds sales and work orders.
	CollectionOperations Collection = "operations"
	// CollectionUsers holds dashboard accounts.
	CollectionUsers Collection = "users"
)

// DefaultIDPrefix is used for collections without a dedicated prefix.
const DefaultIDPrefix = "ID-"

var idPrefixes = map[Collection]string{
	CollectionElevators:  "ELV-",
	CollectionOperations: "OP-",
	CollectionClients:    "CLI-",
}

// Collections returns every supported collection in a stable order.
func Collections() []Collection {
	return []Collection{CollectionClients, CollectionElevators, CollectionOperations, CollectionUsers}
}

// ParseCollection validates a collection name.
func ParseCollection(name string) (Collection, error) {
	c := Collection(name)
	if !c.Valid() {
		return "", fmt.Errorf("unknown collection %q", name)
	}
	return c, nil
}

// Valid reports whether c is one of the supported collections.
func (c Collection) Valid() bool {
	switch c {
	case CollectionClients, CollectionElevators, CollectionOperations, CollectionUsers:
		return true
	}
	return false
}

// SeedFile is the name of the static JSON file shipped for the collection.
func (c Collection) SeedFile() string { return string(c) + ".json" }

// IDPrefix is the prefix used when allocating identifiers for new records.
func (c Collection) IDPrefix() string {
	if p, ok := idPrefixes[c]; ok {
		return p
	}
	return DefaultIDPrefix
}

func (c Collection) String() string { return string(c) }
