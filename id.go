package recur

import "github.com/xraph/recur/id"

// ID is the identifier type for Recur charge and claim records.
type ID = id.ID

// Prefix identifies the record type encoded in a TypeID.
type Prefix = id.Prefix
