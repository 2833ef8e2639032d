package copilot

import "github.com/ronnygunawan/RG.OpenCopilot-sub005/id"

// ID is the primary identifier type for all engine entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
