package types

// JSONMap is a loosely-typed JSON object column, stored via the gorm json
// serializer. Used for opaque provider payloads kept for audit.
type JSONMap map[string]any
