package version

// Version is the semantic version reported by the CLI and stamped into
// history snapshots.
const Version = "0.3.0"

// SchemaVersion tracks the serialized snapshot/report schema.
const SchemaVersion = 1
