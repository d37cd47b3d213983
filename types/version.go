package types

// Version is the canonical project version.
// The CLI, the C2 wire payloads, and notification events share this version.
const Version = "0.3.0"

// ContractVersion is the version stamped on C2 heartbeats and notification
// events. Lockstep with Version.
const ContractVersion = Version
