package types

// Version is the canonical project version.
// The CLI, the frame contract and persisted records share this version.
const Version = "0.2.0"

// FrameContractVersion is the version stamped on ipc frames.
// Lockstep with Version.
const FrameContractVersion = Version
