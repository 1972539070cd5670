package wire

// Message types (fits in uint8).
const (
	MsgUnknown uint8 = iota
	MsgSubmit            // work submission to a daemon's execution endpoint
	MsgSubmitAck         // daemon's accept/reject response to a submission
	MsgHeartbeat         // daemon liveness ping on the umbilical
	MsgTaskStatus        // task state transition reported on the umbilical
)

// Flags bitmask (uint32)
const (
	FlagAck   uint32 = 1 << 0 // sender expects a response frame
	FlagError uint32 = 1 << 1 // body carries an error description
)

// ContentType is an optional hint for payload decoding.
const (
	ContentUnknown = "application/octet-stream"
	ContentCBOR    = "application/cbor"
	ContentJSON    = "application/json"
	ContentProto   = "application/x-protobuf"
)
