package wire

// SubmitWork is the body of a MsgSubmit frame sent to a daemon's execution
// endpoint. Built once per split and never mutated after construction.
type SubmitWork struct {
	User          string      `json:"user" cbor:"1,keyasint"`
	ApplicationID string      `json:"application_id" cbor:"2,keyasint"`
	AttemptNumber int         `json:"attempt_number" cbor:"3,keyasint"`
	TokenID       string      `json:"token_id" cbor:"4,keyasint"`
	ContainerID   string      `json:"container_id" cbor:"5,keyasint"`
	CallbackHost  string      `json:"callback_host" cbor:"6,keyasint"`
	CallbackPort  int         `json:"callback_port" cbor:"7,keyasint"`
	Credentials   []byte      `json:"credentials,omitempty" cbor:"8,keyasint,omitempty"`
	FragmentSpec  []byte      `json:"fragment_spec,omitempty" cbor:"9,keyasint,omitempty"`
	Runtime       RuntimeInfo `json:"runtime" cbor:"10,keyasint"`
	// External marks work not managed by the framework's own application
	// master; the daemon selects its umbilical callback protocol from it.
	External bool `json:"external" cbor:"11,keyasint"`
	// Events are the runtime events that ride along with the submission.
	Events []FragmentEvent `json:"events,omitempty" cbor:"12,keyasint,omitempty"`
}

// FragmentEvent is a runtime event the daemon protocol expects alongside a
// submission. Opaque to the dispatcher; passed through untouched.
type FragmentEvent struct {
	Kind    string `json:"kind" cbor:"1,keyasint"`
	Payload []byte `json:"payload,omitempty" cbor:"2,keyasint,omitempty"`
}

// RuntimeInfo carries scheduling hints for one submitted fragment.
type RuntimeInfo struct {
	SubmitTimeMs       int64 `json:"submit_time_ms" cbor:"1,keyasint"`
	FirstAttemptTimeMs int64 `json:"first_attempt_time_ms" cbor:"2,keyasint"`
	QueryStartTimeMs   int64 `json:"query_start_time_ms" cbor:"3,keyasint"`
	WithinQueryPrio    int32 `json:"within_query_prio" cbor:"4,keyasint"`
	UpstreamTasks      int32 `json:"upstream_tasks" cbor:"5,keyasint"`
	UpstreamCompleted  int32 `json:"upstream_completed" cbor:"6,keyasint"`
}

// SubmitAck is the body of a MsgSubmitAck frame.
type SubmitAck struct {
	Accepted bool   `json:"accepted" cbor:"1,keyasint"`
	Reason   string `json:"reason,omitempty" cbor:"2,keyasint,omitempty"`
}

// Heartbeat is a liveness ping the daemon sends on the umbilical.
type Heartbeat struct {
	ContainerID string `json:"container_id" cbor:"1,keyasint"`
	TsUnixMs    int64  `json:"ts_unix_ms" cbor:"2,keyasint"`
}

// TaskStatus reports a task state transition on the umbilical.
type TaskStatus struct {
	ContainerID string `json:"container_id" cbor:"1,keyasint"`
	State       string `json:"state" cbor:"2,keyasint"`
	Diagnostics string `json:"diagnostics,omitempty" cbor:"3,keyasint,omitempty"`
	TsUnixMs    int64  `json:"ts_unix_ms" cbor:"4,keyasint"`
}
