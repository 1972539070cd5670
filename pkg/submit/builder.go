// Package submit builds and delivers work-submission requests to execution
// daemons.
package submit

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"splitwire/pkg/creds"
	"splitwire/pkg/ident"
	"splitwire/pkg/split"
	"splitwire/pkg/wire"
)

// UserEnvVar names the process environment variable supplying the
// submission's user identity.
const UserEnvVar = "USER"

// Builder produces a complete SubmitWork request for one split.
type Builder struct {
	log *zap.Logger
	// lookupEnv defaults to os.Getenv; injectable for tests.
	lookupEnv func(string) string
	// nowFn defaults to time.Now; injectable for tests.
	nowFn func() time.Time
}

func NewBuilder(log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{log: log, lookupEnv: os.Getenv, nowFn: time.Now}
}

// Build assembles the request for splitIndex of the fragment described by
// info, pointing the daemon's callbacks at callbackHost:callbackPort.
//
// The request carries a fresh credential container holding only the session
// token; the caller's ambient credentials are never forwarded. The synthetic
// container id is a pure function of (application id, attempt 0, split
// index), so rebuilding for the same split yields the same identity.
func (b *Builder) Build(info *split.SubmitWorkInfo, splitIndex int, callbackHost string, callbackPort int, token creds.Token) (*wire.SubmitWork, error) {
	app, err := ident.ParseAppID(info.ApplicationID)
	if err != nil {
		return nil, fmt.Errorf("build submission: %w", err)
	}

	user := b.lookupEnv(UserEnvVar)
	b.log.Info("setting user in submission", zap.String("user", user))

	containerID := ident.ContainerID(app, 0, splitIndex)

	confined := creds.New()
	creds.SetSessionToken(token, confined)
	credBlob, err := confined.Marshal()
	if err != nil {
		return nil, err
	}

	fragSpec, err := split.EncodeTaskSpec(&info.Task)
	if err != nil {
		return nil, fmt.Errorf("build submission: %w", err)
	}

	// Timestamps reflect the fragment's original creation, not this
	// (possibly repeated) submission; only a missing creation time falls
	// back to the clock.
	submitTime := info.CreatedAtMs
	if submitTime == 0 {
		submitTime = b.nowFn().UnixMilli()
	}

	req := &wire.SubmitWork{
		User:          user,
		ApplicationID: app.String(),
		AttemptNumber: 0,
		TokenID:       app.String(),
		ContainerID:   containerID,
		CallbackHost:  callbackHost,
		CallbackPort:  callbackPort,
		Credentials:   credBlob,
		FragmentSpec:  fragSpec,
		Runtime: wire.RuntimeInfo{
			SubmitTimeMs:       submitTime,
			FirstAttemptTimeMs: info.CreatedAtMs,
			QueryStartTimeMs:   info.CreatedAtMs,
			WithinQueryPrio:    0,
			UpstreamTasks:      info.Task.Parallelism,
			UpstreamCompleted:  0,
		},
		External: true,
	}
	return req, nil
}
