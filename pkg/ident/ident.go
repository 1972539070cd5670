// Package ident manufactures the synthetic application and container
// identifiers the execution daemon expects for externally submitted work.
// The identifiers are client-made; no cluster resource manager is involved.
package ident

import (
	"fmt"
	"regexp"
	"strconv"
)

// AppID identifies one synthetic application. ClusterTimestamp is the
// submission epoch in unix millis; Sequence disambiguates applications
// created in the same milli.
type AppID struct {
	ClusterTimestamp int64
	Sequence         int
}

func (a AppID) String() string {
	return fmt.Sprintf("application_%d_%04d", a.ClusterTimestamp, a.Sequence)
}

var appIDRe = regexp.MustCompile(`^application_(\d+)_(\d+)$`)

// ParseAppID parses the string form produced by AppID.String.
func ParseAppID(s string) (AppID, error) {
	m := appIDRe.FindStringSubmatch(s)
	if m == nil {
		return AppID{}, fmt.Errorf("malformed application id: %q", s)
	}
	ts, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return AppID{}, fmt.Errorf("malformed application id: %q", s)
	}
	seq, err := strconv.Atoi(m[2])
	if err != nil {
		return AppID{}, fmt.Errorf("malformed application id: %q", s)
	}
	return AppID{ClusterTimestamp: ts, Sequence: seq}, nil
}

// ContainerID derives the synthetic container identifier for one task of an
// application attempt. It is a pure function: equal inputs always produce
// the same identity, which keeps resubmitted work trackable under one name.
func ContainerID(app AppID, attempt, task int) string {
	return fmt.Sprintf("container_%d_%04d_%02d_%06d",
		app.ClusterTimestamp, app.Sequence, attempt, task+1)
}
