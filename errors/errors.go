package errors

import (
	goerrors "errors"
	"fmt"
)

// Kinds group the sentinels below. Callers match on the kind with errors.Is
// when they only care about the policy (retain snapshot, never hit network...).
var (
	ErrNetworkFailure = fmt.Errorf("network failure")
	ErrValidation     = fmt.Errorf("validation failure")
	ErrStateConflict  = fmt.Errorf("state conflict")
)

// NetworkFailure
var (
	ErrUnexpectedStatus   = fmt.Errorf("%w: unexpected status", ErrNetworkFailure)
	ErrLoadFailed         = fmt.Errorf("%w: load failed", ErrNetworkFailure)
	ErrSendFailed         = fmt.Errorf("%w: send failed", ErrNetworkFailure)
	ErrMembershipFailed   = fmt.Errorf("%w: membership update failed", ErrNetworkFailure)
	ErrCreateRoomFailed   = fmt.Errorf("%w: create room failed", ErrNetworkFailure)
	ErrIdentityFailed     = fmt.Errorf("%w: identity resolution failed", ErrNetworkFailure)
	ErrChannelConnect     = fmt.Errorf("%w: realtime connect failed", ErrNetworkFailure)
	ErrDirectoryFailed    = fmt.Errorf("%w: directory refresh failed", ErrNetworkFailure)
	ErrMembersLoadFailed  = fmt.Errorf("%w: members load failed", ErrNetworkFailure)
	ErrUserSearchFailed   = fmt.Errorf("%w: user search failed", ErrNetworkFailure)
	ErrChannelEmitFailure = fmt.Errorf("%w: realtime emit failed", ErrNetworkFailure)
)

// ValidationFailure
var (
	ErrEmptyContent    = fmt.Errorf("%w: message content is empty", ErrValidation)
	ErrNotLoggedIn     = fmt.Errorf("%w: you must be logged in", ErrValidation)
	ErrEmptyRoomName   = fmt.Errorf("%w: room name is empty", ErrValidation)
	ErrInvalidRoomType = fmt.Errorf("%w: room type must be public or private", ErrValidation)
	ErrNoActiveRoom    = fmt.Errorf("%w: no active room", ErrValidation)
)

// StateConflict
var (
	ErrAlreadyMember = fmt.Errorf("%w: user is already a member", ErrStateConflict)
)

var (
	ErrStaleResponse  = fmt.Errorf("stale response discarded")
	ErrWorkerPanic    = fmt.Errorf("worker panic")
	ErrChannelClosed  = fmt.Errorf("realtime channel closed")
	ErrSessionMissing = fmt.Errorf("no stored session")
)

type Kind string

const (
	KindNone       Kind = ""
	KindNetwork    Kind = "network_failure"
	KindValidation Kind = "validation_failure"
	KindConflict   Kind = "state_conflict"
	KindInternal   Kind = "internal"
)

// KindOf classifies err into the taxonomy used by the notice layer.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case goerrors.Is(err, ErrNetworkFailure):
		return KindNetwork
	case goerrors.Is(err, ErrValidation):
		return KindValidation
	case goerrors.Is(err, ErrStateConflict):
		return KindConflict
	default:
		return KindInternal
	}
}
