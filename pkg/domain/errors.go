package domain

import "errors"

// Configuration errors: raised at registration / first use, surfaced as
// 4xx-equivalent to the caller.
var (
	ErrMissingHandlerPath   = errors.New("domain: local skill registration missing handler path")
	ErrRemoteWithoutClient  = errors.New("domain: remote skill registration missing workflow client")
	ErrUnregisteredSkill    = errors.New("domain: skill id is not registered")
	ErrSkillAlreadyExists   = errors.New("domain: skill id already registered")
)

// ErrParseFailure covers unreadable/empty document input on the upload path.
// No graph is mutated when this is returned.
var ErrParseFailure = errors.New("domain: document could not be parsed")

// ErrInterruptMismatch is returned when Resume is called without a matching
// pending interrupt state for the task.
var ErrInterruptMismatch = errors.New("domain: resume requested without a matching pending interrupt")

// ErrNoPrimaryDocument is a fatal initialization invariant violation: the
// graph was asked to parse without any primary document uploaded.
var ErrNoPrimaryDocument = errors.New("domain: no primary document uploaded")

// ErrGraphComplete is returned when a caller attempts to advance a graph
// instance whose is_complete flag is already set.
var ErrGraphComplete = errors.New("domain: graph task is already complete")
