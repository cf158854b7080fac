// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package event

import (
	"github.com/samber/oops"

	"github.com/holomush/holobot/internal/trust"
	"github.com/holomush/holobot/pkg/errutil"
)

// Error codes for registration and dispatch failures.
const (
	CodeUnknownEventKind       = "UNKNOWN_EVENT_KIND"
	CodeUnimplementedEventKind = "UNIMPLEMENTED_EVENT_KIND"
	CodeInvalidCallback        = "INVALID_CALLBACK"
	CodeInvalidHandler         = "INVALID_HANDLER"
	CodePayloadMismatch        = "PAYLOAD_MISMATCH"
	CodePermissionDenied       = "PERMISSION_DENIED"
	CodeRestrictionViolation   = "RESTRICTION_VIOLATION"
	CodePreconditionFailed     = "PRECONDITION_FAILED"
	CodeHandlerPanic           = "HANDLER_PANIC"
)

// ErrUnknownEventKind creates an error for a kind that does not exist.
func ErrUnknownEventKind(kind any) error {
	return oops.Code(CodeUnknownEventKind).
		With("kind", kind).
		Errorf("the event kind %v does not exist", kind)
}

// ErrUnimplementedEventKind creates an error for a recognized kind that has no
// handler variant.
func ErrUnimplementedEventKind(kind Kind) error {
	return oops.Code(CodeUnimplementedEventKind).
		With("kind", kind.String()).
		Errorf("the event kind %s is not supported", kind)
}

// ErrInvalidCallback creates an error for a callback of the wrong shape.
func ErrInvalidCallback(kind Kind, callback any) error {
	return oops.Code(CodeInvalidCallback).
		With("kind", kind.String()).
		Errorf("callback of type %T cannot handle %s events", callback, kind)
}

// ErrInvalidHandler creates an error for handler options that do not fit the kind.
func ErrInvalidHandler(kind Kind, reason string) error {
	return oops.Code(CodeInvalidHandler).
		With("kind", kind.String()).
		Errorf("invalid %s handler: %s", kind, reason)
}

// ErrPayloadMismatch creates an error for a payload dispatched to the wrong kind.
func ErrPayloadMismatch(kind Kind, payload Payload) error {
	return oops.Code(CodePayloadMismatch).
		With("kind", kind.String()).
		Errorf("payload %T cannot be dispatched as %s", payload, kind)
}

// ErrPermissionDenied creates a guard denial for an insufficient trust level.
func ErrPermissionDenied(command string, required, actual trust.Level) error {
	return oops.Code(CodePermissionDenied).
		With("command", command).
		With("required", required.String()).
		With("actual", actual.String()).
		Errorf("permission denied for command %s", command)
}

// ErrRestrictionViolation creates a guard denial for a restricted command used in a
// channel that does not allow it.
func ErrRestrictionViolation(command string, restriction trust.Restriction) error {
	return oops.Code(CodeRestrictionViolation).
		With("command", command).
		With("restriction", restriction.String()).
		Errorf("command %s is restricted to %s channels", command, restriction)
}

// ErrPreconditionFailed creates a guard denial for a command that needs an active
// connection in the community.
func ErrPreconditionFailed(command string) error {
	return oops.Code(CodePreconditionFailed).
		With("command", command).
		Errorf("command %s requires an active connection", command)
}

// IsDenial reports whether err is an expected guard-chain denial.
func IsDenial(err error) bool {
	switch errutil.Code(err) {
	case CodePermissionDenied, CodeRestrictionViolation, CodePreconditionFailed:
		return true
	}
	return false
}

// NoticeText returns the user-facing text for a guard denial.
func NoticeText(err error) string {
	switch errutil.Code(err) {
	case CodePermissionDenied:
		return "You don't have the necessary permission to use this command."
	case CodeRestrictionViolation:
		return "You are not allowed to use this command outside of a NSFW channel."
	case CodePreconditionFailed:
		return "I'm required to be connected to a voice channel for this action."
	default:
		return "Something went wrong. Try again."
	}
}

// denialReason is the metrics label for a denial.
func denialReason(err error) string {
	switch errutil.Code(err) {
	case CodePermissionDenied:
		return "permission"
	case CodeRestrictionViolation:
		return "restriction"
	case CodePreconditionFailed:
		return "precondition"
	default:
		return "other"
	}
}
