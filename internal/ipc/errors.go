// SPDX-License-Identifier: BSD-3-Clause

package ipc

import "errors"

var (
	ErrInvalidConfiguration   = errors.New("invalid IPC service configuration")
	ErrServerCreationFailed   = errors.New("failed to create NATS server")
	ErrServerTimeout          = errors.New("NATS server not ready for connections within timeout")
	ErrConnectionNotAvailable = errors.New("in-process connection not available")
	ErrInProcessConnFailed    = errors.New("failed to create in-process connection")
)
