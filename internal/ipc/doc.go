// SPDX-License-Identifier: BSD-3-Clause

// Package ipc provides an embedded NATS server used as the in-process
// message bus between chassisd's cmd entrypoint and the chassisd.Service
// it hosts. It exists so the chassisd binary does not depend on an
// externally-run NATS server: the server and the service that talks to
// it share one process and exchange connections through nats.go's
// in-process transport.
package ipc
