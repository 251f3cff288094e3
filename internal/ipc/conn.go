// SPDX-License-Identifier: BSD-3-Clause

package ipc

import (
	"fmt"
	"net"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// ConnProvider hands out in-process connections to an embedded NATS
// server, implementing nats.InProcessConnProvider. It tolerates being
// handed to a consumer before the server has finished starting: the
// first InProcessConn call blocks until the server reports ready or the
// wait times out.
type ConnProvider struct {
	srv *server.Server
}

// InProcessConn implements nats.InProcessConnProvider.
func (p *ConnProvider) InProcessConn() (net.Conn, error) {
	if p.srv == nil {
		return nil, ErrConnectionNotAvailable
	}
	if !p.srv.ReadyForConnections(time.Minute) {
		return nil, ErrServerTimeout
	}
	conn, err := p.srv.InProcessConn()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInProcessConnFailed, err)
	}
	return conn, nil
}
