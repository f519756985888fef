package client

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/ValentinKolb/dGo/rpc/common"
	"github.com/ValentinKolb/dGo/rpc/serializer"
	"github.com/ValentinKolb/dGo/rpc/transport"
)

// ConnectionManager creates connections over an endpoint set and checks the
// health of existing ones before they are reused
type ConnectionManager struct {
	endpoints  common.EndpointSet
	config     common.ClientConfig
	factory    transport.ClientFactory
	serializer serializer.IRPCSerializer
	nextID     atomic.Uint64
}

// NewConnectionManager creates a manager. Endpoints are resolved on every Create.
func NewConnectionManager(
	endpoints common.EndpointSet,
	config common.ClientConfig,
	factory transport.ClientFactory,
	serializer serializer.IRPCSerializer,
) *ConnectionManager {
	return &ConnectionManager{
		endpoints:  endpoints,
		config:     config,
		factory:    factory,
		serializer: serializer,
	}
}

// Create resolves the endpoint set and connects one transport balancing over all
// endpoints. It fails with a Transport error if nothing resolves or connects.
func (m *ConnectionManager) Create(ctx context.Context) (*Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.WrapError(common.ErrKindTransport, err, "connection not created")
	}

	addrs, err := m.endpoints.Resolve()
	if err != nil {
		return nil, err
	}

	config := m.config
	config.Transport.Endpoints = addrs

	t := m.factory()
	if err := t.Connect(config); err != nil {
		return nil, common.WrapError(common.ErrKindTransport, err, fmt.Sprintf("failed to connect to %s", m.endpoints))
	}

	conn := &Conn{
		id:         m.nextID.Add(1),
		namespace:  m.config.Namespace,
		transport:  t,
		serializer: m.serializer,
	}
	metricConnsCreated.Inc()
	Logger.Debugf("created connection %d to %s", conn.id, m.endpoints)
	return conn, nil
}

// Recycle checks that conn still answers before it is handed out again.
// A non nil error means the connection must not be used anymore.
func (m *ConnectionManager) Recycle(ctx context.Context, conn *Conn) error {
	if _, err := conn.CheckVersion(ctx); err != nil {
		metricHealthCheckFailures.Inc()
		return err
	}
	metricConnsRecycled.Inc()
	return nil
}
