package client

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/dGo/rpc/common"
	"github.com/ValentinKolb/dGo/rpc/serializer"
	"github.com/ValentinKolb/dGo/rpc/transport"
)

// PoolStatus is a snapshot of the pool occupancy
type PoolStatus struct {
	MaxSize   int // Upper bound of live connections
	Size      int // Live connections, idle or in use
	Available int // Idle connections
	InUse     int // Connections held by a Client or Txn
}

// Pool is a bounded pool of managed connections. It is the only way a Client or
// a Txn obtains a connection. A Pool is safe for concurrent use.
type Pool struct {
	manager *ConnectionManager
	maxSize int

	// slots holds one token per connection handed out; a full channel means
	// the pool is at capacity and Get blocks
	slots chan struct{}
	idle  chan *Conn

	mu     sync.Mutex // Orders releases against Close
	closed bool
	done   chan struct{}

	size  atomic.Int64
	inUse atomic.Int64
}

// NewPool creates a pool of at most config.PoolSize connections over endpoints.
// Connections are created lazily by the first requests.
//
// Usage:
//
//	endpoints := common.NewLiteralEndpoints("localhost:9080", "localhost:9081")
//	pool, err := client.NewPool(endpoints, config, tcp.NewTCPClientTransport, serializer.NewBinarySerializer())
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	txn, err := pool.NewTxn(ctx)
func NewPool(
	endpoints common.EndpointSet,
	config common.ClientConfig,
	factory transport.ClientFactory,
	serializer serializer.IRPCSerializer,
) (*Pool, error) {
	if config.PoolSize < 1 {
		return nil, common.NewError(common.ErrKindPool, fmt.Sprintf("pool size must be at least 1, got %d", config.PoolSize))
	}
	if factory == nil || serializer == nil {
		return nil, common.NewError(common.ErrKindPool, "transport factory and serializer are required")
	}

	return NewPoolWithManager(NewConnectionManager(endpoints, config, factory, serializer), config.PoolSize)
}

// NewPoolWithManager creates a pool of at most maxSize connections from manager
func NewPoolWithManager(manager *ConnectionManager, maxSize int) (*Pool, error) {
	if maxSize < 1 {
		return nil, common.NewError(common.ErrKindPool, fmt.Sprintf("pool size must be at least 1, got %d", maxSize))
	}
	return &Pool{
		manager: manager,
		maxSize: maxSize,
		slots:   make(chan struct{}, maxSize),
		idle:    make(chan *Conn, maxSize),
		done:    make(chan struct{}),
	}, nil
}

// --------------------------------------------------------------------------
// Public Methods
// --------------------------------------------------------------------------

// Get returns a read-write Client. Each of its requests commits immediately.
func (p *Pool) Get(ctx context.Context) (*Client, error) {
	return p.newClient(ctx, false, false)
}

// GetReadOnly returns a Client whose queries are serviced read-only
func (p *Pool) GetReadOnly(ctx context.Context) (*Client, error) {
	return p.newClient(ctx, true, false)
}

// GetBestEffort returns a read-only Client allowed to read slightly stale data
func (p *Pool) GetBestEffort(ctx context.Context) (*Client, error) {
	return p.newClient(ctx, true, true)
}

// NewTxn starts a transaction bound to one connection of the pool.
// The connection is returned when the transaction commits or is discarded.
func (p *Pool) NewTxn(ctx context.Context) (*Txn, error) {
	conn, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	return newTxn(p, conn), nil
}

// Status returns the current occupancy of the pool
func (p *Pool) Status() PoolStatus {
	return PoolStatus{
		MaxSize:   p.maxSize,
		Size:      int(p.size.Load()),
		Available: len(p.idle),
		InUse:     int(p.inUse.Load()),
	}
}

// Close closes all idle connections. Connections still in use are closed when
// they are released. Waiting and later calls to Get fail with ErrPoolClosed.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	close(p.done)

	for {
		select {
		case conn := <-p.idle:
			p.discard(conn)
		default:
			return nil
		}
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (p *Pool) newClient(ctx context.Context, readOnly, bestEffort bool) (*Client, error) {
	conn, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	return newClient(p, conn, readOnly || bestEffort, bestEffort), nil
}

// acquire blocks until the pool has capacity, then hands out a healthy idle
// connection or creates a new one. An idle connection failing its health check
// is closed and never handed out.
func (p *Pool) acquire(ctx context.Context) (*Conn, error) {
	select {
	case <-p.done:
		return nil, common.ErrPoolClosed
	default:
	}

	select {
	case p.slots <- struct{}{}:
	case <-p.done:
		return nil, common.ErrPoolClosed
	case <-ctx.Done():
		metricWaitTimeouts.Inc()
		return nil, common.WrapError(common.ErrKindPool, ctx.Err(), "no connection available")
	}

	for {
		var conn *Conn
		select {
		case conn = <-p.idle:
		default:
		}

		if conn == nil {
			created, err := p.manager.Create(ctx)
			if err != nil {
				<-p.slots
				return nil, err
			}
			p.size.Add(1)
			p.inUse.Add(1)
			return created, nil
		}

		if err := p.manager.Recycle(ctx, conn); err != nil {
			// the health check was cut short, the connection itself may be fine
			if ctx.Err() != nil {
				p.putIdle(conn)
				<-p.slots
				return nil, common.WrapError(common.ErrKindPool, ctx.Err(), "no connection available")
			}
			Logger.Debugf("connection %d failed health check, replacing it: %v", conn.id, err)
			p.discard(conn)
			continue
		}

		p.inUse.Add(1)
		return conn, nil
	}
}

// release returns a connection handed out by acquire and frees its slot.
// Every acquired connection must be released exactly once.
func (p *Pool) release(conn *Conn) {
	p.inUse.Add(-1)
	p.putIdle(conn)
	<-p.slots
}

// putIdle stores conn for reuse, or closes it if the pool is closed
func (p *Pool) putIdle(conn *Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		p.discard(conn)
		return
	}
	select {
	case p.idle <- conn:
	default:
		// cannot happen while every connection holds a slot
		p.discard(conn)
	}
}

// discard closes a connection and forgets it
func (p *Pool) discard(conn *Conn) {
	conn.close()
	p.size.Add(-1)
	metricConnsClosed.Inc()
}
