package rpc

import (
	"fmt"
	"net"
	"net/rpc"
	"sync"
	"unsafe"

	"github.com/shenjiangwei/mempool/alloc"
)

// Server serves allocation requests over net/rpc. Clients receive opaque
// region tokens backed by the process-wide size-class allocator; the server
// tracks every live region so it can hand the memory back on Free or at
// shutdown.
type Server struct {
	mu       sync.Mutex
	alloc    *alloc.Allocator[byte]
	regions  map[uint64]int // token -> byte count
	listener net.Listener
	rpcSrv   *rpc.Server
}

// AllocRequest represents a memory allocation request
type AllocRequest struct {
	Size uint64
}

// AllocResponse represents a memory allocation response
type AllocResponse struct {
	Start uint64
	Error string
}

// FreeRequest represents a memory free request
type FreeRequest struct {
	Start uint64
	Size  uint64
}

// FreeResponse represents a memory free response
type FreeResponse struct {
	Error string
}

// StatsRequest represents a usage statistics request
type StatsRequest struct{}

// StatsResponse carries the server's live-region counters.
type StatsResponse struct {
	Regions uint64
	Bytes   uint64
}

// NewServer creates a server backed by a fresh allocator handle.
func NewServer() (*Server, error) {
	a, err := alloc.New[byte]()
	if err != nil {
		return nil, fmt.Errorf("failed to create allocator: %v", err)
	}

	server := &Server{
		alloc:   a,
		regions: make(map[uint64]int),
		rpcSrv:  rpc.NewServer(),
	}

	// Register RPC methods
	if err := server.rpcSrv.Register(server); err != nil {
		return nil, err
	}
	return server, nil
}

// Listen binds the server to address.
func (s *Server) Listen(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to start server: %v", err)
	}
	s.listener = listener
	return nil
}

// Addr returns the bound address; valid only after Listen.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve accepts connections until the listener is closed.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return err
		}
		go s.rpcSrv.ServeConn(conn)
	}
}

// Start binds to address and serves until the listener is closed.
func (s *Server) Start(address string) error {
	if err := s.Listen(address); err != nil {
		return err
	}
	return s.Serve()
}

func (s *Server) Allocate(req *AllocRequest, resp *AllocResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Size == 0 {
		resp.Error = "size must be positive"
		return nil
	}

	buf, err := s.alloc.Allocate(int(req.Size))
	if err != nil {
		resp.Error = err.Error()
		return nil
	}

	start := uint64(uintptr(unsafe.Pointer(&buf[0])))
	s.regions[start] = int(req.Size)
	resp.Start = start
	return nil
}

func (s *Server) Free(req *FreeRequest, resp *FreeResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.regions[req.Start]
	if !ok || uint64(n) != req.Size {
		resp.Error = "region not found"
		return nil
	}
	delete(s.regions, req.Start)

	if err := s.alloc.Deallocate((*byte)(unsafe.Pointer(uintptr(req.Start))), n); err != nil {
		resp.Error = err.Error()
	}
	return nil
}

func (s *Server) Stats(_ *StatsRequest, resp *StatsResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp.Regions = uint64(len(s.regions))
	for _, n := range s.regions {
		resp.Bytes += uint64(n)
	}
	return nil
}

// Close frees every live region, drops the allocator handle, and stops the
// listener.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for start, n := range s.regions {
		if err := s.alloc.Deallocate((*byte)(unsafe.Pointer(uintptr(start))), n); err != nil {
			return err
		}
		delete(s.regions, start)
	}
	if err := s.alloc.Close(); err != nil {
		return err
	}
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}
