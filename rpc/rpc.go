package rpc

import (
	"net"
	"net/rpc"

	"github.com/wfunc/partyserver/logger"
	"github.com/wfunc/partyserver/services"
)

// Server manages the RPC listener for the admin service.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer registers the admin service and opens the listener.
func NewServer(addr string, admin *AdminService) (*Server, error) {
	if err := rpc.Register(admin); err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes operator commands over net/rpc.
type AdminService struct {
	party *services.PartyService
}

func NewAdminService(party *services.PartyService) *AdminService {
	return &AdminService{party: party}
}

type RoomArgs struct {
	RoomID int
}

type InfoReply struct {
	Info string
}

type OccupancyReply struct {
	Rooms int
}

// FlushRoom clears a room and its session no matter what state they are in.
func (a *AdminService) FlushRoom(args *RoomArgs, reply *struct{}) error {
	logger.Log.Warnf("Admin flush of room %d", args.RoomID)
	return a.party.FlushRoom(args.RoomID)
}

// SessionInfo returns the debug dump of a room's session.
func (a *AdminService) SessionInfo(args *RoomArgs, reply *InfoReply) error {
	info, err := a.party.SessionInfo(args.RoomID)
	if err != nil {
		return err
	}
	reply.Info = info
	return nil
}

// Occupancy reports how many rooms are allocated.
func (a *AdminService) Occupancy(args *struct{}, reply *OccupancyReply) error {
	reply.Rooms = a.party.OccupiedRooms()
	return nil
}
