package main

import (
	"time"

	"github.com/wfunc/partyserver/config"
	"github.com/wfunc/partyserver/logger"
	"github.com/wfunc/partyserver/monitor"
	"github.com/wfunc/partyserver/persistence"
	"github.com/wfunc/partyserver/room"
	"github.com/wfunc/partyserver/rpc"
	"github.com/wfunc/partyserver/server"
	"github.com/wfunc/partyserver/services"
	"github.com/wfunc/partyserver/session"
	"github.com/wfunc/partyserver/timer"
)

func main() {
	// Initialize logger
	logger.Init()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Database
	db, err := openDatabase(cfg)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Log.Info("Database connection successful.")

	// Registries and services
	rooms := room.NewRegistry()
	sessions := session.NewRegistry()
	party := services.NewPartyService(rooms, sessions, db)
	players := services.NewPlayerService(db)

	// Monitoring: prometheus endpoint plus a periodic room occupancy sample.
	mon := monitor.NewMonitor("partyserver")
	mon.StartServer(cfg.Server.MetricsAddress)

	timers := timer.NewManager()
	timers.AddTimer(5*time.Second, 5*time.Second, func() {
		mon.SetOccupiedRooms(party.OccupiedRooms())
	})

	// Admin RPC
	rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress, rpc.NewAdminService(party))
	if err != nil {
		logger.Log.Fatalf("Failed to start RPC server: %v", err)
	}
	go rpcServer.Start()
	defer rpcServer.Stop()

	// HTTP server
	httpServer := server.NewServer(party, players, mon)
	logger.Log.Infof("Starting party server on %s", cfg.Server.HTTPAddress)
	if err := httpServer.Run(cfg.Server.HTTPAddress); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}

func openDatabase(cfg *config.Config) (persistence.Database, error) {
	pg := cfg.Database.Postgres
	switch cfg.Database.Driver {
	case "pq":
		return persistence.NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	default:
		return persistence.NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	}
}
