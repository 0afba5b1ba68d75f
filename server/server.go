// server/server.go
package server

import (
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wfunc/partyserver/logger"
	"github.com/wfunc/partyserver/models"
	"github.com/wfunc/partyserver/monitor"
	"github.com/wfunc/partyserver/services"
)

// Server exposes the party coordinator over HTTP. All answers use the flat
// STATUS envelope: STATUS 0 carries a VALUE or VALUES payload, STATUS 1
// carries an error MESSAGE. The transport status is always 200; clients
// switch on STATUS.
type Server struct {
	party   *services.PartyService
	players *services.PlayerService
	monitor *monitor.Monitor
	engine  *gin.Engine
}

func NewServer(party *services.PartyService, players *services.PlayerService, mon *monitor.Monitor) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		party:   party,
		players: players,
		monitor: mon,
		engine:  gin.New(),
	}
	s.engine.Use(gin.Recovery(), s.requestID(), s.measure())
	s.routes()
	return s
}

// Run blocks serving HTTP on addr.
func (s *Server) Run(addr string) error {
	logger.Log.Infof("HTTP server listening on %s", addr)
	return s.engine.Run(addr)
}

// Handler exposes the router, used by tests.
func (s *Server) Handler() *gin.Engine {
	return s.engine
}

// requestID tags every request so log lines of one request can be correlated.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set("requestID", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func (s *Server) measure() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if s.monitor != nil {
			s.monitor.IncRequests()
			s.monitor.ObserveRequestLatency(time.Since(start))
		}
	}
}

func (s *Server) routes() {
	db := s.engine.Group("/db")
	{
		db.GET("/register/:userID/:username", s.handleRegister)
		db.GET("/info/:userID", s.handleInfo)
		db.GET("/search/:username", s.handleSearchFriend)
		db.GET("/addFriend/:userID/:username", s.handleAddFriend)
		db.GET("/addStreak/:userID/:username/:streak", s.handleAddStreak)
		db.GET("/updateStreak/:userID/:username/:streak", s.handleUpdateStreak)
		db.GET("/removeStreak/:userID/:username", s.handleRemoveStreak)
	}

	gs := s.engine.Group("/gameSession")
	{
		gs.GET("/createSession/:userID/:maxPlayers", s.handleCreateSession(false))
		gs.GET("/createCheatedSession/:userID/:maxPlayers", s.handleCreateSession(true))
		gs.GET("/joinSession/:userID/:roomID", s.handleJoinSession)
		gs.GET("/leaveSession/:userID/:roomID", s.handleLeaveSession)
		gs.GET("/update/:userID/:roomID", s.handleRoomUpdated)
		gs.GET("/curUsers/:roomID", s.handleCurrentPlayers)
		gs.GET("/maxPlayers/:roomID", s.handleMaxPlayers)
	}

	ig := s.engine.Group("/ingame")
	{
		ig.GET("/start/:userID/:roomID", s.handleStart)
		ig.GET("/askState/:roomID", s.handleAskState)
		ig.GET("/GMIndex/:roomID", s.handleGMIndex)
		ig.GET("/setGame/:userID/:roomID/:minigameID/:sociality/:initValues", s.handleSetGame)
		ig.GET("/minigame/:userID/:roomID", s.handleMinigame)
		ig.GET("/initValues/:roomID", s.handleInitValues)
		ig.GET("/getSociality/:roomID", s.handleSociality)
		ig.GET("/postData/:userID/:roomID/:data", s.handlePostData)
		ig.GET("/getData/:roomID/:playerIndex", s.handleGetData)
		ig.GET("/postResult/:userID/:roomID/:result", s.handlePostResult)
		ig.GET("/hasChanged/:userID/:roomID", s.handleHasChanged)
		ig.GET("/playerStates/:roomID", s.handlePlayerStates)
		ig.GET("/playersInState/:roomID/:state", s.handlePlayersInState)
		ig.GET("/allResults/:roomID", s.handleAllResults)
		ig.GET("/ready/:userID/:roomID", s.handleReady)
		ig.GET("/nextRound/:userID/:roomID", s.handleNextRound)
		ig.GET("/gameOver/:userID/:roomID", s.handleGameOver)
		ig.GET("/backToLobby/:userID/:roomID", s.handleBackToLobby)
	}

	dbg := s.engine.Group("/debug")
	{
		dbg.GET("/flush/:roomID", s.handleFlush)
		dbg.GET("/info/:roomID", s.handleSessionInfo)
	}
}

// Envelope helpers. Scalars travel as their string form under VALUE, lists
// under VALUES, profiles as an object under VALUE.

func ok(c *gin.Context) {
	c.JSON(200, gin.H{"STATUS": 0, "MESSAGE": "OK"})
}

func okValue(c *gin.Context, value interface{}) {
	c.JSON(200, gin.H{"STATUS": 0, "MESSAGE": "OK", "VALUE": toString(value)})
}

func okValues(c *gin.Context, values []string) {
	if values == nil {
		values = []string{}
	}
	c.JSON(200, gin.H{"STATUS": 0, "MESSAGE": "OK", "VALUES": values})
}

func okProfile(c *gin.Context, view models.ProfileView) {
	c.JSON(200, gin.H{"STATUS": 0, "MESSAGE": "OK", "VALUE": view})
}

func fail(c *gin.Context, err error) {
	c.JSON(200, gin.H{"STATUS": 1, "MESSAGE": err.Error()})
}

func toString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func intParam(c *gin.Context, name string) (int, bool) {
	value, err := strconv.Atoi(c.Param(name))
	if err != nil {
		fail(c, err)
		return 0, false
	}
	return value, true
}

// Profile handlers.

func (s *Server) handleRegister(c *gin.Context) {
	if err := s.players.Register(c.Param("userID"), c.Param("username")); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

func (s *Server) handleInfo(c *gin.Context) {
	view, err := s.players.Info(c.Param("userID"))
	if err != nil {
		fail(c, err)
		return
	}
	okProfile(c, view)
}

func (s *Server) handleSearchFriend(c *gin.Context) {
	view, err := s.players.SearchFriend(c.Param("username"))
	if err != nil {
		fail(c, err)
		return
	}
	okProfile(c, view)
}

func (s *Server) handleAddFriend(c *gin.Context) {
	if err := s.players.AddFriend(c.Param("userID"), c.Param("username")); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

func (s *Server) handleAddStreak(c *gin.Context) {
	streak, valid := intParam(c, "streak")
	if !valid {
		return
	}
	if err := s.players.AddStreak(c.Param("userID"), c.Param("username"), streak); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

func (s *Server) handleUpdateStreak(c *gin.Context) {
	streak, valid := intParam(c, "streak")
	if !valid {
		return
	}
	if err := s.players.UpdateStreak(c.Param("userID"), c.Param("username"), streak); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

func (s *Server) handleRemoveStreak(c *gin.Context) {
	if err := s.players.RemoveStreak(c.Param("userID"), c.Param("username")); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

// Room lifecycle handlers.

func (s *Server) handleCreateSession(cheated bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		maxPlayers, valid := intParam(c, "maxPlayers")
		if !valid {
			return
		}
		roomID, err := s.party.RequestRoom(c.Param("userID"), maxPlayers, cheated)
		if err != nil {
			fail(c, err)
			return
		}
		okValue(c, roomID)
	}
}

func (s *Server) handleJoinSession(c *gin.Context) {
	roomID, valid := intParam(c, "roomID")
	if !valid {
		return
	}
	if err := s.party.JoinRoom(c.Param("userID"), roomID); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

func (s *Server) handleLeaveSession(c *gin.Context) {
	roomID, valid := intParam(c, "roomID")
	if !valid {
		return
	}
	if err := s.party.LeaveRoom(c.Param("userID"), roomID); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

func (s *Server) handleRoomUpdated(c *gin.Context) {
	roomID, valid := intParam(c, "roomID")
	if !valid {
		return
	}
	dirty, err := s.party.RoomUpdated(c.Param("userID"), roomID)
	if err != nil {
		fail(c, err)
		return
	}
	okValue(c, dirty)
}

func (s *Server) handleCurrentPlayers(c *gin.Context) {
	roomID, valid := intParam(c, "roomID")
	if !valid {
		return
	}
	names, err := s.party.CurrentPlayers(roomID)
	if err != nil {
		fail(c, err)
		return
	}
	okValues(c, names)
}

func (s *Server) handleMaxPlayers(c *gin.Context) {
	roomID, valid := intParam(c, "roomID")
	if !valid {
		return
	}
	playerCap, err := s.party.MaxPlayersOfRoom(roomID)
	if err != nil {
		fail(c, err)
		return
	}
	okValue(c, playerCap)
}

// In-game handlers.

func (s *Server) handleStart(c *gin.Context) {
	roomID, valid := intParam(c, "roomID")
	if !valid {
		return
	}
	if err := s.party.StartGame(c.Param("userID"), roomID); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

func (s *Server) handleAskState(c *gin.Context) {
	roomID, valid := intParam(c, "roomID")
	if !valid {
		return
	}
	state, err := s.party.AskState(roomID)
	if err != nil {
		fail(c, err)
		return
	}
	okValue(c, state.String())
}

func (s *Server) handleGMIndex(c *gin.Context) {
	roomID, valid := intParam(c, "roomID")
	if !valid {
		return
	}
	index, err := s.party.GMIndex(roomID)
	if err != nil {
		fail(c, err)
		return
	}
	okValue(c, index)
}

func (s *Server) handleSetGame(c *gin.Context) {
	roomID, valid := intParam(c, "roomID")
	if !valid {
		return
	}
	minigameID, valid := intParam(c, "minigameID")
	if !valid {
		return
	}
	sociality, valid := intParam(c, "sociality")
	if !valid {
		return
	}
	initValues, err := url.QueryUnescape(c.Param("initValues"))
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.party.SetMinigame(c.Param("userID"), roomID, minigameID, sociality, initValues); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

func (s *Server) handleMinigame(c *gin.Context) {
	roomID, valid := intParam(c, "roomID")
	if !valid {
		return
	}
	minigameID, err := s.party.GetMinigame(c.Param("userID"), roomID)
	if err != nil {
		fail(c, err)
		return
	}
	okValue(c, minigameID)
}

func (s *Server) handleInitValues(c *gin.Context) {
	roomID, valid := intParam(c, "roomID")
	if !valid {
		return
	}
	values, err := s.party.GetInitValues(roomID)
	if err != nil {
		fail(c, err)
		return
	}
	okValue(c, values)
}

func (s *Server) handleSociality(c *gin.Context) {
	roomID, valid := intParam(c, "roomID")
	if !valid {
		return
	}
	sociality, err := s.party.GetSociality(roomID)
	if err != nil {
		fail(c, err)
		return
	}
	okValue(c, sociality)
}

func (s *Server) handlePostData(c *gin.Context) {
	roomID, valid := intParam(c, "roomID")
	if !valid {
		return
	}
	if err := s.party.PostPlayerData(c.Param("userID"), roomID, c.Param("data")); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

func (s *Server) handleGetData(c *gin.Context) {
	roomID, valid := intParam(c, "roomID")
	if !valid {
		return
	}
	playerIndex, valid := intParam(c, "playerIndex")
	if !valid {
		return
	}
	data, err := s.party.GetPlayerData(roomID, playerIndex)
	if err != nil {
		fail(c, err)
		return
	}
	okValue(c, data)
}

func (s *Server) handlePostResult(c *gin.Context) {
	roomID, valid := intParam(c, "roomID")
	if !valid {
		return
	}
	if err := s.party.PostResult(c.Param("userID"), roomID, c.Param("result")); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

func (s *Server) handleHasChanged(c *gin.Context) {
	roomID, valid := intParam(c, "roomID")
	if !valid {
		return
	}
	changed, err := s.party.HasChanged(c.Param("userID"), roomID)
	if err != nil {
		fail(c, err)
		return
	}
	okValue(c, changed)
}

func (s *Server) handlePlayerStates(c *gin.Context) {
	roomID, valid := intParam(c, "roomID")
	if !valid {
		return
	}
	states, err := s.party.AskPlayerStates(roomID)
	if err != nil {
		fail(c, err)
		return
	}
	names := make([]string, 0, len(states))
	for _, state := range states {
		names = append(names, state.String())
	}
	okValues(c, names)
}

func (s *Server) handlePlayersInState(c *gin.Context) {
	roomID, valid := intParam(c, "roomID")
	if !valid {
		return
	}
	all, err := s.party.PlayersInState(roomID, c.Param("state"))
	if err != nil {
		fail(c, err)
		return
	}
	okValue(c, all)
}

func (s *Server) handleAllResults(c *gin.Context) {
	roomID, valid := intParam(c, "roomID")
	if !valid {
		return
	}
	results, err := s.party.GetResults(roomID)
	if err != nil {
		fail(c, err)
		return
	}
	okValues(c, results)
}

func (s *Server) handleReady(c *gin.Context) {
	roomID, valid := intParam(c, "roomID")
	if !valid {
		return
	}
	if err := s.party.PostReady(c.Param("userID"), roomID); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

func (s *Server) handleNextRound(c *gin.Context) {
	roomID, valid := intParam(c, "roomID")
	if !valid {
		return
	}
	if err := s.party.NextRound(c.Param("userID"), roomID); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

func (s *Server) handleGameOver(c *gin.Context) {
	roomID, valid := intParam(c, "roomID")
	if !valid {
		return
	}
	if err := s.party.GameOver(c.Param("userID"), roomID); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

func (s *Server) handleBackToLobby(c *gin.Context) {
	roomID, valid := intParam(c, "roomID")
	if !valid {
		return
	}
	if err := s.party.BackToLobby(c.Param("userID"), roomID); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

// Debug handlers.

func (s *Server) handleFlush(c *gin.Context) {
	roomID, valid := intParam(c, "roomID")
	if !valid {
		return
	}
	if err := s.party.FlushRoom(roomID); err != nil {
		fail(c, err)
		return
	}
	ok(c)
}

func (s *Server) handleSessionInfo(c *gin.Context) {
	roomID, valid := intParam(c, "roomID")
	if !valid {
		return
	}
	info, err := s.party.SessionInfo(roomID)
	if err != nil {
		fail(c, err)
		return
	}
	okValue(c, info)
}
