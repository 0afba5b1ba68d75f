package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"
)

// Demo client that drives one scripted party round against a running server.
// It registers two users, opens a cheated room (so the first user is the
// Gamemaster), plays one minigame and returns to the lobby.

type reply struct {
	Status  int      `json:"STATUS"`
	Message string   `json:"MESSAGE"`
	Value   string   `json:"VALUE"`
	Values  []string `json:"VALUES"`
}

var base string

func call(path string) reply {
	resp, err := http.Get(base + path)
	if err != nil {
		log.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()

	var r reply
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		log.Fatalf("decoding %s: %v", path, err)
	}
	return r
}

func must(path string) reply {
	r := call(path)
	if r.Status != 0 {
		log.Fatalf("%s failed: %s", path, r.Message)
	}
	fmt.Printf("%-55s VALUE=%q VALUES=%v\n", path, r.Value, r.Values)
	return r
}

// pollState blocks until the session reaches the wanted state.
func pollState(roomID, want string) {
	for {
		r := must("/ingame/askState/" + roomID)
		if r.Value == want {
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func main() {
	addr := flag.String("addr", "http://localhost:9000", "server base URL")
	flag.Parse()
	base = *addr

	// Re-registering on a restarted demo is fine; ignore the failure.
	call("/db/register/demo1/hector")
	call("/db/register/demo2/ines")

	r := must("/gameSession/createCheatedSession/demo1/2")
	roomID := r.Value
	must("/gameSession/joinSession/demo2/" + roomID)
	must("/gameSession/curUsers/" + roomID)

	must("/ingame/start/demo1/" + roomID)
	pollState(roomID, "GM_CHOOSING")

	seed := url.QueryEscape("arena=dock&seed=7")
	must("/ingame/setGame/demo1/" + roomID + "/4/1/" + seed)

	must("/ingame/minigame/demo1/" + roomID)
	must("/ingame/minigame/demo2/" + roomID)
	pollState(roomID, "RUNNING")

	must("/ingame/postData/demo1/" + roomID + "/score=15")
	must("/ingame/getData/" + roomID + "/0")

	must("/ingame/postResult/demo1/" + roomID + "/15")
	must("/ingame/postResult/demo2/" + roomID + "/22")
	pollState(roomID, "MINIGAME_END")

	must("/ingame/allResults/" + roomID)

	must("/ingame/ready/demo1/" + roomID)
	must("/ingame/ready/demo2/" + roomID)
	must("/ingame/gameOver/demo1/" + roomID)
	must("/ingame/backToLobby/demo1/" + roomID)
	pollState(roomID, "LOBBY")

	must("/gameSession/leaveSession/demo2/" + roomID)
	must("/gameSession/leaveSession/demo1/" + roomID)

	fmt.Println("demo round complete")
}
