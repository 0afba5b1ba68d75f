package room

import (
	"errors"
	"fmt"
	"testing"

	"github.com/wfunc/partyserver/gameerr"
	"github.com/wfunc/partyserver/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	m.Run()
}

func TestRegistry_RequestAllocatesLowestSlot(t *testing.T) {
	reg := NewRegistry()

	id1, err := reg.Request("u1", 4, false)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if id1 != 1 {
		t.Errorf("Expected first room id 1, got %d", id1)
	}

	id2, err := reg.Request("u2", 2, false)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if id2 != 2 {
		t.Errorf("Expected second room id 2, got %d", id2)
	}

	// Freeing room 1 makes slot 1 the lowest free slot again.
	if _, err := reg.Leave(1, "u1"); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	id3, err := reg.Request("u3", 3, false)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if id3 != 1 {
		t.Errorf("Expected reallocated room id 1, got %d", id3)
	}
}

func TestRegistry_RequesterIsOwner(t *testing.T) {
	reg := NewRegistry()

	id, err := reg.Request("u1", 2, false)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	members, err := reg.Members(id)
	if err != nil {
		t.Fatalf("Members failed: %v", err)
	}
	if len(members) != 1 || members[0] != "u1" {
		t.Errorf("Expected members [u1], got %v", members)
	}
}

func TestRegistry_RequestRejectsBadPlayerCap(t *testing.T) {
	reg := NewRegistry()

	for _, playerCap := range []int{0, 1, 5} {
		if _, err := reg.Request("u1", playerCap, false); err == nil {
			t.Errorf("Request with cap %d should fail", playerCap)
		}
	}
}

func TestRegistry_JoinFullRoom(t *testing.T) {
	reg := NewRegistry()

	id, _ := reg.Request("u1", 2, false)
	if err := reg.Join(id, "u2"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	err := reg.Join(id, "u3")
	if !errors.Is(err, gameerr.ErrRoomFull) {
		t.Errorf("Expected ErrRoomFull, got %v", err)
	}
}

func TestRegistry_JoinTwiceRejected(t *testing.T) {
	reg := NewRegistry()

	id, _ := reg.Request("u1", 4, false)
	if err := reg.Join(id, "u2"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	err := reg.Join(id, "u2")
	if !errors.Is(err, gameerr.ErrIdenticalUser) {
		t.Errorf("Expected ErrIdenticalUser, got %v", err)
	}
}

func TestRegistry_UserInOneRoomAtMost(t *testing.T) {
	reg := NewRegistry()

	id1, _ := reg.Request("u1", 2, false)
	id2, _ := reg.Request("u2", 2, false)

	// Already a member of room 1, both entry paths reject.
	if err := reg.Join(id2, "u1"); !errors.Is(err, gameerr.ErrIdenticalUser) {
		t.Errorf("Expected ErrIdenticalUser, got %v", err)
	}
	if _, err := reg.Request("u1", 2, false); !errors.Is(err, gameerr.ErrIdenticalUser) {
		t.Errorf("Expected ErrIdenticalUser, got %v", err)
	}

	// Leaving frees the id for another room.
	if _, err := reg.Leave(id1, "u1"); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	if err := reg.Join(id2, "u1"); err != nil {
		t.Errorf("Join after leaving failed: %v", err)
	}
}

func TestRegistry_JoinRaisesOtherMembersDirty(t *testing.T) {
	reg := NewRegistry()

	id, _ := reg.Request("u1", 4, false)

	// The owner has no pending change before anyone joins.
	if dirty, _ := reg.ConsumeDirty(id, "u1"); dirty {
		t.Error("Owner should not be dirty right after allocation")
	}

	reg.Join(id, "u2")

	if dirty, _ := reg.ConsumeDirty(id, "u1"); !dirty {
		t.Error("Owner should be dirty after another user joins")
	}
	if dirty, _ := reg.ConsumeDirty(id, "u2"); dirty {
		t.Error("The joining user should not see their own join as a change")
	}
}

func TestRegistry_ConsumeDirtyIsSingleShot(t *testing.T) {
	reg := NewRegistry()

	id, _ := reg.Request("u1", 4, false)
	reg.Join(id, "u2")

	first, err := reg.ConsumeDirty(id, "u1")
	if err != nil {
		t.Fatalf("ConsumeDirty failed: %v", err)
	}
	second, err := reg.ConsumeDirty(id, "u1")
	if err != nil {
		t.Fatalf("ConsumeDirty failed: %v", err)
	}
	if !first || second {
		t.Errorf("Expected true then false, got %v then %v", first, second)
	}
}

func TestRegistry_LeavePromotesNextMember(t *testing.T) {
	reg := NewRegistry()

	id, _ := reg.Request("u1", 3, false)
	reg.Join(id, "u2")
	reg.Join(id, "u3")

	empty, err := reg.Leave(id, "u1")
	if err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	if empty {
		t.Fatal("Room should not be empty after the owner leaves")
	}

	members, _ := reg.Members(id)
	if members[0] != "u2" {
		t.Errorf("Expected u2 to become owner, got %v", members)
	}
	if dirty, _ := reg.ConsumeDirty(id, "u3"); !dirty {
		t.Error("Remaining members should be dirty after a departure")
	}
}

func TestRegistry_LeaveUnknownUser(t *testing.T) {
	reg := NewRegistry()

	id, _ := reg.Request("u1", 2, false)

	_, err := reg.Leave(id, "ghost")
	if !errors.Is(err, gameerr.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestRegistry_LastLeaveFreesRoom(t *testing.T) {
	reg := NewRegistry()

	id, _ := reg.Request("u1", 2, false)

	empty, err := reg.Leave(id, "u1")
	if err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	if !empty {
		t.Fatal("Leave of the last member should report an empty room")
	}

	err = reg.Join(id, "u1")
	if !errors.Is(err, gameerr.ErrRoomNotFound) {
		t.Errorf("Joining a freed room should fail with ErrRoomNotFound, got %v", err)
	}
	if reg.OccupiedCount() != 0 {
		t.Errorf("Expected 0 occupied rooms, got %d", reg.OccupiedCount())
	}
}

func TestRegistry_Exhaustion(t *testing.T) {
	reg := NewRegistry()

	for i := 1; i <= MaxRooms; i++ {
		id, err := reg.Request(fmt.Sprintf("u%d", i), 4, false)
		if err != nil {
			t.Fatalf("Request %d failed: %v", i, err)
		}
		if id != i {
			t.Fatalf("Expected room id %d, got %d", i, id)
		}
	}

	_, err := reg.Request("u100", 4, false)
	if !errors.Is(err, gameerr.ErrNoRoomAvailable) {
		t.Errorf("Expected ErrNoRoomAvailable, got %v", err)
	}
}

func TestRegistry_ForceFlush(t *testing.T) {
	reg := NewRegistry()

	id, _ := reg.Request("u1", 4, false)
	reg.Join(id, "u2")

	if err := reg.ForceFlush(id); err != nil {
		t.Fatalf("ForceFlush failed: %v", err)
	}

	if _, err := reg.Members(id); !errors.Is(err, gameerr.ErrRoomNotFound) {
		t.Errorf("Expected ErrRoomNotFound after flush, got %v", err)
	}

	if err := reg.ForceFlush(id); !errors.Is(err, gameerr.ErrRoomNotFound) {
		t.Errorf("Flushing a free slot should fail with ErrRoomNotFound, got %v", err)
	}
}

func TestRegistry_SnapshotCopiesMembers(t *testing.T) {
	reg := NewRegistry()

	id, _ := reg.Request("u1", 2, true)
	reg.Join(id, "u2")

	members, maxPlayers, cheated, err := reg.Snapshot(id)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if maxPlayers != 2 || !cheated {
		t.Errorf("Unexpected snapshot: maxPlayers=%d cheated=%v", maxPlayers, cheated)
	}

	members[0] = "tampered"
	fresh, _ := reg.Members(id)
	if fresh[0] != "u1" {
		t.Error("Snapshot should return a copy, not the backing slice")
	}
}
