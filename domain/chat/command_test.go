package chat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLaneKey_Same_For_Both_Participants(t *testing.T) {
	req := require.New(t)

	// Given alice and bob talking to each other
	fromAlice := SendMessage{TargetUserID: "bob"}.LaneKey("alice")
	fromBob := SendMessage{TargetUserID: "alice"}.LaneKey("bob")

	// Then both land on the same lane
	req.Equal(fromAlice, fromBob)
	req.Equal(fromAlice, JoinPrivateChat{TargetUserID: "bob"}.LaneKey("alice"))
	req.Equal(fromAlice, Typing{TargetUserID: "alice"}.LaneKey("bob"))
}

func TestLaneKey_Message_Commands_Share_Lane(t *testing.T) {
	req := require.New(t)
	req.Equal(MarkAsRead{MessageID: "m1"}.LaneKey("alice"), EditMessage{MessageID: "m1"}.LaneKey("bob"))
	req.NotEqual(MarkAsRead{MessageID: "m1"}.LaneKey("alice"), MarkAsRead{MessageID: "m2"}.LaneKey("alice"))
}

func TestLaneKey_Invalid_Target_Falls_Back_To_Requester(t *testing.T) {
	req := require.New(t)
	req.Equal("user:alice", SendMessage{TargetUserID: ""}.LaneKey("alice"))
	req.Equal("user:alice", SendMessage{TargetUserID: "alice"}.LaneKey("alice"))
}
