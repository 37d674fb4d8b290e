package core

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryJoinBroadcastAndLeave(t *testing.T) {
	reg := NewRegistry(nil, nil)
	alice := NewOutbox("a", 8)
	bob := NewOutbox("b", 8)

	reg.Join("general", alice)
	reg.Join("general", bob)
	require.Equal(t, []string{"general"}, reg.ListChannels())
	require.Equal(t, 2, reg.Members("general"))

	reg.Broadcast("general", ChatLine("alice", "hi"))
	require.Equal(t, "[alice] hi", mustLine(t, alice))
	require.Equal(t, "[alice] hi", mustLine(t, bob))

	reg.Leave("general", alice)
	require.Equal(t, 1, reg.Members("general"))
	require.False(t, reg.IsMember("general", alice))

	reg.Leave("general", bob)
	require.Empty(t, reg.ListChannels())
}

func TestRegistryJoinIsIdempotent(t *testing.T) {
	reg := NewRegistry(nil, nil)
	alice := NewOutbox("a", 8)

	reg.Join("general", alice)
	reg.Join("general", alice)
	require.Equal(t, 1, reg.Members("general"))

	reg.Broadcast("general", "once")
	require.Equal(t, "once", mustLine(t, alice))
	mustBeQuiet(t, alice)
}

func TestRegistryLeaveUnknownIsNoop(t *testing.T) {
	reg := NewRegistry(nil, nil)
	alice := NewOutbox("a", 8)
	bob := NewOutbox("b", 8)

	reg.Leave("ghost", alice)
	reg.Leave("", alice)

	reg.Join("general", alice)
	reg.Leave("general", bob)
	require.Equal(t, 1, reg.Members("general"))

	reg.Leave("general", alice)
	reg.Leave("general", alice)
	require.Empty(t, reg.ListChannels())
}

func TestRegistryListChannelsIsSnapshot(t *testing.T) {
	reg := NewRegistry(nil, nil)
	ep := NewOutbox("a", 8)
	reg.Join("b", ep)
	reg.Join("a", NewOutbox("x", 8))

	names := reg.ListChannels()
	require.Equal(t, []string{"a", "b"}, names)

	names[0] = "mutated"
	reg.Leave("b", ep)
	require.Equal(t, []string{"a"}, reg.ListChannels())
	require.Equal(t, []ChannelInfo{{Name: "a", Members: 1}}, reg.Channels())
}

func TestRegistryBroadcastScopedToChannel(t *testing.T) {
	reg := NewRegistry(nil, nil)
	alice := NewOutbox("a", 8)
	bob := NewOutbox("b", 8)
	carol := NewOutbox("c", 8)

	reg.Join("a", alice)
	reg.Join("a", bob)
	reg.Join("b", carol)

	reg.Broadcast("a", "for a")
	reg.Broadcast("missing", "nobody")

	require.Equal(t, "for a", mustLine(t, alice))
	require.Equal(t, "for a", mustLine(t, bob))
	mustBeQuiet(t, carol)
}

func TestRegistryBroadcastSurvivesFailingMember(t *testing.T) {
	reg := NewRegistry(nil, nil)
	broken := failingEndpoint{id: "broken", err: errors.New("boom")}
	alice := NewOutbox("a", 8)

	reg.Join("general", broken)
	reg.Join("general", alice)

	reg.Broadcast("general", "still here")
	require.Equal(t, "still here", mustLine(t, alice))
	require.Equal(t, 2, reg.Members("general"), "failing member must not be removed")
}

func TestRegistryBroadcastDropsForFullQueue(t *testing.T) {
	reg := NewRegistry(nil, nil)
	slow := NewOutbox("slow", 1)
	fast := NewOutbox("fast", 8)
	reg.Join("general", slow)
	reg.Join("general", fast)

	reg.Broadcast("general", "one")
	reg.Broadcast("general", "two")

	require.Equal(t, "one", mustLine(t, slow))
	mustBeQuiet(t, slow)
	require.Equal(t, "one", mustLine(t, fast))
	require.Equal(t, "two", mustLine(t, fast))
}

func TestRegistryNicknames(t *testing.T) {
	reg := NewRegistry(nil, nil)
	alice := NewOutbox("a", 8)
	bob := NewOutbox("b", 8)

	require.True(t, reg.IsNicknameAvailable("alice"))
	reg.RegisterNickname("alice", alice)
	require.False(t, reg.IsNicknameAvailable("alice"))

	// plain register overwrites without checking
	reg.RegisterNickname("alice", bob)
	reg.ReleaseNickname("alice", alice)
	require.False(t, reg.IsNicknameAvailable("alice"), "release by a non-owner must be ignored")

	reg.UnregisterNickname("alice")
	reg.UnregisterNickname("alice")
	reg.UnregisterNickname("unknown")
	require.True(t, reg.IsNicknameAvailable("alice"))
}

func TestRegistryClaimNickname(t *testing.T) {
	reg := NewRegistry(nil, nil)
	alice := NewOutbox("a", 8)
	bob := NewOutbox("b", 8)

	require.True(t, reg.ClaimNickname("alice", "", alice))
	require.False(t, reg.ClaimNickname("alice", "", bob))
	require.False(t, reg.ClaimNickname("alice", "alice", alice))

	require.True(t, reg.ClaimNickname("alicia", "alice", alice))
	require.True(t, reg.IsNicknameAvailable("alice"))
	require.False(t, reg.IsNicknameAvailable("alicia"))

	// bob cannot release a name he does not own while renaming
	require.True(t, reg.ClaimNickname("bob", "alicia", bob))
	require.False(t, reg.IsNicknameAvailable("alicia"))
	require.Equal(t, Stats{Nicknames: 2}, reg.Stats())
}

func TestRegistryClaimNicknameConcurrent(t *testing.T) {
	reg := NewRegistry(nil, nil)

	const contenders = 64
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
	)
	for i := range contenders {
		wg.Add(1)
		go func(ep *Outbox) {
			defer wg.Done()
			if reg.ClaimNickname("alice", "", ep) {
				mu.Lock()
				winners = append(winners, ep.ID())
				mu.Unlock()
			}
		}(NewOutbox(fmt.Sprintf("s%d", i), 1))
	}
	wg.Wait()

	require.Len(t, winners, 1)
}

func TestRegistryWhisper(t *testing.T) {
	reg := NewRegistry(nil, nil)
	alice := NewOutbox("a", 8)
	bob := NewOutbox("b", 8)
	reg.RegisterNickname("alice", alice)
	reg.RegisterNickname("bob", bob)

	reg.Whisper("alice", "bob", "psst", alice)
	require.Equal(t, "[Whisper from alice] psst", mustLine(t, bob))
	require.Equal(t, "Message sent to bob", mustLine(t, alice))

	reg.Whisper("alice", "carol", "hello?", alice)
	require.Equal(t, "Error: User 'carol' not found", mustLine(t, alice))
	mustBeQuiet(t, bob)

	reg.Whisper("ghost", "bob", "boo", alice)
	require.Equal(t, "Error: User 'ghost' not found", mustLine(t, alice))
	mustBeQuiet(t, bob)
}

func TestRegistryWhisperDeliveryFailure(t *testing.T) {
	reg := NewRegistry(nil, nil)
	alice := NewOutbox("a", 8)
	bob := NewOutbox("b", 8)
	reg.RegisterNickname("alice", alice)
	reg.RegisterNickname("bob", bob)
	bob.Close()

	reg.Whisper("alice", "bob", "psst", alice)
	require.Equal(t, "Error: Failed to send message - endpoint closed", mustLine(t, alice))
}

func TestRegistryConcurrentMembership(t *testing.T) {
	reg := NewRegistry(nil, nil)

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func(ep *Outbox) {
			defer wg.Done()
			for j := range 50 {
				ch := fmt.Sprintf("room%d", j%4)
				reg.Join(ch, ep)
				reg.Broadcast(ch, "x")
				for range ep.Pending() {
					<-ep.Queue()
				}
				reg.Leave(ch, ep)
			}
		}(NewOutbox(fmt.Sprintf("s%d", i), 256))
	}
	wg.Wait()

	require.Empty(t, reg.ListChannels())
	require.Equal(t, Stats{}, reg.Stats())
}
