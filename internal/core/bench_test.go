package core

import (
	"fmt"
	"testing"
)

func benchmarkChannelBroadcast(b *testing.B, recipients int) {
	reg := NewRegistry(nil, nil)

	members := make([]*Outbox, 0, recipients)
	for i := range recipients {
		ep := NewOutbox(fmt.Sprintf("c%d", i), 1)
		reg.Join("bench", ep)
		members = append(members, ep)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		reg.Broadcast("bench", "payload")
		for _, ep := range members {
			<-ep.Queue()
		}
	}
}

func BenchmarkChannelBroadcast_10(b *testing.B)  { benchmarkChannelBroadcast(b, 10) }
func BenchmarkChannelBroadcast_100(b *testing.B) { benchmarkChannelBroadcast(b, 100) }
func BenchmarkChannelBroadcast_500(b *testing.B) { benchmarkChannelBroadcast(b, 500) }
