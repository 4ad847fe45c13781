package ping

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

type Status struct {
	GatewayLatency time.Duration
	Guilds         int
	Shards         int
}

func StatusOf(s *discordgo.Session) Status {
	st := Status{
		GatewayLatency: s.HeartbeatLatency().Round(time.Millisecond),
		Shards:         max(1, s.ShardCount),
	}
	if s.State != nil {
		st.Guilds = len(s.State.Guilds)
	}
	return st
}

func (st Status) Message() string {
	return fmt.Sprintf("**Pong!**\n**Latencia del gateway:** %s\n**Servidores:** %d • **Shards:** %d",
		st.GatewayLatency, st.Guilds, st.Shards)
}
