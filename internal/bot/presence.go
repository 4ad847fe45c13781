package bot

import (
	"context"
	"fmt"
	"time"
)

const presenceRefresh = time.Minute

// runPresence refreshes every shard's listening status until ctx ends.
func (b *Bot) runPresence(ctx context.Context) {
	tick := time.NewTicker(presenceRefresh)
	defer tick.Stop()

	for {
		b.updatePresence()
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}

func presenceStatus(shardID, guildCount int) string {
	return fmt.Sprintf("/play • shard #%d • %d servidores", max(1, shardID+1), guildCount)
}

func (b *Bot) updatePresence() {
	for _, s := range b.sessions {
		guilds := 0
		if s.State != nil {
			guilds = len(s.State.Guilds)
		}

		if err := s.UpdateListeningStatus(presenceStatus(s.ShardID, guilds)); err != nil {
			b.log.Debug("failed to update presence", "shard", s.ShardID, "error", err)
		}
	}
}
