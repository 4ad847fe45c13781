package ping

import (
	"testing"
	"time"
)

func TestStatus_Message(t *testing.T) {
	st := Status{GatewayLatency: 42 * time.Millisecond, Guilds: 3, Shards: 1}
	want := "**Pong!**\n**Latencia del gateway:** 42ms\n**Servidores:** 3 • **Shards:** 1"
	if got := st.Message(); got != want {
		t.Errorf("Message() = %q, want %q", got, want)
	}
}
