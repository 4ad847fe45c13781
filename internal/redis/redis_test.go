package redis

import "testing"

func TestConfig_Options(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantAddr string
		wantDB   int
	}{
		{name: "explicit port", cfg: Config{Host: "cache", Port: 6380, DB: 2}, wantAddr: "cache:6380", wantDB: 2},
		{name: "default port", cfg: Config{Host: "localhost"}, wantAddr: "localhost:6379"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.cfg.Options()
			if opts.Addr != tt.wantAddr {
				t.Errorf("Addr = %q, want %q", opts.Addr, tt.wantAddr)
			}
			if opts.DB != tt.wantDB {
				t.Errorf("DB = %d, want %d", opts.DB, tt.wantDB)
			}
		})
	}
}
