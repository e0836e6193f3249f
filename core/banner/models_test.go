package banner

import (
	"testing"
	"time"
)

func TestConfig_Active(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name string
		conf Config
		want bool
	}{
		{name: "zero value", conf: Config{}},
		{name: "disabled", conf: Config{Message: "Closed tonight"}},
		{name: "enabled without message", conf: Config{Enabled: true}},
		{name: "no expiry", conf: Config{Enabled: true, Message: "Closed tonight"}, want: true},
		{name: "future expiry", conf: Config{Enabled: true, Message: "Closed tonight", Expiry: &future}, want: true},
		{name: "expiry just reached", conf: Config{Enabled: true, Message: "Closed tonight", Expiry: &now}},
		{name: "past expiry", conf: Config{Enabled: true, Message: "Closed tonight", Expiry: &past}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.conf.Active(now); got != tt.want {
				t.Errorf("Active() = %v, want %v", got, tt.want)
			}
		})
	}
}
