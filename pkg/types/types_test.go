package types_test

import (
	"errors"
	"testing"

	"github.com/poltergeist/callcenter/pkg/types"
)

func TestParsePriority(t *testing.T) {
	tests := []struct {
		input   string
		want    types.Priority
		wantErr bool
	}{
		{input: "vip", want: types.PriorityVIP},
		{input: "VIP", want: types.PriorityVIP},
		{input: " High ", want: types.PriorityHigh},
		{input: "medium", want: types.PriorityMedium},
		{input: "low", want: types.PriorityLow},
		{input: "0", want: types.PriorityVIP},
		{input: "3", want: types.PriorityLow},
		{input: "4", wantErr: true},
		{input: "-1", wantErr: true},
		{input: "urgent", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := types.ParsePriority(tt.input)
			if tt.wantErr {
				if !errors.Is(err, types.ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestPriorityOrdering(t *testing.T) {
	for i := 1; i < len(types.Priorities); i++ {
		if types.Priorities[i-1] >= types.Priorities[i] {
			t.Errorf("expected %s to precede %s", types.Priorities[i-1], types.Priorities[i])
		}
	}
	if types.Priority(7).IsValid() {
		t.Error("expected out-of-range priority to be invalid")
	}
	if got := types.Priority(7).String(); got != "Priority(7)" {
		t.Errorf("unexpected string for unknown priority: %s", got)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := types.DefaultConfig()
	if cfg.Agents < 1 || cfg.Agents > types.MaxAgentCount {
		t.Errorf("default agent count %d outside 1..%d", cfg.Agents, types.MaxAgentCount)
	}
	if cfg.MaxCallDuration != types.DefaultMaxCallDuration {
		t.Errorf("expected max duration %d, got %d", types.DefaultMaxCallDuration, cfg.MaxCallDuration)
	}
	if cfg.Ledger.Backend != types.LedgerBackendFile {
		t.Errorf("expected file backend, got %s", cfg.Ledger.Backend)
	}
}
