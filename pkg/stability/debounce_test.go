package stability

import (
	"testing"
	"time"
)

func TestDebounce(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		gap   time.Duration
		label string
		want  int
	}{
		{"same label within cooldown", 500 * time.Millisecond, "X", 1},
		{"same label after cooldown", 2500 * time.Millisecond, "X", 2},
		{"same label at exactly cooldown", 2000 * time.Millisecond, "X", 1},
		{"different label within cooldown", 100 * time.Millisecond, "Y", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDebounce(DefaultConfig().ReannounceCooldown)
			announced := 0
			if d.ShouldAnnounce(ReadyEvent{Label: "X", Timestamp: start}) {
				announced++
			}
			if d.ShouldAnnounce(ReadyEvent{Label: tt.label, Timestamp: start.Add(tt.gap)}) {
				announced++
			}
			if announced != tt.want {
				t.Errorf("announced %d, want %d", announced, tt.want)
			}
		})
	}
}

func TestDebounce_SuppressedDoesNotExtendWindow(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDebounce(2 * time.Second)

	d.ShouldAnnounce(ReadyEvent{Label: "X", Timestamp: start})
	if d.ShouldAnnounce(ReadyEvent{Label: "X", Timestamp: start.Add(1500 * time.Millisecond)}) {
		t.Fatal("expected suppression inside cooldown")
	}
	if !d.ShouldAnnounce(ReadyEvent{Label: "X", Timestamp: start.Add(2100 * time.Millisecond)}) {
		t.Error("cooldown should be measured from the last announcement, not the last attempt")
	}

	label, at := d.Last()
	if label != "X" || !at.Equal(start.Add(2100*time.Millisecond)) {
		t.Errorf("unexpected last announcement %q at %v", label, at)
	}
}

func TestDebounce_Reset(t *testing.T) {
	now := time.Now()
	d := NewDebounce(time.Hour)
	d.ShouldAnnounce(ReadyEvent{Label: "X", Timestamp: now})
	d.Reset()

	if !d.ShouldAnnounce(ReadyEvent{Label: "X", Timestamp: now.Add(time.Millisecond)}) {
		t.Error("expected announcement after reset")
	}
}
