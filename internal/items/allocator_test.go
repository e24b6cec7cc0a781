package items

import "testing"

func TestNextTagIDStartsSequenceWhenEmpty(t *testing.T) {
	if got := NextTagID("topic", ""); got != "topic_0" {
		t.Fatalf("expected topic_0, got %s", got)
	}
}

func TestNextTagIDIncrementsSuffix(t *testing.T) {
	tests := []struct {
		highest string
		want    string
	}{
		{highest: "topic_0", want: "topic_1"},
		{highest: "topic_7", want: "topic_8"},
		{highest: "topic_9", want: "topic_10"},
		{highest: "skill_41", want: "skill_42"},
	}
	for _, tt := range tests {
		prefix := "topic"
		if tt.want[0] == 's' {
			prefix = "skill"
		}
		if got := NextTagID(prefix, tt.highest); got != tt.want {
			t.Fatalf("NextTagID(%q, %q) = %s, want %s", prefix, tt.highest, got, tt.want)
		}
	}
}

func TestNextTagIDFallsBackOnMalformedSuffix(t *testing.T) {
	tests := []string{"topic", "topic_", "topic_abc", "legacy id", "Some_Topic_Name"}
	for _, highest := range tests {
		if got := NextTagID("topic", highest); got != "topic_0" {
			t.Fatalf("NextTagID(topic, %q) = %s, want topic_0 fallback", highest, got)
		}
	}
}

func TestAllocateTagIDsRunsAsSingleIncrement(t *testing.T) {
	ids := allocateTagIDs("topic", "topic_7", 3)
	want := []string{"topic_8", "topic_9", "topic_10"}
	if len(ids) != len(want) {
		t.Fatalf("expected %d ids, got %d", len(want), len(ids))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], ids[i])
		}
	}
}

func TestAllocateTagIDsRestartsAfterFallback(t *testing.T) {
	ids := allocateTagIDs("skill", "corrupted", 2)
	if ids[0] != "skill_0" || ids[1] != "skill_1" {
		t.Fatalf("expected fallback restart skill_0, skill_1, got %v", ids)
	}
}
