package bot

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"miniflux_bot/internal/bridge"
	"miniflux_bot/internal/model"
)

func TestDecodeAction(t *testing.T) {
	tests := []struct {
		name string
		data string
		want action
	}{
		{"category pick", "cat:3", action{kind: actionCategoryPick, categoryID: 3}},
		{"feed pick", "feed:42", action{kind: actionFeedPick, feedID: 42}},
		{"link pick", "link:0", action{kind: actionLinkPick, linkIndex: 0}},
		{"flag toggle", "flag:7:video", action{kind: actionFlagToggle, feedID: 7, flag: "video"}},
		{"edit regex", "regex:7", action{kind: actionEditRegex, feedID: 7}},
		{"edit merge", "merge:7", action{kind: actionEditMergeTime, feedID: 7}},
		{"delete", "del:7", action{kind: actionDelete, feedID: 7}},
		{"delete confirm", "delc:7", action{kind: actionDeleteConfirm, feedID: 7}},
		{"noop", "noop", action{kind: actionNoop}},
		{"underscore separator", "cat_abc", action{}},
		{"non-numeric id", "cat:abc", action{}},
		{"negative link index", "link:-1", action{}},
		{"missing flag name", "flag:7:", action{}},
		{"trailing garbage", "cat:3:extra", action{}},
		{"unknown namespace", "zzz:1", action{}},
		{"empty", "", action{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeAction(tt.data)
			if diff := cmp.Diff(tt.want, got, cmp.AllowUnexported(action{})); diff != "" {
				t.Errorf("decodeAction(%q) (-want +got):\n%s", tt.data, diff)
			}
		})
	}
}

func TestParseMergeMinutes(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"0", 0, false},
		{"15", 15, false},
		{" 60 ", 60, false},
		{"1440", 1440, false},
		{"1441", 0, true},
		{"-5", 0, true},
		{"abc", 0, true},
		{"", 0, true},
		{"1.5", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseMergeMinutes(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseMergeMinutes(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseMergeMinutes(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateRegex(t *testing.T) {
	if err := validateRegex(`spam|реклама`); err != nil {
		t.Errorf("valid pattern rejected: %v", err)
	}
	if err := validateRegex(`[unclosed`); err == nil {
		t.Error("invalid pattern accepted")
	}
}

func TestToggleFlag(t *testing.T) {
	tests := []struct {
		name  string
		flags []string
		flag  string
		want  []string
	}{
		{"add to empty", nil, "fwd", []string{"fwd"}},
		{"add second", []string{"fwd"}, "video", []string{"fwd", "video"}},
		{"remove first", []string{"fwd", "video"}, "fwd", []string{"video"}},
		{"remove last", []string{"fwd", "video"}, "video", []string{"fwd"}},
		{"remove only", []string{"fwd"}, "fwd", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toggleFlag(tt.flags, tt.flag)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("toggleFlag (-want +got):\n%s", diff)
			}
		})
	}
}

func TestChannelLabel(t *testing.T) {
	tests := []struct {
		name string
		ref  model.ChannelRef
		want string
	}{
		{"public", model.ChannelRef{ID: "somechan"}, "@somechan"},
		{"private with title", model.ChannelRef{ID: "-1001234", Title: "Secret"}, "Secret"},
		{"private without title", model.ChannelRef{ID: "-1001234"}, "-1001234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := channelLabel(&tt.ref); got != tt.want {
				t.Errorf("channelLabel = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDescribeOptions(t *testing.T) {
	tests := []struct {
		name string
		opts bridge.Options
		want string
	}{
		{"empty", bridge.Options{}, "No filters configured."},
		{"flags only", bridge.Options{ExcludeFlags: []string{"fwd", "video"}}, "excluded: fwd, video"},
		{"all", bridge.Options{ExcludeFlags: []string{"fwd"}, ExcludeText: "spam", MergeSeconds: 900},
			"excluded: fwd | regex: spam | merge: 15 min"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describeOptions(tt.opts); got != tt.want {
				t.Errorf("describeOptions = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatFeedList(t *testing.T) {
	entries := []listEntry{
		{
			feed:   model.Feed{ID: 5, FeedURL: "u", Category: model.Category{Title: "Tech"}},
			parsed: bridge.Parsed{Channel: "chan_b"},
		},
		{
			feed:   model.Feed{ID: 1, FeedURL: "u", Category: model.Category{Title: "News"}},
			parsed: bridge.Parsed{Channel: "chan_a", Options: bridge.Options{ExcludeText: "spam"}},
			local:  "Channel A",
		},
	}

	chunks := formatFeedList(entries)
	if len(chunks) != 1 {
		t.Fatalf("expected one chunk, got %d", len(chunks))
	}
	out := chunks[0]

	// Categories sorted, local title preferred, options annotated.
	newsIdx := strings.Index(out, "📂 News")
	techIdx := strings.Index(out, "📂 Tech")
	if newsIdx == -1 || techIdx == -1 || newsIdx > techIdx {
		t.Errorf("categories missing or unsorted:\n%s", out)
	}
	requireContains(t, out, "1: Channel A (chan_a)")
	requireContains(t, out, "regex: spam")
	requireContains(t, out, "5:")
}

func TestChunkLines(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if got := chunkLines("", 10); got != nil {
			t.Errorf("expected nil, got %v", got)
		}
	})

	t.Run("fits in one", func(t *testing.T) {
		got := chunkLines("a\nb\nc", 100)
		if diff := cmp.Diff([]string{"a\nb\nc"}, got); diff != "" {
			t.Errorf("chunks (-want +got):\n%s", diff)
		}
	})

	t.Run("splits on line boundary", func(t *testing.T) {
		var lines []string
		for i := 0; i < 100; i++ {
			lines = append(lines, strings.Repeat("x", 80))
		}
		got := chunkLines(strings.Join(lines, "\n"), maxMessageLen)
		if len(got) < 2 {
			t.Fatalf("expected multiple chunks, got %d", len(got))
		}
		for i, c := range got {
			if len(c) > maxMessageLen {
				t.Errorf("chunk %d exceeds limit: %d chars", i, len(c))
			}
			if strings.HasSuffix(c, "\n") || strings.HasPrefix(c, "\n") {
				t.Errorf("chunk %d has stray newline at boundary", i)
			}
		}
		rejoined := strings.Join(got, "\n")
		if diff := cmp.Diff(strings.Join(lines, "\n"), rejoined); diff != "" {
			t.Errorf("content lost in chunking (-want +got):\n%s", diff)
		}
	})
}

func TestSessionExpiry(t *testing.T) {
	b, _, _ := newTestBot(t)

	s := b.session(100)
	s.await = AwaitRegex
	s.feedID = 7
	s.touchedAt = time.Now().Add(-sessionTTL - time.Minute)

	// Lazy expiry on next access.
	s = b.session(100)
	if s.await != AwaitNone {
		t.Errorf("stale session not expired on access: %s", s.await)
	}

	// Sweeper removes stale entries outright.
	s.await = AwaitMergeTime
	s.touchedAt = time.Now().Add(-sessionTTL - time.Minute)
	b.sweepSessions()
	b.mu.Lock()
	_, ok := b.sessions[100]
	b.mu.Unlock()
	if ok {
		t.Error("sweeper left stale session in place")
	}
}
