package bridge

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const (
	templateBase = "https://bridge.example.com/rss/{channel}/token123"
	suffixBase   = "https://bridge.example.com/rss"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		channel string
		opts    Options
		want    string
		wantErr error
	}{
		{
			name:    "placeholder base no options",
			base:    templateBase,
			channel: "technews",
			want:    "https://bridge.example.com/rss/technews/token123",
		},
		{
			name:    "suffix base no options",
			base:    suffixBase,
			channel: "technews",
			want:    "https://bridge.example.com/rss/technews",
		},
		{
			name:    "suffix base trailing slash",
			base:    suffixBase + "/",
			channel: "technews",
			want:    "https://bridge.example.com/rss/technews",
		},
		{
			name:    "private channel id",
			base:    suffixBase,
			channel: "-1001234567890",
			want:    "https://bridge.example.com/rss/-1001234567890",
		},
		{
			name:    "all options",
			base:    suffixBase,
			channel: "technews",
			opts: Options{
				ExcludeFlags: []string{"fwd", "advert"},
				ExcludeText:  "spam|ads",
				MergeSeconds: 300,
			},
			want: "https://bridge.example.com/rss/technews?exclude_flags=fwd%2Cadvert&exclude_text=spam%7Cads&merge_seconds=300",
		},
		{
			name:    "zero merge seconds omitted",
			base:    suffixBase,
			channel: "technews",
			opts:    Options{MergeSeconds: 0},
			want:    "https://bridge.example.com/rss/technews",
		},
		{
			name:    "empty base",
			base:    "",
			channel: "technews",
			wantErr: ErrNoBridgeURL,
		},
		{
			name:    "relative base",
			base:    "/rss/{channel}",
			channel: "technews",
			wantErr: ErrBadBridgeURL,
		},
		{
			name:    "non-http scheme",
			base:    "ftp://bridge.example.com/rss",
			channel: "technews",
			wantErr: ErrBadBridgeURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Build(tt.base, tt.channel, tt.opts)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Build() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Build() (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractChannel(t *testing.T) {
	tests := []struct {
		name    string
		feedURL string
		base    string
		want    string
	}{
		{
			name:    "placeholder base",
			feedURL: "https://bridge.example.com/rss/technews/token123",
			base:    templateBase,
			want:    "technews",
		},
		{
			name:    "suffix base",
			feedURL: "https://bridge.example.com/rss/technews",
			base:    suffixBase,
			want:    "technews",
		},
		{
			name:    "suffix base with query",
			feedURL: "https://bridge.example.com/rss/technews?exclude_flags=fwd",
			base:    suffixBase,
			want:    "technews",
		},
		{
			name:    "escaped channel",
			feedURL: "https://bridge.example.com/rss/%40technews",
			base:    suffixBase,
			want:    "@technews",
		},
		{
			name:    "foreign url",
			feedURL: "https://other.example.com/rss/technews",
			base:    suffixBase,
			want:    "",
		},
		{
			name:    "empty feed url",
			feedURL: "",
			base:    suffixBase,
			want:    "",
		},
		{
			name:    "empty base",
			feedURL: "https://bridge.example.com/rss/technews",
			base:    "",
			want:    "",
		},
		{
			name:    "base prefix only, no channel",
			feedURL: "https://bridge.example.com/rss/",
			base:    suffixBase,
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractChannel(tt.feedURL, tt.base)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ExtractChannel() (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildParseRoundTrip(t *testing.T) {
	bases := []string{templateBase, suffixBase}
	channels := []string{"technews", "some_channel", "-1001234567890"}
	opts := []Options{
		{},
		{ExcludeFlags: []string{"fwd"}},
		{ExcludeFlags: []string{"fwd", "video", "advert"}, ExcludeText: "реклама|спам", MergeSeconds: 600},
		{MergeSeconds: 60},
	}

	for _, base := range bases {
		for _, ch := range channels {
			for _, o := range opts {
				built, err := Build(base, ch, o)
				if err != nil {
					t.Fatalf("Build(%q, %q): %v", base, ch, err)
				}
				parsed, ok := Parse(built, base)
				if !ok {
					t.Fatalf("Parse(%q, %q) not ok", built, base)
				}
				if diff := cmp.Diff(ch, parsed.Channel); diff != "" {
					t.Errorf("channel round trip (-want +got):\n%s", diff)
				}
				if diff := cmp.Diff(o, parsed.Options); diff != "" {
					t.Errorf("options round trip for %q (-want +got):\n%s", built, diff)
				}
			}
		}
	}
}

func TestParseRejectsForeign(t *testing.T) {
	cases := []string{
		"",
		"https://other.example.com/feed.xml",
		"not a url at all",
	}
	for _, c := range cases {
		if _, ok := Parse(c, suffixBase); ok {
			t.Errorf("Parse(%q) ok = true, want false", c)
		}
	}
}
