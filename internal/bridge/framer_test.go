package bridge

import (
	"reflect"
	"testing"
)

// TestFramerFeed verifies line splitting across partial and coalesced reads.
func TestFramerFeed(t *testing.T) {
	tests := []struct {
		name  string
		feeds []string
		want  [][]string
	}{
		{
			name:  "single complete line",
			feeds: []string{"{\"a\":1}\n"},
			want:  [][]string{{`{"a":1}`}},
		},
		{
			name:  "partial then completion",
			feeds: []string{`{"a"`, ":1}\n"},
			want:  [][]string{nil, {`{"a":1}`}},
		},
		{
			name:  "two lines in one read",
			feeds: []string{"{\"a\":1}\n{\"b\":2}\n"},
			want:  [][]string{{`{"a":1}`, `{"b":2}`}},
		},
		{
			name:  "crlf terminator trimmed",
			feeds: []string{"{\"a\":1}\r\n"},
			want:  [][]string{{`{"a":1}`}},
		},
		{
			name:  "blank lines skipped",
			feeds: []string{"\n\n{\"a\":1}\n\n"},
			want:  [][]string{{`{"a":1}`}},
		},
		{
			name:  "no terminator buffers everything",
			feeds: []string{`{"a":1}`},
			want:  [][]string{nil},
		},
		{
			name:  "trailing partial survives across feeds",
			feeds: []string{"{\"a\":1}\n{\"b\"", ":2}\n"},
			want:  [][]string{{`{"a":1}`}, {`{"b":2}`}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &framer{}
			for i, feed := range tt.feeds {
				got := f.Feed([]byte(feed))
				if !reflect.DeepEqual(got, tt.want[i]) {
					t.Errorf("feed %d: got %v, want %v", i, got, tt.want[i])
				}
			}
		})
	}
}

// TestFramerReset verifies a buffered partial line is discarded on Reset.
func TestFramerReset(t *testing.T) {
	f := &framer{}
	if got := f.Feed([]byte(`{"half":`)); got != nil {
		t.Fatalf("unexpected lines from partial feed: %v", got)
	}

	f.Reset()

	got := f.Feed([]byte("{\"full\":true}\n"))
	want := []string{`{"full":true}`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("after reset: got %v, want %v", got, want)
	}
}
