package urltools

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalPath(t *testing.T) {
	for _, tc := range []struct {
		url     string
		path    string
		isLocal bool
	}{
		{"/tmp/video.mkv", "/tmp/video.mkv", true},
		{"video.mp4", "video.mp4", true},
		{"file:///tmp/video.mkv", "/tmp/video.mkv", true},
		{"rtmp://localhost/live/key", "", false},
		{"srt://127.0.0.1:4000", "", false},
		{"https://example.com/stream.m3u8", "", false},
	} {
		t.Run(tc.url, func(t *testing.T) {
			path, isLocal := LocalPath(tc.url)
			require.Equal(t, tc.isLocal, isLocal)
			require.Equal(t, tc.path, path)
		})
	}
}
