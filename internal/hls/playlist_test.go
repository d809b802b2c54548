package hls

import "testing"

func TestCountSegments(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{
			name: "two ts segments",
			body: "#EXTM3U\nseg1.ts\nseg2.ts\n#EXT-X-ENDLIST",
			want: 2,
		},
		{
			name: "single segment with tags",
			body: "#EXTM3U\n#EXT-X-TARGETDURATION:1\n#EXTINF:1.0,\nseg_00001.ts\n",
			want: 1,
		},
		{
			name: "fmp4 segments",
			body: "#EXTM3U\n#EXT-X-MAP:URI=\"init.mp4\"\nseg1.m4s\nseg2.m4s\nseg3.m4s\n",
			want: 3,
		},
		{
			name: "query strings ignored",
			body: "#EXTM3U\nseg1.ts?token=abc\nseg2.ts?token=def\n",
			want: 2,
		},
		{
			name: "unrelated lines not counted",
			body: "#EXTM3U\ninit.mp4\nreadme.txt\n",
			want: 0,
		},
		{
			name: "empty body",
			body: "",
			want: 0,
		},
		{
			name: "html error page",
			body: "<html><body>404 not found</body></html>",
			want: 0,
		},
		{
			name: "windows line endings",
			body: "#EXTM3U\r\nseg1.ts\r\nseg2.ts\r\n",
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountSegments(tt.body); got != tt.want {
				t.Errorf("CountSegments() = %d, want %d", got, tt.want)
			}
		})
	}
}
