package keys

import "testing"

func BenchmarkFor(b *testing.B) {
	b.ReportAllocs()
	var sink Keys
	for i := 0; i < b.N; i++ {
		sink = For("uniqm")
	}
	_ = sink
}

func BenchmarkBuilders(b *testing.B) {
	k := For("uniqm")
	cases := []struct {
		name string
		fn   func() string
	}{
		{"Queue", func() string { return k.Queue("video-jobs") }},
		{"Entry", func() string { return k.Entry("video-jobs", "1700000000000000001") }},
		{"JobStatus", func() string { return k.JobStatus("video-jobs:1700000000000000001") }},
		{"JobID", func() string { return k.JobID("uniqm:video-jobs:1700000000000000001") }},
	}
	for _, c := range cases {
		b.Run(c.name, func(b *testing.B) {
			b.ReportAllocs()
			var s string
			for i := 0; i < b.N; i++ {
				s = c.fn()
			}
			_ = s
		})
	}
}
