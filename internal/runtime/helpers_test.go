package runtime

import (
	"context"

	"github.com/UniQw/uniqm-go/internal/hctx"
)

func hctxFrom(ctx context.Context) (string, bool) {
	st, ok := hctx.From(ctx)
	if !ok {
		return "", false
	}
	return st.JobID + "|" + st.Queue + "|" + st.Action, true
}
