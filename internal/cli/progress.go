package cli

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
)

// newOperationBar renders a determinate progress bar over total items,
// or an indeterminate spinner-style bar when total is unknown (<= 0).
func newOperationBar(total int, description string) *progressbar.ProgressBar {
	if total <= 0 {
		return progressbar.NewOptions(-1,
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowElapsedTimeOnFinish(),
		)
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("ops/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)
}

// formatNumber renders n with thousands separators, e.g. 1234567 -> "1,234,567".
func formatNumber(n int) string {
	s := fmt.Sprintf("%d", n)
	if n < 0 {
		return s
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	return string(out)
}
