package transcode

import (
	"fmt"

	"github.com/rendermux/rendermux/internal/models"
)

// BitrateLimiter caps the encoder output rate for clients on the low-bitrate
// path. The buffer size is twice the ceiling so short spikes do not stall the
// stream.
type BitrateLimiter struct {
	// MaxKbps is the output rate ceiling in kilobits per second.
	MaxKbps int
}

// BitrateOptions returns the rate limiting arguments.
func (b *BitrateLimiter) BitrateOptions(_ *models.Resource) []string {
	return []string{
		"-maxrate", fmt.Sprintf("%dk", b.MaxKbps),
		"-bufsize", fmt.Sprintf("%dk", 2*b.MaxKbps),
	}
}
