package scan

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// progress counts scanned files and estimates the time left from the
// throughput so far.
type progress struct {
	clock     clockwork.Clock
	start     time.Time
	count     int
	total     int
	batchSize int
}

func newProgress(clock clockwork.Clock, batchSize, total int) *progress {
	return &progress{
		clock:     clock,
		start:     clock.Now(),
		total:     total,
		batchSize: batchSize,
	}
}

// increment counts one more file and reports whether a batch is complete.
// With a batch size of zero batches are never complete.
func (p *progress) increment() bool {
	p.count++
	return p.batchSize > 0 && p.count%p.batchSize == 0
}

func (p *progress) message() string {
	elapsed := p.clock.Since(p.start).Seconds()
	if p.count >= p.total || p.count == 0 {
		return fmt.Sprintf("Scanned %d of %d files in %.3fs.", p.count, p.total, elapsed)
	}

	left := elapsed / float64(p.count) * float64(p.total-p.count)
	return fmt.Sprintf("Scanned %d of %d files in %.3fs, ~%.0fs left",
		p.count, p.total, elapsed, left)
}

func (p *progress) log() {
	log.Info().Int("scanned", p.count).Int("total", p.total).Msg(p.message())
}
