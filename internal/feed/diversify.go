package feed

import (
	"github.com/researchhub/platform-service/internal/domain"
)

// DiversifyConfig tunes the subcategory diversification pass.
type DiversifyConfig struct {
	// MaxConsecutive is the longest run of entries sharing a subcategory.
	MaxConsecutive int `mapstructure:"max_consecutive"`
	// ReinjectInterval is the spacing, in emitted positions, at which
	// deferred entries are offered a slot again.
	ReinjectInterval int `mapstructure:"reinject_interval"`
	// Window caps how many leading entries are diversified. Ranking noise
	// deep in the feed is not worth the work.
	Window int `mapstructure:"window"`
}

// DefaultDiversifyConfig returns the production diversification constants.
func DefaultDiversifyConfig() DiversifyConfig {
	return DiversifyConfig{
		MaxConsecutive:   2,
		ReinjectInterval: 5,
		Window:           120,
	}
}

// Diversify re-orders a score-ordered list so that no more than
// cfg.MaxConsecutive entries in a row share a subcategory. Overflowing
// entries are deferred to a FIFO queue and reinjected every
// cfg.ReinjectInterval emitted positions when the cap allows; whatever is
// still deferred when the input runs out is appended in FIFO order, runs
// permitted. Only the first cfg.Window entries take part; the tail keeps its
// score order. Entries without a subcategory form one group of their own.
// The result contains exactly the input entries, each once.
func Diversify(entries []*domain.FeedEntry, cfg DiversifyConfig) []*domain.FeedEntry {
	if len(entries) == 0 || cfg.MaxConsecutive <= 0 {
		return entries
	}

	window := cfg.Window
	if window <= 0 || window > len(entries) {
		window = len(entries)
	}
	head, tail := entries[:window], entries[window:]

	result := make([]*domain.FeedEntry, 0, len(entries))
	var deferred []*domain.FeedEntry

	runKey := ""
	runLen := 0

	emit := func(e *domain.FeedEntry) {
		key := e.SubcategoryKey()
		if len(result) > 0 && key == runKey {
			runLen++
		} else {
			runKey = key
			runLen = 1
		}
		result = append(result, e)
	}

	fits := func(e *domain.FeedEntry) bool {
		return len(result) == 0 || e.SubcategoryKey() != runKey || runLen < cfg.MaxConsecutive
	}

	tryReinject := func() {
		if cfg.ReinjectInterval <= 0 || len(deferred) == 0 {
			return
		}
		if len(result)%cfg.ReinjectInterval != 0 {
			return
		}
		if fits(deferred[0]) {
			emit(deferred[0])
			deferred = deferred[1:]
		}
	}

	for _, e := range head {
		tryReinject()
		if fits(e) {
			emit(e)
		} else {
			deferred = append(deferred, e)
		}
	}

	result = append(result, deferred...)
	return append(result, tail...)
}
