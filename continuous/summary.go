package continuous

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/montanaflynn/stats"
	"golang.org/x/exp/maps"

	"github.com/shutter-network/receipt-watcher/receipts"
)

type Summary struct {
	Total     int
	ByOutcome map[receipts.Outcome]int
	Replaced  int
	// latencies only cover transactions that got a receipt
	MinLatency    time.Duration
	MaxLatency    time.Duration
	MeanLatency   time.Duration
	MedianLatency time.Duration
}

func Summarize(tracked []*Tracked) Summary {
	summary := Summary{ByOutcome: make(map[receipts.Outcome]int)}
	var delays stats.Float64Data
	for _, tx := range tracked {
		if tx == nil {
			continue
		}
		summary.Total++
		summary.ByOutcome[tx.Result.Outcome]++
		if tx.Result.Replaced() {
			summary.Replaced++
		}
		switch tx.Result.Outcome {
		case receipts.OutcomeConfirmed, receipts.OutcomeReverted:
			delays = append(delays, tx.Latency().Seconds())
		}
	}
	if len(delays) == 0 {
		return summary
	}

	// errors only occur on empty input
	minDelay, _ := stats.Min(delays)
	maxDelay, _ := stats.Max(delays)
	avgDelay, _ := stats.Mean(delays)
	medianDelay, _ := stats.Median(delays)
	summary.MinLatency = seconds(minDelay)
	summary.MaxLatency = seconds(maxDelay)
	summary.MeanLatency = seconds(avgDelay)
	summary.MedianLatency = seconds(medianDelay)
	return summary
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second)).Round(time.Millisecond)
}

func (s Summary) Write(out io.Writer) error {
	w := bufio.NewWriter(out)
	fmt.Fprintf(w, "%v transactions tracked, %v resolved through a replacement\n", s.Total, s.Replaced)
	outcomes := maps.Keys(s.ByOutcome)
	slices.Sort(outcomes)
	for _, outcome := range outcomes {
		count := s.ByOutcome[outcome]
		fmt.Fprintf(w, "%-10v %5d  %6.2f%%\n", outcome, count, float64(count)/float64(s.Total)*100)
	}
	if s.MaxLatency > 0 {
		fmt.Fprintf(w, "latency min %v / median %v / mean %v / max %v\n",
			s.MinLatency, s.MedianLatency, s.MeanLatency, s.MaxLatency)
	}
	return w.Flush()
}

// WriteCounts prints the per outcome totals recorded for a chain.
func WriteCounts(out io.Writer, chainID uint64, counts map[string]int64) error {
	w := bufio.NewWriter(out)
	var total int64
	for _, n := range counts {
		total += n
	}
	fmt.Fprintf(w, "chain %d: %v results recorded\n", chainID, total)
	outcomes := maps.Keys(counts)
	slices.Sort(outcomes)
	for _, outcome := range outcomes {
		fmt.Fprintf(w, "%-10v %5d\n", outcome, counts[outcome])
	}
	return w.Flush()
}
