package marketdata

import (
	"bufio"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"
)

// feedSymbols is the fixed rotation of symbols the synthetic feed
// generates frames for when run in random-walk mode.
var feedSymbols = []string{"AAPL", "GOOG", "MSFT", "AMZN", "TSLA"}

// FeedSimulator generates synthetic tag-value market-data frames via a
// seeded random walk, or replays them from a CSV file. Either mode
// yields frames through the pull-based NextFrame.
type FeedSimulator struct {
	rng        *rand.Rand
	volatility float64
	prices     []float64

	replay    *bufio.Scanner
	replayFH  *os.File
	replaying bool
}

// NewFeedSimulator constructs a random-walk feed seeded from seed, with
// every symbol starting at initialPrice (a float64 dollar amount) and
// moving by volatility per tick.
func NewFeedSimulator(seed int64, initialPrice float64, volatility float64) *FeedSimulator {
	prices := make([]float64, len(feedSymbols))
	for i := range prices {
		prices[i] = initialPrice
	}
	return &FeedSimulator{
		rng:        rand.New(rand.NewSource(seed)),
		volatility: volatility,
		prices:     prices,
	}
}

// OpenReplay switches the simulator into CSV replay mode, reading from
// path. Expected columns: symbol,bid,ask,bidsize,asksize.
func (f *FeedSimulator) OpenReplay(path string) error {
	fh, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("marketdata: open replay file: %w", err)
	}
	f.replayFH = fh
	f.replay = bufio.NewScanner(fh)
	f.replaying = true
	return nil
}

func (f *FeedSimulator) Close() error {
	if f.replayFH != nil {
		return f.replayFH.Close()
	}
	return nil
}

// NextFrame returns the next tag-value frame and true, or "", false
// when replay mode has been exhausted. Random-walk mode never exhausts.
func (f *FeedSimulator) NextFrame() (string, bool) {
	if f.replaying {
		return f.nextReplayFrame()
	}
	return f.nextRandomWalkFrame(), true
}

func (f *FeedSimulator) nextRandomWalkFrame() string {
	i := f.rng.Intn(len(feedSymbols))
	symbol := feedSymbols[i]

	move := f.rng.NormFloat64() * f.volatility * f.prices[i]
	f.prices[i] = math.Max(0.01, f.prices[i]+move)

	spread := f.prices[i] * 0.0005
	bid := f.prices[i] - spread/2
	ask := f.prices[i] + spread/2
	bidSize := 100 + f.rng.Intn(900)
	askSize := 100 + f.rng.Intn(900)

	return fmt.Sprintf("35=W|55=%s|132=%.2f|133=%.2f|134=%d|135=%d|",
		symbol, bid, ask, bidSize, askSize)
}

func (f *FeedSimulator) nextReplayFrame() (string, bool) {
	for f.replay.Scan() {
		line := strings.TrimSpace(f.replay.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) < 5 {
			continue
		}
		if _, err := strconv.ParseFloat(fields[1], 64); err != nil {
			continue
		}
		if _, err := strconv.ParseFloat(fields[2], 64); err != nil {
			continue
		}
		return fmt.Sprintf("35=W|55=%s|132=%s|133=%s|134=%s|135=%s|",
			fields[0], fields[1], fields[2], fields[3], fields[4]), true
	}
	return "", false
}
