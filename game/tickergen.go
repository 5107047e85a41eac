package game

import "time"

// SystemTickers hands out wall clock tickers. The runtime collects tickers nobody
// references any more, so callers never stop them.
type SystemTickers struct{}

func (SystemTickers) Create(interval time.Duration) <-chan time.Time {
	return time.NewTicker(interval).C
}
