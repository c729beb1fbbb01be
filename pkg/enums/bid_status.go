package enums

import "fmt"

// BidStatus tracks the state of a proxy bid record. At most one bid per
// active auction is winning; outbid happens live, lost only at settlement.
type BidStatus string

const (
	BidStatusActive  BidStatus = "active"
	BidStatusOutbid  BidStatus = "outbid"
	BidStatusWinning BidStatus = "winning"
	BidStatusLost    BidStatus = "lost"
)

var validBidStatuses = []BidStatus{
	BidStatusActive,
	BidStatusOutbid,
	BidStatusWinning,
	BidStatusLost,
}

// StandingBidStatuses are the statuses whose ceilings still compete for the
// lead: anything not yet lost.
var StandingBidStatuses = []BidStatus{
	BidStatusActive,
	BidStatusWinning,
	BidStatusOutbid,
}

// String implements fmt.Stringer.
func (b BidStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BidStatus.
func (b BidStatus) IsValid() bool {
	for _, candidate := range validBidStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBidStatus converts raw input into a BidStatus.
func ParseBidStatus(value string) (BidStatus, error) {
	for _, candidate := range validBidStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bid status %q", value)
}
