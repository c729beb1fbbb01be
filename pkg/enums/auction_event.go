package enums

// AuctionEventType names the notification events the engine publishes.
type AuctionEventType string

const (
	EventBidPlaced        AuctionEventType = "BID_PLACED"
	EventAuctionExtended  AuctionEventType = "AUCTION_EXTENDED"
	EventAuctionCompleted AuctionEventType = "AUCTION_COMPLETED"
	EventBidOutbid        AuctionEventType = "BID_OUTBID"
	EventBidWinning       AuctionEventType = "BID_WINNING"
)

// String implements fmt.Stringer.
func (a AuctionEventType) String() string {
	return string(a)
}
