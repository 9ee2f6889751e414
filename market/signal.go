package market

// Signal is a strategy decision for the current candle.
type Signal int

const (
	None Signal = iota
	Buy
	Sell
	SellShort
	CoverShort
)

func (s Signal) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	case SellShort:
		return "SELL_SHORT"
	case CoverShort:
		return "COVER_SHORT"
	default:
		return "NONE"
	}
}

// PositionType is the current exposure state.
type PositionType int

const (
	Flat PositionType = iota
	Long
	Short
)

func (p PositionType) String() string {
	switch p {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "FLAT"
	}
}
