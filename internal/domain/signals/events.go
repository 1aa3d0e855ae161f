package signals

// Kind identifies an event variant.
type Kind int

// Event kinds published during a game session.
const (
	KindMoneyChanged Kind = iota + 1
	KindTimeChanged
	KindRosterChanged
	KindScenesChanged
	KindTalentPoolChanged
	KindMarketChanged
	KindNotificationPosted
	KindTalentAffinitiesChanged
	KindGameOver
)

var kindNames = map[Kind]string{
	KindMoneyChanged:            "MoneyChanged",
	KindTimeChanged:             "TimeChanged",
	KindRosterChanged:           "RosterChanged",
	KindScenesChanged:           "ScenesChanged",
	KindTalentPoolChanged:       "TalentPoolChanged",
	KindMarketChanged:           "MarketChanged",
	KindNotificationPosted:      "NotificationPosted",
	KindTalentAffinitiesChanged: "TalentAffinitiesChanged",
	KindGameOver:                "GameOver",
}

// String returns the event name.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "Unknown"
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// Event is implemented by every payload published on the bus.
type Event interface {
	Kind() Kind
}

// MoneyChanged carries the new studio balance.
type MoneyChanged struct {
	Amount int
}

// TimeChanged carries the new calendar position.
type TimeChanged struct {
	Week int
	Year int
}

// RosterChanged signals that hired talent changed.
type RosterChanged struct{}

// ScenesChanged signals that the scene list changed.
type ScenesChanged struct{}

// TalentPoolChanged signals that the hireable pool changed.
type TalentPoolChanged struct{}

// MarketChanged signals that viewer market state changed.
type MarketChanged struct{}

// NotificationPosted carries a message for the player.
type NotificationPosted struct {
	Message string
}

// TalentAffinitiesChanged carries recalculated affinities keyed by talent id.
type TalentAffinitiesChanged struct {
	Affinities map[int]map[string]float64
}

// GameOver carries the reason the session ended.
type GameOver struct {
	Reason string
}

func (MoneyChanged) Kind() Kind            { return KindMoneyChanged }
func (TimeChanged) Kind() Kind             { return KindTimeChanged }
func (RosterChanged) Kind() Kind           { return KindRosterChanged }
func (ScenesChanged) Kind() Kind           { return KindScenesChanged }
func (TalentPoolChanged) Kind() Kind       { return KindTalentPoolChanged }
func (MarketChanged) Kind() Kind           { return KindMarketChanged }
func (NotificationPosted) Kind() Kind      { return KindNotificationPosted }
func (TalentAffinitiesChanged) Kind() Kind { return KindTalentAffinitiesChanged }
func (GameOver) Kind() Kind                { return KindGameOver }
