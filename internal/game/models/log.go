package models

// LogCategory is the stable token a renderer keys its presentation on
type LogCategory string

const (
	LogRoll             LogCategory = "Roll"
	LogRollFail         LogCategory = "RollFail"
	LogBuy              LogCategory = "Buy"
	LogBuySuccess       LogCategory = "BuySuccess"
	LogBuyFail          LogCategory = "BuyFail"
	LogAuctionSuccess   LogCategory = "AuctionSuccess"
	LogAuctionFail      LogCategory = "AuctionFail"
	LogBuildSuccess     LogCategory = "BuildSuccess"
	LogBuildFail        LogCategory = "BuildFail"
	LogMortgageSuccess  LogCategory = "MortgageSuccess"
	LogMortgageFail     LogCategory = "MortgageFail"
	LogTradeSuccess     LogCategory = "TradeSuccess"
	LogTradeFail        LogCategory = "TradeFail"
	LogJail             LogCategory = "Jail"
	LogJailSuccess      LogCategory = "JailSuccess"
	LogJailFail         LogCategory = "JailFail"
	LogBankruptcyPlayer LogCategory = "BankruptcyPlayer"
	LogBankruptcyBank   LogCategory = "BankruptcyBank"
	LogRent             LogCategory = "Rent"
	LogTax              LogCategory = "Tax"
	LogCard             LogCategory = "Card"
	LogPassGo           LogCategory = "PassGo"
	LogQuit             LogCategory = "Quit"
	LogEndTurn          LogCategory = "EndTurn"
	LogEndTurnFail      LogCategory = "EndTurnFail"
	LogGameOver         LogCategory = "GameOver"
)

// FailReason explains why a command was rejected
type FailReason string

const (
	ReasonAlreadyRolled     FailReason = "AlreadyRolled"
	ReasonInJail            FailReason = "InJail"
	ReasonMustRollFirst     FailReason = "MustRollFirst"
	ReasonCannotAfford      FailReason = "CannotAfford"
	ReasonAlreadyOwned      FailReason = "AlreadyOwned"
	ReasonNotPurchasable    FailReason = "NotPurchasable"
	ReasonNoJailCard        FailReason = "NoJailCard"
	ReasonInsufficientFunds FailReason = "InsufficientFunds"
	ReasonNotFound          FailReason = "NotFound"
	ReasonNotOwner          FailReason = "NotOwner"
	ReasonNoMonopoly        FailReason = "NoMonopoly"
	ReasonMortgaged         FailReason = "Mortgaged"
	ReasonNotMortgaged      FailReason = "NotMortgaged"
	ReasonUneven            FailReason = "Uneven"
	ReasonMaxHouses         FailReason = "MaxHouses"
	ReasonNoHouses          FailReason = "NoHouses"
	ReasonHasBuildings      FailReason = "HasBuildings"
	ReasonNotInJail         FailReason = "NotInJail"
	ReasonNoPendingPurchase FailReason = "NoPendingPurchase"
	ReasonInvalidTrade      FailReason = "InvalidTrade"
	ReasonInvalidCount      FailReason = "InvalidCount"
	ReasonGameOver          FailReason = "GameOver"
)

// LogEntry is one line of the game log. Reason is set only on rejected commands.
type LogEntry struct {
	Category LogCategory `bson:"category" json:"category"`
	Message  string      `bson:"message" json:"message"`
	Reason   FailReason  `bson:"reason,omitempty" json:"reason,omitempty"`
}

// Failed reports whether the entry records a rejected command
func (e LogEntry) Failed() bool {
	return e.Reason != ""
}

// Entry builds a successful log entry
func Entry(category LogCategory, message string) LogEntry {
	return LogEntry{Category: category, Message: message}
}

// Fail builds a log entry for a rejected command
func Fail(category LogCategory, reason FailReason, message string) LogEntry {
	return LogEntry{Category: category, Message: message, Reason: reason}
}
