package cardroom

import "errors"

var (
	// Protocol errors are connection-fatal at the transport layer.
	ErrProtocolMalformedFrame = errors.New("cardroom: malformed frame")
	ErrProtocolBadPayload     = errors.New("cardroom: undecodable payload")
	ErrProtocolUnknownRequest = errors.New("cardroom: response for unknown or resolved request")
	ErrProtocolSequenceGap    = errors.New("cardroom: event sequence gap")

	// Rule violations are recovered locally by substituting the default
	// action.
	ErrRuleViolation = errors.New("cardroom: action not in valid action set")

	// Session errors are reported to the originating connection only.
	ErrSessionDuplicateLogin = errors.New("cardroom: username already logged in")
	ErrSessionTableFull      = errors.New("cardroom: table is full")
	ErrSessionNotSeated      = errors.New("cardroom: not seated at this table")
	ErrSessionOutOfTurn      = errors.New("cardroom: acting out of turn")

	// Table errors.
	ErrTableInvalidSetting  = errors.New("cardroom: invalid table setting")
	ErrTableNotFound        = errors.New("cardroom: table not found")
	ErrTableClosed          = errors.New("cardroom: table closed")
	ErrTableGameInProgress  = errors.New("cardroom: game already in progress")
	ErrTableGameNotRunning  = errors.New("cardroom: no game in progress")
	ErrTableSeatNotFound    = errors.New("cardroom: seat not found")
	ErrTableSeatNotBot      = errors.New("cardroom: seat is not a bot")
	ErrTableNoBotFactory    = errors.New("cardroom: no bot factory configured")
	ErrTableNameTaken       = errors.New("cardroom: name already seated")
	ErrTableNotEnoughSeated = errors.New("cardroom: not enough seated players")
	ErrTableInvalidBuyIn    = errors.New("cardroom: buy-in outside table bounds")

	// Fatal driver errors tear the table down via GameEnded{reason: error}.
	ErrDriverAccounting = errors.New("cardroom: settlement accounting mismatch")
)
