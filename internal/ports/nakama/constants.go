package nakama

const (
	// RpcQuickMatch is the Nakama RPC id clients call to find or create a lobby-capable match.
	RpcQuickMatch = "pidr_quick_match"
	// RpcVerifyReceipt checks a signed game result.
	RpcVerifyReceipt = "pidr_verify_receipt"

	// MatchNamePidr is the authoritative match handler name registered with Nakama.
	MatchNamePidr = "pidr_match"

	gameLabel = "pidr"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpStartGame     int64 = 1
	OpAttack        int64 = 2
	OpDefend        int64 = 3
	OpTake          int64 = 4
	OpDraw          int64 = 5
	OpPlace         int64 = 6
	OpDeclare       int64 = 7
	OpAsk           int64 = 8
	OpContribute    int64 = 9
	OpCancelPenalty int64 = 10

	// Server -> Client events
	OpState     int64 = 100 // send privately, hands masked per viewer
	OpGameEnded int64 = 101
	OpError     int64 = 102
	OpLobby     int64 = 103
)

// Error codes sent with OpError.
const (
	ErrCodeIllegalAction = 400
	ErrCodeForbidden     = 403
	ErrCodeInvalidTarget = 404
	ErrCodeConflict      = 409
)

// Runtime environment keys read in MatchInit.
const (
	envBotsEnabled      = "pidr_bots_enabled"
	envReceiptSecret    = "pidr_receipt_secret"
	envBotAutoFillDelay = "pidr_bot_auto_fill_delay_sec"
)

const (
	resultsCollection = "pidr_results"
	walletCurrency    = "coins"

	gameConfigPath  = "data/game_config.json"
	botIdentityPath = "data/bot_identities.json"
)
