package sqlite

// Schema DDL for the server-side store.
const (
	createUsersTokens = `CREATE TABLE IF NOT EXISTS users_tokens (
    token TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    created_at TEXT NOT NULL
);`

	createWatchlist = `CREATE TABLE IF NOT EXISTS watchlist (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    coin_id TEXT NOT NULL,
    added_at TEXT NOT NULL,
    UNIQUE (user_id, coin_id)
);`

	createAlerts = `CREATE TABLE IF NOT EXISTS alerts (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    alert_name TEXT NOT NULL,
    coin_id TEXT NOT NULL,
    coin_name TEXT NOT NULL,
    coin_symbol TEXT NOT NULL,
    alert_type TEXT NOT NULL,
    condition TEXT NOT NULL,
    threshold_value TEXT NOT NULL,
    frequency TEXT NOT NULL,
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL,
    updated_at TEXT
);`
)

// Index DDL for per-user listing.
const (
	idxUsersTokensUser = `CREATE INDEX IF NOT EXISTS idx_users_tokens_user ON users_tokens(user_id);`
	idxWatchlistUser   = `CREATE INDEX IF NOT EXISTS idx_watchlist_user ON watchlist(user_id, added_at);`
	idxAlertsUser      = `CREATE INDEX IF NOT EXISTS idx_alerts_user ON alerts(user_id, created_at);`
	idxAlertsCoin      = `CREATE INDEX IF NOT EXISTS idx_alerts_coin ON alerts(user_id, coin_id);`
)

// pragmas run on every connection before the schema.
var pragmas = []string{
	"PRAGMA journal_mode=WAL;",
	"PRAGMA busy_timeout=5000;",
	"PRAGMA foreign_keys=ON;",
}

// schemaDDL lists all CREATE TABLE statements.
var schemaDDL = []string{
	createUsersTokens,
	createWatchlist,
	createAlerts,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxUsersTokensUser,
	idxWatchlistUser,
	idxAlertsUser,
	idxAlertsCoin,
}
