package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/coinwatch/pkg/types"
)

// WatchlistTable stores watchlist items per user, unique on (user, coin).
type WatchlistTable struct {
	backend *Backend
}

// List returns the user's items ordered by when they were added.
func (wt *WatchlistTable) List(userID string) ([]types.WatchlistItem, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	db, release, err := wt.backend.conn()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := db.Query(
		"SELECT id, coin_id, added_at FROM watchlist WHERE user_id = ? ORDER BY added_at, rowid",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying watchlist: %w", err)
	}
	defer rows.Close()

	items := []types.WatchlistItem{}
	for rows.Next() {
		item, err := hydrateWatchlistItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Add inserts coinID for the user. A coin already on the list fails with
// types.ErrAlreadyExists.
func (wt *WatchlistTable) Add(userID string, d types.WatchlistDraft) (types.WatchlistItem, error) {
	var item types.WatchlistItem
	if err := requireUser(userID); err != nil {
		return item, err
	}
	d, err := types.WatchlistFamily.Draft(d)
	if err != nil {
		return item, err
	}

	db, release, err := wt.backend.conn()
	if err != nil {
		return item, err
	}
	defer release()

	item = types.WatchlistFamily.NewRecord(d, wt.backend.newID(), wt.backend.now())
	_, err = db.Exec(
		"INSERT INTO watchlist (id, user_id, coin_id, added_at) VALUES (?, ?, ?, ?)",
		item.ID, userID, item.CoinID, formatTime(item.AddedAt),
	)
	if isUniqueViolation(err) {
		return types.WatchlistItem{}, fmt.Errorf("%w: coin %q", types.ErrAlreadyExists, item.CoinID)
	}
	if err != nil {
		return types.WatchlistItem{}, fmt.Errorf("inserting watchlist item: %w", err)
	}
	return item, nil
}

// Update applies patch to the user's item with the given id. Only coinId is
// mutable; moving onto a coin already listed fails with
// types.ErrAlreadyExists.
func (wt *WatchlistTable) Update(userID, id string, patch types.Patch) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if id == "" {
		return types.ErrInvalidID
	}
	p, err := types.WatchlistFamily.Patch(patch)
	if err != nil {
		return err
	}

	db, release, err := wt.backend.conn()
	if err != nil {
		return err
	}
	defer release()

	row := db.QueryRow("SELECT id, coin_id, added_at FROM watchlist WHERE id = ? AND user_id = ?", id, userID)
	item, err := hydrateWatchlistItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ErrNotFound
	}
	if err != nil {
		return err
	}
	merged, err := types.MergePatch(item, p)
	if err != nil {
		return err
	}

	_, err = db.Exec("UPDATE watchlist SET coin_id = ? WHERE id = ? AND user_id = ?", merged.CoinID, id, userID)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: coin %q", types.ErrAlreadyExists, merged.CoinID)
	}
	if err != nil {
		return fmt.Errorf("updating watchlist item: %w", err)
	}
	return nil
}

// Remove deletes the user's item for coinID, or returns types.ErrNotFound.
func (wt *WatchlistTable) Remove(userID, coinID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	coinID = types.NormalizeCoinID(coinID)
	if coinID == "" {
		return fmt.Errorf("%w: coinId is required", types.ErrInvalidData)
	}

	db, release, err := wt.backend.conn()
	if err != nil {
		return err
	}
	defer release()

	res, err := db.Exec("DELETE FROM watchlist WHERE user_id = ? AND coin_id = ?", userID, coinID)
	if err != nil {
		return fmt.Errorf("deleting watchlist item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func hydrateWatchlistItem(row scanner) (types.WatchlistItem, error) {
	var item types.WatchlistItem
	var addedAt string
	if err := row.Scan(&item.ID, &item.CoinID, &addedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return item, err
		}
		return item, fmt.Errorf("scanning watchlist item: %w", err)
	}
	t, err := parseTime(addedAt)
	if err != nil {
		return item, err
	}
	item.AddedAt = t
	return item, nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
