package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/coinwatch/pkg/types"
)

// AlertsTable stores price alerts per user.
type AlertsTable struct {
	backend *Backend
}

const alertColumns = `id, alert_name, coin_id, coin_name, coin_symbol, alert_type,
	condition, threshold_value, frequency, is_active, created_at, updated_at`

// List returns the user's alerts ordered by creation time.
func (at *AlertsTable) List(userID string) ([]types.Alert, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	db, release, err := at.backend.conn()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := db.Query(
		"SELECT "+alertColumns+" FROM alerts WHERE user_id = ? ORDER BY created_at, rowid",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	alerts := []types.Alert{}
	for rows.Next() {
		a, err := hydrateAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// Get returns the user's alert with the given id.
func (at *AlertsTable) Get(userID, id string) (types.Alert, error) {
	if err := requireUser(userID); err != nil {
		return types.Alert{}, err
	}
	db, release, err := at.backend.conn()
	if err != nil {
		return types.Alert{}, err
	}
	defer release()
	return at.get(db, userID, id)
}

func (at *AlertsTable) get(db *sql.DB, userID, id string) (types.Alert, error) {
	if id == "" {
		return types.Alert{}, types.ErrInvalidID
	}
	row := db.QueryRow("SELECT "+alertColumns+" FROM alerts WHERE id = ? AND user_id = ?", id, userID)
	a, err := hydrateAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Alert{}, types.ErrNotFound
	}
	return a, err
}

// Create validates d and inserts an active alert with a server id.
func (at *AlertsTable) Create(userID string, d types.AlertDraft) (types.Alert, error) {
	if err := requireUser(userID); err != nil {
		return types.Alert{}, err
	}
	d, err := types.AlertFamily.Draft(d)
	if err != nil {
		return types.Alert{}, err
	}

	db, release, err := at.backend.conn()
	if err != nil {
		return types.Alert{}, err
	}
	defer release()

	a := types.AlertFamily.NewRecord(d, at.backend.newID(), at.backend.now())
	_, err = db.Exec(
		`INSERT INTO alerts (`+alertColumns+`, user_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.AlertName, a.CoinID, a.CoinName, a.CoinSymbol, string(a.AlertType),
		string(a.Condition), a.ThresholdValue, string(a.Frequency), a.IsActive,
		formatTime(a.CreatedAt), nil, userID,
	)
	if err != nil {
		return types.Alert{}, fmt.Errorf("inserting alert: %w", err)
	}
	return a, nil
}

// Update merges patch into the user's alert and stamps updated_at.
func (at *AlertsTable) Update(userID, id string, patch types.Patch) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	p, err := types.AlertFamily.Patch(patch)
	if err != nil {
		return err
	}

	db, release, err := at.backend.conn()
	if err != nil {
		return err
	}
	defer release()

	current, err := at.get(db, userID, id)
	if err != nil {
		return err
	}
	a, err := types.MergePatch(current, p)
	if err != nil {
		return err
	}
	a = types.AlertFamily.Touch(a, at.backend.now())

	_, err = db.Exec(`UPDATE alerts SET
		alert_name = ?, coin_id = ?, coin_name = ?, coin_symbol = ?, alert_type = ?,
		condition = ?, threshold_value = ?, frequency = ?, is_active = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		a.AlertName, a.CoinID, a.CoinName, a.CoinSymbol, string(a.AlertType),
		string(a.Condition), a.ThresholdValue, string(a.Frequency), a.IsActive,
		formatTime(*a.UpdatedAt), id, userID,
	)
	if err != nil {
		return fmt.Errorf("updating alert: %w", err)
	}
	return nil
}

// Remove deletes the user's alert with the given id, or returns
// types.ErrNotFound.
func (at *AlertsTable) Remove(userID, id string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if id == "" {
		return types.ErrInvalidID
	}

	db, release, err := at.backend.conn()
	if err != nil {
		return err
	}
	defer release()

	res, err := db.Exec("DELETE FROM alerts WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting alert: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.ErrNotFound
	}
	return nil
}

func hydrateAlert(row scanner) (types.Alert, error) {
	var (
		a         types.Alert
		alertType string
		condition string
		frequency string
		createdAt string
		updatedAt sql.NullString
	)
	err := row.Scan(&a.ID, &a.AlertName, &a.CoinID, &a.CoinName, &a.CoinSymbol, &alertType,
		&condition, &a.ThresholdValue, &frequency, &a.IsActive, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, err
		}
		return a, fmt.Errorf("scanning alert: %w", err)
	}
	a.AlertType = types.AlertType(alertType)
	a.Condition = types.Condition(condition)
	a.Frequency = types.Frequency(frequency)

	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return a, err
	}
	if updatedAt.Valid {
		t, err := parseTime(updatedAt.String)
		if err != nil {
			return a, err
		}
		a.UpdatedAt = &t
	}
	return a, nil
}
