package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"activation-analytics/internal/models"
)

// DB wraps the database connection and provides methods for data access.
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection and initializes the schema.
func NewDB(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables if they don't exist.
func (db *DB) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			restaurant_name TEXT NOT NULL,
			location_name TEXT NOT NULL,
			user_id TEXT NOT NULL,
			created_at TEXT NOT NULL,
			amount REAL NOT NULL,
			ingested_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS activations (
			id TEXT PRIMARY KEY,
			restaurant_id TEXT NOT NULL,
			restaurant_group_id TEXT NOT NULL,
			restaurant_name TEXT NOT NULL,
			location_name TEXT NOT NULL,
			description TEXT NOT NULL,
			start_at TEXT NOT NULL,
			end_at TEXT NOT NULL,
			minimum_spend REAL,
			reward_amount REAL,
			initial_budget REAL NOT NULL,
			ingested_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS contacts (
			restaurant_name TEXT NOT NULL,
			email TEXT NOT NULL,
			PRIMARY KEY (restaurant_name, email)
		)`,
		`CREATE TABLE IF NOT EXISTS analysis_runs (
			id TEXT PRIMARY KEY,
			as_of TEXT NOT NULL,
			created_at TEXT NOT NULL,
			weekly_count INTEGER NOT NULL,
			daily_count INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS weekly_results (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			week TEXT NOT NULL,
			activation_id TEXT NOT NULL,
			restaurant_name TEXT NOT NULL,
			location_name TEXT NOT NULL,
			activation_description TEXT NOT NULL,
			minimum_spend_threshold REAL NOT NULL,
			reward_amount REAL NOT NULL,
			activation_start TEXT NOT NULL,
			activation_end TEXT NOT NULL,
			unique_users_count INTEGER NOT NULL,
			unique_users_count_redeemed INTEGER NOT NULL,
			total_tpv REAL NOT NULL,
			median_check REAL,
			tpv_vs_baseline REAL,
			median_check_vs_baseline REAL,
			marketing_spend REAL NOT NULL,
			remaining_group_budget REAL NOT NULL,
			new_users_count INTEGER NOT NULL,
			returning_users_count INTEGER NOT NULL,
			new_user_percentage REAL,
			notes TEXT NOT NULL,
			emails TEXT NOT NULL DEFAULT '',
			email_match_confidence TEXT NOT NULL DEFAULT '',
			email_match_notes TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (run_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS daily_results (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			date TEXT NOT NULL,
			day_of_week TEXT NOT NULL,
			activation_id TEXT NOT NULL,
			restaurant_name TEXT NOT NULL,
			location_name TEXT NOT NULL,
			activation_description TEXT NOT NULL,
			minimum_spend_threshold REAL NOT NULL,
			reward_amount REAL NOT NULL,
			activation_start TEXT NOT NULL,
			activation_end TEXT NOT NULL,
			unique_users_count INTEGER NOT NULL,
			unique_users_count_redeemed INTEGER NOT NULL,
			total_tpv REAL NOT NULL,
			median_check REAL,
			tpv_vs_baseline REAL,
			median_check_vs_baseline REAL,
			marketing_spend REAL NOT NULL,
			remaining_group_budget REAL NOT NULL,
			new_users_count INTEGER NOT NULL,
			returning_users_count INTEGER NOT NULL,
			new_user_percentage REAL,
			notes TEXT NOT NULL,
			PRIMARY KEY (run_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_txn_user_id ON transactions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_txn_created_at ON transactions(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_txn_location ON transactions(restaurant_name, location_name)`,
		`CREATE INDEX IF NOT EXISTS idx_act_group ON activations(restaurant_group_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created ON analysis_runs(created_at)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

// InsertTransactions inserts or replaces multiple transactions in a single
// transaction.
func (db *DB) InsertTransactions(transactions []models.Transaction) (int, error) {
	if len(transactions) == 0 {
		return 0, nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO transactions (
		id, restaurant_name, location_name, user_id, created_at, amount
	) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, txn := range transactions {
		_, err := stmt.Exec(
			txn.ID,
			txn.RestaurantName,
			txn.LocationName,
			txn.UserID,
			formatTime(txn.CreatedAt),
			txn.Amount,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return inserted, nil
}

// InsertActivations inserts or replaces multiple activation definitions.
func (db *DB) InsertActivations(activations []models.Activation) (int, error) {
	if len(activations) == 0 {
		return 0, nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO activations (
		id, restaurant_id, restaurant_group_id, restaurant_name, location_name,
		description, start_at, end_at, minimum_spend, reward_amount, initial_budget
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, act := range activations {
		_, err := stmt.Exec(
			act.ID,
			act.RestaurantID,
			act.RestaurantGroupID,
			act.RestaurantName,
			act.LocationName,
			act.Description,
			formatTime(act.StartAt),
			formatTime(act.EndAt),
			nullFloat(act.MinimumSpend),
			nullFloat(act.RewardAmount),
			act.InitialBudget,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert activation %s: %w", act.ID, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return inserted, nil
}

// InsertContacts inserts or replaces contact directory entries.
func (db *DB) InsertContacts(contacts []models.Contact) (int, error) {
	if len(contacts) == 0 {
		return 0, nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO contacts (restaurant_name, email) VALUES (?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, c := range contacts {
		if _, err := stmt.Exec(c.RestaurantName, c.Email); err != nil {
			return 0, fmt.Errorf("failed to insert contact %s: %w", c.RestaurantName, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return inserted, nil
}

// ListTransactions returns the full transaction snapshot. Rows whose stored
// timestamp cannot be parsed come back with a zero CreatedAt; the engine
// drops those before scoring.
func (db *DB) ListTransactions() ([]models.Transaction, error) {
	rows, err := db.conn.Query(`SELECT id, restaurant_name, location_name, user_id, created_at, amount
		FROM transactions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var txn models.Transaction
		var createdAt string
		if err := rows.Scan(&txn.ID, &txn.RestaurantName, &txn.LocationName, &txn.UserID, &createdAt, &txn.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txn.CreatedAt = parseTime(createdAt)
		out = append(out, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return out, nil
}

// ListActivations returns the full activation snapshot.
func (db *DB) ListActivations() ([]models.Activation, error) {
	rows, err := db.conn.Query(`SELECT id, restaurant_id, restaurant_group_id, restaurant_name,
		location_name, description, start_at, end_at, minimum_spend, reward_amount, initial_budget
		FROM activations ORDER BY start_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query activations: %w", err)
	}
	defer rows.Close()

	var out []models.Activation
	for rows.Next() {
		var act models.Activation
		var startAt, endAt string
		var minSpend, reward sql.NullFloat64
		if err := rows.Scan(&act.ID, &act.RestaurantID, &act.RestaurantGroupID, &act.RestaurantName,
			&act.LocationName, &act.Description, &startAt, &endAt, &minSpend, &reward, &act.InitialBudget); err != nil {
			return nil, fmt.Errorf("failed to scan activation: %w", err)
		}
		act.StartAt = parseTime(startAt)
		act.EndAt = parseTime(endAt)
		if minSpend.Valid {
			v := minSpend.Float64
			act.MinimumSpend = &v
		}
		if reward.Valid {
			v := reward.Float64
			act.RewardAmount = &v
		}
		out = append(out, act)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activations: %w", err)
	}
	return out, nil
}

// ListContacts returns the contact directory.
func (db *DB) ListContacts() ([]models.Contact, error) {
	rows, err := db.conn.Query(`SELECT restaurant_name, email FROM contacts ORDER BY restaurant_name, email`)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer rows.Close()

	var out []models.Contact
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.RestaurantName, &c.Email); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		out = append(out, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contacts: %w", err)
	}
	return out, nil
}

// SaveRun persists one analysis run and both of its result tables
// atomically.
func (db *DB) SaveRun(run models.AnalysisRun, weekly []models.WeeklyRow, daily []models.DailyRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO analysis_runs (id, as_of, created_at, weekly_count, daily_count)
		VALUES (?, ?, ?, ?, ?)`,
		run.ID, formatTime(run.AsOf), formatTime(run.CreatedAt), len(weekly), len(daily))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	weeklyStmt, err := tx.Prepare(`INSERT INTO weekly_results (
		run_id, seq, week, activation_id, restaurant_name, location_name, activation_description,
		minimum_spend_threshold, reward_amount, activation_start, activation_end,
		unique_users_count, unique_users_count_redeemed, total_tpv, median_check,
		tpv_vs_baseline, median_check_vs_baseline, marketing_spend, remaining_group_budget,
		new_users_count, returning_users_count, new_user_percentage, notes,
		emails, email_match_confidence, email_match_notes
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare weekly statement: %w", err)
	}
	defer weeklyStmt.Close()

	for i, row := range weekly {
		_, err := weeklyStmt.Exec(
			run.ID, i, row.Week, row.ActivationIDs, row.RestaurantName, row.LocationName,
			row.Description, row.MinimumSpend, row.RewardAmount, row.ActivationStart,
			row.ActivationEnd, row.UniqueUsers, row.RedeemedUsers, row.TotalTPV,
			nullFloat(row.MedianCheck), nullFloat(row.TPVVsBaseline), nullFloat(row.MedianCheckVsBaseline),
			row.MarketingSpend, row.RemainingGroupBudget, row.NewUsers, row.ReturningUsers,
			nullFloat(row.NewUserPercentage), row.Notes,
			row.Emails, row.EmailMatchConfidence, row.EmailMatchNotes,
		)
		if err != nil {
			return fmt.Errorf("failed to insert weekly row %d: %w", i, err)
		}
	}

	dailyStmt, err := tx.Prepare(`INSERT INTO daily_results (
		run_id, seq, date, day_of_week, activation_id, restaurant_name, location_name,
		activation_description, minimum_spend_threshold, reward_amount, activation_start,
		activation_end, unique_users_count, unique_users_count_redeemed, total_tpv, median_check,
		tpv_vs_baseline, median_check_vs_baseline, marketing_spend, remaining_group_budget,
		new_users_count, returning_users_count, new_user_percentage, notes
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare daily statement: %w", err)
	}
	defer dailyStmt.Close()

	for i, row := range daily {
		_, err := dailyStmt.Exec(
			run.ID, i, row.Date, row.DayOfWeek, row.ActivationIDs, row.RestaurantName,
			row.LocationName, row.Description, row.MinimumSpend, row.RewardAmount,
			row.ActivationStart, row.ActivationEnd, row.UniqueUsers, row.RedeemedUsers,
			row.TotalTPV, nullFloat(row.MedianCheck), nullFloat(row.TPVVsBaseline),
			nullFloat(row.MedianCheckVsBaseline), row.MarketingSpend, row.RemainingGroupBudget,
			row.NewUsers, row.ReturningUsers, nullFloat(row.NewUserPercentage), row.Notes,
		)
		if err != nil {
			return fmt.Errorf("failed to insert daily row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// LatestRun returns the most recent analysis run, or ok=false when no run
// has been recorded yet.
func (db *DB) LatestRun() (models.AnalysisRun, bool, error) {
	var run models.AnalysisRun
	var asOf, createdAt string
	err := db.conn.QueryRow(`SELECT id, as_of, created_at, weekly_count, daily_count
		FROM analysis_runs ORDER BY created_at DESC, id DESC LIMIT 1`).
		Scan(&run.ID, &asOf, &createdAt, &run.WeeklyCount, &run.DailyCount)
	if err == sql.ErrNoRows {
		return models.AnalysisRun{}, false, nil
	}
	if err != nil {
		return models.AnalysisRun{}, false, fmt.Errorf("failed to query latest run: %w", err)
	}
	run.AsOf = parseTime(asOf)
	run.CreatedAt = parseTime(createdAt)
	return run, true, nil
}

// WeeklyRows returns the weekly table of a run in its original order.
func (db *DB) WeeklyRows(runID string) ([]models.WeeklyRow, error) {
	rows, err := db.conn.Query(`SELECT week, activation_id, restaurant_name, location_name,
		activation_description, minimum_spend_threshold, reward_amount, activation_start,
		activation_end, unique_users_count, unique_users_count_redeemed, total_tpv, median_check,
		tpv_vs_baseline, median_check_vs_baseline, marketing_spend, remaining_group_budget,
		new_users_count, returning_users_count, new_user_percentage, notes,
		emails, email_match_confidence, email_match_notes
		FROM weekly_results WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query weekly results: %w", err)
	}
	defer rows.Close()

	out := []models.WeeklyRow{}
	for rows.Next() {
		var row models.WeeklyRow
		var medianCheck, tpvLift, checkLift, newPct sql.NullFloat64
		if err := rows.Scan(&row.Week, &row.ActivationIDs, &row.RestaurantName, &row.LocationName,
			&row.Description, &row.MinimumSpend, &row.RewardAmount, &row.ActivationStart,
			&row.ActivationEnd, &row.UniqueUsers, &row.RedeemedUsers, &row.TotalTPV, &medianCheck,
			&tpvLift, &checkLift, &row.MarketingSpend, &row.RemainingGroupBudget,
			&row.NewUsers, &row.ReturningUsers, &newPct, &row.Notes,
			&row.Emails, &row.EmailMatchConfidence, &row.EmailMatchNotes); err != nil {
			return nil, fmt.Errorf("failed to scan weekly row: %w", err)
		}
		row.MedianCheck = fromNull(medianCheck)
		row.TPVVsBaseline = fromNull(tpvLift)
		row.MedianCheckVsBaseline = fromNull(checkLift)
		row.NewUserPercentage = fromNull(newPct)
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating weekly results: %w", err)
	}
	return out, nil
}

// DailyRows returns the daily table of a run in its original order.
func (db *DB) DailyRows(runID string) ([]models.DailyRow, error) {
	rows, err := db.conn.Query(`SELECT date, day_of_week, activation_id, restaurant_name,
		location_name, activation_description, minimum_spend_threshold, reward_amount,
		activation_start, activation_end, unique_users_count, unique_users_count_redeemed,
		total_tpv, median_check, tpv_vs_baseline, median_check_vs_baseline, marketing_spend,
		remaining_group_budget, new_users_count, returning_users_count, new_user_percentage, notes
		FROM daily_results WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily results: %w", err)
	}
	defer rows.Close()

	out := []models.DailyRow{}
	for rows.Next() {
		var row models.DailyRow
		var medianCheck, tpvLift, checkLift, newPct sql.NullFloat64
		if err := rows.Scan(&row.Date, &row.DayOfWeek, &row.ActivationIDs, &row.RestaurantName,
			&row.LocationName, &row.Description, &row.MinimumSpend, &row.RewardAmount,
			&row.ActivationStart, &row.ActivationEnd, &row.UniqueUsers, &row.RedeemedUsers,
			&row.TotalTPV, &medianCheck, &tpvLift, &checkLift, &row.MarketingSpend,
			&row.RemainingGroupBudget, &row.NewUsers, &row.ReturningUsers, &newPct, &row.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan daily row: %w", err)
		}
		row.MedianCheck = fromNull(medianCheck)
		row.TPVVsBaseline = fromNull(tpvLift)
		row.MedianCheckVsBaseline = fromNull(checkLift)
		row.NewUserPercentage = fromNull(newPct)
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily results: %w", err)
	}
	return out, nil
}

// formatTime stores zero times as empty strings so unknown instants survive
// a round trip as unknown.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// parseTime is lenient: anything unparseable becomes the zero time, which
// downstream scoring treats as "drop this record", never a fatal error.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
