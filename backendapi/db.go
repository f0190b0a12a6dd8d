// Package backendapi implements the per-client backend served by
// bizcalc-server: a SQLite-backed collections API consumed by the client's
// frontend through the /api/ proxy rule.
package backendapi

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrate.sql
var migration string

// OpenDB opens (creating if needed) the SQLite database at path and applies
// the schema migration.
func OpenDB(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(migration); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply migration: %w", err)
	}
	return db, nil
}

// genID returns a new record id.
func genID() string {
	return uuid.New().String()
}

// SeedIfEmpty inserts a sample contact, inventory item, and transaction on
// first start so a fresh deployment has data to render. Existing rows are
// repaired in place: blank item names and missing updated_at values are
// backfilled.
func SeedIfEmpty(db *sql.DB, log *slog.Logger) {
	var cnt int
	if err := db.QueryRow(`SELECT COUNT(1) FROM contacts`).Scan(&cnt); err != nil {
		log.Warn("Seed check failed", "err", err)
		return
	}

	now := time.Now().Format(time.RFC3339)

	var contactID string
	if cnt == 0 {
		contactID = genID()
		_, _ = db.Exec(`INSERT INTO contacts (id,name,phone,type) VALUES (?,?,?,?)`,
			contactID, "Test Customer", "+1234567890", "customer")
	} else {
		_ = db.QueryRow(`SELECT id FROM contacts LIMIT 1`).Scan(&contactID)
	}

	var itemCnt int
	_ = db.QueryRow(`SELECT COUNT(1) FROM inventory_items`).Scan(&itemCnt)

	var itemID string
	if itemCnt == 0 {
		itemID = genID()
		_, _ = db.Exec(`INSERT INTO inventory_items (id,name,sku,quantity,unit_price,reorder_level,category,description,updated_at,created_at) VALUES (?,?,?,?,?,?,?,?,?,?)`,
			itemID, "Sample Item", "SAMPLE1", 10, 9.99, 2, "General", "Seeded item", now, now)
		_, _ = db.Exec(`INSERT INTO inventory_transactions (id,item_id,quantity_change,previous_quantity,new_quantity,transaction_type,notes,created_at) VALUES (?,?,?,?,?,?,?,?)`,
			genID(), itemID, 10, 0, 10, "initial", "Seeded", now)
	} else {
		_ = db.QueryRow(`SELECT id FROM inventory_items LIMIT 1`).Scan(&itemID)
		_, _ = db.Exec(`UPDATE inventory_items SET name = 'Unnamed Item' WHERE name IS NULL OR name = ''`)
		_, _ = db.Exec(`UPDATE inventory_items SET updated_at = created_at WHERE updated_at IS NULL OR updated_at = ''`)
	}

	var transCnt int
	_ = db.QueryRow(`SELECT COUNT(1) FROM transactions`).Scan(&transCnt)

	if transCnt == 0 {
		transactionID := genID()
		_, _ = db.Exec(`INSERT INTO transactions (id,type,amount,paid_amount,due_amount,contact_id,created_at) VALUES (?,?,?,?,?,?,?)`,
			transactionID, "inflow", 100.0, 100.0, 0.0, contactID, now)
		_, _ = db.Exec(`INSERT INTO transaction_items (id,transaction_id,item_id,quantity,unit_price,total_price) VALUES (?,?,?,?,?,?)`,
			genID(), transactionID, itemID, 10, 9.99, 99.9)
	}
}
