package backendapi

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// Handler serves the collections API for one client deployment. The routes
// mirror the record-store adapter the frontend bundle is built against.
type Handler struct {
	db         *sql.DB
	uploadsDir string
	log        *slog.Logger
}

// NewHandler creates the backend API handler. Uploaded files are stored
// under uploadsDir and served back at /api/files/.
func NewHandler(db *sql.DB, uploadsDir string, log *slog.Logger) *Handler {
	return &Handler{db: db, uploadsDir: uploadsDir, log: log}
}

// Router builds the backend's route table.
func (h *Handler) Router() http.Handler {
	mux := chi.NewRouter()

	mux.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	// Serve uploaded files back to the frontend.
	mux.Handle("/api/files/*", http.StripPrefix("/api/files/", http.FileServer(http.Dir(h.uploadsDir))))

	mux.Route("/api/collections/{collection}", func(r chi.Router) {
		r.Get("/records", h.handleList)
		r.Post("/records", h.handleCreate)
		r.Get("/records/{id}", h.handleGet)
		r.Patch("/records/{id}", h.handlePatch)
		r.Post("/records/{id}/files/{field}", h.handleUploadFile)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErrorJSON(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

// listQuery returns the base SELECT for a collection, or "" when unknown.
func listQuery(collection, expand string) string {
	switch collection {
	case "contacts":
		return "SELECT id,name,phone,nid,type,organization_id FROM contacts"
	case "inventory_items":
		return "SELECT id,COALESCE(name, 'Unnamed Item') as name,sku,quantity,unit_price,reorder_level,category,description,image_filename,image_url,updated_at,created_at FROM inventory_items"
	case "inventory_transactions":
		return "SELECT id,item_id,quantity_change,previous_quantity,new_quantity,transaction_type,notes,created_at FROM inventory_transactions"
	case "transactions":
		if strings.Contains(expand, "contact") {
			return "SELECT t.id,t.type,t.amount,t.paid_amount,t.due_amount,t.contact_id,t.image_filename,t.image_url,t.created_at, c.id as contact__id, c.name as contact__name, c.phone as contact__phone, c.nid as contact__nid, c.type as contact__type, c.organization_id as contact__organization_id FROM transactions t LEFT JOIN contacts c ON t.contact_id = c.id"
		}
		return "SELECT id,type,amount,paid_amount,due_amount,contact_id,image_filename,image_url,created_at FROM transactions"
	default:
		return ""
	}
}

// handleList lists a collection's records. Supports the adapter's filter
// (appended verbatim as a WHERE clause; the API is only reachable by the
// client's own frontend), sort (-field for descending), and expand
// (contact, items) query parameters.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	filter := r.URL.Query().Get("filter")
	expand := r.URL.Query().Get("expand")
	sortParam := r.URL.Query().Get("sort")

	query := listQuery(collection, expand)
	if query == "" {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "unknown collection"})
		return
	}

	if filter != "" {
		query += " WHERE " + filter
	}
	if sortParam != "" {
		if strings.HasPrefix(sortParam, "-") {
			query += " ORDER BY " + strings.TrimPrefix(sortParam, "-") + " DESC"
		} else {
			query += " ORDER BY " + sortParam + " ASC"
		}
	}

	rows, err := h.db.Query(query)
	if err != nil {
		writeErrorJSON(w, http.StatusInternalServerError, err)
		return
	}
	defer rows.Close()

	cols, _ := rows.Columns()
	items := []map[string]any{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			continue
		}

		m := map[string]any{}
		for i, col := range cols {
			if b, ok := vals[i].([]byte); ok {
				m[col] = string(b)
			} else {
				m[col] = vals[i]
			}
		}

		if collection == "transactions" && strings.Contains(expand, "contact") {
			m["contact"] = map[string]any{
				"id":              m["contact__id"],
				"name":            m["contact__name"],
				"phone":           m["contact__phone"],
				"nid":             m["contact__nid"],
				"type":            m["contact__type"],
				"organization_id": m["contact__organization_id"],
			}
			for _, k := range []string{"contact__id", "contact__name", "contact__phone", "contact__nid", "contact__type", "contact__organization_id"} {
				delete(m, k)
			}
		}
		if collection == "transactions" && strings.Contains(expand, "items") {
			m["items"] = h.transactionItems(m["id"])
		}

		items = append(items, m)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items":      items,
		"page":       1,
		"perPage":    len(items),
		"totalItems": len(items),
	})
}

// transactionItems loads the line items of a transaction joined with their
// inventory items.
func (h *Handler) transactionItems(transactionID any) []map[string]any {
	rows, err := h.db.Query(`SELECT ti.quantity, ti.unit_price, ti.total_price, i.id as item_id, COALESCE(i.name, 'Unnamed Item') as item_name, i.sku as item_sku FROM transaction_items ti LEFT JOIN inventory_items i ON ti.item_id = i.id WHERE ti.transaction_id = ?`, transactionID)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var items []map[string]any
	for rows.Next() {
		var quantity int
		var unitPrice, totalPrice float64
		var itemID, itemName, itemSku sql.NullString
		if err := rows.Scan(&quantity, &unitPrice, &totalPrice, &itemID, &itemName, &itemSku); err != nil {
			continue
		}
		items = append(items, map[string]any{
			"item_id":     itemID.String,
			"item_name":   itemName.String,
			"name":        itemName.String,
			"sku":         itemSku.String,
			"quantity":    quantity,
			"unit_price":  unitPrice,
			"total_price": totalPrice,
		})
	}
	return items
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	id := chi.URLParam(r, "id")

	switch collection {
	case "contacts":
		var idVal, name, phone, nid, typ, org sql.NullString
		err := h.db.QueryRow("SELECT id,name,phone,nid,type,organization_id FROM contacts WHERE id = ?", id).
			Scan(&idVal, &name, &phone, &nid, &typ, &org)
		if err == sql.ErrNoRows {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
			return
		}
		if err != nil {
			writeErrorJSON(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id": idVal.String, "name": name.String, "phone": phone.String,
			"nid": nid.String, "type": typ.String, "organization_id": org.String,
		})

	case "inventory_items":
		var idVal, name, sku, category, description, imageFilename, imageURL sql.NullString
		var quantity, reorderLevel sql.NullInt32
		var unitPrice sql.NullFloat64
		err := h.db.QueryRow(`SELECT id,name,sku,quantity,unit_price,reorder_level,category,description,image_filename,image_url FROM inventory_items WHERE id = ?`, id).
			Scan(&idVal, &name, &sku, &quantity, &unitPrice, &reorderLevel, &category, &description, &imageFilename, &imageURL)
		if err == sql.ErrNoRows {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
			return
		}
		if err != nil {
			writeErrorJSON(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id": idVal.String, "name": name.String, "sku": sku.String,
			"quantity": quantity.Int32, "unit_price": unitPrice.Float64,
			"reorder_level": reorderLevel.Int32, "category": category.String,
			"description": description.String, "image_filename": imageFilename.String,
			"image_url": imageURL.String,
		})

	case "transactions":
		var idVal, typ, contactID, imageFilename, imageURL sql.NullString
		var amount, paidAmount, dueAmount sql.NullFloat64
		err := h.db.QueryRow(`SELECT id,type,amount,paid_amount,due_amount,contact_id,image_filename,image_url FROM transactions WHERE id = ?`, id).
			Scan(&idVal, &typ, &amount, &paidAmount, &dueAmount, &contactID, &imageFilename, &imageURL)
		if err == sql.ErrNoRows {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
			return
		}
		if err != nil {
			writeErrorJSON(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id": idVal.String, "type": typ.String, "amount": amount.Float64,
			"paid_amount": paidAmount.Float64, "due_amount": dueAmount.Float64,
			"contact_id": contactID.String, "image_filename": imageFilename.String,
			"image_url": imageURL.String,
		})

	default:
		writeJSON(w, http.StatusNotImplemented, map[string]any{"error": "not implemented for GET record by id"})
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}

	id := genID()
	now := time.Now().Format(time.RFC3339)

	switch collection {
	case "contacts":
		_, err := h.db.Exec(`INSERT INTO contacts (id,name,phone,nid,type,organization_id) VALUES (?,?,?,?,?,?)`,
			id, body["name"], body["phone"], body["nid"], body["type"], body["organization_id"])
		if err != nil {
			writeErrorJSON(w, http.StatusInternalServerError, err)
			return
		}

	case "inventory_items":
		_, err := h.db.Exec(`INSERT INTO inventory_items (id,name,sku,quantity,unit_price,reorder_level,category,description,updated_at,created_at) VALUES (?,?,?,?,?,?,?,?,?,?)`,
			id, body["name"], body["sku"], body["quantity"], body["unit_price"], body["reorder_level"], body["category"], body["description"], now, now)
		if err != nil {
			writeErrorJSON(w, http.StatusInternalServerError, err)
			return
		}

	case "transactions":
		_, err := h.db.Exec(`INSERT INTO transactions (id,type,amount,paid_amount,due_amount,contact_id,created_at) VALUES (?,?,?,?,?,?,?)`,
			id, body["type"], body["amount"], body["paid_amount"], body["due_amount"], body["contact_id"], now)
		if err != nil {
			writeErrorJSON(w, http.StatusInternalServerError, err)
			return
		}
		h.applyTransactionItems(id, body)

	case "inventory_transactions":
		_, err := h.db.Exec(`INSERT INTO inventory_transactions (id,item_id,quantity_change,previous_quantity,new_quantity,transaction_type,notes,created_at) VALUES (?,?,?,?,?,?,?,?)`,
			id, body["item_id"], body["quantity_change"], body["previous_quantity"], body["new_quantity"], body["transaction_type"], body["notes"], now)
		if err != nil {
			writeErrorJSON(w, http.StatusInternalServerError, err)
			return
		}

	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "unknown collection"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id})
}

// applyTransactionItems records a transaction's line items and adjusts
// inventory: inflow (a sale) decrements stock, anything else increments it.
// Each adjustment also appends an inventory_transactions audit row.
func (h *Handler) applyTransactionItems(transactionID string, body map[string]any) {
	items, ok := body["items"].([]any)
	if !ok {
		return
	}

	now := time.Now().Format(time.RFC3339)
	for _, item := range items {
		itemMap, ok := item.(map[string]any)
		if !ok {
			continue
		}
		itemID, _ := itemMap["item_id"].(string)
		quantity, _ := itemMap["quantity"].(float64)
		unitPrice, _ := itemMap["unit_price"].(float64)
		totalPrice := quantity * unitPrice

		_, _ = h.db.Exec(`INSERT INTO transaction_items (id,transaction_id,item_id,quantity,unit_price,total_price) VALUES (?,?,?,?,?,?)`,
			genID(), transactionID, itemID, int(quantity), unitPrice, totalPrice)

		var currentQty int
		_ = h.db.QueryRow(`SELECT quantity FROM inventory_items WHERE id = ?`, itemID).Scan(&currentQty)

		quantityChange := int(quantity)
		if body["type"] == "inflow" {
			quantityChange = -quantityChange
		}
		newQty := currentQty + quantityChange

		_, _ = h.db.Exec(`UPDATE inventory_items SET quantity = ?, updated_at = ? WHERE id = ?`, newQty, now, itemID)
		_, _ = h.db.Exec(`INSERT INTO inventory_transactions (id,item_id,quantity_change,previous_quantity,new_quantity,transaction_type,notes,created_at) VALUES (?,?,?,?,?,?,?,?)`,
			genID(), itemID, quantityChange, currentQty, newQty, body["type"], "From transaction", now)
	}
}

func (h *Handler) handlePatch(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	id := chi.URLParam(r, "id")

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}

	switch collection {
	case "inventory_items":
		updated := false
		if name, ok := body["name"]; ok {
			_, _ = h.db.Exec("UPDATE inventory_items SET name = ? WHERE id = ?", name, id)
			updated = true
		}
		if q, ok := body["quantity"]; ok {
			_, _ = h.db.Exec("UPDATE inventory_items SET quantity = ? WHERE id = ?", q, id)
			updated = true
		}
		if updated {
			_, _ = h.db.Exec("UPDATE inventory_items SET updated_at = ? WHERE id = ?", time.Now().Format(time.RFC3339), id)
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id})

	case "transactions":
		if imageURL, ok := body["image_url"]; ok {
			_, _ = h.db.Exec("UPDATE transactions SET image_url = ? WHERE id = ?", imageURL, id)
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id})

	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "unknown collection for patch"})
	}
}

// handleUploadFile stores an uploaded file under the record's uploads
// directory and links the record to the served URL.
func (h *Handler) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	id := chi.URLParam(r, "id")

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "file required"})
		return
	}
	defer file.Close()

	dir := filepath.Join(h.uploadsDir, collection, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		writeErrorJSON(w, http.StatusInternalServerError, err)
		return
	}

	outPath := filepath.Join(dir, filepath.Base(header.Filename))
	out, err := os.Create(outPath)
	if err != nil {
		writeErrorJSON(w, http.StatusInternalServerError, err)
		return
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		writeErrorJSON(w, http.StatusInternalServerError, err)
		return
	}

	url := fmt.Sprintf("/api/files/%s/%s/%s", collection, id, filepath.Base(header.Filename))
	switch collection {
	case "inventory_items":
		_, _ = h.db.Exec("UPDATE inventory_items SET image_filename = ?, image_url = ? WHERE id = ?", header.Filename, url, id)
	case "transactions":
		_, _ = h.db.Exec("UPDATE transactions SET image_filename = ?, image_url = ? WHERE id = ?", header.Filename, url, id)
	}

	h.log.Info("Stored uploaded file", "collection", collection, "record", id, "path", outPath)
	writeJSON(w, http.StatusOK, map[string]any{"filename": header.Filename, "url": url})
}
