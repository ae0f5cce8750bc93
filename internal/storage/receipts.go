package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mfinch/pocketwatch/internal/common"
	"github.com/mfinch/pocketwatch/internal/model"
	"github.com/mfinch/pocketwatch/internal/service"
)

const receiptColumns = `id, user_id, household_id, image_path, merchant_name, transaction_date,
	subtotal, tax, tip, grand_total, payment_method, category_id, confidence, overridden,
	expense_type, raw_extraction, created_at`

func decimalToNull(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullToDecimal(ns sql.NullString) (*decimal.Decimal, error) {
	if !ns.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored amount %q: %w", ns.String, err)
	}
	return &d, nil
}

func scanReceipt(row interface{ Scan(...any) error }) (*model.Receipt, error) {
	var r model.Receipt
	var id, userID, householdID, grandTotal string
	var categoryID sql.NullString
	var subtotal, tax, tip sql.NullString
	var txDate sql.NullTime

	err := row.Scan(&id, &userID, &householdID, &r.ImagePath, &r.MerchantName, &txDate,
		&subtotal, &tax, &tip, &grandTotal, &r.PaymentMethod, &categoryID, &r.Confidence,
		&r.Overridden, &r.ExpenseType, &r.RawExtraction, &r.CreatedAt)
	if err != nil {
		return nil, err
	}

	if r.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("failed to parse receipt id: %w", err)
	}
	if r.UserID, err = uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("failed to parse receipt user id: %w", err)
	}
	if r.HouseholdID, err = uuid.Parse(householdID); err != nil {
		return nil, fmt.Errorf("failed to parse receipt household id: %w", err)
	}
	if categoryID.Valid {
		catID, parseErr := uuid.Parse(categoryID.String)
		if parseErr != nil {
			return nil, fmt.Errorf("failed to parse receipt category id: %w", parseErr)
		}
		r.CategoryID = &catID
	}
	if txDate.Valid {
		t := txDate.Time.UTC()
		r.TransactionDate = &t
	}
	if r.GrandTotal, err = decimal.NewFromString(grandTotal); err != nil {
		return nil, fmt.Errorf("failed to parse grand total %q: %w", grandTotal, err)
	}
	if r.Subtotal, err = nullToDecimal(subtotal); err != nil {
		return nil, err
	}
	if r.Tax, err = nullToDecimal(tax); err != nil {
		return nil, err
	}
	if r.Tip, err = nullToDecimal(tip); err != nil {
		return nil, err
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}

func receiptCategoryID(r *model.Receipt) any {
	if r.CategoryID == nil {
		return nil
	}
	return r.CategoryID.String()
}

// SaveReceipt inserts a new receipt, assigning its ID and creation time.
func (c *queries) SaveReceipt(ctx context.Context, receipt *model.Receipt) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateReceipt(receipt); err != nil {
		return err
	}

	if receipt.ID == uuid.Nil {
		receipt.ID = uuid.New()
	}
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = time.Now().UTC()
	}

	_, err := c.q.ExecContext(ctx,
		`INSERT INTO receipts (`+receiptColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		receipt.ID.String(), receipt.UserID.String(), receipt.HouseholdID.String(),
		receipt.ImagePath, receipt.MerchantName, receipt.TransactionDate,
		decimalToNull(receipt.Subtotal), decimalToNull(receipt.Tax), decimalToNull(receipt.Tip),
		receipt.GrandTotal.String(), receipt.PaymentMethod, receiptCategoryID(receipt),
		receipt.Confidence, receipt.Overridden, string(receipt.ExpenseType),
		receipt.RawExtraction, receipt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save receipt: %w", err)
	}

	slog.Debug("saved receipt", "id", receipt.ID, "merchant", receipt.MerchantName)
	return nil
}

// GetReceipt returns the receipt if it exists and belongs to the user, else
// common.ErrNotFound.
func (c *queries) GetReceipt(ctx context.Context, userID, id uuid.UUID) (*model.Receipt, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(id, "receipt id"); err != nil {
		return nil, err
	}

	query := `SELECT ` + receiptColumns + ` FROM receipts WHERE id = ? AND user_id = ?`
	receipt, err := scanReceipt(c.q.QueryRowContext(ctx, query, id.String(), userID.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("receipt %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query receipt: %w", err)
	}
	return receipt, nil
}

// ListReceipts returns the user's receipts matching the filter, ordered by
// effective date descending.
func (c *queries) ListReceipts(ctx context.Context, userID uuid.UUID, filter service.ReceiptFilter) ([]model.Receipt, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(userID, "user"); err != nil {
		return nil, err
	}

	query := `SELECT ` + receiptColumns + ` FROM receipts WHERE user_id = ?`
	args := []any{userID.String()}

	if filter.CategoryID != nil {
		query += ` AND category_id = ?`
		args = append(args, filter.CategoryID.String())
	}
	if filter.Start != nil {
		query += ` AND COALESCE(transaction_date, created_at) >= ?`
		args = append(args, filter.Start.UTC())
	}
	if filter.End != nil {
		query += ` AND COALESCE(transaction_date, created_at) <= ?`
		args = append(args, filter.End.UTC())
	}

	query += ` ORDER BY COALESCE(transaction_date, created_at) DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var receipts []model.Receipt
	for rows.Next() {
		receipt, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipts = append(receipts, *receipt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating receipts: %w", err)
	}
	return receipts, nil
}

// UpdateReceipt persists changes to an existing receipt's editable fields.
func (c *queries) UpdateReceipt(ctx context.Context, receipt *model.Receipt) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateReceipt(receipt); err != nil {
		return err
	}

	result, err := c.q.ExecContext(ctx,
		`UPDATE receipts SET merchant_name = ?, transaction_date = ?, subtotal = ?, tax = ?,
		 tip = ?, grand_total = ?, payment_method = ?, category_id = ?, confidence = ?,
		 overridden = ?, expense_type = ?
		 WHERE id = ? AND user_id = ?`,
		receipt.MerchantName, receipt.TransactionDate,
		decimalToNull(receipt.Subtotal), decimalToNull(receipt.Tax), decimalToNull(receipt.Tip),
		receipt.GrandTotal.String(), receipt.PaymentMethod, receiptCategoryID(receipt),
		receipt.Confidence, receipt.Overridden, string(receipt.ExpenseType),
		receipt.ID.String(), receipt.UserID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update receipt: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("receipt %s: %w", receipt.ID, common.ErrNotFound)
	}
	return nil
}

// DeleteReceipt removes the user's receipt, or returns common.ErrNotFound.
func (c *queries) DeleteReceipt(ctx context.Context, userID, id uuid.UUID) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id, "receipt id"); err != nil {
		return err
	}

	result, err := c.q.ExecContext(ctx,
		`DELETE FROM receipts WHERE id = ? AND user_id = ?`,
		id.String(), userID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to delete receipt: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("receipt %s: %w", id, common.ErrNotFound)
	}
	return nil
}

// SumReceiptsByCategory totals grand totals per category for the user's
// receipts whose effective date falls inside [start, end]. Sums are computed
// in decimal arithmetic; uncategorized receipts are excluded.
func (c *queries) SumReceiptsByCategory(ctx context.Context, userID uuid.UUID, start, end time.Time) (map[uuid.UUID]decimal.Decimal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(userID, "user"); err != nil {
		return nil, err
	}

	rows, err := c.q.QueryContext(ctx,
		`SELECT category_id, grand_total FROM receipts
		 WHERE user_id = ? AND category_id IS NOT NULL
		   AND COALESCE(transaction_date, created_at) >= ?
		   AND COALESCE(transaction_date, created_at) <= ?`,
		userID.String(), start.UTC(), end.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipt sums: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sums := make(map[uuid.UUID]decimal.Decimal)
	for rows.Next() {
		var categoryID, grandTotal string
		if err := rows.Scan(&categoryID, &grandTotal); err != nil {
			return nil, fmt.Errorf("failed to scan receipt sum: %w", err)
		}
		catID, err := uuid.Parse(categoryID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse category id: %w", err)
		}
		amount, err := decimal.NewFromString(grandTotal)
		if err != nil {
			return nil, fmt.Errorf("failed to parse grand total %q: %w", grandTotal, err)
		}
		sums[catID] = sums[catID].Add(amount)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating receipt sums: %w", err)
	}
	return sums, nil
}
