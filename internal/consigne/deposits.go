package consigne

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/consigne/internal/queryir"
	"github.com/roach88/consigne/internal/store"
)

// DepositData is a deposit with both parties and every line.
type DepositData struct {
	Deposit  store.Record   `json:"deposit"`
	Receiver store.Record   `json:"receiver"`
	Provider store.Record   `json:"provider"`
	Lines    []store.Record `json:"deposit_lines"`
}

// ReturnLine aggregates the returned products of one category.
type ReturnLine struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitValue float64 `json:"unit_value"`
	Value     float64 `json:"value"`
}

// TotalValue sums the value of every line.
func TotalValue(lines []ReturnLine) float64 {
	var total float64
	for _, l := range lines {
		total += l.Value
	}
	return total
}

var lineFields = []string{
	"deposit_line_id", "deposit_id", "product_id", "deposit_line_datetime", "canceled",
	"odoo_product_id", "product_name", "returnable", "return_value",
}

// AddDeposit opens a deposit between a receiver and a provider.
func (d *Database) AddDeposit(ctx context.Context, receiverID, providerID int64) (store.Record, error) {
	var rec store.Record
	err := d.exec(ctx, func(s *store.Session) error {
		res, err := s.InsertOne(ctx, queryir.Request{
			Table:      "deposits",
			Fields:     []string{"receiver_id", "provider_id", "deposit_datetime", "closed"},
			Values:     []any{receiverID, providerID, d.clock.Now(), false},
			Returning:  []string{"deposit_id"},
			OnConflict: queryir.ConflictAbort,
		}, false)
		if err != nil {
			return err
		}
		rec = res.Records[0]
		return nil
	})
	if err == nil {
		id, _ := rec.Int64("deposit_id")
		d.logger.Info("deposit opened", "deposit_id", id, "receiver_id", receiverID, "provider_id", providerID)
	}
	return rec, err
}

// AddDepositLine records one returned product.
func (d *Database) AddDepositLine(ctx context.Context, depositID, productID int64) (store.Record, error) {
	var rec store.Record
	err := d.exec(ctx, func(s *store.Session) error {
		res, err := s.InsertOne(ctx, queryir.Request{
			Table:      "deposit_lines",
			Fields:     []string{"deposit_id", "product_id", "deposit_line_datetime", "canceled"},
			Values:     []any{depositID, productID, d.clock.Now(), false},
			Returning:  []string{"deposit_line_id"},
			OnConflict: queryir.ConflictAbort,
		}, false)
		if err != nil {
			return err
		}
		rec = res.Records[0]
		return nil
	})
	return rec, err
}

// AddDepositLines records several returned products in one transaction,
// reusing a single prepared statement. Records come back in input order.
func (d *Database) AddDepositLines(ctx context.Context, depositID int64, productIDs []int64) ([]store.Record, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	rows := make([][]any, len(productIDs))
	for i, pid := range productIDs {
		rows[i] = []any{depositID, pid, d.clock.Now(), false}
	}

	var recs []store.Record
	err := d.exec(ctx, func(s *store.Session) error {
		res, err := s.InsertEach(ctx, queryir.Request{
			Table:      "deposit_lines",
			Fields:     []string{"deposit_id", "product_id", "deposit_line_datetime", "canceled"},
			Rows:       rows,
			Returning:  []string{"deposit_line_id", "product_id"},
			OnConflict: queryir.ConflictAbort,
		}, false)
		if err != nil {
			return err
		}
		recs = res.Records
		return nil
	})
	return recs, err
}

// CancelDepositLine flags a line of an open deposit as canceled.
func (d *Database) CancelDepositLine(ctx context.Context, depositID, lineID int64) error {
	return d.exec(ctx, func(s *store.Session) error {
		res, err := s.Update(ctx, queryir.Request{
			Table:   "deposit_lines",
			Setters: []queryir.Setter{queryir.Set("canceled", true)},
			Conditions: []queryir.Condition{
				queryir.Where("deposit_id", queryir.OpEq, depositID),
				queryir.Where("deposit_line_id", queryir.OpEq, lineID),
			},
		}, false)
		if err != nil {
			return err
		}
		return mustAffect(res, fmt.Sprintf("cancel line %d of deposit %d", lineID, depositID))
	})
}

// GetDepositData loads a deposit, both parties and all its lines.
func (d *Database) GetDepositData(ctx context.Context, depositID int64) (DepositData, bool, error) {
	deposit, found, err := d.readOne(ctx, queryir.Request{
		Table:      "deposits",
		Conditions: []queryir.Condition{queryir.Where("deposit_id", queryir.OpEq, depositID)},
	})
	if err != nil || !found {
		return DepositData{}, found, err
	}
	data := DepositData{Deposit: deposit}

	for _, party := range []struct {
		column string
		dst    *store.Record
	}{
		{"receiver_id", &data.Receiver},
		{"provider_id", &data.Provider},
	} {
		id, _ := deposit.Int64(party.column)
		user, _, err := d.readOne(ctx, queryir.Request{
			Table:      "users",
			Fields:     []string{"user_id", "user_code", "user_name"},
			Conditions: []queryir.Condition{queryir.Where("user_id", queryir.OpEq, id)},
		})
		if err != nil {
			return DepositData{}, false, err
		}
		*party.dst = user
	}

	data.Lines, err = d.readMany(ctx, queryir.Request{
		Table:      "deposit_lines",
		Fields:     lineFields,
		Conditions: []queryir.Condition{queryir.Where("deposit_id", queryir.OpEq, depositID)},
		OrderBy:    []string{"deposit_line_id"},
	})
	if err != nil {
		return DepositData{}, false, err
	}
	return data, true, nil
}

// GetDepositLineData loads one line of a deposit with its product.
func (d *Database) GetDepositLineData(ctx context.Context, depositID, lineID int64) (store.Record, bool, error) {
	return d.readOne(ctx, queryir.Request{
		Table:  "deposit_lines",
		Fields: lineFields,
		Conditions: []queryir.Condition{
			queryir.Where("deposit_id", queryir.OpEq, depositID),
			queryir.Where("deposit_line_id", queryir.OpEq, lineID),
		},
	})
}

// GetReturnsPerTypes aggregates the live lines of a deposit by return
// category. Non-returnable products are skipped. Lines are sorted by name.
func (d *Database) GetReturnsPerTypes(ctx context.Context, depositID int64) ([]ReturnLine, error) {
	recs, err := d.readMany(ctx, queryir.Request{
		Table:  "deposit_lines",
		Fields: []string{"product_return_name", "return_value"},
		Conditions: []queryir.Condition{
			queryir.Where("deposit_id", queryir.OpEq, depositID),
			queryir.Where("canceled", queryir.OpEq, false),
			queryir.Where("returnable", queryir.OpEq, true),
		},
	})
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*ReturnLine)
	for _, r := range recs {
		name, _ := r.String("product_return_name")
		value, _ := r.Float64("return_value")
		line, ok := byName[name]
		if !ok {
			line = &ReturnLine{Name: name, UnitValue: value}
			byName[name] = line
		}
		line.Quantity++
		line.Value += value
	}

	out := make([]ReturnLine, 0, len(byName))
	for _, l := range byName {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// SetDepositBarcode stores the voucher barcode printed for a deposit.
func (d *Database) SetDepositBarcode(ctx context.Context, depositID int64, barcode string) error {
	return d.exec(ctx, func(s *store.Session) error {
		res, err := s.Update(ctx, queryir.Request{
			Table:      "deposits",
			Setters:    []queryir.Setter{queryir.Set("deposit_barcode", barcode)},
			Conditions: []queryir.Condition{queryir.Where("deposit_id", queryir.OpEq, depositID)},
		}, false)
		if err != nil {
			return err
		}
		return mustAffect(res, fmt.Sprintf("set barcode of deposit %d", depositID))
	})
}

// CloseDeposit marks a deposit closed.
func (d *Database) CloseDeposit(ctx context.Context, depositID int64) error {
	err := d.exec(ctx, func(s *store.Session) error {
		res, err := s.Update(ctx, queryir.Request{
			Table:      "deposits",
			Setters:    []queryir.Setter{queryir.Set("closed", true)},
			Conditions: []queryir.Condition{queryir.Where("deposit_id", queryir.OpEq, depositID)},
		}, false)
		if err != nil {
			return err
		}
		return mustAffect(res, fmt.Sprintf("close deposit %d", depositID))
	})
	if err == nil {
		d.logger.Info("deposit closed", "deposit_id", depositID)
	}
	return err
}
