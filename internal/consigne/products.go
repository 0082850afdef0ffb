package consigne

import (
	"context"
	"fmt"

	"github.com/roach88/consigne/internal/queryir"
	"github.com/roach88/consigne/internal/store"
)

// AddProductReturn registers a return category (a bottle type, a crate)
// keyed by its ERP id. An existing id returns the existing record.
func (d *Database) AddProductReturn(ctx context.Context, opid int64, name string, returnable bool, value float64) (store.Record, error) {
	var rec store.Record
	err := d.exec(ctx, func(s *store.Session) error {
		_, err := s.InsertOne(ctx, queryir.Request{
			Table:      "product_returns",
			Fields:     []string{"odoo_product_return_id", "product_return_name", "returnable", "return_value"},
			Values:     []any{opid, name, returnable, value},
			OnConflict: queryir.ConflictIgnore,
		}, false)
		if err != nil {
			return err
		}
		r, found, err := s.ReadOne(ctx, productReturnByOpid(opid))
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("add product return %d: %w", opid, ErrNotFound)
		}
		rec = r
		return nil
	})
	return rec, err
}

// GetReturnProductFromOpid looks a return category up by ERP id.
func (d *Database) GetReturnProductFromOpid(ctx context.Context, opid int64) (store.Record, bool, error) {
	return d.readOne(ctx, productReturnByOpid(opid))
}

// AddProduct registers a product and links it to its return category.
// An existing ERP id returns the existing record.
func (d *Database) AddProduct(ctx context.Context, opid int64, name, barcode string, productReturnID int64) (store.Record, error) {
	var rec store.Record
	err := d.exec(ctx, func(s *store.Session) error {
		_, err := s.InsertOne(ctx, queryir.Request{
			Table:      "products",
			Fields:     []string{"odoo_product_id", "product_name", "barcode", "product_return_id"},
			Values:     []any{opid, name, barcode, productReturnID},
			OnConflict: queryir.ConflictIgnore,
		}, false)
		if err != nil {
			return err
		}
		r, found, err := s.ReadOne(ctx, productByOpid(opid))
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("add product %d: %w", opid, ErrNotFound)
		}
		rec = r
		return nil
	})
	return rec, err
}

// GetProductFromOpid looks a product up by ERP id, with its return category.
func (d *Database) GetProductFromOpid(ctx context.Context, opid int64) (store.Record, bool, error) {
	return d.readOne(ctx, productByOpid(opid))
}

func productReturnByOpid(opid int64) queryir.Request {
	return queryir.Request{
		Table:      "product_returns",
		Fields:     []string{"product_return_id", "odoo_product_return_id", "product_return_name", "returnable", "return_value"},
		Conditions: []queryir.Condition{queryir.Where("odoo_product_return_id", queryir.OpEq, opid)},
	}
}

func productByOpid(opid int64) queryir.Request {
	return queryir.Request{
		Table: "products",
		Fields: []string{
			"product_id", "odoo_product_id", "product_name", "barcode",
			"product_return_id", "product_return_name", "returnable", "return_value",
		},
		Conditions: []queryir.Condition{queryir.Where("odoo_product_id", queryir.OpEq, opid)},
	}
}
