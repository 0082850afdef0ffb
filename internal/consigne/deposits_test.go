package consigne

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type depositFixture struct {
	db         *Database
	depositID  int64
	receiverID int64
	providerID int64
	bottle     int64
	jar        int64
	bag        int64
}

// seedDeposit registers two users, two returnable products and one
// non-returnable product, and opens a deposit between the users.
func seedDeposit(t *testing.T, driver string) depositFixture {
	t.Helper()
	db, _ := openTestDatabase(t, driver)
	ctx := context.Background()
	f := depositFixture{db: db}

	receiver, err := db.AddUser(ctx, 1, 1001, "Receiver")
	require.NoError(t, err)
	f.receiverID, _ = receiver.Int64("user_id")
	provider, err := db.AddUser(ctx, 2, 2002, "Provider")
	require.NoError(t, err)
	f.providerID, _ = provider.Int64("user_id")

	none, err := db.AddProductReturn(ctx, 1, "No return", false, 0)
	require.NoError(t, err)
	noneID, _ := none.Int64("product_return_id")
	bottleRet, err := db.AddProductReturn(ctx, 10, "Bottle", true, 0.2)
	require.NoError(t, err)
	bottleRetID, _ := bottleRet.Int64("product_return_id")
	jarRet, err := db.AddProductReturn(ctx, 11, "Jar", true, 0.1)
	require.NoError(t, err)
	jarRetID, _ := jarRet.Int64("product_return_id")

	for _, p := range []struct {
		opid  int64
		name  string
		retID int64
		dst   *int64
	}{
		{100, "Cider", bottleRetID, &f.bottle},
		{101, "Jam", jarRetID, &f.jar},
		{102, "Paper bag", noneID, &f.bag},
	} {
		rec, err := db.AddProduct(ctx, p.opid, p.name, "barcode-"+p.name, p.retID)
		require.NoError(t, err)
		*p.dst, _ = rec.Int64("product_id")
	}

	deposit, err := db.AddDeposit(ctx, f.receiverID, f.providerID)
	require.NoError(t, err)
	f.depositID, _ = deposit.Int64("deposit_id")
	require.NotZero(t, f.depositID)
	return f
}

func TestDeposit_Lifecycle(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			f := seedDeposit(t, driver)
			ctx := context.Background()
			db := f.db

			line, err := db.AddDepositLine(ctx, f.depositID, f.bottle)
			require.NoError(t, err)
			firstLine, _ := line.Int64("deposit_line_id")

			lines, err := db.AddDepositLines(ctx, f.depositID, []int64{f.bottle, f.jar, f.bag, f.jar})
			require.NoError(t, err)
			require.Len(t, lines, 4)
			pid, _ := lines[2].Int64("product_id")
			assert.Equal(t, f.bag, pid, "records keep input order")

			require.NoError(t, db.CancelDepositLine(ctx, f.depositID, firstLine))
			err = db.CancelDepositLine(ctx, f.depositID+1, firstLine)
			assert.True(t, errors.Is(err, ErrNotFound))

			got, found, err := db.GetDepositLineData(ctx, f.depositID, firstLine)
			require.NoError(t, err)
			require.True(t, found)
			canceled, _ := got.Bool("canceled")
			assert.True(t, canceled)
			name, _ := got.String("product_name")
			assert.Equal(t, "Cider", name)

			returns, err := db.GetReturnsPerTypes(ctx, f.depositID)
			require.NoError(t, err)
			require.Len(t, returns, 2)
			assert.Equal(t, "Bottle", returns[0].Name)
			assert.Equal(t, 1, returns[0].Quantity)
			assert.InDelta(t, 0.2, returns[0].Value, 1e-9)
			assert.Equal(t, "Jar", returns[1].Name)
			assert.Equal(t, 2, returns[1].Quantity)
			assert.InDelta(t, 0.1, returns[1].UnitValue, 1e-9)
			assert.InDelta(t, 0.4, TotalValue(returns), 1e-9)

			require.NoError(t, db.SetDepositBarcode(ctx, f.depositID, "2000000000046"))
			require.NoError(t, db.CloseDeposit(ctx, f.depositID))
			assert.True(t, errors.Is(db.CloseDeposit(ctx, 9999), ErrNotFound))

			data, found, err := db.GetDepositData(ctx, f.depositID)
			require.NoError(t, err)
			require.True(t, found)
			closed, _ := data.Deposit.Bool("closed")
			assert.True(t, closed)
			barcode, _ := data.Deposit.String("deposit_barcode")
			assert.Equal(t, "2000000000046", barcode)
			rname, _ := data.Receiver.String("user_name")
			assert.Equal(t, "Receiver", rname)
			pname, _ := data.Provider.String("user_name")
			assert.Equal(t, "Provider", pname)
			require.Len(t, data.Lines, 5)
			id0, _ := data.Lines[0].Int64("deposit_line_id")
			assert.Equal(t, firstLine, id0)
		})
	}
}

func TestDeposit_MissingDeposit(t *testing.T) {
	f := seedDeposit(t, "sqlite3")
	ctx := context.Background()

	_, found, err := f.db.GetDepositData(ctx, f.depositID+10)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = f.db.AddDepositLine(ctx, f.depositID+10, f.bottle)
	assert.Error(t, err, "foreign keys are enforced")

	returns, err := f.db.GetReturnsPerTypes(ctx, f.depositID)
	require.NoError(t, err)
	assert.Empty(t, returns)
}

func TestDepositData_JSON(t *testing.T) {
	f := seedDeposit(t, "sqlite3")
	ctx := context.Background()

	_, err := f.db.AddDepositLine(ctx, f.depositID, f.jar)
	require.NoError(t, err)

	data, _, err := f.db.GetDepositData(ctx, f.depositID)
	require.NoError(t, err)

	raw, err := json.Marshal(data)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded, "deposit")
	assert.Contains(t, decoded, "receiver")
	assert.Contains(t, decoded, "provider")
	lines, ok := decoded["deposit_lines"].([]any)
	require.True(t, ok)
	require.Len(t, lines, 1)
	assert.Equal(t, "Jam", lines[0].(map[string]any)["product_name"])
}
