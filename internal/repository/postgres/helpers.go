package postgres

import (
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// txFrom unwraps the opaque unit-of-work handle the services pass through the
// repository interfaces.
func txFrom(tx interface{}) (pgx.Tx, error) {
	pgxTx, ok := tx.(pgx.Tx)
	if !ok {
		return nil, fmt.Errorf("expected pgx.Tx, got %T", tx)
	}
	return pgxTx, nil
}

func decimalToPgNumeric(d decimal.Decimal) (pgtype.Numeric, error) {
	var num pgtype.Numeric
	if err := num.Scan(d.String()); err != nil {
		return pgtype.Numeric{}, err
	}
	return num, nil
}

func pgNumericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(new(big.Int).Set(n.Int), n.Exp)
}

// numericScanner is a scan target for NUMERIC columns read back as decimals.
type numericScanner struct {
	n pgtype.Numeric
}

func (s *numericScanner) decimal() decimal.Decimal {
	return pgNumericToDecimal(s.n)
}
