package models

import (
	"database/sql/driver"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Amount stores an arbitrary-precision integer as a decimal string column
// (NUMERIC(78,0) in postgres).
type Amount struct {
	sdkmath.Int
}

// NewAmount wraps v, treating a nil Int as zero.
func NewAmount(v sdkmath.Int) Amount {
	if v.IsNil() {
		return Amount{sdkmath.ZeroInt()}
	}
	return Amount{v}
}

// Value implements driver.Valuer.
func (a Amount) Value() (driver.Value, error) {
	if a.Int.IsNil() {
		return "0", nil
	}
	return a.Int.String(), nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case nil:
		a.Int = sdkmath.ZeroInt()
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	case int64:
		a.Int = sdkmath.NewInt(v)
		return nil
	default:
		return fmt.Errorf("models: cannot scan %T into Amount", src)
	}
	i, ok := sdkmath.NewIntFromString(s)
	if !ok {
		return fmt.Errorf("models: invalid amount %q", s)
	}
	a.Int = i
	return nil
}

// GormDBDataType picks the column type for AutoMigrate. sqlite gets text
// since its numeric affinity would round values above 2^63.
func (Amount) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "numeric(78,0)"
	}
	return "text"
}
