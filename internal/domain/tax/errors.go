package tax

import "errors"

var (
	ErrTaxRecordNotFound       = errors.New("tax record not found")
	ErrTaxRecordExists         = errors.New("tax record already exists for employee and period")
	ErrCalculationMethodLocked = errors.New("calculation method already set for this period, overwrite required")
	ErrInvalidImportMode       = errors.New("import mode must be one of replace, update, append")
)
