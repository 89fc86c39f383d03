package insurance

import "errors"

var (
	ErrResultNotFound     = errors.New("social insurance result not found")
	ErrRuleSetNotFound    = errors.New("rule set not found")
	ErrInvalidCalculation = errors.New("invalid social insurance calculation request")
)
