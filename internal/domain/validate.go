package domain

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// Validate checks the [0,100] sub-score bounds and the closed recommendation
// enumeration. A value outside the enumeration is an error, never coerced.
func (s ScoringResult) Validate() error {
	if err := getValidator().Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrScoringDecode, err)
	}
	return nil
}

// Validate checks that all required job-offer fields are present.
func (j JobOffer) Validate() error {
	if err := getValidator().Struct(j); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return nil
}
