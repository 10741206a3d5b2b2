package usecase

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"FinCast/internal/domain/models"
	"FinCast/pkg/util"
)

// ValidationCode tells why a horizon input was rejected.
type ValidationCode string

const (
	NotNumeric ValidationCode = "not_numeric"
	OutOfRange ValidationCode = "out_of_range"
)

// ValidationError is returned for a malformed custom horizon.
type ValidationError struct {
	Code  ValidationCode
	Input string
}

func (e *ValidationError) Error() string {
	if e.Code == NotNumeric {
		return "Only digits are allowed."
	}
	return fmt.Sprintf("Enter a number between %d and %d.", models.MinHorizon, models.MaxHorizon)
}

var (
	ErrEmptySelection = errors.New("select at least one horizon")
	ErrUnknownPreset  = errors.New("preset is not offered")
)

// ValidateHorizon checks a raw custom horizon. Blank input is reported as
// empty and is not an error: the preset applies instead.
func ValidateHorizon(raw string) (n int, empty bool, err error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, true, nil
	}
	if util.DigitsOnly(s) != s {
		return 0, false, &ValidationError{Code: NotNumeric, Input: raw}
	}
	// Digits that overflow int are simply too large.
	n, convErr := strconv.Atoi(s)
	if convErr != nil || n < models.MinHorizon || n > models.MaxHorizon {
		return 0, false, &ValidationError{Code: OutOfRange, Input: raw}
	}
	return n, false, nil
}

// SanitizePaste strips everything but digits from pasted text.
func SanitizePaste(raw string) string {
	return util.DigitsOnly(raw)
}

// HorizonCheck is the result of validating the custom horizon field, including
// what the form should do with its submit control.
type HorizonCheck struct {
	Value         string `json:"value"`
	Valid         bool   `json:"valid"`
	Empty         bool   `json:"empty"`
	Horizon       int    `json:"horizon,omitempty"`
	Error         string `json:"error,omitempty"`
	SubmitEnabled bool   `json:"submit_enabled"`
}

// CheckHorizonField validates the field as typed, or as pasted when paste is set.
func CheckHorizonField(raw string, paste bool) HorizonCheck {
	if paste {
		raw = SanitizePaste(raw)
	}
	n, empty, err := ValidateHorizon(raw)
	if err != nil {
		return HorizonCheck{Value: raw, Error: err.Error()}
	}
	return HorizonCheck{Value: raw, Valid: true, Empty: empty, Horizon: n, SubmitEnabled: true}
}

// ResolveSelection picks the active horizon selection. A non-blank custom
// value always wins over the preset.
func ResolveSelection(custom string, preset int, presets []int) (models.HorizonSelection, error) {
	n, empty, err := ValidateHorizon(custom)
	if err != nil {
		return models.HorizonSelection{}, err
	}
	if !empty {
		return models.HorizonSelection{Mode: models.SelectionCustom, Max: n}, nil
	}
	if preset <= 0 {
		return models.HorizonSelection{}, ErrEmptySelection
	}
	if !slices.Contains(presets, preset) {
		return models.HorizonSelection{}, fmt.Errorf("%w: %d", ErrUnknownPreset, preset)
	}
	return models.HorizonSelection{Mode: models.SelectionPreset, Max: preset}, nil
}
