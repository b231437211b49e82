package alert

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultThreshold is the initial percentage for every resource.
const DefaultThreshold = 80

// ErrInvalidThreshold is returned when threshold input cannot be accepted.
var ErrInvalidThreshold = errors.New("invalid threshold")

// Thresholds are alert limits in percent.
type Thresholds struct {
	CPU  int `json:"cpu" validate:"gte=0,lte=100"`
	RAM  int `json:"ram" validate:"gte=0,lte=100"`
	Disk int `json:"disk" validate:"gte=0,lte=100"`
}

// DefaultThresholds returns 80% for every resource.
func DefaultThresholds() Thresholds {
	return Thresholds{CPU: DefaultThreshold, RAM: DefaultThreshold, Disk: DefaultThreshold}
}

// For returns the limit for r.
func (t Thresholds) For(r Resource) int {
	switch r {
	case CPU:
		return t.CPU
	case RAM:
		return t.RAM
	case Disk:
		return t.Disk
	}
	return 0
}

var validate = validator.New()

// Validate checks every limit is within [0,100].
func (t Thresholds) Validate() error {
	err := validate.Struct(t)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%w: %s must be between 0 and 100, got %v", ErrInvalidThreshold, fe.Field(), fe.Value())
	}
	return fmt.Errorf("%w: %v", ErrInvalidThreshold, err)
}

// ParseThresholds converts operator input into Thresholds. Either all three
// values are accepted or an error wrapping ErrInvalidThreshold is returned.
func ParseThresholds(cpu, ram, disk string) (Thresholds, error) {
	var t Thresholds
	fields := []struct {
		name string
		raw  string
		dst  *int
	}{
		{"CPU", cpu, &t.CPU},
		{"RAM", ram, &t.RAM},
		{"Disk", disk, &t.Disk},
	}

	for _, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f.raw))
		if err != nil {
			return Thresholds{}, fmt.Errorf("%w: %s value %q is not an integer", ErrInvalidThreshold, f.name, f.raw)
		}
		*f.dst = n
	}

	if err := t.Validate(); err != nil {
		return Thresholds{}, err
	}
	return t, nil
}
