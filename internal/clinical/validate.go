package clinical

import "codeberg.org/aulin/anesctl/internal/errors"

type fieldRange struct {
	Field string
	Value float64
}

// Validate checks that every snapshot field is inside its clinical domain.
// It runs before Evaluate; an out-of-domain snapshot never reaches the
// rule registry.
func Validate(s Snapshot) error {
	errFactory := errors.New()

	if !s.Profile.IsValid() {
		return errFactory.WithData(errors.ErrFieldOutOfRange, string(s.Profile))
	}
	if !s.Agent.IsValid() {
		return errFactory.WithData(errors.ErrFieldOutOfRange, string(s.Agent))
	}
	if s.WeightKg <= 0 {
		return errFactory.WithData(errors.ErrFieldOutOfRange, fieldRange{"weight", s.WeightKg})
	}
	if s.FiO2 < 0 || s.FiO2 > 1 {
		return errFactory.WithData(errors.ErrFieldOutOfRange, fieldRange{"fio2", s.FiO2})
	}
	if s.FreshGasFlow < 0 {
		return errFactory.WithData(errors.ErrFieldOutOfRange, fieldRange{"fresh_gas_flow", s.FreshGasFlow})
	}
	if s.AgentConcentration < 0 {
		return errFactory.WithData(errors.ErrFieldOutOfRange, fieldRange{"agent_concentration", s.AgentConcentration})
	}
	if s.TidalVolume < 0 {
		return errFactory.WithData(errors.ErrFieldOutOfRange, fieldRange{"tidal_volume", s.TidalVolume})
	}
	if s.RespiratoryRate < 0 {
		return errFactory.WithData(errors.ErrFieldOutOfRange, fieldRange{"respiratory_rate", s.RespiratoryRate})
	}
	if s.PeakAirwayPressure < 0 {
		return errFactory.WithData(errors.ErrFieldOutOfRange, fieldRange{"peak_airway_pressure", s.PeakAirwayPressure})
	}

	return nil
}
