package session

import (
	"fmt"
	"strconv"

	"codeberg.org/aulin/anesctl/internal/clinical"
	"codeberg.org/aulin/anesctl/internal/errors"
)

// Documented safe defaults: a 70 kg adult on 50% oxygen, 4 L/min fresh
// gas, 2% sevoflurane, 500 mL tidal volume at 12 breaths/min.
const (
	defaultWeightKg           = 70.0
	defaultFiO2               = 0.50
	defaultFreshGasFlow       = 4.0
	defaultAgentConcentration = 2.0
	defaultTidalVolume        = 500.0
	defaultRespiratoryRate    = 12.0
	defaultPeakAirwayPressure = 18.0
)

// fieldOrder is the display order for render surfaces
var fieldOrder = []Field{
	FieldProfile,
	FieldWeight,
	FieldFiO2,
	FieldFreshGasFlow,
	FieldAgent,
	FieldAgentConcentration,
	FieldTidalVolume,
	FieldRespiratoryRate,
	FieldPeakAirwayPressure,
}

// store holds the manually entered operating parameters. Values are
// range-checked on entry, so a fully populated store always yields a
// snapshot inside the clinical domain.
type store struct {
	profile            clinical.Profile
	weightKg           float64
	fio2               float64
	freshGasFlow       float64
	agent              clinical.Agent
	agentConcentration float64
	tidalVolume        float64
	respiratoryRate    float64
	peakAirwayPressure float64
	populated          map[Field]bool
}

func newStore() *store {
	s := &store{}
	s.loadDefaults()

	return s
}

func (s *store) loadDefaults() {
	s.profile = clinical.ProfileAdult
	s.weightKg = defaultWeightKg
	s.fio2 = defaultFiO2
	s.freshGasFlow = defaultFreshGasFlow
	s.agent = clinical.Sevoflurane
	s.agentConcentration = defaultAgentConcentration
	s.tidalVolume = defaultTidalVolume
	s.respiratoryRate = defaultRespiratoryRate
	s.peakAirwayPressure = defaultPeakAirwayPressure

	s.populated = make(map[Field]bool, len(fieldOrder))
	for _, f := range fieldOrder {
		s.populated[f] = true
	}
}

// clear empties every field; the next snapshot fails until re-entry
func (s *store) clear() {
	*s = store{populated: make(map[Field]bool, len(fieldOrder))}
}

func (s *store) set(field Field, value string) error {
	errFactory := errors.New()

	switch field {
	case FieldProfile:
		profile := clinical.Profile(value)
		if !profile.IsValid() {
			return errFactory.WithData(ErrInvalidValue, value)
		}
		s.profile = profile
	case FieldAgent:
		agent := clinical.Agent(value)
		if !agent.IsValid() {
			return errFactory.WithData(ErrInvalidValue, value)
		}
		s.agent = agent
	case FieldWeight:
		return s.setNumeric(field, value, &s.weightKg, func(v float64) bool { return v > 0 })
	case FieldFiO2:
		return s.setNumeric(field, value, &s.fio2, func(v float64) bool { return v >= 0 && v <= 1 })
	case FieldFreshGasFlow:
		return s.setNumeric(field, value, &s.freshGasFlow, nonNegative)
	case FieldAgentConcentration:
		return s.setNumeric(field, value, &s.agentConcentration, nonNegative)
	case FieldTidalVolume:
		return s.setNumeric(field, value, &s.tidalVolume, nonNegative)
	case FieldRespiratoryRate:
		return s.setNumeric(field, value, &s.respiratoryRate, nonNegative)
	case FieldPeakAirwayPressure:
		return s.setNumeric(field, value, &s.peakAirwayPressure, nonNegative)
	default:
		return errFactory.WithData(ErrUnknownField, string(field))
	}

	s.populated[field] = true

	return nil
}

func (s *store) setNumeric(field Field, value string, target *float64, inDomain func(float64) bool) error {
	errFactory := errors.New()

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return errFactory.WithData(ErrInvalidValue, fmt.Sprintf("%s=%s", field, value))
	}
	if !inDomain(parsed) {
		return errFactory.WithData(ErrFieldOutOfRange, fmt.Sprintf("%s=%s", field, value))
	}

	*target = parsed
	s.populated[field] = true

	return nil
}

func nonNegative(v float64) bool { return v >= 0 }

// snapshot captures the store into an immutable evaluation input. Fails
// with a validation error naming the first unpopulated field.
func (s *store) snapshot(hypoxicGuard bool) (clinical.Snapshot, error) {
	errFactory := errors.New()

	for _, f := range fieldOrder {
		if !s.populated[f] {
			return clinical.Snapshot{}, errFactory.WithData(ErrFieldMissing, string(f))
		}
	}

	return clinical.Snapshot{
		Profile:            s.profile,
		WeightKg:           s.weightKg,
		FiO2:               s.fio2,
		FreshGasFlow:       s.freshGasFlow,
		Agent:              s.agent,
		AgentConcentration: s.agentConcentration,
		TidalVolume:        s.tidalVolume,
		RespiratoryRate:    s.respiratoryRate,
		PeakAirwayPressure: s.peakAirwayPressure,
		HypoxicGuard:       hypoxicGuard,
	}, nil
}

// parameters lists the store contents in display order
func (s *store) parameters() []Parameter {
	out := make([]Parameter, 0, len(fieldOrder))
	for _, f := range fieldOrder {
		p := Parameter{Name: f, Set: s.populated[f]}
		if p.Set {
			p.Value = s.format(f)
		}
		out = append(out, p)
	}

	return out
}

func (s *store) format(field Field) string {
	switch field {
	case FieldProfile:
		return string(s.profile)
	case FieldAgent:
		return string(s.agent)
	case FieldWeight:
		return strconv.FormatFloat(s.weightKg, 'f', -1, 64)
	case FieldFiO2:
		return strconv.FormatFloat(s.fio2, 'f', -1, 64)
	case FieldFreshGasFlow:
		return strconv.FormatFloat(s.freshGasFlow, 'f', -1, 64)
	case FieldAgentConcentration:
		return strconv.FormatFloat(s.agentConcentration, 'f', -1, 64)
	case FieldTidalVolume:
		return strconv.FormatFloat(s.tidalVolume, 'f', -1, 64)
	case FieldRespiratoryRate:
		return strconv.FormatFloat(s.respiratoryRate, 'f', -1, 64)
	case FieldPeakAirwayPressure:
		return strconv.FormatFloat(s.peakAirwayPressure, 'f', -1, 64)
	default:
		return ""
	}
}
