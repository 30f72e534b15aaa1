package clinical

import "fmt"

// Reference thresholds. These track the ISO 80601-2-13 guard values the
// simulated workstation demonstrates; they are deliberately not
// user-configurable.
const (
	hypoxicAlarmFiO2 = 0.30
	hypoxicWarnFiO2  = 0.40
	hypoxicGuardFiO2 = 0.25

	bradypneaAlarmRate = 6.0
	bradypneaWarnRate  = 8.0
	tachypneaWarnRate  = 35.0

	adultMVAlarmFloor     = 3.0
	adultMVWarnFloor      = 4.0
	pediatricMVAlarmFloor = 0.8
	pediatricMVWarnFloor  = 1.2

	tidalVolumeAlarmLow  = 4.0
	tidalVolumeAlarmHigh = 10.0
	adultTidalBandLow    = 6.0
	adultTidalBandHigh   = 8.0
	pediatricTidalLow    = 5.0
	pediatricTidalHigh   = 8.0

	pressureAlarmCeiling = 40.0
	pressureWarnCeiling  = 30.0
	disconnectPressure   = 5.0

	washInFlowFloor   = 0.3
	absoluteFlowFloor = 0.5
	flowPerMVFraction = 0.10
	wastefulFlow      = 10.0

	pediatricAgentScale = 0.75
)

var agentAlarmMax = map[Agent]float64{
	Sevoflurane: 4.0,
	Isoflurane:  3.0,
	Desflurane:  10.0,
}

var agentWarnHigh = map[Agent]float64{
	Sevoflurane: 3.0,
	Isoflurane:  2.5,
	Desflurane:  8.0,
}

// A rule inspects one aspect of the snapshot and raises at most one
// condition. Rules never rank against each other; the aggregator does.
type rule func(Snapshot) (Condition, bool)

// registry order is the clinical priority used to break severity ties in
// the banner: oxygenation, ventilation, pressure, circuit, agent, delivery.
var registry = []rule{
	checkHypoxicMixture,
	checkHypoxicGuard,
	checkApnea,
	checkRespiratoryRate,
	checkMinuteVentilation,
	checkTidalVolume,
	checkAirwayPressure,
	checkDisconnection,
	checkAgentConcentration,
	checkGasDelivery,
	checkFreshGasFlow,
}

// Evaluate runs every registered rule over the snapshot and returns the
// full set of raised conditions. Pure and deterministic.
func Evaluate(s Snapshot) []Condition {
	var conditions []Condition
	for _, check := range registry {
		if c, raised := check(s); raised {
			conditions = append(conditions, c)
		}
	}

	return conditions
}

func checkHypoxicMixture(s Snapshot) (Condition, bool) {
	switch {
	case s.FiO2 < hypoxicAlarmFiO2:
		return Condition{
			Kind:     KindHypoxicMixture,
			Severity: SeverityAlarm,
			Message:  fmt.Sprintf("hypoxic gas mixture: FiO2 %.2f below %.2f", s.FiO2, hypoxicAlarmFiO2),
			Value:    s.FiO2,
		}, true
	case s.FiO2 < hypoxicWarnFiO2:
		return Condition{
			Kind:     KindHypoxicMixture,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("approaching hypoxic limit: FiO2 %.2f", s.FiO2),
			Value:    s.FiO2,
		}, true
	}

	return Condition{}, false
}

func checkHypoxicGuard(s Snapshot) (Condition, bool) {
	if !s.HypoxicGuard || s.FiO2 >= hypoxicGuardFiO2 {
		return Condition{}, false
	}

	return Condition{
		Kind:     KindHypoxicGuard,
		Severity: SeverityAlarm,
		Message:  fmt.Sprintf("hypoxic guard: FiO2 %.2f below %.2f, delivery inhibited", s.FiO2, hypoxicGuardFiO2),
		Value:    s.FiO2,
	}, true
}

func checkApnea(s Snapshot) (Condition, bool) {
	if s.MinuteVentilation() > 0 {
		return Condition{}, false
	}

	return Condition{
		Kind:     KindApnea,
		Severity: SeverityAlarm,
		Message:  "apnea: no effective ventilation",
		Value:    0,
	}, true
}

func checkRespiratoryRate(s Snapshot) (Condition, bool) {
	rr := s.RespiratoryRate
	switch {
	case rr == 0:
		// The apnea check already covers a standstill
		return Condition{}, false
	case rr < bradypneaAlarmRate:
		return Condition{
			Kind:     KindRespiratoryRate,
			Severity: SeverityAlarm,
			Message:  fmt.Sprintf("severe bradypnea: %.0f breaths/min", rr),
			Value:    rr,
		}, true
	case rr < bradypneaWarnRate:
		return Condition{
			Kind:     KindRespiratoryRate,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("low respiratory rate: %.0f breaths/min", rr),
			Value:    rr,
		}, true
	case rr > tachypneaWarnRate:
		return Condition{
			Kind:     KindRespiratoryRate,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("high respiratory rate: %.0f breaths/min", rr),
			Value:    rr,
		}, true
	}

	return Condition{}, false
}

func mvFloors(p Profile) (alarm, warn float64) {
	if p == ProfilePediatric {
		return pediatricMVAlarmFloor, pediatricMVWarnFloor
	}

	return adultMVAlarmFloor, adultMVWarnFloor
}

func checkMinuteVentilation(s Snapshot) (Condition, bool) {
	mv := s.MinuteVentilation()
	if mv == 0 {
		// Covered by the apnea check
		return Condition{}, false
	}

	alarmFloor, warnFloor := mvFloors(s.Profile)
	switch {
	case mv < alarmFloor:
		return Condition{
			Kind:     KindMinuteVentilation,
			Severity: SeverityAlarm,
			Message:  fmt.Sprintf("inadequate minute ventilation: %.1f L/min", mv),
			Value:    mv,
		}, true
	case mv < warnFloor:
		return Condition{
			Kind:     KindMinuteVentilation,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("borderline minute ventilation: %.1f L/min", mv),
			Value:    mv,
		}, true
	}

	return Condition{}, false
}

func tidalBand(p Profile) (low, high float64) {
	if p == ProfilePediatric {
		return pediatricTidalLow, pediatricTidalHigh
	}

	return adultTidalBandLow, adultTidalBandHigh
}

func checkTidalVolume(s Snapshot) (Condition, bool) {
	perKg := s.TidalVolumePerKg()
	bandLow, bandHigh := tidalBand(s.Profile)

	switch {
	case perKg < tidalVolumeAlarmLow:
		return Condition{
			Kind:     KindTidalVolume,
			Severity: SeverityAlarm,
			Message:  fmt.Sprintf("low tidal volume: %.1f mL/kg below %.0f", perKg, tidalVolumeAlarmLow),
			Value:    perKg,
		}, true
	case perKg < bandLow:
		return Condition{
			Kind:     KindTidalVolume,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("low tidal volume: %.1f mL/kg (target %.0f-%.0f)", perKg, bandLow, bandHigh),
			Value:    perKg,
		}, true
	case perKg > tidalVolumeAlarmHigh:
		return Condition{
			Kind:     KindTidalVolume,
			Severity: SeverityAlarm,
			Message:  fmt.Sprintf("high tidal volume: %.1f mL/kg above %.0f", perKg, tidalVolumeAlarmHigh),
			Value:    perKg,
		}, true
	case perKg > bandHigh:
		return Condition{
			Kind:     KindTidalVolume,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("high tidal volume: %.1f mL/kg (target %.0f-%.0f)", perKg, bandLow, bandHigh),
			Value:    perKg,
		}, true
	}

	return Condition{}, false
}

func checkAirwayPressure(s Snapshot) (Condition, bool) {
	p := s.PeakAirwayPressure
	switch {
	case p > pressureAlarmCeiling:
		return Condition{
			Kind:     KindAirwayPressure,
			Severity: SeverityAlarm,
			Message:  fmt.Sprintf("high airway pressure: %.0f cmH2O above %.0f", p, pressureAlarmCeiling),
			Value:    p,
		}, true
	case p > pressureWarnCeiling:
		return Condition{
			Kind:     KindAirwayPressure,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("elevated airway pressure: %.0f cmH2O", p),
			Value:    p,
		}, true
	}

	return Condition{}, false
}

func checkDisconnection(s Snapshot) (Condition, bool) {
	_, warnFloor := mvFloors(s.Profile)
	if s.PeakAirwayPressure >= disconnectPressure || s.MinuteVentilation() >= warnFloor {
		return Condition{}, false
	}

	return Condition{
		Kind:     KindDisconnection,
		Severity: SeverityAlarm,
		Message:  "possible circuit disconnection or leak: low pressure with low ventilation",
		Value:    s.PeakAirwayPressure,
	}, true
}

func agentCeilings(s Snapshot) (alarmMax, warnHigh float64) {
	alarmMax = agentAlarmMax[s.Agent]
	warnHigh = agentWarnHigh[s.Agent]
	if s.Profile == ProfilePediatric {
		alarmMax *= pediatricAgentScale
		warnHigh *= pediatricAgentScale
	}

	return alarmMax, warnHigh
}

func checkAgentConcentration(s Snapshot) (Condition, bool) {
	alarmMax, warnHigh := agentCeilings(s)
	switch {
	case s.AgentConcentration > alarmMax:
		return Condition{
			Kind:     KindAgentOverdose,
			Severity: SeverityAlarm,
			Message:  fmt.Sprintf("volatile agent overdose: %s %.1f%% above %.1f%%", s.Agent, s.AgentConcentration, alarmMax),
			Value:    s.AgentConcentration,
		}, true
	case s.AgentConcentration > warnHigh:
		return Condition{
			Kind:     KindAgentOverdose,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("high agent concentration: %s %.1f%%", s.Agent, s.AgentConcentration),
			Value:    s.AgentConcentration,
		}, true
	}

	return Condition{}, false
}

func checkGasDelivery(s Snapshot) (Condition, bool) {
	if s.AgentConcentration <= 0 {
		return Condition{}, false
	}

	switch {
	case s.FreshGasFlow == 0:
		return Condition{
			Kind:     KindGasDelivery,
			Severity: SeverityAlarm,
			Message:  "agent dialed with no fresh gas flow",
			Value:    s.FreshGasFlow,
		}, true
	case s.FreshGasFlow <= washInFlowFloor:
		return Condition{
			Kind:     KindGasDelivery,
			Severity: SeverityAlarm,
			Message:  fmt.Sprintf("fresh gas flow %.1f L/min too low for agent wash-in", s.FreshGasFlow),
			Value:    s.FreshGasFlow,
		}, true
	}

	return Condition{}, false
}

// RequiredFreshGasFlow returns the minimum fresh gas flow needed to
// sustain the snapshot's minute ventilation.
func RequiredFreshGasFlow(s Snapshot) float64 {
	required := flowPerMVFraction * s.MinuteVentilation()
	if required < absoluteFlowFloor {
		required = absoluteFlowFloor
	}

	return required
}

func checkFreshGasFlow(s Snapshot) (Condition, bool) {
	switch {
	case s.FreshGasFlow < RequiredFreshGasFlow(s):
		return Condition{
			Kind:     KindFreshGasFlow,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("insufficient fresh gas flow: %.1f L/min", s.FreshGasFlow),
			Value:    s.FreshGasFlow,
		}, true
	case s.FreshGasFlow > wastefulFlow:
		return Condition{
			Kind:     KindFreshGasFlow,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("excessive fresh gas flow: %.1f L/min", s.FreshGasFlow),
			Value:    s.FreshGasFlow,
		}, true
	}

	return Condition{}, false
}
