package definition

import (
	"fmt"
	"strings"
)

// ParameterType is the data type of a shared parameter. The set is closed;
// each value persists as its upper-case token. The zero value is TypeText.
type ParameterType int

// Parameter types, in the order they are listed to users.
const (
	TypeText ParameterType = iota
	TypeMultilineText
	TypeInteger
	TypeNumber
	TypeLength
	TypeArea
	TypeVolume
	TypeAngle
	TypeSlope
	TypeCurrency
	TypeMassDensity
	TypeURL
	TypeMaterial
	TypeImage
	TypeYesNo
	TypeFamilyType
	TypeLoadClassification
	TypeNumberOfPoles

	TypeHVACDensity
	TypeHVACEnergy
	TypeHVACFriction
	TypeHVACPower
	TypeHVACPowerDensity
	TypeHVACPressure
	TypeHVACTemperature
	TypeHVACVelocity
	TypeHVACAirFlow
	TypeHVACDuctSize
	TypeHVACCrossSection
	TypeHVACHeatGain
	TypeHVACRoughness
	TypeHVACDynamicViscosity
	TypeHVACSlope

	TypeElectricalCurrent
	TypeElectricalPotential
	TypeElectricalFrequency
	TypeElectricalIlluminance
	TypeElectricalLuminousFlux
	TypeElectricalLuminousIntensity
	TypeElectricalEfficacy
	TypeElectricalWattage
	TypeElectricalPower
	TypeElectricalApparentPower
	TypeElectricalPowerDensity
	TypeElectricalTemperature
	TypeElectricalCableTraySize
	TypeElectricalConduitSize
	TypeElectricalDemandFactor

	TypePipingDensity
	TypePipingFlow
	TypePipingFriction
	TypePipingPressure
	TypePipingTemperature
	TypePipingVelocity
	TypePipingViscosity
	TypePipingRoughness
	TypePipingVolume
	TypePipingSlope
	TypePipeSize

	TypeForce
	TypeLinearForce
	TypeAreaForce
	TypeMoment
	TypeLinearMoment
	TypeStress
	TypeUnitWeight
	TypeWeight
	TypeMass
	TypeMassPerUnitArea
	TypeThermalExpansion
	TypePointSpringCoefficient
	TypeLineSpringCoefficient
	TypeAreaSpringCoefficient
	TypeRotationalPointSpringCoefficient
	TypeRotationalLineSpringCoefficient
	TypeReinforcementVolume
	TypeReinforcementLength
	TypeReinforcementArea
	TypeReinforcementAreaPerUnitLength
	TypeReinforcementSpacing
	TypeReinforcementCover
	TypeBarDiameter
	TypeCrackWidth
	TypeSectionDimension
	TypeSectionProperty
	TypeSectionArea
	TypeSectionModulus
	TypeMomentOfInertia
	TypeWarpingConstant
	TypeSurfaceArea
	TypeAcceleration
	TypeEnergy
	TypePeriod
	TypePulsation
	TypeDisplacementDeflection
	TypeRotation

	typeCount
)

var typeTokens = [typeCount]string{
	TypeText:               "TEXT",
	TypeMultilineText:      "MULTILINETEXT",
	TypeInteger:            "INTEGER",
	TypeNumber:             "NUMBER",
	TypeLength:             "LENGTH",
	TypeArea:               "AREA",
	TypeVolume:             "VOLUME",
	TypeAngle:              "ANGLE",
	TypeSlope:              "SLOPE",
	TypeCurrency:           "CURRENCY",
	TypeMassDensity:        "MASS_DENSITY",
	TypeURL:                "URL",
	TypeMaterial:           "MATERIAL",
	TypeImage:              "IMAGE",
	TypeYesNo:              "YESNO",
	TypeFamilyType:         "FAMILYTYPE",
	TypeLoadClassification: "LOADCLASSIFICATION",
	TypeNumberOfPoles:      "NUMBER_OF_POLES",

	TypeHVACDensity:          "HVAC_DENSITY",
	TypeHVACEnergy:           "HVAC_ENERGY",
	TypeHVACFriction:         "HVAC_FRICTION",
	TypeHVACPower:            "HVAC_POWER",
	TypeHVACPowerDensity:     "HVAC_POWER_DENSITY",
	TypeHVACPressure:         "HVAC_PRESSURE",
	TypeHVACTemperature:      "HVAC_TEMPERATURE",
	TypeHVACVelocity:         "HVAC_VELOCITY",
	TypeHVACAirFlow:          "HVAC_AIR_FLOW",
	TypeHVACDuctSize:         "HVAC_DUCT_SIZE",
	TypeHVACCrossSection:     "HVAC_CROSS_SECTION",
	TypeHVACHeatGain:         "HVAC_HEAT_GAIN",
	TypeHVACRoughness:        "HVAC_ROUGHNESS",
	TypeHVACDynamicViscosity: "HVAC_DYNAMIC_VISCOSITY",
	TypeHVACSlope:            "HVAC_SLOPE",

	TypeElectricalCurrent:           "ELECTRICAL_CURRENT",
	TypeElectricalPotential:         "ELECTRICAL_POTENTIAL",
	TypeElectricalFrequency:         "ELECTRICAL_FREQUENCY",
	TypeElectricalIlluminance:       "ELECTRICAL_ILLUMINANCE",
	TypeElectricalLuminousFlux:      "ELECTRICAL_LUMINOUS_FLUX",
	TypeElectricalLuminousIntensity: "ELECTRICAL_LUMINOUS_INTENSITY",
	TypeElectricalEfficacy:          "ELECTRICAL_EFFICACY",
	TypeElectricalWattage:           "ELECTRICAL_WATTAGE",
	TypeElectricalPower:             "ELECTRICAL_POWER",
	TypeElectricalApparentPower:     "ELECTRICAL_APPARENT_POWER",
	TypeElectricalPowerDensity:      "ELECTRICAL_POWER_DENSITY",
	TypeElectricalTemperature:       "ELECTRICAL_TEMPERATURE",
	TypeElectricalCableTraySize:     "ELECTRICAL_CABLE_TRAY_SIZE",
	TypeElectricalConduitSize:       "ELECTRICAL_CONDUIT_SIZE",
	TypeElectricalDemandFactor:      "ELECTRICAL_DEMAND_FACTOR",

	TypePipingDensity:     "PIPING_DENSITY",
	TypePipingFlow:        "PIPING_FLOW",
	TypePipingFriction:    "PIPING_FRICTION",
	TypePipingPressure:    "PIPING_PRESSURE",
	TypePipingTemperature: "PIPING_TEMPERATURE",
	TypePipingVelocity:    "PIPING_VELOCITY",
	TypePipingViscosity:   "PIPING_VISCOSITY",
	TypePipingRoughness:   "PIPING_ROUGHNESS",
	TypePipingVolume:      "PIPING_VOLUME",
	TypePipingSlope:       "PIPING_SLOPE",
	TypePipeSize:          "PIPE_SIZE",

	TypeForce:                            "FORCE",
	TypeLinearForce:                      "LINEAR_FORCE",
	TypeAreaForce:                        "AREA_FORCE",
	TypeMoment:                           "MOMENT",
	TypeLinearMoment:                     "LINEAR_MOMENT",
	TypeStress:                           "STRESS",
	TypeUnitWeight:                       "UNIT_WEIGHT",
	TypeWeight:                           "WEIGHT",
	TypeMass:                             "MASS",
	TypeMassPerUnitArea:                  "MASS_PER_UNIT_AREA",
	TypeThermalExpansion:                 "THERMAL_EXPANSION",
	TypePointSpringCoefficient:           "POINT_SPRING_COEFFICIENT",
	TypeLineSpringCoefficient:            "LINE_SPRING_COEFFICIENT",
	TypeAreaSpringCoefficient:            "AREA_SPRING_COEFFICIENT",
	TypeRotationalPointSpringCoefficient: "ROTATIONAL_POINT_SPRING_COEFFICIENT",
	TypeRotationalLineSpringCoefficient:  "ROTATIONAL_LINE_SPRING_COEFFICIENT",
	TypeReinforcementVolume:              "REINFORCEMENT_VOLUME",
	TypeReinforcementLength:              "REINFORCEMENT_LENGTH",
	TypeReinforcementArea:                "REINFORCEMENT_AREA",
	TypeReinforcementAreaPerUnitLength:   "REINFORCEMENT_AREA_PER_UNIT_LENGTH",
	TypeReinforcementSpacing:             "REINFORCEMENT_SPACING",
	TypeReinforcementCover:               "REINFORCEMENT_COVER",
	TypeBarDiameter:                      "BAR_DIAMETER",
	TypeCrackWidth:                       "CRACK_WIDTH",
	TypeSectionDimension:                 "SECTION_DIMENSION",
	TypeSectionProperty:                  "SECTION_PROPERTY",
	TypeSectionArea:                      "SECTION_AREA",
	TypeSectionModulus:                   "SECTION_MODULUS",
	TypeMomentOfInertia:                  "MOMENT_OF_INERTIA",
	TypeWarpingConstant:                  "WARPING_CONSTANT",
	TypeSurfaceArea:                      "SURFACE_AREA",
	TypeAcceleration:                     "ACCELERATION",
	TypeEnergy:                           "ENERGY",
	TypePeriod:                           "PERIOD",
	TypePulsation:                        "PULSATION",
	TypeDisplacementDeflection:           "DISPLACEMENT_DEFLECTION",
	TypeRotation:                         "ROTATION",
}

var typesByToken = func() map[string]ParameterType {
	m := make(map[string]ParameterType, typeCount)
	for t, tok := range typeTokens {
		m[tok] = ParameterType(t)
	}
	return m
}()

// String returns the persisted token for the type.
func (t ParameterType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("ParameterType(%d)", int(t))
	}
	return typeTokens[t]
}

// Valid reports whether t is a member of the enumeration.
func (t ParameterType) Valid() bool {
	return t >= 0 && t < typeCount
}

// ParseType parses a persisted type token. Matching is case-insensitive.
func ParseType(s string) (ParameterType, error) {
	t, ok := typesByToken[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown parameter type %q", s)
	}
	return t, nil
}

// Types returns every parameter type in listing order.
func Types() []ParameterType {
	types := make([]ParameterType, typeCount)
	for i := range types {
		types[i] = ParameterType(i)
	}
	return types
}

// MarshalText implements encoding.TextMarshaler.
func (t ParameterType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid parameter type %d", int(t))
	}
	return []byte(typeTokens[t]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ParameterType) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
