package scada

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// FieldProperty is the normalized field-measurement a tag feeds.
type FieldProperty string

const (
	FieldCasingPressure    FieldProperty = "casingPressure"
	FieldTubingPressure    FieldProperty = "tubingPressure"
	FieldLinePressure      FieldProperty = "linePressure"
	FieldTemperature       FieldProperty = "temperature"
	FieldFlowRate          FieldProperty = "flowRate"
	FieldOilVolume         FieldProperty = "oilVolume"
	FieldGasVolume         FieldProperty = "gasVolume"
	FieldWaterVolume       FieldProperty = "waterVolume"
	FieldChokePressure     FieldProperty = "chokePressure"
	FieldSeparatorPressure FieldProperty = "separatorPressure"
)

// Valid returns true when the property is a member of the fixed set.
func (p FieldProperty) Valid() bool {
	switch p {
	case FieldCasingPressure, FieldTubingPressure, FieldLinePressure,
		FieldTemperature, FieldFlowRate, FieldOilVolume, FieldGasVolume,
		FieldWaterVolume, FieldChokePressure, FieldSeparatorPressure:
		return true
	default:
		return false
	}
}

// DataType is the OPC-UA primitive type a tag is expected to carry.
type DataType string

const (
	DataTypeBoolean DataType = "Boolean"
	DataTypeInt16   DataType = "Int16"
	DataTypeUInt16  DataType = "UInt16"
	DataTypeInt32   DataType = "Int32"
	DataTypeUInt32  DataType = "UInt32"
	DataTypeFloat   DataType = "Float"
	DataTypeDouble  DataType = "Double"
	DataTypeString  DataType = "String"
)

// Valid returns true when the data type is supported.
func (d DataType) Valid() bool {
	switch d {
	case DataTypeBoolean, DataTypeInt16, DataTypeUInt16, DataTypeInt32,
		DataTypeUInt32, DataTypeFloat, DataTypeDouble, DataTypeString:
		return true
	default:
		return false
	}
}

// DefaultScalingFactor applies when a tag spec omits the factor.
const DefaultScalingFactor = 1.0

var tagNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// TagConfig is the validated, immutable mapping of one controller data point.
// Deadband is nil when not configured, meaning every change is significant.
type TagConfig struct {
	NodeID        string
	TagName       string
	FieldProperty FieldProperty
	DataType      DataType
	Unit          string
	ScalingFactor float64
	Deadband      *float64
}

// NewTagConfig validates and builds a tag config. scalingFactor may be nil to
// take the default; deadband may be nil to disable change filtering.
func NewTagConfig(nodeID, tagName string, property FieldProperty, dataType DataType, unit string, scalingFactor, deadband *float64) (TagConfig, error) {
	if nodeID == "" || !strings.Contains(nodeID, "ns=") {
		return TagConfig{}, fmt.Errorf("%w: %q", ErrInvalidNodeID, nodeID)
	}
	if tagName == "" || !tagNamePattern.MatchString(tagName) {
		return TagConfig{}, fmt.Errorf("%w: %q", ErrInvalidTagName, tagName)
	}
	if !property.Valid() {
		return TagConfig{}, fmt.Errorf("%w: %q", ErrInvalidFieldProperty, property)
	}
	if !dataType.Valid() {
		return TagConfig{}, fmt.Errorf("%w: %q", ErrInvalidDataType, dataType)
	}
	factor := DefaultScalingFactor
	if scalingFactor != nil {
		if *scalingFactor <= 0 {
			return TagConfig{}, fmt.Errorf("%w: %v", ErrInvalidScalingFactor, *scalingFactor)
		}
		factor = *scalingFactor
	}
	var db *float64
	if deadband != nil {
		if *deadband < 0 {
			return TagConfig{}, fmt.Errorf("%w: %v", ErrInvalidDeadband, *deadband)
		}
		value := *deadband
		db = &value
	}
	return TagConfig{
		NodeID:        nodeID,
		TagName:       tagName,
		FieldProperty: property,
		DataType:      dataType,
		Unit:          unit,
		ScalingFactor: factor,
		Deadband:      db,
	}, nil
}

// ScaleValue converts a raw controller value into engineering units.
func (c TagConfig) ScaleValue(raw float64) float64 {
	return raw * c.ScalingFactor
}

// ExceedsDeadband reports whether the move from previous to current is a
// significant change. With no deadband configured every change is significant.
func (c TagConfig) ExceedsDeadband(current, previous float64) bool {
	if c.Deadband == nil {
		return true
	}
	return math.Abs(current-previous) >= *c.Deadband
}
