package scada

import (
	"errors"
	"testing"
)

func float(v float64) *float64 { return &v }

func mustTagConfig(t *testing.T, deadband *float64) TagConfig {
	t.Helper()
	cfg, err := NewTagConfig("ns=2;s=Pressure", "casing_pressure", FieldCasingPressure, DataTypeDouble, "psi", nil, deadband)
	if err != nil {
		t.Fatalf("build tag config: %v", err)
	}
	return cfg
}

func TestNewTagConfig_Validation(t *testing.T) {
	cases := []struct {
		name     string
		nodeID   string
		tagName  string
		property FieldProperty
		dataType DataType
		factor   *float64
		deadband *float64
		want     error
	}{
		{"empty node id", "", "p1", FieldTemperature, DataTypeDouble, nil, nil, ErrInvalidNodeID},
		{"no namespace", "s=Pressure", "p1", FieldTemperature, DataTypeDouble, nil, nil, ErrInvalidNodeID},
		{"empty tag name", "ns=2;s=P", "", FieldTemperature, DataTypeDouble, nil, nil, ErrInvalidTagName},
		{"leading digit", "ns=2;s=P", "1pressure", FieldTemperature, DataTypeDouble, nil, nil, ErrInvalidTagName},
		{"hyphen", "ns=2;s=P", "line-pressure", FieldTemperature, DataTypeDouble, nil, nil, ErrInvalidTagName},
		{"unknown property", "ns=2;s=P", "p1", FieldProperty("wellheadVoltage"), DataTypeDouble, nil, nil, ErrInvalidFieldProperty},
		{"unknown data type", "ns=2;s=P", "p1", FieldTemperature, DataType("Decimal"), nil, nil, ErrInvalidDataType},
		{"zero factor", "ns=2;s=P", "p1", FieldTemperature, DataTypeDouble, float(0), nil, ErrInvalidScalingFactor},
		{"negative factor", "ns=2;s=P", "p1", FieldTemperature, DataTypeDouble, float(-1), nil, ErrInvalidScalingFactor},
		{"negative deadband", "ns=2;s=P", "p1", FieldTemperature, DataTypeDouble, nil, float(-0.5), ErrInvalidDeadband},
	}
	for _, tc := range cases {
		_, err := NewTagConfig(tc.nodeID, tc.tagName, tc.property, tc.dataType, "", tc.factor, tc.deadband)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestNewTagConfig_Defaults(t *testing.T) {
	cfg := mustTagConfig(t, nil)
	if cfg.ScalingFactor != DefaultScalingFactor {
		t.Fatalf("expected default scaling factor, got %v", cfg.ScalingFactor)
	}
	if cfg.Deadband != nil {
		t.Fatalf("expected nil deadband, got %v", *cfg.Deadband)
	}
}

func TestTagConfig_ScaleValue(t *testing.T) {
	cfg, err := NewTagConfig("ns=2;s=Flow", "flow_rate", FieldFlowRate, DataTypeFloat, "bbl/d", float(0.25), nil)
	if err != nil {
		t.Fatalf("build tag config: %v", err)
	}
	if got := cfg.ScaleValue(400); got != 100 {
		t.Fatalf("expected 100, got %v", got)
	}
}

func TestTagConfig_ExceedsDeadband(t *testing.T) {
	cfg := mustTagConfig(t, float(2.0))
	if cfg.ExceedsDeadband(101.5, 100) {
		t.Fatalf("delta 1.5 < deadband 2.0 should not be significant")
	}
	if !cfg.ExceedsDeadband(102, 100) {
		t.Fatalf("delta 2.0 == deadband 2.0 should be significant")
	}
	if !cfg.ExceedsDeadband(95, 100) {
		t.Fatalf("delta 5.0 should be significant")
	}

	zero := mustTagConfig(t, float(0))
	if !zero.ExceedsDeadband(100, 100) {
		t.Fatalf("zero deadband should treat every reading as significant")
	}

	none := mustTagConfig(t, nil)
	if !none.ExceedsDeadband(100, 100) {
		t.Fatalf("absent deadband should treat every reading as significant")
	}
}
