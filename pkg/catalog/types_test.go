package catalog

import "testing"

func TestParseAccess(t *testing.T) {
	tests := []struct {
		in    string
		want  Access
		valid bool
	}{
		{"", AccessReadOnly, true},
		{"R", AccessRead, true},
		{"RW", AccessRead | AccessWrite, true},
		{"rws", AccessReadWrite, true},
		{"readOnly", AccessReadOnly, true},
		{"readWrite", AccessReadWrite, true},
		{"writeOnly", AccessWrite, true},
		{"none", 0, true},
		{"RX", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseAccess(tt.in)
		if ok != tt.valid {
			t.Errorf("ParseAccess(%q) valid = %v, want %v", tt.in, ok, tt.valid)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("ParseAccess(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseDataType(t *testing.T) {
	tests := map[string]DataType{
		"bool":        DataTypeBool,
		"uint16":      DataTypeUint16,
		"enum8":       DataTypeEnum,
		"map8":        DataTypeBitmap,
		"temperature": DataTypeInt16,
		"single":      DataTypeFloat32,
		"octstr":      DataTypeBytes,
		"list":        DataTypeArray,
		" String ":    DataTypeString,
		"mystery":     DataTypeUnknown,
	}
	for in, want := range tests {
		if got := ParseDataType(in); got != want {
			t.Errorf("ParseDataType(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestDataTypeClasses(t *testing.T) {
	if !DataTypeEnum.IsInteger() || !DataTypeBitmap.IsInteger() || !DataTypeInt8.IsInteger() {
		t.Error("enums, bitmaps and ints must be integers")
	}
	if DataTypeFloat32.IsInteger() || !DataTypeFloat64.IsFloat() {
		t.Error("float classification")
	}
	if DataTypeBool.IsInteger() || DataTypeBool.IsFloat() {
		t.Error("bool is neither integer nor float")
	}
	if DataType(200).String() != "unknown" {
		t.Error("out-of-range DataType must stringify as unknown")
	}
}
