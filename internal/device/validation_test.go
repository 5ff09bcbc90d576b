package device

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestValidateDevice(t *testing.T) {
	valid := func() *Device {
		return &Device{
			ID:           "light-1",
			Name:         "Hall Light",
			Type:         DeviceTypeLight,
			Protocol:     ProtocolZigbee,
			Capabilities: []Capability{CapPower},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Device)
		wantErr error
	}{
		{"valid", func(*Device) {}, nil},
		{"empty name", func(d *Device) { d.Name = "" }, ErrInvalidName},
		{"whitespace name", func(d *Device) { d.Name = "   " }, ErrInvalidName},
		{"name too long", func(d *Device) { d.Name = strings.Repeat("x", maxNameLength+1) }, ErrInvalidName},
		{"unknown type", func(d *Device) { d.Type = "hologram" }, ErrInvalidDeviceType},
		{"unknown protocol", func(d *Device) { d.Protocol = "carrier-pigeon" }, ErrInvalidProtocol},
		{"unknown capability", func(d *Device) { d.Capabilities = []Capability{"teleport"} }, ErrInvalidCapability},
		{"unknown connection state", func(d *Device) { d.ConnectionState = "warp" }, ErrInvalidConnectionState},
		{"empty connection state ok", func(d *Device) { d.ConnectionState = "" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid()
			tt.mutate(d)
			err := ValidateDevice(d)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDevice() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDevice() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDeviceNil(t *testing.T) {
	if err := ValidateDevice(nil); !errors.Is(err, ErrInvalidDevice) {
		t.Errorf("ValidateDevice(nil) error = %v, want ErrInvalidDevice", err)
	}
}

func TestValidateState(t *testing.T) {
	if err := ValidateState(&DeviceState{DeviceID: "d1", Properties: Properties{"power": BoolValue(true)}}); err != nil {
		t.Errorf("ValidateState() error = %v, want nil", err)
	}

	if err := ValidateState(nil); !errors.Is(err, ErrInvalidState) {
		t.Errorf("ValidateState(nil) error = %v, want ErrInvalidState", err)
	}
	if err := ValidateState(&DeviceState{}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("ValidateState(no id) error = %v, want ErrInvalidState", err)
	}

	big := Properties{}
	for i := 0; i <= maxStateKeys; i++ {
		big[fmt.Sprintf("key-%d", i)] = NumberValue(float64(i))
	}
	if err := ValidateState(&DeviceState{DeviceID: "d1", Properties: big}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("ValidateState(too many keys) error = %v, want ErrInvalidState", err)
	}

	long := Properties{"note": StringValue(strings.Repeat("x", maxStringValueLen+1))}
	if err := ValidateState(&DeviceState{DeviceID: "d1", Properties: long}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("ValidateState(long string) error = %v, want ErrInvalidState", err)
	}
}

func TestValidateCapabilities(t *testing.T) {
	if err := ValidateCapabilities(AllCapabilities()); err != nil {
		t.Errorf("ValidateCapabilities(all) error = %v", err)
	}
	if err := ValidateCapabilities([]Capability{"levitate"}); !errors.Is(err, ErrInvalidCapability) {
		t.Errorf("ValidateCapabilities() error = %v, want ErrInvalidCapability", err)
	}

	tooMany := make([]Capability, maxCapabilities+1)
	for i := range tooMany {
		tooMany[i] = CapPower
	}
	if err := ValidateCapabilities(tooMany); !errors.Is(err, ErrInvalidCapability) {
		t.Errorf("ValidateCapabilities(too many) error = %v, want ErrInvalidCapability", err)
	}
}

func TestGenerateID(t *testing.T) {
	a := GenerateID()
	b := GenerateID()

	if a == "" || b == "" {
		t.Fatal("GenerateID() returned empty string")
	}
	if a == b {
		t.Error("GenerateID() returned duplicate IDs")
	}
	if len(a) != 36 {
		t.Errorf("GenerateID() length = %d, want 36 (UUID)", len(a))
	}
}
