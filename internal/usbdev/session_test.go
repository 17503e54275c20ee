package usbdev

import "testing"

func TestOpenSequenceMatchesSpec(t *testing.T) {
	if len(OpenSequence) != 10 {
		t.Fatalf("expected 10 control transfers, got %d", len(OpenSequence))
	}

	want := []ControlStep{
		{controlRequestTypeIn, 0x06, 0x0100, 0x0000, 0x12},
		{controlRequestTypeIn, 0x06, 0x0200, 0x0000, 0x09},
		{controlRequestTypeIn, 0x06, 0x0200, 0x0000, 0x20},
		{controlRequestTypeIn, 0x06, 0x0300, 0x0000, 0xff},
		{controlRequestTypeIn, 0x06, 0x0302, 0x0409, 0xff},
		{controlRequestTypeIn, 0x06, 0x0301, 0x0409, 0xff},
		{controlRequestTypeIn, 0x06, 0x0303, 0x0409, 0xff},
		{0x00, 0x09, 0x0001, 0x0000, 0x00},
		{controlRequestTypeIn, 0x06, 0x0304, 0x0409, 0xff},
		{controlRequestTypeIn, 0x06, 0x0305, 0x0409, 0xff},
	}

	for i, w := range want {
		if OpenSequence[i] != w {
			t.Errorf("step %d = %+v, want %+v", i+1, OpenSequence[i], w)
		}
	}
}

func TestDefaultConfigMatchesDeviceIdentity(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.VendorID != 0x1772 {
		t.Errorf("VendorID = 0x%04x, want 0x1772", cfg.VendorID)
	}
	if cfg.ProductID != 0x0002 {
		t.Errorf("ProductID = 0x%04x, want 0x0002", cfg.ProductID)
	}
	if cfg.InterfaceNumber != 0 {
		t.Errorf("InterfaceNumber = %d, want 0", cfg.InterfaceNumber)
	}
}

func TestSessionErrorFormatting(t *testing.T) {
	err := &SessionError{Op: "OPEN_SESSION", DevID: "1772:0002", Msg: "no such device"}
	got := err.Error()
	want := "usbdev: OPEN_SESSION dev=1772:0002: no such device"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
