package capture

import "testing"

func TestValidateOptionsDefaults(t *testing.T) {
	opts, err := validateOptions(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.MonitorIndex != 0 {
		t.Fatalf("MonitorIndex = %d, want 0", opts.MonitorIndex)
	}
}

func TestValidateOptionsRejectsNegativeMonitor(t *testing.T) {
	_, err := validateOptions(&Options{MonitorIndex: -1})
	if err == nil {
		t.Fatal("expected an error for a negative monitor index")
	}
}

func TestValidateOptionsRejectsEmptyRegion(t *testing.T) {
	_, err := validateOptions(&Options{RegionEnabled: true, Region: Region{W: 0, H: 0}})
	if err == nil {
		t.Fatal("expected an error for an empty enabled region")
	}
}

func TestValidateOptionsAcceptsValidRegion(t *testing.T) {
	opts, err := validateOptions(&Options{RegionEnabled: true, Region: Region{X: 10, Y: 10, W: 640, H: 480}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !opts.RegionEnabled || opts.Region.W != 640 {
		t.Fatalf("unexpected options: %+v", opts)
	}
}
