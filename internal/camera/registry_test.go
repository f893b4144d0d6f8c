package camera

import (
	"errors"
	"testing"

	"github.com/smazurov/camgrab/internal/hal"
	"github.com/smazurov/camgrab/internal/hal/halsim"
)

func TestEnumerate_EmptyIsNotAnError(t *testing.T) {
	drv := halsim.New()
	descs, err := Enumerate(drv, hal.TransportAll)
	if err != nil {
		t.Fatalf("Enumerate failed: %v", err)
	}
	if len(descs) != 0 {
		t.Errorf("got %d devices, want 0", len(descs))
	}
}

func TestEnumerate_TransportFault(t *testing.T) {
	drv := halsim.New()
	drv.FailEnumerate(errors.New("bus fault"))

	_, err := Enumerate(drv, hal.TransportAll)
	if !IsCode(err, ErrCodeDiscovery) {
		t.Errorf("got %v, want %s", err, ErrCodeDiscovery)
	}
}

func TestEnumerate_FiltersByTransport(t *testing.T) {
	gige := halsim.NewCamera(halsim.Config{Transport: hal.TransportGigE, Serial: "GE001", IP: 0xC0A80102})
	usb := halsim.NewCamera(halsim.Config{Transport: hal.TransportUSB3, Serial: "US001"})
	drv := halsim.New(gige, usb)

	descs, err := Enumerate(drv, hal.TransportGigE)
	if err != nil {
		t.Fatalf("Enumerate failed: %v", err)
	}
	if len(descs) != 1 || descs[0].Serial != "GE001" {
		t.Errorf("GigE filter returned %v", descs)
	}

	descs, err = Enumerate(drv, hal.TransportAll)
	if err != nil {
		t.Fatalf("Enumerate failed: %v", err)
	}
	if len(descs) != 2 {
		t.Errorf("got %d devices, want 2", len(descs))
	}
}

func TestFindByAddress(t *testing.T) {
	gige := halsim.NewCamera(halsim.Config{Transport: hal.TransportGigE, Serial: "GE001", IP: 0xC0A8027C})
	usb := halsim.NewCamera(halsim.Config{Transport: hal.TransportUSB3, Serial: "US001"})
	list := []hal.Descriptor{gige.Descriptor(), usb.Descriptor()}

	// GigE devices match on their IP, not their serial.
	d, ok := FindByAddress(list, "192.168.2.124")
	if !ok || d.Serial != "GE001" {
		t.Errorf("IP lookup: ok=%v desc=%v", ok, d)
	}
	if _, ok := FindByAddress(list, "GE001"); ok {
		t.Error("GigE device matched by serial through FindByAddress")
	}

	// USB3 devices match on serial.
	d, ok = FindByAddress(list, "US001")
	if !ok || d.Transport != hal.TransportUSB3 {
		t.Errorf("serial lookup: ok=%v desc=%v", ok, d)
	}

	if _, ok := FindByAddress(list, "10.0.0.1"); ok {
		t.Error("unknown address reported as found")
	}
}

func TestFindBySerial(t *testing.T) {
	gige := halsim.NewCamera(halsim.Config{Transport: hal.TransportGigE, Serial: "GE001", IP: 0xC0A80102})
	list := []hal.Descriptor{gige.Descriptor()}

	if _, ok := FindBySerial(list, "GE001"); !ok {
		t.Error("serial lookup missed")
	}
	if _, ok := FindBySerial(list, "nope"); ok {
		t.Error("unknown serial reported as found")
	}
}
