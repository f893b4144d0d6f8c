//go:build mvs

package mvs

/*
#cgo CFLAGS: -I/opt/MVS/include
#cgo LDFLAGS: -L/opt/MVS/lib/64 -L/opt/MVS/lib -lMvCameraControl

#include <stdlib.h>
#include <string.h>
#include "MvCameraControl.h"

// The SpecialInfo union is opaque to cgo; these helpers flatten the
// transport-specific fields.
static unsigned int gige_current_ip(MV_CC_DEVICE_INFO *info) {
	return info->SpecialInfo.stGigEInfo.nCurrentIp;
}
static const char *gige_model(MV_CC_DEVICE_INFO *info) {
	return (const char *)info->SpecialInfo.stGigEInfo.chModelName;
}
static const char *gige_manufacturer(MV_CC_DEVICE_INFO *info) {
	return (const char *)info->SpecialInfo.stGigEInfo.chManufacturerName;
}
static const char *gige_serial(MV_CC_DEVICE_INFO *info) {
	return (const char *)info->SpecialInfo.stGigEInfo.chSerialNumber;
}
static const char *usb_model(MV_CC_DEVICE_INFO *info) {
	return (const char *)info->SpecialInfo.stUsb3VInfo.chModelName;
}
static const char *usb_manufacturer(MV_CC_DEVICE_INFO *info) {
	return (const char *)info->SpecialInfo.stUsb3VInfo.chManufacturerName;
}
static const char *usb_serial(MV_CC_DEVICE_INFO *info) {
	return (const char *)info->SpecialInfo.stUsb3VInfo.chSerialNumber;
}
static unsigned short usb_vendor(MV_CC_DEVICE_INFO *info) {
	return info->SpecialInfo.stUsb3VInfo.idVendor;
}
static unsigned short usb_product(MV_CC_DEVICE_INFO *info) {
	return info->SpecialInfo.stUsb3VInfo.idProduct;
}
*/
import "C"

import (
	"os"
	"sync"
	"time"
	"unsafe"

	"github.com/smazurov/camgrab/internal/hal"
)

// Vendor status code for "no data arrived before the timeout".
const statusNoData = 0x80000007

// Available reports whether this binary carries the vendor binding.
func Available() bool { return true }

// Driver implements hal.Driver over the MVS shared library.
type Driver struct {
	cfg Config
	// The SDK's enumeration is not reentrant.
	enumMu sync.Mutex
	// Descriptors must stay resolvable back to the vendor's device-info
	// pointers for CreateHandle.
	byserial map[string]*C.MV_CC_DEVICE_INFO
}

// NewDriver loads the SDK environment from cfg. The SDK reads these
// variables during its first call, so they are set before anything else
// touches the library.
func NewDriver(cfg Config) (hal.Driver, error) {
	if cfg.SDKPath == "" {
		cfg = DefaultConfig()
	}
	os.Setenv("MVCAM_SDK_PATH", cfg.SDKPath)
	os.Setenv("MVCAM_COMMON_RUNENV", cfg.RuntimePath)
	return &Driver{cfg: cfg, byserial: make(map[string]*C.MV_CC_DEVICE_INFO)}, nil
}

// Name implements hal.Driver.
func (d *Driver) Name() string { return "mvs" }

// Enumerate implements hal.Driver.
func (d *Driver) Enumerate(mask hal.Transport) ([]hal.Descriptor, error) {
	d.enumMu.Lock()
	defer d.enumMu.Unlock()

	var list C.MV_CC_DEVICE_INFO_LIST
	C.memset(unsafe.Pointer(&list), 0, C.sizeof_MV_CC_DEVICE_INFO_LIST)

	if ret := C.MV_CC_EnumDevices(C.uint(mask), &list); ret != C.MV_OK {
		return nil, &hal.StatusError{Op: "MV_CC_EnumDevices", Code: uint32(ret)}
	}

	count := int(list.nDeviceNum)
	descs := make([]hal.Descriptor, 0, count)
	for i := 0; i < count; i++ {
		info := list.pDeviceInfo[i]
		if info == nil {
			continue
		}
		desc := descriptorFromInfo(info)
		d.byserial[desc.Serial] = info
		descs = append(descs, desc)
	}
	return descs, nil
}

func descriptorFromInfo(info *C.MV_CC_DEVICE_INFO) hal.Descriptor {
	switch hal.Transport(info.nTLayerType) {
	case hal.TransportGigE:
		return hal.Descriptor{
			Transport:    hal.TransportGigE,
			Manufacturer: C.GoString(C.gige_manufacturer(info)),
			Model:        C.GoString(C.gige_model(info)),
			Serial:       C.GoString(C.gige_serial(info)),
			GigE:         &hal.GigEInfo{CurrentIP: uint32(C.gige_current_ip(info))},
		}
	default:
		return hal.Descriptor{
			Transport:    hal.TransportUSB3,
			Manufacturer: C.GoString(C.usb_manufacturer(info)),
			Model:        C.GoString(C.usb_model(info)),
			Serial:       C.GoString(C.usb_serial(info)),
			USB3: &hal.USB3Info{
				VendorID:  uint16(C.usb_vendor(info)),
				ProductID: uint16(C.usb_product(info)),
			},
		}
	}
}

// CreateHandle implements hal.Driver.
func (d *Driver) CreateHandle(desc hal.Descriptor) (hal.Handle, error) {
	d.enumMu.Lock()
	info, ok := d.byserial[desc.Serial]
	d.enumMu.Unlock()
	if !ok {
		// The descriptor predates the driver (or came from another
		// enumeration); re-enumerate to resolve it.
		if _, err := d.Enumerate(hal.TransportAll); err != nil {
			return nil, err
		}
		d.enumMu.Lock()
		info, ok = d.byserial[desc.Serial]
		d.enumMu.Unlock()
		if !ok {
			return nil, &hal.StatusError{Op: "MV_CC_CreateHandle", Code: 0x80000000}
		}
	}

	var h unsafe.Pointer
	if ret := C.MV_CC_CreateHandle(&h, info); ret != C.MV_OK {
		return nil, &hal.StatusError{Op: "MV_CC_CreateHandle", Code: uint32(ret)}
	}
	return &handle{h: h}, nil
}

type handle struct {
	h unsafe.Pointer
}

func (h *handle) Open(mode hal.AccessMode) error {
	if ret := C.MV_CC_OpenDevice(h.h, C.uint(mode), 0); ret != C.MV_OK {
		return &hal.StatusError{Op: "MV_CC_OpenDevice", Code: uint32(ret)}
	}
	return nil
}

func (h *handle) Close() error {
	if ret := C.MV_CC_CloseDevice(h.h); ret != C.MV_OK {
		return &hal.StatusError{Op: "MV_CC_CloseDevice", Code: uint32(ret)}
	}
	return nil
}

func (h *handle) Destroy() error {
	if ret := C.MV_CC_DestroyHandle(h.h); ret != C.MV_OK {
		return &hal.StatusError{Op: "MV_CC_DestroyHandle", Code: uint32(ret)}
	}
	return nil
}

func (h *handle) GetInt(name string) (int64, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	var v C.MVCC_INTVALUE
	if ret := C.MV_CC_GetIntValue(h.h, cname, &v); ret != C.MV_OK {
		return 0, &hal.StatusError{Op: "MV_CC_GetIntValue " + name, Code: uint32(ret)}
	}
	return int64(v.nCurValue), nil
}

func (h *handle) SetInt(name string, value int64) error {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	if ret := C.MV_CC_SetIntValue(h.h, cname, C.uint(value)); ret != C.MV_OK {
		return &hal.StatusError{Op: "MV_CC_SetIntValue " + name, Code: uint32(ret)}
	}
	return nil
}

func (h *handle) GetFloat(name string) (float64, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	var v C.MVCC_FLOATVALUE
	if ret := C.MV_CC_GetFloatValue(h.h, cname, &v); ret != C.MV_OK {
		return 0, &hal.StatusError{Op: "MV_CC_GetFloatValue " + name, Code: uint32(ret)}
	}
	return float64(v.fCurValue), nil
}

func (h *handle) SetFloat(name string, value float64) error {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	if ret := C.MV_CC_SetFloatValue(h.h, cname, C.float(value)); ret != C.MV_OK {
		return &hal.StatusError{Op: "MV_CC_SetFloatValue " + name, Code: uint32(ret)}
	}
	return nil
}

func (h *handle) GetEnum(name string) (uint32, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	var v C.MVCC_ENUMVALUE
	if ret := C.MV_CC_GetEnumValue(h.h, cname, &v); ret != C.MV_OK {
		return 0, &hal.StatusError{Op: "MV_CC_GetEnumValue " + name, Code: uint32(ret)}
	}
	return uint32(v.nCurValue), nil
}

func (h *handle) SetEnum(name string, value uint32) error {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	if ret := C.MV_CC_SetEnumValue(h.h, cname, C.uint(value)); ret != C.MV_OK {
		return &hal.StatusError{Op: "MV_CC_SetEnumValue " + name, Code: uint32(ret)}
	}
	return nil
}

func (h *handle) Command(name string) error {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	if ret := C.MV_CC_SetCommandValue(h.h, cname); ret != C.MV_OK {
		return &hal.StatusError{Op: "MV_CC_SetCommandValue " + name, Code: uint32(ret)}
	}
	return nil
}

func (h *handle) StartStreaming() error {
	if ret := C.MV_CC_StartGrabbing(h.h); ret != C.MV_OK {
		return &hal.StatusError{Op: "MV_CC_StartGrabbing", Code: uint32(ret)}
	}
	return nil
}

func (h *handle) StopStreaming() error {
	if ret := C.MV_CC_StopGrabbing(h.h); ret != C.MV_OK {
		return &hal.StatusError{Op: "MV_CC_StopGrabbing", Code: uint32(ret)}
	}
	return nil
}

func (h *handle) GetFrame(buf []byte, timeout time.Duration) (hal.FrameInfo, error) {
	var info C.MV_FRAME_OUT_INFO_EX
	C.memset(unsafe.Pointer(&info), 0, C.sizeof_MV_FRAME_OUT_INFO_EX)

	ret := C.MV_CC_GetOneFrameTimeout(h.h,
		(*C.uchar)(unsafe.Pointer(&buf[0])), C.uint(len(buf)),
		&info, C.uint(timeout.Milliseconds()))
	if ret != C.MV_OK {
		if uint32(ret) == statusNoData {
			return hal.FrameInfo{}, hal.ErrTimeout
		}
		return hal.FrameInfo{}, &hal.StatusError{Op: "MV_CC_GetOneFrameTimeout", Code: uint32(ret)}
	}

	return hal.FrameInfo{
		Width:       int(info.nWidth),
		Height:      int(info.nHeight),
		PixelFormat: hal.PixelFormat(info.enPixelType),
		FrameNum:    uint32(info.nFrameNum),
		PayloadLen:  int(info.nFrameLen),
	}, nil
}
