// Package gpu identifies GPU devices: vendor detection via sysfs and DRM
// render node enumeration via udev.
package gpu

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Vendor identifies a GPU vendor.
type Vendor int

// Known vendors.
const (
	VendorUnknown Vendor = iota
	VendorIntel
	VendorAMD
	VendorNVIDIA
)

// PCI vendor IDs.
const (
	pciVendorIntel  = 0x8086
	pciVendorAMD    = 0x1002
	pciVendorNVIDIA = 0x10de
)

// String returns the vendor's display name.
func (v Vendor) String() string {
	switch v {
	case VendorIntel:
		return "Intel"
	case VendorAMD:
		return "AMD"
	case VendorNVIDIA:
		return "NVIDIA"
	default:
		return "Unknown"
	}
}

// ZeroCopyCapable reports whether buffers exported by this vendor's decode
// stack are typically importable without a CPU copy. NVIDIA exports carry
// tiled modifiers that importers usually reject.
func (v Vendor) ZeroCopyCapable() bool {
	return v == VendorIntel || v == VendorAMD
}

// sysfsRoot is overridable for tests.
var sysfsRoot = "/sys/class/drm"

// VendorFromNode reads the PCI vendor ID of a DRM node from sysfs.
// Accepts either a device path (/dev/dri/renderD128) or a bare node name.
func VendorFromNode(node string) Vendor {
	if node == "" {
		return VendorUnknown
	}

	name := filepath.Base(node)
	data, err := os.ReadFile(filepath.Join(sysfsRoot, name, "device", "vendor"))
	if err != nil {
		return VendorUnknown
	}

	var id uint32
	if _, err := fmt.Sscanf(strings.TrimSpace(string(data)), "0x%x", &id); err != nil {
		return VendorUnknown
	}
	return vendorFromID(id)
}

func vendorFromID(id uint32) Vendor {
	switch id {
	case pciVendorIntel:
		return VendorIntel
	case pciVendorAMD:
		return VendorAMD
	case pciVendorNVIDIA:
		return VendorNVIDIA
	default:
		return VendorUnknown
	}
}

// VendorFromDescription guesses the vendor from a driver/renderer
// description string, case-insensitively.
func VendorFromDescription(desc string) Vendor {
	s := strings.ToLower(desc)
	switch {
	case strings.Contains(s, "nvidia"), strings.Contains(s, "geforce"), strings.Contains(s, "nvdec"):
		return VendorNVIDIA
	case strings.Contains(s, "intel"):
		return VendorIntel
	case strings.Contains(s, "amd"), strings.Contains(s, "radeon"):
		return VendorAMD
	default:
		return VendorUnknown
	}
}

// AllowMismatchEnv permits a decode device whose vendor differs from the
// render device. This deliberately disables the zero-copy optimization.
const AllowMismatchEnv = "WLVIDEO_ALLOW_GPU_MISMATCH"

// MismatchAllowed reports whether the decode/render vendor mismatch escape
// hatch is set.
func MismatchAllowed() bool {
	return os.Getenv(AllowMismatchEnv) != ""
}
