package gpu

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jochenvg/go-udev"
)

// RenderNode is a DRM render device usable for hardware decode.
type RenderNode struct {
	Path   string // device node, e.g. /dev/dri/renderD128
	Vendor Vendor
}

// FindRenderNodes enumerates DRM render nodes via udev, sorted by path so
// device selection is deterministic across runs.
func FindRenderNodes() ([]RenderNode, error) {
	u := udev.Udev{}
	e := u.NewEnumerate()

	if err := e.AddMatchSubsystem("drm"); err != nil {
		return nil, fmt.Errorf("udev match drm subsystem: %w", err)
	}

	devices, err := e.Devices()
	if err != nil {
		return nil, fmt.Errorf("udev enumerate: %w", err)
	}

	var nodes []RenderNode
	for _, d := range devices {
		if !strings.HasPrefix(d.Sysname(), "renderD") {
			continue
		}
		devnode := d.Devnode()
		if devnode == "" {
			continue
		}
		nodes = append(nodes, RenderNode{
			Path:   devnode,
			Vendor: VendorFromNode(d.Sysname()),
		})
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Path < nodes[j].Path })
	return nodes, nil
}

// PickDecodeNode selects the decode device. An explicit request wins unless
// its vendor differs from the render vendor and the mismatch escape hatch is
// unset; otherwise the first node matching the render vendor is preferred,
// then any zero-copy-capable node, then anything at all.
func PickDecodeNode(nodes []RenderNode, requested string, renderVendor Vendor) (RenderNode, error) {
	if requested != "" {
		reqVendor := VendorFromNode(requested)
		if renderVendor != VendorUnknown && reqVendor != VendorUnknown &&
			reqVendor != renderVendor && !MismatchAllowed() {
			return RenderNode{}, fmt.Errorf(
				"requested decode device %s (%s) differs from render device (%s); set %s=1 to override",
				requested, reqVendor, renderVendor, AllowMismatchEnv)
		}
		return RenderNode{Path: requested, Vendor: reqVendor}, nil
	}

	if len(nodes) == 0 {
		return RenderNode{}, fmt.Errorf("no DRM render nodes found")
	}

	for _, n := range nodes {
		if renderVendor != VendorUnknown && n.Vendor == renderVendor {
			return n, nil
		}
	}
	for _, n := range nodes {
		if n.Vendor.ZeroCopyCapable() {
			return n, nil
		}
	}
	return nodes[0], nil
}
