package audio

// DeviceLister enumerates input-capable audio devices. The pack carries no
// cgo audio driver, so concrete listers are supplied by the cmd boundary
// (or a test double); ListInputDevices is the seam the CLI and tests share.
type DeviceLister func() ([]DeviceInfo, error)

// ListInputDevices runs lister and returns its devices, or an empty list if
// lister is nil (no capture backend wired in this build).
func ListInputDevices(lister DeviceLister) ([]DeviceInfo, error) {
	if lister == nil {
		return nil, nil
	}
	return lister()
}
