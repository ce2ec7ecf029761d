package common

// DeviceIDKey is the metadata key holding this installation's UUID. Object
// keys produced by transports are namespaced by it.
const DeviceIDKey = "device_id"

// DefaultMIMEPreferences is the container preference list tried, in order,
// when a recording starts.
var DefaultMIMEPreferences = []string{"video/mp4", "video/webm"}
