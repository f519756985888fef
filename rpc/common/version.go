package common

// BuildVersion is the driver and oracle version, overwritten at build time via
// -ldflags "-X github.com/ValentinKolb/dGo/rpc/common.BuildVersion=..."
var BuildVersion = "v0.1.0-dev"
