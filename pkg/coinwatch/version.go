package coinwatch

// Version is the coinwatch release version.
const Version = "0.1.0"

// ModulePath is the Go module path.
const ModulePath = "github.com/mesh-intelligence/coinwatch"
