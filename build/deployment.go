package build

// DeploymentType selects which deployment a binary was compiled for.
type DeploymentType byte

const (
	// Development enables verbose logging defaults for working on the
	// wallet core itself.
	Development DeploymentType = iota

	// Production is the configuration shipped to users.
	Production
)

// String returns a human readable name for the deployment type.
func (b DeploymentType) String() string {
	switch b {
	case Development:
		return "development"
	case Production:
		return "production"
	default:
		return "unknown"
	}
}

// IsProdBuild returns true when this binary was compiled for production.
// Production builds locate their flavour manifest next to the executable.
func IsProdBuild() bool {
	return Deployment == Production
}
