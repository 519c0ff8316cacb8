package config

// Environment represents the deployment environment of the service.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

func (e Environment) String() string {
	return string(e)
}

// IsProduction reports whether the environment corresponds to production.
func (e Environment) IsProduction() bool {
	return e == Production
}

// IsDev reports whether verbose local defaults apply.
func (e Environment) IsDev() bool {
	return e == Development
}

// ParseEnvironment normalises v into one of the known environments. Unknown
// values fall back to Development.
func ParseEnvironment(v string) Environment {
	switch Environment(v) {
	case Production:
		return Production
	case Staging:
		return Staging
	case Testing:
		return Testing
	default:
		return Development
	}
}

// Decode lets envconfig parse APP_ENV through ParseEnvironment.
func (e *Environment) Decode(value string) error {
	*e = ParseEnvironment(value)
	return nil
}
