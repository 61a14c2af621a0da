package appconf

import "fmt"

// Environment identifies the operating environment of the process.
type Environment int

const (
	Development Environment = iota
	Test
	Production
)

func (e Environment) String() string {
	switch e {
	case Test:
		return "test"
	case Production:
		return "production"
	default:
		return "development"
	}
}

// EnvFlagToEnvironment converts the string value of an --env flag or config key
// into an Environment.
func EnvFlagToEnvironment(env string) (Environment, error) {
	switch env {
	case "", "development":
		return Development, nil
	case "test":
		return Test, nil
	case "production":
		return Production, nil
	default:
		return Development, fmt.Errorf("unknown environment %q", env)
	}
}
