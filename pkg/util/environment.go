package util

import (
	"os"
	"strings"
)

func GetEnvironmentVariables() map[string]string {
	environmentVariables := map[string]string{}

	for _, variable := range os.Environ() {
		pair := strings.SplitN(variable, "=", 2)
		if len(pair) != 2 {
			continue
		}

		environmentVariables[pair[0]] = pair[1]
	}

	return environmentVariables
}

// EnvironmentValue returns the variable from env or the fallback when unset or empty
func EnvironmentValue(env map[string]string, key string, fallback string) string {
	if value := env[key]; value != "" {
		return value
	}

	return fallback
}
