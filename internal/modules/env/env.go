package env

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

func MustGetString(key string) string {
	val, found := os.LookupEnv(key)
	if !found {
		panic(fmt.Sprintf("required environment variable not set: %s", key))
	}

	return val
}

func MustGetInt(key string) int {
	val, err := strconv.Atoi(MustGetString(key))
	if err != nil {
		panic(fmt.Sprintf("environment variable %s is not an int: %s", key, err))
	}

	return val
}

func GetIntOrDefault(key string, defaultVal int) int {
	raw, found := os.LookupEnv(key)
	if !found {
		return defaultVal
	}

	val, err := strconv.Atoi(raw)
	if err != nil {
		panic(fmt.Sprintf("environment variable %s is not an int: %s", key, err))
	}

	return val
}

func GetDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	raw, found := os.LookupEnv(key)
	if !found {
		return defaultVal
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		panic(fmt.Sprintf("environment variable %s is not a duration: %s", key, err))
	}

	return val
}
