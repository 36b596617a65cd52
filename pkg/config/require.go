package config

import "log"

// The signing secret and database URL have no sane defaults; a service
// must refuse to start without them rather than limp along and fail
// every request lazily.

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		log.Fatalf("missing required env %s", envName)
	}
}
