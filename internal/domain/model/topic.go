// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// Topic maps a human-assigned name to the address allocated for it by the
// pub/sub system. The mapping is permanent once written.
type Topic struct {
	Name    string `json:"topicName" koanf:"name"`
	Address string `json:"topicArn" koanf:"address"`
}

// NormalizeTopicName trims surrounding whitespace and rejects empty names.
func NormalizeTopicName(name string) (string, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidTopicName)
	}
	return n, nil
}
