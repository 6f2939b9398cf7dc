package utils

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const keyAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateRandomKey mints an API key of length characters, prefixed so
// keys are recognizable in logs and configs.
func GenerateRandomKey(length int) (string, error) {
	id, err := gonanoid.Generate(keyAlphabet, length)
	if err != nil {
		return "", err
	}
	return "pf_" + id, nil
}
