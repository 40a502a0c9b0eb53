package rps

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

const (
	serverSeedBytes = 32
	clientSeedBytes = 16
)

// Seeds is the audit commitment stored with every match. ServerSeedHash is
// published before play; the seeds do not influence move selection.
type Seeds struct {
	ServerSeed     string `json:"server_seed"`
	ServerSeedHash string `json:"server_seed_hash"`
	ClientSeed1    string `json:"client_seed_1"`
	ClientSeed2    string `json:"client_seed_2"`
}

func GenerateSeeds() (Seeds, error) {
	server, err := randomHex(serverSeedBytes)
	if err != nil {
		return Seeds{}, fmt.Errorf("server seed: %w", err)
	}
	c1, err := randomHex(clientSeedBytes)
	if err != nil {
		return Seeds{}, fmt.Errorf("client seed 1: %w", err)
	}
	c2, err := randomHex(clientSeedBytes)
	if err != nil {
		return Seeds{}, fmt.Errorf("client seed 2: %w", err)
	}
	return Seeds{
		ServerSeed:     server,
		ServerSeedHash: HashSeed(server),
		ClientSeed1:    c1,
		ClientSeed2:    c2,
	}, nil
}

func HashSeed(seed string) string {
	h := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(h[:])
}

// VerifyCommitment reports whether serverSeed hashes to the published commitment.
func VerifyCommitment(serverSeed, serverSeedHash string) bool {
	if serverSeed == "" || serverSeedHash == "" {
		return false
	}
	got := HashSeed(serverSeed)
	return subtle.ConstantTimeCompare([]byte(got), []byte(serverSeedHash)) == 1
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
