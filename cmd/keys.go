package cmd

import (
	"bufio"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"meshwallet/types"
)

// loadKeypairs reads a keys file: one hex-encoded ed25519 private key per
// line, optionally prefixed with "name:". Blank lines and #-comments are
// skipped.
func loadKeypairs(path string) ([]types.Keypair, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open keys file: %w", err)
	}
	defer file.Close()

	var keypairs []types.Keypair
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		name := ""
		if idx := strings.IndexByte(line, ':'); idx >= 0 {
			name = strings.TrimSpace(line[:idx])
			line = strings.TrimSpace(line[idx+1:])
		}

		raw, err := hex.DecodeString(line)
		if err != nil {
			return nil, fmt.Errorf("malformed key in %s: %w", path, err)
		}
		if len(raw) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("key in %s has length %d, want %d", path, len(raw), ed25519.PrivateKeySize)
		}

		secret := ed25519.PrivateKey(raw)
		keypairs = append(keypairs, types.Keypair{
			DisplayName: name,
			PublicKey:   secret.Public().(ed25519.PublicKey),
			SecretKey:   secret,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read keys file: %w", err)
	}

	return keypairs, nil
}
