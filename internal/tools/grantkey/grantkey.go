// Package grantkey generates join grant keypairs and mints grants for ops
// and testing. The campaign platform owns minting in production; this tool
// exists so a hub can be exercised without one.
package grantkey

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/louisbranch/gathering.place/internal/hub/domain/participant"
	"github.com/louisbranch/gathering.place/internal/hub/grant"
)

// Config holds configuration for key generation or grant minting.
type Config struct {
	Mint        bool
	SessionID   string
	UserID      string
	CharacterID string
	Role        string
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Role: string(participant.RolePlayer)}
	fs.BoolVar(&cfg.Mint, "mint", cfg.Mint, "mint a grant from the signer env instead of generating a keypair")
	fs.StringVar(&cfg.SessionID, "session", cfg.SessionID, "session id the grant admits into (mint)")
	fs.StringVar(&cfg.UserID, "user", cfg.UserID, "user id the grant asserts (mint)")
	fs.StringVar(&cfg.CharacterID, "character", cfg.CharacterID, "character id the grant asserts (mint)")
	fs.StringVar(&cfg.Role, "role", cfg.Role, "role the grant asserts: gm, player or spectator (mint)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run generates a keypair or mints a grant and writes it to out.
func Run(cfg Config, out io.Writer, reader io.Reader) error {
	if out == nil {
		return errors.New("output is required")
	}
	if cfg.Mint {
		return mint(cfg, out)
	}
	return generate(out, reader)
}

// generate emits a fresh keypair as export lines matching the grant env vars.
func generate(out io.Writer, reader io.Reader) error {
	if reader == nil {
		reader = rand.Reader
	}
	publicKey, privateKey, err := ed25519.GenerateKey(reader)
	if err != nil {
		return fmt.Errorf("generate grant key: %w", err)
	}
	if _, err := fmt.Fprintf(out, "export %s=%s\n", grant.EnvGrantPrivateKey, base64.RawStdEncoding.EncodeToString(privateKey)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(out, "export %s=%s\n", grant.EnvGrantPublicKey, base64.RawStdEncoding.EncodeToString(publicKey)); err != nil {
		return err
	}
	return nil
}

// mint signs a grant for the configured identity using the signer env.
func mint(cfg Config, out io.Writer) error {
	role, ok := participant.NormalizeRole(cfg.Role)
	if !ok {
		return fmt.Errorf("role %q is invalid", cfg.Role)
	}
	signer, err := grant.LoadSignerFromEnv(nil)
	if err != nil {
		return err
	}
	token, err := grant.Mint(signer, grant.Identity{
		SessionID:   cfg.SessionID,
		UserID:      cfg.UserID,
		CharacterID: cfg.CharacterID,
		Role:        role,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
