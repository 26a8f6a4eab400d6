// Package main provides a one-shot utility for join grant keys.
//
// Without flags it emits the ed25519 keypair the hub verifies grants with;
// with -mint it signs a grant from the signer env for ops and testing.
package main

import (
	"flag"
	"os"

	"github.com/louisbranch/gathering.place/internal/platform/config"
	"github.com/louisbranch/gathering.place/internal/tools/grantkey"
)

func main() {
	cfg, err := grantkey.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := grantkey.Run(cfg, os.Stdout, nil); err != nil {
		config.Exitf("grant key: %v", err)
	}
}
