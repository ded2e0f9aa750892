package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"payrouter/internal/auth"
	authrepo "payrouter/internal/auth/repository"
	"payrouter/pkg/config"
	"payrouter/pkg/model"
	"payrouter/pkg/sanitizer"
)

const JobName = "payrouter-apikeys"

// apikeys mints a merchant credential and prints it once. Only the hash of a secret key
// is stored.
func main() {
	merchantID := flag.String("merchant", "", "merchant id the key belongs to")
	kind := flag.String("kind", model.APIKeyKindSecret, "secret or publishable")
	permissions := flag.String("permissions", "", "comma separated permissions for secret keys; empty grants all")
	revoke := flag.String("revoke", "", "key id to revoke instead of minting")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := config.Load(JobName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()
	keys := authrepo.NewMongoAPIKeyRepository(cfg)

	if *revoke != "" {
		if err := keys.Revoke(ctx, *revoke, time.Now().UTC()); err != nil {
			cfg.Log.Fatal("Failed to revoke key", "key_id", *revoke, "error", err)
		}
		cfg.Log.Info("Key revoked", "key_id", *revoke)
		return
	}

	if *merchantID == "" {
		flag.Usage()
		os.Exit(2)
	}

	plaintext, key, err := mint(*merchantID, *kind, *permissions)
	if err != nil {
		cfg.Log.Fatal("Failed to mint key", "error", err)
	}
	if err := keys.Create(ctx, key); err != nil {
		cfg.Log.Fatal("Failed to store key", "error", err)
	}
	cfg.Log.Info("Key created", "key_id", key.KeyID, "merchant_id", key.MerchantID, "kind", key.Kind)
	fmt.Println(plaintext)
}

func mint(merchantID, kind, permissions string) (string, *model.APIKey, error) {
	now := time.Now().UTC()
	switch kind {
	case model.APIKeyKindSecret:
		return auth.NewSecretKey(merchantID, sanitizer.NormalizePermissions(permissions), now)
	case model.APIKeyKindPublishable:
		key := auth.NewPublishableKey(merchantID, now)
		return key.KeyID, key, nil
	default:
		return "", nil, fmt.Errorf("unknown key kind %q", kind)
	}
}
