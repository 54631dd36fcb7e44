package mongo

import (
	"testing"
	"time"

	"github.com/storefront/cartsync/internal/pkg/config"
)

func TestClientOptions_FromConfig(t *testing.T) {
	opts := ClientOptions(config.MongoConfig{
		URI:            "mongodb://db:27017",
		MaxPoolSize:    25,
		ConnectTimeout: 3 * time.Second,
	})
	if len(opts.Hosts) != 1 || opts.Hosts[0] != "db:27017" {
		t.Fatalf("unexpected hosts: %v", opts.Hosts)
	}
	if opts.MaxPoolSize == nil || *opts.MaxPoolSize != 25 {
		t.Fatalf("pool size not applied: %v", opts.MaxPoolSize)
	}
	if *opts.ConnectTimeout != 3*time.Second || *opts.ServerSelectionTimeout != 3*time.Second {
		t.Fatalf("timeouts not applied: %v / %v", *opts.ConnectTimeout, *opts.ServerSelectionTimeout)
	}
	if opts.AppName == nil || *opts.AppName != appName {
		t.Fatalf("app name not set: %v", opts.AppName)
	}
}

func TestClientOptions_Defaults(t *testing.T) {
	opts := ClientOptions(config.MongoConfig{URI: "mongodb://localhost:27017"})
	if *opts.ConnectTimeout != defaultConnectTimeout {
		t.Fatalf("expected default timeout, got %v", *opts.ConnectTimeout)
	}
	if opts.MaxPoolSize != nil {
		t.Fatalf("pool size should be left to the driver, got %d", *opts.MaxPoolSize)
	}
}
