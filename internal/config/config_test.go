package config

import "testing"

func TestDefaultsPopulatesCanonicalConstants(t *testing.T) {
	var c Config
	Defaults(&c)

	if c.Detectors.MinAirdropReceivers != 200 {
		t.Errorf("MinAirdropReceivers = %d, want 200", c.Detectors.MinAirdropReceivers)
	}
	if c.Detectors.Weights.TokenImpersonation != 5 {
		t.Errorf("Weights.TokenImpersonation = %v, want 5", c.Detectors.Weights.TokenImpersonation)
	}
	if c.Data.TokensFile != "tokens.json" {
		t.Errorf("Data.TokensFile = %q, want %q", c.Data.TokensFile, "tokens.json")
	}
}

func TestApplyEnvOverridesHonorsDebugTargetTokenAndNodeEnv(t *testing.T) {
	var c Config
	Defaults(&c)

	t.Setenv("DEBUG", "true")
	t.Setenv("TARGET_TOKEN", "0xabc")
	t.Setenv("NODE_ENV", "production")

	applyEnvOverrides(&c)

	if !c.Debug {
		t.Error("expected Debug=true from DEBUG env var")
	}
	if c.TargetToken != "0xabc" {
		t.Errorf("TargetToken = %q, want 0xabc", c.TargetToken)
	}
	if c.Detectors.TickInterval != 0 {
		t.Errorf("TickInterval = %v, want 0 when Debug is set", c.Detectors.TickInterval)
	}
	if c.Detectors.ProviderConcurrency != 2 {
		t.Errorf("ProviderConcurrency = %d, want 2 in production", c.Detectors.ProviderConcurrency)
	}
}

func TestApplyEnvOverridesDefaultsToDevelopmentConcurrency(t *testing.T) {
	var c Config
	Defaults(&c)
	applyEnvOverrides(&c)

	if c.Detectors.ProviderConcurrency != 40 {
		t.Errorf("ProviderConcurrency = %d, want 40 outside production", c.Detectors.ProviderConcurrency)
	}
}
