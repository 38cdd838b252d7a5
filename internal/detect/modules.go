package detect

// Modules returns one instance of each battery module keyed by its Key,
// in construction order matching Order. The analyzer looks modules up by
// key rather than hard-coding the switch itself.
func Modules() map[Key]Module {
	return map[Key]Module{
		KeyTokenImpersonation:      TokenImpersonationModule{},
		KeyAirdrop:                 AirdropModule{},
		KeyTooMuchAirdropActivity:  TooMuchAirdropActivityModule{},
		KeyLowActivityAfterAirdrop: LowActivityAfterAirdropModule{},
		KeyErc721MultipleOwners:    Erc721MultipleOwnersModule{},
		KeyErc721NonUniqueTokens:   Erc721NonUniqueTokensModule{},
		KeyErc721FalseTotalSupply:  Erc721FalseTotalSupplyModule{},
		KeySilentMint:              SilentMintModule{},
		KeySleepMint:               SleepMintModule{},
		KeyTooManyTokenCreations:   TooManyTokenCreationsModule{},
		KeyPhishingMetadata:        PhishingMetadataModule{},
		KeyTooManyHoneyPotOwners:   TooManyHoneyPotOwnersModule{},
		KeyHoneypotShareDominance:  HoneypotShareDominanceModule{},
		KeyHighActivity:            HighActivityModule{},
		KeyObservationTime:         ObservationTimeModule{},
	}
}
