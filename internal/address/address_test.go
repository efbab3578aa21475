// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package address

import (
	"strings"
	"testing"

	"github.com/aplane-algo/zilstore/internal/keyerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var checksumVectors = []struct {
	raw      string
	checksum string
	bech32   string
}{
	{"4BAF5FADA8E5DB92C3D3242618C5B47133AE003C", "0x4BAF5faDA8e5Db92C3d3242618c5B47133AE003C", "zil1fwh4ltdguhde9s7nysnp33d5wye6uqpugufkz7"},
	{"448261915A80CDE9BDE7C7A791685200D3A0BF4E", "0x448261915a80cdE9BDE7C7a791685200D3A0bf4E", "zil1gjpxry26srx7n008c7nez6zjqrf6p06wur4x3m"},
	{"DED02FD979FC2E55C0243BD2F52DF022C40ADA1E", "0xDed02fD979fC2e55c0243bd2F52df022c40ADa1E", "zil1mmgzlktelsh9tspy80f02t0sytzq4ks79zdnkk"},
	{"13F06E60297BEA6A3C402F6F64C416A6B31E586E", "0x13F06E60297bea6A3c402F6f64c416A6b31e586e", "zil1z0cxucpf004x50zq9ahkf3qk56e3ukrwaty4g8"},
	{"1A90C25307C3CC71958A83FA213A2362D859CF33", "0x1a90C25307C3Cc71958A83fa213A2362D859CF33", "zil1r2gvy5c8c0x8r9v2s0azzw3rvtv9nnenynd33g"},
	{"625ABAEBD87DAE9AB128F3B3AE99688813D9C5DF", "0x625ABAebd87daE9ab128f3B3AE99688813d9C5dF", "zil1vfdt467c0khf4vfg7we6axtg3qfan3wlf9yc6y"},
	{"36BA34097F861191C48C839C9B1A8B5912F583CF", "0x36Ba34097f861191C48C839c9b1a8B5912f583cF", "zil1x6argztlscger3yvswwfkx5ttyf0tq703v7fre"},
	{"D2453AE76C9A86AAE544FCA699DBDC5C576AEF3A", "0xD2453Ae76C9A86AAe544fca699DbDC5c576aEf3A", "zil16fzn4emvn2r24e2yljnfnk7ut3tk4me6qx08ed"},
	{"72220E84947C36118CDBC580454DFAA3B918CD97", "0x72220e84947c36118cDbC580454DFaa3b918cD97", "zil1wg3qapy50smprrxmckqy2n065wu33nvh35dn0v"},
	{"50F92304C892D94A385CA6CE6CD6950CE9A36839", "0x50f92304c892D94A385cA6cE6CD6950ce9A36839", "zil12rujxpxgjtv55wzu5m8xe454pn56x6pedpl554"},
}

func TestToChecksumAddress(t *testing.T) {
	for _, tt := range checksumVectors {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ToChecksumAddress(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.checksum, got)

			// case and prefix of the input do not matter
			got, err = ToChecksumAddress("0x" + strings.ToLower(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.checksum, got)

			// idempotent
			again, err := ToChecksumAddress(strings.ToLower(strings.TrimPrefix(got, "0x")))
			require.NoError(t, err)
			assert.Equal(t, got, again)

			assert.True(t, IsChecksumAddress(got))
		})
	}
}

func TestToChecksumAddress_Invalid(t *testing.T) {
	for _, in := range []string{
		"",
		"0x",
		"4BAF5FADA8E5DB92C3D3242618C5B47133AE003",
		"4BAF5FADA8E5DB92C3D3242618C5B47133AE003C00",
		"4BAF5FADA8E5DB92C3D3242618C5B47133AE00ZZ",
		"zil1fwh4ltdguhde9s7nysnp33d5wye6uqpugufkz7",
	} {
		_, err := ToChecksumAddress(in)
		assert.ErrorIs(t, err, keyerr.ErrEncoding, "input %q", in)
		assert.False(t, IsAddress(in), "input %q", in)
	}
}

func TestFromBech32(t *testing.T) {
	for _, tt := range checksumVectors {
		t.Run(tt.bech32, func(t *testing.T) {
			raw, err := FromBech32(tt.bech32)
			require.NoError(t, err)
			assert.Equal(t, strings.ToLower(tt.raw), raw)
			assert.True(t, strings.EqualFold(tt.raw, raw))
			assert.True(t, IsBech32(tt.bech32))
		})
	}

	extra := map[string]string{
		"zil1r5verznnwvrzrz6uhveyrlxuhkvccwnju4aehf": "1d19918a737306218b5cbb3241fcdcbd998c3a72",
		"zil1tawmrsvvehn8u5fm0aawsg89dy25ja46ndsrhq": "5f5db1c18ccde67e513b7f7ae820e569154976ba",
		"ZIL1FWH4LTDGUHDE9S7NYSNP33D5WYE6UQPUGUFKZ7": "4baf5fada8e5db92c3d3242618c5b47133ae003c",
	}
	for in, want := range extra {
		raw, err := FromBech32(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, raw)
	}
}

func TestFromBech32_Rejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"wrong prefix", "tzil1fwh4ltdguhde9s7nysnp33d5wye6uqpuxfqjz0"},
		{"bad checksum", "zil1fwh4ltdguhde9s7nysnp33d5wye6uqpugufkz8"},
		{"bech32m checksum", "zil1fwh4ltdguhde9s7nysnp33d5wye6uqpuaqe68u"},
		{"short payload", "zil1fwh4ltdguhde9s7nysnp33d5wye6uqqzsmfal"},
		{"mixed case", "zil1fwh4ltdguhde9s7nysnp33d5wye6uqpugufkZ7"},
		{"no separator", "zilfwh4ltdguhde9s7nysnp33d5wye6uqpugufkz7"},
		{"hex address", "4BAF5FADA8E5DB92C3D3242618C5B47133AE003C"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromBech32(tt.in)
			require.ErrorIs(t, err, keyerr.ErrEncoding)
			assert.False(t, IsBech32(tt.in))
		})
	}
}

func TestToBech32(t *testing.T) {
	for _, tt := range checksumVectors {
		got, err := ToBech32(tt.raw)
		require.NoError(t, err)
		assert.Equal(t, tt.bech32, got)

		got, err = ToBech32(tt.checksum)
		require.NoError(t, err)
		assert.Equal(t, tt.bech32, got)
	}

	_, err := ToBech32("not-an-address")
	require.ErrorIs(t, err, keyerr.ErrEncoding)
}
