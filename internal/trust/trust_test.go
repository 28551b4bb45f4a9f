package trust_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tenor-lang/tenor/internal/trust"
)

func TestSignAndVerify(t *testing.T) {
	pub, priv, err := trust.GenerateKey()
	require.NoError(t, err)
	_ = pub

	env, err := trust.Sign(priv, []byte(`{"id":"b-1"}`), "deadbeef", "1.0", "")
	require.NoError(t, err)
	require.Equal(t, trust.AttestationFormat, env.Trust.AttestationFormat)

	ok, err := trust.Verify(env)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyRejectsTamperedEtag(t *testing.T) {
	_, priv, err := trust.GenerateKey()
	require.NoError(t, err)
	env, err := trust.Sign(priv, []byte(`{}`), "deadbeef", "1.0", "")
	require.NoError(t, err)

	env.Etag = "beefdead"
	ok, err := trust.Verify(env)
	require.NoError(t, err)
	require.False(t, ok)
}
